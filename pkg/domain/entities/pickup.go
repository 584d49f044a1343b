package entities

// PickupLocationType is where at the origin the driver collects freight
type PickupLocationType string

const (
	PickupLoadingDock PickupLocationType = "loading_dock"
	PickupFrontDesk   PickupLocationType = "front_desk"
	PickupMailroom    PickupLocationType = "mailroom"
	PickupWarehouse   PickupLocationType = "warehouse"
	PickupOther       PickupLocationType = "other"
)

// PickupLocationTypes lists every accepted pickup location type
var PickupLocationTypes = []PickupLocationType{
	PickupLoadingDock, PickupFrontDesk, PickupMailroom, PickupWarehouse, PickupOther,
}

// Access requirements
const (
	AccessSecurityBadge = "security_badge"
	AccessAppointment   = "appointment"
	AccessGateCode      = "gate_code"
	AccessEscort        = "escort"
)

// AccessRequirements lists every accepted access requirement
var AccessRequirements = []string{AccessSecurityBadge, AccessAppointment, AccessGateCode, AccessEscort}

// Equipment needs
const (
	EquipmentLiftgate   = "liftgate"
	EquipmentPalletJack = "pallet_jack"
	EquipmentForklift   = "forklift"
	EquipmentHandTruck  = "hand_truck"
)

// EquipmentNeeds lists every accepted equipment need
var EquipmentNeeds = []string{EquipmentLiftgate, EquipmentPalletJack, EquipmentForklift, EquipmentHandTruck}

// TimeSlot is a pickup window on a given day, times as HH:MM
type TimeSlot struct {
	ID    string `json:"id"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// PickupLocation narrows down the spot at the origin address
type PickupLocation struct {
	Type        PickupLocationType `json:"type"`
	Description string             `json:"description,omitempty"`
}

// NotificationPreferences controls pickup status notifications
type NotificationPreferences struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
}

// PickupDetails is the scheduled pickup appointment
type PickupDetails struct {
	Date                string                  `json:"date"`
	Slot                TimeSlot                `json:"slot"`
	Location            PickupLocation          `json:"location"`
	Instructions        string                  `json:"instructions,omitempty"`
	PrimaryContact      ContactInfo             `json:"primaryContact"`
	BackupContact       *ContactInfo            `json:"backupContact,omitempty"`
	AccessRequirements  []string                `json:"accessRequirements,omitempty"`
	GateCode            string                  `json:"gateCode,omitempty"`
	EquipmentNeeds      []string                `json:"equipmentNeeds,omitempty"`
	AuthorizedPersonnel []string                `json:"authorizedPersonnel,omitempty"`
	Notifications       NotificationPreferences `json:"notifications"`
}

// NeedsEquipment reports whether the pickup requests the equipment
func (p PickupDetails) NeedsEquipment(equipment string) bool {
	for _, e := range p.EquipmentNeeds {
		if e == equipment {
			return true
		}
	}
	return false
}

// RequiresAccess reports whether the site imposes the access requirement
func (p PickupDetails) RequiresAccess(requirement string) bool {
	for _, a := range p.AccessRequirements {
		if a == requirement {
			return true
		}
	}
	return false
}

// SlotAvailability is a slot on a specific day with its remaining capacity
type SlotAvailability struct {
	Slot      TimeSlot `json:"slot"`
	Capacity  int      `json:"capacity"`
	Remaining int      `json:"remaining"`
	Available bool     `json:"available"`
}

// PickupDay lists the bookable slots of one calendar day
type PickupDay struct {
	Date        string             `json:"date"`
	Weekday     string             `json:"weekday"`
	BusinessDay bool               `json:"businessDay"`
	Holiday     string             `json:"holiday,omitempty"`
	Slots       []SlotAvailability `json:"slots"`
}
