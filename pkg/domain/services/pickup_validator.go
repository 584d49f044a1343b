package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	"github.com/vsinha/shipcheckout/pkg/domain/validation"
)

// MaxPickupInstructions bounds the free-text instructions for the driver
const MaxPickupInstructions = 500

// ValidatePickup checks the appointment against the calendar at now. Field
// paths are relative to the pickup section.
func ValidatePickup(pickup entities.PickupDetails, cal *PickupCalendar, now time.Time) validation.Result {
	var result validation.Result
	c := validation.NewChecker("", &result)

	sameDay := false
	if c.Required("date", pickup.Date, "Pickup date") {
		day, err := cal.ParseDay(pickup.Date)
		switch {
		case err != nil:
			c.Errorf("date", validation.CodeInvalidFormat, "Pickup date must be YYYY-MM-DD")
		case !cal.IsBusinessDay(day):
			if name, ok := cal.Holiday(day); ok {
				c.Errorf("date", validation.CodeOutOfRange, "Pickups are not available on %s", name)
			} else {
				c.Errorf("date", validation.CodeOutOfRange, "Pickups are only available Monday through Friday")
			}
		case !cal.InWindow(day, now):
			first, last := cal.Window(now)
			c.Errorf("date", validation.CodeOutOfRange, "Pickup date must be between %s and %s",
				first.Format(DateLayout), last.Format(DateLayout))
		default:
			sameDay = cal.Today(now).Equal(day)
		}
	}

	validatePickupSlot(c.Nested("slot"), pickup.Slot, sameDay, now.In(cal.Location))

	loc := c.Nested("location")
	validation.OneOf(loc, "type", pickup.Location.Type, "Pickup location", entities.PickupLocationTypes)
	if pickup.Location.Type == entities.PickupOther {
		loc.RequiredLength("description", pickup.Location.Description, "Location description", 3, 200)
	} else {
		loc.MaxLength("description", pickup.Location.Description, "Location description", 200)
	}

	c.MaxLength("instructions", pickup.Instructions, "Special instructions", MaxPickupInstructions)

	ValidateContact(c.Nested("primaryContact"), pickup.PrimaryContact, ContactRules{})
	if pickup.BackupContact != nil {
		backup := c.Nested("backupContact")
		ValidateContact(backup, *pickup.BackupContact, ContactRules{})
		if p := phoneDigits(pickup.BackupContact.Phone); p != "" && p == phoneDigits(pickup.PrimaryContact.Phone) {
			backup.Errorf("phone", validation.CodeInvalidFormat, "Backup contact must have a different phone number than the primary contact")
		}
	}

	validation.EachOneOf(c, "accessRequirements", pickup.AccessRequirements, "Access requirement", entities.AccessRequirements)
	if pickup.RequiresAccess(entities.AccessGateCode) {
		c.RequiredLength("gateCode", pickup.GateCode, "Gate code", 1, 20)
	}

	validation.EachOneOf(c, "equipmentNeeds", pickup.EquipmentNeeds, "Equipment", entities.EquipmentNeeds)
	if pickup.NeedsEquipment(entities.EquipmentForklift) && pickup.Location.Type != entities.PickupLoadingDock {
		c.Errorf("equipmentNeeds", validation.CodeInvalidChoice, "Forklift pickups require a loading dock location")
	}

	if len(pickup.AuthorizedPersonnel) > 10 {
		c.Errorf("authorizedPersonnel", validation.CodeOutOfRange, "At most 10 authorized personnel may be listed")
	}
	for i, name := range pickup.AuthorizedPersonnel {
		c.RequiredLength(indexed("authorizedPersonnel", i), name, "Authorized person", 2, 100)
	}

	return result
}

func validatePickupSlot(c *validation.Checker, slot entities.TimeSlot, sameDay bool, now time.Time) {
	var start, end int
	startOK, endOK := false, false
	if c.Required("start", slot.Start, "Pickup window start") {
		var err error
		start, err = ParseClock(slot.Start)
		startOK = c.Format("start", err == nil, "Pickup window start must be HH:MM")
	}
	if c.Required("end", slot.End, "Pickup window end") {
		var err error
		end, err = ParseClock(slot.End)
		endOK = c.Format("end", err == nil, "Pickup window end must be HH:MM")
	}
	if !startOK || !endOK {
		return
	}
	if end-start < MinPickupWindowMinutes {
		c.Errorf("end", validation.CodeOutOfRange, "Pickup window must be at least %d hours", MinPickupWindowMinutes/60)
	}
	if sameDay && start < minutesOfDay(now)+MinPickupLeadMinutes {
		c.Errorf("start", validation.CodeOutOfRange, "Same-day pickups must start at least %d hours from now", MinPickupLeadMinutes/60)
	}
}

func phoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}

func indexed(field string, i int) string {
	return field + "[" + strconv.Itoa(i) + "]"
}
