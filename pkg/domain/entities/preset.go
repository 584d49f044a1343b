package entities

// Preset is a canned shipment used to pre-fill the wizard
type Preset struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Shipment    Shipment `json:"shipment"`
}
