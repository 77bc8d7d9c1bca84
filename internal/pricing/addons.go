// Package pricing holds the fixed add-on catalog and the total-price rule for
// a booking draft.
package pricing

// Add-on identifiers from the catalog.
const (
	AddOnWindows    = "windows"
	AddOnStove      = "stove"
	AddOnCeilingFan = "ceiling_fan"
)

// CeilingFanUnitPrice is charged per fan; the ceiling_fan add-on is
// count-driven and never selected as a flat add-on.
const CeilingFanUnitPrice = 5

// AddOn is a catalog entry. Prices are whole dollars.
type AddOn struct {
	ID    string
	Name  string
	Price int
}

// Catalog lists the bookable add-on services in display order.
func Catalog() []AddOn {
	return []AddOn{
		{ID: AddOnWindows, Name: "Window Cleaning", Price: 10},
		{ID: AddOnStove, Name: "Stove/Oven Cleaning", Price: 15},
		{ID: AddOnCeilingFan, Name: "Ceiling Fan Cleaning", Price: CeilingFanUnitPrice},
	}
}

var flatPrices = map[string]int{
	AddOnWindows: 10,
	AddOnStove:   15,
}

// Total computes base price + flat add-on prices + per-unit ceiling fan cost.
// Unknown add-on IDs are ignored; a negative fan count charges nothing.
func Total(basePrice int, addOnIDs []string, ceilingFanCount int) int {
	total := basePrice
	seen := make(map[string]bool, len(addOnIDs))
	for _, id := range addOnIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		total += flatPrices[id]
	}
	if ceilingFanCount > 0 {
		total += ceilingFanCount * CeilingFanUnitPrice
	}
	return total
}
