// Package units provides shared constants and validation for display units
package units

// Unit constants
const (
	MM2 = "mm2"
	CM2 = "cm2"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MM2, CM2}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "mm2, cm2"
}

// ConvertArea converts an area from square millimetres to the target units.
// Stored metrics keep areas in mm^2.
func ConvertArea(areaMM2 float64, targetUnits string) float64 {
	switch targetUnits {
	case CM2:
		return areaMM2 / 100
	case MM2:
		return areaMM2
	default:
		return areaMM2
	}
}

// ConvertLength converts a millimetre length to the linear counterpart of the
// target area units (mm for mm2, cm for cm2).
func ConvertLength(lengthMM float64, targetUnits string) float64 {
	switch targetUnits {
	case CM2:
		return lengthMM / 10
	case MM2:
		return lengthMM
	default:
		return lengthMM
	}
}
