// Package units provides shared constants and validation for length units
// used to express pixel and voxel sizes.
package units

// Unit constants. Pixel sizes are stored internally in angstroms.
const (
	Angstrom   = "angstrom"
	Nanometer  = "nm"
	Micrometer = "um"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Angstrom, Nanometer, Micrometer}

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
	return "angstrom, nm, um"
}

// ToAngstrom converts a length in the given unit to angstroms.
// Unknown units are treated as angstroms.
func ToAngstrom(value float64, unit string) float64 {
	switch unit {
	case Nanometer:
		return value * 10
	case Micrometer:
		return value * 1e4
	case Angstrom:
		return value
	default:
		return value
	}
}

// FromAngstrom converts a length in angstroms to the target unit.
// Unknown units are treated as angstroms.
func FromAngstrom(value float64, unit string) float64 {
	switch unit {
	case Nanometer:
		return value / 10
	case Micrometer:
		return value / 1e4
	case Angstrom:
		return value
	default:
		return value
	}
}
