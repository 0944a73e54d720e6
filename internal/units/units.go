// Package units provides the frequency units accepted by the simulator and
// canonical spellings for the two map units the free-free pipeline ingests.
package units

import (
	"fmt"
	"strings"
)

// Frequency unit constants
const (
	Hz  = "Hz"
	KHz = "kHz"
	MHz = "MHz"
	GHz = "GHz"
)

// Map unit constants
const (
	Rayleigh     = "Rayleigh"
	MJyPerSr     = "MJy/sr"
	Kelvin       = "Kelvin"
	KelvinSymbol = "K"
)

// ValidFrequencyUnits contains all valid frequency unit values
var ValidFrequencyUnits = []string{Hz, KHz, MHz, GHz}

var frequencyScaleHz = map[string]float64{
	Hz:  1,
	KHz: 1e3,
	MHz: 1e6,
	GHz: 1e9,
}

// IsValidFrequencyUnit checks if the given unit is in the list of valid units
func IsValidFrequencyUnit(unit string) bool {
	_, ok := frequencyScaleHz[unit]
	return ok
}

// GetValidFrequencyUnitsString returns a comma-separated string of valid units for error messages
func GetValidFrequencyUnitsString() string {
	return strings.Join(ValidFrequencyUnits, ", ")
}

// ConvertFrequency converts a frequency between two of the supported units.
func ConvertFrequency(value float64, from, to string) (float64, error) {
	fs, ok := frequencyScaleHz[from]
	if !ok {
		return 0, fmt.Errorf("unknown frequency unit %q (valid: %s)", from, GetValidFrequencyUnitsString())
	}
	ts, ok := frequencyScaleHz[to]
	if !ok {
		return 0, fmt.Errorf("unknown frequency unit %q (valid: %s)", to, GetValidFrequencyUnitsString())
	}
	return value * fs / ts, nil
}

// ToGHz converts a frequency in the given unit to gigahertz.
func ToGHz(value float64, unit string) (float64, error) {
	return ConvertFrequency(value, unit, GHz)
}

// ToMHz converts a frequency in the given unit to megahertz.
func ToMHz(value float64, unit string) (float64, error) {
	return ConvertFrequency(value, unit, MHz)
}

// CanonicalMapUnit maps accepted spellings of a map unit onto its canonical
// name. Unknown units are returned unchanged (trimmed) with ok=false.
func CanonicalMapUnit(unit string) (string, bool) {
	u := strings.TrimSpace(unit)
	compact := strings.ReplaceAll(u, " ", "")
	switch compact {
	case "Rayleigh", "rayleigh", "R":
		return Rayleigh, true
	case "MJy/sr", "MJysr-1", "MJysr^-1", "MJy*sr-1":
		return MJyPerSr, true
	case "Kelvin", "K":
		return Kelvin, true
	}
	return u, false
}
