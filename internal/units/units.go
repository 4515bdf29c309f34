// Package units provides shared constants, validation and conversion for
// length units used by spatial calibrations.
package units

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Unit constants
const (
	NM     = "nm"
	UM     = "um"
	MM     = "mm"
	CM     = "cm"
	M      = "m"
	Pixels = "px"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{NM, UM, MM, CM, M, Pixels}

// metres per unit; pixels have no physical scale.
var metresPer = map[string]float64{
	NM: 1e-9,
	UM: 1e-6,
	MM: 1e-3,
	CM: 1e-2,
	M:  1,
}

// aliases maps spellings found in image metadata onto unit constants. Keys
// are NFKC-folded, so the micro sign arrives as Greek mu.
var aliases = map[string]string{
	"μm":         UM,
	"micron":     UM,
	"microns":    UM,
	"micrometer": UM,
	"micrometre": UM,
	"nanometer":  NM,
	"nanometre":  NM,
	"millimeter": MM,
	"millimetre": MM,
	"centimeter": CM,
	"centimetre": CM,
	"meter":      M,
	"metre":      M,
	"pixel":      Pixels,
	"pixels":     Pixels,
	"":           Pixels,
}

// Normalise maps a unit spelling onto one of ValidUnits. The second result
// is false when the unit is not recognised.
func Normalise(unit string) (string, bool) {
	u := strings.ToLower(norm.NFKC.String(strings.TrimSpace(unit)))
	if a, ok := aliases[u]; ok {
		return a, true
	}
	if slices.Contains(ValidUnits, u) {
		return u, true
	}
	return unit, false
}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	return slices.Contains(ValidUnits, unit)
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertLength converts value from one length unit to another. Pixel
// lengths only convert to pixels.
func ConvertLength(value float64, from, to string) (float64, error) {
	f, ok := Normalise(from)
	if !ok {
		return value, fmt.Errorf("unknown length unit %q (valid: %s)", from, GetValidUnitsString())
	}
	t, ok := Normalise(to)
	if !ok {
		return value, fmt.Errorf("unknown length unit %q (valid: %s)", to, GetValidUnitsString())
	}
	if f == t {
		return value, nil
	}
	if f == Pixels || t == Pixels {
		return value, fmt.Errorf("cannot convert %s to %s without a calibration", f, t)
	}
	return value * metresPer[f] / metresPer[t], nil
}
