package enums

import "fmt"

// Unit is the measurement unit a listing is sold in.
type Unit string

const (
	UnitKg      Unit = "kg"
	UnitLiters  Unit = "liters"
	UnitPieces  Unit = "pieces"
	UnitGrams   Unit = "grams"
	UnitMl      Unit = "ml"
	UnitDozens  Unit = "dozens"
	UnitPackets Unit = "packets"
)

var validUnits = []Unit{
	UnitKg,
	UnitLiters,
	UnitPieces,
	UnitGrams,
	UnitMl,
	UnitDozens,
	UnitPackets,
}

// String implements fmt.Stringer.
func (u Unit) String() string {
	return string(u)
}

// IsValid reports whether the value is a known Unit.
func (u Unit) IsValid() bool {
	for _, candidate := range validUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUnit converts raw input into a Unit.
func ParseUnit(value string) (Unit, error) {
	for _, candidate := range validUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unit %q", value)
}
