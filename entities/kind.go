package entities

import (
	"fmt"
	"strings"
)

// Kind is the measured quantity of a reading.
type Kind int

const (
	Temperature Kind = iota + 1
	Humidity
	Pressure
)

// Tier selects which table family a reading lives in.
type Tier int

const (
	// Open readings carry no location-identifying fields.
	Open Tier = iota + 1
	// Protected readings carry place names and public coordinates.
	Protected
)

func Kinds() []Kind { return []Kind{Temperature, Humidity, Pressure} }

func Tiers() []Tier { return []Tier{Open, Protected} }

func (k Kind) String() string {
	switch k {
	case Temperature:
		return "temperature"
	case Humidity:
		return "humidity"
	case Pressure:
		return "pressure"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Plural is the collection name used by the open tier ("humidities").
func (k Kind) Plural() string {
	switch k {
	case Temperature:
		return "temperatures"
	case Humidity:
		return "humidities"
	case Pressure:
		return "pressures"
	}
	return k.String() + "s"
}

func (k Kind) Valid() bool { return k >= Temperature && k <= Pressure }

// ParseKind accepts the singular or plural collection name.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if s == k.String() || s == k.Plural() {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown reading kind %q", ErrInvalidField, s)
}

func (t Tier) String() string {
	switch t {
	case Open:
		return "open"
	case Protected:
		return "protected"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

func (t Tier) Valid() bool { return t == Open || t == Protected }

func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open":
		return Open, nil
	case "protected":
		return Protected, nil
	}
	return 0, fmt.Errorf("%w: unknown tier %q", ErrInvalidField, s)
}

// TableName returns the storage table of a kind/tier pair,
// e.g. "humidities" or "protected_humidities".
func TableName(kind Kind, tier Tier) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: unknown reading kind %d", ErrInvalidField, int(kind))
	}
	switch tier {
	case Open:
		return kind.Plural(), nil
	case Protected:
		return "protected_" + kind.Plural(), nil
	}
	return "", fmt.Errorf("%w: unknown tier %d", ErrInvalidField, int(tier))
}
