package entities

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	maxUnitsLength = 16
	publicDecimals = 3

	minLatitude  = -90.0
	maxLatitude  = 90.0
	minLongitude = -180.0
	maxLongitude = 180.0
)

// Measurement holds the fields every reading carries regardless of tier.
type Measurement struct {
	Value           float64   `json:"value" gorm:"type:decimal(12,4);not null"`
	ValueUnits      string    `json:"value_units" gorm:"type:varchar(16);not null"`
	ValueErrorRange float64   `json:"value_error_range" gorm:"type:decimal(7,6);not null;default:0"`
	Latitude        float64   `json:"latitude" gorm:"type:decimal(8,6);not null"`
	Longitude       float64   `json:"longitude" gorm:"type:decimal(9,6);not null"`
	Elevation       float64   `json:"elevation" gorm:"type:decimal(10,4);not null"`
	ElevationUnits  string    `json:"elevation_units" gorm:"type:varchar(16);not null"`
	Timestamp       time.Time `json:"timestamp" gorm:"not null"`
}

// Location names the place a protected reading was taken.
type Location struct {
	City     string `json:"city" gorm:"type:varchar(128);not null"`
	Province string `json:"province" gorm:"type:varchar(128);not null"`
	Country  string `json:"country" gorm:"type:varchar(128);not null"`
}

func (l Location) IsZero() bool {
	return l.City == "" && l.Province == "" && l.Country == ""
}

// Fields are the caller-supplied values of a create or full replace.
// Location is ignored for open readings.
type Fields struct {
	Measurement
	Location Location
}

// Reading is one sensor observation of any kind in either tier.
// For protected readings LatitudePublic and LongitudePublic are always
// derived from Latitude and Longitude; callers never set them.
type Reading struct {
	ID   uint64
	Kind Kind
	Tier Tier
	Measurement
	Location        Location
	LatitudePublic  float64
	LongitudePublic float64
}

// NewReading validates f and builds an unsaved reading. It has no side
// effects; the returned reading has a zero ID until stored.
func NewReading(kind Kind, tier Tier, f Fields) (*Reading, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown reading kind %d", ErrInvalidField, int(kind))
	}
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: unknown tier %d", ErrInvalidField, int(tier))
	}
	if err := f.validate(tier); err != nil {
		return nil, err
	}
	r := &Reading{Kind: kind, Tier: tier}
	r.assign(f)
	return r, nil
}

// Replace overwrites every mutable field of r with f. On error r is left
// exactly as it was.
func (r *Reading) Replace(f Fields) error {
	if err := f.validate(r.Tier); err != nil {
		return err
	}
	r.assign(f)
	return nil
}

func (r *Reading) assign(f Fields) {
	r.Measurement = f.Measurement
	if r.Tier != Protected {
		r.Location = Location{}
		r.LatitudePublic, r.LongitudePublic = 0, 0
		return
	}
	r.Location = f.Location
	r.LatitudePublic = PublicCoordinate(f.Latitude)
	r.LongitudePublic = PublicCoordinate(f.Longitude)
}

// validate reports the first violation only: latitude, then longitude,
// then the remaining fields.
func (f Fields) validate(tier Tier) error {
	// written as a negated range so NaN is rejected too
	if !(f.Latitude >= minLatitude && f.Latitude <= maxLatitude) {
		return ErrLatitudeOutOfRange
	}
	if !(f.Longitude >= minLongitude && f.Longitude <= maxLongitude) {
		return ErrLongitudeOutOfRange
	}
	if err := checkUnits("value_units", f.ValueUnits); err != nil {
		return err
	}
	if err := checkUnits("elevation_units", f.ElevationUnits); err != nil {
		return err
	}
	if !(f.ValueErrorRange >= 0) {
		return fmt.Errorf("%w: value_error_range must not be negative", ErrInvalidField)
	}
	if math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
		return fmt.Errorf("%w: value must be a finite number", ErrInvalidField)
	}
	if math.IsNaN(f.Elevation) || math.IsInf(f.Elevation, 0) {
		return fmt.Errorf("%w: elevation must be a finite number", ErrInvalidField)
	}
	if f.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidField)
	}
	if tier == Protected {
		switch {
		case strings.TrimSpace(f.Location.City) == "":
			return fmt.Errorf("%w: city is required", ErrInvalidField)
		case strings.TrimSpace(f.Location.Province) == "":
			return fmt.Errorf("%w: province is required", ErrInvalidField)
		case strings.TrimSpace(f.Location.Country) == "":
			return fmt.Errorf("%w: country is required", ErrInvalidField)
		}
	}
	return nil
}

func checkUnits(name, units string) error {
	if strings.TrimSpace(units) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidField, name)
	}
	if len([]rune(units)) > maxUnitsLength {
		return fmt.Errorf("%w: %s longer than %d characters", ErrInvalidField, name, maxUnitsLength)
	}
	return nil
}

// PublicCoordinate truncates a coordinate toward zero at three decimals:
// -5.176766 becomes -5.176, never -5.177. It cuts the shortest decimal
// form of v rather than scaling it, so 1.005 stays 1.005 and 54.7889999
// becomes 54.788.
func PublicCoordinate(v float64) float64 {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if dot := strings.IndexByte(s, '.'); dot >= 0 && len(s)-dot-1 > publicDecimals {
		s = s[:dot+1+publicDecimals]
	}
	out, err := strconv.ParseFloat(s, 64)
	if err != nil || out == 0 {
		// also folds -0 into 0
		return 0
	}
	return out
}
