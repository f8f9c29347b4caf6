package entities

import "fmt"

// ReadingInput is the JSON body of a create or replace, shared by the
// HTTP handlers and the MQTT ingestor. Pointers tell a missing number
// apart from zero. latitude_public/longitude_public are not accepted.
type ReadingInput struct {
	Value           *float64 `json:"value" binding:"required"`
	ValueUnits      string   `json:"value_units" binding:"required"`
	ValueErrorRange *float64 `json:"value_error_range" binding:"required"`
	Latitude        *float64 `json:"latitude" binding:"required"`
	Longitude       *float64 `json:"longitude" binding:"required"`
	Elevation       *float64 `json:"elevation" binding:"required"`
	ElevationUnits  string   `json:"elevation_units" binding:"required"`
	Timestamp       string   `json:"timestamp" binding:"required"`
	City            string   `json:"city"`
	Province        string   `json:"province"`
	Country         string   `json:"country"`
}

// Fields converts the input, parsing the timestamp. Range checks are left
// to NewReading and Replace.
func (in ReadingInput) Fields() (Fields, error) {
	required := []struct {
		name string
		v    *float64
	}{
		{"value", in.Value},
		{"value_error_range", in.ValueErrorRange},
		{"latitude", in.Latitude},
		{"longitude", in.Longitude},
		{"elevation", in.Elevation},
	}
	for _, r := range required {
		if r.v == nil {
			return Fields{}, fmt.Errorf("%w: %s is required", ErrInvalidField, r.name)
		}
	}
	ts, err := ParseTimestamp(in.Timestamp)
	if err != nil {
		return Fields{}, err
	}
	return Fields{
		Measurement: Measurement{
			Value:           *in.Value,
			ValueUnits:      in.ValueUnits,
			ValueErrorRange: *in.ValueErrorRange,
			Latitude:        *in.Latitude,
			Longitude:       *in.Longitude,
			Elevation:       *in.Elevation,
			ElevationUnits:  in.ElevationUnits,
			Timestamp:       ts,
		},
		Location: Location{City: in.City, Province: in.Province, Country: in.Country},
	}, nil
}
