package entities

// OpenView is the wire shape of an open reading.
type OpenView struct {
	ID              uint64  `json:"id"`
	Value           float64 `json:"value"`
	ValueUnits      string  `json:"value_units"`
	ValueErrorRange float64 `json:"value_error_range"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Elevation       float64 `json:"elevation"`
	ElevationUnits  string  `json:"elevation_units"`
	Timestamp       string  `json:"timestamp"`
}

// ProtectedView exposes everything, raw and public coordinates included.
type ProtectedView struct {
	OpenView
	LatitudePublic  float64 `json:"latitude_public"`
	LongitudePublic float64 `json:"longitude_public"`
	City            string  `json:"city"`
	Province        string  `json:"province"`
	Country         string  `json:"country"`
}

// PublicView is the read-only projection of a protected reading. It has
// no raw latitude, longitude or elevation.
type PublicView struct {
	ID              uint64  `json:"id"`
	Value           float64 `json:"value"`
	ValueUnits      string  `json:"value_units"`
	ValueErrorRange float64 `json:"value_error_range"`
	LatitudePublic  float64 `json:"latitude_public"`
	LongitudePublic float64 `json:"longitude_public"`
	City            string  `json:"city"`
	Province        string  `json:"province"`
	Country         string  `json:"country"`
	Timestamp       string  `json:"timestamp"`
}

func (r *Reading) OpenView() OpenView {
	return OpenView{
		ID:              r.ID,
		Value:           r.Value,
		ValueUnits:      r.ValueUnits,
		ValueErrorRange: r.ValueErrorRange,
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
		Elevation:       r.Elevation,
		ElevationUnits:  r.ElevationUnits,
		Timestamp:       FormatTimestamp(r.Timestamp),
	}
}

func (r *Reading) ProtectedView() ProtectedView {
	return ProtectedView{
		OpenView:        r.OpenView(),
		LatitudePublic:  r.LatitudePublic,
		LongitudePublic: r.LongitudePublic,
		City:            r.Location.City,
		Province:        r.Location.Province,
		Country:         r.Location.Country,
	}
}

// PublicView derives the public coordinates from the raw ones.
func (r *Reading) PublicView() PublicView {
	return PublicView{
		ID:              r.ID,
		Value:           r.Value,
		ValueUnits:      r.ValueUnits,
		ValueErrorRange: r.ValueErrorRange,
		LatitudePublic:  PublicCoordinate(r.Latitude),
		LongitudePublic: PublicCoordinate(r.Longitude),
		City:            r.Location.City,
		Province:        r.Location.Province,
		Country:         r.Location.Country,
		Timestamp:       FormatTimestamp(r.Timestamp),
	}
}

// View picks the wire shape that matches the reading's tier.
func (r *Reading) View() any {
	if r.Tier == Protected {
		return r.ProtectedView()
	}
	return r.OpenView()
}
