package entities

import "time"

// OpenRecord is the storage row of an open reading. The table is chosen
// per kind with TableName.
type OpenRecord struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`
	Measurement
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProtectedRecord is the storage row of a protected reading.
type ProtectedRecord struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`
	Measurement
	Location
	LatitudePublic  float64 `gorm:"type:decimal(8,3);not null"`
	LongitudePublic float64 `gorm:"type:decimal(9,3);not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewRecord returns an empty row of the tier's table family.
func NewRecord(tier Tier) any {
	if tier == Protected {
		return &ProtectedRecord{}
	}
	return &OpenRecord{}
}

// Record converts r into the row type of its tier.
func (r *Reading) Record() any {
	if r.Tier == Protected {
		return &ProtectedRecord{
			ID:              r.ID,
			Measurement:     r.Measurement,
			Location:        r.Location,
			LatitudePublic:  r.LatitudePublic,
			LongitudePublic: r.LongitudePublic,
		}
	}
	return &OpenRecord{ID: r.ID, Measurement: r.Measurement}
}

func (rec *OpenRecord) Reading(kind Kind) *Reading {
	m := rec.Measurement
	m.Timestamp = m.Timestamp.UTC()
	return &Reading{ID: rec.ID, Kind: kind, Tier: Open, Measurement: m}
}

func (rec *ProtectedRecord) Reading(kind Kind) *Reading {
	m := rec.Measurement
	m.Timestamp = m.Timestamp.UTC()
	return &Reading{
		ID:              rec.ID,
		Kind:            kind,
		Tier:            Protected,
		Measurement:     m,
		Location:        rec.Location,
		LatitudePublic:  rec.LatitudePublic,
		LongitudePublic: rec.LongitudePublic,
	}
}
