package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"weather-server/db"
	"weather-server/entities"
)

type readingPgRepository struct {
	db db.Database
}

func NewReadingPgRepository(database db.Database) ReadingRepository {
	return &readingPgRepository{db: database}
}

func (r *readingPgRepository) table(ctx context.Context, kind entities.Kind, tier entities.Tier) (*gorm.DB, error) {
	name, err := entities.TableName(kind, tier)
	if err != nil {
		return nil, err
	}
	return r.db.GetDB().WithContext(ctx).Table(name), nil
}

func (r *readingPgRepository) Insert(ctx context.Context, reading *entities.Reading) error {
	tx, err := r.table(ctx, reading.Kind, reading.Tier)
	if err != nil {
		return err
	}
	reading.ID = 0
	rec := reading.Record()
	if err := tx.Create(rec).Error; err != nil {
		return fmt.Errorf("insert %s %s: %w", reading.Tier, reading.Kind, err)
	}
	reading.ID = recordID(rec)
	return nil
}

// Replace overwrites every column of an existing row. It never inserts.
func (r *readingPgRepository) Replace(ctx context.Context, reading *entities.Reading) error {
	tx, err := r.table(ctx, reading.Kind, reading.Tier)
	if err != nil {
		return err
	}
	res := tx.Where("id = ?", reading.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(reading.Record())
	if res.Error != nil {
		return fmt.Errorf("replace %s %s %d: %w", reading.Tier, reading.Kind, reading.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return entities.ErrNotFound
	}
	return nil
}

func (r *readingPgRepository) Delete(ctx context.Context, kind entities.Kind, tier entities.Tier, id uint64) error {
	tx, err := r.table(ctx, kind, tier)
	if err != nil {
		return err
	}
	res := tx.Where("id = ?", id).Delete(entities.NewRecord(tier))
	if res.Error != nil {
		return fmt.Errorf("delete %s %s %d: %w", tier, kind, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return entities.ErrNotFound
	}
	return nil
}

func (r *readingPgRepository) Get(ctx context.Context, kind entities.Kind, tier entities.Tier, id uint64) (*entities.Reading, error) {
	tx, err := r.table(ctx, kind, tier)
	if err != nil {
		return nil, err
	}
	rec := entities.NewRecord(tier)
	if err := tx.Where("id = ?", id).First(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrNotFound
		}
		return nil, fmt.Errorf("get %s %s %d: %w", tier, kind, id, err)
	}
	return toReading(rec, kind), nil
}

func (r *readingPgRepository) Query(ctx context.Context, q ReadingQuery) ([]*entities.Reading, error) {
	tx, err := r.table(ctx, q.Kind, q.Tier)
	if err != nil {
		return nil, err
	}

	tsCol := clause.Column{Name: "timestamp"}
	tx = tx.Clauses(
		clause.Gte{Column: tsCol, Value: q.Start},
		clause.Lte{Column: tsCol, Value: q.End},
	)
	if q.Location != nil {
		tx = tx.Where("city = ? AND province = ? AND country = ?",
			q.Location.City, q.Location.Province, q.Location.Country)
	}
	tx = tx.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: tsCol},
		{Column: clause.Column{Name: "id"}},
	}})
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit).Offset(q.Offset)
	}

	var readings []*entities.Reading
	switch q.Tier {
	case entities.Protected:
		var recs []entities.ProtectedRecord
		if err := tx.Find(&recs).Error; err != nil {
			return nil, fmt.Errorf("query %s %s: %w", q.Tier, q.Kind, err)
		}
		readings = make([]*entities.Reading, 0, len(recs))
		for i := range recs {
			readings = append(readings, recs[i].Reading(q.Kind))
		}
	default:
		var recs []entities.OpenRecord
		if err := tx.Find(&recs).Error; err != nil {
			return nil, fmt.Errorf("query %s %s: %w", q.Tier, q.Kind, err)
		}
		readings = make([]*entities.Reading, 0, len(recs))
		for i := range recs {
			readings = append(readings, recs[i].Reading(q.Kind))
		}
	}
	return readings, nil
}

func recordID(rec any) uint64 {
	switch v := rec.(type) {
	case *entities.OpenRecord:
		return v.ID
	case *entities.ProtectedRecord:
		return v.ID
	}
	return 0
}

func toReading(rec any, kind entities.Kind) *entities.Reading {
	switch v := rec.(type) {
	case *entities.ProtectedRecord:
		return v.Reading(kind)
	case *entities.OpenRecord:
		return v.Reading(kind)
	}
	return nil
}
