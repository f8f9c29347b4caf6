package repositories

import (
	"context"
	"time"

	"weather-server/entities"
)

// ReadingQuery selects readings of one kind and tier whose timestamp lies
// in [Start, End]. Location, when set, is an equality filter on all three
// place names. Limit <= 0 returns every match.
type ReadingQuery struct {
	Kind     entities.Kind
	Tier     entities.Tier
	Start    time.Time
	End      time.Time
	Location *entities.Location
	Limit    int
	Offset   int
}

type ReadingRepository interface {
	// Insert stores r and sets its ID.
	Insert(ctx context.Context, r *entities.Reading) error
	Replace(ctx context.Context, r *entities.Reading) error
	Delete(ctx context.Context, kind entities.Kind, tier entities.Tier, id uint64) error
	Get(ctx context.Context, kind entities.Kind, tier entities.Tier, id uint64) (*entities.Reading, error)
	// Query returns matches ordered by timestamp, then id.
	Query(ctx context.Context, q ReadingQuery) ([]*entities.Reading, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	SetPassword(ctx context.Context, id uint64, passwordHash string) error
	SetEnabled(ctx context.Context, id uint64, enabled bool) error
	TouchLastLogin(ctx context.Context, id uint64, at time.Time) error
}
