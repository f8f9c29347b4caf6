package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"weather-server/cache"
	"weather-server/entities"
	"weather-server/repositories"
)

var (
	// ErrMissingLocation is returned when a protected or public list omits
	// any of city, province or country.
	ErrMissingLocation = errors.New("city, province and country are required")
	// ErrInvalidRange covers an inverted time window and bad pagination.
	ErrInvalidRange = errors.New("invalid range")
)

// PageSizes are the accepted per_page values.
var PageSizes = []int{2, 10, 20, 30, 40, 50}

// EventPublisher receives protected-tier changes for the public feed.
type EventPublisher interface {
	Publish(ctx context.Context, event entities.ChangeEvent)
}

// ListFilter is a time window plus optional location and pagination.
// Page and PerPage of zero mean "everything".
type ListFilter struct {
	Start    time.Time
	End      time.Time
	Location *entities.Location
	Page     int
	PerPage  int
}

type ReadingUseCase struct {
	repo   repositories.ReadingRepository
	cache  cache.Store
	events EventPublisher
	logger *slog.Logger

	// writeEpoch counts protected writes. A public read only fills the
	// cache when no write landed between its load and its fill.
	cacheMu    sync.Mutex
	writeEpoch uint64
}

// NewReadingUseCase wires the reading operations. store and events may be nil.
func NewReadingUseCase(repo repositories.ReadingRepository, store cache.Store, events EventPublisher, logger *slog.Logger) *ReadingUseCase {
	return &ReadingUseCase{
		repo:   repo,
		cache:  store,
		events: events,
		logger: logger,
	}
}

// Create validates f and stores a new reading. Nothing is written when
// validation fails.
func (uc *ReadingUseCase) Create(ctx context.Context, kind entities.Kind, tier entities.Tier, f entities.Fields) (*entities.Reading, error) {
	reading, err := entities.NewReading(kind, tier, f)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Insert(ctx, reading); err != nil {
		return nil, err
	}
	uc.logger.InfoContext(ctx, "reading created", "kind", kind.String(), "tier", tier.String(), "id", reading.ID)
	uc.announce(ctx, entities.EventCreated, reading)
	return reading, nil
}

func (uc *ReadingUseCase) Get(ctx context.Context, kind entities.Kind, tier entities.Tier, id uint64) (*entities.Reading, error) {
	return uc.repo.Get(ctx, kind, tier, id)
}

// Replace overwrites every field of an existing reading. On validation
// failure the stored reading is untouched.
func (uc *ReadingUseCase) Replace(ctx context.Context, kind entities.Kind, tier entities.Tier, id uint64, f entities.Fields) (*entities.Reading, error) {
	reading, err := uc.repo.Get(ctx, kind, tier, id)
	if err != nil {
		return nil, err
	}
	if err := reading.Replace(f); err != nil {
		return nil, err
	}
	if err := uc.repo.Replace(ctx, reading); err != nil {
		return nil, err
	}
	uc.logger.InfoContext(ctx, "reading replaced", "kind", kind.String(), "tier", tier.String(), "id", id)
	uc.invalidate(ctx, tier, kind, id)
	uc.announce(ctx, entities.EventUpdated, reading)
	return reading, nil
}

func (uc *ReadingUseCase) Delete(ctx context.Context, kind entities.Kind, tier entities.Tier, id uint64) error {
	if err := uc.repo.Delete(ctx, kind, tier, id); err != nil {
		return err
	}
	uc.logger.InfoContext(ctx, "reading deleted", "kind", kind.String(), "tier", tier.String(), "id", id)
	uc.invalidate(ctx, tier, kind, id)
	if tier == entities.Protected && uc.events != nil {
		uc.events.Publish(ctx, entities.ChangeEvent{Event: entities.EventDeleted, Kind: kind.String(), ID: id})
	}
	return nil
}

// List returns the readings of one kind and tier in the filter's window,
// ascending by timestamp. Protected lists require a full location.
func (uc *ReadingUseCase) List(ctx context.Context, kind entities.Kind, tier entities.Tier, filter ListFilter) ([]*entities.Reading, error) {
	q, err := buildQuery(kind, tier, filter)
	if err != nil {
		return nil, err
	}
	return uc.repo.Query(ctx, q)
}

// GetPublic returns the public projection of a protected reading, from
// the cache when possible.
func (uc *ReadingUseCase) GetPublic(ctx context.Context, kind entities.Kind, id uint64) (entities.PublicView, error) {
	key := cache.Key{Kind: kind, ID: id}
	if uc.cache != nil {
		view, ok, err := uc.cache.Get(ctx, key)
		if err != nil {
			uc.logger.WarnContext(ctx, "cache read failed", "key", key.String(), "error", err)
		} else if ok {
			return view, nil
		}
	}

	epoch := uc.currentEpoch()
	reading, err := uc.repo.Get(ctx, kind, entities.Protected, id)
	if err != nil {
		return entities.PublicView{}, err
	}
	view := reading.PublicView()
	uc.fill(ctx, key, view, epoch)
	return view, nil
}

// ListPublic lists protected readings as public projections.
func (uc *ReadingUseCase) ListPublic(ctx context.Context, kind entities.Kind, filter ListFilter) ([]entities.PublicView, error) {
	readings, err := uc.List(ctx, kind, entities.Protected, filter)
	if err != nil {
		return nil, err
	}
	views := make([]entities.PublicView, 0, len(readings))
	for _, r := range readings {
		views = append(views, r.PublicView())
	}
	return views, nil
}

// CacheStats reports the projection cache, or ok=false when caching is off.
func (uc *ReadingUseCase) CacheStats(ctx context.Context) (cache.Stats, bool, error) {
	if uc.cache == nil {
		return cache.Stats{}, false, nil
	}
	stats, err := uc.cache.Stats(ctx)
	return stats, true, err
}

func buildQuery(kind entities.Kind, tier entities.Tier, filter ListFilter) (repositories.ReadingQuery, error) {
	if filter.Start.After(filter.End) {
		return repositories.ReadingQuery{}, fmt.Errorf("%w: start is after end", ErrInvalidRange)
	}
	q := repositories.ReadingQuery{
		Kind:  kind,
		Tier:  tier,
		Start: filter.Start.UTC(),
		End:   filter.End.UTC(),
	}

	if tier == entities.Protected {
		loc := filter.Location
		if loc == nil || loc.City == "" || loc.Province == "" || loc.Country == "" {
			return repositories.ReadingQuery{}, ErrMissingLocation
		}
		q.Location = loc
	}

	if filter.PerPage != 0 || filter.Page != 0 {
		perPage := filter.PerPage
		if perPage == 0 {
			perPage = PageSizes[len(PageSizes)-1]
		}
		if !slices.Contains(PageSizes, perPage) {
			return repositories.ReadingQuery{}, fmt.Errorf("%w: per_page must be one of %v", ErrInvalidRange, PageSizes)
		}
		page := filter.Page
		if page == 0 {
			page = 1
		}
		if page < 1 {
			return repositories.ReadingQuery{}, fmt.Errorf("%w: page must be at least 1", ErrInvalidRange)
		}
		q.Limit = perPage
		q.Offset = (page - 1) * perPage
	}
	return q, nil
}

func (uc *ReadingUseCase) invalidate(ctx context.Context, tier entities.Tier, kind entities.Kind, id uint64) {
	if tier != entities.Protected || uc.cache == nil {
		return
	}
	key := cache.Key{Kind: kind, ID: id}
	uc.cacheMu.Lock()
	defer uc.cacheMu.Unlock()
	uc.writeEpoch++
	if err := uc.cache.Delete(ctx, key); err != nil {
		uc.logger.WarnContext(ctx, "cache invalidation failed", "key", key.String(), "error", err)
	}
}

func (uc *ReadingUseCase) currentEpoch() uint64 {
	uc.cacheMu.Lock()
	defer uc.cacheMu.Unlock()
	return uc.writeEpoch
}

// fill caches view unless a protected write happened after epoch was read.
func (uc *ReadingUseCase) fill(ctx context.Context, key cache.Key, view entities.PublicView, epoch uint64) {
	if uc.cache == nil {
		return
	}
	uc.cacheMu.Lock()
	defer uc.cacheMu.Unlock()
	if uc.writeEpoch != epoch {
		uc.logger.DebugContext(ctx, "skipping stale cache fill", "key", key.String())
		return
	}
	if err := uc.cache.Set(ctx, key, view); err != nil {
		uc.logger.WarnContext(ctx, "cache write failed", "key", key.String(), "error", err)
	}
}

func (uc *ReadingUseCase) announce(ctx context.Context, event string, r *entities.Reading) {
	if r.Tier != entities.Protected || uc.events == nil {
		return
	}
	view := r.PublicView()
	uc.events.Publish(ctx, entities.ChangeEvent{
		Event:   event,
		Kind:    r.Kind.String(),
		ID:      r.ID,
		Reading: &view,
	})
}
