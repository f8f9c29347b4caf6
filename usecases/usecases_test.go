package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-server/cache"
	"weather-server/db/dbtest"
	"weather-server/entities"
	"weather-server/logging"
	"weather-server/repositories"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []entities.ChangeEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e entities.ChangeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) all() []entities.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]entities.ChangeEvent(nil), p.events...)
}

type fixture struct {
	uc     *ReadingUseCase
	repo   repositories.ReadingRepository
	store  *cache.MemoryStore
	events *recordingPublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := repositories.NewReadingPgRepository(dbtest.New(t))
	store := cache.NewMemoryStore(time.Minute)
	events := &recordingPublisher{}
	return fixture{
		uc:     NewReadingUseCase(repo, store, events, logging.Discard()),
		repo:   repo,
		store:  store,
		events: events,
	}
}

var toronto = entities.Location{City: "Toronto", Province: "ON", Country: "CA"}

func fields(day int) entities.Fields {
	return entities.Fields{
		Measurement: entities.Measurement{
			Value:           14.4924,
			ValueUnits:      "C",
			ValueErrorRange: 0.192573,
			Latitude:        54.788803,
			Longitude:       -5.176766,
			Elevation:       66166.1257,
			ElevationUnits:  "m",
			Timestamp:       time.Date(2017, 5, day, 21, 46, 4, 0, time.UTC),
		},
		Location: toronto,
	}
}

func everything() ListFilter {
	return ListFilter{
		Start: time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(9999, 12, 31, 23, 59, 59, 999999000, time.UTC),
	}
}

func TestCreate_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.uc.Create(ctx, entities.Temperature, entities.Protected, fields(7))
	require.NoError(t, err)

	got, err := f.uc.Get(ctx, entities.Temperature, entities.Protected, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 14.4924, got.Value)
	assert.Equal(t, "C", got.ValueUnits)
	assert.Equal(t, 0.192573, got.ValueErrorRange)
	assert.Equal(t, 54.788803, got.Latitude)
	assert.Equal(t, -5.176766, got.Longitude)
	assert.Equal(t, 66166.1257, got.Elevation)
	assert.Equal(t, "m", got.ElevationUnits)
	assert.Equal(t, "2017-05-07T21:46:04", entities.FormatTimestamp(got.Timestamp))
	assert.Equal(t, 54.788, got.LatitudePublic)
	assert.Equal(t, -5.176, got.LongitudePublic)
}

func TestCreate_InvalidCoordinatesStoreNothing(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr error
	}{
		{"latitude 91", 91, 0, entities.ErrLatitudeOutOfRange},
		{"latitude -91", -91, 0, entities.ErrLatitudeOutOfRange},
		{"longitude 181", 0, 181, entities.ErrLongitudeOutOfRange},
		{"longitude -181", 0, -181, entities.ErrLongitudeOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			in := fields(7)
			in.Latitude, in.Longitude = tt.lat, tt.lon
			for _, tier := range entities.Tiers() {
				_, err := f.uc.Create(ctx, entities.Humidity, tier, in)
				assert.ErrorIs(t, err, tt.wantErr)

				filter := everything()
				filter.Location = &toronto
				got, err := f.uc.List(ctx, entities.Humidity, tier, filter)
				require.NoError(t, err)
				assert.Empty(t, got)
			}
			assert.Empty(t, f.events.all())
		})
	}
}

func TestReplace_InvalidLeavesStoredReading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.uc.Create(ctx, entities.Pressure, entities.Protected, fields(7))
	require.NoError(t, err)

	bad := fields(8)
	bad.Latitude = 91
	_, err = f.uc.Replace(ctx, entities.Pressure, entities.Protected, created.ID, bad)
	assert.ErrorIs(t, err, entities.ErrLatitudeOutOfRange)

	got, err := f.uc.Get(ctx, entities.Pressure, entities.Protected, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestReplace_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.uc.Create(ctx, entities.Pressure, entities.Open, fields(7))
	require.NoError(t, err)

	next := fields(9)
	next.Latitude = -33.86882
	_, err = f.uc.Replace(ctx, entities.Pressure, entities.Open, created.ID, next)
	require.NoError(t, err)
	first, err := f.uc.Get(ctx, entities.Pressure, entities.Open, created.ID)
	require.NoError(t, err)

	_, err = f.uc.Replace(ctx, entities.Pressure, entities.Open, created.ID, next)
	require.NoError(t, err)
	second, err := f.uc.Get(ctx, entities.Pressure, entities.Open, created.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReplace_Missing(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.Replace(context.Background(), entities.Pressure, entities.Open, 404, fields(7))
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestDelete_ThenGetIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.uc.Create(ctx, entities.Temperature, entities.Open, fields(7))
	require.NoError(t, err)

	require.NoError(t, f.uc.Delete(ctx, entities.Temperature, entities.Open, created.ID))
	_, err = f.uc.Get(ctx, entities.Temperature, entities.Open, created.ID)
	assert.ErrorIs(t, err, entities.ErrNotFound)
	assert.ErrorIs(t, f.uc.Delete(ctx, entities.Temperature, entities.Open, created.ID), entities.ErrNotFound)
}

func TestList_AscendingOverFullRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, day := range []int{20, 3, 11} {
		_, err := f.uc.Create(ctx, entities.Humidity, entities.Open, fields(day))
		require.NoError(t, err)
	}

	got, err := f.uc.List(ctx, entities.Humidity, entities.Open, everything())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 3, got[0].Timestamp.Day())
	assert.Equal(t, 11, got[1].Timestamp.Day())
	assert.Equal(t, 20, got[2].Timestamp.Day())
}

func TestList_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.List(ctx, entities.Temperature, entities.Protected, everything())
	assert.ErrorIs(t, err, ErrMissingLocation)

	partial := everything()
	partial.Location = &entities.Location{City: "Toronto"}
	_, err = f.uc.ListPublic(ctx, entities.Temperature, partial)
	assert.ErrorIs(t, err, ErrMissingLocation)

	inverted := everything()
	inverted.Start, inverted.End = inverted.End, inverted.Start
	_, err = f.uc.List(ctx, entities.Temperature, entities.Open, inverted)
	assert.ErrorIs(t, err, ErrInvalidRange)

	badSize := everything()
	badSize.PerPage = 7
	_, err = f.uc.List(ctx, entities.Temperature, entities.Open, badSize)
	assert.ErrorIs(t, err, ErrInvalidRange)

	badPage := everything()
	badPage.PerPage, badPage.Page = 10, -1
	_, err = f.uc.List(ctx, entities.Temperature, entities.Open, badPage)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestList_Paginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for day := 1; day <= 5; day++ {
		_, err := f.uc.Create(ctx, entities.Temperature, entities.Open, fields(day))
		require.NoError(t, err)
	}

	filter := everything()
	filter.PerPage, filter.Page = 2, 3
	got, err := f.uc.List(ctx, entities.Temperature, entities.Open, filter)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Timestamp.Day())
}

func TestPublic_ReflectsProtectedWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.uc.Create(ctx, entities.Temperature, entities.Protected, fields(7))
	require.NoError(t, err)

	view, err := f.uc.GetPublic(ctx, entities.Temperature, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 54.788, view.LatitudePublic)

	// second read is served from the cache
	_, err = f.uc.GetPublic(ctx, entities.Temperature, created.ID)
	require.NoError(t, err)
	stats, ok, err := f.uc.CacheStats(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1), stats.Hits)

	next := fields(7)
	next.Latitude = 10.123456
	_, err = f.uc.Replace(ctx, entities.Temperature, entities.Protected, created.ID, next)
	require.NoError(t, err)

	view, err = f.uc.GetPublic(ctx, entities.Temperature, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.123, view.LatitudePublic, "replace invalidates the cached projection")

	filter := everything()
	filter.Location = &toronto
	views, err := f.uc.ListPublic(ctx, entities.Temperature, filter)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 10.123, views[0].LatitudePublic)

	require.NoError(t, f.uc.Delete(ctx, entities.Temperature, entities.Protected, created.ID))
	_, err = f.uc.GetPublic(ctx, entities.Temperature, created.ID)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestEvents_OnlyForProtected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Create(ctx, entities.Humidity, entities.Open, fields(7))
	require.NoError(t, err)
	assert.Empty(t, f.events.all())

	created, err := f.uc.Create(ctx, entities.Humidity, entities.Protected, fields(7))
	require.NoError(t, err)
	_, err = f.uc.Replace(ctx, entities.Humidity, entities.Protected, created.ID, fields(8))
	require.NoError(t, err)
	require.NoError(t, f.uc.Delete(ctx, entities.Humidity, entities.Protected, created.ID))

	events := f.events.all()
	require.Len(t, events, 3)
	assert.Equal(t, entities.EventCreated, events[0].Event)
	assert.Equal(t, "humidity", events[0].Kind)
	require.NotNil(t, events[0].Reading)
	assert.Equal(t, -5.176, events[0].Reading.LongitudePublic)
	assert.Equal(t, entities.EventUpdated, events[1].Event)
	assert.Equal(t, entities.EventDeleted, events[2].Event)
	assert.Nil(t, events[2].Reading)
}

func TestNilCollaborators(t *testing.T) {
	repo := repositories.NewReadingPgRepository(dbtest.New(t))
	uc := NewReadingUseCase(repo, nil, nil, logging.Discard())
	ctx := context.Background()

	created, err := uc.Create(ctx, entities.Pressure, entities.Protected, fields(7))
	require.NoError(t, err)
	_, err = uc.GetPublic(ctx, entities.Pressure, created.ID)
	require.NoError(t, err)
	require.NoError(t, uc.Delete(ctx, entities.Pressure, entities.Protected, created.ID))

	_, ok, err := uc.CacheStats(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

// interleavingRepo runs afterGet once, right after the first Get returns,
// to land a write between a public read's load and its cache fill.
type interleavingRepo struct {
	repositories.ReadingRepository
	afterGet func()
}

func (r *interleavingRepo) Get(ctx context.Context, kind entities.Kind, tier entities.Tier, id uint64) (*entities.Reading, error) {
	reading, err := r.ReadingRepository.Get(ctx, kind, tier, id)
	if hook := r.afterGet; hook != nil {
		r.afterGet = nil
		hook()
	}
	return reading, err
}

func TestGetPublic_WriteDuringMissIsNotCached(t *testing.T) {
	tests := []struct {
		name  string
		write func(ctx context.Context, uc *ReadingUseCase, id uint64) error
		check func(t *testing.T, view entities.PublicView, err error)
	}{
		{
			name: "replace",
			write: func(ctx context.Context, uc *ReadingUseCase, id uint64) error {
				next := fields(7)
				next.Latitude = 10.123456
				_, err := uc.Replace(ctx, entities.Temperature, entities.Protected, id, next)
				return err
			},
			check: func(t *testing.T, view entities.PublicView, err error) {
				require.NoError(t, err)
				assert.Equal(t, 10.123, view.LatitudePublic)
			},
		},
		{
			name: "delete",
			write: func(ctx context.Context, uc *ReadingUseCase, id uint64) error {
				return uc.Delete(ctx, entities.Temperature, entities.Protected, id)
			},
			check: func(t *testing.T, _ entities.PublicView, err error) {
				assert.ErrorIs(t, err, entities.ErrNotFound)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := &interleavingRepo{ReadingRepository: repositories.NewReadingPgRepository(dbtest.New(t))}
			store := cache.NewMemoryStore(time.Minute)
			uc := NewReadingUseCase(repo, store, nil, logging.Discard())

			created, err := uc.Create(ctx, entities.Temperature, entities.Protected, fields(7))
			require.NoError(t, err)

			repo.afterGet = func() {
				require.NoError(t, tt.write(ctx, uc, created.ID))
			}
			stale, err := uc.GetPublic(ctx, entities.Temperature, created.ID)
			require.NoError(t, err)
			assert.Equal(t, 54.788, stale.LatitudePublic)

			_, cached, err := store.Get(ctx, cache.Key{Kind: entities.Temperature, ID: created.ID})
			require.NoError(t, err)
			assert.False(t, cached, "view loaded before the write must not be cached")

			view, err := uc.GetPublic(ctx, entities.Temperature, created.ID)
			tt.check(t, view, err)
		})
	}
}
