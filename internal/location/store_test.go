package location

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bharatmart/inquiry-service/internal/domain"
	"github.com/bharatmart/inquiry-service/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 19, 15, 4, 5, 0, time.UTC)

type mockGeocoder struct {
	m        sync.Mutex
	locality Locality
	err      error
	calls    int
}

func (g *mockGeocoder) ReverseGeocode(context.Context, domain.Coordinates) (Locality, error) {
	g.m.Lock()
	defer g.m.Unlock()
	g.calls++
	if g.err != nil {
		return Locality{}, g.err
	}
	return g.locality, nil
}

type failingStorage struct {
	storage.Store
}

func (failingStorage) Set(context.Context, string, []byte) error {
	return errors.New("quota exceeded")
}

func newTestStore(geo ReverseGeocoder, opts ...Option) (*Store, *storage.MemoryStore) {
	mem := storage.NewMemoryStore()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewStore(mem, storage.NewKeys(""), geo, opts...), mem
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	sut, _ := newTestStore(nil)
	ctx := context.Background()
	lat, lng := coords(19.9975, 73.7898)

	in := domain.Location{
		HouseNo: "12B", Area: "MG Road", Pincode: "423651", City: "Nashik",
		DeliveryInstructions: "Call on arrival", IsDefaultAddress: true,
		Lat: lat, Lng: lng, Source: domain.SourceManual, UpdatedAt: 1700000000000,
	}
	sut.Save(ctx, in)

	got := sut.Load(ctx)
	require.NotNil(t, got)
	assert.Equal(t, in, *got)
}

func TestSave_DefaultsProvenance(t *testing.T) {
	sut, _ := newTestStore(nil)
	ctx := context.Background()

	sut.Save(ctx, domain.Location{Pincode: "423651"})

	got := sut.Load(ctx)
	require.NotNil(t, got)
	assert.Equal(t, domain.SourceManual, got.Source)
	assert.Equal(t, fixedNow.UnixMilli(), got.UpdatedAt)
}

func TestSave_OverwritesWholesale(t *testing.T) {
	sut, _ := newTestStore(nil)
	ctx := context.Background()

	sut.Save(ctx, domain.Location{HouseNo: "1", Area: "Old Area", Pincode: "111111"})
	sut.Save(ctx, domain.Location{Pincode: "222222"})

	got := sut.Load(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "222222", got.Pincode)
	assert.Empty(t, got.Area)
	assert.Empty(t, got.HouseNo)
}

func TestSave_StorageFailureDoesNotPanic(t *testing.T) {
	sut := NewStore(failingStorage{storage.NewMemoryStore()}, storage.NewKeys(""), nil)
	assert.NotPanics(t, func() {
		sut.Save(context.Background(), domain.Location{Pincode: "423651"})
	})
	assert.Nil(t, sut.Load(context.Background()))
}

func TestLoad_Absent(t *testing.T) {
	payloads := map[string]string{
		"invalid json":      `{pincode`,
		"null":              `null`,
		"not an object":     `[1,2,3]`,
		"nothing locating":  `{"city":"Nashik","state":"MH"}`,
		"half a coordinate": `{"lat":19.9}`,
	}
	for name, p := range payloads {
		t.Run(name, func(t *testing.T) {
			sut, mem := newTestStore(nil)
			ctx := context.Background()
			require.NoError(t, mem.Set(ctx, "bharatmart:location", []byte(p)))
			assert.Nil(t, sut.Load(ctx))
		})
	}

	sut, _ := newTestStore(nil)
	assert.Nil(t, sut.Load(context.Background()), "never set")
}

func TestLoad_DropsHalfCoordinatePair(t *testing.T) {
	sut, mem := newTestStore(nil)
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, "bharatmart:location", []byte(`{"pincode":"423651","lng":73.1}`)))

	got := sut.Load(ctx)
	require.NotNil(t, got)
	assert.Nil(t, got.Lat)
	assert.Nil(t, got.Lng)
}

func TestClear(t *testing.T) {
	sut, _ := newTestStore(nil)
	ctx := context.Background()
	sut.Save(ctx, domain.Location{Pincode: "423651"})

	sut.Clear(ctx)
	assert.Nil(t, sut.Load(ctx))
}

func TestAutoPromptedFlag(t *testing.T) {
	sut, mem := newTestStore(nil)
	ctx := context.Background()

	assert.False(t, sut.WasAutoPrompted(ctx))
	sut.MarkAutoPrompted(ctx)
	assert.True(t, sut.WasAutoPrompted(ctx))

	raw, err := mem.Get(ctx, "bharatmart:location:autoPrompted")
	require.NoError(t, err)
	assert.Equal(t, "1", string(raw))
}

func TestDetectAndSave_Success(t *testing.T) {
	geo := &mockGeocoder{locality: Locality{Pincode: "423651", City: "Nashik", State: "Maharashtra"}}
	sut, _ := newTestStore(geo)
	ctx := context.Background()

	loc, err := sut.DetectAndSave(ctx, Fixed(domain.Coordinates{Lat: 19.9975, Lng: 73.7898}))
	require.NoError(t, err)
	assert.Equal(t, domain.SourceGPS, loc.Source)
	assert.Equal(t, "423651", loc.Pincode)
	assert.Equal(t, "Nashik", loc.City)
	assert.Equal(t, fixedNow.UnixMilli(), loc.UpdatedAt)

	stored := sut.Load(ctx)
	require.NotNil(t, stored)
	assert.Equal(t, *loc, *stored)
	assert.Equal(t, "Nashik 423651", Label(stored))
}

func TestDetectAndSave_GeocodeFailureKeepsCoordinates(t *testing.T) {
	geo := &mockGeocoder{err: ErrReverseGeocode}
	sut, _ := newTestStore(geo)
	ctx := context.Background()

	loc, err := sut.DetectAndSave(ctx, Fixed(domain.Coordinates{Lat: 19.9975, Lng: 73.7898}))
	require.NoError(t, err)
	assert.Empty(t, loc.Pincode)
	c, ok := loc.Coordinates()
	require.True(t, ok)
	assert.Equal(t, 19.9975, c.Lat)

	stored := sut.Load(ctx)
	require.NotNil(t, stored)
	assert.Equal(t, "Current location", Label(stored))
}

func TestDetectAndSave_WithoutGeocoder(t *testing.T) {
	sut, _ := newTestStore(nil)
	loc, err := sut.DetectAndSave(context.Background(), Fixed(domain.Coordinates{Lat: 1, Lng: 2}))
	require.NoError(t, err)
	assert.Empty(t, loc.City)
}

func TestDetectAndSave_CoordinateFailures(t *testing.T) {
	cases := map[string]struct {
		provider CoordinateProvider
		want     error
	}{
		"no provider":       {nil, ErrGeolocationUnsupported},
		"permission denied": {Failing(ErrPermissionDenied), ErrPermissionDenied},
		"unsupported":       {Failing(ErrGeolocationUnsupported), ErrGeolocationUnsupported},
		"invalid":           {Fixed(domain.Coordinates{Lat: 120, Lng: 0}), ErrInvalidCoordinates},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			geo := &mockGeocoder{}
			sut, _ := newTestStore(geo)
			ctx := context.Background()
			sut.Save(ctx, domain.Location{Pincode: "111111"})

			loc, err := sut.DetectAndSave(ctx, tc.provider)
			assert.ErrorIs(t, err, tc.want)
			assert.Nil(t, loc)
			assert.Equal(t, 0, geo.calls)
			assert.Equal(t, "111111", sut.Load(ctx).Pincode, "failed detect must not touch the stored location")
		})
	}
}

func TestDetectAndSave_Timeout(t *testing.T) {
	sut, _ := newTestStore(nil, WithDetectTimeout(20*time.Millisecond))
	block := make(chan struct{})
	defer close(block)

	hanging := CoordinateFunc(func(context.Context) (domain.Coordinates, error) {
		<-block
		return domain.Coordinates{Lat: 1, Lng: 1}, nil
	})

	start := time.Now()
	_, err := sut.DetectAndSave(context.Background(), hanging)
	assert.ErrorIs(t, err, ErrGeolocationTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

// racingDetects starts a slow detect, then a fast one, and lets the slow one
// finish last.
func racingDetects(t *testing.T, sut *Store) {
	ctx := context.Background()
	release := make(chan struct{})
	started := make(chan struct{})

	slow := CoordinateFunc(func(context.Context) (domain.Coordinates, error) {
		close(started)
		<-release
		return domain.Coordinates{Lat: 10, Lng: 10}, nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := sut.DetectAndSave(ctx, slow)
		assert.NoError(t, err)
	}()
	<-started

	_, err := sut.DetectAndSave(ctx, Fixed(domain.Coordinates{Lat: 20, Lng: 20}))
	require.NoError(t, err)

	close(release)
	wg.Wait()
}

func TestDetectAndSave_LastWriteWins(t *testing.T) {
	sut, _ := newTestStore(nil)
	racingDetects(t, sut)

	c, ok := sut.Load(context.Background()).Coordinates()
	require.True(t, ok)
	assert.Equal(t, 10.0, c.Lat, "the automatic detect finished last and overwrote the manual one")
}

func TestDetectAndSave_DiscardStale(t *testing.T) {
	sut, _ := newTestStore(nil, WithDiscardStale())
	racingDetects(t, sut)

	c, ok := sut.Load(context.Background()).Coordinates()
	require.True(t, ok)
	assert.Equal(t, 20.0, c.Lat)
}

func TestDetectAndSave_DiscardStaleAfterManualSave(t *testing.T) {
	sut, _ := newTestStore(nil, WithDiscardStale())
	ctx := context.Background()
	release := make(chan struct{})
	started := make(chan struct{})

	slow := CoordinateFunc(func(context.Context) (domain.Coordinates, error) {
		close(started)
		<-release
		return domain.Coordinates{Lat: 10, Lng: 10}, nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		loc, err := sut.DetectAndSave(ctx, slow)
		assert.NoError(t, err)
		assert.NotNil(t, loc, "the caller still receives the detected location")
	}()
	<-started

	sut.Save(ctx, domain.Location{HouseNo: "7", Pincode: "423651"})
	close(release)
	<-done

	got := sut.Load(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "423651", got.Pincode)
	assert.Nil(t, got.Lat)
}
