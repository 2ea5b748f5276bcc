// Package location keeps the buyer's single delivery location, either typed
// in by hand or detected from the device and reverse geocoded.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bharatmart/inquiry-service/internal/domain"
	"github.com/bharatmart/inquiry-service/internal/logger"
	"github.com/bharatmart/inquiry-service/internal/storage"
)

const DefaultDetectTimeout = 10 * time.Second

type Store struct {
	storage  storage.Store
	keys     storage.Keys
	geocoder ReverseGeocoder
	now      func() time.Time
	timeout  time.Duration

	discardStale bool
	generation   atomic.Uint64
	writeMu      sync.Mutex
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithDetectTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithDiscardStale makes DetectAndSave drop a result when a newer detect or
// a manual Save started after it. Without it the last call to finish wins.
func WithDiscardStale() Option {
	return func(s *Store) { s.discardStale = true }
}

// NewStore builds a location store. geocoder may be nil, in which case
// detected locations carry coordinates only.
func NewStore(st storage.Store, keys storage.Keys, geocoder ReverseGeocoder, opts ...Option) *Store {
	s := &Store{
		storage:  st,
		keys:     keys,
		geocoder: geocoder,
		now:      time.Now,
		timeout:  DefaultDetectTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save replaces the stored location wholesale. Storage failures are logged.
func (s *Store) Save(ctx context.Context, loc domain.Location) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.generation.Add(1)
	s.write(ctx, loc)
}

func (s *Store) write(ctx context.Context, loc domain.Location) {
	if loc.Source == "" {
		loc.Source = domain.SourceManual
	}
	if loc.UpdatedAt == 0 {
		loc.UpdatedAt = s.now().UnixMilli()
	}

	payload, err := json.Marshal(loc)
	if err != nil {
		logger.Printf(ctx, "location marshal error: %v", err)
		return
	}
	if err := s.storage.Set(ctx, s.keys.Location, payload); err != nil {
		logger.Printf(ctx, "location persist error: %v", err)
	}
}

// Load returns the stored location, or nil when none is set, the payload is
// not valid JSON, or the record carries nothing that locates the buyer.
func (s *Store) Load(ctx context.Context) *domain.Location {
	raw, err := s.storage.Get(ctx, s.keys.Location)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Printf(ctx, "location load error: %v", err)
		}
		return nil
	}

	var loc *domain.Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		logger.Printf(ctx, "location payload malformed: %v", err)
		return nil
	}
	if loc == nil {
		return nil
	}
	// coordinates only count as a pair
	if _, ok := loc.Coordinates(); !ok {
		loc.Lat, loc.Lng = nil, nil
	}
	if !loc.Present() {
		return nil
	}
	return loc
}

func (s *Store) Clear(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.generation.Add(1)
	if err := s.storage.Delete(ctx, s.keys.Location); err != nil {
		logger.Printf(ctx, "location clear error: %v", err)
	}
}

// WasAutoPrompted reports whether automatic detection was already offered
// once on this device.
func (s *Store) WasAutoPrompted(ctx context.Context) bool {
	raw, err := s.storage.Get(ctx, s.keys.AutoPrompted)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Printf(ctx, "auto-prompt flag load error: %v", err)
		}
		return false
	}
	return string(raw) == "1"
}

func (s *Store) MarkAutoPrompted(ctx context.Context) {
	if err := s.storage.Set(ctx, s.keys.AutoPrompted, []byte("1")); err != nil {
		logger.Printf(ctx, "auto-prompt flag persist error: %v", err)
	}
}

// DetectAndSave acquires coordinates from provider, reverse geocodes them on
// a best-effort basis and saves the result. It fails only when coordinates
// cannot be acquired within the detect timeout.
func (s *Store) DetectAndSave(ctx context.Context, provider CoordinateProvider) (*domain.Location, error) {
	gen := s.generation.Add(1)

	coords, err := s.acquire(ctx, provider)
	if err != nil {
		return nil, err
	}

	loc := domain.Location{
		Source:    domain.SourceGPS,
		UpdatedAt: s.now().UnixMilli(),
	}
	loc.SetCoordinates(coords)

	if s.geocoder != nil {
		geoCtx, cancel := context.WithTimeout(ctx, s.timeout)
		locality, errGeo := s.geocoder.ReverseGeocode(geoCtx, coords)
		cancel()
		if errGeo != nil {
			logger.Printf(ctx, "reverse geocode error, keeping coordinates only: %v", errGeo)
		} else {
			loc.Pincode = locality.Pincode
			loc.City = locality.City
			loc.State = locality.State
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.discardStale && gen != s.generation.Load() {
		logger.Printf(ctx, "discarding stale location detect result (generation %d)", gen)
		return &loc, nil
	}
	s.write(ctx, loc)
	return &loc, nil
}

func (s *Store) acquire(ctx context.Context, provider CoordinateProvider) (domain.Coordinates, error) {
	if provider == nil {
		return domain.Coordinates{}, ErrGeolocationUnsupported
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		coords domain.Coordinates
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := provider.Coordinates(ctx)
		ch <- result{c, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				return domain.Coordinates{}, ErrGeolocationTimeout
			}
			return domain.Coordinates{}, r.err
		}
		if !validCoordinates(r.coords) {
			return domain.Coordinates{}, ErrInvalidCoordinates
		}
		return r.coords, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.Coordinates{}, ErrGeolocationTimeout
		}
		return domain.Coordinates{}, fmt.Errorf("location detect cancelled: %w", ctx.Err())
	}
}
