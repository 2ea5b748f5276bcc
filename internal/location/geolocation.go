package location

import (
	"context"
	"errors"
	"math"

	"github.com/bharatmart/inquiry-service/internal/domain"
)

var (
	ErrGeolocationUnsupported = errors.New("geolocation is not supported on this device")
	ErrPermissionDenied       = errors.New("location permission was denied")
	ErrGeolocationTimeout     = errors.New("timed out waiting for device location")
	ErrInvalidCoordinates     = errors.New("device reported invalid coordinates")
)

// CoordinateProvider acquires the device's current position.
type CoordinateProvider interface {
	Coordinates(ctx context.Context) (domain.Coordinates, error)
}

type CoordinateFunc func(ctx context.Context) (domain.Coordinates, error)

func (f CoordinateFunc) Coordinates(ctx context.Context) (domain.Coordinates, error) {
	return f(ctx)
}

// Fixed reports a position that was already acquired elsewhere, e.g. by the
// browser before the request reached us.
func Fixed(c domain.Coordinates) CoordinateProvider {
	return CoordinateFunc(func(context.Context) (domain.Coordinates, error) {
		return c, nil
	})
}

// Failing reports a device-side failure such as a denied permission.
func Failing(err error) CoordinateProvider {
	return CoordinateFunc(func(context.Context) (domain.Coordinates, error) {
		return domain.Coordinates{}, err
	})
}

func validCoordinates(c domain.Coordinates) bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}
