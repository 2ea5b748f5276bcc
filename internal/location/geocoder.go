package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bharatmart/inquiry-service/internal/domain"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var ErrReverseGeocode = errors.New("reverse geocoding failed")

// Locality is the part of an address a reverse lookup can recover.
type Locality struct {
	Pincode string
	City    string
	State   string
}

type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, c domain.Coordinates) (Locality, error)
}

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	// public Nominatim allows one request per second per client
	DefaultGeocoderInterval = time.Second
)

// NominatimGeocoder looks coordinates up against an OpenStreetMap Nominatim
// instance. Repeated failures open a circuit breaker so a dead upstream does
// not hold every detect call for the full timeout.
type NominatimGeocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[Locality]
	limiter   *rate.Limiter
	sfg       singleflight.Group // Collapses identical concurrent lookups
}

type GeocoderOption func(*NominatimGeocoder)

// WithMinInterval spaces upstream requests at least d apart. Zero or less
// removes the limit.
func WithMinInterval(d time.Duration) GeocoderOption {
	return func(g *NominatimGeocoder) {
		if d <= 0 {
			g.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		g.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

func NewNominatimGeocoder(baseURL, userAgent string, client *http.Client, opts ...GeocoderOption) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	breaker := gobreaker.NewCircuitBreaker[Locality](gobreaker.Settings{
		Name:        "nominatim",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	g := &NominatimGeocoder{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    client,
		breaker:   breaker,
		limiter:   rate.NewLimiter(rate.Every(DefaultGeocoderInterval), 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type nominatimResponse struct {
	Address struct {
		Postcode string `json:"postcode"`
		City     string `json:"city"`
		Town     string `json:"town"`
		Village  string `json:"village"`
		Suburb   string `json:"suburb"`
		State    string `json:"state"`
	} `json:"address"`
}

func (g *NominatimGeocoder) ReverseGeocode(ctx context.Context, c domain.Coordinates) (Locality, error) {
	key := strconv.FormatFloat(c.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lng, 'f', 6, 64)
	v, err, _ := g.sfg.Do(key, func() (interface{}, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return Locality{}, fmt.Errorf("rate limit wait: %w", err)
		}
		return g.breaker.Execute(func() (Locality, error) {
			return g.lookup(ctx, c)
		})
	})
	if err != nil {
		return Locality{}, fmt.Errorf("%w: %v", ErrReverseGeocode, err)
	}
	return v.(Locality), nil
}

func (g *NominatimGeocoder) lookup(ctx context.Context, c domain.Coordinates) (Locality, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.Lng, 'f', -1, 64))
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return Locality{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Locality{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Locality{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Locality{}, fmt.Errorf("decode response: %w", err)
	}

	a := body.Address
	return Locality{
		Pincode: a.Postcode,
		City:    firstNonEmpty(a.City, a.Town, a.Village, a.Suburb),
		State:   a.State,
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
