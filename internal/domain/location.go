package domain

import (
	"math"
	"time"
)

type LocationSource string

const (
	SourceManual LocationSource = "manual"
	SourceGPS    LocationSource = "gps"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is the buyer's delivery address snapshot. Every field is optional;
// UpdatedAt is epoch milliseconds.
type Location struct {
	HouseNo              string `json:"houseNo,omitempty"`
	FloorNo              string `json:"floorNo,omitempty"`
	BlockNo              string `json:"blockNo,omitempty"`
	BuildingName         string `json:"buildingName,omitempty"`
	Area                 string `json:"area,omitempty"`
	Landmark             string `json:"landmark,omitempty"`
	Country              string `json:"country,omitempty"`
	DeliveryInstructions string `json:"deliveryInstructions,omitempty"`
	IsDefaultAddress     bool   `json:"isDefaultAddress,omitempty"`

	Pincode string `json:"pincode,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`

	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`

	Source    LocationSource `json:"source,omitempty"`
	UpdatedAt int64          `json:"updatedAt,omitempty"`
}

// Coordinates returns the lat/lng pair when both halves are set and finite.
func (l *Location) Coordinates() (Coordinates, bool) {
	if l == nil || l.Lat == nil || l.Lng == nil {
		return Coordinates{}, false
	}
	lat, lng := *l.Lat, *l.Lng
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return Coordinates{}, false
	}
	return Coordinates{Lat: lat, Lng: lng}, true
}

func (l *Location) SetCoordinates(c Coordinates) {
	lat, lng := c.Lat, c.Lng
	l.Lat = &lat
	l.Lng = &lng
}

// Present reports whether the record carries enough to count as a set
// location: a pincode, a house number, an area or a valid coordinate pair.
func (l *Location) Present() bool {
	if l == nil {
		return false
	}
	if l.Pincode != "" || l.HouseNo != "" || l.Area != "" {
		return true
	}
	_, ok := l.Coordinates()
	return ok
}

func (l *Location) Updated() time.Time {
	if l == nil || l.UpdatedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(l.UpdatedAt)
}
