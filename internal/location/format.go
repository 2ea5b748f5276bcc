package location

import (
	"strings"

	"github.com/bharatmart/inquiry-service/internal/domain"
)

const (
	LabelNotSet          = "Set location"
	LabelCurrentLocation = "Current location"
	// AbsentAddress stands in for the address block when no location is set.
	AbsentAddress = "—"
)

// Label summarises loc in a few words, most specific first.
func Label(loc *domain.Location) string {
	if loc == nil {
		return LabelNotSet
	}
	switch {
	case loc.Area != "" && loc.Pincode != "":
		return loc.Area + " " + loc.Pincode
	case loc.City != "" && loc.Pincode != "":
		return loc.City + " " + loc.Pincode
	case loc.Pincode != "":
		return loc.Pincode
	case loc.Area != "":
		return loc.Area
	case loc.City != "":
		return loc.City
	}
	if _, ok := loc.Coordinates(); ok {
		return LabelCurrentLocation
	}
	return LabelNotSet
}

// FormatFullAddress renders loc as up to three postal lines: house details,
// street details, then city/state/pincode/country. Missing fields and empty
// lines are left out.
func FormatFullAddress(loc *domain.Location) string {
	if loc == nil {
		return AbsentAddress
	}

	line1 := joinNonEmpty(", ",
		loc.HouseNo,
		prefixed("Floor ", loc.FloorNo),
		prefixed("Block ", loc.BlockNo),
		loc.BuildingName,
	)
	line2 := joinNonEmpty(", ",
		loc.Area,
		prefixed("Landmark: ", loc.Landmark),
	)
	pincode := ""
	if loc.Pincode != "" {
		pincode = "(" + loc.Pincode + ")"
	}
	line3 := joinNonEmpty(" ",
		joinNonEmpty(", ", loc.City, loc.State),
		pincode,
		loc.Country,
	)

	var lines []string
	for _, l := range []string{line1, line2, line3} {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}

func prefixed(prefix, v string) string {
	if v == "" {
		return ""
	}
	return prefix + v
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
