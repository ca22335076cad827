package geospatial

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// dmsPattern matches a single degree/minute/second expression such as
// 51°1′59″N, -13:43:59, 13d43'59"E or 51° 1' 59" North.
var dmsPattern = regexp.MustCompile(`^([-+]?\d{1,3}(?:\.\d{1,10})?)[°ºd:]` +
	`(?:\s?(\d{1,2}(?:\.\d{1,10})?))?['′:]?` +
	`(?:\s?(\d{1,2}(?:\.\d{1,10})?))?(?:"|″|'')?` +
	`(?:\s?(N|S|W|E|North|South|West|East))?$`)

// FormatDMS formats c as "<lat>,<lng>", for example "51°1′59″N,13°43′59″E".
//
// Minutes and seconds are written only when both are non-zero, so 5°0′30″
// and 5°30′0″ both print as "5°".
func FormatDMS(c GeoCoordinate) string {
	return formatDMSPart(c.Latitude(), "N", "S") + "," + formatDMSPart(c.Longitude(), "E", "W")
}

func formatDMSPart(value float64, positive, negative string) string {
	abs := math.Abs(value)
	degrees := int(abs)
	minutesFrac := (abs - float64(degrees)) * 60
	minutes := int(minutesFrac)
	seconds := int((minutesFrac - float64(minutes)) * 60)

	var b strings.Builder
	b.WriteString(strconv.Itoa(degrees))
	b.WriteString("°")
	if minutes != 0 && seconds != 0 {
		b.WriteString(strconv.Itoa(minutes))
		b.WriteString("′")
		b.WriteString(strconv.Itoa(seconds))
		b.WriteString("″")
	}
	switch {
	case value > 0:
		b.WriteString(positive)
	case value < 0:
		b.WriteString(negative)
	}
	return b.String()
}

// ParseDMS converts a DMS expression to decimal degrees. The sign comes from
// the hemisphere suffix when present, otherwise from the degree value.
func ParseDMS(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse dms: empty input: %w", ErrParse)
	}
	m := dmsPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("parse dms: %q is not in DMS format: %w", s, ErrParse)
	}

	degrees, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("parse dms: degrees %q: %w", m[1], ErrParse)
	}

	sign := 1.0
	switch m[4] {
	case "W", "S", "West", "South":
		sign = -1
	case "":
		if strings.HasPrefix(m[1], "-") {
			sign = -1
		}
	}

	var minutes, seconds float64
	if m[2] != "" {
		if minutes, err = strconv.ParseFloat(m[2], 64); err != nil {
			return 0, fmt.Errorf("parse dms: minutes %q: %w", m[2], ErrParse)
		}
	}
	if m[3] != "" {
		if seconds, err = strconv.ParseFloat(m[3], 64); err != nil {
			return 0, fmt.Errorf("parse dms: seconds %q: %w", m[3], ErrParse)
		}
	}

	return sign * (math.Abs(degrees) + minutes/60 + seconds/3600), nil
}

// ParseDMSPair parses "<lat>,<lng>" as written by FormatDMS.
func ParseDMSPair(s string) (Coordinate, error) {
	latPart, lngPart, ok := strings.Cut(s, ",")
	if !ok {
		return Coordinate{}, fmt.Errorf("parse dms pair: %q has no comma: %w", s, ErrParse)
	}
	lat, err := ParseDMS(latPart)
	if err != nil {
		return Coordinate{}, err
	}
	lng, err := ParseDMS(lngPart)
	if err != nil {
		return Coordinate{}, err
	}
	return New(lat, lng)
}
