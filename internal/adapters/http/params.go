package http

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// queryFloat parses an optional float parameter. Zero is a valid latitude,
// so a missing parameter is reported separately from its value.
func queryFloat(c *fiber.Ctx, name string) (float64, bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, true, fmt.Errorf("%s must be a number", name)
	}
	return v, true, nil
}

// requireFloats parses every named parameter, failing on the first one
// that is missing or malformed.
func requireFloats(c *fiber.Ctx, names ...string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		v, ok, err := queryFloat(c, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%s is required", name)
		}
		out[i] = v
	}
	return out, nil
}

// floatOr parses an optional float parameter with a default.
func floatOr(c *fiber.Ctx, name string, def float64) (float64, error) {
	v, ok, err := queryFloat(c, name)
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}
