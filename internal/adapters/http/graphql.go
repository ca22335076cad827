package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/geoindex/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lon": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
		},
	})

	placeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Place",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"name":         &graphql.Field{Type: graphql.String},
			"kind":         &graphql.Field{Type: graphql.String},
			"country_code": &graphql.Field{Type: graphql.String},
			"location":     &graphql.Field{Type: geoPointType},
			"population":   &graphql.Field{Type: graphql.Float},
			"geohash":      &graphql.Field{Type: graphql.String},
			"distance_km":  &graphql.Field{Type: graphql.Float},
		},
	})

	placePageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PlacePage",
		Fields: graphql.Fields{
			"total":  &graphql.Field{Type: graphql.Int},
			"places": &graphql.Field{Type: graphql.NewList(placeType)},
		},
	})

	geohashCellType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeohashCell",
		Fields: graphql.Fields{
			"hash":   &graphql.Field{Type: graphql.String},
			"center": &graphql.Field{Type: geoPointType},
			"bounds": &graphql.Field{Type: boundsType},
		},
	})

	indexStatsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "IndexStats",
		Fields: graphql.Fields{
			"points":      &graphql.Field{Type: graphql.Int},
			"precision":   &graphql.Field{Type: graphql.String},
			"built_at":    &graphql.Field{Type: graphql.String},
			"duration_ms": &graphql.Field{Type: graphql.Float},
			"rejected":    &graphql.Field{Type: graphql.Int},
		},
	})

	latLonArgs := func(extra graphql.FieldConfigArgument) graphql.FieldConfigArgument {
		args := graphql.FieldConfigArgument{
			"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
			"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		}
		for k, v := range extra {
			args[k] = v
		}
		return args
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"placesNearby": &graphql.Field{
				Type:        graphql.NewList(placeType),
				Description: "Places within a radius of a point, nearest first",
				Args: latLonArgs(graphql.FieldConfigArgument{
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 1000.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				}),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					places, err := deps.Places.Nearby(p.Context,
						p.Args["lat"].(float64), p.Args["lon"].(float64),
						p.Args["radius"].(float64), p.Args["limit"].(int))
					if err != nil {
						return nil, err
					}
					return placesToMaps(places), nil
				},
			},
			"placesInBox": &graphql.Field{
				Type:        placePageType,
				Description: "Places inside a bounding box, ordered by id",
				Args: graphql.FieldConfigArgument{
					"min_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"min_lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"max_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"max_lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"offset":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					b := domain.Bounds{
						MinLat: p.Args["min_lat"].(float64),
						MinLon: p.Args["min_lon"].(float64),
						MaxLat: p.Args["max_lat"].(float64),
						MaxLon: p.Args["max_lon"].(float64),
					}
					places, total, err := deps.Places.InBox(p.Context, b, p.Args["offset"].(int), p.Args["limit"].(int))
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{"total": total, "places": placesToMaps(places)}, nil
				},
			},
			"place": &graphql.Field{
				Type:        placeType,
				Description: "Get a place by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					place, err := deps.Places.GetByID(p.Context, int64(p.Args["id"].(int)))
					if err != nil {
						return nil, err
					}
					return placeToMap(*place), nil
				},
			},
			"indexStats": &graphql.Field{
				Type:        indexStatsType,
				Description: "The served index snapshot",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					s, err := deps.Places.Stats()
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"points":      s.Points,
						"precision":   s.Precision,
						"built_at":    s.BuiltAt.Format("2006-01-02T15:04:05Z07:00"),
						"duration_ms": float64(s.Duration.Microseconds()) / 1000,
						"rejected":    s.Rejected,
					}, nil
				},
			},
			"distance": &graphql.Field{
				Type:        graphql.Float,
				Description: "Great-circle distance in kilometers",
				Args: graphql.FieldConfigArgument{
					"from_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"from_lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"to_lat":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"to_lon":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					d, err := deps.Geo.Distance(
						domain.GeoPoint{Lat: p.Args["from_lat"].(float64), Lon: p.Args["from_lon"].(float64)},
						domain.GeoPoint{Lat: p.Args["to_lat"].(float64), Lon: p.Args["to_lon"].(float64)},
					)
					if err != nil {
						return nil, err
					}
					return d.Kilometers, nil
				},
			},
			"geohash": &graphql.Field{
				Type:        graphql.String,
				Description: "Geohash of a point",
				Args: latLonArgs(graphql.FieldConfigArgument{
					"length": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				}),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					return deps.Geo.Encode(pt, p.Args["length"].(int))
				},
			},
			"decodeGeohash": &graphql.Field{
				Type:        geohashCellType,
				Description: "Center and bounds of a geohash cell",
				Args: graphql.FieldConfigArgument{
					"hash": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					cell, err := deps.Geo.Decode(p.Args["hash"].(string))
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"hash":   cell.Hash,
						"center": pointToMap(cell.Center),
						"bounds": map[string]interface{}{
							"min_lat": cell.Bounds.MinLat,
							"min_lon": cell.Bounds.MinLon,
							"max_lat": cell.Bounds.MaxLat,
							"max_lon": cell.Bounds.MaxLon,
						},
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}

// Places are resolved from maps so ids survive as strings (int64 exceeds
// the GraphQL Int range) and the optional distance stays null when unset.
func placeToMap(p domain.Place) map[string]interface{} {
	m := map[string]interface{}{
		"id":           p.ID,
		"name":         p.Name,
		"kind":         p.Kind,
		"country_code": p.CountryCode,
		"location":     pointToMap(p.Location),
		"population":   float64(p.Population),
		"geohash":      p.Geohash,
	}
	if p.DistanceKm != nil {
		m["distance_km"] = *p.DistanceKm
	}
	return m
}

func placesToMaps(places []domain.Place) []map[string]interface{} {
	out := make([]map[string]interface{}, len(places))
	for i, p := range places {
		out[i] = placeToMap(p)
	}
	return out
}

func pointToMap(p domain.GeoPoint) map[string]interface{} {
	return map[string]interface{}{"lat": p.Lat, "lon": p.Lon}
}
