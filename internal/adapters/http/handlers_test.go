package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/geoindex/internal/adapters/http"
	"github.com/samirrijal/geoindex/internal/core/domain"
	"github.com/samirrijal/geoindex/internal/core/usecases"
)

// ---- Mock repository ----

type mockPlaceRepo struct {
	places []domain.Place
}

func (m *mockPlaceRepo) ListAll(ctx context.Context, fn func(p domain.Place) error) error {
	for _, p := range m.places {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockPlaceRepo) GetByID(ctx context.Context, id int64) (*domain.Place, error) {
	for _, p := range m.places {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockPlaceRepo) GetByIDs(ctx context.Context, ids []int64) ([]domain.Place, error) {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.Place
	for _, p := range m.places {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPlaceRepo) UpsertBatch(ctx context.Context, places []domain.Place) error { return nil }
func (m *mockPlaceRepo) Count(ctx context.Context) (int, error)                       { return len(m.places), nil }

// ---- Test helpers ----

var bilbao = []domain.Place{
	{ID: 3128026, Name: "Bilbao", Kind: "PPLA2", CountryCode: "ES", Location: domain.GeoPoint{Lat: 43.26271, Lon: -2.92528}},
	{ID: 3105976, Name: "Barakaldo", Kind: "PPL", CountryCode: "ES", Location: domain.GeoPoint{Lat: 43.29564, Lon: -2.99729}},
	{ID: 3127461, Name: "Basauri", Kind: "PPL", CountryCode: "ES", Location: domain.GeoPoint{Lat: 43.23970, Lon: -2.88580}},
	{ID: 3104324, Name: "Zaragoza", Kind: "PPLA", CountryCode: "ES", Location: domain.GeoPoint{Lat: 41.65606, Lon: -0.87734}},
}

var grid = []domain.Place{
	{ID: 1, Name: "one", Location: domain.GeoPoint{Lat: 10, Lon: 10}},
	{ID: 2, Name: "two", Location: domain.GeoPoint{Lat: 20, Lon: 20}},
	{ID: 3, Name: "three", Location: domain.GeoPoint{Lat: 50, Lon: 50}},
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

// makeDeps builds services over places. The index is built unless
// places is nil.
func makeDeps(t *testing.T, places []domain.Place) *handler.Dependencies {
	t.Helper()
	repo := &mockPlaceRepo{places: places}
	svc := usecases.NewPlaceService(repo, nil, nil, usecases.PlaceOptions{})
	if places != nil {
		if _, err := svc.Rebuild(context.Background()); err != nil {
			t.Fatalf("rebuild: %v", err)
		}
	}
	return &handler.Dependencies{
		Places: svc,
		Geo:    usecases.NewGeoService(repo),
	}
}

func get(t *testing.T, app *fiber.App, target string) (int, []byte, map[string][]string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", target, nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, readBody(t, resp.Body), resp.Header
}

func post(t *testing.T, app *fiber.App, target string, body any) (int, []byte) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("POST", target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, readBody(t, resp.Body)
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func decode(t *testing.T, data []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
}

func expectError(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("expected %d, got %d: %s", wantStatus, status, body)
	}
	var apiErr handler.APIError
	decode(t, body, &apiErr)
	if apiErr.Code != wantCode {
		t.Errorf("expected %s error, got %s", wantCode, apiErr.Code)
	}
}

// ---- Place handler tests ----

func TestNearbyPlaces_Success(t *testing.T) {
	app := setupApp(makeDeps(t, bilbao))

	status, body, _ := get(t, app, "/v1/places/nearby?lat=43.2627&lon=-2.9253&radius=10000")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var places []domain.Place
	decode(t, body, &places)
	if len(places) != 3 {
		t.Fatalf("expected 3 places, got %d", len(places))
	}
	if places[0].Name != "Bilbao" {
		t.Errorf("expected Bilbao first, got %s", places[0].Name)
	}
	for i, p := range places {
		if p.DistanceKm == nil {
			t.Fatalf("place %d has no distance", p.ID)
		}
		if *p.DistanceKm > 10 {
			t.Errorf("place %d is %.2f km away, beyond the radius", p.ID, *p.DistanceKm)
		}
		if i > 0 && *places[i-1].DistanceKm > *p.DistanceKm {
			t.Errorf("places not ordered by distance at %d", i)
		}
	}
}

func TestNearbyPlaces_Limit(t *testing.T) {
	app := setupApp(makeDeps(t, bilbao))

	status, body, _ := get(t, app, "/v1/places/nearby?lat=43.2627&lon=-2.9253&radius=10000&limit=1")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var places []domain.Place
	decode(t, body, &places)
	if len(places) != 1 || places[0].ID != 3128026 {
		t.Errorf("expected only Bilbao, got %+v", places)
	}
}

func TestNearbyPlaces_ZeroCoordinatesAreValid(t *testing.T) {
	app := setupApp(makeDeps(t, []domain.Place{{ID: 7, Name: "Null Island", Location: domain.GeoPoint{}}}))

	status, body, _ := get(t, app, "/v1/places/nearby?lat=0&lon=0&radius=100")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var places []domain.Place
	decode(t, body, &places)
	if len(places) != 1 {
		t.Errorf("expected 1 place, got %d", len(places))
	}
}

func TestNearbyPlaces_MissingParams(t *testing.T) {
	app := setupApp(makeDeps(t, bilbao))

	status, body, _ := get(t, app, "/v1/places/nearby?lat=43.26")
	expectError(t, status, body, 400, "bad_request")
}

func TestNearbyPlaces_BadParams(t *testing.T) {
	app := setupApp(makeDeps(t, bilbao))

	for _, target := range []string{
		"/v1/places/nearby?lat=abc&lon=1",
		"/v1/places/nearby?lat=91&lon=1",
		"/v1/places/nearby?lat=43.26&lon=-2.93&radius=500000",
		"/v1/places/nearby?lat=43.26&lon=-2.93&radius=-1",
	} {
		status, body, _ := get(t, app, target)
		if status != 400 {
			t.Errorf("%s: expected 400, got %d: %s", target, status, body)
		}
	}
}

func TestNearbyPlaces_IndexNotReady(t *testing.T) {
	app := setupApp(makeDeps(t, nil))

	status, body, header := get(t, app, "/v1/places/nearby?lat=43.26&lon=-2.93")
	expectError(t, status, body, 503, "unavailable")
	if len(header["Retry-After"]) == 0 {
		t.Error("expected Retry-After header")
	}
}

func TestPlacesInBox_Success(t *testing.T) {
	app := setupApp(makeDeps(t, grid))

	status, body, header := get(t, app, "/v1/places/box?min_lat=5&min_lon=5&max_lat=25&max_lon=25")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var result struct {
		Data       []domain.Place     `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	decode(t, body, &result)
	if result.Pagination.Total != 2 {
		t.Errorf("expected total 2, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 || result.Data[0].ID != 1 || result.Data[1].ID != 2 {
		t.Errorf("expected places 1 and 2, got %+v", result.Data)
	}

	link := strings.Join(header["Link"], ",")
	if !strings.Contains(link, "min_lat=5") || !strings.Contains(link, `rel="first"`) {
		t.Errorf("link header should keep the box: %q", link)
	}
}

func TestPlacesInBox_Pagination(t *testing.T) {
	app := setupApp(makeDeps(t, grid))

	status, body, _ := get(t, app, "/v1/places/box?min_lat=0&min_lon=0&max_lat=60&max_lon=60&offset=1&limit=1")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var result struct {
		Data       []domain.Place     `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	decode(t, body, &result)
	if result.Pagination.Total != 3 || result.Pagination.Offset != 1 {
		t.Errorf("unexpected pagination %+v", result.Pagination)
	}
	if len(result.Data) != 1 || result.Data[0].ID != 2 {
		t.Errorf("expected place 2, got %+v", result.Data)
	}
}

func TestPlacesInBox_Inverted(t *testing.T) {
	app := setupApp(makeDeps(t, grid))

	status, body, _ := get(t, app, "/v1/places/box?min_lat=25&min_lon=25&max_lat=5&max_lon=5")
	expectError(t, status, body, 400, "bad_request")
}

func TestGetPlace(t *testing.T) {
	app := setupApp(makeDeps(t, bilbao))

	status, body, _ := get(t, app, "/v1/places/3128026")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var p domain.Place
	decode(t, body, &p)
	if p.Name != "Bilbao" {
		t.Errorf("expected Bilbao, got %s", p.Name)
	}

	status, body, _ = get(t, app, "/v1/places/42")
	expectError(t, status, body, 404, "not_found")

	status, body, _ = get(t, app, "/v1/places/bilbao")
	expectError(t, status, body, 400, "bad_request")
}

// ---- Index handler tests ----

func TestIndexStats(t *testing.T) {
	app := setupApp(makeDeps(t, bilbao))

	status, body, _ := get(t, app, "/v1/index/stats")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var stats domain.IndexStats
	decode(t, body, &stats)
	if stats.Points != len(bilbao) || stats.Precision != "full" {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestRebuildIndex(t *testing.T) {
	deps := makeDeps(t, nil)
	app := setupApp(deps)

	status, body := post(t, app, "/v1/index/rebuild", nil)
	if status != 202 {
		t.Fatalf("expected 202, got %d: %s", status, body)
	}
	if !deps.Places.Ready() {
		t.Error("index should be served after rebuild")
	}
}

// ---- Geo handler tests ----

func TestDistance(t *testing.T) {
	app := setupApp(makeDeps(t, nil))

	status, body, _ := get(t, app, "/v1/geo/distance?from_lat=0&from_lon=0&to_lat=0&to_lon=1")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var d usecases.Distance
	decode(t, body, &d)
	if math.Abs(d.Kilometers-111.195) > 0.01 {
		t.Errorf("expected ~111.195 km, got %f", d.Kilometers)
	}
	if math.Abs(d.ApproxKilometers-d.Kilometers) > 0.01 {
		t.Errorf("approximation off on the equator: %f vs %f", d.ApproxKilometers, d.Kilometers)
	}
}

func TestDestinationAndBoundingBox(t *testing.T) {
	app := setupApp(makeDeps(t, nil))

	status, body, _ := get(t, app, "/v1/geo/destination?lat=0&lon=0&distance_km=111.195&bearing=90")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var p domain.GeoPoint
	decode(t, body, &p)
	if math.Abs(p.Lon-1) > 0.001 || math.Abs(p.Lat) > 0.001 {
		t.Errorf("expected (0, 1), got %+v", p)
	}

	status, body, _ = get(t, app, "/v1/geo/destination?lat=0&lon=0&distance_km=-1&bearing=90")
	expectError(t, status, body, 400, "bad_request")

	status, body, _ = get(t, app, "/v1/geo/bbox?lat=43.26&lon=-2.93&distance_km=10")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var b domain.Bounds
	decode(t, body, &b)
	if !(b.MinLat < 43.26 && 43.26 < b.MaxLat && b.MinLon < -2.93 && -2.93 < b.MaxLon) {
		t.Errorf("box %+v does not contain its origin", b)
	}
}

func TestGeohash(t *testing.T) {
	app := setupApp(makeDeps(t, nil))

	status, body, _ := get(t, app, "/v1/geo/geohash?lat=42.605&lon=-5.603&length=5")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var enc struct {
		Hash string `json:"hash"`
	}
	decode(t, body, &enc)
	if enc.Hash != "ezs42" {
		t.Errorf("expected ezs42, got %s", enc.Hash)
	}

	status, body, _ = get(t, app, "/v1/geo/geohash/ezs42")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var cell usecases.GeohashCell
	decode(t, body, &cell)
	if math.Abs(cell.Center.Lat-42.605) > 0.03 || math.Abs(cell.Center.Lon+5.603) > 0.03 {
		t.Errorf("cell center %+v too far from the encoded point", cell.Center)
	}

	status, body, _ = get(t, app, "/v1/geo/geohash/ezs4a")
	expectError(t, status, body, 400, "bad_request")

	status, body, _ = get(t, app, "/v1/geo/geohash?lat=42.605&lon=-5.603&length=99")
	expectError(t, status, body, 400, "bad_request")
}

func TestDMS(t *testing.T) {
	app := setupApp(makeDeps(t, nil))

	status, body, _ := get(t, app, "/v1/geo/dms/parse?q="+url.QueryEscape("51°1′59″N,13°43′59″E"))
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var p domain.GeoPoint
	decode(t, body, &p)
	if math.Abs(p.Lat-51.03306) > 1e-4 || math.Abs(p.Lon-13.73306) > 1e-4 {
		t.Errorf("unexpected point %+v", p)
	}

	status, body, _ = get(t, app, "/v1/geo/dms/parse?q=nowhere")
	expectError(t, status, body, 400, "bad_request")

	status, body, _ = get(t, app, "/v1/geo/dms?lat=-33.5&lon=0")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var f struct {
		DMS string `json:"dms"`
	}
	decode(t, body, &f)
	if !strings.HasSuffix(f.DMS, "0°") || !strings.Contains(f.DMS, "S") {
		t.Errorf("unexpected DMS %q", f.DMS)
	}
}

func TestMidpointAndCenter(t *testing.T) {
	app := setupApp(makeDeps(t, nil))

	status, body := post(t, app, "/v1/geo/midpoint", map[string]any{
		"points": []domain.GeoPoint{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 180}},
	})
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var mid domain.GeoPoint
	decode(t, body, &mid)
	if mid != (domain.GeoPoint{}) {
		t.Errorf("cancelling points should give (0, 0), got %+v", mid)
	}

	status, body = post(t, app, "/v1/geo/center", map[string]any{
		"points": []domain.GeoPoint{{Lat: 10, Lon: 10}},
	})
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var center domain.GeoPoint
	decode(t, body, &center)
	if center != (domain.GeoPoint{Lat: 10, Lon: 10}) {
		t.Errorf("single point center should be the point, got %+v", center)
	}

	status, body = post(t, app, "/v1/geo/midpoint", map[string]any{"points": []domain.GeoPoint{}})
	expectError(t, status, body, 400, "bad_request")
}

func TestSpread(t *testing.T) {
	app := setupApp(makeDeps(t, grid))

	status, body := post(t, app, "/v1/geo/spread", map[string]any{"ids": []int64{1, 2}})
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var res struct {
		KM float64 `json:"km"`
	}
	decode(t, body, &res)
	if res.KM < 1500 || res.KM > 1600 {
		t.Errorf("expected ~1545 km between (10,10) and (20,20), got %f", res.KM)
	}
}

// ---- Middleware & system tests ----

func TestDeprecatedAlias(t *testing.T) {
	app := setupApp(makeDeps(t, nil))

	status, _, header := get(t, app, "/v1/geohash/ezs42")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if got := strings.Join(header["Deprecation"], ""); got != "true" {
		t.Errorf("expected Deprecation header, got %q", got)
	}
	if !strings.Contains(strings.Join(header["Link"], ""), "/v1/geo/geohash/:hash") {
		t.Errorf("expected successor link, got %q", header["Link"])
	}

	_, _, header = get(t, app, "/v1/geo/geohash/ezs42")
	if len(header["Deprecation"]) != 0 {
		t.Error("current endpoint must not be marked deprecated")
	}
}

func TestETagNotModified(t *testing.T) {
	app := setupApp(makeDeps(t, nil))

	_, _, header := get(t, app, "/v1/geo/geohash/ezs42")
	etag := strings.Join(header["Etag"], "")
	if etag == "" {
		t.Fatal("expected ETag header")
	}

	req := httptest.NewRequest("GET", "/v1/geo/geohash/ezs42", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

func TestHealthAndReady(t *testing.T) {
	app := setupApp(makeDeps(t, bilbao))

	status, _, _ := get(t, app, "/v1/health")
	if status != 200 {
		t.Errorf("expected 200, got %d", status)
	}

	// no database configured
	status, body, _ := get(t, app, "/v1/ready")
	if status != 503 {
		t.Fatalf("expected 503, got %d", status)
	}
	var ready struct {
		Checks map[string]string `json:"checks"`
	}
	decode(t, body, &ready)
	if ready.Checks["index"] != "ok" || ready.Checks["database"] != "not configured" {
		t.Errorf("unexpected checks %+v", ready.Checks)
	}
}

func TestGraphQL_PlacesNearby(t *testing.T) {
	app := setupApp(makeDeps(t, bilbao))

	status, body := post(t, app, "/graphql", map[string]any{
		"query": `{ placesNearby(lat: 43.2627, lon: -2.9253, radius: 10000, limit: 2) { id name distance_km location { lat lon } } }`,
	})
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var result struct {
		Data struct {
			PlacesNearby []struct {
				ID         string  `json:"id"`
				Name       string  `json:"name"`
				DistanceKm float64 `json:"distance_km"`
			} `json:"placesNearby"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	decode(t, body, &result)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Data.PlacesNearby) != 2 || result.Data.PlacesNearby[0].ID != "3128026" {
		t.Errorf("unexpected places %+v", result.Data.PlacesNearby)
	}
}

func TestGraphQL_Geohash(t *testing.T) {
	app := setupApp(makeDeps(t, nil))

	status, body := post(t, app, "/graphql", map[string]any{
		"query": `{ geohash(lat: 42.605, lon: -5.603, length: 5) decodeGeohash(hash: "ezs42") { hash bounds { min_lat max_lat } } }`,
	})
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var result struct {
		Data struct {
			Geohash       string `json:"geohash"`
			DecodeGeohash struct {
				Hash   string        `json:"hash"`
				Bounds domain.Bounds `json:"bounds"`
			} `json:"decodeGeohash"`
		} `json:"data"`
	}
	decode(t, body, &result)
	if result.Data.Geohash != "ezs42" || result.Data.DecodeGeohash.Hash != "ezs42" {
		t.Errorf("unexpected result %+v", result.Data)
	}
	if b := result.Data.DecodeGeohash.Bounds; !(b.MinLat <= 42.605 && 42.605 <= b.MaxLat) {
		t.Errorf("bounds %+v do not contain the point", b)
	}
}
