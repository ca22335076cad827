package telemetry

// Span names used for instrumentation.
const (
	SpanIndexRebuild = "index.rebuild"
	SpanIndexLoad    = "index.load"
	SpanIndexSort    = "index.sort"
	SpanNearby       = "places.nearby"
	SpanInBox        = "places.in_box"
	SpanIngestBatch  = "ingest.batch"
)

// Span attribute keys.
const (
	AttrPoints    = "geoindex.points"
	AttrPrecision = "geoindex.precision"
	AttrHits      = "geoindex.hits"
	AttrRadius    = "geoindex.radius_m"
	AttrCacheHit  = "geoindex.cache_hit"
)
