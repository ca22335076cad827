package pointindex

import (
	"cmp"
	"runtime"
	"slices"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/geoindex/internal/pkg/geospatial"
)

// DefaultParallelThreshold is the axis length above which Sort splits the
// work across goroutines.
const DefaultParallelThreshold = 1 << 16

// MaxPoints is the capacity of one index. Axis projections address the arena
// with uint32 positions.
const MaxPoints uint64 = 1 << 32

func hasRoom(points uint64) bool { return points < MaxPoints }

// Searcher answers identifier level queries. Both index precisions satisfy it.
type Searcher interface {
	IDsInBox(lat1, lng1, lat2, lng2 float64) []int64
	IDsClosestTo(lat, lng, distanceMeters float64) []int64
	// CoordinatesInBox and CoordinatesClosestTo return hits widened to
	// full precision.
	CoordinatesInBox(lat1, lng1, lat2, lng2 float64) []IdentifiedCoordinate
	CoordinatesClosestTo(lat, lng, distanceMeters float64) []IdentifiedCoordinate
	Len() int
	Sorted() bool
}

// Builder is a Searcher that can be loaded and sorted.
type Builder interface {
	Searcher
	Put(lat, lng float64, id int64)
	Sort()
}

// axis is one sorted projection: keys[i] is the coordinate of arena[refs[i]]
// on that axis. Both slices always have the same length.
type axis[T Float] struct {
	keys []T
	refs []uint32
}

// search returns the half-open range of positions whose key lies in [lo, hi].
func (a axis[T]) search(lo, hi float64) (int, int) {
	start := sort.Search(len(a.keys), func(i int) bool { return float64(a.keys[i]) >= lo })
	end := sort.Search(len(a.keys), func(i int) bool { return float64(a.keys[i]) > hi })
	if end < start {
		end = start
	}
	return start, end
}

// Index is a two-axis point index holding at most MaxPoints points. The zero
// value is not usable; use New.
type Index[T Float] struct {
	arena []Entry[T]

	// arena prefix visible to queries, set by Sort
	built []Entry[T]
	lat   axis[T]
	lng   axis[T]

	parallelThreshold int
}

type Option func(*options)

type options struct {
	parallelThreshold int
}

// WithParallelThreshold sets the axis length above which Sort runs in
// parallel. Values below 1 disable parallel sorting.
func WithParallelThreshold(n int) Option {
	return func(o *options) { o.parallelThreshold = n }
}

// New returns an empty index storing coordinates as T.
func New[T Float](opts ...Option) *Index[T] {
	o := options{parallelThreshold: DefaultParallelThreshold}
	for _, opt := range opts {
		opt(&o)
	}
	return &Index[T]{parallelThreshold: o.parallelThreshold}
}

// NewFull returns an index storing float64 coordinates.
func NewFull(opts ...Option) *Index[float64] { return New[float64](opts...) }

// NewReduced returns an index storing float32 coordinates, halving the memory
// of a full index at roughly metre resolution.
func NewReduced(opts ...Option) *Index[float32] { return New[float32](opts...) }

// Put adds a point. Out of range values are clamped (latitude) or wrapped
// (longitude). The point is not visible to queries until the next Sort.
// Put panics when the index already holds MaxPoints points.
func (ix *Index[T]) Put(lat, lng float64, id int64) {
	if !hasRoom(uint64(len(ix.arena))) {
		panic("pointindex: index is full")
	}
	ix.arena = append(ix.arena, Entry[T]{
		ID:  id,
		Lat: T(geospatial.NormalizeLatitude(lat)),
		Lng: T(geospatial.NormalizeLongitude(lng)),
	})
}

// Sort rebuilds both axis projections from every point added so far. It must
// not run concurrently with Put or with queries.
func (ix *Index[T]) Sort() {
	arena := ix.arena[:len(ix.arena):len(ix.arena)]

	var lat, lng axis[T]
	var g errgroup.Group
	g.Go(func() error {
		lat = buildAxis(arena, func(e Entry[T]) T { return e.Lat }, ix.parallelThreshold)
		return nil
	})
	g.Go(func() error {
		lng = buildAxis(arena, func(e Entry[T]) T { return e.Lng }, ix.parallelThreshold)
		return nil
	})
	_ = g.Wait()

	ix.built, ix.lat, ix.lng = arena, lat, lng
}

// Len returns the number of points added.
func (ix *Index[T]) Len() int { return len(ix.arena) }

// Sorted reports whether every added point is visible to queries.
func (ix *Index[T]) Sorted() bool { return len(ix.built) == len(ix.arena) }

// FindInBox returns every point with lat1 <= lat <= lat2 and
// lng1 <= lng <= lng2, in ascending longitude order. Boxes are not wrapped
// across the antimeridian, so an inverted range matches nothing.
func (ix *Index[T]) FindInBox(lat1, lng1, lat2, lng2 float64) []Entry[T] {
	if len(ix.built) == 0 {
		return nil
	}

	latStart, latEnd := ix.lat.search(lat1, lat2)
	if latStart == latEnd {
		return nil
	}
	lngStart, lngEnd := ix.lng.search(lng1, lng2)
	if lngStart == lngEnd {
		return nil
	}

	strip := make(map[uint32]struct{}, latEnd-latStart)
	for _, ref := range ix.lat.refs[latStart:latEnd] {
		strip[ref] = struct{}{}
	}

	var out []Entry[T]
	for _, ref := range ix.lng.refs[lngStart:lngEnd] {
		if _, ok := strip[ref]; ok {
			out = append(out, ix.built[ref])
		}
	}
	return out
}

// ClosestTo returns the points inside the bounding box of distanceMeters
// around (lat, lng), nearest first by approximate distance. Points in the box
// corners may lie further away than distanceMeters. A negative distance
// matches nothing.
func (ix *Index[T]) ClosestTo(lat, lng, distanceMeters float64) []Entry[T] {
	center := geospatial.Normalized(lat, lng)
	box, err := center.BoundingBox(distanceMeters / 1000)
	if err != nil {
		return nil
	}

	hits := ix.FindInBox(box.South, box.West, box.North, box.East)
	if len(hits) < 2 {
		return hits
	}

	type ranked struct {
		entry Entry[T]
		d     float64
	}
	rs := make([]ranked, len(hits))
	for i, e := range hits {
		rs[i] = ranked{
			entry: e,
			d:     geospatial.ApproximateDistance(center.Latitude(), center.Longitude(), float64(e.Lat), float64(e.Lng)),
		}
	}
	slices.SortFunc(rs, func(a, b ranked) int {
		if c := cmp.Compare(a.d, b.d); c != 0 {
			return c
		}
		return cmp.Compare(a.entry.ID, b.entry.ID)
	})
	for i := range rs {
		hits[i] = rs[i].entry
	}
	return hits
}

// IDsInBox is FindInBox reduced to identifiers.
func (ix *Index[T]) IDsInBox(lat1, lng1, lat2, lng2 float64) []int64 {
	return ids(ix.FindInBox(lat1, lng1, lat2, lng2))
}

// IDsClosestTo is ClosestTo reduced to identifiers, nearest first.
func (ix *Index[T]) IDsClosestTo(lat, lng, distanceMeters float64) []int64 {
	return ids(ix.ClosestTo(lat, lng, distanceMeters))
}

func (ix *Index[T]) CoordinatesInBox(lat1, lng1, lat2, lng2 float64) []IdentifiedCoordinate {
	return widen(ix.FindInBox(lat1, lng1, lat2, lng2))
}

func (ix *Index[T]) CoordinatesClosestTo(lat, lng, distanceMeters float64) []IdentifiedCoordinate {
	return widen(ix.ClosestTo(lat, lng, distanceMeters))
}

func widen[T Float](entries []Entry[T]) []IdentifiedCoordinate {
	if len(entries) == 0 {
		return nil
	}
	out := make([]IdentifiedCoordinate, len(entries))
	for i, e := range entries {
		out[i] = IdentifiedCoordinate{ID: e.ID, Lat: float64(e.Lat), Lng: float64(e.Lng)}
	}
	return out
}

func ids[T Float](entries []Entry[T]) []int64 {
	if len(entries) == 0 {
		return nil
	}
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

// buildAxis sorts arena positions by key, ties by position, so parallel and
// sequential sorting produce the same projection.
func buildAxis[T Float](arena []Entry[T], key func(Entry[T]) T, threshold int) axis[T] {
	n := len(arena)
	refs := make([]uint32, n)
	for i := range refs {
		refs[i] = uint32(i)
	}

	less := func(a, b uint32) int {
		if c := cmp.Compare(key(arena[a]), key(arena[b])); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	}

	workers := runtime.GOMAXPROCS(0)
	if threshold < 1 || n <= threshold || workers < 2 {
		slices.SortFunc(refs, less)
	} else {
		refs = parallelSort(refs, less, workers)
	}

	keys := make([]T, n)
	for i, ref := range refs {
		keys[i] = key(arena[ref])
	}
	return axis[T]{keys: keys, refs: refs}
}

// parallelSort sorts chunks of refs concurrently, then merges neighbouring
// runs pairwise until one run is left. The result may live in a new buffer.
func parallelSort(refs []uint32, less func(a, b uint32) int, workers int) []uint32 {
	n := len(refs)
	size := (n + workers - 1) / workers

	bounds := make([]int, 0, workers+1)
	for lo := 0; lo < n; lo += size {
		bounds = append(bounds, lo)
	}
	bounds = append(bounds, n)

	var g errgroup.Group
	for i := 0; i+1 < len(bounds); i++ {
		chunk := refs[bounds[i]:bounds[i+1]]
		g.Go(func() error {
			slices.SortFunc(chunk, less)
			return nil
		})
	}
	_ = g.Wait()

	src, dst := refs, make([]uint32, n)
	for len(bounds) > 2 {
		next := []int{0}
		var mg errgroup.Group
		for i := 0; i+1 < len(bounds); i += 2 {
			lo := bounds[i]
			if i+2 >= len(bounds) {
				// odd run out
				hi := bounds[i+1]
				copy(dst[lo:hi], src[lo:hi])
				next = append(next, hi)
				continue
			}
			mid, hi := bounds[i+1], bounds[i+2]
			mg.Go(func() error {
				merge(dst[lo:hi], src[lo:mid], src[mid:hi], less)
				return nil
			})
			next = append(next, hi)
		}
		_ = mg.Wait()
		src, dst = dst, src
		bounds = next
	}
	return src
}

func merge(dst, a, b []uint32, less func(x, y uint32) int) {
	i, j, k := 0, 0, 0
	for i < len(a) && j < len(b) {
		if less(b[j], a[i]) < 0 {
			dst[k] = b[j]
			j++
		} else {
			dst[k] = a[i]
			i++
		}
		k++
	}
	k += copy(dst[k:], a[i:])
	copy(dst[k:], b[j:])
}
