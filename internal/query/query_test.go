package query_test

import (
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/equinor/geomodelgrids-query/internal/geomodel"
	"github.com/equinor/geomodelgrids-query/internal/model"
	"github.com/equinor/geomodelgrids-query/internal/query"
	"github.com/equinor/geomodelgrids-query/internal/storage"
	"github.com/equinor/geomodelgrids-query/internal/telemetry"
)

// identityTransformer passes coordinates through unchanged, the stand-in
// for a real CRS transformer whenever a test's fixtures are already
// expressed in the model's own CRS.
type identityTransformer struct{}

func (identityTransformer) Transform(x, y, z float64) (float64, float64, float64, error) {
	return x, y, z, nil
}

func identityFactory(string, string) (model.Transformer, error) {
	return identityTransformer{}, nil
}

func constBlock(zTop, zBottom, dx, dy, dz float64, nx, ny, nz int, values map[string]float64, names []string) *model.Block {
	nv := len(names)
	data := make([]float64, nx*ny*nz*nv)
	for i := 0; i < nx*ny*nz; i++ {
		for k, name := range names {
			data[i*nv+k] = values[name]
		}
	}
	return &model.Block{
		ZTop: zTop, ZBottom: zBottom, Dx: dx, Dy: dy, Dz: dz,
		Nx: nx, Ny: ny, Nz: nz, NumValues: nv, Values: data,
	}
}

func flatModel(crs string, valueNames []string, values map[string]float64) *model.Model {
	b := constBlock(0, -100, 100, 100, 10, 3, 3, 3, values, valueNames)
	return model.NewModel(crs, 0, 0, 0, 200, 200, -100, 0, valueNames, nil, []*model.Block{b})
}

// Requesting value names in an order different from storage order must
// permute the returned values accordingly.
func TestQueryValueNamePermutation(t *testing.T) {
	storageNames := []string{"one", "two"}
	m := flatModel("m1", storageNames, map[string]float64{"one": 10, "two": 20})
	loader := storage.NewMemoryLoader(map[string]*model.Model{"m1": m})

	q := query.New(loader, identityFactory)
	require.NoError(t, q.Initialize([]string{"m1"}, []string{"two", "one"}, "m1"))

	out := make([]float64, 2)
	ok, err := q.Query(out, 0, 0, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float64{20, 10}, out)
}

// Requesting a name absent from the model fails initialize.
func TestQueryInitializeInvalidName(t *testing.T) {
	m := flatModel("m1", []string{"one", "two"}, map[string]float64{"one": 1, "two": 2})
	loader := storage.NewMemoryLoader(map[string]*model.Model{"m1": m})

	q := query.New(loader, identityFactory)
	err := q.Initialize([]string{"m1"}, []string{"two", "blah"}, "m1")
	require.Error(t, err)

	qerr, ok := err.(*query.Error)
	require.True(t, ok)
	require.Equal(t, query.KindInvalidName, qerr.Kind)
}

// A point outside every model's domain is NODATA_VALUE in every output
// slot, with nonzero (false) status.
func TestQueryOutOfDomainSentinel(t *testing.T) {
	m := flatModel("m1", []string{"one"}, map[string]float64{"one": 1})
	loader := storage.NewMemoryLoader(map[string]*model.Model{"m1": m})

	q := query.New(loader, identityFactory)
	require.NoError(t, q.Initialize([]string{"m1"}, []string{"one"}, "m1"))

	out := make([]float64, 1)
	ok, err := q.Query(out, 99999, 99999, 0)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, []float64{geomodel.NODATA_VALUE}, out)
}

// Overlapping models resolve to the first in priority order.
func TestQueryPriorityDispatch(t *testing.T) {
	a := flatModel("a", []string{"one"}, map[string]float64{"one": 10})
	b := flatModel("b", []string{"one"}, map[string]float64{"one": 20})
	loader := storage.NewMemoryLoader(map[string]*model.Model{"a": a, "b": b})

	q := query.New(loader, identityFactory)
	require.NoError(t, q.Initialize([]string{"a", "b"}, []string{"one"}, "a"))

	out := make([]float64, 1)
	ok, err := q.Query(out, 0, 0, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float64{10.0}, out)
}

// Elevation round-trip for a flat-topography (no-topography) model is
// exactly 0.0 inside the footprint, NODATA_VALUE outside.
func TestQueryElevationRoundTrip(t *testing.T) {
	m := flatModel("m1", []string{"one"}, map[string]float64{"one": 1})
	loader := storage.NewMemoryLoader(map[string]*model.Model{"m1": m})

	q := query.New(loader, identityFactory)
	require.NoError(t, q.Initialize([]string{"m1"}, nil, "m1"))

	e, err := q.QueryElevation(50, 50)
	require.NoError(t, err)
	require.Equal(t, 0.0, e)

	e, err = q.QueryElevation(99999, 0)
	require.NoError(t, err)
	require.Equal(t, geomodel.NODATA_VALUE, e)
}

// QueryElevation over a sloped topography returns the bilinear surface
// value, which for a planar surface is the plane itself.
func TestQueryElevationSlopedTopography(t *testing.T) {
	// Corner elevations of the plane f(x, y) = 0.1*x + 0.05*y over a
	// 200x200 footprint, stored [ix][iy].
	topo := model.NewTopography(200, 200, 2, 2, []float64{0, 10, 20, 30})
	b := constBlock(30, -70, 100, 100, 10, 3, 3, 3, map[string]float64{"one": 7}, []string{"one"})
	m := model.NewModel("m1", 0, 0, 0, 200, 200, -70, 30, []string{"one"}, topo, []*model.Block{b})
	loader := storage.NewMemoryLoader(map[string]*model.Model{"m1": m})

	q := query.New(loader, identityFactory)
	require.NoError(t, q.Initialize([]string{"m1"}, nil, "m1"))

	e, err := q.QueryElevation(50, 50)
	require.NoError(t, err)
	want := 0.1*50 + 0.05*50
	require.InDelta(t, want, e, 1e-6*want)
}

// Reinitializing with the same arguments returns identical results to a
// single initialization.
func TestQueryReinitializeIsIdempotent(t *testing.T) {
	m := flatModel("m1", []string{"one"}, map[string]float64{"one": 42})
	loader := storage.NewMemoryLoader(map[string]*model.Model{"m1": m})

	q := query.New(loader, identityFactory)
	require.NoError(t, q.Initialize([]string{"m1"}, []string{"one"}, "m1"))

	out1 := make([]float64, 1)
	_, err := q.Query(out1, 10, 10, 0)
	require.NoError(t, err)

	require.NoError(t, q.Initialize([]string{"m1"}, []string{"one"}, "m1"))

	out2 := make([]float64, 1)
	_, err = q.Query(out2, 10, 10, 0)
	require.NoError(t, err)

	require.Equal(t, out1, out2)
}

// A failed reinitialize must not leave the previous model set answering
// queries: after the failure the engine is unusable until a successful
// Initialize.
func TestQueryFailedReinitializeLeavesUnusable(t *testing.T) {
	m := flatModel("m1", []string{"one"}, map[string]float64{"one": 1})
	loader := storage.NewMemoryLoader(map[string]*model.Model{"m1": m})

	q := query.New(loader, identityFactory)
	require.NoError(t, q.Initialize([]string{"m1"}, []string{"one"}, "m1"))

	err := q.Initialize([]string{"no-such-model"}, []string{"one"}, "m1")
	require.Error(t, err)

	out := make([]float64, 1)
	_, err = q.Query(out, 0, 0, 0)
	require.Error(t, err)
	qerr := err.(*query.Error)
	require.Equal(t, query.KindStateError, qerr.Kind)
}

// State machine: queries before initialize or after finalize fail with
// StateError, and never mutate out beyond filling NODATA_VALUE.
func TestQueryStateMachine(t *testing.T) {
	m := flatModel("m1", []string{"one"}, map[string]float64{"one": 1})
	loader := storage.NewMemoryLoader(map[string]*model.Model{"m1": m})

	q := query.New(loader, identityFactory)

	out := make([]float64, 1)
	_, err := q.Query(out, 0, 0, 0)
	require.Error(t, err)
	qerr := err.(*query.Error)
	require.Equal(t, query.KindStateError, qerr.Kind)
	require.Equal(t, []float64{geomodel.NODATA_VALUE}, out)

	require.NoError(t, q.Initialize([]string{"m1"}, []string{"one"}, "m1"))
	q.Finalize()

	_, err = q.Query(out, 0, 0, 0)
	require.Error(t, err)

	q.Finalize() // idempotent
}

// Squash monotonicity: with squashing enabled, a query at the surface
// equals an unsquashed query at z=0.
func TestQuerySquashMapsSurfaceToZero(t *testing.T) {
	grid := []float64{5, 5, 5, 5}
	topo := model.NewTopography(200, 200, 2, 2, grid)
	b := constBlock(5, -95, 100, 100, 10, 3, 3, 3, map[string]float64{"one": 7}, []string{"one"})
	m := model.NewModel("m1", 0, 0, 0, 200, 200, -95, 5, []string{"one"}, topo, []*model.Block{b})
	loader := storage.NewMemoryLoader(map[string]*model.Model{"m1": m})

	squashed := query.New(loader, identityFactory)
	require.NoError(t, squashed.Initialize([]string{"m1"}, []string{"one"}, "m1"))
	squashed.SetSquashMinElev(-4999)

	flat := query.New(loader, identityFactory)
	require.NoError(t, flat.Initialize([]string{"m1"}, []string{"one"}, "m1"))

	outSquashed := make([]float64, 1)
	ok, err := squashed.Query(outSquashed, 50, 50, 5) // exactly at the surface (g=5)
	require.NoError(t, err)
	require.True(t, ok)

	outFlat := make([]float64, 1)
	ok, err = flat.Query(outFlat, 50, 50, 0) // surface folded to z=0 with squashing off
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, outFlat, outSquashed)
}

// Metrics wiring: a successful dispatch increments query_dispatch_total
// labeled by the answering model's filename, a repeat query for the same
// point increments query_cache_hits_total instead of dispatching again,
// and a miss increments query_dispatch_total with an empty model label.
func TestQueryMetricsWiring(t *testing.T) {
	m := flatModel("m1", []string{"one"}, map[string]float64{"one": 10})
	loader := storage.NewMemoryLoader(map[string]*model.Model{"m1": m})

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	q := query.New(loader, identityFactory, query.WithCache(1<<20), query.WithMetrics(metrics))
	require.NoError(t, q.Initialize([]string{"m1"}, []string{"one"}, "m1"))

	out := make([]float64, 1)
	ok, err := q.Query(out, 50, 50, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.DispatchTotal.WithLabelValues("m1", "hit")))

	ok, err = q.Query(out, 50, 50, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheHitsTotal))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.DispatchTotal.WithLabelValues("m1", "hit")))

	ok, err = q.Query(out, 99999, 0, 0)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.DispatchTotal.WithLabelValues("", "miss")))

	var hist dto.Metric
	require.NoError(t, metrics.QueryDuration.Write(&hist))
	require.Equal(t, uint64(3), hist.GetHistogram().GetSampleCount())
}
