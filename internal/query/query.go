// Package query orchestrates multi-model priority dispatch: it owns an
// ordered list of loaded models, a per-model value-name remap, a
// per-model CRS transformer, and the squash parameters, and answers point
// queries by trying each model in order until one contains the point.
package query

import (
	"time"

	"github.com/equinor/geomodelgrids-query/internal/geomodel"
	"github.com/equinor/geomodelgrids-query/internal/model"
	"github.com/equinor/geomodelgrids-query/internal/telemetry"
)

// state is Query's lifecycle: Unborn -> Initialized -> Finalized, with
// Initialized -> Initialized permitted via reinitialize.
type state int

const (
	stateUnborn state = iota
	stateInitialized
	stateFinalized
)

// TransformerFactory builds a model.Transformer for a given (input CRS,
// model CRS) pair. Production code passes crs.NewTransformer; tests pass
// a factory producing an identity or affine stand-in so no PROJ linkage
// is needed.
type TransformerFactory func(srcCRS, modelCRS string) (model.Transformer, error)

type perModel struct {
	name        string
	model       *model.Model
	transformer model.Transformer
	remap       []int
}

// Query is the multi-model dispatch engine described by this package's
// state machine. The zero value is in the Unborn state.
type Query struct {
	state state

	loader             model.Loader
	transformerFactory TransformerFactory

	models         []perModel
	requestedNames []string

	squash        bool
	squashMinElev float64

	cache   *resultCache
	log     *telemetry.Logger
	metrics *telemetry.Metrics
}

// Option configures a Query at construction time.
type Option func(*Query)

// WithCache enables result memoization with the given capacity (in
// entries' worth of cost); a capacity of zero leaves caching disabled.
func WithCache(maxCost int64) Option {
	return func(q *Query) {
		c, err := newResultCache(maxCost)
		if err == nil {
			q.cache = c
		}
	}
}

// WithLogger attaches a structured logger for dispatch diagnostics.
func WithLogger(l *telemetry.Logger) Option {
	return func(q *Query) { q.log = l }
}

// WithMetrics attaches Prometheus collectors for dispatch and cache
// counters and query latency. Without this option, Query's metrics calls
// are no-ops (Metrics' methods are nil-safe).
func WithMetrics(m *telemetry.Metrics) Option {
	return func(q *Query) { q.metrics = m }
}

// New constructs an empty, Unborn Query backed by loader for opening
// model files and factory for building per-model CRS transformers.
func New(loader model.Loader, factory TransformerFactory, opts ...Option) *Query {
	q := &Query{loader: loader, transformerFactory: factory, log: telemetry.NewNopLogger()}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Initialize loads every model, builds its value-name remap and CRS
// transformer, and moves Query into the Initialized state. Reinitializing
// an already-Initialized Query discards and replaces all prior state.
// Any failure leaves Query Unborn-equivalent (Initialized must be called
// again before further use).
func (q *Query) Initialize(modelFilenames []string, valueNames []string, inputCRS string) error {
	// Discard prior state up front: a failed reinitialize must not leave
	// the previous model set answering queries.
	q.models = nil
	q.requestedNames = nil
	q.state = stateUnborn
	q.cache.clear()

	loaded := make([]perModel, 0, len(modelFilenames))

	for _, filename := range modelFilenames {
		m, err := q.loader.Load(filename)
		if err != nil {
			return modelLoadError(filename, err)
		}

		remap, err := model.BuildRemap(m.ValueNames, valueNames)
		if err != nil {
			if ie, ok := err.(*model.InvalidNameError); ok {
				return invalidName(ie.Name)
			}
			return invalidName("")
		}

		transformer, err := q.transformerFactory(inputCRS, m.CRS)
		if err != nil {
			return crsError(err.Error())
		}

		loaded = append(loaded, perModel{name: filename, model: m, transformer: transformer, remap: remap})
	}

	q.models = loaded
	q.requestedNames = append([]string(nil), valueNames...)
	q.state = stateInitialized
	q.log.Debugf("initialized with %d models, %d value names", len(loaded), len(valueNames))
	return nil
}

// SetSquashMinElev sets the squash cutoff elevation and enables squashing
// as a side effect, matching the C-handle API's documented behavior.
func (q *Query) SetSquashMinElev(v float64) {
	q.squashMinElev = v
	q.squash = true
}

// SetSquashing toggles squashing independently of the cutoff value.
func (q *Query) SetSquashing(enabled bool) {
	q.squash = enabled
}

// localPoint transforms (x, y, z) from the input CRS into pm's model CRS,
// then into that model's local frame, applying squash if enabled.
func (q *Query) localPoint(pm perModel, x, y, z float64) (float64, float64, float64, error) {
	xm, ym, zm, err := pm.transformer.Transform(x, y, z)
	if err != nil {
		return 0, 0, 0, crsError(err.Error())
	}
	xl, yl := pm.model.ToLocal(xm, ym)
	zl := zm
	if q.squash {
		g := pm.model.Elevation(xl, yl)
		if g != geomodel.NODATA_VALUE {
			zl = model.Squash(zl, g, q.squashMinElev)
		}
	}
	return xl, yl, zl, nil
}

// QueryElevation returns the ground-surface elevation at (x, y), in the
// input CRS, from the first model (in priority order) whose footprint
// contains the point. Returns geomodel.NODATA_VALUE if no model does.
func (q *Query) QueryElevation(x, y float64) (float64, error) {
	if q.state != stateInitialized {
		return geomodel.NODATA_VALUE, stateError("query_elevation called before initialize or after finalize")
	}

	for _, pm := range q.models {
		xl, yl, _, err := q.localPoint(pm, x, y, 0)
		if err != nil {
			return geomodel.NODATA_VALUE, err
		}
		e := pm.model.Elevation(xl, yl)
		if e != geomodel.NODATA_VALUE {
			return e, nil
		}
	}
	return geomodel.NODATA_VALUE, nil
}

// Query writes interpolated values for (x, y, z), in the input CRS, into
// out (which must have length len(requested value names)), trying models
// in priority order. Returns true on success; on failure out is filled
// with geomodel.NODATA_VALUE and false is returned — this is a valid
// out-of-domain result, not an error.
func (q *Query) Query(out []float64, x, y, z float64) (bool, error) {
	start := time.Now()
	defer func() { q.metrics.ObserveDuration(time.Since(start)) }()

	if q.state != stateInitialized {
		for i := range out {
			out[i] = geomodel.NODATA_VALUE
		}
		return false, stateError("query called before initialize or after finalize")
	}

	key := cacheKey(x, y, z, q.squash, q.squashMinElev)
	if cached, hit, ok := q.cache.get(key); ok {
		q.metrics.IncCacheHit()
		copy(out, cached)
		return hit, nil
	}

	for _, pm := range q.models {
		xl, yl, zl, err := q.localPoint(pm, x, y, z)
		if err != nil {
			return false, err
		}
		if pm.model.Query(xl, yl, zl, pm.remap, out) {
			q.cache.set(key, out, true)
			q.metrics.IncDispatch(pm.name, "hit")
			q.log.Debugf("point (%g, %g, %g) answered by model %s", x, y, z, pm.name)
			return true, nil
		}
	}

	q.log.Debugf("point (%g, %g, %g) outside every model", x, y, z)

	for i := range out {
		out[i] = geomodel.NODATA_VALUE
	}
	q.cache.set(key, out, false)
	q.metrics.IncDispatch("", "miss")
	return false, nil
}

// Finalize releases all models and moves Query to the Finalized state.
// Calling Finalize more than once is a no-op.
func (q *Query) Finalize() {
	q.models = nil
	q.requestedNames = nil
	q.state = stateFinalized
}
