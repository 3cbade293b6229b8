// Package chandle implements the opaque-handle façade over Query:
// create, initialize, the two squash setters, queryElevation, query,
// finalize, destroy. It is deliberately thin; every semantic decision
// lives in internal/query, and this package only owns the handle table
// and the boundary that turns Go errors into integer status codes.
package chandle

import (
	"sync"

	"github.com/equinor/geomodelgrids-query/internal/crs"
	"github.com/equinor/geomodelgrids-query/internal/geomodel"
	"github.com/equinor/geomodelgrids-query/internal/model"
	"github.com/equinor/geomodelgrids-query/internal/query"
	"github.com/equinor/geomodelgrids-query/internal/storage"
	"github.com/equinor/geomodelgrids-query/internal/telemetry"
)

// Status codes for the C-handle boundary: 0 success, nonzero error.
const (
	StatusOK             = 0
	StatusOutOfDomain    = 1
	StatusInvalidName    = 2
	StatusCRSError       = 3
	StatusModelLoadError = 4
	StatusStateError     = 5
	StatusUnknown        = 6
)

var (
	mu      sync.Mutex
	table   = map[uintptr]*query.Query{}
	nextKey uintptr = 1
)

// Create allocates a new, Unborn Query and returns an opaque handle to
// it. The handle is only valid until Destroy is called with it.
func Create() uintptr {
	return CreateWithMetrics(nil)
}

// CreateWithMetrics is Create, additionally wiring m into the Query so
// dispatch counts, cache hits, and query latency are observed through
// it. Passing nil behaves exactly like Create.
func CreateWithMetrics(m *telemetry.Metrics) uintptr {
	mu.Lock()
	defer mu.Unlock()

	loader, err := storage.NewTileLoader(0)
	var l model.Loader
	if err != nil {
		// No usable production loader (e.g. TileDB unavailable in this
		// environment): callers relying purely on the C API without a
		// loader will get ModelLoadError at Initialize time instead of
		// a construction-time panic.
		l = storage.NewMemoryLoader(nil)
	} else {
		l = loader
	}

	q := query.New(l, func(srcCRS, modelCRS string) (model.Transformer, error) {
		return crs.NewTransformer(srcCRS, modelCRS)
	}, query.WithMetrics(m))

	h := nextKey
	nextKey++
	table[h] = q
	return h
}

// Destroy releases the Query behind handle. It is safe to call Destroy
// on an already-destroyed or unknown handle.
func Destroy(handle uintptr) {
	mu.Lock()
	defer mu.Unlock()
	if q, ok := table[handle]; ok {
		q.Finalize()
		delete(table, handle)
	}
}

func lookup(handle uintptr) (*query.Query, bool) {
	mu.Lock()
	defer mu.Unlock()
	q, ok := table[handle]
	return q, ok
}

func statusFor(err error) int {
	if err == nil {
		return StatusOK
	}
	qerr, ok := err.(*query.Error)
	if !ok {
		return StatusUnknown
	}
	switch qerr.Kind {
	case query.KindInvalidName:
		return StatusInvalidName
	case query.KindCRSError:
		return StatusCRSError
	case query.KindModelLoadError:
		return StatusModelLoadError
	case query.KindStateError:
		return StatusStateError
	default:
		return StatusUnknown
	}
}

// Initialize mirrors geomodelgrids_squery_initialize.
func Initialize(handle uintptr, modelFilenames, valueNames []string, inputCRS string) int {
	q, ok := lookup(handle)
	if !ok {
		return StatusUnknown
	}
	return statusFor(q.Initialize(modelFilenames, valueNames, inputCRS))
}

// SetSquashMinElev mirrors geomodelgrids_squery_setSquashMinElev.
func SetSquashMinElev(handle uintptr, value float64) int {
	q, ok := lookup(handle)
	if !ok {
		return StatusUnknown
	}
	q.SetSquashMinElev(value)
	return StatusOK
}

// SetSquashing mirrors geomodelgrids_squery_setSquashing.
func SetSquashing(handle uintptr, enabled bool) int {
	q, ok := lookup(handle)
	if !ok {
		return StatusUnknown
	}
	q.SetSquashing(enabled)
	return StatusOK
}

// QueryElevation mirrors geomodelgrids_squery_queryElevation.
func QueryElevation(handle uintptr, x, y float64) float64 {
	q, ok := lookup(handle)
	if !ok {
		return geomodel.NODATA_VALUE
	}
	e, err := q.QueryElevation(x, y)
	if err != nil {
		return geomodel.NODATA_VALUE
	}
	return e
}

// Query mirrors geomodelgrids_squery_query: 0 on success, nonzero on
// out-of-domain or error.
func Query(handle uintptr, out []float64, x, y, z float64) int {
	q, ok := lookup(handle)
	if !ok {
		return StatusUnknown
	}
	contained, err := q.Query(out, x, y, z)
	if err != nil {
		return statusFor(err)
	}
	if !contained {
		return StatusOutOfDomain
	}
	return StatusOK
}

// Finalize mirrors geomodelgrids_squery_finalize.
func Finalize(handle uintptr) int {
	q, ok := lookup(handle)
	if !ok {
		return StatusUnknown
	}
	q.Finalize()
	return StatusOK
}
