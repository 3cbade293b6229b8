package storage

import (
	"fmt"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

// dimExtent returns the number of cells along dimension index dimIdx of
// arr's domain, read from the array schema rather than assumed, since
// block grids vary in size across a model.
func dimExtent(arr *tiledb.Array, dimIdx uint) (int, error) {
	schema, err := arr.Schema()
	if err != nil {
		return 0, err
	}
	domain, err := schema.Domain()
	if err != nil {
		return 0, err
	}
	dim, err := domain.DimensionFromIndex(dimIdx)
	if err != nil {
		return 0, err
	}
	domainRange, err := dim.Domain()
	if err != nil {
		return 0, err
	}
	bounds, ok := domainRange.([]int64)
	if !ok || len(bounds) != 2 {
		return 0, fmt.Errorf("dimension %d: expected an int64 [lo, hi] domain, got %T", dimIdx, domainRange)
	}
	return int(bounds[1]-bounds[0]) + 1, nil
}

// readDense2D reads a full [nx][ny] dense float64 attribute into a
// row-major []float64.
func readDense2D(ctx *tiledb.Context, arr *tiledb.Array, attr string) (int, int, []float64, error) {
	nx, err := dimExtent(arr, 0)
	if err != nil {
		return 0, 0, nil, err
	}
	ny, err := dimExtent(arr, 1)
	if err != nil {
		return 0, 0, nil, err
	}

	buf := make([]float64, nx*ny)
	q, err := tiledb.NewQuery(ctx, arr)
	if err != nil {
		return 0, 0, nil, err
	}
	defer q.Free()
	if err := q.SetLayout(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return 0, 0, nil, err
	}
	if _, err := q.SetDataBuffer(attr, buf); err != nil {
		return 0, 0, nil, err
	}
	if err := q.Submit(); err != nil {
		return 0, 0, nil, fmt.Errorf("submit dense2d read %q: %w", attr, err)
	}
	return nx, ny, buf, nil
}

// readDense4D reads a full [nx][ny][nz][nv] dense float64 attribute into
// a row-major []float64, validating nv against the caller's expected
// value count (the model's storage value-name list length).
func readDense4D(ctx *tiledb.Context, arr *tiledb.Array, attr string, expectedNv int) (nx, ny, nz, nv int, values []float64, err error) {
	nx, err = dimExtent(arr, 0)
	if err != nil {
		return
	}
	ny, err = dimExtent(arr, 1)
	if err != nil {
		return
	}
	nz, err = dimExtent(arr, 2)
	if err != nil {
		return
	}
	nv, err = dimExtent(arr, 3)
	if err != nil {
		return
	}
	if expectedNv > 0 && nv != expectedNv {
		err = fmt.Errorf("block %q has %d values, model declares %d", attr, nv, expectedNv)
		return
	}

	values = make([]float64, nx*ny*nz*nv)
	q, qerr := tiledb.NewQuery(ctx, arr)
	if qerr != nil {
		err = qerr
		return
	}
	defer q.Free()
	if err = q.SetLayout(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return
	}
	if _, err = q.SetDataBuffer(attr, values); err != nil {
		return
	}
	if err = q.Submit(); err != nil {
		err = fmt.Errorf("submit dense4d read %q: %w", attr, err)
		return
	}
	return
}
