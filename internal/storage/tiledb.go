// TileLoader reads a model stored as a TileDB group: one dense array per
// block plus a metadata array and an optional topography array. This is
// the concrete production model.Loader this repository ships; it maps
// the hierarchical-container storage format (one group per model, one
// sub-group per block, attributes at every level) onto TileDB's own
// group-of-arrays abstraction, the closest analogue in the example
// corpus to a named collection of dense N-D datasets with attributes.
package storage

import (
	"fmt"
	"sort"
	"strconv"

	tiledb "github.com/TileDB-Inc/TileDB-Go"

	"github.com/equinor/geomodelgrids-query/internal/model"
)

const (
	metadataArrayName   = "metadata"
	topographyArrayName = "topography"
	blockArrayPrefix    = "block_"
)

// TileLoader implements model.Loader against a directory of TileDB
// arrays laid out by a model-writing tool external to this repository;
// this package only ever reads.
type TileLoader struct {
	ctx        *tiledb.Context
	blockCache int // per-model LRU capacity; 0 disables the block cache.
}

// NewTileLoader builds a loader using a fresh TileDB context and, if
// blockCacheSize > 0, a per-model LRU of materialized blocks.
func NewTileLoader(blockCacheSize int) (*TileLoader, error) {
	cfg, err := tiledb.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("new tiledb config: %w", err)
	}
	ctx, err := tiledb.NewContext(cfg)
	if err != nil {
		return nil, fmt.Errorf("new tiledb context: %w", err)
	}
	return &TileLoader{ctx: ctx, blockCache: blockCacheSize}, nil
}

// Load opens the group at groupURI and builds a fully-initialized Model.
func (l *TileLoader) Load(groupURI string) (*model.Model, error) {
	meta, err := l.readMetadata(groupURI)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	topo, err := l.readTopography(groupURI)
	if err != nil {
		return nil, fmt.Errorf("read topography: %w", err)
	}

	blockNames, err := l.listBlockArrays(groupURI)
	if err != nil {
		return nil, fmt.Errorf("list block arrays: %w", err)
	}

	loadBlock := func(i int) (*model.Block, error) {
		return l.readBlock(groupURI, blockNames[i], len(meta.valueNames))
	}

	var get func(int) (*model.Block, error)
	if l.blockCache > 0 {
		cache, err := newBlockCache(l.blockCache, loadBlock)
		if err != nil {
			return nil, fmt.Errorf("new block cache: %w", err)
		}
		get = cache.get
	} else {
		get = loadBlock
	}

	blocks := make([]*model.Block, len(blockNames))
	for i := range blockNames {
		b, err := get(i)
		if err != nil {
			return nil, fmt.Errorf("load block %q: %w", blockNames[i], err)
		}
		blocks[i] = b
	}

	// z_min/z_max are not stored directly, only dim_z (the total vertical
	// extent): they are derived from the blocks, whose own z_top/z_bottom
	// partition the model's full z range with no gaps or overlap.
	zMin, zMax := zRangeOf(blocks)
	if dimZ := zMax - zMin; !almostEqual(dimZ, meta.dimZ) {
		return nil, fmt.Errorf("model %q: dim_z=%g does not match block z range %g", groupURI, meta.dimZ, dimZ)
	}

	return model.NewModel(
		meta.crs, meta.originX, meta.originY, meta.azimuthDeg,
		meta.dimX, meta.dimY, zMin, zMax,
		meta.valueNames, topo, blocks,
	), nil
}

func zRangeOf(blocks []*model.Block) (zMin, zMax float64) {
	zMin, zMax = blocks[0].ZBottom, blocks[0].ZTop
	for _, b := range blocks[1:] {
		if b.ZBottom < zMin {
			zMin = b.ZBottom
		}
		if b.ZTop > zMax {
			zMax = b.ZTop
		}
	}
	return zMin, zMax
}

func almostEqual(a, b float64) bool {
	const tol = 1e-6
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol*(1+absf(a)+absf(b))
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// modelMetadata mirrors the container's top-level attributes: crs,
// origin_x, origin_y, y_azimuth, dim_x, dim_y, dim_z, data_values.
// data_units is read by the loader but not needed by model.Model, which
// has no notion of physical units.
type modelMetadata struct {
	crs              string
	originX, originY float64
	azimuthDeg       float64
	dimX, dimY, dimZ float64
	valueNames       []string
}

// readMetadata opens the model's metadata array and pulls the top-level
// attributes every model container carries.
func (l *TileLoader) readMetadata(groupURI string) (*modelMetadata, error) {
	arr, err := tiledb.NewArray(l.ctx, groupURI+"/"+metadataArrayName)
	if err != nil {
		return nil, err
	}
	defer arr.Close()
	if err := arr.Open(tiledb.TILEDB_READ); err != nil {
		return nil, err
	}

	getString := func(key string) (string, error) {
		_, _, v, err := arr.GetMetadata(key)
		if err != nil {
			return "", fmt.Errorf("metadata %q: %w", key, err)
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("metadata %q: not a string", key)
		}
		return s, nil
	}
	getFloat := func(key string) (float64, error) {
		_, _, v, err := arr.GetMetadata(key)
		if err != nil {
			return 0, fmt.Errorf("metadata %q: %w", key, err)
		}
		f, ok := v.(float64)
		if !ok {
			return 0, fmt.Errorf("metadata %q: not a float64", key)
		}
		return f, nil
	}
	getStrings := func(key string) ([]string, error) {
		_, _, v, err := arr.GetMetadata(key)
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", key, err)
		}
		ss, ok := v.([]string)
		if !ok {
			return nil, fmt.Errorf("metadata %q: not a string list", key)
		}
		return ss, nil
	}

	crs, err := getString("crs")
	if err != nil {
		return nil, err
	}
	originX, err := getFloat("origin_x")
	if err != nil {
		return nil, err
	}
	originY, err := getFloat("origin_y")
	if err != nil {
		return nil, err
	}
	azimuth, err := getFloat("y_azimuth")
	if err != nil {
		return nil, err
	}
	dimX, err := getFloat("dim_x")
	if err != nil {
		return nil, err
	}
	dimY, err := getFloat("dim_y")
	if err != nil {
		return nil, err
	}
	dimZ, err := getFloat("dim_z")
	if err != nil {
		return nil, err
	}
	valueNames, err := getStrings("data_values")
	if err != nil {
		return nil, err
	}
	// data_units is part of the storage format but model.Model carries
	// no unit concept, so it is read for format validation only.
	if _, err := getStrings("data_units"); err != nil {
		return nil, err
	}

	return &modelMetadata{
		crs: crs, originX: originX, originY: originY, azimuthDeg: azimuth,
		dimX: dimX, dimY: dimY, dimZ: dimZ, valueNames: valueNames,
	}, nil
}

// readTopography reads the optional topography group: an elevation
// dataset plus its resolution_horiz attribute (stored as a 2-element
// [dx, dy] value, since the grid need not be square).
func (l *TileLoader) readTopography(groupURI string) (*model.Topography, error) {
	arr, err := tiledb.NewArray(l.ctx, groupURI+"/"+topographyArrayName)
	if err != nil {
		// No topography group: a model without topography is valid
		// (ground surface is z=0 everywhere).
		return nil, nil //nolint:nilerr
	}
	defer arr.Close()
	if err := arr.Open(tiledb.TILEDB_READ); err != nil {
		return nil, err
	}

	dx, dy, err := getResolutionHoriz(arr)
	if err != nil {
		return nil, err
	}

	nx, ny, elevations, err := readDense2D(l.ctx, arr, "elevation")
	if err != nil {
		return nil, err
	}
	return model.NewTopography(dx, dy, nx, ny, elevations), nil
}

// getResolutionHoriz reads the resolution_horiz attribute shared by the
// topography group and every block group.
func getResolutionHoriz(arr *tiledb.Array) (dx, dy float64, err error) {
	_, _, v, err := arr.GetMetadata("resolution_horiz")
	if err != nil {
		return 0, 0, fmt.Errorf("metadata %q: %w", "resolution_horiz", err)
	}
	res, ok := v.([]float64)
	if !ok || len(res) != 2 {
		return 0, 0, fmt.Errorf("metadata %q: expected a 2-element [dx, dy]", "resolution_horiz")
	}
	return res[0], res[1], nil
}

func (l *TileLoader) listBlockArrays(groupURI string) ([]string, error) {
	group, err := tiledb.NewGroup(l.ctx, groupURI)
	if err != nil {
		return nil, err
	}
	defer group.Close()
	if err := group.Open(tiledb.TILEDB_READ); err != nil {
		return nil, err
	}

	count, err := group.GetMemberCount()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		_, name, _, err := group.GetMemberByIndex(i)
		if err != nil {
			return nil, err
		}
		if len(name) > len(blockArrayPrefix) && name[:len(blockArrayPrefix)] == blockArrayPrefix {
			names = append(names, name)
		}
	}
	// Sort by the numeric suffix so block order matches write order; the
	// caller (Model) re-sorts by decreasing z_top regardless, but a
	// stable, predictable read order makes cache warm-up deterministic.
	sort.Slice(names, func(i, j int) bool {
		return blockOrdinal(names[i]) < blockOrdinal(names[j])
	})
	return names, nil
}

func blockOrdinal(name string) int {
	n, _ := strconv.Atoi(name[len(blockArrayPrefix):])
	return n
}

// readBlock reads one block group's attributes (z_top, resolution_horiz,
// resolution_vert) and its 4D values dataset. z_bottom is not a stored
// attribute; it is derived from z_top, resolution_vert, and the
// dataset's own nz extent, since (nz-1)*dz must equal z_top - z_bottom.
func (l *TileLoader) readBlock(groupURI, name string, numValues int) (*model.Block, error) {
	arr, err := tiledb.NewArray(l.ctx, groupURI+"/"+name)
	if err != nil {
		return nil, err
	}
	defer arr.Close()
	if err := arr.Open(tiledb.TILEDB_READ); err != nil {
		return nil, err
	}

	zTop, err := getFloatMetadata(arr, "z_top")
	if err != nil {
		return nil, err
	}
	dx, dy, err := getResolutionHoriz(arr)
	if err != nil {
		return nil, err
	}
	dz, err := getFloatMetadata(arr, "resolution_vert")
	if err != nil {
		return nil, err
	}

	nx, ny, nz, nv, values, err := readDense4D(l.ctx, arr, "values", numValues)
	if err != nil {
		return nil, err
	}

	zBottom := zTop - float64(nz-1)*dz

	return &model.Block{
		ZTop: zTop, ZBottom: zBottom,
		Dx: dx, Dy: dy, Dz: dz,
		Nx: nx, Ny: ny, Nz: nz, NumValues: nv,
		Values: values,
	}, nil
}

func getFloatMetadata(arr *tiledb.Array, key string) (float64, error) {
	_, _, v, err := arr.GetMetadata(key)
	if err != nil {
		return 0, fmt.Errorf("metadata %q: %w", key, err)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("metadata %q: not a float64", key)
	}
	return f, nil
}
