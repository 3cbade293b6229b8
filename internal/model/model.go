// Package model implements the core layered-model data structures and
// algorithms: value-name remapping, topography lookup, per-block
// trilinear interpolation, squash deformation, and per-model point
// dispatch. It has no knowledge of storage formats or CRS libraries;
// both are consumed through narrow interfaces so this package stays
// pure Go with no I/O and no cgo.
package model

import (
	"math"
	"sort"

	"github.com/equinor/geomodelgrids-query/internal/geomodel"
)

// Transformer performs a forward 3D coordinate transform between two
// coordinate reference systems. Implementations are constructed once per
// (input CRS, model CRS) pair and reused across many point queries.
type Transformer interface {
	Transform(x, y, z float64) (float64, float64, float64, error)
}

// Model is an axis-aligned rectangular volume, discretized as an ordered
// stack of Blocks in z, with an optional Topography defining its ground
// surface and a rigid transform (origin + azimuth) locating it within its
// own CRS.
type Model struct {
	CRS        string
	OriginX    float64
	OriginY    float64
	AzimuthDeg float64

	XMax, YMax float64
	ZMin, ZMax float64

	ValueNames []string
	Topography *Topography

	// Blocks is sorted by decreasing ZTop; see NewModel.
	Blocks []*Block
}

// NewModel constructs a Model and sorts its blocks by decreasing z_top,
// the order Model.Query relies on for boundary tie-breaking.
func NewModel(crs string, originX, originY, azimuthDeg, xMax, yMax, zMin, zMax float64, valueNames []string, topo *Topography, blocks []*Block) *Model {
	m := &Model{
		CRS: crs, OriginX: originX, OriginY: originY, AzimuthDeg: azimuthDeg,
		XMax: xMax, YMax: yMax, ZMin: zMin, ZMax: zMax,
		ValueNames: valueNames, Topography: topo, Blocks: append([]*Block(nil), blocks...),
	}
	sort.Slice(m.Blocks, func(i, j int) bool { return m.Blocks[i].ZTop > m.Blocks[j].ZTop })
	return m
}

// ToLocal converts a point from this model's CRS into its local frame by
// subtracting the origin and rotating by -azimuth.
func (m *Model) ToLocal(xm, ym float64) (float64, float64) {
	dx := xm - m.OriginX
	dy := ym - m.OriginY
	az := m.AzimuthDeg * math.Pi / 180
	cos, sin := math.Cos(az), math.Sin(az)
	x := dx*cos + dy*sin
	y := -dx*sin + dy*cos
	return x, y
}

func (m *Model) inHorizontalFootprint(x, y float64) bool {
	return x >= 0 && x <= m.XMax && y >= 0 && y <= m.YMax
}

// Elevation returns the ground-surface elevation at local (x, y): the
// topography value if one is present, 0.0 if not, or NODATA_VALUE if the
// point falls outside the model's horizontal footprint.
func (m *Model) Elevation(x, y float64) float64 {
	if !m.inHorizontalFootprint(x, y) {
		return geomodel.NODATA_VALUE
	}
	if m.Topography == nil {
		return 0.0
	}
	return m.Topography.Elevation(x, y)
}

// Contains reports whether local point (x, y, z) lies within the model's
// domain: inside the horizontal footprint and between z_min and the
// ground surface (topography elevation, or z_max with no topography).
func (m *Model) Contains(x, y, z float64) bool {
	if !m.inHorizontalFootprint(x, y) {
		return false
	}
	top := m.ZMax
	if m.Topography != nil {
		e := m.Topography.Elevation(x, y)
		if e == geomodel.NODATA_VALUE {
			return false
		}
		top = e
	}
	return z >= m.ZMin && z <= top
}

// blockFor returns the block owning local z. Blocks are scanned in
// decreasing z_top order, so at an interior boundary shared by two
// stacked blocks the upper block (larger z_top) wins the tie.
func (m *Model) blockFor(z float64) *Block {
	for _, b := range m.Blocks {
		if z <= b.ZTop && z >= b.ZBottom {
			return b
		}
	}
	return nil
}

// Query validates containment of local point (x, y, z), selects the
// owning block, and interpolates indices into out in caller-requested
// order. Returns false if the point is outside the model's domain.
func (m *Model) Query(x, y, z float64, indices []int, out []float64) bool {
	if !m.Contains(x, y, z) {
		return false
	}
	b := m.blockFor(z)
	if b == nil {
		return false
	}
	b.Query(x, y, z, indices, out)
	return true
}
