// Package crs wraps the PROJ coordinate transformation library behind a
// narrow Transformer capability: a handle constructed once from a pair
// of CRS descriptors, exposing one forward-transform method, translating
// the library's own error type at the boundary so nothing above this
// package touches cgo.
package crs

import (
	"fmt"

	"github.com/michiho/go-proj/v10"
)

// Error reports that a CRS string could not be parsed, or that a forward
// transform failed once in flight.
type Error struct {
	Op  string
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("crs: %s: %s", e.Op, e.Msg)
}

// Transformer performs forward 3D transforms from one CRS to another
// using a single PROJ pipeline built once at construction time and
// reused for every point. It implements model.Transformer.
type Transformer struct {
	pj *proj.PJ
}

// NewTransformer builds a forward transform from srcCRS to dstCRS. Both
// must be strings PROJ can parse (an EPSG code such as "EPSG:4326", a
// PROJ string, or WKT); an unparseable CRS fails here rather than at the
// first query, matching CRSTransformer's constructor-time failure mode.
func NewTransformer(srcCRS, dstCRS string) (*Transformer, error) {
	ctx := proj.NewContext()

	pj, err := ctx.NewCRSToCRS(srcCRS, dstCRS, nil)
	if err != nil {
		return nil, &Error{Op: "create " + srcCRS + "->" + dstCRS, Msg: err.Error()}
	}

	// Normalize so Forward/Inverse always operate in (x=easting-like,
	// y=northing-like, z) order regardless of how the source CRS
	// defines its native axis order.
	normalized, err := pj.NormalizeForVisualization()
	if err != nil {
		return nil, &Error{Op: "normalize " + srcCRS + "->" + dstCRS, Msg: err.Error()}
	}

	return &Transformer{pj: normalized}, nil
}

// Transform performs the forward transform of (x, y, z).
func (t *Transformer) Transform(x, y, z float64) (float64, float64, float64, error) {
	out, err := t.pj.Forward(proj.Coord{x, y, z, 0})
	if err != nil {
		return 0, 0, 0, &Error{Op: "transform", Msg: err.Error()}
	}
	return out[0], out[1], out[2], nil
}

// Close releases the underlying PROJ transformation.
func (t *Transformer) Close() {
	t.pj.Destroy()
}
