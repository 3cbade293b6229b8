package model

import "github.com/equinor/geomodelgrids-query/internal/geomodel"

// Topography is a regular 2D grid of ground-surface elevations, given in
// the owning Model's local frame (origin already subtracted, axis
// rotation already applied).
type Topography struct {
	Dx, Dy float64
	Nx, Ny int
	// Elevations is row-major over [ix][iy]: Elevations[ix*Ny+iy].
	Elevations []float64
}

// NewTopography builds a Topography from a row-major [nx][ny] grid,
// validating that the supplied slice matches nx*ny.
func NewTopography(dx, dy float64, nx, ny int, elevations []float64) *Topography {
	if len(elevations) != nx*ny {
		panic("geomodel: topography elevation grid size mismatch")
	}
	return &Topography{Dx: dx, Dy: dy, Nx: nx, Ny: ny, Elevations: elevations}
}

func (t *Topography) at(ix, iy int) float64 {
	return t.Elevations[ix*t.Ny+iy]
}

// Elevation returns the bilinearly interpolated ground-surface elevation
// at local (x, y), or geomodel.NODATA_VALUE if the point lies outside the
// topography grid's horizontal extent.
func (t *Topography) Elevation(x, y float64) float64 {
	maxX := float64(t.Nx-1) * t.Dx
	maxY := float64(t.Ny-1) * t.Dy
	if x < 0 || x > maxX || y < 0 || y > maxY {
		return geomodel.NODATA_VALUE
	}

	ix, xi := clampedIndexFraction(x, t.Dx, t.Nx)
	iy, eta := clampedIndexFraction(y, t.Dy, t.Ny)

	e00 := t.at(ix, iy)
	e10 := t.at(ix+1, iy)
	e01 := t.at(ix, iy+1)
	e11 := t.at(ix+1, iy+1)

	return e00*(1-xi)*(1-eta) +
		e10*xi*(1-eta) +
		e01*(1-xi)*eta +
		e11*xi*eta
}
