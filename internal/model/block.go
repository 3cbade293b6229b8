package model

// Block is a uniform cuboid grid of value tuples: a horizontal grid
// uniform in (dx, dy), stacked over nz vertical levels of spacing dz
// between ZTop (inclusive) and ZBottom (inclusive). Values are stored in
// storage order (the model's value-name order), not the caller's
// requested order; remapping into caller order happens in Query.
type Block struct {
	ZTop, ZBottom float64
	Dx, Dy, Dz    float64
	Nx, Ny, Nz    int
	NumValues     int
	// Values is row-major over [ix][iy][iz][iv].
	Values []float64
}

func (b *Block) stride() (sx, sy, sz int) {
	sz = b.NumValues
	sy = b.Nz * sz
	sx = b.Ny * sy
	return
}

func (b *Block) at(ix, iy, iz, iv int) float64 {
	sx, sy, sz := b.stride()
	return b.Values[ix*sx+iy*sy+iz*sz+iv]
}

// Query performs trilinear interpolation at local (x, y, z) — already
// validated by Model to lie within this block's bounds and the model's
// horizontal footprint — and writes out[k] = interpolated[indices[k]]
// for each k.
func (b *Block) Query(x, y, z float64, indices []int, out []float64) {
	ix, xi := clampedIndexFraction(x, b.Dx, b.Nx)
	iy, eta := clampedIndexFraction(y, b.Dy, b.Ny)

	// Vertical grid points run from ZTop down to ZBottom in steps of Dz,
	// so the natural coordinate to floor/fraction against is depth below
	// the top, not z itself.
	depth := b.ZTop - z
	iz, zeta := clampedIndexFraction(depth, b.Dz, b.Nz)

	w000 := (1 - xi) * (1 - eta) * (1 - zeta)
	w100 := xi * (1 - eta) * (1 - zeta)
	w010 := (1 - xi) * eta * (1 - zeta)
	w110 := xi * eta * (1 - zeta)
	w001 := (1 - xi) * (1 - eta) * zeta
	w101 := xi * (1 - eta) * zeta
	w011 := (1 - xi) * eta * zeta
	w111 := xi * eta * zeta

	for k, iv := range indices {
		out[k] = b.at(ix, iy, iz, iv)*w000 +
			b.at(ix+1, iy, iz, iv)*w100 +
			b.at(ix, iy+1, iz, iv)*w010 +
			b.at(ix+1, iy+1, iz, iv)*w110 +
			b.at(ix, iy, iz+1, iv)*w001 +
			b.at(ix+1, iy, iz+1, iv)*w101 +
			b.at(ix, iy+1, iz+1, iv)*w011 +
			b.at(ix+1, iy+1, iz+1, iv)*w111
	}
}
