package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildBlock constructs a block with two stored values per node: the
// flat node index (unique per node, for exactness checks) and an affine
// function a*x+b*y+c*z+d (for linearity checks).
func buildBlock(nx, ny, nz int, dx, dy, dz, zTop float64, a, b, c, d float64) *Block {
	values := make([]float64, nx*ny*nz*2)
	idx := 0
	node := 0
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			for iz := 0; iz < nz; iz++ {
				x := float64(ix) * dx
				y := float64(iy) * dy
				z := zTop - float64(iz)*dz
				values[idx] = float64(node)
				values[idx+1] = a*x + b*y + c*z + d
				idx += 2
				node++
			}
		}
	}
	return &Block{
		ZTop: zTop, ZBottom: zTop - float64(nz-1)*dz,
		Dx: dx, Dy: dy, Dz: dz,
		Nx: nx, Ny: ny, Nz: nz, NumValues: 2,
		Values: values,
	}
}

func TestBlockTrilinearExactnessAtNode(t *testing.T) {
	b := buildBlock(3, 3, 3, 10, 10, 5, 0, 1, 2, 3, 4)

	for ix := 0; ix < 3; ix++ {
		for iy := 0; iy < 3; iy++ {
			for iz := 0; iz < 3; iz++ {
				x := float64(ix) * b.Dx
				y := float64(iy) * b.Dy
				z := b.ZTop - float64(iz)*b.Dz

				out := make([]float64, 2)
				b.Query(x, y, z, []int{0, 1}, out)

				wantNode := float64(ix*3*3 + iy*3 + iz)
				wantAffine := 1*x + 2*y + 3*z + 4
				require.InDeltaf(t, wantNode, out[0], 1e-6*(math.Abs(wantNode)+1),
					"node value at (%d,%d,%d)", ix, iy, iz)
				require.InDeltaf(t, wantAffine, out[1], 1e-6*(math.Abs(wantAffine)+1),
					"affine value at (%d,%d,%d)", ix, iy, iz)
			}
		}
	}
}

func TestBlockTrilinearLinearityInterior(t *testing.T) {
	b := buildBlock(3, 3, 3, 10, 10, 5, 0, 2.5, -1.5, 4.0, 7.0)

	points := [][3]float64{
		{3.3, 4.4, -2.2},
		{17.9, 0.1, -9.9},
		{5.0, 5.0, -5.0},
	}
	for _, p := range points {
		out := make([]float64, 1)
		b.Query(p[0], p[1], p[2], []int{1}, out)
		want := 2.5*p[0] - 1.5*p[1] + 4.0*p[2] + 7.0
		require.InDeltaf(t, want, out[0], 1e-6*(math.Abs(want)+1), "affine at %v", p)
	}
}

func TestBlockRemapRespectsRequestedOrder(t *testing.T) {
	b := buildBlock(2, 2, 2, 10, 10, 10, 0, 1, 1, 1, 0)

	out := make([]float64, 2)
	b.Query(0, 0, 0, []int{1, 0}, out)

	var direct [2]float64
	b.Query(0, 0, 0, []int{0, 1}, direct[:])
	require.Equal(t, direct[0], out[1])
	require.Equal(t, direct[1], out[0])
}
