package surface

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tecnocrat/aios-quantum-sub000/internal/modules/encoding"
	"github.com/Tecnocrat/aios-quantum-sub000/pkg/geometry"
)

func TestReconstructRoundTrip(t *testing.T) {
	// A single vertex pinned exactly on a grid cell must reproduce its
	// recorded height and color at that cell.
	r := NewReconstructor()
	resolution := 8

	// Grid cell (2, 3) for resolution 8
	theta := math.Pi * 2 / float64(resolution-1)
	phi := 2 * math.Pi * 3 / float64(resolution)

	vertex := Vertex{
		Position: geometry.Spherical{Theta: theta, Phi: phi},
		Height:   0.42,
		Color:    encoding.RGB{R: 0.9, G: 0.1, B: 0.3},
		Beat:     7,
		Error:    0.05,
	}

	mesh := r.Reconstruct([]Vertex{vertex}, resolution, 1.0, 0.1)

	cell := mesh.Vertices[2*resolution+3]
	assert.InDelta(t, 0.42, cell.Height, 1e-12)
	assert.Equal(t, vertex.Color, cell.Color)
	assert.Equal(t, 7, cell.Quantum.Beat)
}

func TestWrapAroundDistance(t *testing.T) {
	a := geometry.Spherical{Theta: math.Pi / 2, Phi: 0.01}
	b := geometry.Spherical{Theta: math.Pi / 2, Phi: 2*math.Pi - 0.01}
	assert.InDelta(t, 0.02, geometry.AngularDistance(a, b), 1e-9)
}

func TestReconstructSeamContinuity(t *testing.T) {
	// A vertex just past the phi = 2π seam must dominate cells near phi = 0.
	r := NewReconstructor()
	resolution := 16

	vertices := []Vertex{
		{Position: geometry.Spherical{Theta: math.Pi / 2, Phi: 2*math.Pi - 0.02}, Height: 1.0},
		{Position: geometry.Spherical{Theta: math.Pi / 2, Phi: math.Pi}, Height: -1.0},
	}

	mesh := r.Reconstruct(vertices, resolution, 1.0, 0.1)

	// Cell at theta ≈ π/2, phi = 0: row resolution/2 (theta grid hits π/2
	// only for odd spacing, so take the nearest row), column 0.
	row := (resolution - 1) / 2
	nearSeam := mesh.Vertices[row*resolution+0]
	assert.Greater(t, nearSeam.Height, 0.0, "seam cell should be pulled toward the nearby positive vertex")
}

func TestReconstructEmptySet(t *testing.T) {
	r := NewReconstructor()
	mesh := r.Reconstruct(nil, 4, 1.0, 0.1)

	require.Len(t, mesh.Vertices, 16)
	for _, gp := range mesh.Vertices {
		assert.Equal(t, 0.0, gp.Height)
		assert.Equal(t, encoding.RGB{}, gp.Color)
		assert.False(t, math.IsNaN(gp.Cartesian.X))
	}
	assert.Equal(t, Statistics{}, mesh.Statistics)
	assert.Nil(t, mesh.SourceData)
}

func TestReconstructHeightsBounded(t *testing.T) {
	// Interpolated heights are convex combinations of vertex heights
	r := NewReconstructor()
	vertices := []Vertex{
		{Position: geometry.Spherical{Theta: 0.5, Phi: 1.0}, Height: 2.0},
		{Position: geometry.Spherical{Theta: 2.0, Phi: 4.0}, Height: -1.0},
		{Position: geometry.Spherical{Theta: 1.5, Phi: 5.5}, Height: 0.5},
	}

	mesh := r.Reconstruct(vertices, 12, 1.0, 0.1)
	for _, gp := range mesh.Vertices {
		assert.GreaterOrEqual(t, gp.Height, -1.0)
		assert.LessOrEqual(t, gp.Height, 2.0)
	}
}

func TestTriangleIndicesCachedPerResolution(t *testing.T) {
	r := NewReconstructor()

	a := r.triangleIndices(8)
	b := r.triangleIndices(8)
	assert.Same(t, &a[0], &b[0], "same resolution should reuse the cached buffer")

	c := r.triangleIndices(16)
	assert.NotEqual(t, len(a), len(c))

	// All indices address valid grid vertices
	for _, idx := range a {
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 64)
	}
	assert.Equal(t, 6*7*8, len(a))
}

func TestReconstructStatistics(t *testing.T) {
	r := NewReconstructor()
	vertices := []Vertex{
		{Position: geometry.Spherical{Theta: 1.0, Phi: 1.0}, Height: 1.0, Error: 0.2, Beat: 1},
		{Position: geometry.Spherical{Theta: 2.0, Phi: 3.0}, Height: 1.0, Error: 0.4, Beat: 2},
	}

	mesh := r.Reconstruct(vertices, 6, 1.0, 0.1)

	// Every cell interpolates between two equal heights
	assert.InDelta(t, 1.0, mesh.Statistics.MeanHeight, 1e-9)
	assert.InDelta(t, 0.0, mesh.Statistics.HeightVariance, 1e-9)
	assert.GreaterOrEqual(t, mesh.Statistics.MinError, 0.2-1e-9)
	assert.LessOrEqual(t, mesh.Statistics.MaxError, 0.4+1e-9)

	require.Len(t, mesh.SourceData, 2)
	assert.Equal(t, 1, mesh.SourceData[0].Beat)
	assert.Equal(t, 2, mesh.SourceData[1].Beat)
}
