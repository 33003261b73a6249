package surface

import (
	"math"
	"sort"
	"sync"

	"github.com/Tecnocrat/aios-quantum-sub000/pkg/geometry"
)

const (
	// defaultEpsilon softens the inverse-distance weight near exact matches.
	defaultEpsilon = 0.05

	// defaultMatchThreshold is the angular distance below which a grid cell
	// adopts a vertex's recorded height directly instead of interpolating.
	defaultMatchThreshold = 0.01
)

// Reconstructor turns a sparse vertex set into a dense regular mesh. Safe
// for concurrent use; the triangle index cache is the only shared state.
type Reconstructor struct {
	Epsilon        float64
	MatchThreshold float64

	mu        sync.Mutex
	triangles map[int][]int
}

// NewReconstructor creates a reconstructor with default interpolation
// parameters.
func NewReconstructor() *Reconstructor {
	return &Reconstructor{
		Epsilon:        defaultEpsilon,
		MatchThreshold: defaultMatchThreshold,
		triangles:      make(map[int][]int),
	}
}

// Reconstruct interpolates heights and colors onto a resolution×resolution
// angular lattice. Every vertex contributes to every cell (global support):
// the data is sparse enough that local-only support would leave most of the
// grid undefined. An empty vertex set yields a smooth sphere at the base
// radius with every height 0.
func (r *Reconstructor) Reconstruct(vertices []Vertex, resolution int, baseRadius, displacementScale float64) *Mesh {
	if resolution < 2 {
		resolution = 2
	}

	points := make([]GridPoint, 0, resolution*resolution)
	for i := 0; i < resolution; i++ {
		theta := math.Pi * float64(i) / float64(resolution-1)
		for j := 0; j < resolution; j++ {
			phi := 2 * math.Pi * float64(j) / float64(resolution)
			cell := geometry.Spherical{Theta: theta, Phi: phi}

			gp := r.interpolate(cell, vertices)
			gp.UV = UV{
				U: float64(j) / float64(resolution),
				V: float64(i) / float64(resolution-1),
			}
			gp.Cartesian = cell.ToCartesian(baseRadius + gp.Height*displacementScale)
			points = append(points, gp)
		}
	}

	return &Mesh{
		VertexCount: len(points),
		Resolution:  resolution,
		Vertices:    points,
		Triangles:   r.triangleIndices(resolution),
		Statistics:  computeStatistics(points),
		SourceData:  sourceRuns(vertices),
	}
}

// interpolate computes one cell's height, color, and provenance from the
// vertex set.
func (r *Reconstructor) interpolate(cell geometry.Spherical, vertices []Vertex) GridPoint {
	gp := GridPoint{Spherical: cell}
	if len(vertices) == 0 {
		// Degenerate: zero accumulated weight falls back to height 0.
		return gp
	}

	var (
		weightSum   float64
		height      float64
		red         float64
		green       float64
		blue        float64
		errWeighted float64
		nearest     = 0
		nearestDist = math.Inf(1)
	)

	for i := range vertices {
		v := &vertices[i]
		d := geometry.AngularDistance(cell, v.Position)

		if d < r.MatchThreshold {
			// Measured location: reproduce the recorded values exactly.
			gp.Height = v.Height
			gp.Color = v.Color
			gp.Quantum = QuantumMeta{Beat: v.Beat, Error: v.Error}
			return gp
		}

		if d < nearestDist {
			nearestDist = d
			nearest = i
		}

		w := 1 / (d*d + r.Epsilon)
		weightSum += w
		height += w * v.Height
		red += w * v.Color.R
		green += w * v.Color.G
		blue += w * v.Color.B
		errWeighted += w * v.Error
	}

	gp.Height = height / weightSum
	gp.Color.R = red / weightSum
	gp.Color.G = green / weightSum
	gp.Color.B = blue / weightSum
	gp.Quantum = QuantumMeta{
		Beat:  vertices[nearest].Beat,
		Error: errWeighted / weightSum,
	}
	return gp
}

// triangleIndices returns the index buffer for the regular grid at the given
// resolution. Connectivity depends only on the resolution, so buffers are
// built once and cached.
func (r *Reconstructor) triangleIndices(resolution int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.triangles[resolution]; ok {
		return cached
	}

	indices := make([]int, 0, 6*(resolution-1)*resolution)
	for i := 0; i < resolution-1; i++ {
		for j := 0; j < resolution; j++ {
			// Column wraps around the phi seam
			next := (j + 1) % resolution

			a := i*resolution + j
			b := i*resolution + next
			c := (i+1)*resolution + j
			d := (i+1)*resolution + next

			indices = append(indices, a, c, b, b, c, d)
		}
	}

	r.triangles[resolution] = indices
	return indices
}

// sourceRuns counts contributed vertices per beat, ascending by beat.
func sourceRuns(vertices []Vertex) []SourceRun {
	if len(vertices) == 0 {
		return nil
	}

	perBeat := map[int]int{}
	for i := range vertices {
		perBeat[vertices[i].Beat]++
	}

	runs := make([]SourceRun, 0, len(perBeat))
	for beat, n := range perBeat {
		runs = append(runs, SourceRun{Beat: beat, Vertices: n})
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Beat < runs[j].Beat })
	return runs
}
