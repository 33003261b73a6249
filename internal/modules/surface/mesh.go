package surface

import (
	"github.com/Tecnocrat/aios-quantum-sub000/internal/modules/encoding"
	"github.com/Tecnocrat/aios-quantum-sub000/pkg/formulas"
	"github.com/Tecnocrat/aios-quantum-sub000/pkg/geometry"
)

// UV is a texture coordinate pair in [0, 1].
type UV struct {
	U float64 `json:"u"`
	V float64 `json:"v"`
}

// QuantumMeta ties a grid point back to the measurement that shaped it.
type QuantumMeta struct {
	Beat  int     `json:"beat"`
	Error float64 `json:"error_or_probability"`
}

// GridPoint is one reconstructed mesh vertex.
type GridPoint struct {
	Spherical geometry.Spherical `json:"spherical"`
	Cartesian geometry.Cartesian `json:"cartesian"`
	Height    float64            `json:"height"`
	Color     encoding.RGB       `json:"color"`
	UV        UV                 `json:"uv"`
	Quantum   QuantumMeta        `json:"quantum"`
}

// Statistics summarizes the reconstructed heights and errors.
type Statistics struct {
	MeanHeight     float64 `json:"mean_height"`
	HeightVariance float64 `json:"height_variance"`
	MeanError      float64 `json:"mean_error"`
	MaxError       float64 `json:"max_error"`
	MinError       float64 `json:"min_error"`
}

// SourceRun records which beat contributed vertices to the mesh.
type SourceRun struct {
	Beat     int `json:"beat"`
	Vertices int `json:"vertices"`
}

// Mesh is the reconstructed surface document handed to the rendering
// collaborator.
type Mesh struct {
	VertexCount int         `json:"vertex_count"`
	Resolution  int         `json:"resolution"`
	Vertices    []GridPoint `json:"vertices"`
	Triangles   []int       `json:"triangles"`
	Statistics  Statistics  `json:"statistics"`
	SourceData  []SourceRun `json:"source_data,omitempty"`
}

// computeStatistics derives the mesh summary from the grid points.
func computeStatistics(points []GridPoint) Statistics {
	if len(points) == 0 {
		return Statistics{}
	}

	heights := make([]float64, len(points))
	errs := make([]float64, len(points))
	for i, p := range points {
		heights[i] = p.Height
		errs[i] = p.Quantum.Error
	}

	minErr, maxErr := formulas.MinMax(errs)
	return Statistics{
		MeanHeight:     formulas.Mean(heights),
		HeightVariance: formulas.Variance(heights),
		MeanError:      formulas.Mean(errs),
		MaxError:       maxErr,
		MinError:       minErr,
	}
}
