// Package probe implements linear probes over neural-network activations:
// a family of fitting strategies that each learn a direction in activation
// space, behind one capability contract covering direction extraction,
// projection, normalization, and persistence.
package probe

import (
	"errors"
	"fmt"

	"probekit/internal/floats"
)

var (
	// ErrNotFitted is returned when a direction is requested from a
	// closed-form probe before Fit has succeeded.
	ErrNotFitted = errors.New("probe not fitted")
	// ErrDimensionMismatch is returned when activation width or probe
	// direction lengths disagree.
	ErrDimensionMismatch = errors.New("probe dimension mismatch")
	// ErrUnrecognizedFormat is returned when a JSON payload matches none
	// of the accepted probe-vector shapes.
	ErrUnrecognizedFormat = errors.New("unrecognized probe payload format")
	// ErrUnknownVariant is returned when a persisted type tag has no
	// registered probe variant.
	ErrUnknownVariant = errors.New("unknown probe variant")
	// ErrUnknownLoss is returned when a gradient config names a loss kind
	// outside the recognized set. Raised at loss construction.
	ErrUnknownLoss = errors.New("unknown loss type")
)

// Variant type tags, persisted in binary containers, JSON metadata, and
// ProbeSet manifests.
const (
	KindLinear   = "linear"
	KindLogistic = "logistic"
	KindKMeans   = "kmeans"
	KindPCA      = "pca"
	KindMeanDiff = "meandiff"
	KindLogReg   = "logreg"
)

// Probe is the capability contract shared by every fitting strategy.
type Probe interface {
	Kind() string
	BaseConfig() *ProbeConfig

	// Direction returns the primary learned direction after the transform
	// discipline (unscaling, unit normalization) has been applied.
	Direction() ([]float64, error)
	// Directions returns every learned direction; length 1 except for
	// multi-output gradient probes.
	Directions() ([][]float64, error)

	// Encode projects each activation row onto the learned directions,
	// returning one score column per direction.
	Encode(acts [][]float64) ([][]float64, error)

	// NormalizeVector rescales the stored direction to unit L2 norm in
	// place: raw weights for gradient probes, the cached direction for
	// closed-form probes.
	NormalizeVector()

	Save(path string) error
	SaveJSON(path string) error
}

// Fitter is implemented by the closed-form variants (kmeans, pca,
// meandiff, logreg). Gradient probes are trained externally instead.
type Fitter interface {
	Probe
	Fit(x [][]float64, y []float64) error
}

// directionSetter restores a learned direction during load, bypassing fit.
type directionSetter interface {
	setDirection(rows [][]float64) error
}

// stateRestorer restores raw trainable-parameter state during binary load.
type stateRestorer interface {
	restoreState(st *paramState) error
}

func checkActivations(acts [][]float64, inputSize int) error {
	for i, row := range acts {
		if len(row) != inputSize {
			return fmt.Errorf("%w: activation row %d has width %d, config expects %d",
				ErrDimensionMismatch, i, len(row), inputSize)
		}
	}
	return nil
}

// encodeRows is the shared projection path: scores[i][k] is the dot
// product of activation row i with direction k.
func encodeRows(acts, directions [][]float64) [][]float64 {
	scores := make([][]float64, len(acts))
	for i, row := range acts {
		scores[i] = make([]float64, len(directions))
		for k, dir := range directions {
			scores[i][k] = floats.Dot(row, dir)
		}
	}
	return scores
}
