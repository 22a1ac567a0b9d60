package probe

import (
	"errors"
	"math"
	"testing"

	"probekit/internal/floats"
)

func trainingBatch() ([][]float64, []float64) {
	x := [][]float64{
		{1.0, 2.0, 0.5},
		{-1.0, 0.0, 1.5},
		{0.5, -2.0, 2.5},
		{2.0, 1.0, -0.5},
	}
	y := []float64{1, 0, 0, 1}
	return x, y
}

func TestGradientProbeUsableBeforeTraining(t *testing.T) {
	p := NewLinearProbe(NewLinearProbeConfig(3))
	x, _ := trainingBatch()

	scores, err := p.Encode(x)
	if err != nil {
		t.Fatalf("encode before training: %v", err)
	}
	if len(scores) != len(x) || len(scores[0]) != 1 {
		t.Fatalf("unexpected score shape: %dx%d", len(scores), len(scores[0]))
	}
}

func TestStandardizationCapturedOnce(t *testing.T) {
	p := NewLogisticProbe(NewLogisticProbeConfig(3))
	x, _ := trainingBatch()

	if _, err := p.Forward(x, true); err != nil {
		t.Fatalf("forward: %v", err)
	}
	mean := floats.Clone(p.featureMean)

	shifted := make([][]float64, len(x))
	for i, row := range x {
		shifted[i] = floats.Scale(row, 10)
	}
	if _, err := p.Forward(shifted, true); err != nil {
		t.Fatalf("forward: %v", err)
	}

	if !floats.EqualWithin(mean, p.featureMean, 0) {
		t.Fatal("standardization buffers recomputed on second training call")
	}

	p.ResetStatistics()
	if p.featureMean != nil || p.featureStd != nil {
		t.Fatal("reset did not clear buffers")
	}
}

func TestDirectionIdempotent(t *testing.T) {
	cfg := NewLinearProbeConfig(3)
	p := NewLinearProbe(cfg)
	x, _ := trainingBatch()

	if _, err := p.Forward(x, true); err != nil {
		t.Fatalf("forward: %v", err)
	}
	p.params.Weights[0] = []float64{0.3, -1.2, 2.4}

	first, err := p.Direction()
	if err != nil {
		t.Fatalf("direction: %v", err)
	}
	second, err := p.Direction()
	if err != nil {
		t.Fatalf("direction: %v", err)
	}
	if !floats.EqualWithin(first, second, 1e-6) {
		t.Fatalf("direction not idempotent: %v vs %v", first, second)
	}
}

func TestNormalizationInvariant(t *testing.T) {
	cfg := NewLinearProbeConfig(3)
	cfg.NormalizeWeights = true
	p := NewLinearProbe(cfg)
	x, _ := trainingBatch()

	if _, err := p.Forward(x, true); err != nil {
		t.Fatalf("forward: %v", err)
	}
	p.params.Weights[0] = []float64{5, -3, 2}

	dir, err := p.Direction()
	if err != nil {
		t.Fatalf("direction: %v", err)
	}
	if math.Abs(floats.Norm(dir)-1) > 1e-4 {
		t.Fatalf("direction not unit length: %f", floats.Norm(dir))
	}
}

func TestMultiOutputDirectionsNormalizedPerRow(t *testing.T) {
	cfg := NewLinearProbeConfig(3)
	cfg.OutputSize = 2
	p := NewLinearProbe(cfg)
	p.params.Weights = [][]float64{
		{4, 0, 3},
		{0, 2, 0},
	}

	dirs, err := p.Directions()
	if err != nil {
		t.Fatalf("directions: %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("unexpected direction count: %d", len(dirs))
	}
	for k, dir := range dirs {
		if math.Abs(floats.Norm(dir)-1) > 1e-4 {
			t.Fatalf("row %d not unit length: %f", k, floats.Norm(dir))
		}
	}
}

func TestUnscalingAppliesOnce(t *testing.T) {
	cfg := NewLinearProbeConfig(2)
	cfg.NormalizeWeights = false
	p := NewLinearProbe(cfg)
	p.featureMean = []float64{0, 0}
	p.featureStd = []float64{2, 4}
	p.params.Weights[0] = []float64{2, 4}

	dir, err := p.Direction()
	if err != nil {
		t.Fatalf("direction: %v", err)
	}
	if !floats.EqualWithin(dir, []float64{1, 1}, 1e-9) {
		t.Fatalf("unexpected unscaled direction: %v", dir)
	}

	// With the flag set, the raw weights pass through untouched.
	cfg.setFlag(flagUnscaled)
	dir, err = p.Direction()
	if err != nil {
		t.Fatalf("direction: %v", err)
	}
	if !floats.EqualWithin(dir, []float64{2, 4}, 1e-9) {
		t.Fatalf("unscaling re-applied: %v", dir)
	}
}

func TestLinearProbeUnknownLoss(t *testing.T) {
	cfg := NewLinearProbeConfig(3)
	cfg.LossType = "huber"
	p := NewLinearProbe(cfg)

	_, _, err := p.LossGrad([][]float64{{0}}, []float64{1})
	if !errors.Is(err, ErrUnknownLoss) {
		t.Fatalf("expected ErrUnknownLoss, got %v", err)
	}
}

func TestLinearLossGradKinds(t *testing.T) {
	tests := []struct {
		name string
		loss string
	}{
		{name: "mse", loss: LossMSE},
		{name: "hinge", loss: LossHinge},
		{name: "cosine", loss: LossCosine},
	}

	x, y := trainingBatch()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewLinearProbeConfig(3)
			cfg.LossType = tc.loss
			p := NewLinearProbe(cfg)

			pred, err := p.Forward(x, true)
			if err != nil {
				t.Fatalf("forward: %v", err)
			}
			loss, grad, err := p.LossGrad(pred, y)
			if err != nil {
				t.Fatalf("loss: %v", err)
			}
			if math.IsNaN(loss) || math.IsInf(loss, 0) {
				t.Fatalf("loss not finite: %f", loss)
			}
			if len(grad) != len(x) || len(grad[0]) != 1 {
				t.Fatalf("unexpected grad shape: %dx%d", len(grad), len(grad[0]))
			}
		})
	}
}

func TestLogisticLossGradZeroInit(t *testing.T) {
	p := NewLogisticProbe(NewLogisticProbeConfig(3))
	x, y := trainingBatch()

	pred, err := p.Forward(x, true)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	loss, grad, err := p.LossGrad(pred, y)
	if err != nil {
		t.Fatalf("loss: %v", err)
	}

	// Zero weights give logits of zero: BCE is ln 2 and each gradient
	// entry is (0.5 - y) / n.
	if math.Abs(loss-math.Log(2)) > 1e-9 {
		t.Fatalf("unexpected zero-init loss: %f", loss)
	}
	n := float64(len(x))
	for i := range grad {
		want := (0.5 - y[i]) / n
		if math.Abs(grad[i][0]-want) > 1e-9 {
			t.Fatalf("unexpected gradient at %d: got=%f want=%f", i, grad[i][0], want)
		}
	}
}

func TestEncodeDimensionMismatch(t *testing.T) {
	p := NewLinearProbe(NewLinearProbeConfig(3))
	_, err := p.Encode([][]float64{{1, 2}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}
