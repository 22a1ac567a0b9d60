// Package trainer drives gradient probes: a synchronous full-batch
// gradient-descent loop with analytic gradients for the linear layer. The
// probe supplies the loss; the trainer owns the parameter updates.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"math"

	"probekit/internal/probe"
)

var ErrBadInput = errors.New("trainer input invalid")

type Options struct {
	LearningRate float64
	Epochs       int
	// MinDelta stops training early once the epoch-over-epoch loss
	// improvement falls below it. Zero disables early stopping.
	MinDelta float64
}

func DefaultOptions() Options {
	return Options{LearningRate: 0.01, Epochs: 100}
}

type Result struct {
	Epochs    int
	FinalLoss float64
}

// Train fits p on x against y. The first forward pass in training mode
// captures the probe's standardization buffers; they stay frozen for the
// rest of the run.
func Train(ctx context.Context, p probe.GradientProbe, x [][]float64, y []float64, opts Options) (Result, error) {
	if len(x) == 0 {
		return Result{}, fmt.Errorf("%w: empty activation matrix", ErrBadInput)
	}
	if len(x) != len(y) {
		return Result{}, fmt.Errorf("%w: %d rows vs %d labels", ErrBadInput, len(x), len(y))
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultOptions().LearningRate
	}
	if opts.Epochs <= 0 {
		opts.Epochs = DefaultOptions().Epochs
	}

	params := p.Params()
	prevLoss := math.Inf(1)
	res := Result{}

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		pred, err := p.Forward(x, true)
		if err != nil {
			return res, err
		}
		loss, dPred, err := p.LossGrad(pred, y)
		if err != nil {
			return res, err
		}

		xs := p.Standardize(x)
		step(params, xs, dPred, opts.LearningRate)

		res.Epochs = epoch + 1
		res.FinalLoss = loss
		if opts.MinDelta > 0 && prevLoss-loss < opts.MinDelta {
			break
		}
		prevLoss = loss
	}
	return res, nil
}

// step applies one gradient update: dW = dPred^T * xs + 2*lambda*W, and
// dB is the column sum of dPred.
func step(params *probe.LinearParams, xs [][]float64, dPred [][]float64, lr float64) {
	for k, w := range params.Weights {
		grad := make([]float64, len(w))
		for i, row := range xs {
			g := dPred[i][k]
			if g == 0 {
				continue
			}
			for j, v := range row {
				grad[j] += g * v
			}
		}
		for j := range w {
			w[j] -= lr * (grad[j] + 2*probe.L2Lambda*w[j])
		}
	}
	if params.Bias != nil {
		for k := range params.Bias {
			gb := 0.0
			for i := range dPred {
				gb += dPred[i][k]
			}
			params.Bias[k] -= lr * gb
		}
	}
}
