// Package solver holds the numeric solvers the closed-form probe variants
// delegate to: k-means clustering, principal components, and logistic
// regression. All solvers are synchronous and deterministic for a fixed
// seed.
package solver

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var ErrBadInput = errors.New("solver input invalid")

const kmeansMaxIter = 300

// KMeansResult carries the centroids and per-row cluster assignments of
// the best restart.
type KMeansResult struct {
	Centroids [][]float64
	Labels    []int
	Inertia   float64
}

// KMeans runs Lloyd's algorithm with k-means++ seeding, numInit times,
// keeping the restart with the lowest inertia.
func KMeans(x [][]float64, k, numInit int, seed int64) (KMeansResult, error) {
	if k <= 0 {
		return KMeansResult{}, fmt.Errorf("%w: cluster count %d", ErrBadInput, k)
	}
	if len(x) < k {
		return KMeansResult{}, fmt.Errorf("%w: %d rows for %d clusters", ErrBadInput, len(x), k)
	}
	if numInit <= 0 {
		numInit = 1
	}

	rng := rand.New(rand.NewSource(seed))
	best := KMeansResult{Inertia: math.Inf(1)}
	for trial := 0; trial < numInit; trial++ {
		res := kmeansOnce(x, k, rng)
		if res.Inertia < best.Inertia {
			best = res
		}
	}
	return best, nil
}

func kmeansOnce(x [][]float64, k int, rng *rand.Rand) KMeansResult {
	centroids := seedPlusPlus(x, k, rng)
	labels := make([]int, len(x))

	for iter := 0; iter < kmeansMaxIter; iter++ {
		changed := false
		for i, row := range x {
			nearest := nearestCentroid(row, centroids)
			if nearest != labels[i] {
				labels[i] = nearest
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}

		counts := make([]int, k)
		next := make([][]float64, k)
		for c := range next {
			next[c] = make([]float64, len(x[0]))
		}
		for i, row := range x {
			counts[labels[i]]++
			for j, v := range row {
				next[labels[i]][j] += v
			}
		}
		for c := range next {
			if counts[c] == 0 {
				// Empty cluster keeps its previous centroid.
				copy(next[c], centroids[c])
				continue
			}
			for j := range next[c] {
				next[c][j] /= float64(counts[c])
			}
		}
		centroids = next
	}

	inertia := 0.0
	for i, row := range x {
		inertia += sqDist(row, centroids[labels[i]])
	}
	return KMeansResult{Centroids: centroids, Labels: labels, Inertia: inertia}
}

// seedPlusPlus picks initial centroids with probability proportional to
// squared distance from the nearest chosen centroid.
func seedPlusPlus(x [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := x[rng.Intn(len(x))]
	centroids = append(centroids, cloneRow(first))

	dists := make([]float64, len(x))
	for len(centroids) < k {
		total := 0.0
		for i, row := range x {
			d := math.Inf(1)
			for _, c := range centroids {
				if sd := sqDist(row, c); sd < d {
					d = sd
				}
			}
			dists[i] = d
			total += d
		}
		if total == 0 {
			centroids = append(centroids, cloneRow(x[rng.Intn(len(x))]))
			continue
		}
		target := rng.Float64() * total
		acc := 0.0
		pick := len(x) - 1
		for i, d := range dists {
			acc += d
			if acc >= target {
				pick = i
				break
			}
		}
		centroids = append(centroids, cloneRow(x[pick]))
	}
	return centroids
}

func nearestCentroid(row []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDist(row, centroid); d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	total := 0.0
	for i := range a {
		d := a[i] - b[i]
		total += d * d
	}
	return total
}

func cloneRow(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
