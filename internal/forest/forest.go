// Package forest implements a seeded random forest classifier, the
// stratified train/test split it is evaluated on, and classification
// metrics.
package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// RandomForest bags CART trees grown on bootstrap samples, each split
// considering a random subset of features. Training is sequential so a
// given Seed always yields the same model.
type RandomForest struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 means floor(sqrt(p)), at least 1
	Bootstrap       bool
	Seed            int64

	Classes      []int
	FeatureNames []string
	Trees        []*Tree
}

type Option func(*RandomForest)

func WithEstimators(n int) Option        { return func(f *RandomForest) { f.NEstimators = n } }
func WithMaxDepth(d int) Option          { return func(f *RandomForest) { f.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option   { return func(f *RandomForest) { f.MinSamplesSplit = n } }
func WithMinSamplesLeaf(n int) Option    { return func(f *RandomForest) { f.MinSamplesLeaf = n } }
func WithMaxFeatures(k int) Option       { return func(f *RandomForest) { f.MaxFeatures = k } }
func WithBootstrap(b bool) Option        { return func(f *RandomForest) { f.Bootstrap = b } }
func WithSeed(seed int64) Option         { return func(f *RandomForest) { f.Seed = seed } }
func WithFeatureNames(n []string) Option { return func(f *RandomForest) { f.FeatureNames = append([]string(nil), n...) } }

func New(opts ...Option) *RandomForest {
	f := &RandomForest{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fit trains NEstimators trees on X (n x p) and labels y.
func (f *RandomForest) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("forest: empty X")
	}
	if len(y) != len(X) {
		return errors.New("forest: X and y length mismatch")
	}
	if f.NEstimators < 1 {
		return fmt.Errorf("forest: NEstimators must be positive, got %d", f.NEstimators)
	}
	p := len(X[0])
	if len(f.FeatureNames) != 0 && len(f.FeatureNames) != p {
		return fmt.Errorf("forest: %d feature names for %d features", len(f.FeatureNames), p)
	}

	f.Classes = uniqueSorted(y)
	maxFeatures := f.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(p)))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	rnd := rand.New(rand.NewSource(f.Seed))
	n := len(X)
	f.Trees = make([]*Tree, f.NEstimators)
	for k := range f.Trees {
		treeSeed := rnd.Int63()
		treeRand := rand.New(rand.NewSource(treeSeed))

		sample := make([]int, n)
		for j := range sample {
			if f.Bootstrap {
				sample[j] = treeRand.Intn(n)
			} else {
				sample[j] = j
			}
		}

		tree := NewTree(
			WithTreeMaxDepth(f.MaxDepth),
			WithTreeMinSamplesSplit(f.MinSamplesSplit),
			WithTreeMinSamplesLeaf(f.MinSamplesLeaf),
			WithTreeMaxFeatures(maxFeatures),
			WithTreeSeed(treeRand.Int63()),
		)
		if err := tree.Fit(X, y, sample, f.Classes); err != nil {
			return fmt.Errorf("forest: tree %d: %w", k, err)
		}
		f.Trees[k] = tree
	}
	return nil
}

// PredictProba averages the leaf distributions of every tree.
func (f *RandomForest) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, x := range X {
		probs := make([]float64, len(f.Classes))
		for _, tree := range f.Trees {
			for c, p := range tree.PredictProba(x) {
				probs[c] += p
			}
		}
		if len(f.Trees) > 0 {
			for c := range probs {
				probs[c] /= float64(len(f.Trees))
			}
		}
		out[i] = probs
	}
	return out
}

// Predict picks the class with the highest averaged probability; ties go
// to the smaller label.
func (f *RandomForest) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	for i, probs := range f.PredictProba(X) {
		out[i] = f.Classes[argmax(probs)]
	}
	return out
}

// FeatureImportances is the mean decrease in impurity per feature,
// averaged over trees and normalized to sum to one.
func (f *RandomForest) FeatureImportances() []float64 {
	if len(f.Trees) == 0 {
		return nil
	}
	out := make([]float64, len(f.Trees[0].Importances))
	for _, tree := range f.Trees {
		for j, v := range tree.Importances {
			out[j] += v
		}
	}
	normalize(out)
	return out
}
