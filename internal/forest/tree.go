package forest

import (
	"errors"
	"math/rand"
	"sort"
)

// Tree is a CART classifier using Gini impurity. Fields are exported so
// the fitted tree survives gob encoding.
type Tree struct {
	MaxDepth        int // 0 means unlimited; the root has depth 0
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 means every feature at every split
	Seed            int64

	Classes     []int
	Root        *Node
	Importances []float64
}

// Node is an internal split (x[Feature] <= Threshold goes Left) or a leaf.
type Node struct {
	Leaf      bool
	Feature   int
	Threshold float64
	Left      *Node
	Right     *Node

	Samples int
	Probas  []float64 // aligned with Tree.Classes
}

type TreeOption func(*Tree)

func WithTreeMaxDepth(d int) TreeOption        { return func(t *Tree) { t.MaxDepth = d } }
func WithTreeMinSamplesSplit(n int) TreeOption { return func(t *Tree) { t.MinSamplesSplit = n } }
func WithTreeMinSamplesLeaf(n int) TreeOption  { return func(t *Tree) { t.MinSamplesLeaf = n } }
func WithTreeMaxFeatures(k int) TreeOption     { return func(t *Tree) { t.MaxFeatures = k } }
func WithTreeSeed(seed int64) TreeOption       { return func(t *Tree) { t.Seed = seed } }

func NewTree(opts ...TreeOption) *Tree {
	t := &Tree{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Fit grows the tree on the rows of X listed in sample (repeats allowed).
// classes fixes the order of the leaf probability vectors; a nil classes
// uses the sorted distinct labels of y.
func (t *Tree) Fit(X [][]float64, y []int, sample []int, classes []int) error {
	if len(X) == 0 {
		return errors.New("tree: empty X")
	}
	if len(y) != len(X) {
		return errors.New("tree: X and y length mismatch")
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return errors.New("tree: inconsistent number of features in X rows")
		}
	}
	if sample == nil {
		sample = make([]int, len(X))
		for i := range sample {
			sample[i] = i
		}
	}
	if len(sample) == 0 {
		return errors.New("tree: empty sample")
	}
	if classes == nil {
		classes = uniqueSorted(y)
	}

	t.Classes = append([]int(nil), classes...)
	t.Importances = make([]float64, p)

	b := &builder{
		tree:       t,
		X:          X,
		y:          y,
		classIndex: make(map[int]int, len(classes)),
		nFeatures:  p,
		total:      float64(len(sample)),
		rnd:        rand.New(rand.NewSource(t.Seed)),
	}
	for i, c := range classes {
		b.classIndex[c] = i
	}
	for _, i := range sample {
		if _, ok := b.classIndex[y[i]]; !ok {
			return errors.New("tree: label not in classes")
		}
	}

	t.Root = b.build(append([]int(nil), sample...), 0)
	normalize(t.Importances)
	return nil
}

// PredictProba returns the class distribution of the leaf x falls into.
func (t *Tree) PredictProba(x []float64) []float64 {
	node := t.Root
	if node == nil {
		p := make([]float64, len(t.Classes))
		for i := range p {
			p[i] = 1 / float64(len(p))
		}
		return p
	}
	for !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Probas
}

func (t *Tree) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	for i := range X {
		out[i] = t.Classes[argmax(t.PredictProba(X[i]))]
	}
	return out
}

// Depth is the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(n *Node) int
	walk = func(n *Node) int {
		if n == nil || n.Leaf {
			return 0
		}
		l, r := walk(n.Left), walk(n.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return walk(t.Root)
}

type builder struct {
	tree       *Tree
	X          [][]float64
	y          []int
	classIndex map[int]int
	nFeatures  int
	total      float64
	rnd        *rand.Rand
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

type pair struct {
	v float64
	i int
}

func (b *builder) counts(idx []int) []int {
	counts := make([]int, len(b.tree.Classes))
	for _, i := range idx {
		counts[b.classIndex[b.y[i]]]++
	}
	return counts
}

func (b *builder) leaf(counts []int, n int) *Node {
	return &Node{Leaf: true, Samples: n, Probas: countsToProbas(counts)}
}

func (b *builder) build(idx []int, depth int) *Node {
	t := b.tree
	counts := b.counts(idx)

	if isPure(counts) ||
		len(idx) < t.MinSamplesSplit ||
		len(idx) < 2*t.MinSamplesLeaf ||
		(t.MaxDepth > 0 && depth >= t.MaxDepth) {
		return b.leaf(counts, len(idx))
	}

	parent := gini(counts)
	best := split{feature: -1}
	for _, f := range b.candidateFeatures() {
		s := b.bestSplit(idx, f, parent)
		if s.feature >= 0 && s.gain > best.gain {
			best = s
		}
	}
	if best.feature < 0 || best.gain <= 0 {
		return b.leaf(counts, len(idx))
	}

	t.Importances[best.feature] += float64(len(idx)) / b.total * best.gain
	return &Node{
		Feature:   best.feature,
		Threshold: best.threshold,
		Samples:   len(idx),
		Left:      b.build(best.left, depth+1),
		Right:     b.build(best.right, depth+1),
	}
}

// candidateFeatures draws MaxFeatures distinct features without replacement.
func (b *builder) candidateFeatures() []int {
	p := b.nFeatures
	features := make([]int, p)
	for j := range features {
		features[j] = j
	}
	k := b.tree.MaxFeatures
	if k <= 0 || k >= p {
		return features
	}
	for i := 0; i < k; i++ {
		j := i + b.rnd.Intn(p-i)
		features[i], features[j] = features[j], features[i]
	}
	return features[:k]
}

// bestSplit sweeps the sorted values of feature f once, keeping running
// class counts on each side.
func (b *builder) bestSplit(idx []int, f int, parent float64) split {
	result := split{feature: -1}
	minLeaf := b.tree.MinSamplesLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}

	values := make([]pair, len(idx))
	for k, i := range idx {
		values[k] = pair{b.X[i][f], i}
	}
	sort.SliceStable(values, func(a, c int) bool { return values[a].v < values[c].v })

	n := len(values)
	right := b.counts(idx)
	left := make([]int, len(right))
	bestAt := -1

	for s := 1; s < n; s++ {
		ci := b.classIndex[b.y[values[s-1].i]]
		left[ci]++
		right[ci]--

		if values[s].v == values[s-1].v {
			continue
		}
		if s < minLeaf || n-s < minLeaf {
			continue
		}
		weighted := float64(s)/float64(n)*gini(left) + float64(n-s)/float64(n)*gini(right)
		gain := parent - weighted
		if gain > result.gain {
			result.gain = gain
			result.feature = f
			result.threshold = (values[s-1].v + values[s].v) / 2
			bestAt = s
		}
	}
	if bestAt < 0 {
		return split{feature: -1}
	}

	result.left = make([]int, 0, bestAt)
	result.right = make([]int, 0, n-bestAt)
	for k, v := range values {
		if k < bestAt {
			result.left = append(result.left, v.i)
		} else {
			result.right = append(result.right, v.i)
		}
	}
	return result
}

func gini(counts []int) float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	if n == 0 {
		return 0
	}
	res := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		res -= p * p
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func countsToProbas(counts []int) []float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	p := make([]float64, len(counts))
	if n == 0 {
		return p
	}
	for i, c := range counts {
		p[i] = float64(c) / float64(n)
	}
	return p
}

// argmax returns the first index of the largest value.
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

func normalize(values []float64) {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	if sum == 0 {
		return
	}
	for i := range values {
		values[i] /= sum
	}
}

func uniqueSorted(y []int) []int {
	seen := make(map[int]struct{}, 2)
	out := make([]int, 0, 2)
	for _, v := range y {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
