package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit partitions the indices of y into train and test sets.
// The test set holds ceil(n*testSize) rows, allocated across classes in
// proportion to their frequency. The result depends only on y, testSize
// and seed.
func StratifiedSplit(y []int, testSize float64, seed int64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("split: test size must be in (0, 1), got %v", testSize)
	}
	n := len(y)
	if n == 0 {
		return nil, nil, errors.New("split: no rows")
	}

	byClass := make(map[int][]int)
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	classes := uniqueSorted(y)
	for _, c := range classes {
		if len(byClass[c]) < 2 {
			return nil, nil, fmt.Errorf("split: class %d has %d member(s), need at least 2", c, len(byClass[c]))
		}
	}

	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest < len(classes) || n-nTest < len(classes) {
		return nil, nil, fmt.Errorf("split: %d test rows cannot hold %d classes on both sides", nTest, len(classes))
	}

	allocation := allocate(classes, byClass, nTest, n)

	rnd := rand.New(rand.NewSource(seed))
	for _, c := range classes {
		members := append([]int(nil), byClass[c]...)
		rnd.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
		k := allocation[c]
		test = append(test, members[:k]...)
		train = append(train, members[k:]...)
	}
	rnd.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rnd.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test, nil
}

// allocate distributes nTest over classes by largest remainder, keeping at
// least one test and one train row per class.
func allocate(classes []int, byClass map[int][]int, nTest, n int) map[int]int {
	type share struct {
		class int
		frac  float64
	}
	out := make(map[int]int, len(classes))
	shares := make([]share, 0, len(classes))
	assigned := 0
	for _, c := range classes {
		exact := float64(len(byClass[c])) * float64(nTest) / float64(n)
		k := int(math.Floor(exact))
		out[c] = k
		assigned += k
		shares = append(shares, share{class: c, frac: exact - float64(k)})
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].frac > shares[j].frac })
	for i := 0; assigned < nTest; i = (i + 1) % len(shares) {
		c := shares[i].class
		if out[c] < len(byClass[c])-1 {
			out[c]++
			assigned++
		}
	}

	for _, c := range classes {
		if out[c] == 0 {
			out[c] = 1
			// take the row back from the largest test share
			largest := classes[0]
			for _, other := range classes {
				if out[other] > out[largest] {
					largest = other
				}
			}
			if out[largest] > 1 {
				out[largest]--
			}
		}
	}
	return out
}
