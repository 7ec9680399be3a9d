package students

import "sort"

// GenderCount is one row of the pass/fail by sex aggregate.
type GenderCount struct {
	Sex    string `json:"sex"`
	Result Label  `json:"final_result"`
	Count  int    `json:"count"`
}

// AgeAverage is one row of the average final grade by age aggregate.
type AgeAverage struct {
	Age      int     `json:"age"`
	AvgFinal float64 `json:"avg_final"`
}

// Summary holds the headline figures shown on the dashboard cards.
type Summary struct {
	Total        int     `json:"total"`
	Passed       int     `json:"passed"`
	Failed       int     `json:"failed"`
	PassRate     float64 `json:"pass_rate"`
	AverageFinal float64 `json:"average_final"`
}

// CountByGender groups records by sex and label, ordered by sex then label.
func CountByGender(records []Record) []GenderCount {
	type key struct {
		sex   string
		label Label
	}
	counts := make(map[key]int)
	for _, r := range records {
		counts[key{r.Sex, r.Label}]++
	}

	out := make([]GenderCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, GenderCount{Sex: k.sex, Result: k.label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sex != out[j].Sex {
			return out[i].Sex < out[j].Sex
		}
		return out[i].Result < out[j].Result
	})
	return out
}

// AverageByAge averages the final grade per age, rounded to two decimals,
// ordered by age. Records without a known age (Age <= 0) are skipped.
func AverageByAge(records []Record) []AgeAverage {
	sums := make(map[int]int)
	counts := make(map[int]int)
	for _, r := range records {
		if r.Age <= 0 {
			continue
		}
		sums[r.Age] += r.FinalGrade
		counts[r.Age]++
	}

	out := make([]AgeAverage, 0, len(counts))
	for age, n := range counts {
		out = append(out, AgeAverage{Age: age, AvgFinal: Round2(float64(sums[age]) / float64(n))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Age < out[j].Age })
	return out
}

func Summarize(records []Record) Summary {
	var s Summary
	total := 0
	for _, r := range records {
		s.Total++
		total += r.FinalGrade
		if r.Label == Pass {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	if s.Total > 0 {
		s.PassRate = Round2(100 * float64(s.Passed) / float64(s.Total))
		s.AverageFinal = Round2(float64(total) / float64(s.Total))
	}
	return s
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	if v < 0 {
		return -Round2(-v)
	}
	return float64(int64(v*100+0.5)) / 100
}
