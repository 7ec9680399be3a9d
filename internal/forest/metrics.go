package forest

import (
	"fmt"
	"strings"
)

// ClassMetrics holds precision, recall and F1 for one class, or an average
// over classes.
type ClassMetrics struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report is the evaluation of predictions against true labels.
// Confusion rows are true classes and columns predicted classes, both in
// Classes order.
type Report struct {
	Accuracy    float64
	Classes     []int
	PerClass    []ClassMetrics
	MacroAvg    ClassMetrics
	WeightedAvg ClassMetrics
	Confusion   [][]int
	Total       int
}

// Evaluate compares yPred to yTrue. classes fixes the row order; nil uses
// the sorted labels found in either slice. names maps a class to its
// display label and may be nil.
func Evaluate(yTrue, yPred []int, classes []int, names map[int]string) (Report, error) {
	if len(yTrue) != len(yPred) {
		return Report{}, fmt.Errorf("evaluate: %d labels but %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return Report{}, fmt.Errorf("evaluate: no samples")
	}
	if classes == nil {
		classes = uniqueSorted(append(append([]int(nil), yTrue...), yPred...))
	}

	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	confusion := make([][]int, len(classes))
	for i := range confusion {
		confusion[i] = make([]int, len(classes))
	}
	correct := 0
	for i := range yTrue {
		t, okT := index[yTrue[i]]
		p, okP := index[yPred[i]]
		if !okT || !okP {
			return Report{}, fmt.Errorf("evaluate: label outside classes at row %d", i)
		}
		confusion[t][p]++
		if t == p {
			correct++
		}
	}

	r := Report{
		Accuracy:  float64(correct) / float64(len(yTrue)),
		Classes:   append([]int(nil), classes...),
		Confusion: confusion,
		Total:     len(yTrue),
	}

	r.MacroAvg.Label = "macro avg"
	r.WeightedAvg.Label = "weighted avg"
	for i, c := range classes {
		tp := confusion[i][i]
		predicted, support := 0, 0
		for j := range classes {
			predicted += confusion[j][i]
			support += confusion[i][j]
		}
		m := ClassMetrics{
			Label:     labelName(c, names),
			Precision: ratio(tp, predicted),
			Recall:    ratio(tp, support),
			Support:   support,
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.PerClass = append(r.PerClass, m)

		n := float64(len(classes))
		r.MacroAvg.Precision += m.Precision / n
		r.MacroAvg.Recall += m.Recall / n
		r.MacroAvg.F1 += m.F1 / n

		w := float64(support) / float64(len(yTrue))
		r.WeightedAvg.Precision += m.Precision * w
		r.WeightedAvg.Recall += m.Recall * w
		r.WeightedAvg.F1 += m.F1 * w
	}
	r.MacroAvg.Support = len(yTrue)
	r.WeightedAvg.Support = len(yTrue)
	return r, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func labelName(class int, names map[int]string) string {
	if name, ok := names[class]; ok {
		return name
	}
	return fmt.Sprint(class)
}

// String renders a classification report table followed by the confusion
// matrix.
func (r Report) String() string {
	var b strings.Builder
	width := len("weighted avg")
	for _, m := range r.PerClass {
		if len(m.Label) > width {
			width = len(m.Label)
		}
	}

	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for _, m := range r.PerClass {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Total)
	for _, m := range []ClassMetrics{r.MacroAvg, r.WeightedAvg} {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}

	b.WriteString("\nConfusion Matrix:\n")
	for _, row := range r.Confusion {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprintf("%3d", v)
		}
		b.WriteString("[" + strings.Join(cells, " ") + "]\n")
	}
	return b.String()
}
