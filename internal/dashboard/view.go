package dashboard

import (
	"fmt"
	"strconv"

	"student-analytics/internal/pipeline"
	"student-analytics/internal/students"
)

const (
	chartWidth   = 560.0
	chartHeight  = 260.0
	chartPadding = 32.0
	barGap       = 8.0
)

type page struct {
	Error    string
	Empty    bool
	Cards    []card
	Charts   []chart
	Pipeline *pipeline.Status
}

type card struct {
	Title string
	Value string
}

type chart struct {
	Title  string
	Width  float64
	Height float64
	Base   float64
	Bars   []bar
}

type bar struct {
	Label  string
	Value  string
	Class  string
	X      float64
	Y      float64
	Width  float64
	Height float64
	LabelX float64
	LabelY float64
	ValueY float64
}

func buildPage(records []students.Record, err error) page {
	if err != nil {
		return page{Error: fmt.Sprintf("Could not load student data: %v", err)}
	}
	if len(records) == 0 {
		return page{Empty: true}
	}

	summary := students.Summarize(records)
	return page{
		Cards: []card{
			{Title: "Total Students", Value: strconv.Itoa(summary.Total)},
			{Title: "Pass Rate", Value: fmt.Sprintf("%.1f%%", summary.PassRate)},
			{Title: "Average Final Grade", Value: fmt.Sprintf("%.2f", summary.AverageFinal)},
			{Title: "Students Failing", Value: strconv.Itoa(summary.Failed)},
		},
		Charts: []chart{
			genderChart(students.CountByGender(records)),
			ageChart(students.AverageByAge(records)),
		},
	}
}

type point struct {
	label string
	value float64
	text  string
	class string
}

func genderChart(counts []students.GenderCount) chart {
	points := make([]point, 0, len(counts))
	for _, c := range counts {
		points = append(points, point{
			label: c.Sex + " " + string(c.Result),
			value: float64(c.Count),
			text:  strconv.Itoa(c.Count),
			class: string(c.Result),
		})
	}
	return layout("Pass/Fail by Sex", points)
}

func ageChart(averages []students.AgeAverage) chart {
	points := make([]point, 0, len(averages))
	for _, a := range averages {
		points = append(points, point{
			label: strconv.Itoa(a.Age),
			value: a.AvgFinal,
			text:  strconv.FormatFloat(a.AvgFinal, 'f', -1, 64),
			class: "grade",
		})
	}
	return layout("Average Final Grade by Age", points)
}

// layout scales bars to the tallest value. Coordinates are SVG user units
// with the baseline at Base.
func layout(title string, points []point) chart {
	c := chart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		Base:   chartHeight - chartPadding,
	}
	if len(points) == 0 {
		return c
	}

	maxValue := 0.0
	for _, p := range points {
		if p.value > maxValue {
			maxValue = p.value
		}
	}
	plotHeight := c.Base - chartPadding
	slot := (chartWidth - 2*chartPadding) / float64(len(points))
	width := slot - barGap
	if width < 1 {
		width = 1
	}

	for i, p := range points {
		h := 0.0
		if maxValue > 0 {
			h = p.value / maxValue * plotHeight
		}
		x := chartPadding + float64(i)*slot + barGap/2
		c.Bars = append(c.Bars, bar{
			Label:  p.label,
			Value:  p.text,
			Class:  p.class,
			X:      x,
			Y:      c.Base - h,
			Width:  width,
			Height: h,
			LabelX: x + width/2,
			LabelY: c.Base + 16,
			ValueY: c.Base - h - 4,
		})
	}
	return c
}

func formatPx(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
