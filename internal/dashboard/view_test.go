package dashboard

import (
	"errors"
	"testing"

	"student-analytics/internal/students"
)

func TestLayoutScalesToTallestBar(t *testing.T) {
	c := layout("test", []point{{label: "a", value: 5}, {label: "b", value: 10}})

	if len(c.Bars) != 2 {
		t.Fatalf("bars = %d", len(c.Bars))
	}
	plot := c.Base - chartPadding
	if c.Bars[1].Height != plot || c.Bars[0].Height != plot/2 {
		t.Fatalf("unexpected heights %v / %v (plot %v)", c.Bars[0].Height, c.Bars[1].Height, plot)
	}
	if c.Bars[1].Y != chartPadding {
		t.Fatalf("tallest bar should touch the top padding, y = %v", c.Bars[1].Y)
	}
	if c.Bars[0].X >= c.Bars[1].X {
		t.Fatalf("bars out of order")
	}
}

func TestLayoutHandlesEmptyAndZero(t *testing.T) {
	if c := layout("empty", nil); len(c.Bars) != 0 {
		t.Fatalf("expected no bars")
	}
	c := layout("zero", []point{{label: "a", value: 0}})
	if c.Bars[0].Height != 0 {
		t.Fatalf("zero value should have no height")
	}
}

func TestBuildPage(t *testing.T) {
	if p := buildPage(nil, errors.New("boom")); p.Error == "" || len(p.Charts) != 0 {
		t.Fatalf("expected error page, got %+v", p)
	}
	if p := buildPage(nil, nil); !p.Empty {
		t.Fatalf("expected empty page")
	}

	p := buildPage([]students.Record{{Sex: "F", Age: 16, FinalGrade: 14, Label: students.Pass}}, nil)
	if len(p.Cards) != 4 || p.Cards[1].Value != "100.0%" || len(p.Charts) != 2 {
		t.Fatalf("unexpected page: %+v", p)
	}
}
