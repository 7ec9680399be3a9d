package students

import "strings"

// Column names of the source table used by the pipeline.
const (
	ColSex        = "sex"
	ColAge        = "age"
	ColStudyTime  = "studytime"
	ColFailures   = "failures"
	ColAbsences   = "absences"
	ColG1         = "G1"
	ColG2         = "G2"
	ColG3         = "G3"
	ColLabel      = "final_result"
	PassThreshold = 10
)

// GradeColumns are coerced to integers by the cleaner.
var GradeColumns = []string{ColG1, ColG2, ColG3}

type Label string

const (
	Pass Label = "pass"
	Fail Label = "fail"
)

// LabelFor derives the label from a final grade. The label is never stored
// or edited independently of G3.
func LabelFor(finalGrade int) Label {
	if finalGrade >= PassThreshold {
		return Pass
	}
	return Fail
}

// ParseLabel maps the persisted text back to a Label. Anything other than
// "pass" is a fail.
func ParseLabel(value string) Label {
	if strings.TrimSpace(value) == string(Pass) {
		return Pass
	}
	return Fail
}

// Record is the subset of a student row the dashboard works with.
type Record struct {
	Sex        string
	Age        int
	FinalGrade int
	Label      Label
}
