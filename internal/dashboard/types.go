package dashboard

import (
	"student-analytics/internal/pipeline"
	"student-analytics/internal/students"
)

type summaryResponse struct {
	Summary  students.Summary       `json:"summary"`
	ByGender []students.GenderCount `json:"by_gender"`
	ByAge    []students.AgeAverage  `json:"by_age"`
}

type pipelineResponse struct {
	Status pipeline.Status `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}
