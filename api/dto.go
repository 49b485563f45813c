/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Full evaluations are
  returned as stored (audit.Evaluation); listings use a flat summary so the
  history table does not carry every transcript.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *List/*Response: wrappers

SEE ALSO:
  - handlers.go: Uses these types
  - audit/evaluation.go: Evaluation record
*/
package api

import (
	"time"

	"github.com/warp/curriculum-engine/audit"
	"github.com/warp/curriculum-engine/curriculum"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// EvaluationSummaryDTO is one row of the evaluation history.
type EvaluationSummaryDTO struct {
	ID                string    `json:"id"`
	Filename          string    `json:"filename"`
	Source            string    `json:"source"`
	CurriculumVersion string    `json:"curriculum_version"`
	CanGraduate       bool      `json:"can_graduate"`
	Message           string    `json:"message"`
	LastTerm          int       `json:"last_term"`
	GPA               string    `json:"gpa"`
	Reasons           int       `json:"reasons"`
	CreatedAt         time.Time `json:"created_at"`
	ReportURL         string    `json:"report_url"`
}

// EvaluationListDTO wraps the history listing.
type EvaluationListDTO struct {
	Evaluations []EvaluationSummaryDTO `json:"evaluations"`
	Count       int                    `json:"count"`
}

// CurriculumDTO describes the active rule set.
type CurriculumDTO struct {
	Version    string                `json:"version"`
	Name       string                `json:"name"`
	Extensions []string              `json:"accepted_extensions"`
	Definition curriculum.Definition `json:"definition"`
}

// HealthDTO is the liveness response.
type HealthDTO struct {
	Status            string `json:"status"`
	Offline           bool   `json:"offline"`
	CurriculumVersion string `json:"curriculum_version"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toSummaryDTO(e audit.Evaluation) EvaluationSummaryDTO {
	return EvaluationSummaryDTO{
		ID:                e.ID.String(),
		Filename:          e.Filename,
		Source:            string(e.Source),
		CurriculumVersion: e.CurriculumVersion,
		CanGraduate:       e.Verdict.CanGraduate,
		Message:           e.Verdict.Message,
		LastTerm:          e.Verdict.LastTerm,
		GPA:               e.Verdict.GPA.StringFixed(2),
		Reasons:           len(e.Verdict.Reasons),
		CreatedAt:         e.CreatedAt,
		ReportURL:         reportURL(e),
	}
}

func reportURL(e audit.Evaluation) string {
	return "/api/evaluations/" + e.ID.String() + "/report"
}
