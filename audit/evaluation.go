package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/warp/curriculum-engine/compliance"
	"github.com/warp/curriculum-engine/docx"
	"github.com/warp/curriculum-engine/extraction"
	"github.com/warp/curriculum-engine/transcript"
)

// =============================================================================
// EVALUATION RECORD
// =============================================================================

// Source says what an evaluation was computed from.
type Source string

const (
	SourceDocument Source = "document" // uploaded or local transcript document
	SourcePayload  Source = "payload"  // structured payload supplied directly
)

// Evaluation is one persisted graduation check.
type Evaluation struct {
	ID                uuid.UUID             `json:"id"`
	Filename          string                `json:"filename"`
	Source            Source                `json:"source"`
	CurriculumVersion string                `json:"curriculum_version"`
	Transcript        transcript.Transcript `json:"transcript"`
	Verdict           compliance.Verdict    `json:"verdict"`
	CreatedAt         time.Time             `json:"created_at"`
}

// Store persists evaluations. Get returns (nil, nil) when the ID is unknown.
type Store interface {
	Save(ctx context.Context, e *Evaluation) error
	Get(ctx context.Context, id uuid.UUID) (*Evaluation, error)
	// List returns at most limit evaluations, newest first.
	List(ctx context.Context, limit int) ([]Evaluation, error)
	// Prune deletes evaluations created before the cutoff and reports how many.
	Prune(ctx context.Context, before time.Time) (int, error)
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrEvaluationNotFound is returned when no evaluation has the given ID.
var ErrEvaluationNotFound = errors.New("evaluation not found")

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return docx.IsRejection(err)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEvaluationNotFound)
}

// IsUpstream returns true if the extraction service failed the request.
func IsUpstream(err error) bool {
	return extraction.IsUpstream(err)
}
