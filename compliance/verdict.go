/*
Package compliance decides whether a canonical transcript satisfies a curriculum.

PURPOSE:
  Cross-references the reconciled transcript with the curriculum rule set and
  produces a deterministic, explainable Verdict: a pass/fail decision plus
  every deficiency found, itemised.

KEY CONCEPTS:
  - Completeness: Which of the program's terms are absent entirely. Absence
                  is a deficiency: an absent term yields the same missing
                  mandatory courses and credit issue as an empty one.
  - Evaluation:   Per-term mandatory/elective/credit checks, elective quotas
                  and the GPA threshold, all reported in one pass.
  - Verdict:      Built fresh per evaluation; every field is populated, even
                  when empty, and nothing mutates it after Evaluate returns.

DECISION RULE:
  can_graduate = last_term >= program_terms
             AND no missing mandatory   AND no failed mandatory
             AND no failed electives    AND no credit issues
             AND every elective quota met
             AND gpa >= min_gpa

PURITY:
  Evaluate is a pure function of (transcript, rule set). No state carries
  between calls, so it is safe for concurrent use and idempotent.

SEE ALSO:
  - completeness.go: Term-completeness checker
  - evaluator.go: Compliance evaluator
  - curriculum/ruleset.go: The rules being checked
*/
package compliance

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// VERDICT
// =============================================================================

// MissingCourse is a mandatory course absent from its term.
type MissingCourse struct {
	Term    string `json:"term"`
	Ordinal int    `json:"term_ordinal"`
	Code    string `json:"code"`
	Name    string `json:"name"`
}

// FailedCourse is a course present with a failing grade.
type FailedCourse struct {
	Term    string `json:"term"`
	Ordinal int    `json:"term_ordinal"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	Grade   string `json:"grade"`
}

// QuotaResult reports progress on one elective quota.
type QuotaResult struct {
	Name      string   `json:"name"`
	Window    string   `json:"window"`
	Completed int      `json:"completed"`
	Required  int      `json:"required"`
	Counted   []string `json:"counted"`
	Eligible  bool     `json:"eligible"`
	Met       bool     `json:"met"`
}

// Verdict is the final, itemised graduation decision.
type Verdict struct {
	CanGraduate       bool            `json:"can_graduate"`
	Message           string          `json:"message"`
	Reasons           []string        `json:"reasons"`
	MissingMandatory  []MissingCourse `json:"missing_mandatory"`
	FailedMandatory   []FailedCourse  `json:"failed_mandatory"`
	FailedElectives   []FailedCourse  `json:"failed_electives"`
	CreditIssues      []string        `json:"credit_issues"`
	ElectiveIssues    []string        `json:"elective_issues"`
	Quotas            []QuotaResult   `json:"quotas"`
	LastTerm          int             `json:"last_term"`
	MissingTerms      []int           `json:"missing_terms"`
	GPA               decimal.Decimal `json:"gpa"`
	MinGPA            decimal.Decimal `json:"min_gpa"`
	CurriculumVersion string          `json:"curriculum_version"`
}

// Messages shown alongside the verdict.
const (
	MessageGraduate = "Congratulations! The student meets all graduation requirements."
	messageBlocked  = "The student cannot graduate: "
)

func newVerdict() Verdict {
	return Verdict{
		Reasons:          []string{},
		MissingMandatory: []MissingCourse{},
		FailedMandatory:  []FailedCourse{},
		FailedElectives:  []FailedCourse{},
		CreditIssues:     []string{},
		ElectiveIssues:   []string{},
		Quotas:           []QuotaResult{},
		MissingTerms:     []int{},
	}
}
