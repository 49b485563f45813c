package compliance

import (
	"fmt"

	"github.com/warp/curriculum-engine/curriculum"
	"github.com/warp/curriculum-engine/transcript"
)

// =============================================================================
// TERM-COMPLETENESS CHECKER
// =============================================================================

// Completeness describes which program terms the transcript covers and the
// deficiencies synthesised for the terms it does not.
type Completeness struct {
	LastTerm         int
	ExpectedTerms    []int
	MissingTerms     []int
	MissingMandatory []MissingCourse
	CreditIssues     []string
}

// CheckCompleteness finds every expected term absent from the transcript.
// Each absent term contributes all of its mandatory courses as missing and
// a zero-credit issue, exactly as an empty term would.
func CheckCompleteness(t transcript.Transcript, rules *curriculum.RuleSet) Completeness {
	c := Completeness{
		LastTerm:         t.LastTerm(),
		ExpectedTerms:    make([]int, 0, rules.ProgramTerms()),
		MissingTerms:     []int{},
		MissingMandatory: []MissingCourse{},
		CreditIssues:     []string{},
	}
	for n := 1; n <= rules.ProgramTerms(); n++ {
		c.ExpectedTerms = append(c.ExpectedTerms, n)
		if t.Term(n) != nil {
			continue
		}
		empty := transcript.TermOf(n)
		c.MissingTerms = append(c.MissingTerms, n)
		c.MissingMandatory = append(c.MissingMandatory, missingMandatory(&empty, rules)...)
		if issue, ok := creditIssue(&empty, rules); ok {
			c.CreditIssues = append(c.CreditIssues, issue)
		}
	}
	return c
}

// missingMandatory is the single place mandatory absence is computed.
func missingMandatory(term *transcript.Term, rules *curriculum.RuleSet) []MissingCourse {
	var out []MissingCourse
	for _, req := range rules.Mandatory(term.Ordinal) {
		if !term.Has(req.Code) {
			out = append(out, MissingCourse{
				Term:    term.Label,
				Ordinal: term.Ordinal,
				Code:    req.Code,
				Name:    req.Name,
			})
		}
	}
	return out
}

// creditIssue is the single place the per-term credit minimum is checked.
func creditIssue(term *transcript.Term, rules *curriculum.RuleSet) (string, bool) {
	total := term.CreditTotal()
	if total >= rules.MinCreditsPerTerm() {
		return "", false
	}
	return fmt.Sprintf("%s: total credits %d < %d", term.Label, total, rules.MinCreditsPerTerm()), true
}
