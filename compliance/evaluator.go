package compliance

import (
	"fmt"
	"strings"

	"github.com/warp/curriculum-engine/curriculum"
	"github.com/warp/curriculum-engine/transcript"
)

// =============================================================================
// COMPLIANCE EVALUATOR
// =============================================================================

// Evaluate checks a canonical transcript against a rule set and returns the
// itemised verdict. Every failing predicate contributes a reason; there is
// no short-circuit. Lists are ordered by term, then by curriculum order.
func Evaluate(t transcript.Transcript, rules *curriculum.RuleSet) Verdict {
	v := newVerdict()
	v.CurriculumVersion = rules.Version()
	v.MinGPA = rules.MinGPA()
	v.GPA = t.GPAValue()

	c := CheckCompleteness(t, rules)
	v.LastTerm = c.LastTerm
	v.MissingTerms = append(v.MissingTerms, c.MissingTerms...)

	failedElective := make(map[string]bool)
	for _, term := range termsInScope(t, rules) {
		v.MissingMandatory = append(v.MissingMandatory, missingMandatory(term, rules)...)

		for _, course := range term.Courses {
			if !rules.IsFailing(course.Grade) {
				continue
			}
			failed := FailedCourse{
				Term:    term.Label,
				Ordinal: term.Ordinal,
				Code:    course.Code,
				Name:    course.Name,
				Grade:   course.Grade.String(),
			}
			switch {
			case rules.IsMandatory(term.Ordinal, course.Code):
				v.FailedMandatory = append(v.FailedMandatory, failed)
			case rules.IsElective(term.Ordinal, course.Code) && !failedElective[course.Code]:
				failedElective[course.Code] = true
				v.FailedElectives = append(v.FailedElectives, failed)
			}
		}

		if issue, ok := creditIssue(term, rules); ok {
			v.CreditIssues = append(v.CreditIssues, issue)
		}
	}

	quotasMet := true
	for _, q := range rules.Quotas() {
		res := evaluateQuota(t, q, c.LastTerm, rules)
		v.Quotas = append(v.Quotas, res)
		if !res.Met {
			quotasMet = false
			v.ElectiveIssues = append(v.ElectiveIssues, quotaIssue(q, res))
		}
	}

	gpaMet := v.GPA.GreaterThanOrEqual(v.MinGPA)

	v.Reasons = reasons(&v, rules, gpaMet)
	v.CanGraduate = c.LastTerm >= rules.ProgramTerms() &&
		len(v.MissingMandatory) == 0 &&
		len(v.FailedMandatory) == 0 &&
		len(v.FailedElectives) == 0 &&
		len(v.CreditIssues) == 0 &&
		quotasMet &&
		gpaMet
	v.Message = Message(v)
	return v
}

// Message renders the human-readable summary for a verdict.
func Message(v Verdict) string {
	if v.CanGraduate {
		return MessageGraduate
	}
	return messageBlocked + strings.Join(v.Reasons, "; ") + "."
}

// termsInScope returns the transcript's terms plus an empty stand-in for
// every program term that is absent, in ordinal order.
func termsInScope(t transcript.Transcript, rules *curriculum.RuleSet) []*transcript.Term {
	last := rules.ProgramTerms()
	if t.LastTerm() > last {
		last = t.LastTerm()
	}
	var out []*transcript.Term
	for n := 1; n <= last; n++ {
		if term := t.Term(n); term != nil {
			out = append(out, term)
			continue
		}
		if n <= rules.ProgramTerms() {
			empty := transcript.TermOf(n)
			out = append(out, &empty)
		}
	}
	return out
}

// evaluateQuota counts distinct eligible, non-failed codes inside the
// quota's term window.
func evaluateQuota(t transcript.Transcript, q curriculum.Quota, lastTerm int, rules *curriculum.RuleSet) QuotaResult {
	res := QuotaResult{
		Name:     q.Name,
		Window:   q.Window(),
		Required: q.Required,
		Counted:  []string{},
		Eligible: lastTerm >= q.AssessableFrom,
	}
	seen := make(map[string]bool)
	for _, n := range q.Terms {
		term := t.Term(n)
		if term == nil {
			continue
		}
		for _, course := range term.Courses {
			if seen[course.Code] || !q.Eligible(course.Code) || rules.IsFailing(course.Grade) {
				continue
			}
			seen[course.Code] = true
			res.Counted = append(res.Counted, course.Code)
		}
	}
	res.Completed = len(res.Counted)
	res.Met = res.Completed >= res.Required
	return res
}

func quotaIssue(q curriculum.Quota, res QuotaResult) string {
	prefixes := strings.Join(q.Prefixes, ", ")
	if !res.Eligible {
		return fmt.Sprintf("%s: not yet eligible; %d of %d required electives (%s) completed so far",
			res.Window, res.Completed, res.Required, prefixes)
	}
	return fmt.Sprintf("%s: completed %d of %d required electives (%s)",
		res.Window, res.Completed, res.Required, prefixes)
}

// reasons lists one entry per failing predicate, in a fixed order.
func reasons(v *Verdict, rules *curriculum.RuleSet, gpaMet bool) []string {
	out := []string{}
	if n := len(v.MissingTerms); n > 0 {
		labels := make([]string, n)
		for i, ord := range v.MissingTerms {
			labels[i] = transcript.Label(ord)
		}
		out = append(out, fmt.Sprintf("%d term(s) missing from the transcript (%s)", n, strings.Join(labels, ", ")))
	}
	if n := len(v.MissingMandatory); n > 0 {
		out = append(out, fmt.Sprintf("%d mandatory course(s) missing", n))
	}
	if n := len(v.FailedMandatory); n > 0 {
		out = append(out, fmt.Sprintf("%d mandatory course(s) failed", n))
	}
	if n := len(v.FailedElectives); n > 0 {
		out = append(out, fmt.Sprintf("%d elective course(s) failed", n))
	}
	if n := len(v.CreditIssues); n > 0 {
		out = append(out, fmt.Sprintf("%d term(s) below the minimum of %d credits", n, rules.MinCreditsPerTerm()))
	}
	for _, q := range v.Quotas {
		if q.Met {
			continue
		}
		if q.Eligible {
			out = append(out, fmt.Sprintf("elective requirement %q not met (%d of %d)", q.Name, q.Completed, q.Required))
		} else {
			out = append(out, fmt.Sprintf("elective requirement %q not yet assessable (%d of %d so far)", q.Name, q.Completed, q.Required))
		}
	}
	if !gpaMet {
		// The GPA is printed unrounded: 2.495 must not read as 2.50.
		out = append(out, fmt.Sprintf("GPA %s is below the minimum %s", v.GPA.String(), v.MinGPA.StringFixed(2)))
	}
	return out
}
