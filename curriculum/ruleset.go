package curriculum

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/curriculum-engine/transcript"
)

// =============================================================================
// RULE SET - Immutable after construction
// =============================================================================

// CourseRef names a curriculum course.
type CourseRef struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Quota is an elective-category requirement: at least Required distinct,
// non-failed courses whose code carries one of Prefixes, taken in Terms,
// excluding the codes in Exclude.
type Quota struct {
	Name           string
	Terms          []int
	Prefixes       []string
	Exclude        map[string]bool
	Required       int
	AssessableFrom int
}

// Covers reports whether a term belongs to the quota window.
func (q Quota) Covers(term int) bool {
	for _, t := range q.Terms {
		if t == term {
			return true
		}
	}
	return false
}

// Eligible reports whether a course code can count toward the quota.
// Grades are checked by the caller.
func (q Quota) Eligible(code string) bool {
	code = transcript.NormalizeCode(code)
	if q.Exclude[code] {
		return false
	}
	for _, p := range q.Prefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

// Window renders the quota's term window, e.g. "Terms 7-8".
func (q Quota) Window() string {
	if len(q.Terms) == 1 {
		return transcript.Label(q.Terms[0])
	}
	parts := make([]string, len(q.Terms))
	for i, t := range q.Terms {
		parts[i] = strconv.Itoa(t)
	}
	if contiguous(q.Terms) {
		return "Terms " + parts[0] + "-" + parts[len(parts)-1]
	}
	return "Terms " + strings.Join(parts, ", ")
}

// RuleSet is a validated curriculum. All fields are unexported; accessors
// return copies, so a RuleSet can be shared across goroutines.
type RuleSet struct {
	def          Definition
	programTerms int
	minCredits   int
	minGPA       decimal.Decimal
	failing      map[transcript.Grade]bool
	satisfactory map[transcript.Grade]bool
	known        map[transcript.Grade]bool
	mandatory    map[int][]CourseRef
	electives    map[int][]CourseRef
	quotas       []Quota
}

// Version identifies the curriculum revision.
func (r *RuleSet) Version() string { return r.def.Version }

// Name is the program name.
func (r *RuleSet) Name() string { return r.def.Name }

// ProgramTerms is the program length in terms.
func (r *RuleSet) ProgramTerms() int { return r.programTerms }

// MinCreditsPerTerm is the minimum credit load of every term.
func (r *RuleSet) MinCreditsPerTerm() int { return r.minCredits }

// MinGPA is the minimum overall grade-point average.
func (r *RuleSet) MinGPA() decimal.Decimal { return r.minGPA }

// GPASource selects which GPA line the deterministic parser trusts.
func (r *RuleSet) GPASource() string { return r.def.GPASource }

// PlaceholderGrade is used for course records that carry no grade.
func (r *RuleSet) PlaceholderGrade() transcript.Grade {
	return transcript.NormalizeGrade(r.def.PlaceholderGrade)
}

// TermMarkers are the words that mark a term heading ("Term", "Yarıyıl").
func (r *RuleSet) TermMarkers() []string { return append([]string{}, r.def.TermMarkers...) }

// CodePrefixes is the allow-list of subject codes the parser recognises.
func (r *RuleSet) CodePrefixes() []string { return append([]string{}, r.def.CodePrefixes...) }

// Mandatory returns the mandatory courses of a term.
func (r *RuleSet) Mandatory(term int) []CourseRef {
	return append([]CourseRef{}, r.mandatory[term]...)
}

// Electives returns the elective pool of a term.
func (r *RuleSet) Electives(term int) []CourseRef {
	return append([]CourseRef{}, r.electives[term]...)
}

// IsMandatory reports whether code is mandatory in term.
func (r *RuleSet) IsMandatory(term int, code string) bool {
	return containsCode(r.mandatory[term], code)
}

// IsElective reports whether code is in the elective pool of term.
func (r *RuleSet) IsElective(term int, code string) bool {
	return containsCode(r.electives[term], code)
}

// Quotas returns the elective quotas.
func (r *RuleSet) Quotas() []Quota {
	out := make([]Quota, len(r.quotas))
	for i, q := range r.quotas {
		out[i] = q
		out[i].Terms = append([]int{}, q.Terms...)
		out[i].Prefixes = append([]string{}, q.Prefixes...)
		out[i].Exclude = make(map[string]bool, len(q.Exclude))
		for k, v := range q.Exclude {
			out[i].Exclude[k] = v
		}
	}
	return out
}

// ExcludedFromElectiveCount lists the codes that never count as electives.
func (r *RuleSet) ExcludedFromElectiveCount() []string {
	seen := map[string]bool{}
	for _, q := range r.quotas {
		for code := range q.Exclude {
			seen[code] = true
		}
	}
	out := make([]string, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// IsFailing reports whether a grade is in the failing set. This is the
// only pass/fail test in the system; satisfactory tokens are never failing.
func (r *RuleSet) IsFailing(g transcript.Grade) bool {
	g = transcript.NormalizeGrade(string(g))
	if r.satisfactory[g] {
		return false
	}
	return r.failing[g]
}

// IsGrade reports whether a token is any known grade.
func (r *RuleSet) IsGrade(token string) bool {
	return r.known[transcript.NormalizeGrade(token)]
}

// Definition returns a deep copy of the source definition.
func (r *RuleSet) Definition() Definition { return r.def.clone() }

func containsCode(refs []CourseRef, code string) bool {
	code = transcript.NormalizeCode(code)
	for _, ref := range refs {
		if ref.Code == code {
			return true
		}
	}
	return false
}

func contiguous(terms []int) bool {
	for i := 1; i < len(terms); i++ {
		if terms[i] != terms[i-1]+1 {
			return false
		}
	}
	return len(terms) > 1
}

