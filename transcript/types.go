/*
Package transcript defines the canonical academic record the engine works on.

PURPOSE:
  A transcript arrives from two fallible sources (the extraction service and
  the deterministic line parser). Both are normalised into the same tagged
  records defined here, so the reconciler and the evaluator never touch
  loosely-typed maps.

KEY CONCEPTS IN THIS FILE (types.go):
  - Grade:      A grade token (AA..DD, FF/FD, YT). Pass/fail is decided by the
                curriculum's failing set, never here.
  - Course:     {code, name, grade}. Identity is the normalised code.
  - Term:       One academic period with an ordered, code-unique course list
                and an optional credit total.
  - Transcript: Ordered terms, optional GPA and append-only diagnostics.

DESIGN PRINCIPLES:
  1. Validated construction: NewCourse/NewTerm reject records missing required
     fields at the boundary instead of failing later.
  2. Precision: GPA uses decimal.Decimal so 2.50 compares exactly.
  3. Additive merge: Term.Add never overwrites an existing course.

SEE ALSO:
  - ordinal.go: Term label parsing and rendering
  - reconcile/reconcile.go: Builds a Transcript from both sources
  - compliance/evaluator.go: Reads a Transcript to produce a Verdict
*/
package transcript

import (
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrMissingCode is returned when a course record has no usable code.
	ErrMissingCode = errors.New("course code is required")

	// ErrInvalidTermLabel is returned when a term label carries no ordinal.
	ErrInvalidTermLabel = errors.New("term label has no ordinal")
)

// =============================================================================
// GRADE
// =============================================================================

// Grade is a grade token as printed on the transcript.
type Grade string

// NormalizeGrade trims and upper-cases a raw grade token.
func NormalizeGrade(raw string) Grade {
	return Grade(strings.ToUpper(strings.TrimSpace(raw)))
}

func (g Grade) String() string { return string(g) }

// =============================================================================
// COURSE
// =============================================================================

// Course is a single course attempt within a term.
type Course struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Grade Grade  `json:"grade"`
}

// NormalizeCode trims, removes inner spaces and upper-cases a course code,
// so "bm 101" and "BM101" identify the same course.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
}

// NewCourse builds a course with a normalised code and grade.
func NewCourse(code, name string, grade string) (Course, error) {
	c := Course{
		Code:  NormalizeCode(code),
		Name:  strings.TrimSpace(name),
		Grade: NormalizeGrade(grade),
	}
	if c.Code == "" {
		return Course{}, ErrMissingCode
	}
	return c, nil
}

// =============================================================================
// TERM
// =============================================================================

// Term is one academic period. Courses are unique by normalised code.
type Term struct {
	Ordinal int      `json:"ordinal"`
	Label   string   `json:"label"`
	Courses []Course `json:"courses"`
	Credits *int     `json:"credits"`
}

// NewTerm builds an empty term from a label such as "3. Term".
func NewTerm(label string) (Term, error) {
	n, ok := ParseOrdinal(label)
	if !ok {
		return Term{}, ErrInvalidTermLabel
	}
	return Term{Ordinal: n, Label: Label(n), Courses: []Course{}}, nil
}

// TermOf builds an empty term for an ordinal.
func TermOf(ordinal int) Term {
	return Term{Ordinal: ordinal, Label: Label(ordinal), Courses: []Course{}}
}

// Has reports whether a course with the given code is present.
func (t *Term) Has(code string) bool {
	return t.index(NormalizeCode(code)) >= 0
}

// Course returns the course with the given code.
func (t *Term) Course(code string) (Course, bool) {
	i := t.index(NormalizeCode(code))
	if i < 0 {
		return Course{}, false
	}
	return t.Courses[i], true
}

// Add appends c unless its code is already present. When it is, an empty
// name on the existing record is filled from c; nothing else changes.
// Returns true if c was appended.
func (t *Term) Add(c Course) bool {
	if i := t.index(c.Code); i >= 0 {
		if t.Courses[i].Name == "" && c.Name != "" {
			t.Courses[i].Name = c.Name
		}
		return false
	}
	t.Courses = append(t.Courses, c)
	return true
}

// CreditTotal returns the credit total, treating an unknown total as zero.
func (t *Term) CreditTotal() int {
	if t.Credits == nil {
		return 0
	}
	return *t.Credits
}

// Codes returns the course codes in record order.
func (t *Term) Codes() []string {
	codes := make([]string, len(t.Courses))
	for i, c := range t.Courses {
		codes[i] = c.Code
	}
	return codes
}

func (t *Term) index(code string) int {
	for i, c := range t.Courses {
		if c.Code == code {
			return i
		}
	}
	return -1
}

func (t Term) clone() Term {
	out := t
	out.Courses = append([]Course{}, t.Courses...)
	if t.Credits != nil {
		v := *t.Credits
		out.Credits = &v
	}
	return out
}

// Credits returns a pointer to v, for building terms with a known credit total.
func Credits(v int) *int { return &v }

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the canonical, reconciled academic record.
//
// Terms are ordered by ordinal and unique by ordinal. Diagnostics is
// append-only: stages add notes about rejected or repaired input.
type Transcript struct {
	Terms       []Term           `json:"terms"`
	GPA         *decimal.Decimal `json:"gpa"`
	Diagnostics []string         `json:"diagnostics"`
}

// New returns an empty transcript with every field populated.
func New() Transcript {
	return Transcript{Terms: []Term{}, Diagnostics: []string{}}
}

// Term returns a pointer to the term with the given ordinal, or nil.
func (t *Transcript) Term(ordinal int) *Term {
	for i := range t.Terms {
		if t.Terms[i].Ordinal == ordinal {
			return &t.Terms[i]
		}
	}
	return nil
}

// Upsert returns the term with the given ordinal, creating it in ordinal
// order when absent. The second value reports whether it was created.
func (t *Transcript) Upsert(ordinal int) (*Term, bool) {
	if term := t.Term(ordinal); term != nil {
		return term, false
	}
	t.Terms = append(t.Terms, TermOf(ordinal))
	t.Sort()
	return t.Term(ordinal), true
}

// Sort orders terms by ordinal.
func (t *Transcript) Sort() {
	sort.SliceStable(t.Terms, func(i, j int) bool {
		return t.Terms[i].Ordinal < t.Terms[j].Ordinal
	})
}

// LastTerm is the highest ordinal present, or 0 for an empty transcript.
func (t *Transcript) LastTerm() int {
	last := 0
	for _, term := range t.Terms {
		if term.Ordinal > last {
			last = term.Ordinal
		}
	}
	return last
}

// Ordinals returns the ordinals present in ascending order.
func (t *Transcript) Ordinals() []int {
	out := make([]int, 0, len(t.Terms))
	for _, term := range t.Terms {
		out = append(out, term.Ordinal)
	}
	sort.Ints(out)
	return out
}

// GPAValue returns the GPA, treating an absent GPA as zero.
func (t *Transcript) GPAValue() decimal.Decimal {
	if t.GPA == nil {
		return decimal.Zero
	}
	return *t.GPA
}

// Note appends a diagnostic.
func (t *Transcript) Note(msg string) {
	t.Diagnostics = append(t.Diagnostics, msg)
}

// Clone returns a deep copy.
func (t Transcript) Clone() Transcript {
	out := Transcript{
		Terms:       make([]Term, len(t.Terms)),
		Diagnostics: append([]string{}, t.Diagnostics...),
	}
	for i, term := range t.Terms {
		out.Terms[i] = term.clone()
	}
	if t.GPA != nil {
		g := *t.GPA
		out.GPA = &g
	}
	return out
}
