/*
Package curriculum provides the versioned, immutable curriculum rule store.

PURPOSE:
  Holds everything the compliance evaluator checks a transcript against:
  mandatory courses per term, elective pools per term, elective quotas,
  the minimum per-term credit load, the minimum GPA and the grade tokens
  that mean "failed" versus "satisfactory".

WHY A DEFINITION + RULESET SPLIT?
  - Definition is a plain data carrier with yaml/json tags. Program offices
    edit it as a file; the API serves it back for display.
  - RuleSet is built once from a Definition at process start, validated,
    and never mutated afterwards. It is passed explicitly to the parser and
    the evaluator, so concurrent evaluations share it safely.

YAML SCHEMA (abridged):
  version: bm-2024
  program_terms: 8
  min_credits_per_term: 30
  min_gpa: "2.50"
  grades: {passing: [AA, BA, ...], failing: [FF, FD], satisfactory: [YT]}
  terms:
    - term: 7
      mandatory: [{code: BM401, name: ...}]
      electives: [{code: BM429, name: Optimizasyon}]
  quotas:
    - name: late-electives
      terms: [7, 8]
      prefixes: [BM, MTH]
      exclude: [BM401, BM499, BM498]
      required: 10
      assessable_from: 7

SEE ALSO:
  - ruleset.go: Immutable RuleSet and its queries
  - factory.go: Parsing, validation and the embedded default program
*/
package curriculum

// =============================================================================
// DEFINITION SCHEMA TYPES
// =============================================================================

// Definition is the file representation of a curriculum.
type Definition struct {
	Version           string      `yaml:"version" json:"version"`
	Name              string      `yaml:"name" json:"name"`
	ProgramTerms      int         `yaml:"program_terms" json:"program_terms"`
	TermMarkers       []string    `yaml:"term_markers" json:"term_markers"`
	CodePrefixes      []string    `yaml:"code_prefixes" json:"code_prefixes"`
	Grades            GradesJSON  `yaml:"grades" json:"grades"`
	PlaceholderGrade  string      `yaml:"placeholder_grade" json:"placeholder_grade"`
	MinCreditsPerTerm int         `yaml:"min_credits_per_term" json:"min_credits_per_term"`
	MinGPA            string      `yaml:"min_gpa" json:"min_gpa"`
	GPASource         string      `yaml:"gpa_source" json:"gpa_source"`
	Terms             []TermJSON  `yaml:"terms" json:"terms"`
	Quotas            []QuotaJSON `yaml:"quotas" json:"quotas"`
}

// GradesJSON lists the grade tokens by meaning.
type GradesJSON struct {
	Passing      []string `yaml:"passing" json:"passing"`
	Failing      []string `yaml:"failing" json:"failing"`
	Satisfactory []string `yaml:"satisfactory" json:"satisfactory"`
}

// TermJSON holds the course tables of one term.
type TermJSON struct {
	Term      int          `yaml:"term" json:"term"`
	Mandatory []CourseJSON `yaml:"mandatory" json:"mandatory"`
	Electives []CourseJSON `yaml:"electives" json:"electives"`
}

// CourseJSON is a curriculum course reference.
type CourseJSON struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
}

// QuotaJSON is an elective-category quota.
type QuotaJSON struct {
	Name           string   `yaml:"name" json:"name"`
	Terms          []int    `yaml:"terms" json:"terms"`
	Prefixes       []string `yaml:"prefixes" json:"prefixes"`
	Exclude        []string `yaml:"exclude" json:"exclude"`
	Required       int      `yaml:"required" json:"required"`
	AssessableFrom int      `yaml:"assessable_from" json:"assessable_from"`
}

// GPA sources. See RuleSet.GPASource.
const (
	GPAFromFinalTerm  = "final_term"
	GPAFromLastMarker = "last_marker"
)

func (d Definition) clone() Definition {
	out := d
	out.TermMarkers = append([]string{}, d.TermMarkers...)
	out.CodePrefixes = append([]string{}, d.CodePrefixes...)
	out.Grades = GradesJSON{
		Passing:      append([]string{}, d.Grades.Passing...),
		Failing:      append([]string{}, d.Grades.Failing...),
		Satisfactory: append([]string{}, d.Grades.Satisfactory...),
	}
	out.Terms = make([]TermJSON, len(d.Terms))
	for i, t := range d.Terms {
		out.Terms[i] = TermJSON{
			Term:      t.Term,
			Mandatory: append([]CourseJSON{}, t.Mandatory...),
			Electives: append([]CourseJSON{}, t.Electives...),
		}
	}
	out.Quotas = make([]QuotaJSON, len(d.Quotas))
	for i, q := range d.Quotas {
		out.Quotas[i] = QuotaJSON{
			Name:           q.Name,
			Terms:          append([]int{}, q.Terms...),
			Prefixes:       append([]string{}, q.Prefixes...),
			Exclude:        append([]string{}, q.Exclude...),
			Required:       q.Required,
			AssessableFrom: q.AssessableFrom,
		}
	}
	return out
}
