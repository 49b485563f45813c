package curriculum

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/curriculum-engine/transcript"
	"gopkg.in/yaml.v3"
)

//go:embed bm-2024.yaml
var defaultDefinition []byte

// =============================================================================
// ERRORS
// =============================================================================

// ErrInvalidDefinition is returned when a curriculum definition fails validation.
var ErrInvalidDefinition = errors.New("invalid curriculum definition")

// DefinitionError names the offending field.
type DefinitionError struct {
	Field  string
	Reason string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid curriculum definition: %s: %s", e.Field, e.Reason)
}

func (e *DefinitionError) Unwrap() error {
	return ErrInvalidDefinition
}

func invalid(field, format string, args ...any) error {
	return &DefinitionError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// =============================================================================
// FACTORY
// =============================================================================

// Format of a serialized definition.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Default returns the embedded default program (BM, 2024 revision).
func Default() (*RuleSet, error) {
	return Parse(defaultDefinition, FormatYAML)
}

// MustDefault is Default for process start-up and tests.
func MustDefault() *RuleSet {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

// LoadFile reads a .yaml, .yml or .json definition.
func LoadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curriculum %s: %w", path, err)
	}
	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}
	return Parse(data, format)
}

// Parse decodes and validates a serialized definition.
func Parse(data []byte, format Format) (*RuleSet, error) {
	var def Definition
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &def)
	default:
		err = yaml.Unmarshal(data, &def)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse curriculum %s: %w", format, err)
	}
	return New(def)
}

// New validates a definition and builds the immutable RuleSet.
func New(def Definition) (*RuleSet, error) {
	def = def.clone()

	if strings.TrimSpace(def.Version) == "" {
		return nil, invalid("version", "required")
	}
	if def.ProgramTerms <= 0 || def.ProgramTerms > transcript.MaxOrdinal {
		return nil, invalid("program_terms", "must be between 1 and %d, got %d", transcript.MaxOrdinal, def.ProgramTerms)
	}
	if def.MinCreditsPerTerm < 0 {
		return nil, invalid("min_credits_per_term", "must not be negative")
	}
	minGPA, err := decimal.NewFromString(strings.TrimSpace(def.MinGPA))
	if err != nil {
		return nil, invalid("min_gpa", "%q is not a number", def.MinGPA)
	}
	if len(def.Grades.Failing) == 0 {
		return nil, invalid("grades.failing", "at least one failing grade is required")
	}

	switch def.GPASource {
	case "":
		def.GPASource = GPAFromFinalTerm
	case GPAFromFinalTerm, GPAFromLastMarker:
	default:
		return nil, invalid("gpa_source", "unknown source %q", def.GPASource)
	}
	if len(def.TermMarkers) == 0 {
		def.TermMarkers = []string{"Term"}
	}
	if def.PlaceholderGrade == "" && len(def.Grades.Passing) > 0 {
		def.PlaceholderGrade = def.Grades.Passing[len(def.Grades.Passing)/2]
	}
	for i, p := range def.CodePrefixes {
		def.CodePrefixes[i] = strings.ToUpper(strings.TrimSpace(p))
	}

	r := &RuleSet{
		def:          def,
		programTerms: def.ProgramTerms,
		minCredits:   def.MinCreditsPerTerm,
		minGPA:       minGPA,
		failing:      gradeSet(def.Grades.Failing),
		satisfactory: gradeSet(def.Grades.Satisfactory),
		known:        gradeSet(def.Grades.Passing, def.Grades.Failing, def.Grades.Satisfactory),
		mandatory:    make(map[int][]CourseRef),
		electives:    make(map[int][]CourseRef),
	}
	for g := range r.satisfactory {
		if r.failing[g] {
			return nil, invalid("grades", "%s is both failing and satisfactory", g)
		}
	}

	for _, t := range def.Terms {
		if t.Term < 1 || t.Term > def.ProgramTerms {
			return nil, invalid("terms", "term %d outside program length %d", t.Term, def.ProgramTerms)
		}
		mandatory, err := courseRefs(t.Term, "mandatory", t.Mandatory)
		if err != nil {
			return nil, err
		}
		electives, err := courseRefs(t.Term, "electives", t.Electives)
		if err != nil {
			return nil, err
		}
		r.mandatory[t.Term] = append(r.mandatory[t.Term], mandatory...)
		r.electives[t.Term] = append(r.electives[t.Term], electives...)
	}

	for i, qj := range def.Quotas {
		q, err := parseQuota(i, qj, def.ProgramTerms)
		if err != nil {
			return nil, err
		}
		r.quotas = append(r.quotas, q)
	}

	return r, nil
}

func gradeSet(lists ...[]string) map[transcript.Grade]bool {
	out := make(map[transcript.Grade]bool)
	for _, list := range lists {
		for _, g := range list {
			out[transcript.NormalizeGrade(g)] = true
		}
	}
	return out
}

func courseRefs(term int, field string, courses []CourseJSON) ([]CourseRef, error) {
	out := make([]CourseRef, 0, len(courses))
	seen := make(map[string]bool)
	for _, c := range courses {
		code := transcript.NormalizeCode(c.Code)
		if code == "" {
			return nil, invalid(fmt.Sprintf("terms[%d].%s", term, field), "course without code")
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, CourseRef{Code: code, Name: strings.TrimSpace(c.Name)})
	}
	return out, nil
}

func parseQuota(i int, qj QuotaJSON, programTerms int) (Quota, error) {
	field := fmt.Sprintf("quotas[%d]", i)
	if len(qj.Terms) == 0 {
		return Quota{}, invalid(field, "terms required")
	}
	if len(qj.Prefixes) == 0 {
		return Quota{}, invalid(field, "prefixes required")
	}
	if qj.Required <= 0 {
		return Quota{}, invalid(field, "required must be positive")
	}
	terms := append([]int{}, qj.Terms...)
	sort.Ints(terms)
	for _, t := range terms {
		if t < 1 || t > programTerms {
			return Quota{}, invalid(field, "term %d outside program length %d", t, programTerms)
		}
	}
	q := Quota{
		Name:           qj.Name,
		Terms:          terms,
		Required:       qj.Required,
		AssessableFrom: qj.AssessableFrom,
		Exclude:        make(map[string]bool, len(qj.Exclude)),
	}
	if q.Name == "" {
		q.Name = field
	}
	if q.AssessableFrom == 0 {
		q.AssessableFrom = terms[0]
	}
	for _, p := range qj.Prefixes {
		q.Prefixes = append(q.Prefixes, strings.ToUpper(strings.TrimSpace(p)))
	}
	for _, code := range qj.Exclude {
		q.Exclude[transcript.NormalizeCode(code)] = true
	}
	return q, nil
}
