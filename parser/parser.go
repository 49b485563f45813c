/*
Package parser is the deterministic line parser.

PURPOSE:
  Extracts term/course/grade triples straight from cleaned transcript text.
  It is the fallback and cross-check for the extraction service: whatever
  it finds is merged additively by the reconciler.

LAYOUTS:
  Term marker (sets the current term for tabular lines):
    3. Yarıyıl
    5. Term
    Semester 2

  Tabular (code, name tokens, credit, weight, grade):
    BM101 Algoritmalar ve Programlama I 5 3.0 BB

  Inline-annotated (carries its own term, grade optional):
    BM429 - Optimizasyon (Term: 7. Term)
    BM429 - Optimizasyon (Yarıyıl: 7. Yarıyıl) AA

  GPA line (see RuleSet.GPASource):
    Genel Ortalama 2.63

CONTRACT:
  Best effort. Parse never panics and never errors: lines matching no
  layout are skipped, and text with no recognisable line yields an empty
  Result. Only codes whose prefix is on the curriculum allow-list count.

SEE ALSO:
  - clean.go: Text normalisation applied before parsing
  - reconcile/reconcile.go: Merges Result into the canonical transcript
*/
package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/curriculum-engine/curriculum"
	"github.com/warp/curriculum-engine/transcript"
)

// Result is what the parser found. An empty Result is a normal outcome.
type Result struct {
	Terms []transcript.Term
	GPA   *decimal.Decimal
}

// Empty reports whether nothing was recognised.
func (r Result) Empty() bool {
	return len(r.Terms) == 0 && r.GPA == nil
}

// Courses returns the number of course records found.
func (r Result) Courses() int {
	n := 0
	for _, t := range r.Terms {
		n += len(t.Courses)
	}
	return n
}

// Parser holds the patterns derived from a curriculum. It is stateless
// between calls and safe for concurrent use.
type Parser struct {
	rules   *curriculum.RuleSet
	code    *regexp.Regexp
	prefix  *regexp.Regexp
	marker  *regexp.Regexp
	markerN *regexp.Regexp
	inline  *regexp.Regexp
	gpa     *regexp.Regexp
}

var numberToken = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)

// New builds a parser for the curriculum's code prefixes and term markers.
func New(rules *curriculum.RuleSet) *Parser {
	prefixes := quoteAll(rules.CodePrefixes())
	// Longest first so "MTH" is tried before a shorter overlapping prefix.
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
	markers := strings.Join(quoteAll(rules.TermMarkers()), "|")
	codeAlt := strings.Join(prefixes, "|")
	if codeAlt == "" {
		codeAlt = `[A-Z]{2,4}`
	}

	return &Parser{
		rules:   rules,
		code:    regexp.MustCompile(`^(?:` + codeAlt + `)\d{3}[A-Z]?$`),
		prefix:  regexp.MustCompile(`^(?:` + codeAlt + `)$`),
		marker:  regexp.MustCompile(`(?i)^(\d{1,2})\s*\.?\s*(?:` + markers + `)(?:[^\p{L}]|$)`),
		markerN: regexp.MustCompile(`(?i)^(?:` + markers + `)\s*:?\s*(\d{1,2})(?:\D|$)`),
		inline: regexp.MustCompile(`(?i)^([A-Z]{2,4}\s?\d{3}[A-Z]?)\s*-\s*(.+?)\s*\(\s*(?:` + markers + `)\s*:\s*(\d{1,2})\s*\.?\s*(?:` +
			markers + `)?\s*\)\s*(\S+)?$`),
		gpa: regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])(genel\s+not\s+ortalamas[ıi]|genel\s+ortalama|genel|gano|cgpa|gpa)\s*:?\s*([0-4][.,]\d{1,2})`),
	}
}

// Parse scans cleaned text line by line.
func (p *Parser) Parse(text string) Result {
	terms := make(map[int]*transcript.Term)
	var gpa *decimal.Decimal
	current := 0

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if ordinal, course, ok := p.parseInline(line); ok {
			termFor(terms, ordinal).Add(course)
			continue
		}
		if course, ok := p.parseTabular(line); ok {
			if current > 0 {
				termFor(terms, current).Add(course)
			}
			continue
		}
		if ordinal, ok := p.parseMarker(line); ok {
			current = ordinal
		}
		if value, ok := p.parseGPA(line); ok && p.acceptGPA(current) {
			gpa = &value
		}
	}

	result := Result{Terms: make([]transcript.Term, 0, len(terms)), GPA: gpa}
	for _, t := range terms {
		result.Terms = append(result.Terms, *t)
	}
	sort.Slice(result.Terms, func(i, j int) bool {
		return result.Terms[i].Ordinal < result.Terms[j].Ordinal
	})
	return result
}

func (p *Parser) parseInline(line string) (int, transcript.Course, bool) {
	m := p.inline.FindStringSubmatch(line)
	if m == nil {
		return 0, transcript.Course{}, false
	}
	code := transcript.NormalizeCode(m[1])
	if !p.code.MatchString(code) {
		return 0, transcript.Course{}, false
	}
	ordinal, ok := transcript.ParseOrdinal(m[3])
	if !ok {
		return 0, transcript.Course{}, false
	}
	grade := string(p.rules.PlaceholderGrade())
	if m[4] != "" && p.rules.IsGrade(m[4]) {
		grade = m[4]
	}
	course, err := transcript.NewCourse(code, m[2], grade)
	if err != nil {
		return 0, transcript.Course{}, false
	}
	return ordinal, course, true
}

func (p *Parser) parseTabular(line string) (transcript.Course, bool) {
	fields := strings.Fields(line)
	// "BM 101 ..." splits the code over two tokens.
	if len(fields) > 1 && p.prefix.MatchString(strings.ToUpper(fields[0])) {
		fields = append([]string{fields[0] + fields[1]}, fields[2:]...)
	}
	// Code, credit, weight and grade; the name may be missing.
	if len(fields) < 4 {
		return transcript.Course{}, false
	}
	code := transcript.NormalizeCode(fields[0])
	if !p.code.MatchString(code) {
		return transcript.Course{}, false
	}
	n := len(fields)
	grade, weight, credit := fields[n-1], fields[n-2], fields[n-3]
	if !p.rules.IsGrade(grade) || !numberToken.MatchString(weight) || !numberToken.MatchString(credit) {
		return transcript.Course{}, false
	}
	course, err := transcript.NewCourse(code, strings.Join(fields[1:n-3], " "), grade)
	if err != nil {
		return transcript.Course{}, false
	}
	return course, true
}

func (p *Parser) parseMarker(line string) (int, bool) {
	m := p.marker.FindStringSubmatch(line)
	if m == nil {
		m = p.markerN.FindStringSubmatch(line)
	}
	if m == nil {
		return 0, false
	}
	return transcript.ParseOrdinal(m[1])
}

// parseGPA reads the GPA on a line. When a line carries both a term GPA and
// a cumulative one ("GPA: 3.20 CGPA: 2.10"), the cumulative label wins.
func (p *Parser) parseGPA(line string) (decimal.Decimal, bool) {
	value := ""
	for _, m := range p.gpa.FindAllStringSubmatchIndex(line, -1) {
		// "2.105" is not a two-decimal GPA.
		if m[5] < len(line) && line[m[5]] >= '0' && line[m[5]] <= '9' {
			continue
		}
		if !strings.EqualFold(line[m[2]:m[3]], "gpa") {
			value = line[m[4]:m[5]]
			break
		}
		if value == "" {
			value = line[m[4]:m[5]]
		}
	}
	if value == "" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(strings.Replace(value, ",", ".", 1))
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// acceptGPA applies the curriculum's GPA source policy to the term context
// a GPA line appears in.
func (p *Parser) acceptGPA(current int) bool {
	if p.rules.GPASource() == curriculum.GPAFromLastMarker {
		return true
	}
	return current == p.rules.ProgramTerms()
}

func termFor(terms map[int]*transcript.Term, ordinal int) *transcript.Term {
	t, ok := terms[ordinal]
	if !ok {
		nt := transcript.TermOf(ordinal)
		t = &nt
		terms[ordinal] = t
	}
	return t
}

func quoteAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, regexp.QuoteMeta(s))
		}
	}
	return out
}
