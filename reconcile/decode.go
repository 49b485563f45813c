package reconcile

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/curriculum-engine/transcript"
)

// Keys accepted for each field of the extraction payload. The first entry
// is the documented key; the rest are spellings the service has been seen
// to produce.
var (
	termsKeys   = []string{"terms", "semesters"}
	labelKeys   = []string{"term", "semester", "label"}
	coursesKeys = []string{"courses"}
	creditsKeys = []string{"credits", "akts", "ects"}
	gpaKeys     = []string{"gpa", "genel_ortalama"}
)

// Decode converts the extraction service's raw structured guess into a
// transcript. Anything that is not a well-formed mapping is treated as an
// empty one. Records missing required fields are rejected here and noted in
// Diagnostics; Decode never fails.
func Decode(raw any) transcript.Transcript {
	out := transcript.New()

	doc, ok := raw.(map[string]any)
	if !ok {
		if raw != nil {
			out.Note(fmt.Sprintf("extraction: payload is %T, not a mapping; treated as empty", raw))
		}
		return out
	}

	if v, ok := lookup(doc, gpaKeys); ok {
		if gpa, ok := toDecimal(v); ok {
			out.GPA = &gpa
		} else if v != nil {
			out.Note(fmt.Sprintf("extraction: gpa %v is not a number; ignored", v))
		}
	}

	rawTerms, _ := lookup(doc, termsKeys)
	list, ok := rawTerms.([]any)
	if !ok {
		if rawTerms != nil {
			out.Note("extraction: terms is not a list; ignored")
		}
		return out
	}

	for i, item := range list {
		decodeTerm(&out, i, item)
	}
	return out
}

func decodeTerm(out *transcript.Transcript, i int, item any) {
	rec, ok := item.(map[string]any)
	if !ok {
		out.Note(fmt.Sprintf("extraction: term record %d is not a mapping; rejected", i))
		return
	}
	labelValue, _ := lookup(rec, labelKeys)
	label := toString(labelValue)
	parsed, err := transcript.NewTerm(label)
	if err != nil {
		out.Note(fmt.Sprintf("extraction: term record %d (%q) rejected: %v", i, label, err))
		return
	}

	term, created := out.Upsert(parsed.Ordinal)
	if !created {
		out.Note(fmt.Sprintf("extraction: duplicate record for %s folded", term.Label))
	}

	if v, ok := lookup(rec, creditsKeys); ok && v != nil {
		if credits, ok := toInt(v); ok {
			if term.Credits == nil {
				term.Credits = transcript.Credits(credits)
			}
		} else {
			out.Note(fmt.Sprintf("extraction: %s credits %v is not a number; ignored", term.Label, v))
		}
	}

	coursesValue, _ := lookup(rec, coursesKeys)
	courses, _ := coursesValue.([]any)
	for j, c := range courses {
		cr, ok := c.(map[string]any)
		if !ok {
			out.Note(fmt.Sprintf("extraction: %s course %d is not a mapping; rejected", term.Label, j))
			continue
		}
		course, err := transcript.NewCourse(toString(cr["code"]), toString(cr["name"]), toString(cr["grade"]))
		if err != nil {
			out.Note(fmt.Sprintf("extraction: %s course %d rejected: %v", term.Label, j, err))
			continue
		}
		term.Add(course)
	}
}

func lookup(m map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return d, err == nil
	case string:
		s := strings.Replace(strings.TrimSpace(x), ",", ".", 1)
		d, err := decimal.NewFromString(s)
		return d, err == nil
	}
	return decimal.Zero, false
}

func toInt(v any) (int, bool) {
	d, ok := toDecimal(v)
	if !ok {
		return 0, false
	}
	return int(d.IntPart()), true
}
