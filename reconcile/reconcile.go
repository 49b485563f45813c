/*
Package reconcile merges the two transcript sources into one canonical record.

PURPOSE:
  The extraction service and the deterministic parser are independent and
  both fallible. The reconciler takes the extraction service's structured
  guess as the base record and lets the parser fill the gaps.

RULES:
  1. A malformed or non-mapping extraction payload counts as empty; every
     field of the result is populated so later stages never see nil.
  2. For each term the parser found:
       - term already present: add parser courses whose code is not there
       - term absent: append it with a credit total of 0, which the
         evaluator later reports as a credit deficiency
  3. Courses from the extraction service are never removed or overwritten.
  4. The parser's GPA is used only when the extraction service gave none.

  A code found by either source ends up exactly once under its term.

SEE ALSO:
  - decode.go: Defensive decoding of the raw extraction payload
  - parser/parser.go: Produces the parser side of the merge
*/
package reconcile

import (
	"fmt"

	"github.com/warp/curriculum-engine/parser"
	"github.com/warp/curriculum-engine/transcript"
)

// Reconcile decodes the raw extraction payload and merges parser output.
func Reconcile(raw any, parsed parser.Result) transcript.Transcript {
	return Merge(Decode(raw), parsed)
}

// Merge adds parser findings to an extracted transcript without touching
// what the extraction service already supplied. The input is not modified.
func Merge(extracted transcript.Transcript, parsed parser.Result) transcript.Transcript {
	out := extracted.Clone()
	out.Sort()

	for _, pt := range parsed.Terms {
		term, created := out.Upsert(pt.Ordinal)
		if created {
			term.Credits = transcript.Credits(0)
			out.Note(fmt.Sprintf("parser: %s found only in text; credit total set to 0", term.Label))
		}
		added := 0
		for _, c := range pt.Courses {
			if term.Add(c) {
				added++
			}
		}
		if added > 0 && !created {
			out.Note(fmt.Sprintf("parser: %d course(s) added to %s", added, term.Label))
		}
	}

	if out.GPA == nil && parsed.GPA != nil {
		gpa := *parsed.GPA
		out.GPA = &gpa
		out.Note("parser: gpa taken from transcript text")
	}
	return out
}
