package extraction

import (
	"fmt"
	"strings"

	"github.com/warp/curriculum-engine/curriculum"
)

// SystemInstruction frames every extraction call.
const SystemInstruction = "You are an assistant that reads academic transcripts and returns their contents as JSON. " +
	"You never judge graduation eligibility; you only transcribe."

// schema is the shape the decoder in package reconcile expects.
const schema = `{
  "terms": [
    {
      "term": "1. Term",
      "credits": 30,
      "courses": [
        {"code": "AIB101", "name": "Course name", "grade": "BB"}
      ]
    }
  ],
  "gpa": 2.63
}`

// BuildPrompt renders the extraction request for one transcript. The
// curriculum tables are included so the model can recognise course codes
// that the text mangles.
func BuildPrompt(rules *curriculum.RuleSet, text string) string {
	var b strings.Builder

	b.WriteString("### Task\n")
	b.WriteString("Extract every course and grade from the transcript below, grouped by term.\n")
	fmt.Fprintf(&b, "- Terms are numbered 1 to %d and may be labelled with any of: %s.\n",
		rules.ProgramTerms(), strings.Join(rules.TermMarkers(), ", "))
	b.WriteString("- Report every term label as \"<n>. Term\".\n")
	b.WriteString("- For each term report the total credits (AKTS/ECTS), usually shown as \"Toplam AKTS\" at the end of the term. Use null if it is not shown.\n")
	b.WriteString("- For each course report the code without spaces (e.g. \"BM101\"), the name and the letter grade exactly as printed.\n")
	fmt.Fprintf(&b, "- Grades are one of: %s.\n", strings.Join(gradeTokens(rules), ", "))
	b.WriteString("- Report the overall GPA (\"Genel Ortalama\", usually after the final term) as a number, or null if it is not shown.\n")
	b.WriteString("- Do not add courses that are not in the transcript. Do not evaluate anything.\n")
	b.WriteString("- If the transcript cannot be read, return {}.\n\n")

	b.WriteString("### Output\n")
	b.WriteString("Return only JSON with this structure:\n")
	b.WriteString(schema)
	b.WriteString("\n\n")

	b.WriteString("### Known course codes\n")
	for n := 1; n <= rules.ProgramTerms(); n++ {
		mandatory := rules.Mandatory(n)
		electives := rules.Electives(n)
		if len(mandatory) == 0 && len(electives) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%d. Term\n", n)
		for _, c := range mandatory {
			fmt.Fprintf(&b, "- %s: %s\n", c.Code, c.Name)
		}
		if len(electives) > 0 {
			codes := make([]string, len(electives))
			for i, c := range electives {
				codes[i] = c.Code
			}
			fmt.Fprintf(&b, "- electives: %s\n", strings.Join(codes, ", "))
		}
	}

	b.WriteString("\n### Transcript\n")
	b.WriteString(text)
	b.WriteString("\n")
	return b.String()
}

func gradeTokens(rules *curriculum.RuleSet) []string {
	g := rules.Definition().Grades
	out := make([]string, 0, len(g.Passing)+len(g.Failing)+len(g.Satisfactory))
	out = append(out, g.Passing...)
	out = append(out, g.Satisfactory...)
	out = append(out, g.Failing...)
	return out
}
