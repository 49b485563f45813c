// Package report renders evaluations for people: Markdown for the CLI and
// stored reports, HTML for the browser.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/warp/curriculum-engine/audit"
	"github.com/warp/curriculum-engine/compliance"
)

const timeFormat = "2006-01-02 15:04 MST"

// Markdown renders an evaluation as a Markdown document.
func Markdown(e *audit.Evaluation) []byte {
	var b bytes.Buffer
	v := e.Verdict

	title := e.Filename
	if title == "" {
		title = e.ID.String()
	}
	fmt.Fprintf(&b, "# Graduation check: %s\n\n", inline(title))
	if v.CanGraduate {
		b.WriteString("**Result:** eligible to graduate\n\n")
	} else {
		b.WriteString("**Result:** not eligible to graduate\n\n")
	}
	fmt.Fprintf(&b, "> %s\n\n", inline(v.Message))

	fmt.Fprintf(&b, "- Curriculum: %s\n", inline(v.CurriculumVersion))
	fmt.Fprintf(&b, "- Evaluated: %s\n", e.CreatedAt.Format(timeFormat))
	fmt.Fprintf(&b, "- Last term: %d\n", v.LastTerm)
	fmt.Fprintf(&b, "- GPA: %s (minimum %s)\n\n", v.GPA.StringFixed(2), v.MinGPA.StringFixed(2))

	section(&b, "Reasons", len(v.Reasons), func() {
		bullets(&b, v.Reasons)
	})
	section(&b, "Missing mandatory courses", len(v.MissingMandatory), func() {
		table(&b, []string{"Term", "Code", "Name"}, len(v.MissingMandatory), func(i int) []string {
			m := v.MissingMandatory[i]
			return []string{m.Term, m.Code, m.Name}
		})
	})
	section(&b, "Failed mandatory courses", len(v.FailedMandatory), func() {
		failedTable(&b, v.FailedMandatory)
	})
	section(&b, "Failed electives", len(v.FailedElectives), func() {
		failedTable(&b, v.FailedElectives)
	})
	section(&b, "Credit issues", len(v.CreditIssues), func() {
		bullets(&b, v.CreditIssues)
	})
	section(&b, "Elective requirements", len(v.Quotas), func() {
		table(&b, []string{"Requirement", "Window", "Completed", "Required", "Status"}, len(v.Quotas), func(i int) []string {
			return quotaRow(v.Quotas[i])
		})
		if len(v.ElectiveIssues) > 0 {
			b.WriteString("\n")
			bullets(&b, v.ElectiveIssues)
		}
	})

	b.WriteString("## Transcript\n\n")
	if len(e.Transcript.Terms) == 0 {
		b.WriteString("No terms were found.\n\n")
	}
	for i := range e.Transcript.Terms {
		term := &e.Transcript.Terms[i]
		credits := "credits unknown"
		if term.Credits != nil {
			credits = fmt.Sprintf("%d credits", *term.Credits)
		}
		fmt.Fprintf(&b, "### %s (%s)\n\n", term.Label, credits)
		table(&b, []string{"Code", "Name", "Grade"}, len(term.Courses), func(j int) []string {
			c := term.Courses[j]
			return []string{c.Code, c.Name, c.Grade.String()}
		})
		b.WriteString("\n")
	}

	if len(e.Transcript.Diagnostics) > 0 {
		b.WriteString("## Diagnostics\n\n")
		bullets(&b, e.Transcript.Diagnostics)
	}
	return b.Bytes()
}

// HTML renders an evaluation as a complete HTML page. Raw HTML in the
// source (course names, filenames) is not passed through and only links
// with trusted schemes are rendered.
func HTML(e *audit.Evaluation) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{
		Title: "Graduation check",
		Flags: html.CommonFlags | html.CompletePage | html.SkipHTML | html.Safelink | html.NofollowLinks,
	})
	return markdown.ToHTML(Markdown(e), p, r)
}

// =============================================================================
// HELPERS
// =============================================================================

func section(b *bytes.Buffer, title string, n int, body func()) {
	fmt.Fprintf(b, "## %s\n\n", title)
	if n == 0 {
		b.WriteString("None.\n\n")
		return
	}
	body()
	b.WriteString("\n")
}

func bullets(b *bytes.Buffer, items []string) {
	for _, s := range items {
		fmt.Fprintf(b, "- %s\n", inline(s))
	}
}

func table(b *bytes.Buffer, header []string, n int, row func(int) []string) {
	if n == 0 {
		b.WriteString("No courses.\n")
		return
	}
	writeRow(b, header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(b, sep)
	for i := 0; i < n; i++ {
		writeRow(b, row(i))
	}
}

func failedTable(b *bytes.Buffer, courses []compliance.FailedCourse) {
	table(b, []string{"Term", "Code", "Name", "Grade"}, len(courses), func(i int) []string {
		c := courses[i]
		return []string{c.Term, c.Code, c.Name, c.Grade}
	})
}

func quotaRow(q compliance.QuotaResult) []string {
	status := "met"
	switch {
	case !q.Eligible:
		status = "not yet assessable"
	case !q.Met:
		status = "not met"
	}
	return []string{q.Name, q.Window, fmt.Sprint(q.Completed), fmt.Sprint(q.Required), status}
}

func writeRow(b *bytes.Buffer, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(strings.ReplaceAll(inline(c), "|", `\|`))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

// markdownEscaper neutralizes the characters that open links, images and
// emphasis. Replacement is a single pass, so inserted backslashes are not
// escaped again.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"[", `\[`,
	"]", `\]`,
	"(", `\(`,
	")", `\)`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
)

// inline keeps user-supplied text on one line as literal Markdown text.
func inline(s string) string {
	return markdownEscaper.Replace(strings.Join(strings.Fields(s), " "))
}
