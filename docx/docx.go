/*
Package docx reads the text of Word documents.

PURPOSE:
  Transcripts arrive as .docx uploads. Only the text matters: each paragraph
  becomes one line and each table row becomes one line with its cells
  joined by spaces, which is the layout the line parser expects.

FORMAT:
  Parsing is delegated to github.com/fumiama/go-docx. Body items map to:
    paragraph   -> line (tabs become spaces, breaks split lines)
    table row   -> line (cell paragraphs space-joined)
    nested table -> folded into its enclosing cell

SEE ALSO:
  - parser/clean.go: Cleans what this package returns
*/
package docx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	godocx "github.com/fumiama/go-docx"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoFile is returned when no upload was supplied.
	ErrNoFile = errors.New("no file supplied")

	// ErrEmptyFilename is returned when the upload has no name.
	ErrEmptyFilename = errors.New("empty filename")

	// ErrUnsupportedExtension is returned for anything but a Word document.
	ErrUnsupportedExtension = errors.New("unsupported file type")

	// ErrUnreadable is returned when the document cannot be opened or parsed.
	ErrUnreadable = errors.New("document cannot be read")
)

// IsRejection reports whether err rejects the input before any reading.
func IsRejection(err error) bool {
	return errors.Is(err, ErrNoFile) ||
		errors.Is(err, ErrEmptyFilename) ||
		errors.Is(err, ErrUnsupportedExtension) ||
		errors.Is(err, ErrUnreadable)
}

// Extensions accepted by CheckFilename.
var Extensions = []string{".docx", ".docm", ".dotx"}

// CheckFilename rejects empty names and non-Word extensions.
func CheckFilename(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyFilename
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, ok := range Extensions {
		if ext == ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (accepted: %s)", ErrUnsupportedExtension, ext, strings.Join(Extensions, ", "))
}

// ReadFile reads the text of the document at path.
func ReadFile(path string) (string, error) {
	if err := CheckFilename(path); err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return ReadText(f, info.Size())
}

// ReadBytes reads the text of an in-memory document.
func ReadBytes(data []byte) (string, error) {
	return ReadText(bytes.NewReader(data), int64(len(data)))
}

// ReadText reads the text of a document of the given size.
func ReadText(r io.ReaderAt, size int64) (string, error) {
	if r == nil || size == 0 {
		return "", ErrNoFile
	}
	doc, err := godocx.Parse(r, size)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	// A missing word/document.xml parses as an empty body.
	if len(doc.Document.Body.Items) == 0 {
		return "", fmt.Errorf("%w: no document body", ErrUnreadable)
	}

	var lines []string
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *godocx.Paragraph:
			for _, line := range strings.Split(paragraphText(it), "\n") {
				if line = strings.TrimSpace(line); line != "" {
					lines = append(lines, line)
				}
			}
		case *godocx.Table:
			for _, row := range it.TableRows {
				var cells []string
				for _, c := range row.TableCells {
					if s := cellText(c); s != "" {
						cells = append(cells, s)
					}
				}
				if len(cells) > 0 {
					lines = append(lines, strings.Join(cells, " "))
				}
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

// =============================================================================
// TEXT
// =============================================================================

func paragraphText(p *godocx.Paragraph) string {
	return strings.TrimSpace(strings.ReplaceAll(p.String(), "\t", " "))
}

// cellText flattens a cell, nested tables included, onto one line.
func cellText(c *godocx.WTableCell) string {
	var parts []string
	for _, p := range c.Paragraphs {
		if s := paragraphText(p); s != "" {
			parts = append(parts, strings.ReplaceAll(s, "\n", " "))
		}
	}
	for _, t := range c.Tables {
		for _, row := range t.TableRows {
			for _, nested := range row.TableCells {
				if s := cellText(nested); s != "" {
					parts = append(parts, s)
				}
			}
		}
	}
	return strings.Join(parts, " ")
}
