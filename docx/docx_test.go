package docx_test

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/curriculum-engine/docx"
)

const body = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>1. Yarıyıl</w:t></w:r></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>AIB101</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t xml:space="preserve">Atatürk İlkeleri </w:t></w:r><w:r><w:t>I</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>2</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>2</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>BB</w:t></w:r></w:p></w:tc>
      </w:tr>
      <w:tr>
        <w:tc><w:p/></w:tc>
        <w:tc><w:p><w:r><w:t>Toplam AKTS</w:t></w:r><w:r><w:tab/></w:r><w:r><w:t>30</w:t></w:r></w:p></w:tc>
      </w:tr>
      <w:tr>
        <w:tc><w:p><w:r><w:t>BM491</w:t></w:r></w:p></w:tc>
        <w:tc><w:tbl><w:tr>
          <w:tc><w:p><w:r><w:t>Seçmeli</w:t></w:r></w:p></w:tc>
          <w:tc><w:p><w:r><w:t>5</w:t></w:r></w:p></w:tc>
        </w:tr></w:tbl></w:tc>
        <w:tc><w:p><w:r><w:t>CC</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
    <w:p/>
    <w:p><w:r><w:t>Genel Ortalama</w:t></w:r><w:r><w:br/></w:r><w:r><w:t>2.63</w:t></w:r></w:p>
  </w:body>
</w:document>`

func buildDocx(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestCheckFilename(t *testing.T) {
	assert.NoError(t, docx.CheckFilename("transcript.docx"))
	assert.NoError(t, docx.CheckFilename("TRANSCRIPT.DOCX"))
	assert.NoError(t, docx.CheckFilename("macro.docm"))
	assert.NoError(t, docx.CheckFilename("template.dotx"))

	assert.ErrorIs(t, docx.CheckFilename(""), docx.ErrEmptyFilename)
	assert.ErrorIs(t, docx.CheckFilename("   "), docx.ErrEmptyFilename)
	assert.ErrorIs(t, docx.CheckFilename("transcript.pdf"), docx.ErrUnsupportedExtension)
	assert.ErrorIs(t, docx.CheckFilename("transcript.doc"), docx.ErrUnsupportedExtension)
	assert.ErrorIs(t, docx.CheckFilename("transcript"), docx.ErrUnsupportedExtension)
	assert.True(t, docx.IsRejection(docx.CheckFilename("a.txt")))
}

func TestReadBytes_ParagraphsAndTableRows(t *testing.T) {
	data := buildDocx(t, map[string]string{
		"[Content_Types].xml": `<Types/>`,
		"word/document.xml":   body,
	})

	text, err := docx.ReadBytes(data)

	require.NoError(t, err)
	assert.Equal(t,
		"1. Yarıyıl\n"+
			"AIB101 Atatürk İlkeleri I 2 2 BB\n"+
			"Toplam AKTS 30\n"+
			"BM491 Seçmeli 5 CC\n"+
			"Genel Ortalama\n"+
			"2.63",
		text)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transcript.docx")
	require.NoError(t, os.WriteFile(path, buildDocx(t, map[string]string{"word/document.xml": body}), 0o600))

	text, err := docx.ReadFile(path)

	require.NoError(t, err)
	assert.Contains(t, text, "AIB101 Atatürk İlkeleri I 2 2 BB")

	_, err = docx.ReadFile(filepath.Join(dir, "transcript.pdf"))
	assert.ErrorIs(t, err, docx.ErrUnsupportedExtension)

	_, err = docx.ReadFile(filepath.Join(dir, "missing.docx"))
	assert.ErrorIs(t, err, docx.ErrUnreadable)
}

func TestReadBytes_Rejections(t *testing.T) {
	_, err := docx.ReadBytes(nil)
	assert.ErrorIs(t, err, docx.ErrNoFile)

	_, err = docx.ReadBytes([]byte("not a zip"))
	assert.ErrorIs(t, err, docx.ErrUnreadable)

	// No word/document.xml
	_, err = docx.ReadBytes(buildDocx(t, map[string]string{"word/styles.xml": "<x/>"}))
	assert.ErrorIs(t, err, docx.ErrUnreadable)

	// A body without paragraphs or tables
	_, err = docx.ReadBytes(buildDocx(t, map[string]string{"word/document.xml": `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body></w:body></w:document>`}))
	assert.ErrorIs(t, err, docx.ErrUnreadable)

	_, err = docx.ReadBytes(buildDocx(t, map[string]string{"word/document.xml": "<w:document><w:body>"}))
	assert.ErrorIs(t, err, docx.ErrUnreadable)
}
