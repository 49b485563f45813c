package transcript_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/curriculum-engine/transcript"
)

func TestParseOrdinal(t *testing.T) {
	cases := map[string]int{
		"3. Term":     3,
		"3. Yarıyıl":  3,
		"3rd term":    3,
		"Term 3":      3,
		"8":           8,
		"12. Yarıyıl": 12,
	}
	for label, want := range cases {
		got, ok := transcript.ParseOrdinal(label)
		assert.True(t, ok, label)
		assert.Equal(t, want, got, label)
	}

	for _, bad := range []string{"", "Term", "0. Term", "2021 Fall"} {
		_, ok := transcript.ParseOrdinal(bad)
		assert.False(t, ok, bad)
	}
}

func TestNewCourse_NormalizesAndRejectsMissingCode(t *testing.T) {
	c, err := transcript.NewCourse(" bm 101 ", " Algoritmalar ", "bb")
	require.NoError(t, err)
	assert.Equal(t, "BM101", c.Code)
	assert.Equal(t, "Algoritmalar", c.Name)
	assert.Equal(t, transcript.Grade("BB"), c.Grade)

	_, err = transcript.NewCourse("  ", "Nameless", "AA")
	assert.ErrorIs(t, err, transcript.ErrMissingCode)
}

func TestNewTerm_RejectsLabelWithoutOrdinal(t *testing.T) {
	term, err := transcript.NewTerm("5. Yarıyıl")
	require.NoError(t, err)
	assert.Equal(t, 5, term.Ordinal)
	assert.Equal(t, "5. Term", term.Label)

	_, err = transcript.NewTerm("Summer school")
	assert.ErrorIs(t, err, transcript.ErrInvalidTermLabel)
}

func TestTermAdd_KeepsFirstRecordAndFillsEmptyName(t *testing.T) {
	// GIVEN: A term holding BM101 without a name
	term := transcript.TermOf(1)
	require.True(t, term.Add(transcript.Course{Code: "BM101", Grade: "BB"}))

	// WHEN: The same code arrives again with a name and another grade
	added := term.Add(transcript.Course{Code: "BM101", Name: "Algoritmalar", Grade: "FF"})

	// THEN: Nothing is appended, the grade is kept, the name is filled in
	assert.False(t, added)
	require.Len(t, term.Courses, 1)
	assert.Equal(t, transcript.Grade("BB"), term.Courses[0].Grade)
	assert.Equal(t, "Algoritmalar", term.Courses[0].Name)
	assert.True(t, term.Has("bm101"))
}

func TestTranscript_UpsertKeepsOrdinalOrder(t *testing.T) {
	tr := transcript.New()
	tr.Upsert(3)
	tr.Upsert(1)
	_, created := tr.Upsert(3)

	assert.False(t, created)
	assert.Equal(t, []int{1, 3}, tr.Ordinals())
	assert.Equal(t, 3, tr.LastTerm())
}

func TestTranscript_CloneIsDeep(t *testing.T) {
	gpa := decimal.RequireFromString("2.63")
	tr := transcript.New()
	term, _ := tr.Upsert(1)
	term.Credits = transcript.Credits(30)
	term.Add(transcript.Course{Code: "BM101", Grade: "AA"})
	tr.GPA = &gpa

	cp := tr.Clone()
	cp.Terms[0].Courses[0].Grade = "FF"
	*cp.Terms[0].Credits = 0

	assert.Equal(t, transcript.Grade("AA"), tr.Terms[0].Courses[0].Grade)
	assert.Equal(t, 30, tr.Terms[0].CreditTotal())
	assert.True(t, cp.GPAValue().Equal(gpa))
}
