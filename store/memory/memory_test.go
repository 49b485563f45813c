package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/curriculum-engine/audit"
	"github.com/warp/curriculum-engine/store/memory"
	"github.com/warp/curriculum-engine/transcript"
)

func eval(name string, at time.Time) *audit.Evaluation {
	tr := transcript.New()
	term, _ := tr.Upsert(2)
	term.Add(transcript.Course{Code: "BM102", Grade: "AA"})
	return &audit.Evaluation{ID: uuid.New(), Filename: name, Transcript: tr, CreatedAt: at}
}

func TestMemory_ListOrdersByCreatedAt(t *testing.T) {
	m := memory.New()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Saved out of order
	require.NoError(t, m.Save(ctx, eval("b", base.Add(time.Hour))))
	require.NoError(t, m.Save(ctx, eval("c", base.Add(2*time.Hour))))
	require.NoError(t, m.Save(ctx, eval("a", base)))

	list, err := m.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{list[0].Filename, list[1].Filename, list[2].Filename})

	limited, _ := m.List(ctx, 1)
	require.Len(t, limited, 1)
	assert.Equal(t, "c", limited[0].Filename)

	none, _ := m.List(ctx, 0)
	assert.Empty(t, none)
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	m := memory.New()
	ctx := context.Background()
	e := eval("x", time.Now())
	require.NoError(t, m.Save(ctx, e))

	// Mutating the caller's record after Save does not leak into the store
	e.Transcript.Terms[0].Courses[0].Grade = "FF"

	got, err := m.Get(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, transcript.Grade("AA"), got.Transcript.Terms[0].Courses[0].Grade)

	got.Transcript.Terms[0].Courses[0].Grade = "DD"
	again, _ := m.Get(ctx, e.ID)
	assert.Equal(t, transcript.Grade("AA"), again.Transcript.Terms[0].Courses[0].Grade)

	missing, err := m.Get(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemory_SaveReplacesExistingID(t *testing.T) {
	m := memory.New()
	ctx := context.Background()
	e := eval("first", time.Now())
	require.NoError(t, m.Save(ctx, e))
	e.Filename = "second"
	require.NoError(t, m.Save(ctx, e))

	list, _ := m.List(ctx, 10)
	require.Len(t, list, 1)
	assert.Equal(t, "second", list[0].Filename)
}

func TestMemory_PruneDropsOlderEvaluations(t *testing.T) {
	m := memory.New()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	old := eval("old", base)
	require.NoError(t, m.Save(ctx, old))
	require.NoError(t, m.Save(ctx, eval("edge", base.Add(time.Hour))))
	require.NoError(t, m.Save(ctx, eval("new", base.Add(2*time.Hour))))

	n, err := m.Prune(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := m.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	list, _ := m.List(ctx, 10)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].Filename)
	assert.Equal(t, "edge", list[1].Filename)
}
