package audit_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/warp/curriculum-engine/audit"
	"github.com/warp/curriculum-engine/curriculum"
	"github.com/warp/curriculum-engine/extraction"
	"github.com/warp/curriculum-engine/store/memory"
)

// The opencensus view worker is started by an init in the extraction
// client's dependency tree and runs for the life of the process.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// =============================================================================
// FAKES
// =============================================================================

type fakeExtractor struct {
	payload extraction.Payload
	err     error
	delay   time.Duration
	calls   atomic.Int32
	seen    atomic.Value
}

func (f *fakeExtractor) Extract(ctx context.Context, text string) (extraction.Payload, error) {
	f.calls.Add(1)
	f.seen.Store(text)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.payload, f.err
}

const transcriptText = "1. Yarıyıl\r\n" +
	"AIB101 Atatürk İlkeleri ve İnkılap Tarihi I 2 2.0 BB\n" +
	"BM101 Algoritmalar ve Programlama I 5 3.0 FF\n" +
	"2. Yarıyıl\n" +
	"BM102 Algoritmalar ve Programlama II 5 3.0 CC\n"

// =============================================================================
// TESTS
// =============================================================================

func TestService_EvaluateMergesBothSources(t *testing.T) {
	// GIVEN: The extraction service saw term 1 only, with credits
	ext := &fakeExtractor{payload: extraction.Payload{
		"terms": []any{
			map[string]any{"term": "1. Term", "credits": 30.0, "courses": []any{
				map[string]any{"code": "AIB101", "name": "Atatürk İlkeleri ve İnkılap Tarihi I", "grade": "BB"},
			}},
		},
		"gpa": 2.7,
	}}
	store := memory.New()
	svc := audit.NewService(curriculum.MustDefault(), ext, store, nil)

	// WHEN: Evaluating the text
	e, err := svc.Evaluate(context.Background(), audit.Request{Filename: "t.docx", Text: transcriptText})

	// THEN: The parser filled BM101 into term 1 and added term 2
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, int32(1), ext.calls.Load())
	assert.NotContains(t, ext.seen.Load().(string), "\r", "the extractor sees cleaned text")

	term1 := e.Transcript.Term(1)
	require.NotNil(t, term1)
	assert.Equal(t, []string{"AIB101", "BM101"}, term1.Codes())
	assert.Equal(t, 30, term1.CreditTotal())
	term2 := e.Transcript.Term(2)
	require.NotNil(t, term2)
	assert.Equal(t, 0, term2.CreditTotal())

	// AND: The verdict reflects the failed course and the gaps
	assert.False(t, e.Verdict.CanGraduate)
	require.NotEmpty(t, e.Verdict.FailedMandatory)
	assert.Equal(t, "BM101", e.Verdict.FailedMandatory[0].Code)
	assert.Equal(t, "bm-2024", e.CurriculumVersion)
	assert.Equal(t, audit.SourceDocument, e.Source)

	// AND: It was stored
	got, err := svc.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
}

func TestService_OfflineUsesParserOnly(t *testing.T) {
	svc := audit.NewService(curriculum.MustDefault(), nil, nil, nil)
	assert.True(t, svc.Offline())

	e, err := svc.Evaluate(context.Background(), audit.Request{Filename: "t.docx", Text: transcriptText})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, e.Transcript.Ordinals())
	assert.Equal(t, []int{3, 4, 5, 6, 7, 8}, e.Verdict.MissingTerms)
}

func TestService_UpstreamFailureFailsRequest(t *testing.T) {
	upstream := &extraction.UpstreamError{Kind: extraction.ErrQuotaExceeded, Attempts: 3, Err: errors.New("429")}
	store := memory.New()
	svc := audit.NewService(curriculum.MustDefault(), &fakeExtractor{err: upstream}, store, nil)

	e, err := svc.Evaluate(context.Background(), audit.Request{Filename: "t.docx", Text: transcriptText})

	assert.Nil(t, e)
	require.Error(t, err)
	assert.True(t, audit.IsUpstream(err))
	assert.ErrorIs(t, err, extraction.ErrQuotaExceeded)

	list, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, list, "failed evaluations are not stored")
}

func TestService_CancelledContextStopsExtraction(t *testing.T) {
	svc := audit.NewService(curriculum.MustDefault(), &fakeExtractor{delay: time.Hour}, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.Evaluate(ctx, audit.Request{Filename: "t.docx", Text: transcriptText})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestService_EvaluateTranscript(t *testing.T) {
	svc := audit.NewService(curriculum.MustDefault(), &fakeExtractor{}, memory.New(), nil)

	e, err := svc.EvaluateTranscript(context.Background(), "api", map[string]any{
		"semesters": []any{map[string]any{"semester": "8. Yarıyıl", "akts": 12.0, "courses": []any{}}},
	})

	require.NoError(t, err)
	assert.Equal(t, audit.SourcePayload, e.Source)
	assert.Equal(t, 8, e.Verdict.LastTerm)
	assert.Contains(t, e.Verdict.CreditIssues, "8. Term: total credits 12 < 30")

	_, err = svc.EvaluateTranscript(context.Background(), "junk", "not a mapping")
	require.NoError(t, err, "malformed payloads degrade to deficiencies, not errors")
}

func TestService_GetAndList(t *testing.T) {
	svc := audit.NewService(curriculum.MustDefault(), nil, memory.New(), nil)
	ctx := context.Background()

	first, err := svc.EvaluateTranscript(ctx, "first", map[string]any{})
	require.NoError(t, err)
	second, err := svc.EvaluateTranscript(ctx, "second", map[string]any{})
	require.NoError(t, err)

	_, err = svc.Get(ctx, uuid.New())
	assert.True(t, audit.IsNotFound(err))

	list, err := svc.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	ids := []uuid.UUID{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, ids)
}

func TestService_PruneHonoursRetention(t *testing.T) {
	store := memory.New()
	svc := audit.NewService(curriculum.MustDefault(), nil, store, nil)
	ctx := context.Background()

	_, err := svc.EvaluateTranscript(ctx, "kept", map[string]any{})
	require.NoError(t, err)

	// Zero retention keeps everything
	n, err := svc.Prune(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = svc.Prune(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	time.Sleep(5 * time.Millisecond)
	n, err = svc.Prune(ctx, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := svc.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
