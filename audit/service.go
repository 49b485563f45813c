/*
Package audit runs the full graduation check for one transcript.

PURPOSE:
  Orchestrates the pipeline around the pure engine packages and persists
  the outcome:

    clean ──┬── parser.Parse ───────┐
            └── extractor.Extract ──┴── reconcile ── compliance ── store

  The parser and the extraction call run concurrently; both see the same
  cleaned text. An extraction failure fails the request; a malformed
  extraction answer does not (it is already the empty Payload by then).

OFFLINE MODE:
  With a nil Extractor the parser is the only source. The engine still
  produces a complete verdict; whatever the parser missed is reported as
  missing.

SEE ALSO:
  - evaluation.go: Evaluation record, Store interface, errors
  - store/sqlite, store/memory: Store implementations
*/
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warp/curriculum-engine/compliance"
	"github.com/warp/curriculum-engine/curriculum"
	"github.com/warp/curriculum-engine/extraction"
	"github.com/warp/curriculum-engine/parser"
	"github.com/warp/curriculum-engine/reconcile"
	"github.com/warp/curriculum-engine/transcript"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// Request is one transcript to check.
type Request struct {
	Filename string
	Text     string
}

// Service runs evaluations. It is safe for concurrent use.
type Service struct {
	rules     *curriculum.RuleSet
	parser    *parser.Parser
	extractor extraction.Extractor
	store     Store
	logger    *zap.Logger

	now   func() time.Time
	newID func() uuid.UUID
}

// NewService wires a service. extractor and store may be nil: a nil
// extractor means offline mode, a nil store means results are not kept.
func NewService(rules *curriculum.RuleSet, extractor extraction.Extractor, store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		rules:     rules,
		parser:    parser.New(rules),
		extractor: extractor,
		store:     store,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.New,
	}
}

// Rules returns the rule set evaluations are checked against.
func (s *Service) Rules() *curriculum.RuleSet { return s.rules }

// Offline reports whether the service runs without an extraction service.
func (s *Service) Offline() bool { return s.extractor == nil }

// Evaluate checks a transcript text.
func (s *Service) Evaluate(ctx context.Context, req Request) (*Evaluation, error) {
	text := parser.Clean(req.Text)
	log := s.logger.With(zap.String("filename", req.Filename))

	var (
		parsed parser.Result
		raw    extraction.Payload
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		parsed = s.parser.Parse(text)
		return nil
	})
	g.Go(func() error {
		if s.extractor == nil {
			raw = extraction.Payload{}
			return nil
		}
		p, err := s.extractor.Extract(gctx, text)
		if err != nil {
			return fmt.Errorf("extract %q: %w", req.Filename, err)
		}
		raw = p
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error("evaluation aborted", zap.Error(err))
		return nil, err
	}

	log.Debug("sources ready",
		zap.Int("parsed_terms", len(parsed.Terms)),
		zap.Int("parsed_courses", parsed.Courses()),
		zap.Int("payload_keys", len(raw)))

	t := reconcile.Reconcile(raw, parsed)
	return s.finish(ctx, req.Filename, SourceDocument, t)
}

// EvaluateTranscript checks an already-structured payload, shaped like the
// extraction service's answer. Nothing is parsed.
func (s *Service) EvaluateTranscript(ctx context.Context, name string, raw any) (*Evaluation, error) {
	t := reconcile.Reconcile(raw, parser.Result{})
	return s.finish(ctx, name, SourcePayload, t)
}

func (s *Service) finish(ctx context.Context, filename string, source Source, t transcript.Transcript) (*Evaluation, error) {
	verdict := compliance.Evaluate(t, s.rules)

	e := &Evaluation{
		ID:                s.newID(),
		Filename:          filename,
		Source:            source,
		CurriculumVersion: s.rules.Version(),
		Transcript:        t,
		Verdict:           verdict,
		CreatedAt:         s.now(),
	}

	s.logger.Info("evaluation completed",
		zap.String("id", e.ID.String()),
		zap.String("filename", filename),
		zap.String("source", string(source)),
		zap.Bool("can_graduate", verdict.CanGraduate),
		zap.Int("last_term", verdict.LastTerm),
		zap.Int("reasons", len(verdict.Reasons)),
		zap.Int("diagnostics", len(t.Diagnostics)))

	if s.store != nil {
		if err := s.store.Save(ctx, e); err != nil {
			return nil, fmt.Errorf("failed to save evaluation: %w", err)
		}
	}
	return e, nil
}

// Get returns a stored evaluation.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Evaluation, error) {
	if s.store == nil {
		return nil, ErrEvaluationNotFound
	}
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load evaluation: %w", err)
	}
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrEvaluationNotFound, id)
	}
	return e, nil
}

// List returns recent evaluations, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Evaluation, error) {
	if s.store == nil {
		return []Evaluation{}, nil
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	list, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	return list, nil
}

// Prune deletes stored evaluations older than maxAge.
func (s *Service) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	if s.store == nil || maxAge <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-maxAge)
	n, err := s.store.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune evaluations: %w", err)
	}
	if n > 0 {
		s.logger.Info("evaluations pruned", zap.Int("count", n), zap.Time("before", cutoff))
	}
	return n, nil
}
