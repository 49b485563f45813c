package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/curriculum-engine/audit"
	"github.com/warp/curriculum-engine/curriculum"
	"github.com/warp/curriculum-engine/docx"
	"github.com/warp/curriculum-engine/extraction"
	"github.com/warp/curriculum-engine/report"
	"github.com/warp/curriculum-engine/store/sqlite"
)

// =============================================================================
// EVALUATE
// =============================================================================

func (a *app) evaluateCmd() *cobra.Command {
	var (
		offline bool
		save    bool
		format  string
	)
	cmd := &cobra.Command{
		Use:   "evaluate <transcript>",
		Short: "Evaluate one transcript",
		Long: `Evaluate a transcript document or JSON payload.

Documents are read, cleaned and parsed; unless --offline is given the
extraction service is asked for its reading too and both are merged.
A .json file is evaluated as a structured payload without parsing.

Examples:
  audit evaluate ogrenci.docx
  audit evaluate --offline --format markdown ogrenci.docx
  audit evaluate payload.json --save=false`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, "json", "markdown"); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()

			e, err := a.evaluate(ctx, args[0], offline, save)
			if err != nil {
				return err
			}
			return writeEvaluation(cmd.OutOrStdout(), e, format)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Do not call the extraction service")
	cmd.Flags().BoolVar(&save, "save", true, "Store the result in the history database")
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "Output format: json or markdown")
	return cmd
}

func (a *app) evaluate(ctx context.Context, path string, offline, save bool) (*audit.Evaluation, error) {
	rules, err := a.cfg.RuleSet()
	if err != nil {
		return nil, fmt.Errorf("failed to load curriculum: %w", err)
	}

	var store audit.Store
	if save {
		s, err := sqlite.New(a.cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		defer s.Close()
		store = s
	}

	name := filepath.Base(path)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		svc := audit.NewService(rules, nil, store, a.logger)
		return svc.EvaluateTranscript(ctx, name, extraction.DecodePayload(string(data)))
	}

	if err := docx.CheckFilename(name); err != nil {
		return nil, err
	}
	text, err := docx.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var extractor extraction.Extractor
	if !offline {
		extractor, err = a.extractor(ctx, rules)
		if err != nil {
			return nil, err
		}
	}
	svc := audit.NewService(rules, extractor, store, a.logger)
	return svc.Evaluate(ctx, audit.Request{Filename: name, Text: text})
}

func (a *app) extractor(ctx context.Context, rules *curriculum.RuleSet) (extraction.Extractor, error) {
	if !a.cfg.Extraction.Active() {
		a.logger.Warn("no extraction API key configured, evaluating offline")
		return nil, nil
	}
	gen, err := extraction.NewGeminiGenerator(ctx, a.cfg.Extraction.APIKey, a.cfg.Extraction.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction client: %w", err)
	}
	client := extraction.NewClient(gen, rules, a.logger)
	client.MaxAttempts = a.cfg.Extraction.MaxAttempts
	client.Backoff = a.cfg.Extraction.Backoff
	a.logger.Debug("extraction enabled", zap.String("model", gen.Model()))
	return client, nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func writeEvaluation(w io.Writer, e *audit.Evaluation, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(e)
	}
	_, err := w.Write(report.Markdown(e))
	return err
}

func checkFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q (want %s)", format, strings.Join(allowed, " or "))
}
