package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/warp/curriculum-engine/audit"
	"github.com/warp/curriculum-engine/report"
	"github.com/warp/curriculum-engine/store/sqlite"
)

// =============================================================================
// CURRICULUM
// =============================================================================

func (a *app) curriculumCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "curriculum",
		Short: "Print the active curriculum rule set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, "yaml", "json"); err != nil {
				return err
			}
			rules, err := a.cfg.RuleSet()
			if err != nil {
				return fmt.Errorf("failed to load curriculum: %w", err)
			}
			def := rules.Definition()

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(def)
			}
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(def); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml or json")
	return cmd
}

// =============================================================================
// HISTORY
// =============================================================================

func (a *app) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored evaluations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()

			svc, closeStore, err := a.historyService()
			if err != nil {
				return err
			}
			defer closeStore()

			list, err := svc.List(ctx, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No evaluations stored.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tFILE\tRESULT\tLAST TERM\tGPA\tREASONS")
			for _, e := range list {
				result := "not eligible"
				if e.Verdict.CanGraduate {
					result = "eligible"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%d\n",
					e.ID, e.CreatedAt.Format("2006-01-02 15:04"), e.Filename, result,
					e.Verdict.LastTerm, e.Verdict.GPA.StringFixed(2), len(e.Verdict.Reasons))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", audit.DefaultListLimit, "Maximum number of evaluations")
	return cmd
}

// =============================================================================
// REPORT
// =============================================================================

func (a *app) reportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "report <id>",
		Short: "Print the report of a stored evaluation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, "markdown", "html", "json"); err != nil {
				return err
			}
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid evaluation ID %q: %w", args[0], err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()

			svc, closeStore, err := a.historyService()
			if err != nil {
				return err
			}
			defer closeStore()

			e, err := svc.Get(ctx, id)
			if err != nil {
				return err
			}
			if format == "html" {
				_, err = cmd.OutOrStdout().Write(report.HTML(e))
				return err
			}
			return writeEvaluation(cmd.OutOrStdout(), e, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "Output format: markdown, html or json")
	return cmd
}

// historyService opens the history database behind a read-only use of the
// service. The returned func closes the database.
func (a *app) historyService() (*audit.Service, func(), error) {
	rules, err := a.cfg.RuleSet()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load curriculum: %w", err)
	}
	store, err := sqlite.New(a.cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history: %w", err)
	}
	return audit.NewService(rules, nil, store, a.logger), func() { store.Close() }, nil
}
