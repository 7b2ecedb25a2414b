// File: cmd/analyze.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/smishguard/api/schemas"
	"github.com/xkilldash9x/smishguard/internal/observability"
)

// newAnalyzeCmd creates the `analyze` command.
func newAnalyzeCmd() *cobra.Command {
	var (
		urls   []string
		asJSON bool
		stdin  bool
	)

	analyzeCmd := &cobra.Command{
		Use:   "analyze [text...]",
		Short: "Analyzes a message and the URLs it contains",
		Long: `Extracts every URL from the given message text, checks each one against the
reputation oracle and the local classifier, and prints the combined risk level.
URLs decoded elsewhere (for example from an image) can be passed with --url.`,
		Example: `  smishguard analyze "Your parcel is held, pay at bit.ly/abc123"
  smishguard analyze --url https://example.com/login --json
  cat message.txt | smishguard analyze --stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			if stdin {
				data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), int64(cfg.Server.MaxTextLength)*utf8.UTFMax+1))
				if err != nil {
					return fmt.Errorf("failed to read message from stdin: %w", err)
				}
				text = strings.TrimSpace(string(data))
			}
			req := schemas.AnalysisRequest{Text: text, URLs: urls}
			if err := validateRequest(req, cfg.Server.MaxTextLength, cfg.Server.MaxURLs); err != nil {
				return err
			}

			logger := observability.GetLogger()
			c, err := initializeComponents(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize analysis pipeline: %w", err)
			}
			defer c.Shutdown()

			return runAnalyze(ctx, cmd.OutOrStdout(), c.Analyzer, req, asJSON)
		},
	}

	analyzeCmd.Flags().StringSliceVarP(&urls, "url", "u", nil, "URL to analyze in addition to the text (repeatable)")
	analyzeCmd.Flags().BoolVar(&asJSON, "json", false, "Print the full report as JSON")
	analyzeCmd.Flags().BoolVar(&stdin, "stdin", false, "Read the message text from standard input")
	return analyzeCmd
}

// validateRequest applies the same bounds as the HTTP adapter.
func validateRequest(req schemas.AnalysisRequest, maxText, maxURLs int) error {
	if strings.TrimSpace(req.Text) == "" && len(req.URLs) == 0 {
		return errors.New("nothing to analyze: provide message text or at least one --url")
	}
	if maxText > 0 && utf8.RuneCountInString(req.Text) > maxText {
		return fmt.Errorf("message text must be at most %d characters", maxText)
	}
	if maxURLs > 0 && len(req.URLs) > maxURLs {
		return fmt.Errorf("at most %d urls may be submitted at once", maxURLs)
	}
	return nil
}

// runAnalyze executes one analysis and renders it to out.
func runAnalyze(ctx context.Context, out io.Writer, a schemas.Analyzer, req schemas.AnalysisRequest, asJSON bool) error {
	report := a.Analyze(ctx, req)
	if err := ctx.Err(); err != nil {
		observability.GetLogger().Warn("Analysis interrupted", zap.Error(err))
	}

	if asJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	return writeSummary(out, report)
}

// writeSummary prints a short human readable verdict.
func writeSummary(out io.Writer, report *schemas.AnalysisReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Risk: %s\n", strings.ToUpper(report.Assessment.Level.String()))
	fmt.Fprintf(&b, "%s\n", report.Assessment.Message)

	if n := len(report.Extraction.URLs); n > 0 {
		dangerous := make(map[string]bool, len(report.Assessment.DangerousURLs))
		for _, u := range report.Assessment.DangerousURLs {
			dangerous[u] = true
		}
		fmt.Fprintf(&b, "\nURLs (%d):\n", n)
		for _, u := range report.Extraction.URLs {
			mark := "ok"
			if dangerous[u] {
				mark = "DANGER"
			}
			fmt.Fprintf(&b, "  [%s] %s\n", mark, u)
		}
	}

	if !report.Reputation.Success && len(report.Extraction.URLs) > 0 {
		fmt.Fprintf(&b, "\nReputation check unavailable: %s\n", report.Reputation.Message)
	}
	if !report.ModelLoaded {
		b.WriteString("Local classifier not loaded.\n")
	}
	fmt.Fprintf(&b, "\nReport ID: %s\n", report.ID)

	_, err := io.WriteString(out, b.String())
	return err
}
