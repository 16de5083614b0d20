package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/panel/internal/clip"
	"github.com/hugo-lorenzo-mato/panel/internal/core"
	"github.com/hugo-lorenzo-mato/panel/internal/fsutil"
	"github.com/hugo-lorenzo-mato/panel/internal/service/workflow"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [document]",
	Short: "Analyze a document with the specialist panel",
	Long: `Analyze a document with the specialist panel and print the consensus.

The document is read from the argument, from --file, or from stdin when the
argument is "-" or omitted and stdin is not a terminal.

Examples:
  panel analyze "The battery died after two days."
  panel analyze --file review.txt --roles quality,technical --max-rounds 1
  cat review.txt | panel analyze --output json --save`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

var (
	analyzeFile      string
	analyzeRoles     []string
	analyzeMaxRounds int
	analyzeThreshold float64
	analyzeTimeout   time.Duration
	analyzeRetries   int
	analyzeParallel  int
	analyzeNoAdvise  bool
	analyzeOutput    string
	analyzeSave      bool
	analyzeCopy      bool
	analyzeVerbose   bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeFile, "file", "f", "", "read the document from a file")
	f.StringSliceVar(&analyzeRoles, "roles", nil, "specialist roles to consult (comma separated)")
	f.IntVar(&analyzeMaxRounds, "max-rounds", 0, "maximum discussion rounds")
	f.Float64Var(&analyzeThreshold, "threshold", 0, "disagreement threshold that triggers discussion")
	f.DurationVar(&analyzeTimeout, "timeout", 0, "timeout per specialist call attempt")
	f.IntVar(&analyzeRetries, "retries", 0, "retries per specialist call")
	f.IntVar(&analyzeParallel, "parallel", 0, "maximum concurrent specialist calls (0 = all)")
	f.BoolVar(&analyzeNoAdvise, "no-advise", false, "skip the advisory narrative")
	f.StringVarP(&analyzeOutput, "output", "o", "pretty", "output format (pretty, json)")
	f.BoolVar(&analyzeSave, "save", false, "persist the report to the configured store")
	f.BoolVar(&analyzeCopy, "copy", false, "copy the JSON report to the clipboard")
	f.BoolVarP(&analyzeVerbose, "verbose", "v", false, "show every round in pretty output")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := validateOutput(analyzeOutput); err != nil {
		return err
	}
	document, err := readDocument(args, analyzeFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	deps, err := newEngine(cfg, logger, false)
	if err != nil {
		return err
	}
	defer deps.Close()

	wf := applyAnalyzeFlags(cmd, deps.Workflow)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	id := uuid.NewString()
	report, err := deps.Engine.Analyze(ctx, workflow.AnalysisRequest{ID: id, Document: document, Config: wf})
	if err != nil {
		return err
	}
	stored := core.NewStoredReport(id, document, wf.AgentRoles, report, time.Now())

	if analyzeSave {
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Save(ctx, stored); err != nil {
			return fmt.Errorf("saving report: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "saved report %s\n", stored.ID)
	}

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeOutput == "json" {
		fmt.Fprintln(out, string(reportJSON))
	} else {
		fmt.Fprint(out, newRenderer(out, analyzeVerbose).Render(stored))
	}

	if analyzeCopy {
		res, err := clip.WriteAll(string(reportJSON))
		if err != nil {
			return fmt.Errorf("copying report: %w", err)
		}
		if res.Method == clip.MethodFile {
			fmt.Fprintf(cmd.ErrOrStderr(), "clipboard unavailable, report written to %s\n", res.FilePath)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "report copied (%s)\n", res.Method)
		}
	}
	return nil
}

// applyAnalyzeFlags overrides cfg with the flags the user set.
func applyAnalyzeFlags(cmd *cobra.Command, cfg core.WorkflowConfig) core.WorkflowConfig {
	f := cmd.Flags()
	if f.Changed("roles") {
		cfg.AgentRoles = append([]string{}, analyzeRoles...)
	}
	if f.Changed("max-rounds") {
		cfg.MaxDiscussionRounds = analyzeMaxRounds
	}
	if f.Changed("threshold") {
		cfg.DisagreementThreshold = analyzeThreshold
	}
	if f.Changed("timeout") {
		cfg.PerCallTimeout = analyzeTimeout
	}
	if f.Changed("retries") {
		cfg.PerCallMaxRetries = analyzeRetries
	}
	if f.Changed("parallel") {
		cfg.MaxParallelism = analyzeParallel
	}
	if analyzeNoAdvise {
		cfg.Advise = false
	}
	return cfg
}

// readDocument resolves the document from the argument, a file or stdin.
func readDocument(args []string, file string, stdin io.Reader) (string, error) {
	if file != "" {
		if len(args) > 0 {
			return "", errors.New("give either a document argument or --file, not both")
		}
		data, err := fsutil.ReadFileLimited(file, core.MaxDocumentLength)
		if err != nil {
			return "", fmt.Errorf("reading document: %w", err)
		}
		return string(data), nil
	}

	if len(args) > 0 && args[0] != "-" {
		return args[0], nil
	}
	if len(args) == 0 && isTerminalReader(stdin) {
		return "", errors.New("no document given (pass it as an argument, with --file, or on stdin)")
	}
	data, err := io.ReadAll(io.LimitReader(stdin, core.MaxDocumentLength+1))
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("no document given on stdin")
	}
	return string(data), nil
}
