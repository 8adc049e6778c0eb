package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stagefs/stagefs/internal/cli/output"
	"github.com/stagefs/stagefs/internal/cli/prompt"
	"github.com/stagefs/stagefs/internal/logger"
	"github.com/stagefs/stagefs/pkg/config"
	"github.com/stagefs/stagefs/pkg/metrics"
	"github.com/stagefs/stagefs/pkg/plan"
	"github.com/stagefs/stagefs/pkg/txn"
)

var (
	planRoot   string
	planYes    bool
	planOutput string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Stage and apply fs-update plans",
	Long: `Work with plan files: YAML documents listing file mutations to stage
against a project root. Preview stages a plan in memory and shows the
operation queue without touching disk; apply stages, confirms, and commits.`,
}

var planPreviewCmd = &cobra.Command{
	Use:   "preview PLAN",
	Short: "Stage a plan and show the operation queue without writing",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanPreview,
}

var planApplyCmd = &cobra.Command{
	Use:   "apply PLAN",
	Short: "Stage a plan and commit it to the project root",
	Long: `Stage every update in the plan, show the resulting operation queue,
ask for confirmation, and commit. If anything fails after staging, the
transaction is rolled back before the error is reported, so a failing plan
never leaves a half-modified project.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlanApply,
}

func init() {
	planCmd.PersistentFlags().StringVar(&planRoot, "root", "", "project root directory (required)")
	planCmd.PersistentFlags().StringVarP(&planOutput, "output", "o", "", "output format: table, json, yaml")
	planApplyCmd.Flags().BoolVarP(&planYes, "yes", "y", false, "skip the confirmation prompt")

	planCmd.AddCommand(planPreviewCmd)
	planCmd.AddCommand(planApplyCmd)
}

// stagePlan loads the plan file and stages it into a fresh transaction.
func stagePlan(cfg *config.Config, planPath string) (*txn.Transaction, error) {
	if planRoot == "" {
		return nil, fmt.Errorf("--root is required")
	}
	root, err := filepath.Abs(planRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	p, err := plan.Load(planPath)
	if err != nil {
		return nil, err
	}

	opts := []txn.Option{
		txn.WithAtomicWrites(cfg.Commit.Atomic),
		txn.WithParallelism(cfg.Commit.Parallelism),
	}
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		opts = append(opts, txn.WithMetrics(metrics.NewTxnMetrics()))
	}

	tx, err := txn.New(root, opts...)
	if err != nil {
		return nil, err
	}

	if err := tx.FromFsUpdates(p.FsUpdates()); err != nil {
		return nil, fmt.Errorf("failed to stage plan: %w", err)
	}

	return tx, nil
}

// newPrinter builds a printer from config and the --output override.
func newPrinter(cfg *config.Config) (*output.Printer, error) {
	name := cfg.Output.Format
	if planOutput != "" {
		name = planOutput
	}
	format, err := output.ParseFormat(name)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(os.Stdout, format, true), nil
}

// previewRow is the serializable shape of one staged operation.
type previewRow struct {
	Seq   uint64 `json:"seq" yaml:"seq"`
	Kind  string `json:"kind" yaml:"kind"`
	Path  string `json:"path" yaml:"path"`
	Bytes int    `json:"bytes" yaml:"bytes"`
}

// previewTable renders staged operations as a table.
type previewTable []previewRow

func (p previewTable) Headers() []string {
	return []string{"SEQ", "OPERATION", "PATH", "BYTES"}
}

func (p previewTable) Rows() [][]string {
	rows := make([][]string, 0, len(p))
	for _, r := range p {
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.Seq),
			r.Kind,
			r.Path,
			fmt.Sprintf("%d", r.Bytes),
		})
	}
	return rows
}

func previewRows(ops []txn.FileOperation) previewTable {
	rows := make(previewTable, 0, len(ops))
	for _, op := range ops {
		rows = append(rows, previewRow{
			Seq:   op.ID,
			Kind:  string(op.Kind),
			Path:  op.Path,
			Bytes: len(op.Content),
		})
	}
	return rows
}

func runPlanPreview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tx, err := stagePlan(cfg, args[0])
	if err != nil {
		return err
	}

	printer, err := newPrinter(cfg)
	if err != nil {
		return err
	}
	return printer.Print(previewRows(tx.Preview()))
}

func runPlanApply(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tx, err := stagePlan(cfg, args[0])
	if err != nil {
		return err
	}

	printer, err := newPrinter(cfg)
	if err != nil {
		return err
	}
	if err := printer.Print(previewRows(tx.Preview())); err != nil {
		return err
	}

	if !planYes {
		ok, err := prompt.Confirm(fmt.Sprintf("Apply %d staged operations to %s", len(tx.Preview()), tx.Root()), false)
		if err != nil {
			if errors.Is(err, prompt.ErrAborted) {
				printer.Println("Aborted.")
				return nil
			}
			return err
		}
		if !ok {
			printer.Println("Aborted.")
			return nil
		}
	}

	ctx := context.Background()
	if cfg.Commit.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Commit.Timeout)
		defer cancel()
	}

	if err := tx.Commit(ctx); err != nil {
		// A failed commit may have written part of the plan; restore
		// the pre-transaction state before reporting.
		if rbErr := tx.Rollback(context.Background()); rbErr != nil {
			logger.Error("rollback after failed commit also failed", "error", rbErr)
			return errors.Join(err, rbErr)
		}
		printer.Error("Commit failed; project restored to its original state.")
		return err
	}

	printer.Success(fmt.Sprintf("Applied plan to %s (txn %s)", tx.Root(), tx.ID()))
	return nil
}
