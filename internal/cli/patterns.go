package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chartlinehq/chartline/internal/learning"
	"github.com/chartlinehq/chartline/internal/model"
	"github.com/chartlinehq/chartline/internal/store"
)

var (
	patternsAll     bool
	submitType      string
	submitOriginal  string
	submitCorrected string
	submitBy        string
	reviewBy        string
	rejectReason    string
)

// patternsCmd groups the correction-pattern review commands
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Review and manage correction patterns",
	Long: `Correction patterns are learned from human corrections to extracted
facts. A pattern applies to future extractions only after explicit
approval, and stops applying when its success rate falls below the
configured floor.`,
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List correction patterns awaiting review",
	RunE:  runPatternsList,
}

var patternsSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a correction as a candidate pattern",
	RunE:  runPatternsSubmit,
}

var patternsApproveCmd = &cobra.Command{
	Use:   "approve <hash>",
	Short: "Approve a pending pattern for application",
	Args:  cobra.ExactArgs(1),
	RunE:  runPatternsApprove,
}

var patternsRejectCmd = &cobra.Command{
	Use:   "reject <hash>",
	Short: "Reject a pending pattern",
	Args:  cobra.ExactArgs(1),
	RunE:  runPatternsReject,
}

var patternsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pattern population statistics",
	RunE:  runPatternsStats,
}

func init() {
	patternsListCmd.Flags().BoolVarP(&patternsAll, "all", "a", false, "include approved and rejected patterns")

	patternsSubmitCmd.Flags().StringVar(&submitType, "type", "", "fact type the correction applies to (required)")
	patternsSubmitCmd.Flags().StringVar(&submitOriginal, "original", "", "extracted text as produced (required)")
	patternsSubmitCmd.Flags().StringVar(&submitCorrected, "corrected", "", "text as it should read (required)")
	patternsSubmitCmd.Flags().StringVar(&submitBy, "by", "", "submitter identity")
	_ = patternsSubmitCmd.MarkFlagRequired("type")
	_ = patternsSubmitCmd.MarkFlagRequired("original")
	_ = patternsSubmitCmd.MarkFlagRequired("corrected")

	patternsApproveCmd.Flags().StringVar(&reviewBy, "by", "", "reviewer identity")
	patternsRejectCmd.Flags().StringVar(&reviewBy, "by", "", "reviewer identity")
	patternsRejectCmd.Flags().StringVar(&rejectReason, "reason", "", "why the pattern is wrong")

	patternsCmd.AddCommand(patternsListCmd, patternsSubmitCmd, patternsApproveCmd, patternsRejectCmd, patternsStatsCmd)
	rootCmd.AddCommand(patternsCmd)
}

// withPatternStore loads the persisted patterns, runs fn against the
// manager, and writes every pattern back.
func withPatternStore(ctx context.Context, fn func(*learning.Manager) error) error {
	cfg := loadConfig()
	if cfg.Learning.StorePath == "" {
		return fmt.Errorf("no pattern store configured (set learning.store_path)")
	}

	s, err := store.Open(cfg.Learning.StorePath)
	if err != nil {
		return err
	}
	defer s.Close()

	patterns, err := s.LoadAll(ctx)
	if err != nil {
		return err
	}

	learner := learning.NewManager(cfg.Learning)
	learner.Load(patterns)

	if err := fn(learner); err != nil {
		return err
	}
	return s.SaveAll(ctx, learner.All())
}

// resolveHash expands a hash prefix to the full pattern hash
func resolveHash(learner *learning.Manager, prefix string) (string, error) {
	var matches []string
	for _, p := range learner.All() {
		if strings.HasPrefix(p.Hash, prefix) {
			matches = append(matches, p.Hash)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no pattern matches %s", prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%s is ambiguous (%d patterns match)", prefix, len(matches))
	}
}

func runPatternsList(cmd *cobra.Command, args []string) error {
	return withPatternStore(cmd.Context(), func(learner *learning.Manager) error {
		patterns := learner.Pending()
		if patternsAll {
			patterns = learner.All()
		}
		if len(patterns) == 0 {
			fmt.Println("No patterns.")
			return nil
		}

		fmt.Printf("%-10s %-9s %-14s %-8s %-8s %s\n", "HASH", "STATUS", "TYPE", "SUCCESS", "APPLIED", "CORRECTION")
		for _, p := range patterns {
			fmt.Printf("%-10s %-9s %-14s %-8.2f %-8d %q -> %q\n",
				p.ShortHash(), p.Status, p.FactType, p.SuccessRate, p.AppliedCount,
				truncate(p.OriginalText, 40), truncate(p.CorrectedText, 40))
		}
		return nil
	})
}

func runPatternsSubmit(cmd *cobra.Command, args []string) error {
	return withPatternStore(cmd.Context(), func(learner *learning.Manager) error {
		p, err := learner.Submit(model.FactType(submitType), submitOriginal, submitCorrected, nil, submitBy)
		if err != nil {
			return err
		}
		fmt.Printf("Pattern %s submitted (pending review)\n", p.ShortHash())
		return nil
	})
}

func runPatternsApprove(cmd *cobra.Command, args []string) error {
	return withPatternStore(cmd.Context(), func(learner *learning.Manager) error {
		hash, err := resolveHash(learner, args[0])
		if err != nil {
			return err
		}
		if err := learner.Approve(hash, reviewBy); err != nil {
			return err
		}
		fmt.Printf("Pattern %s approved\n", args[0])
		return nil
	})
}

func runPatternsReject(cmd *cobra.Command, args []string) error {
	return withPatternStore(cmd.Context(), func(learner *learning.Manager) error {
		hash, err := resolveHash(learner, args[0])
		if err != nil {
			return err
		}
		if err := learner.Reject(hash, reviewBy, rejectReason); err != nil {
			return err
		}
		fmt.Printf("Pattern %s rejected\n", args[0])
		return nil
	})
}

func runPatternsStats(cmd *cobra.Command, args []string) error {
	return withPatternStore(cmd.Context(), func(learner *learning.Manager) error {
		s := learner.Stats()
		fmt.Printf("Total:          %d\n", s.Total)
		fmt.Printf("Pending:        %d\n", s.Pending)
		fmt.Printf("Approved:       %d (%d active)\n", s.Approved, s.Active)
		fmt.Printf("Rejected:       %d\n", s.Rejected)
		fmt.Printf("Approval rate:  %.0f%%\n", s.ApprovalRate*100)
		fmt.Printf("Avg success:    %.2f\n", s.AvgSuccessRate)
		fmt.Printf("Applications:   %d\n", s.TotalApplications)
		return nil
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
