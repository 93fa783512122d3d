package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chartlinehq/chartline/internal/cache"
	"github.com/chartlinehq/chartline/internal/docload"
	"github.com/chartlinehq/chartline/internal/knowledge"
	"github.com/chartlinehq/chartline/internal/learning"
	"github.com/chartlinehq/chartline/internal/llm"
	"github.com/chartlinehq/chartline/internal/model"
	"github.com/chartlinehq/chartline/internal/pipeline"
	"github.com/chartlinehq/chartline/internal/store"
)

var (
	processOutput   string
	processNoCache  bool
	processProvider string
	processModel    string
	processWorkers  int
	processTimeout  time.Duration
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process <dir|file>...",
	Short: "Process clinical documents into a timeline",
	Long: `Process reads the given documents (or every .txt, .md, and .html
document in the given directories), extracts clinical facts, resolves
relative time references, and prints the resulting timeline with its
uncertainties.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&processOutput, "output", "o", "", "write the full JSON result to this file (\"-\" for stdout)")
	processCmd.Flags().BoolVar(&processNoCache, "no-cache", false, "bypass the result cache")
	processCmd.Flags().StringVar(&processProvider, "llm", "", "fallback LLM provider (openai)")
	processCmd.Flags().StringVar(&processModel, "model", "", "fallback LLM model")
	processCmd.Flags().IntVar(&processWorkers, "workers", 0, "extraction workers (default from config)")
	processCmd.Flags().DurationVar(&processTimeout, "timeout", 10*time.Minute, "overall processing timeout")

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if processNoCache {
		cfg.Cache.Enabled = false
	}
	if processProvider != "" {
		cfg.LLM.Provider = processProvider
	}
	if processModel != "" {
		cfg.LLM.Model = processModel
	}
	if processWorkers > 0 {
		cfg.Concurrency.ExtractionWorkers = processWorkers
	}

	docs, err := loadDocuments(args)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents found")
	}
	log.Info().Int("documents", len(docs)).Msg("documents loaded")

	kb := knowledge.NewBase()
	if cfg.Knowledge.OverridesPath != "" {
		if err := kb.LoadOverrides(cfg.Knowledge.OverridesPath); err != nil {
			return fmt.Errorf("loading knowledge overrides: %w", err)
		}
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), processTimeout)
	defer cancel()

	learner := learning.NewManager(cfg.Learning)
	patternStore, err := openPatternStore(ctx, cfg, learner)
	if err != nil {
		// Processing proceeds without persisted patterns rather than
		// failing the run.
		log.Warn().Err(err).Msg("pattern store unavailable")
		patternStore = nil
	}
	if patternStore != nil {
		defer patternStore.Close()
	}

	var c cache.Cache
	if cfg.Cache.Enabled && cfg.Cache.Dir != "" {
		c = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	result, err := pipeline.New(cfg, kb, provider, learner, c, log).Process(ctx, docs)
	if err != nil {
		return err
	}

	// Application counters changed during the run; write them back.
	if patternStore != nil {
		if err := patternStore.SaveAll(ctx, learner.All()); err != nil {
			log.Warn().Err(err).Msg("pattern store update failed")
		}
	}

	if processOutput != "" {
		return writeResult(result, processOutput)
	}
	printSummary(result)
	return nil
}

// loadDocuments reads each argument as a directory or a single file
func loadDocuments(args []string) ([]*model.Document, error) {
	var docs []*model.Document
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			loaded, err := docload.LoadDir(arg)
			if err != nil {
				return nil, err
			}
			docs = append(docs, loaded...)
			continue
		}
		doc, err := docload.LoadFile(arg)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// openPatternStore loads persisted learning patterns into the manager
func openPatternStore(ctx context.Context, cfg *model.Config, learner *learning.Manager) (*store.Store, error) {
	if cfg.Learning.StorePath == "" {
		return nil, nil
	}
	s, err := store.Open(cfg.Learning.StorePath)
	if err != nil {
		return nil, err
	}
	patterns, err := s.LoadAll(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	learner.Load(patterns)
	return s, nil
}

func writeResult(result *model.Result, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	fmt.Printf("Result written to %s\n", path)
	return nil
}

func printSummary(result *model.Result) {
	m := result.Metrics

	fmt.Printf("Documents:      %d (%d failed)\n", m.DocumentCount, m.FailedDocuments)
	fmt.Printf("Facts:          %d (%d via fallback, %d corrected)\n", m.FactCount, m.FallbackFacts, m.CorrectionsApplied)
	fmt.Printf("Uncertainties:  %d\n", m.UncertaintyCount)
	fmt.Printf("Conflicts:      %d\n", len(result.Conflicts))
	if m.CacheHit {
		fmt.Println("(served from cache)")
	}

	if t := result.Timeline; t != nil {
		if t.AdmissionDate != nil && t.DischargeDate != nil {
			fmt.Printf("Stay:           %s to %s (%d days)\n",
				t.AdmissionDate.Format("2006-01-02"), t.DischargeDate.Format("2006-01-02"), t.LengthOfStay)
		}
		if len(t.KeyEvents) > 0 {
			fmt.Println("\nKey events:")
			for _, e := range t.KeyEvents {
				fmt.Printf("  %s  %-12s %s\n", e.Date, e.Type, e.Description)
			}
		}
		for _, prog := range t.Progressions {
			fmt.Printf("\n%s: %s over %d observations\n", prog.Measurement, prog.Trend, len(prog.Points))
		}
	}

	if len(result.Uncertainties) > 0 {
		fmt.Println("\nUncertainties for review:")
		for _, u := range result.Uncertainties {
			fmt.Printf("  [%s] %s: %s\n", u.Severity, u.IssueType, u.Description)
		}
	}
}
