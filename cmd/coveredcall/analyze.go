package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seenimoa/coveredcall/internal/pipeline"
	"github.com/seenimoa/coveredcall/internal/provider"
	"github.com/seenimoa/coveredcall/pkg/models"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [ticker]",
	Short: "Analyze a ticker's fundamentals and recommend a covered-call action",
	Long: `Run the fundamentals pipeline for one ticker and print the report.

Examples:
  coveredcall analyze AAPL
  coveredcall analyze MSFT --mode llm
  coveredcall analyze TSLA --mode agentic --force-debate
  coveredcall analyze AAPL --output json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		forceDebate, _ := cmd.Flags().GetBool("force-debate")
		providerName, _ := cmd.Flags().GetString("provider")
		output, _ := cmd.Flags().GetString("output")

		runCfg := *cfg
		if mode != "" {
			runCfg.Pipeline.Mode = mode
		}
		if cmd.Flags().Changed("force-debate") {
			runCfg.Pipeline.ForceDebate = forceDebate
		}
		if providerName != "" {
			runCfg.Provider.Name = providerName
		}

		p, err := pipeline.New(&runCfg, provider.DefaultRegistry())
		if err != nil {
			return err
		}

		st, err := p.Run(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		switch output {
		case "json":
			// JSON goes to stdout only, so the output pipes cleanly.
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st.Report)
		case "", "text":
			printReport(st.Report)
			return nil
		default:
			return fmt.Errorf("unknown output format %q (use text or json)", output)
		}
	},
}

func init() {
	analyzeCmd.Flags().String("mode", "", "evaluation mode: deterministic, llm, agentic (default: config)")
	analyzeCmd.Flags().Bool("force-debate", false, "run the bull/bear debate regardless of divergence")
	analyzeCmd.Flags().String("provider", "", "snapshot provider: stub, yahoo (default: config)")
	analyzeCmd.Flags().StringP("output", "o", "text", "output format: text or json")
}

func printReport(rep *models.Report) {
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("  %s — Covered Call Report\n", rep.Ticker)
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("  Stance:     %s\n", rep.Stance)
	fmt.Printf("  Bias:       %s\n", rep.Bias)
	fmt.Printf("  Confidence: %.2f\n", rep.Confidence)
	fmt.Printf("  Action:     %s\n", rep.Action)
	fmt.Printf("  Reason:     %s\n", rep.ActionReason)

	if len(rep.KeyPoints) > 0 {
		fmt.Println("\n  Key points:")
		for i, kp := range rep.KeyPoints {
			fmt.Printf("    %d. %s\n", i+1, kp)
		}
	}
	if len(rep.Risks) > 0 {
		fmt.Println("\n  Risks:")
		for _, r := range rep.Risks {
			fmt.Printf("    - %s\n", r)
		}
	}

	if snap := rep.Snapshot; snap != nil {
		fmt.Printf("\n  Snapshot: %s (as of %s)\n", snap.Source, snap.AsOf.Format("2006-01-02"))
		if len(snap.Quality.MissingFields) > 0 {
			fmt.Printf("    Missing: %s\n", strings.Join(snap.Quality.MissingFields, ", "))
		}
		for _, warn := range snap.Quality.Warnings {
			fmt.Printf("    Warning: %s\n", warn)
		}
	}

	if rep.Explain != nil && len(rep.Explain.TraceNodes) > 0 {
		fmt.Printf("\n  Pipeline: %s\n", strings.Join(rep.Explain.TraceNodes, " -> "))
	}

	if rep.Appendix != "" {
		fmt.Println("\n" + rep.Appendix)
	}
	fmt.Println("═══════════════════════════════════════")
}
