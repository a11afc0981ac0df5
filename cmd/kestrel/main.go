package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kestrelsec/kestrel/internal/engine"
	"github.com/kestrelsec/kestrel/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	cfgFile   string
	apiToken  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Kestrel threat triage CLI",
	Long: `kestrel is the command-line interface for the Kestrel triage platform.

It analyzes threat descriptions with STRIDE/DREAD scoring, imports scanner
reports, and correlates findings against stored threats. Analysis can run
locally (no server required) or against a Kestrel server.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.kestrel")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		if apiToken == "" {
			apiToken = viper.GetString("api_token")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.kestrel/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Kestrel server URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "API bearer token")

	analyzeCmd.Flags().StringVar(&analyzeAsset, "asset", "", "asset under threat (required)")
	analyzeCmd.Flags().StringVar(&analyzeBoundary, "boundary", "", "trust boundary description")
	analyzeCmd.Flags().BoolVar(&analyzeLocal, "local", false, "run the analysis in-process without a server")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "emit JSON instead of a table")
	analyzeCmd.Flags().StringVar(&analyzeOverlay, "catalog", "", "pattern catalog overlay YAML (local mode only)")

	listCmd.Flags().StringVar(&listRisk, "risk", "", "filter by risk level (High, Medium, Low)")
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (open, mitigated, accepted)")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "maximum results")

	similarCmd.Flags().IntVar(&similarLimit, "limit", 20, "maximum results")

	importCmd.Flags().StringVar(&importTool, "tool", "", "tool name used when the report omits one")

	patternsCmd.Flags().BoolVar(&patternsLocal, "local", false, "list the built-in catalog without a server")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(similarCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(correlateCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() *client.Client {
	opts := []client.Option{client.WithTimeout(15 * time.Second)}
	if apiToken != "" {
		opts = append(opts, client.WithBearerToken(apiToken))
	}
	return client.MustNew(serverURL, opts...)
}

// ── analyze ──────────────────────────────────────────────────────────────────

var (
	analyzeAsset    string
	analyzeBoundary string
	analyzeLocal    bool
	analyzeJSON     bool
	analyzeOverlay  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <flow description>",
	Short: "Run STRIDE/DREAD analysis on a threat description",
	Long: `Analyze classifies a described data flow, suggests DREAD scores, and
recommends mitigations.

With --local the analysis runs entirely in-process against the built-in
pattern catalog and nothing is persisted:

  kestrel analyze --local --asset "payments API" "user input concatenated into sql query"

Without --local the threat is stored on the server and the full record is
returned.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flow := strings.Join(args, " ")
		if analyzeAsset == "" {
			return fmt.Errorf("--asset is required")
		}

		if analyzeLocal {
			return analyzeLocally(flow)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		threat, err := newClient().Analyze(ctx, client.AnalyzeRequest{
			Asset:         analyzeAsset,
			Flow:          flow,
			TrustBoundary: analyzeBoundary,
		})
		if err != nil {
			return err
		}

		if analyzeJSON {
			return printJSON(threat)
		}
		fmt.Printf("threat %s stored\n", threat.ID)
		fmt.Printf("  risk:  %s (%.1f)\n", threat.RiskLevel, threat.Total)
		fmt.Printf("  asset: %s\n", threat.Asset)
		return nil
	},
}

// analyzeLocally runs the engine in-process and prints the full analysis.
func analyzeLocally(flow string) error {
	catalog := engine.DefaultCatalog()
	if analyzeOverlay != "" {
		var err error
		catalog, err = engine.LoadCatalogOverlay(analyzeOverlay)
		if err != nil {
			return fmt.Errorf("load catalog overlay: %w", err)
		}
	}

	analysis, err := engine.New(catalog).Analyze(engine.AnalysisInput{
		Asset:         analyzeAsset,
		Flow:          flow,
		TrustBoundary: analyzeBoundary,
	})
	if err != nil {
		return err
	}

	if analyzeJSON {
		return printJSON(analysis)
	}

	fmt.Printf("risk: %s (total %.1f)\n\n", analysis.RiskLevel, analysis.Total)

	fmt.Println("STRIDE categories:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, cat := range analysis.Stride.Categories {
		fmt.Fprintf(w, "  %s\t%.2f\n", cat, analysis.Stride.Confidence[cat])
	}
	w.Flush()

	fmt.Println("\nDREAD scores:")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, d := range []engine.Dimension{
		engine.DimDamage, engine.DimReproducibility, engine.DimExploitability,
		engine.DimAffectedUsers, engine.DimDiscoverability,
	} {
		fmt.Fprintf(w, "  %s\t%d\t%s\n", d, analysis.Scores.Get(d), analysis.Suggestion.Explanations[d])
	}
	w.Flush()

	if len(analysis.Mitigations) > 0 {
		fmt.Println("\nmitigations:")
		for _, m := range analysis.Mitigations {
			fmt.Printf("  [%d] %s (%s, effectiveness %d)\n", m.Priority, m.Text, m.Difficulty, m.Effectiveness)
		}
	}
	return nil
}

// ── list ─────────────────────────────────────────────────────────────────────

var (
	listRisk   string
	listStatus string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored threats",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		threats, err := newClient().ListThreats(ctx, listRisk, listStatus, listLimit, 0)
		if err != nil {
			return err
		}
		if len(threats) == 0 {
			fmt.Println("no threats")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tRISK\tTOTAL\tSTATUS\tASSET")
		for _, t := range threats {
			fmt.Fprintf(w, "%s\t%s\t%.1f\t%s\t%s\n", t.ID, t.RiskLevel, t.Total, t.Status, t.Asset)
		}
		return w.Flush()
	},
}

// ── similar ──────────────────────────────────────────────────────────────────

var similarLimit int

var similarCmd = &cobra.Command{
	Use:   "similar <threat-id>",
	Short: "Rank stored threats by similarity to the given one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		results, err := newClient().Similar(ctx, args[0], similarLimit)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("no similar threats")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SCORE\tID\tRISK\tASSET")
		for _, r := range results {
			fmt.Fprintf(w, "%.2f\t%s\t%s\t%s\n", r.Score, r.Threat.ID, r.Threat.RiskLevel, r.Threat.Asset)
		}
		return w.Flush()
	},
}

// ── import ───────────────────────────────────────────────────────────────────

var importTool string

var importCmd = &cobra.Command{
	Use:   "import <report.sarif>",
	Short: "Import a SARIF report as scanner findings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		result, err := newClient().ImportSARIF(ctx, f, importTool)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d finding(s) from %s\n", result.Imported, result.Tool)
		return nil
	},
}

// ── correlate ────────────────────────────────────────────────────────────────

var correlateCmd = &cobra.Command{
	Use:   "correlate <finding-id>",
	Short: "Propose threat links for an ingested finding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		candidates, err := newClient().Correlate(ctx, args[0])
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			fmt.Println("no correlation candidates")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SCORE\tTHREAT\tRISK\tPATTERNS")
		for _, c := range candidates {
			fmt.Fprintf(w, "%.2f\t%s\t%s\t%s\n", c.Similarity, c.Threat.ID, c.Threat.RiskLevel, strings.Join(c.Patterns, ","))
		}
		return w.Flush()
	},
}

// ── patterns ─────────────────────────────────────────────────────────────────

var patternsLocal bool

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the threat pattern catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tBASELINE\tRULES\tCATEGORIES")

		if patternsLocal {
			for _, p := range engine.DefaultCatalog().Patterns() {
				cats := make([]string, len(p.Categories))
				for i, c := range p.Categories {
					cats[i] = string(c)
				}
				fmt.Fprintf(w, "%s\t%.2f\t%d\t%s\n", p.ID, p.Baseline, len(p.Rules), strings.Join(cats, ","))
			}
			return w.Flush()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		patterns, err := newClient().ListPatterns(ctx)
		if err != nil {
			return err
		}
		for _, p := range patterns {
			fmt.Fprintf(w, "%s\t%.2f\t%d\t%s\n", p.ID, p.Baseline, p.RuleCount, strings.Join(p.Categories, ","))
		}
		return w.Flush()
	},
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("kestrel", version)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
