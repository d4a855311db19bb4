package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"pciassist/internal/analysis"
	"pciassist/internal/config"
	"pciassist/internal/embedding"
	"pciassist/internal/index"
	"pciassist/internal/ingest"
	"pciassist/internal/kb"
	"pciassist/internal/llm"
	"pciassist/internal/logging"
	"pciassist/internal/report"
	"pciassist/internal/retrieval"
	"pciassist/internal/server"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// index flags
	kbPath    string
	indexPath string

	// analyze flags
	outputPath   string
	outputFormat string

	// serve flags
	listenAddr string
)

var rootCmd = &cobra.Command{
	Use:   "pciassist",
	Short: "PCI DSS gap-analysis assistant",
	Long: `pciassist turns spreadsheets of audit observations into structured
gap-analysis findings. Each observation is matched against the PCI DSS v4.0.1
requirement knowledge base using hybrid vector and keyword retrieval, then a
Gemini model verifies the primary requirement and drafts a recommendation
with required actions.

Reports render as HTML or as an action-tracking Excel workbook.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Init(verbose)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the requirement vector index from the knowledge base",
	RunE:  runIndex,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [workbook]",
	Short: "Analyze an observations workbook and write a report",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis pipeline over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	indexCmd.Flags().StringVar(&kbPath, "kb", "", "knowledge base JSON file (default from config)")
	indexCmd.Flags().StringVar(&indexPath, "db", "", "index database file (default from config)")

	analyzeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default derived from input)")
	analyzeCmd.Flags().StringVarP(&outputFormat, "format", "f", "excel", "report format: html or excel")

	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (default from config)")

	rootCmd.AddCommand(indexCmd, analyzeCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if kbPath != "" {
		cfg.KBPath = kbPath
	}
	if indexPath != "" {
		cfg.IndexPath = indexPath
	}

	base, err := kb.Load(cfg.KBPath)
	if err != nil {
		return err
	}

	engine, err := embedding.NewEngine(cfg.Embedding, cfg.APIKey)
	if err != nil {
		return err
	}

	if err := index.Build(ctx, cfg.IndexPath, base, engine); err != nil {
		return err
	}
	fmt.Printf("Indexed %d requirements into %s\n", base.Len(), cfg.IndexPath)
	return nil
}

// buildAnalyzer constructs the full pipeline from config.
func buildAnalyzer(ctx context.Context, cfg config.Config) (*analysis.Analyzer, error) {
	base, err := kb.Load(cfg.KBPath)
	if err != nil {
		return nil, err
	}

	engine, err := embedding.NewEngine(cfg.Embedding, cfg.APIKey)
	if err != nil {
		return nil, err
	}

	ix, err := index.Open(cfg.IndexPath, engine)
	if err != nil {
		return nil, fmt.Errorf("open vector index (run `pciassist index` first): %w", err)
	}

	client, err := llm.NewGeminiClient(llm.GeminiConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}

	return analysis.New(base, retrieval.New(base, ix, cfg.TopK), client)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	analyzer, err := buildAnalyzer(ctx, cfg)
	if err != nil {
		return err
	}

	input := args[0]
	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	observations, err := ingest.ReadObservations(f)
	f.Close()
	if err != nil {
		return err
	}

	findings := analyzer.AnalyzeRows(ctx, ingest.Texts(observations))
	rep := report.Build(findings, filepath.Base(input))

	out := outputPath
	if out == "" {
		stem := strings.TrimSuffix(input, filepath.Ext(input))
		if outputFormat == "html" {
			out = stem + "_report.html"
		} else {
			out = stem + "_report.xlsx"
		}
	}

	dst, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer dst.Close()

	switch outputFormat {
	case "html":
		err = report.RenderHTML(dst, rep)
	case "excel":
		err = report.RenderExcel(dst, rep)
	default:
		return fmt.Errorf("unknown format %q, expected html or excel", outputFormat)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %d finding(s) to %s\n", len(rep.Findings), out)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Addr = listenAddr
	}

	analyzer, err := buildAnalyzer(ctx, cfg)
	if err != nil {
		return err
	}

	return server.New(analyzer).ListenAndServe(ctx, cfg.Addr)
}
