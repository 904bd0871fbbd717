package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/cookgest/internal/config"
	"github.com/dgallion1/cookgest/internal/export"
	"github.com/dgallion1/cookgest/internal/fetch"
	"github.com/dgallion1/cookgest/internal/parser"
	"github.com/dgallion1/cookgest/internal/pipeline"
)

var version = "0.1.0"

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "cookgest",
	Short: "Convert Markdown recipes into structured records",
	Long: `cookgest reads HowToCook style Markdown recipes and writes one
structured JSON or YAML record per dish.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg.LogLevel = strings.ToLower(cfg.LogLevel)
		cfg.ExportFormat = config.NormalizeFormat(cfg.ExportFormat)
		return cfg.Validate()
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the recipe repository and unpack its dishes",
	Long: `Downloads the source repository archive and writes every dish
document as <dest>/<category>/<dish>.md.

With --archive a local zip, tar.gz or tar.xz archive is unpacked instead.`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

var convertCmd = &cobra.Command{
	Use:   "convert PATH...",
	Short: "Convert documents and write one record per dish",
	Long: `Converts the given Markdown files. Directories are searched
recursively for .md files. A failing document is reported and does not
stop the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "Print the record for one document without storing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	cfg = config.Load()

	rootCmd.AddCommand(fetchCmd, convertCmd, analyzeCmd)

	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&cfg.RelaxedSections, "relaxed", cfg.RelaxedSections, "Allow documents without procedure or notes sections")
	rootCmd.PersistentFlags().BoolVar(&cfg.StripMarkup, "strip-markup", cfg.StripMarkup, "Render description, steps and notes as plain text")

	fetchCmd.Flags().String("archive", "", "Unpack a local archive instead of downloading")
	fetchCmd.Flags().StringVar(&cfg.DishesDir, "dest", cfg.DishesDir, "Destination directory")
	fetchCmd.Flags().StringVar(&cfg.SourceOwner, "owner", cfg.SourceOwner, "Repository owner")
	fetchCmd.Flags().StringVar(&cfg.SourceRepo, "repo", cfg.SourceRepo, "Repository name")

	convertCmd.Flags().StringVarP(&cfg.ExportDir, "out", "o", cfg.ExportDir, "Output directory")
	convertCmd.Flags().StringVarP(&cfg.ExportFormat, "format", "f", cfg.ExportFormat, "Record format: json, yaml")
	convertCmd.Flags().IntVarP(&cfg.WorkerCount, "workers", "w", cfg.WorkerCount, "Documents converted in parallel")

	analyzeCmd.Flags().StringVarP(&cfg.ExportFormat, "format", "f", cfg.ExportFormat, "Output format: json, yaml")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

func runFetch(cmd *cobra.Command, args []string) error {
	log := newLogger()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	archive, _ := cmd.Flags().GetString("archive")
	if archive == "" {
		tmp, err := os.MkdirTemp("", "cookgest-*")
		if err != nil {
			return fmt.Errorf("create temp dir: %w", err)
		}
		defer os.RemoveAll(tmp)

		client := fetch.NewClient(cfg.SourceAPIURL, cfg.SourceToken, cfg.FetchTimeout, log)
		defer client.Close()
		archive = filepath.Join(tmp, "source.zip")
		if _, err := client.DownloadFile(ctx, cfg.SourceOwner, cfg.SourceRepo, archive); err != nil {
			return fmt.Errorf("download %s/%s: %w", cfg.SourceOwner, cfg.SourceRepo, err)
		}
	}

	written, err := fetch.Extract(archive, cfg.DishesDir)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	log.Info("dishes extracted", "dest", cfg.DishesDir, "documents", len(written))
	fmt.Fprintf(cmd.OutOrStdout(), "%d documents written to %s\n", len(written), cfg.DishesDir)
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	log := newLogger()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conv, err := pipeline.NewConverterFromConfig(cfg, log)
	if err != nil {
		return err
	}
	paths, err := collectDocuments(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no Markdown documents found in %v", args)
	}

	results := conv.RunBatch(ctx, paths, cfg.WorkerCount)
	out := cmd.OutOrStdout()
	var failed int
	for _, r := range results {
		if r.OK() {
			continue
		}
		failed++
		fmt.Fprintf(out, "FAIL %s: %s\n", r.Path, r.Error)
	}
	fmt.Fprintf(out, "%d converted, %d failed, records in %s\n", len(results)-failed, failed, conv.Writer().Dir())
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(cfg.ExportFormat)
	if err != nil {
		return err
	}
	conv, err := pipeline.NewConverterFromConfig(cfg, newLogger())
	if err != nil {
		return err
	}
	doc, err := parser.ReadFile(args[0])
	if err != nil {
		return err
	}
	rec, err := conv.Analyzer().Analyze(doc)
	if err != nil {
		return err
	}
	return export.Encode(cmd.OutOrStdout(), format, rec)
}

// collectDocuments expands directories into the Markdown files below them.
// Files named explicitly are kept whatever their extension.
func collectDocuments(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("path error: %w", err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && parser.IsSupportedExtension(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
		slices.Sort(found)
		paths = append(paths, found...)
	}
	return paths, nil
}
