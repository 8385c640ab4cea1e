package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"srte/internal/config"
	"srte/internal/pipeline"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "srte",
	Short:   "Student Rating of Teaching Effectiveness processing",
	Long:    "srte standardizes, aggregates, and classifies SRTE survey exports and renders per-lecturer feedback reports.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if semester != "" {
			cfg.Report.Semester = semester
		}
		if session != "" {
			cfg.Report.Session = session
		}
		return nil
	},
}

var (
	outDir   string
	semester string
	session  string
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&outDir, "out", "o", "", "Output directory (default: data dir)")
	rootCmd.PersistentFlags().StringVar(&semester, "semester", "", "Override the configured semester")
	rootCmd.PersistentFlags().StringVar(&session, "session", "", "Override the configured academic session")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(codesCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("srte", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/srte/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set the lecturer roster path and school bucket rules.")
		return nil
	},
}

// --- run command ---

var runComments string

var runCmd = &cobra.Command{
	Use:   "run [data.csv]",
	Short: "Run the full pipeline: ingest -> resolve -> aggregate -> classify -> comments -> render",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe := pipeline.New(cfg)
		result := pipe.Run(args[0], runComments, effectiveOutDir())

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/6: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}
		printDiagnostics(result)

		if result.Failed() {
			return fmt.Errorf("pipeline finished with errors")
		}
		fmt.Printf("\nPipeline complete! Output in %s\n", effectiveOutDir())
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runComments, "comments", "", "Path to the comment sheet CSV")
}

// --- analyze command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [data.csv]",
	Short: "Aggregate a raw data sheet into per-school summary CSVs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe := pipeline.New(cfg)
		result, err := pipe.Analyze(args[0], effectiveOutDir())
		if err != nil {
			return err
		}

		printDiagnostics(result)
		fmt.Printf("\nSummaries written to %s\n", result.SummaryArchive)
		return nil
	},
}

// --- report command ---

var (
	reportComments string
	reportLecturer string
	reportNoBundle bool
)

var reportCmd = &cobra.Command{
	Use:   "report [summary.csv]",
	Short: "Render per-lecturer reports from a finished summary sheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe := pipeline.New(cfg)
		// A single lecturer's document stays unbundled.
		bundle := !reportNoBundle && reportLecturer == ""
		result, err := pipe.Report(args[0], reportComments, effectiveOutDir(), reportLecturer, bundle)
		if err != nil {
			return err
		}

		printDiagnostics(result)
		if result.ReportArchive != "" {
			fmt.Printf("\nReports bundled in %s\n", result.ReportArchive)
		} else {
			fmt.Printf("\nReports written to %s\n", effectiveOutDir())
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportComments, "comments", "", "Path to the comment sheet CSV")
	reportCmd.Flags().StringVar(&reportLecturer, "lecturer", "", "Render reports for a single lecturer")
	reportCmd.Flags().BoolVar(&reportNoBundle, "no-zip", false, "Leave reports unbundled in the output directory")
	reportCmd.MarkFlagRequired("comments")
}

// --- codes command ---

var codesCmd = &cobra.Command{
	Use:   "codes [data.csv]",
	Short: "List course-code prefixes not claimed by any school bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe := pipeline.New(cfg)
		codes, err := pipe.CheckCodes(args[0])
		if err != nil {
			return err
		}

		if len(codes) == 0 {
			fmt.Println("All course codes are covered by the bucket rules.")
			return nil
		}
		fmt.Println("Unclassified course codes:")
		for _, code := range codes {
			fmt.Printf("  %s\n", code)
		}
		return nil
	},
}

func printDiagnostics(r *pipeline.Result) {
	if len(r.Unmatched) > 0 {
		fmt.Println("\nLecturer names not found in the roster:")
		for _, name := range r.Unmatched {
			fmt.Printf("  %s\n", name)
		}
	}
	if len(r.UnknownCodes) > 0 {
		fmt.Println("\nCourse codes outside the bucket rules:")
		for _, code := range r.UnknownCodes {
			fmt.Printf("  %s\n", code)
		}
	}
	if len(r.QualityErrors) > 0 {
		fmt.Println("\nGroups skipped for missing scores:")
		for _, qe := range r.QualityErrors {
			fmt.Printf("  %v\n", qe)
		}
	}
	if len(r.RenderErrors) > 0 {
		fmt.Println("\nReports that failed to render:")
		for _, re := range r.RenderErrors {
			fmt.Printf("  %v\n", re)
		}
	}
}

func effectiveOutDir() string {
	if outDir != "" {
		return outDir
	}
	return cfg.GetDataDir()
}
