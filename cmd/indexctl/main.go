// Command indexctl inspects embedding index artifacts and moves them
// between the file layout and Postgres.
package main

import (
	"fmt"
	"os"

	"emotion-diary-be/internal/pkg/logger"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	indexDir string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "indexctl",
	Short: "Manage the emotion embedding index",
	Long: `Inspect and migrate the emotion embedding index.

Artifacts live either in a directory (coarse/fine centroid tables, leaf
vectors and leaf metadata) or in Postgres with pgvector.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&indexDir, "dir", envOr("INDEX_DIR", "data/index"), "index artifact directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(validateCmd, statsCmd, importCmd, exportCmd, classifyCmd)
}

func cliLogger() logger.ILogger {
	if !verbose {
		return logger.NewNopLogger()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return logger.NewNopLogger()
	}
	return logger.NewFromZap(l)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}
