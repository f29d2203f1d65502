package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"emotion-diary-be/internal/model"
	"emotion-diary-be/internal/repository/contract"
	"emotion-diary-be/internal/repository/implementation"
	"emotion-diary-be/internal/repository/specification"
	"emotion-diary-be/pkg/database"
	"emotion-diary-be/pkg/embedding"
	"emotion-diary-be/pkg/emotion"
	"emotion-diary-be/pkg/index"
	"emotion-diary-be/pkg/retrieval"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	dsn         string
	ollamaURL   string
	ollamaModel string
	topK        int
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the artifacts in --dir and report integrity problems",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := index.LoadFiles(indexDir); err != nil {
			return err
		}
		color.Green("✓ %s is consistent", indexDir)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print index dimensions and leaf counts per emotion",
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := index.LoadFiles(indexDir)
		if err != nil {
			return err
		}
		printStats(idx.Stats())
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Validate the artifacts in --dir and replace the Postgres copy with them",
	RunE: func(cmd *cobra.Command, args []string) error {
		artifacts, err := index.ReadArtifacts(indexDir)
		if err != nil {
			return err
		}
		idx, err := index.Load(artifacts)
		if err != nil {
			return err
		}

		repo, closeDB, err := openRepository()
		if err != nil {
			return err
		}
		defer closeDB()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()
		if err := repo.Import(ctx, artifacts); err != nil {
			return err
		}
		color.Green("✓ imported %d leaves (dim %d)", idx.Stats().Leaves, idx.Dimension())
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the Postgres copy of the index to --dir",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := openRepository()
		if err != nil {
			return err
		}
		defer closeDB()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()
		artifacts, err := repo.LoadArtifacts(ctx)
		if err != nil {
			return err
		}
		if _, err := index.Load(artifacts); err != nil {
			return err
		}
		if err := index.WriteArtifacts(indexDir, artifacts); err != nil {
			return err
		}
		color.Green("✓ exported %d leaves to %s", len(artifacts.LeafVectors), indexDir)
		return nil
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify <text>",
	Short: "Encode text with Ollama and show the detected emotion and nearest examples",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := index.LoadFiles(indexDir)
		if err != nil {
			return err
		}
		text := strings.Join(args, " ")

		encoder := embedding.NewOllamaProvider(ollamaURL, ollamaModel)
		query, err := encoder.Encode(cmd.Context(), text)
		if err != nil {
			return err
		}

		r := retrieval.NewRetriever(idx, cliLogger().Zap())
		label, confidence, err := r.DetectEmotion(query)
		if err != nil {
			return err
		}
		matches, err := r.Rank(query, label, topK)
		if err != nil {
			return err
		}

		fmt.Printf("%s %s (%.1f%%)\n", color.CyanString("emotion:"), label, confidence*100)
		for i, m := range matches {
			fmt.Printf("  %d. [%.3f] %s\n", i+1, m.Similarity, m.Text)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{importCmd, exportCmd} {
		c.Flags().StringVar(&dsn, "dsn", envOr("DB_CONNECTION_STRING", ""), "Postgres connection string")
	}
	classifyCmd.Flags().StringVar(&ollamaURL, "ollama-url", envOr("OLLAMA_BASE_URL", "http://localhost:11434"), "Ollama base URL")
	classifyCmd.Flags().StringVar(&ollamaModel, "model", envOr("OLLAMA_EMBEDDING_MODEL", "bge-m3"), "embedding model")
	classifyCmd.Flags().IntVarP(&topK, "top", "k", retrieval.DefaultK, "number of similar examples")
}

func openRepository() (contract.EmotionIndexRepository, func(), error) {
	db, err := database.NewGormDBFromDSN(dsn, cliLogger().Zap(), database.Options{})
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return implementation.NewEmotionIndexRepository(db), closeDB, nil
}

func printStats(s index.Stats) {
	fmt.Printf("%s %d\n", color.CyanString("dimension:"), s.Dimension)
	fmt.Printf("%s %d coarse, %d fine\n", color.CyanString("centroids:"), s.Coarse, s.Fine)
	fmt.Printf("%s %d\n", color.CyanString("leaves:"), s.Leaves)
	for _, l := range emotion.All() {
		fmt.Printf("  %-4s %d\n", l, s.LeafByLabel[l])
	}
}

var (
	leafLabel string
	leafLimit int
)

var leavesCmd = &cobra.Command{
	Use:   "leaves",
	Short: "List leaf records stored in Postgres",
	RunE: func(cmd *cobra.Command, args []string) error {
		specs := []specification.Specification{
			specification.OrderBy{Field: "position"},
			specification.Pagination{Limit: leafLimit},
		}
		if leafLabel != "" {
			l, err := emotion.Parse(leafLabel)
			if err != nil {
				return err
			}
			specs = append(specs, specification.ByEmotion{Label: l})
		}

		repo, closeDB, err := openRepository()
		if err != nil {
			return err
		}
		defer closeDB()

		rows, err := repo.FindLeaves(cmd.Context(), specs...)
		if err != nil {
			return err
		}
		for _, row := range rows {
			fmt.Printf("%6d  %-4s %s\n", row.Position, row.Label, row.Text)
		}
		return nil
	},
}

var centroidsCmd = &cobra.Command{
	Use:   "centroids",
	Short: "List centroid keys stored in Postgres",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := openRepository()
		if err != nil {
			return err
		}
		defer closeDB()

		for _, level := range []int{model.CentroidLevelCoarse, model.CentroidLevelFine} {
			rows, err := repo.FindCentroids(cmd.Context(),
				specification.ByCentroidLevel{Level: level},
				specification.OrderBy{Field: "key"},
			)
			if err != nil {
				return err
			}
			fmt.Printf("%s %d\n", color.CyanString("level %d:", level), len(rows))
			for _, row := range rows {
				fmt.Printf("  %s (%d)\n", row.Key, len(row.Vector.Slice()))
			}
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Enable pgvector and create the index tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := openRepository()
		if err != nil {
			return err
		}
		defer closeDB()

		if err := repo.Migrate(cmd.Context()); err != nil {
			return err
		}
		color.Green("✓ index tables are up to date")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{leavesCmd, centroidsCmd, migrateCmd} {
		c.Flags().StringVar(&dsn, "dsn", envOr("DB_CONNECTION_STRING", ""), "Postgres connection string")
	}
	leavesCmd.Flags().StringVar(&leafLabel, "label", "", "only show this emotion")
	leavesCmd.Flags().IntVar(&leafLimit, "limit", 20, "maximum rows")
	rootCmd.AddCommand(leavesCmd, centroidsCmd, migrateCmd)
}
