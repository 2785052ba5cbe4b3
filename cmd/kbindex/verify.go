package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kbindex/internal/app"
	"kbindex/internal/index"
)

var (
	verifyRoot    string
	verifyOut     string
	verifyChromem string
	verifyProbe   int
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the manifest and shards are consistent",
	Long: `Loads manifest.json and every shard it lists, then checks the chunk
count, id uniqueness and embedding dimension. With --probe N the chromem
export is loaded and the first N records are looked up by their own vectors.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyRoot, "root", "", "Knowledge-base root (KB_ROOT)")
	verifyCmd.Flags().StringVar(&verifyOut, "out", "", "Index directory (OUTPUT_DIR)")
	verifyCmd.Flags().StringVar(&verifyChromem, "chromem", "", "Chromem DB file to probe (CHROMEM_EXPORT)")
	verifyCmd.Flags().IntVar(&verifyProbe, "probe", 0, "Number of records to look up in the chromem export")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd, map[string]string{
		"KB_ROOT":        verifyRoot,
		"OUTPUT_DIR":     verifyOut,
		"CHROMEM_EXPORT": verifyChromem,
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dir := cfg.Path(cfg.OutputDir)
	m, err := index.Verify(dir)
	if err != nil {
		return fmt.Errorf("verify %s: %w", dir, err)
	}
	cmd.Printf("Index OK: %d chunks in %d files (model %s, dim %d, version %s)\n",
		m.TotalChunks, len(m.Files), m.EmbeddingModel, m.EmbeddingDim, m.Version)

	if verifyProbe <= 0 || cfg.ChromemExport == "" {
		return nil
	}

	_, records, err := index.Load(dir)
	if err != nil {
		return err
	}
	probes, err := app.ProbeExport(cmd.Context(), cfg.Path(cfg.ChromemExport), records, verifyProbe)
	if err != nil {
		return fmt.Errorf("probe chromem export: %w", err)
	}
	misses := 0
	for _, p := range probes {
		if p.TopID != p.ID {
			misses++
			logger.Warn("Record is not its own nearest neighbour", "id", p.ID, "top", p.TopID, "similarity", p.Similarity)
		}
	}
	cmd.Printf("Chromem probe: %d/%d records found themselves first\n", len(probes)-misses, len(probes))
	return nil
}
