package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"kbindex/internal/app"
	"kbindex/internal/index"
)

var (
	buildRoot     string
	buildOut      string
	buildProvider string
	buildModel    string
	buildChromem  string
	buildDryRun   bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the index from all sources",
	Long: `Runs a full rebuild: collects sources under the knowledge-base root,
chunks them, embeds every chunk and writes shards plus manifest.json.
Configuration comes from the environment (and .env); flags override it.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildRoot, "root", "", "Knowledge-base root (KB_ROOT)")
	buildCmd.Flags().StringVar(&buildOut, "out", "", "Index output directory (OUTPUT_DIR)")
	buildCmd.Flags().StringVar(&buildProvider, "provider", "", "Embedding provider: openai, ollama, gemini (EMBED_PROVIDER)")
	buildCmd.Flags().StringVar(&buildModel, "model", "", "Embedding model (EMBED_MODEL)")
	buildCmd.Flags().StringVar(&buildChromem, "chromem", "", "Also export a chromem DB file (CHROMEM_EXPORT)")
	buildCmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "Collect and chunk only, no embeddings and no writes")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd, map[string]string{
		"KB_ROOT":        buildRoot,
		"OUTPUT_DIR":     buildOut,
		"EMBED_PROVIDER": buildProvider,
		"EMBED_MODEL":    buildModel,
		"CHROMEM_EXPORT": buildChromem,
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}
	defer a.Close()
	a.SetDryRun(buildDryRun)

	if err := a.Init(cmd.Context()); err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}

	res, err := a.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	if res.DryRun {
		cmd.Printf("Dry run: %d chunks from sources, %d skipped items\n", res.Records, len(res.Issues))
		return nil
	}
	cmd.Printf("KB index built: %d chunks -> %s\n", res.Manifest.TotalChunks, filepath.Join(res.OutputDir, index.ManifestFile))
	return nil
}
