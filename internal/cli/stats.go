package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/speechkit/corpusgen/internal/format"
	"github.com/speechkit/corpusgen/internal/manifest"
	"github.com/speechkit/corpusgen/internal/pipeline"
)

// StatsCmd creates the stats command. Without arguments it summarizes the
// merged train/test/dev manifests and rewrites corpus.json; given a manifest
// path it prints that file's count and total duration only.
func StatsCmd(env *Env) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats [manifest]",
		Short: "Summarize the assembled dataset",
		Example: `  corpusgen stats
  corpusgen stats data/librispeech_train.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runStats(env, configPath, args)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (default: built-in defaults)")

	return cmd
}

func runStats(env *Env, configPath string, args []string) error {
	cfg, err := env.ConfigLoader.Load(configPath)
	if err != nil {
		return err
	}
	store := manifest.NewStore(cfg.DataDir, cfg.Delimiter())

	if len(args) == 1 {
		size, length, err := store.Length(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "%s: %d examples, %s of audio\n",
			args[0], size, format.Seconds(length))
		return nil
	}

	var md pipeline.Metadata
	for _, split := range []manifest.Split{manifest.SplitTrain, manifest.SplitTest, manifest.SplitDev} {
		path := filepath.Join(cfg.DataDir, string(split)+".csv")
		size, length, err := store.Length(path)
		if err != nil {
			return err
		}

		switch split {
		case manifest.SplitTrain:
			md.TrainSize, md.TrainLength = size, length
		case manifest.SplitTest:
			md.TestSize = size
		case manifest.SplitDev:
			md.DevSize = size
		}
		fmt.Fprintf(env.Stdout, "%-6s %8d examples  %s of audio\n",
			split, size, format.Seconds(length))
	}

	return pipeline.WriteMetadata(filepath.Join(cfg.DataDir, pipeline.MetadataFile), md)
}
