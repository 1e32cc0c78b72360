package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/speechkit/corpusgen/internal/manifest"
)

// BucketsCmd creates the buckets command, which computes sequence-length
// bucket boundaries from a length-sorted manifest.
func BucketsCmd(env *Env) *cobra.Command {
	var (
		configPath string
		numBuckets int
		winStep    float64
	)

	cmd := &cobra.Command{
		Use:   "buckets [manifest]",
		Short: "Compute length bucket boundaries from a sorted manifest",
		Long: `Print bucket boundaries for batching by sequence length, expressed in
feature frames (duration divided by the analysis window step). The manifest
must already be length-sorted; run 'corpusgen sort' first. Defaults to the
train manifest in the data directory.`,
		Example: `  corpusgen buckets
  corpusgen buckets data/train.csv --num-buckets 32 --win-step 0.01`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuckets(env, configPath, args, numBuckets, winStep)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (default: built-in defaults)")
	cmd.Flags().IntVarP(&numBuckets, "num-buckets", "n", 0, "Maximum number of buckets (default: config num_buckets)")
	cmd.Flags().Float64Var(&winStep, "win-step", 0, "Analysis window step in seconds (default: config win_step)")

	return cmd
}

func runBuckets(env *Env, configPath string, args []string, numBuckets int, winStep float64) error {
	cfg, err := env.ConfigLoader.Load(configPath)
	if err != nil {
		return err
	}
	if numBuckets == 0 {
		numBuckets = cfg.NumBuckets
	}
	if winStep == 0 {
		winStep = cfg.WinStep
	}

	store := manifest.NewStore(cfg.DataDir, cfg.Delimiter())
	path := filepath.Join(cfg.DataDir, string(manifest.SplitTrain)+".csv")
	if len(args) == 1 {
		path = args[0]
	}

	h, err := store.OpenSorted(path)
	if err != nil {
		return err
	}
	boundaries, err := store.BucketBoundaries(h, numBuckets, winStep)
	if err != nil {
		return err
	}

	parts := make([]string, len(boundaries))
	for i, b := range boundaries {
		parts[i] = fmt.Sprint(b)
	}
	fmt.Fprintf(env.Stdout, "%d buckets: [%s]\n", len(boundaries), strings.Join(parts, ", "))
	return nil
}
