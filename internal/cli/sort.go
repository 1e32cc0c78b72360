package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/speechkit/corpusgen/internal/manifest"
)

// SortCmd creates the sort command, which length-sorts an existing manifest
// in place.
func SortCmd(env *Env) *cobra.Command {
	var (
		configPath string
		maxLength  float64
	)

	cmd := &cobra.Command{
		Use:   "sort [manifest]",
		Short: "Length-sort a manifest ascending, in place",
		Long: `Rewrite a manifest sorted ascending by audio duration so training can
feed examples shortest-first. Defaults to the train manifest in the data
directory.

With --max-length, examples at or above the given duration are removed
before writing.`,
		Example: `  corpusgen sort
  corpusgen sort data/train.csv --max-length 17`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(env, configPath, args, maxLength, cmd.Flags().Changed("max-length"))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (default: built-in defaults)")
	cmd.Flags().Float64Var(&maxLength, "max-length", 0, "Remove examples this long or longer, in seconds (default: config max_train_seconds)")

	return cmd
}

func runSort(env *Env, configPath string, args []string, maxLength float64, maxSet bool) error {
	cfg, err := env.ConfigLoader.Load(configPath)
	if err != nil {
		return err
	}
	if !maxSet {
		maxLength = cfg.MaxTrainSeconds
	}

	store := manifest.NewStore(cfg.DataDir, cfg.Delimiter())
	path := filepath.Join(cfg.DataDir, string(manifest.SplitTrain)+".csv")
	if len(args) == 1 {
		path = args[0]
	}

	h, err := store.Open(path)
	if err != nil {
		return err
	}
	removed, err := store.SortByLength(h, maxLength)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Stdout, "Sorted %s", path)
	if removed > 0 {
		fmt.Fprintf(env.Stdout, ", removed %d examples of %gs or longer", removed, maxLength)
	}
	fmt.Fprintln(env.Stdout)
	return nil
}
