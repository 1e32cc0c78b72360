package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/speechkit/corpusgen/internal/audio"
	"github.com/speechkit/corpusgen/internal/config"
	"github.com/speechkit/corpusgen/internal/format"
	"github.com/speechkit/corpusgen/internal/loader"
	"github.com/speechkit/corpusgen/internal/logging"
	"github.com/speechkit/corpusgen/internal/manifest"
	"github.com/speechkit/corpusgen/internal/pipeline"
)

// corpusOrder fixes the order corpora are processed in, so merged manifests
// are reproducible run to run regardless of config map iteration.
var corpusOrder = []string{"commonvoice", "librispeech", "tatoeba", "tedlium"}

// GenerateCmd creates the generate command.
// The env parameter provides injectable dependencies for testing.
func GenerateCmd(env *Env) *cobra.Command {
	var (
		configPath   string
		keepArchives bool
		withTIMIT    bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Download corpora and assemble the dataset manifests",
		Long: `Download the configured corpus archives, convert their audio to 16 kHz
mono WAV, and assemble the train/test/dev CSV manifests plus corpus.json.

The train manifest is length-sorted ascending so training can feed examples
shortest-first. TIMIT is licensed and cannot be downloaded; place its tree
under <corpus_dir>/TIMIT and enable it with --timit.`,
		Example: `  corpusgen generate
  corpusgen generate --config corpusgen.yaml --keep-archives=false
  corpusgen generate --timit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, env, configPath, keepArchives, withTIMIT)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (default: built-in defaults)")
	cmd.Flags().BoolVar(&keepArchives, "keep-archives", true, "Keep downloaded archives after extraction")
	cmd.Flags().BoolVar(&withTIMIT, "timit", false, "Include the manually installed TIMIT corpus")

	return cmd
}

func runGenerate(cmd *cobra.Command, env *Env, configPath string, keepArchives, withTIMIT bool) error {
	ctx := cmd.Context()

	cfg, err := env.ConfigLoader.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(env.Stderr, logging.Options{Level: cfg.LogLevel})
	if err != nil {
		return err
	}

	for _, dir := range []string{cfg.DataDir, cfg.CacheDir, cfg.CorpusDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	soxPath, err := env.SoxResolver.Resolve()
	if err != nil {
		return err
	}
	converter, err := env.ConverterFactory.NewConverter(soxPath, cfg.SampleRate)
	if err != nil {
		return err
	}

	deps := loader.Deps{
		Fetch:      env.FetcherFactory.NewFetcher(logger, cfg.CacheDir, keepArchives),
		FetchFile:  env.FetcherFactory.NewFileFetcher(logger),
		Convert:    converter,
		Probe:      audio.ProbeDuration,
		CacheDir:   cfg.CacheDir,
		CorpusDir:  cfg.CorpusDir,
		MinSeconds: cfg.MinExampleSeconds,
		MaxSeconds: cfg.MaxExampleSeconds,
		Workers:    cfg.Workers,
		Progress:   env.Stdout,
		Logger:     logger,
	}

	loaders, err := buildLoaders(cfg, deps, withTIMIT)
	if err != nil {
		return err
	}

	store := manifest.NewStore(cfg.DataDir, cfg.Delimiter())
	md, err := pipeline.New(cfg, store, logger).Run(ctx, loaders)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Stdout, "Train: %d examples, %s of audio\n",
		md.TrainSize, format.Seconds(md.TrainLength))
	fmt.Fprintf(env.Stdout, "Test:  %d examples\n", md.TestSize)
	fmt.Fprintf(env.Stdout, "Dev:   %d examples\n", md.DevSize)
	return nil
}

// buildLoaders instantiates one loader per configured corpus, in fixed order,
// plus TIMIT when requested.
func buildLoaders(cfg *config.Config, deps loader.Deps, withTIMIT bool) ([]pipeline.Loader, error) {
	known := map[string]bool{}
	for _, name := range corpusOrder {
		known[name] = true
	}
	for name := range cfg.Corpora {
		if !known[name] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCorpus, name)
		}
	}

	var loaders []pipeline.Loader
	for _, name := range corpusOrder {
		archives, ok := cfg.Corpora[name]
		if !ok {
			continue
		}
		switch name {
		case "commonvoice":
			loaders = append(loaders, loader.NewCommonVoice(deps, archives))
		case "librispeech":
			loaders = append(loaders, loader.NewLibriSpeech(deps, archives))
		case "tatoeba":
			loaders = append(loaders, loader.NewTatoeba(deps, archives))
		case "tedlium":
			loaders = append(loaders, loader.NewTEDLIUM(deps, archives))
		}
	}
	if withTIMIT {
		loaders = append(loaders, loader.NewTIMIT(deps))
	}

	if len(loaders) == 0 {
		return nil, ErrNoCorpora
	}
	return loaders, nil
}
