package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/syssam/stateshift/compiler/gen"
	"github.com/syssam/stateshift/compiler/load"
)

// DefaultConfigFile is read from the working directory when --config is not given.
const DefaultConfigFile = ".stateshift.yaml"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Tag        string
	Suffix     string
	Workers    int
	KeepGoing  bool
	NoCache    bool
	Verbose    bool
}

// fileConfig is the configuration read from the YAML file, then overridden
// by STATESHIFT_* environment variables.
type fileConfig struct {
	Tag        string   `yaml:"tag"         env:"STATESHIFT_TAG"`
	Suffix     string   `yaml:"suffix"      env:"STATESHIFT_SUFFIX"`
	Header     string   `yaml:"header"      env:"STATESHIFT_HEADER"`
	StateField string   `yaml:"state_field" env:"STATESHIFT_STATE_FIELD"`
	Workers    int      `yaml:"workers"     env:"STATESHIFT_WORKERS"`
	KeepGoing  bool     `yaml:"keep_going"  env:"STATESHIFT_KEEP_GOING"`
	Cache      string   `yaml:"cache"       env:"STATESHIFT_CACHE"`
	BuildFlags []string `yaml:"build_flags" env:"STATESHIFT_BUILD_FLAGS" envSeparator:" "`
}

// settings is the resolved configuration of one command run.
type settings struct {
	gen  *gen.Config
	load load.Config
	log  *slog.Logger
}

// NewRootCommand creates the root command for the stateshift CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "stateshift",
		Short: "stateshift - compile-time state machines for Go structs",
		Long: `stateshift expands structs annotated with //stateshift: directives into
generic types whose type parameters record the state of every value, so the
Go type checker rejects operations called in the wrong state.

Annotated files carry //go:build stateshift; the generated <name>_stateshift.go
files carry //go:build !stateshift and are what the normal build compiles.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	opts.addFlags(cmd)

	// Add subcommands
	cmd.AddCommand(NewGenCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// addFlags registers the global flags on cmd.
func (o *RootOptions) addFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.ConfigPath, "config", "", "configuration file (default "+DefaultConfigFile+" when present)")
	flags.StringVar(&o.Tag, "tag", gen.DefaultTag, "build tag guarding annotated sources")
	flags.StringVar(&o.Suffix, "suffix", gen.DefaultSuffix, "suffix of generated files")
	flags.IntVar(&o.Workers, "workers", 0, "files expanded in parallel (0 = GOMAXPROCS)")
	flags.BoolVar(&o.KeepGoing, "keep-going", false, "write outputs of files with diagnostics, leaving failing declarations out")
	flags.BoolVar(&o.NoCache, "no-cache", false, "expand every file, ignoring the incremental cache")
	flags.BoolVarP(&o.Verbose, "verbose", "v", false, "verbose output")
}

// resolve layers the configuration: defaults, then the YAML file, then the
// environment, then the flags set on the command line.
func (o *RootOptions) resolve(cmd *cobra.Command) (*settings, error) {
	fc, err := readConfigFile(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := env.Parse(fc); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("tag") || fc.Tag == "" {
		fc.Tag = o.Tag
	}
	if flags.Changed("suffix") || fc.Suffix == "" {
		fc.Suffix = o.Suffix
	}
	if flags.Changed("workers") {
		fc.Workers = o.Workers
	}
	if flags.Changed("keep-going") {
		fc.KeepGoing = o.KeepGoing
	}

	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	genOpts := []gen.Option{
		gen.WithTag(fc.Tag),
		gen.WithSuffix(fc.Suffix),
		gen.WithWorkers(fc.Workers),
		gen.WithKeepGoing(fc.KeepGoing),
		gen.WithLogger(logger),
	}
	if fc.Header != "" {
		genOpts = append(genOpts, gen.WithHeader(fc.Header))
	}
	if fc.StateField != "" {
		genOpts = append(genOpts, gen.WithStateField(fc.StateField))
	}
	if !o.NoCache {
		path := fc.Cache
		if path == "" {
			path = defaultCachePath()
		}
		if path != "" {
			genOpts = append(genOpts, gen.WithCache(path))
		}
	}
	cfg, err := gen.NewConfig(genOpts...)
	if err != nil {
		return nil, err
	}
	return &settings{
		gen: cfg,
		load: load.Config{
			Tag:        cfg.Tag,
			BuildFlags: fc.BuildFlags,
			IsOutput:   cfg.IsOutput,
		},
		log: logger,
	}, nil
}

// readConfigFile reads path, or DefaultConfigFile when path is empty and the
// file exists. Unknown keys are rejected.
func readConfigFile(path string) (*fileConfig, error) {
	fc := &fileConfig{}
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		return fc, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc, nil
}

// defaultCachePath returns the cache file in the user cache directory, or ""
// when there is none.
func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "stateshift", "cache.msgpack")
}
