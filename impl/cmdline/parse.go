package cmdline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aceeric/layercache/impl/config"
	"github.com/aceeric/layercache/impl/engine"
	"github.com/aceeric/layercache/impl/globals"

	"github.com/urfave/cli/v3"
)

// fromCmdline will be populated with flags indicating which configuration settings were
// specified on the command line.
var fromCmdline config.FromCmdLine

// cfg has the parsed configuration - including defaults (e.g. concurrency) if the user does not override
var cfg = config.Configuration{}

// cmds is for the command line parser urfave/cli
var cmds = &cli.Command{
	Name:  "layercache",
	Usage: "caches container image layers between CI pipeline runs",
	// define this or the parser terminates the program
	ExitErrHandler: func(_ context.Context, _ *cli.Command, _ error) {},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Value:       "info",
			Usage:       "Sets the minimum value for logging: trace, debug, info, warn, or error",
			Destination: &cfg.LogLevel,
			Validator:   globals.ValidateLogLevel,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.LogLevel = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "log-file",
			Value:       "",
			Usage:       "log to the specified file rather than the console",
			Destination: &cfg.LogFile,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.LogFile = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "config-file",
			Usage:       "A file to load configuration values from (cmdline overrides file settings)",
			Destination: &cfg.ConfigFile,
			Validator:   isFile,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.ConfigFile = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "work-dir",
			Value:       filepath.Join(os.TempDir(), ".adlc"),
			Usage:       "The working directory that images are unpacked into (removed when done)",
			Destination: &cfg.WorkDir,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.WorkDir = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "cache-dir",
			Usage:       "The directory holding the cache entries, e.g. a volume shared by CI runs",
			Destination: &cfg.CacheDir,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.CacheDir = true
				return nil
			},
		},
		&cli.IntFlag{
			Name:        "concurrency",
			Value:       globals.DefaultConcurrency,
			Usage:       "The number of layers saved or restored at the same time",
			Destination: &cfg.Concurrency,
			Validator: func(n int64) error {
				if n < 1 {
					return fmt.Errorf("must be at least one")
				}
				return nil
			},
			Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
				fromCmdline.Concurrency = true
				return nil
			},
		},
		&cli.BoolFlag{
			Name:        "skip-parallel",
			Value:       false,
			Usage:       "Caches the images as a single entry rather than one entry per layer",
			Destination: &cfg.SkipParallel,
			Action: func(ctx context.Context, cmd *cli.Command, _ bool) error {
				fromCmdline.SkipParallel = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "filter",
			Usage:       "An image filter passed to the engine when listing images, e.g. 'reference=myorg/*'",
			Destination: &cfg.Filter,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.Filter = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "engine",
			Value:       engine.DefaultBinary,
			Usage:       "The container engine binary",
			Destination: &cfg.Engine,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.Engine = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "state-file",
			Value:       filepath.Join(os.TempDir(), "layercache-state.yaml"),
			Usage:       "The file that carries state from the restore step to the save step",
			Destination: &cfg.StateFile,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.StateFile = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "metrics-file",
			Usage:       "Writes cache metrics in the Prometheus text format to the specified file",
			Destination: &cfg.MetricsFile,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.MetricsFile = true
				return nil
			},
		},
	},
	Commands: []*cli.Command{
		{
			Name:  "restore",
			Usage: "Restores cached images into the container engine",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				fromCmdline.Command = "restore"
				return nil
			},
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:        "key",
					Usage:       "The key template to restore, e.g. 'Linux-node-{hash}'",
					Destination: &cfg.RestoreConfig.Key,
					Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
						fromCmdline.RestoreConfig = true
						return nil
					},
				},
				&cli.StringFlag{
					Name:        "restore-keys",
					Usage:       "Newline-separated key prefixes to restore from if the key is not cached",
					Destination: &cfg.RestoreConfig.RestoreKeys,
					Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
						fromCmdline.RestoreConfig = true
						return nil
					},
				},
			},
		},
		{
			Name:  "save",
			Usage: "Saves the images that appeared since the restore step into the cache",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				fromCmdline.Command = "save"
				return nil
			},
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:        "key",
					Usage:       "The key template to save under, e.g. 'Linux-node-{hash}'",
					Destination: &cfg.SaveConfig.Key,
					Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
						fromCmdline.SaveConfig = true
						return nil
					},
				},
				&cli.BoolFlag{
					Name:        "skip-save",
					Value:       false,
					Usage:       "Does not save anything",
					Destination: &cfg.SaveConfig.SkipSave,
					Action: func(ctx context.Context, cmd *cli.Command, _ bool) error {
						fromCmdline.SaveConfig = true
						return nil
					},
				},
			},
		},
		{
			Name:  "version",
			Usage: "Displays the version",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				fromCmdline.Command = "version"
				return nil
			},
		},
	},
}

func isFile(path string) error {
	if fi, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found")
	} else if fi.IsDir() {
		return fmt.Errorf("not a file")
	}
	return nil
}

// Parse parses the command line. It returns the following:
//
//  1. A FromCmdLine struct which has the command to run ("restore" or "save"). If the command
//     is the empty string then no sub-command was specified in which case the parser auto-displays
//     help. This struct also has flags telling you which configuration values were provided by the
//     user on the command line.
//  2. A Configuration struct containing the parsed configuration values. For any configuration flag
//     in the FromCmdLine struct with a false value, the corresponding configuration value in *this*
//     struct will be the default.
//  3. An error, if the parser returned one, else nil.
func Parse() (config.FromCmdLine, config.Configuration, error) {
	if err := cmds.Run(context.Background(), os.Args); err != nil {
		return config.FromCmdLine{}, config.Configuration{}, err
	}
	return fromCmdline, cfg, nil
}

// ClearParse supports unit testing
func ClearParse() {
	fromCmdline = config.FromCmdLine{}
	cfg = config.Configuration{}
}
