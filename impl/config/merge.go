package config

// Merge takes a struct indicating which configuration options have been provided on the command
// line, as well as a configuration struct parsed from the command line which ALSO includes defaults
// that the user didn't specify. For example the default concurrency is 4 and if you don't specify
// that on the command line - it gets defaulted into the parsed configuration struct. So:
//
//  1. User provided a value: overwrite current config using the user's value
//  2. User did not provide a value, current config is unspecified: use the default in the parsed config
//  3. User did not provide a value, current config is specified: leave the current config untouched
//
// The sub-command settings are merged field by field since the file may set the key of
// one sub-command while the command line sets the other.
func Merge(fromCmdline FromCmdLine, cfg Configuration) {
	if fromCmdline.LogLevel || config.LogLevel == "" {
		config.LogLevel = cfg.LogLevel
	}
	if fromCmdline.LogFile || config.LogFile == "" {
		config.LogFile = cfg.LogFile
	}
	if fromCmdline.ConfigFile || config.ConfigFile == "" {
		config.ConfigFile = cfg.ConfigFile
	}
	if fromCmdline.WorkDir || config.WorkDir == "" {
		config.WorkDir = cfg.WorkDir
	}
	if fromCmdline.CacheDir || config.CacheDir == "" {
		config.CacheDir = cfg.CacheDir
	}
	if fromCmdline.Concurrency || config.Concurrency == 0 {
		config.Concurrency = cfg.Concurrency
	}
	if fromCmdline.SkipParallel || !config.SkipParallel {
		config.SkipParallel = cfg.SkipParallel
	}
	if fromCmdline.Filter || config.Filter == "" {
		config.Filter = cfg.Filter
	}
	if fromCmdline.Engine || config.Engine == "" {
		config.Engine = cfg.Engine
	}
	if fromCmdline.StateFile || config.StateFile == "" {
		config.StateFile = cfg.StateFile
	}
	if fromCmdline.MetricsFile || config.MetricsFile == "" {
		config.MetricsFile = cfg.MetricsFile
	}
	if fromCmdline.RestoreConfig {
		if cfg.RestoreConfig.Key != "" || config.RestoreConfig.Key == "" {
			config.RestoreConfig.Key = cfg.RestoreConfig.Key
		}
		if cfg.RestoreConfig.RestoreKeys != "" || config.RestoreConfig.RestoreKeys == "" {
			config.RestoreConfig.RestoreKeys = cfg.RestoreConfig.RestoreKeys
		}
	}
	if fromCmdline.SaveConfig {
		if cfg.SaveConfig.Key != "" || config.SaveConfig.Key == "" {
			config.SaveConfig.Key = cfg.SaveConfig.Key
		}
		if cfg.SaveConfig.SkipSave {
			config.SaveConfig.SkipSave = true
		}
	}
}
