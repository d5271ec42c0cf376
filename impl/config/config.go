package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RestoreConfig configures the restore sub-command
type RestoreConfig struct {
	Key         string `yaml:"key"`
	RestoreKeys string `yaml:"restoreKeys"`
}

// SaveConfig configures the save sub-command
type SaveConfig struct {
	Key      string `yaml:"key"`
	SkipSave bool   `yaml:"skipSave"`
}

// Configuration represents the totality of configuration knobs and dials for the tool.
type Configuration struct {
	LogLevel      string        `yaml:"logLevel"`
	LogFile       string        `yaml:"logFile"`
	ConfigFile    string        `yaml:"configFile"`
	WorkDir       string        `yaml:"workDir"`
	CacheDir      string        `yaml:"cacheDir"`
	Concurrency   int64         `yaml:"concurrency"`
	SkipParallel  bool          `yaml:"skipParallel"`
	Filter        string        `yaml:"filter"`
	Engine        string        `yaml:"engine"`
	StateFile     string        `yaml:"stateFile"`
	MetricsFile   string        `yaml:"metricsFile"`
	RestoreConfig RestoreConfig `yaml:"restoreConfig"`
	SaveConfig    SaveConfig    `yaml:"saveConfig"`
}

// FromCmdLine has a flag for every command-line option. The parsing code
// sets the flag to true if the option was explicitly provided on the command
// line by the user.
type FromCmdLine struct {
	Command       string
	LogLevel      bool
	LogFile       bool
	ConfigFile    bool
	WorkDir       bool
	CacheDir      bool
	Concurrency   bool
	SkipParallel  bool
	Filter        bool
	Engine        bool
	StateFile     bool
	MetricsFile   bool
	RestoreConfig bool
	SaveConfig    bool
}

var config Configuration

func GetLogLevel() string {
	return config.LogLevel
}

func GetLogFile() string {
	return config.LogFile
}

func GetConfigFile() string {
	return config.ConfigFile
}

func GetWorkDir() string {
	return config.WorkDir
}

func GetCacheDir() string {
	return config.CacheDir
}

func GetConcurrency() int64 {
	return config.Concurrency
}

func GetSkipParallel() bool {
	return config.SkipParallel
}

func GetFilter() string {
	return config.Filter
}

func GetEngine() string {
	return config.Engine
}

func GetStateFile() string {
	return config.StateFile
}

func GetMetricsFile() string {
	return config.MetricsFile
}

func GetRestoreConfig() RestoreConfig {
	return config.RestoreConfig
}

func GetSaveConfig() SaveConfig {
	return config.SaveConfig
}

// Load loads the passed configuration file into the configuration struct
func Load(configFile string) error {
	if _, err := os.Stat(configFile); err != nil {
		return fmt.Errorf("unable to stat configuration file: %s", configFile)
	}
	if contents, err := os.ReadFile(configFile); err != nil {
		return fmt.Errorf("error reading configuration file: %s", configFile)
	} else if err := SetConfigFromStr(contents); err != nil {
		return fmt.Errorf("error parsing configuration file: %s, the error was: %s", configFile, err)
	}
	return nil
}

// Get gets the current configuration
func Get() Configuration {
	return config
}

// Set replaces the configuration with the passed configuration
func Set(cfg Configuration) {
	config = cfg
}

// SetConfigFromStr parses the yaml input and sets the configuration from it
func SetConfigFromStr(configBytes []byte) error {
	var cfg Configuration
	if err := yaml.Unmarshal(configBytes, &cfg); err != nil {
		return err
	} else {
		config = cfg
	}
	return nil
}
