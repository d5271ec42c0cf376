package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

var testCfg = `
---
logLevel: error
logFile: /foo/bar/baz.log
workDir: /tmp/.adlc
cacheDir: /var/cache/layercache
concurrency: 8
skipParallel: false
filter: reference=myorg/*
engine: podman
stateFile: /tmp/layercache-state.yaml
metricsFile: /var/lib/node-exporter/layercache.prom
restoreConfig:
  key: Linux-node-{hash}
  restoreKeys: |
    Linux-node-
    Linux-
saveConfig:
  key: Linux-node-{hash}
  skipSave: true
`

var expectConfig = Configuration{
	LogLevel:     "error",
	LogFile:      "/foo/bar/baz.log",
	WorkDir:      "/tmp/.adlc",
	CacheDir:     "/var/cache/layercache",
	Concurrency:  8,
	SkipParallel: false,
	Filter:       "reference=myorg/*",
	Engine:       "podman",
	StateFile:    "/tmp/layercache-state.yaml",
	MetricsFile:  "/var/lib/node-exporter/layercache.prom",
	RestoreConfig: RestoreConfig{
		Key:         "Linux-node-{hash}",
		RestoreKeys: "Linux-node-\nLinux-\n",
	},
	SaveConfig: SaveConfig{
		Key:      "Linux-node-{hash}",
		SkipSave: true,
	},
}

// Test loading and parsing a configuration file
func TestLoadConfigFile(t *testing.T) {
	td, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fail()
	}
	defer os.RemoveAll(td)
	cfgFile := filepath.Join(td, "testcfg.yaml")
	os.WriteFile(cfgFile, []byte(testCfg), 0700)
	if Load(cfgFile) != nil {
		t.Fail()
	}
	if !reflect.DeepEqual(config, expectConfig) {
		t.Fail()
	}
}

func TestLoadMissingFile(t *testing.T) {
	if Load(filepath.Join(t.TempDir(), "nope.yaml")) == nil {
		t.Fail()
	}
}

func TestLoadBadYaml(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "testcfg.yaml")
	os.WriteFile(cfgFile, []byte("concurrency: [1, 2"), 0700)
	if Load(cfgFile) == nil {
		t.Fail()
	}
}

// Test that command line values override the file, defaults fill in what the file
// does not have, and file values survive otherwise
func TestMerge(t *testing.T) {
	Set(Configuration{
		LogLevel:      "debug",
		CacheDir:      "/from/file",
		Concurrency:   8,
		RestoreConfig: RestoreConfig{RestoreKeys: "from-file-"},
	})
	fromCmdline := FromCmdLine{
		Command:       "restore",
		CacheDir:      true,
		RestoreConfig: true,
	}
	cmdCfg := Configuration{
		LogLevel:      "error",
		CacheDir:      "/from/cmdline",
		Concurrency:   4,
		Engine:        "docker",
		RestoreConfig: RestoreConfig{Key: "k-{hash}"},
	}
	Merge(fromCmdline, cmdCfg)
	expect := Configuration{
		LogLevel:      "debug",
		CacheDir:      "/from/cmdline",
		Concurrency:   8,
		Engine:        "docker",
		RestoreConfig: RestoreConfig{Key: "k-{hash}", RestoreKeys: "from-file-"},
	}
	if !reflect.DeepEqual(Get(), expect) {
		t.Fatalf("unexpected merged config: %+v", Get())
	}
}

func TestMergeSave(t *testing.T) {
	Set(Configuration{SaveConfig: SaveConfig{Key: "file-{hash}", SkipSave: true}})
	Merge(FromCmdLine{Command: "save", SaveConfig: true}, Configuration{})
	if GetSaveConfig() != (SaveConfig{Key: "file-{hash}", SkipSave: true}) {
		t.Fail()
	}
	Merge(FromCmdLine{Command: "save", SaveConfig: true}, Configuration{SaveConfig: SaveConfig{Key: "cmd-{hash}"}})
	if GetSaveConfig() != (SaveConfig{Key: "cmd-{hash}", SkipSave: true}) {
		t.Fail()
	}
}

// test getters
func TestGetters(t *testing.T) {
	rc := RestoreConfig{
		Key:         "a",
		RestoreKeys: "b",
	}
	sc := SaveConfig{
		Key:      "c",
		SkipSave: true,
	}
	tLogLevel := "d"
	tLogFile := "e"
	tConfigFile := "f"
	tWorkDir := "g"
	tCacheDir := "h"
	tConcurrency := int64(3)
	tSkipParallel := true
	tFilter := "i"
	tEngine := "j"
	tStateFile := "k"
	tMetricsFile := "l"

	c := Configuration{
		LogLevel:      tLogLevel,
		LogFile:       tLogFile,
		ConfigFile:    tConfigFile,
		WorkDir:       tWorkDir,
		CacheDir:      tCacheDir,
		Concurrency:   tConcurrency,
		SkipParallel:  tSkipParallel,
		Filter:        tFilter,
		Engine:        tEngine,
		StateFile:     tStateFile,
		MetricsFile:   tMetricsFile,
		RestoreConfig: rc,
		SaveConfig:    sc,
	}
	config = c

	if GetLogLevel() != tLogLevel {
		t.FailNow()
	}
	if GetLogFile() != tLogFile {
		t.FailNow()
	}
	if GetConfigFile() != tConfigFile {
		t.FailNow()
	}
	if GetWorkDir() != tWorkDir {
		t.FailNow()
	}
	if GetCacheDir() != tCacheDir {
		t.FailNow()
	}
	if GetConcurrency() != tConcurrency {
		t.FailNow()
	}
	if GetSkipParallel() != tSkipParallel {
		t.FailNow()
	}
	if GetFilter() != tFilter {
		t.FailNow()
	}
	if GetEngine() != tEngine {
		t.FailNow()
	}
	if GetStateFile() != tStateFile {
		t.FailNow()
	}
	if GetMetricsFile() != tMetricsFile {
		t.FailNow()
	}
	if GetRestoreConfig() != rc {
		t.FailNow()
	}
	if GetSaveConfig() != sc {
		t.FailNow()
	}
}
