package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aceeric/layercache/cmd/subcmd"
	"github.com/aceeric/layercache/impl/config"
	"github.com/aceeric/layercache/impl/globals"
	"github.com/aceeric/layercache/impl/metrics"

	log "github.com/sirupsen/logrus"
)

// set by the build
var (
	buildVer string
	buildDtm string
)

func main() {
	os.Exit(realMain())
}

// realMain runs the sub-command from the command line and returns the process exit code
func realMain() int {
	command, err := getCfg()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error parsing the command line: %s\n", err)
		return 1
	}
	globals.ConfigureLogging(config.GetLogLevel(), config.GetLogFile())
	if config.GetMetricsFile() != "" {
		metrics.InitMetrics()
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "restore":
		err = subcmd.Restore(ctx)
	case "save":
		err = subcmd.Save(ctx)
	case "version":
		fmt.Printf("layercache version: %s build date: %s\n", buildVer, buildDtm)
		return 0
	default:
		// no sub-command: the parser displayed help
		return 0
	}
	if merr := metrics.WriteMetrics(config.GetMetricsFile()); merr != nil {
		log.Errorf("unable to write metrics: %s", merr)
	}
	if err != nil {
		log.Error(err)
		return 1
	}
	return 0
}
