package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/Scusemua/go-utils/config"
	"github.com/pkg/errors"

	"github.com/scusemua/priter/common/configuration"
	"github.com/scusemua/priter/common/utils"
	"github.com/scusemua/priter/internal/examplejob"
	"github.com/scusemua/priter/internal/job"
)

var (
	options      = ReduceTaskOptions{}
	globalLogger = config.GetLogger("")
	sig          = make(chan os.Signal, 1)
)

func init() {
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGABRT)

	options.JobConfig = *configuration.Default()
}

// ValidateOptions ensures the options/configuration is valid, exiting on a parse error
// or a usage request.
func ValidateOptions() {
	flags, err := config.ValidateOptions(&options)
	if errors.Is(err, config.ErrPrintUsage) {
		flags.PrintDefaults()
		os.Exit(0)
	} else if err != nil {
		log.Fatal(err)
	}
}

func main() {
	defer finalize()

	ValidateOptions()

	if options.PrettyPrintOptions {
		globalLogger.Info("Starting reduce task %s with options:\n%s", options.TaskId, options.JobConfig.PrettyString(2))
	} else {
		globalLogger.Info("Starting reduce task %s.", options.TaskId)
	}

	mapDests, err := options.mapDests()
	if err != nil {
		log.Fatal(err)
	}

	task := job.NewReduceTask(options.TaskId, examplejob.SumCodec{})
	task.PartitionId = options.PartitionId
	task.InputDir = options.InputDir
	task.MapDests = mapDests

	cfg := options.JobConfig
	if err := task.Init(&cfg); err != nil {
		log.Fatalf("failed to initialize reduce task %s: %v", options.TaskId, err)
	}

	globalLogger.Info("%s listening: pkvAddr=%s", task, task.PKVAddr())

	ctx, cancel := context.WithCancel(context.Background())

	handle, err := task.Submit(ctx)
	if err != nil {
		log.Fatalf("failed to submit reduce task %s: %v", options.TaskId, err)
	}

	if options.Kickoff {
		task.Kickoff()
	}

	go func() {
		<-sig
		globalLogger.Info("Shutting down %s...", task)
		cancel()
	}()

	if err := handle.Wait(); err != nil {
		globalLogger.Error(utils.RedStyle.Render("%s exited with error: %v"), task, err)
	}

	cancel()
}

func finalize() {
	if err := recover(); err != nil {
		globalLogger.Error("recovered from panic: %v", err)
		debug.PrintStack()
		os.Exit(1)
	}
}
