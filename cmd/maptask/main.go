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
	"github.com/scusemua/priter/internal/partition"
)

var (
	options      = MapTaskOptions{}
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
		globalLogger.Info("Starting map task %s with options:\n%s", options.TaskId, options.JobConfig.PrettyString(2))
	} else {
		globalLogger.Info("Starting map task %s.", options.TaskId)
	}

	reduceDests, err := options.reduceDests()
	if err != nil {
		log.Fatal(err)
	}

	numPartitions := options.GraphPartitions
	if numPartitions <= 0 {
		numPartitions = 1
	}
	partitioner := partition.NewHashPartitioner(numPartitions)

	task := job.NewMapTask(options.TaskId, options.SubgraphPartitionId, examplejob.EchoActivator, partitioner)
	task.InputDir = options.InputDir
	task.ReduceDests = reduceDests

	cfg := options.JobConfig
	if err := task.Init(&cfg); err != nil {
		log.Fatalf("failed to initialize map task %s: %v", options.TaskId, err)
	}

	seeds, err := options.seeds()
	if err != nil {
		log.Fatal(err)
	}
	for _, seed := range seeds {
		task.Seed(seed.Key, []byte(seed.IState))
	}

	globalLogger.Info("%s listening: pkvAddr=%s streamAddr=%s", task, task.PKVAddr(), task.StreamAddr())

	ctx, cancel := context.WithCancel(context.Background())

	handle, err := task.Submit(ctx)
	if err != nil {
		log.Fatalf("failed to submit map task %s: %v", options.TaskId, err)
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
