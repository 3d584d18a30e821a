package main

import (
	"fmt"

	"github.com/Scusemua/go-utils/config"
	"github.com/goccy/go-json"

	"github.com/scusemua/priter/common/configuration"
	"github.com/scusemua/priter/internal/job"
)

// seedPair is one (key, iState) entry of a SeedJSON list.
type seedPair struct {
	Key    string `json:"key"`
	IState string `json:"iState"`
}

// MapTaskOptions is the CLI/YAML-configurable surface for one map task process: the
// shared "priter.*" job configuration, this task's own identity and subgraph
// partition, the reduce destinations it needs wired before Submit, and an optional
// initial seed set for jobs that start from a known iState rather than waiting on the
// first activation batch.
type MapTaskOptions struct {
	config.LoggerOptions
	configuration.JobConfig

	TaskId              string `name:"priter.task.id" json:"priter.task.id" yaml:"priter.task.id" description:"This task's identity."`
	SubgraphPartitionId int    `name:"priter.task.partition" json:"priter.task.partition" yaml:"priter.task.partition" description:"This task's map-side subgraph partition id."`
	InputDir            string `name:"priter.task.input" json:"priter.task.input" yaml:"priter.task.input" description:"Subgraph input directory; defaults to priter.job."`

	// ReduceDestsJSON is a JSON-encoded []job.ReduceDestination.
	ReduceDestsJSON string `name:"priter.task.reducedests" json:"priter.task.reducedests" yaml:"priter.task.reducedests" description:"JSON-encoded list of job.ReduceDestination."`

	// SeedJSON is a JSON-encoded []seedPair, decimal-float-encoded per examplejob.
	SeedJSON string `name:"priter.task.seed" json:"priter.task.seed" yaml:"priter.task.seed" description:"JSON-encoded list of {key,iState} seed pairs."`
}

func (o *MapTaskOptions) Validate() error {
	if o.TaskId == "" {
		return fmt.Errorf("priter.task.id is required")
	}
	if o.JobId == "" {
		return fmt.Errorf("priter.job is required")
	}
	return nil
}

func (o *MapTaskOptions) reduceDests() ([]job.ReduceDestination, error) {
	if o.ReduceDestsJSON == "" {
		return nil, nil
	}
	var dests []job.ReduceDestination
	if err := json.Unmarshal([]byte(o.ReduceDestsJSON), &dests); err != nil {
		return nil, fmt.Errorf("decoding priter.task.reducedests: %w", err)
	}
	return dests, nil
}

func (o *MapTaskOptions) seeds() ([]seedPair, error) {
	if o.SeedJSON == "" {
		return nil, nil
	}
	var pairs []seedPair
	if err := json.Unmarshal([]byte(o.SeedJSON), &pairs); err != nil {
		return nil, fmt.Errorf("decoding priter.task.seed: %w", err)
	}
	return pairs, nil
}
