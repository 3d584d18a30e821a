package main

import (
	"fmt"

	"github.com/Scusemua/go-utils/config"
	"github.com/goccy/go-json"

	"github.com/scusemua/priter/common/configuration"
	"github.com/scusemua/priter/internal/job"
)

// ReduceTaskOptions is the CLI/YAML-configurable surface for one reduce task process:
// the shared "priter.*" job configuration, this task's own identity, and the map
// destinations it needs wired before Submit.
type ReduceTaskOptions struct {
	config.LoggerOptions
	configuration.JobConfig

	TaskId      string `name:"priter.task.id" json:"priter.task.id" yaml:"priter.task.id" description:"This task's identity."`
	PartitionId int    `name:"priter.task.partition" json:"priter.task.partition" yaml:"priter.task.partition" description:"This task's reduce-side partition id."`
	InputDir    string `name:"priter.task.input" json:"priter.task.input" yaml:"priter.task.input" description:"Subgraph input directory; defaults to priter.job."`

	// MapDestsJSON is a JSON-encoded []job.MapDestination. go-utils/config only binds
	// scalar leaf fields to flags, so a list of peer addresses travels as one string.
	MapDestsJSON string `name:"priter.task.mapdests" json:"priter.task.mapdests" yaml:"priter.task.mapdests" description:"JSON-encoded list of job.MapDestination."`

	// Kickoff, when set, injects the SpillIter event that starts this task's first
	// iteration right after Submit. Exactly one reduce task per job should set this.
	Kickoff bool `name:"priter.task.kickoff" json:"priter.task.kickoff" yaml:"priter.task.kickoff" description:"Inject the first iteration after Submit."`
}

func (o *ReduceTaskOptions) Validate() error {
	if o.TaskId == "" {
		return fmt.Errorf("priter.task.id is required")
	}
	if o.JobId == "" {
		return fmt.Errorf("priter.job is required")
	}
	return nil
}

// mapDests decodes MapDestsJSON, tolerating an empty string (no destinations wired
// up front; AddMapDestination can still be called later by a driver).
func (o *ReduceTaskOptions) mapDests() ([]job.MapDestination, error) {
	if o.MapDestsJSON == "" {
		return nil, nil
	}
	var dests []job.MapDestination
	if err := json.Unmarshal([]byte(o.MapDestsJSON), &dests); err != nil {
		return nil, fmt.Errorf("decoding priter.task.mapdests: %w", err)
	}
	return dests, nil
}
