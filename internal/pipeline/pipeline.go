// Package pipeline applies an ordered chain of cleanup tasks to a pair of
// snapshots before they are diffed.
package pipeline

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Task transforms both sides of a pair in place. Either side may be nil.
// A task only removes or normalizes content; it never changes a side's type.
type Task func(before, after *unstructured.Unstructured)

type namedTask struct {
	name string
	run  Task
}

// Pipeline is an ordered list of tasks. Registration order is execution order.
type Pipeline struct {
	tasks []namedTask
}

// Policy holds the knobs that decide which tasks a pipeline carries.
// It is resolved once, in New.
type Policy struct {
	IncludeManagedFields  bool
	IncludeLastApplied    bool
	IgnoreStatus          bool
	IgnoreResourceVersion bool
}

// Empty creates a pipeline with no tasks.
func Empty() *Pipeline {
	return &Pipeline{}
}

// New builds the standard pipeline for a policy.
func New(policy Policy) *Pipeline {
	p := Empty()
	if !policy.IncludeManagedFields {
		p.AddTask("exclude-managed-fields", ExcludeManagedFields)
	}
	if !policy.IncludeLastApplied {
		p.AddTask("exclude-last-applied", ExcludeLastAppliedConfiguration)
	}
	if policy.IgnoreResourceVersion {
		p.AddTask("exclude-resource-version", ExcludeResourceVersion)
	}
	if policy.IgnoreStatus {
		p.AddTask("exclude-status", ExcludeStatus)
	}
	return p
}

// AddTask appends a task to the end of the pipeline.
func (p *Pipeline) AddTask(name string, task Task) *Pipeline {
	p.tasks = append(p.tasks, namedTask{name: name, run: task})
	return p
}

// Process runs every task, in order, against the pair.
func (p *Pipeline) Process(before, after *unstructured.Unstructured) {
	for _, t := range p.tasks {
		t.run(before, after)
	}
}

// Tasks returns the task names in execution order.
func (p *Pipeline) Tasks() []string {
	names := make([]string, len(p.tasks))
	for i, t := range p.tasks {
		names[i] = t.name
	}
	return names
}
