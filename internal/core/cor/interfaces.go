// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cor (Chain of Responsibility) provides the building blocks of the
// clip pipeline: commands that each perform one step, chains that run them in
// order, and the job context that carries data, errors and the scratch area
// between them.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys a BaseChain uses to pass the output of one
// command to the next. After every command the value stored under CtxOut is
// moved to CtxIn.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// Context is the mutable state shared by the commands of one job.
type Context interface {
	SetContext(context context.Context)
	GetContext() context.Context

	Add(key string, value interface{}) Context
	Get(key string) interface{}
	Remove(key string)

	// AddError records err against key; any recorded error stops a chain.
	AddError(key string, err error)
	GetErrors() map[string]error
	HasErrors() bool
	// Err joins the recorded errors in the order they were added.
	Err() error

	// SetScratchDir registers the directory that holds every intermediate
	// file of the job. It is removed by Close.
	SetScratchDir(dir string)
	GetScratchDir() string

	AddTempFile(file string)
	GetTempFiles() []string

	// Close removes the temporary files and the scratch directory.
	Close()
}

// Executable is anything that can run against a job context.
type Executable interface {
	Execute(context Context)
}

// Command is a single, instrumented pipeline step.
type Command interface {
	Executable

	GetName() string
	GetInputParam() string
	GetOutputParam() string

	// IsExecutable reports whether the command's preconditions hold. Chains
	// skip commands that are not executable.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command made of an ordered list of commands.
type Chain interface {
	Command

	ContinueOnFailure(bool) Chain
	AddCommand(command Command) Chain
}

// Value returns the value stored under key when it has type T.
func Value[T any](c Context, key string) (T, bool) {
	v, ok := c.Get(key).(T)
	return v, ok
}
