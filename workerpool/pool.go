// Copyright 2024 by the Authors
// This file is part of the viewcore library.
//
// The viewcore library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The viewcore library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the viewcore library. If not, see <http://www.gnu.org/licenses/>.

// Package workerpool runs guest WebAssembly invocations on a fixed set of
// goroutine workers, each owning a dedicated wazero.Runtime (spec §4.4).
// Wazero's module-instantiation boundary is the isolation unit: every job
// gets its own instantiated module, and the worker's hostbridge.Bridge is
// Reset before each job, so one job's registers or logs can never leak into
// another's. All worker
// runtimes share one wazero.CompilationCache, so the expensive part of
// compilation — the part modcache's (ContractID, revision) cache guards
// against repeating — still happens at most once per distinct code blob.
package workerpool

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/core-coin/viewcore/hostbridge"
	"github.com/core-coin/viewcore/log"
	"github.com/core-coin/viewcore/modcache"
	"github.com/core-coin/viewcore/params"
	"github.com/core-coin/viewcore/resolver"
)

// ErrMethodNotFound is returned when the requested export does not exist on
// the compiled module, or is not callable as a zero-argument function.
var ErrMethodNotFound = errors.New("workerpool: method not found")

// ErrTimeout is returned when a job does not complete within its deadline.
var ErrTimeout = errors.New("workerpool: invocation deadline exceeded")

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("workerpool: pool is closed")

// Job is one unit of work submitted to the pool: invoke method on a
// compiled module, bound to a pinned-height Call and a contract identity.
type Job struct {
	Module   modcache.Module
	Call     *resolver.Call
	Contract []byte
	Method   string
	Args     []byte
}

// Result is a job's outcome.
type Result struct {
	ReturnValue []byte
	Logs        []string
}

// Pool is a fixed-capacity set of workers (spec §4.4).
type Pool struct {
	runtimeCfg wazero.RuntimeConfig
	jobs       chan jobRequest
	quit       chan struct{}
	log        log.Logger
}

// newRuntimeConfig builds the RuntimeConfig shared by every worker: a
// common compilation cache so Job.Module bytecode compiled on one worker's
// Runtime is near-free to recompile on another's, the linear-memory
// ceiling of spec §4.5's "charging / limits" clause, and
// WithCloseOnContextDone so a deadline firing on a CPU-bound guest loop
// with no host calls actually interrupts execution instead of only racing
// a goroutine that keeps running against the runtime underneath it.
func newRuntimeConfig() wazero.RuntimeConfig {
	cache := wazero.NewCompilationCache()
	return wazero.NewRuntimeConfig().
		WithCompilationCache(cache).
		WithMemoryLimitPages(params.MaxLinearMemoryPages).
		WithCloseOnContextDone(true)
}

type jobRequest struct {
	ctx    context.Context
	job    Job
	result chan<- jobOutcome
}

type jobOutcome struct {
	res Result
	err error
}

// New starts a Pool of size workers. size <= 0 uses params.DefaultPoolSize.
func New(size int) *Pool {
	if size <= 0 {
		size = params.DefaultPoolSize
	}
	p := &Pool{
		runtimeCfg: newRuntimeConfig(),
		jobs:       make(chan jobRequest),
		quit:       make(chan struct{}),
		log:        log.New("component", "workerpool"),
	}
	for i := 0; i < size; i++ {
		go p.runWorker(i)
	}
	return p
}

// Close stops accepting new jobs and signals workers to exit once idle.
func (p *Pool) Close() { close(p.quit) }

// Submit runs job on the next available worker and returns its outcome.
// Submit blocks (honoring ctx) while every worker is busy, matching spec
// §4.4's FIFO acquisition; it never runs a job twice and never silently
// drops one.
func (p *Pool) Submit(ctx context.Context, job Job) (Result, error) {
	result := make(chan jobOutcome, 1)
	select {
	case p.jobs <- jobRequest{ctx: ctx, job: job, result: result}:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-p.quit:
		return Result{}, ErrPoolClosed
	}

	select {
	case out := <-result:
		return out.res, out.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// runWorker is the body of one pool slot. On an unrecoverable failure
// (codeCompilation, panic, abort, timeout, or anything unrecognized) it
// discards its runtime and builds a fresh one before taking the next job,
// per spec §4.4's destroy-and-replace policy; methodNotFound and
// notImplemented leave the runtime untouched.
func (p *Pool) runWorker(id int) {
	rt, bridge := p.freshRuntime(context.Background())

	for {
		select {
		case <-p.quit:
			rt.Close(context.Background())
			return
		case req := <-p.jobs:
			res, err, fatal := p.runJob(req.ctx, rt, bridge, req.job)
			req.result <- jobOutcome{res: res, err: err}
			if fatal {
				p.log.Warn("worker destroyed and replaced", "worker", id, "err", err)
				rt.Close(context.Background())
				rt, bridge = p.freshRuntime(context.Background())
			}
		}
	}
}

// freshRuntime builds a new wazero.Runtime and a Bridge bound to it via a
// single "env" host module instantiation: the host module is built once per
// runtime lifetime, not once per job, because its functions are methods on
// the Bridge and always observe whatever job Reset last bound — rebuilding
// it per job would try to instantiate a second module named "env" into the
// same runtime and fail.
func (p *Pool) freshRuntime(ctx context.Context) (wazero.Runtime, *hostbridge.Bridge) {
	rt := wazero.NewRuntimeWithConfig(ctx, p.runtimeCfg)
	bridge := hostbridge.New()
	if _, err := bridge.Build(ctx, rt); err != nil {
		// Binding the host module cannot fail for a fixed, well-formed
		// import set; if it ever does, the worker is unusable.
		panic(fmt.Errorf("workerpool: binding host module: %w", err))
	}
	return rt, bridge
}

func (p *Pool) runJob(ctx context.Context, rt wazero.Runtime, bridge *hostbridge.Bridge, job Job) (res Result, err error, fatal bool) {
	deadline, cancel := context.WithTimeout(ctx, params.MaxInvocationDuration)
	defer cancel()

	bridge.Reset(job.Call, job.Contract, job.Args)

	// Recompiling here is cheap: every worker's Runtime shares one
	// wazero.CompilationCache (see New), so only the first worker to see a
	// given code blob pays for native code generation.
	compiled, err := rt.CompileModule(deadline, job.Module.Bytes())
	if err != nil {
		return Result{}, fmt.Errorf("workerpool: compilation: %w", err), true
	}
	defer compiled.Close(context.Background())

	mod, err := rt.InstantiateModule(deadline, compiled, wazero.NewModuleConfig())
	if err != nil {
		return Result{}, fmt.Errorf("workerpool: instantiation: %w", err), true
	}
	defer mod.Close(context.Background())

	fn := mod.ExportedFunction(job.Method)
	if fn == nil || len(fn.Definition().ParamTypes()) != 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrMethodNotFound, job.Method), false
	}

	done := make(chan jobOutcome, 1)
	go func() {
		done <- p.invoke(deadline, bridge, fn)
	}()

	select {
	case out := <-done:
		return out.res, out.err, out.err != nil && !errors.Is(out.err, ErrMethodNotFound) && !errors.Is(out.err, hostbridge.ErrNotImplemented)
	case <-deadline.Done():
		return Result{}, fmt.Errorf("%w", ErrTimeout), true
	}
}

// invoke calls fn and, when a Bridge halted guest execution mid-call,
// returns the cause the Bridge recorded. wazero recovers a host function's
// panic itself and returns it from Call as an error, so the recorded cause
// is checked there; the deferred recover covers a halt that reaches this
// frame as a panic.
func (p *Pool) invoke(ctx context.Context, bridge *hostbridge.Bridge, fn api.Function) (out jobOutcome) {
	defer func() {
		if r := recover(); r != nil {
			if !hostbridge.IsHalt(r) {
				panic(r)
			}
			out = jobOutcome{err: bridge.Err()}
		}
	}()

	if _, err := fn.Call(ctx); err != nil {
		if haltErr := bridge.Err(); haltErr != nil {
			return jobOutcome{err: haltErr}
		}
		return jobOutcome{err: fmt.Errorf("workerpool: guest invocation: %w", err)}
	}
	return jobOutcome{res: Result{ReturnValue: bridge.ReturnValue(), Logs: bridge.Logs()}}
}
