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

// Package engine is the View-Call Coordinator (spec §4.6): the single
// owned value that wires the store, resolver, module cache and worker pool
// together and exposes the one operation the rest of the system calls,
// View. Every other component is oblivious to the others; Engine is the
// only one that sees H, R, the compiled module, and the worker together.
package engine

import (
	"context"
	"errors"

	"github.com/tetratelabs/wazero"

	"github.com/core-coin/viewcore/crypto"
	"github.com/core-coin/viewcore/hostbridge"
	"github.com/core-coin/viewcore/internal/account"
	"github.com/core-coin/viewcore/log"
	"github.com/core-coin/viewcore/modcache"
	"github.com/core-coin/viewcore/resolver"
	"github.com/core-coin/viewcore/store"
	"github.com/core-coin/viewcore/workerpool"
)

// ContractID is the opaque, UTF-8 account name identifying a contract
// (spec §3).
type ContractID = string

// Engine owns every subsystem a view call needs (Design Notes, "explicit
// owned engine" — replacing the ambient singletons an earlier design might
// reach for). One Engine serves a whole process; the request layer holds a
// single handle to it.
type Engine struct {
	store    store.Client
	resolver *resolver.Resolver
	cache    *modcache.Cache
	pool     *workerpool.Pool

	// validate is a dedicated Runtime used only to parse/validate a code
	// blob before it enters the cache (spec §4.3: compilation failure is
	// never cached). It never instantiates a module — actual instantiation
	// happens per job on a worker's own Runtime (see workerpool).
	validate wazero.Runtime

	log log.Logger
}

// New wires an Engine over client, with a worker pool of poolSize workers
// (0 uses params.DefaultPoolSize) and a module cache bounded to cacheSize
// entries (0 uses params.DefaultModuleCacheSize).
func New(client store.Client, poolSize, cacheSize int) *Engine {
	return &Engine{
		store:    client,
		resolver: resolver.New(client),
		cache:    modcache.New(cacheSize),
		pool:     workerpool.New(poolSize),
		validate: wazero.NewRuntime(context.Background()),
		log:      log.New("component", "engine"),
	}
}

// Close releases the Engine's worker pool and validation runtime.
func (e *Engine) Close() {
	e.pool.Close()
	e.validate.Close(context.Background())
}

// View performs one view call: view(C, method, args) -> (result, logs, H)
// per spec §4.6's five steps.
func (e *Engine) View(ctx context.Context, c ContractID, method string, args []byte) (result []byte, logs []string, height uint64, err error) {
	h, err := e.resolver.LatestHeight(ctx)
	if err != nil {
		return nil, nil, 0, e.wrapStoreErr(err)
	}

	call := e.resolver.NewCall(ctx, h)

	rev, err := call.CodeRevision([]byte(c))
	if errors.Is(err, resolver.ErrCodeNotFound) {
		return nil, nil, h, ErrCodeNotFound
	}
	if err != nil {
		return nil, nil, h, e.wrapStoreErr(err)
	}

	codeBlob, err := call.CodeBlob([]byte(c), rev)
	if err != nil {
		return nil, nil, h, e.wrapStoreErr(err)
	}

	key := modcache.Key{Contract: c, Revision: rev}
	module, err := e.cache.GetOrCompile(ctx, key, e.compiler(codeBlob))
	if err != nil {
		return nil, nil, h, newError(KindCodeCompilation, err, "compiling code for %s@%x", c, rev)
	}

	res, err := e.pool.Submit(ctx, workerpool.Job{
		Module:   module,
		Call:     call,
		Contract: []byte(c),
		Method:   method,
		Args:     args,
	})
	if err != nil {
		return nil, nil, h, e.translateWorkerErr(err)
	}
	return res.ReturnValue, res.Logs, h, nil
}

// compiler returns the thunk modcache.GetOrCompile calls at most once per
// (C, R) to validate codeBlob, matching the spec's
// get_or_compile(C, R, || compile(code_blob(C, R))) shape.
func (e *Engine) compiler(codeBlob []byte) modcache.Compiler {
	return func(ctx context.Context) (modcache.Module, error) {
		compiled, err := e.validate.CompileModule(ctx, codeBlob)
		if err != nil {
			return nil, err
		}
		defer compiled.Close(ctx)
		return modcache.NewBlobModule(codeBlob), nil
	}
}

// VerifyCodeIntegrity is an (expansion) integrity check beyond spec §4.6's
// bare five steps: it confirms the code blob current at h actually hashes
// to the code_hash recorded in the contract's account record. View itself
// does not call this — the spec's View never resolves the account record —
// but cmd/viewcore's debug tooling runs it after a call, at the height that
// call pinned, to catch a corrupted or substituted code blob.
func (e *Engine) VerifyCodeIntegrity(ctx context.Context, c ContractID, h uint64) error {
	call := e.resolver.NewCall(ctx, h)

	accRev, err := call.AccountRevision([]byte(c))
	if errors.Is(err, resolver.ErrAccountNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return e.wrapStoreErr(err)
	}
	accBlob, err := call.AccountBlob([]byte(c), accRev)
	if err != nil {
		return e.wrapStoreErr(err)
	}
	rec, err := account.Decode(accBlob)
	if err != nil {
		return newError(KindTransient, err, "decoding account record for %s", c)
	}

	codeRev, err := call.CodeRevision([]byte(c))
	if errors.Is(err, resolver.ErrCodeNotFound) {
		return ErrCodeNotFound
	}
	if err != nil {
		return e.wrapStoreErr(err)
	}
	codeBlob, err := call.CodeBlob([]byte(c), codeRev)
	if err != nil {
		return e.wrapStoreErr(err)
	}

	if crypto.Keccak256Hash(codeBlob) != rec.CodeHash {
		return newError(KindCodeCompilation, nil, "code hash mismatch for %s: code does not match account record", c)
	}
	return nil
}

// wrapStoreErr translates a resolver/store-layer error into the taxonomy of
// spec §7.
func (e *Engine) wrapStoreErr(err error) error {
	switch {
	case errors.Is(err, resolver.ErrAccountNotFound):
		return ErrAccountNotFound
	case errors.Is(err, resolver.ErrCodeNotFound):
		return ErrCodeNotFound
	default:
		return newError(KindTransient, err, "")
	}
}

// translateWorkerErr maps a workerpool/hostbridge error into the taxonomy
// of spec §7. This is the one place in the engine that sees every failure
// mode a worker can report, by design (§4.6: "the coordinator is the only
// component that sees ... the worker").
func (e *Engine) translateWorkerErr(err error) error {
	switch {
	case errors.Is(err, workerpool.ErrMethodNotFound):
		return newError(KindMethodNotFound, err, "")
	case errors.Is(err, workerpool.ErrTimeout):
		return newError(KindTimeout, err, "")
	case errors.Is(err, hostbridge.ErrNotImplemented):
		return newError(KindNotImplemented, err, "")
	}

	var panicErr *hostbridge.PanicError
	if errors.As(err, &panicErr) {
		return &Error{Kind: KindPanic, Message: panicErr.Message, Cause: err}
	}
	var abortErr *hostbridge.AbortError
	if errors.As(err, &abortErr) {
		return &Error{Kind: KindAbort, Message: abortErr.Error(), Cause: err}
	}

	return newError(KindTransient, err, "worker failure")
}
