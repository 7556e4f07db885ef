package workerpool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/core-coin/viewcore/log"
	"github.com/core-coin/viewcore/modcache"
	"github.com/core-coin/viewcore/resolver"
	"github.com/core-coin/viewcore/store"
)

// noopModule is a hand-assembled WebAssembly binary with no imports,
// exporting a single zero-argument, zero-result function "noop". It
// exercises pool dispatch mechanics without needing a real guest toolchain.
//
//	(module
//	  (func (export "noop")))
var noopModule = modcache.NewBlobModule([]byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // magic, version
	0x01, 0x04, 0x01, 0x60, 0x00, 0x00, // type section: () -> ()
	0x03, 0x02, 0x01, 0x00, // function section: 1 func of type 0
	0x07, 0x08, 0x01, 0x04, 'n', 'o', 'o', 'p', 0x00, 0x00, // export "noop" func 0
	0x0a, 0x04, 0x01, 0x02, 0x00, 0x0b, // code section: empty body, end
})

func newTestCallAndContract(t *testing.T) (*resolver.Call, []byte) {
	t.Helper()
	f := store.NewFake()
	return resolver.New(f).NewCall(context.Background(), 1), []byte("alice")
}

func TestPoolRunsNoopJob(t *testing.T) {
	p := New(2)
	defer p.Close()

	call, contract := newTestCallAndContract(t)
	res, err := p.Submit(context.Background(), Job{
		Module:   noopModule,
		Call:     call,
		Contract: contract,
		Method:   "noop",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.ReturnValue != nil {
		t.Fatalf("ReturnValue = %v, want nil for a noop export", res.ReturnValue)
	}
}

func TestPoolMethodNotFoundReturnsWorkerToPool(t *testing.T) {
	p := New(1)
	defer p.Close()

	call, contract := newTestCallAndContract(t)
	_, err := p.Submit(context.Background(), Job{
		Module:   noopModule,
		Call:     call,
		Contract: contract,
		Method:   "does_not_exist",
	})
	if err == nil {
		t.Fatal("Submit succeeded, want method-not-found error")
	}

	// The single worker must still be usable afterward (methodNotFound does
	// not destroy the worker, per spec §7 propagation policy).
	res, err := p.Submit(context.Background(), Job{
		Module:   noopModule,
		Call:     call,
		Contract: contract,
		Method:   "noop",
	})
	if err != nil {
		t.Fatalf("Submit after methodNotFound: %v", err)
	}
	_ = res
}

func TestPoolConcurrentJobsAllComplete(t *testing.T) {
	p := New(3)
	defer p.Close()

	call, contract := newTestCallAndContract(t)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := p.Submit(context.Background(), Job{
				Module:   noopModule,
				Call:     call,
				Contract: contract,
				Method:   "noop",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent Submit failed: %v", err)
		}
	}
}

func TestPoolSubmitHonorsContextCancellation(t *testing.T) {
	// No workers are started, so the jobs channel has no receiver: a
	// cancelled context is the only way Submit can return.
	p := &Pool{
		runtimeCfg: newRuntimeConfig(),
		jobs:       make(chan jobRequest),
		quit:       make(chan struct{}),
		log:        log.New("component", "workerpool-test"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	call, contract := newTestCallAndContract(t)
	_, err := p.Submit(ctx, Job{
		Module:   noopModule,
		Call:     call,
		Contract: contract,
		Method:   "noop",
	})
	if err == nil {
		t.Fatal("Submit with a cancelled context succeeded, want error")
	}
}

func TestPoolCloseStopsWorkers(t *testing.T) {
	p := New(1)
	p.Close()

	// Give the worker goroutine a moment to observe quit and return; this
	// is a liveness check, not a correctness assertion on timing.
	time.Sleep(10 * time.Millisecond)

	call, contract := newTestCallAndContract(t)
	_, err := p.Submit(context.Background(), Job{
		Module:   noopModule,
		Call:     call,
		Contract: contract,
		Method:   "noop",
	})
	if err != ErrPoolClosed {
		t.Fatalf("Submit after Close = %v, want ErrPoolClosed", err)
	}
}
