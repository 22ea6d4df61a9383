// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package linkwalk

import (
	"context"
	"sync"
)

// DefaultParallelism is the number of concurrent runs ResolveAll uses when
// given a non-positive parallelism.
const DefaultParallelism = 2

// runPool runs resolution jobs on a fixed number of worker goroutines.
type runPool struct {
	workers int
	queue   chan func()
	wg      sync.WaitGroup
	ctx     context.Context
}

// newRunPool starts workers goroutines. Submit blocks once queueSize jobs
// are waiting.
func newRunPool(ctx context.Context, workers, queueSize int) *runPool {
	p := &runPool{
		workers: workers,
		queue:   make(chan func(), queueSize),
		ctx:     ctx,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *runPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			job()
		case <-p.ctx.Done():
			return
		}
	}
}

// Submit queues job. It returns ctx.Err() if the pool's context ends first.
func (p *runPool) Submit(job func()) error {
	select {
	case p.queue <- job:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Close stops accepting jobs and waits for running ones to finish.
func (p *runPool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// ResolveAll resolves reqs with at most parallelism concurrent runs. The
// returned slice is in input order and has one Result per request. Requests
// that never started because ctx ended are reported as cancelled.
func (r *Resolver) ResolveAll(ctx context.Context, reqs []*Request, parallelism int) []*Result {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	if parallelism > len(reqs) {
		parallelism = len(reqs)
	}
	results := make([]*Result, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	pool := newRunPool(ctx, parallelism, parallelism)
	for i, req := range reqs {
		if err := pool.Submit(func() {
			results[i] = r.Resolve(ctx, req)
		}); err != nil {
			break
		}
	}
	pool.Close()

	for i, res := range results {
		if res == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			results[i] = &Result{Outcome: Failed, Reason: FailureCancelled, Err: err}
		}
	}
	return results
}
