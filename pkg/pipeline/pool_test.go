package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Worker Pool", func() {
	It("processes queued jobs and their follow-ups before Drain returns", func() {
		var (
			processed atomic.Int32
			wp        *Pool
		)
		wp, err := NewPool(&PoolConfig{NumWorkers: 2}, func(_ context.Context, job Job) {
			processed.Add(1)
			if job.Kind == JobClassify {
				_ = wp.Enqueue(Job{Kind: JobExtract, ContributionID: job.ContributionID})
			}
		})
		Expect(err).NotTo(HaveOccurred())

		for _, id := range []string{"a", "b", "c"} {
			Expect(wp.Enqueue(Job{Kind: JobClassify, ContributionID: id})).To(Succeed())
		}
		wp.Drain()
		Expect(processed.Load()).To(Equal(int32(6)))
		wp.Close()
	})

	It("drops jobs when the queue is full", func() {
		release := make(chan struct{})
		var started sync.WaitGroup
		started.Add(1)
		once := sync.Once{}

		wp, err := NewPool(&PoolConfig{NumWorkers: 1, QueueSize: 1}, func(context.Context, Job) {
			once.Do(started.Done)
			<-release
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(wp.Enqueue(Job{Kind: JobTheme})).To(Succeed())
		started.Wait()
		Expect(wp.Enqueue(Job{Kind: JobTheme})).To(Succeed())
		Expect(wp.Enqueue(Job{Kind: JobTheme})).To(MatchError(ErrQueueFull))

		close(release)
		wp.Close()
		Expect(wp.Enqueue(Job{Kind: JobTheme})).To(MatchError(ErrPoolClosed))
	})

	It("requires a handler", func() {
		_, err := NewPool(&PoolConfig{}, nil)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("keyedMutex", func() {
	It("serializes work per key and forgets idle keys", func() {
		k := newKeyedMutex()
		var (
			active, peak atomic.Int32
			wg           sync.WaitGroup
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := k.Lock("story-1")
				defer unlock()
				n := active.Add(1)
				if n > peak.Load() {
					peak.Store(n)
				}
				active.Add(-1)
			}()
		}
		wg.Wait()
		Expect(peak.Load()).To(Equal(int32(1)))
		Expect(k.locks).To(BeEmpty())
	})
})
