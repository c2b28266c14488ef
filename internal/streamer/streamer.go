// Package streamer implements the Streamer Controller: the per-frame
// QueriesBegin/Query/QueriesEnd protocol that decides which mipmaps should
// be resident, dispatches decode jobs to the worker pool, drains completed
// pyramids under a wall-clock budget, and reconciles the GPU texture chain.
// It is a direct translation of the source viewer's Texture_Streamer::
// queries_begin/query/queries_end, generalized over an injected Decoder
// collaborator instead of a hard-coded image loader.
package streamer

import (
	"log"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/halvardh/streamview/internal/cache"
	"github.com/halvardh/streamview/internal/cancelset"
	"github.com/halvardh/streamview/internal/gputex"
	"github.com/halvardh/streamview/internal/pyramid"
	"github.com/halvardh/streamview/internal/workerpool"
)

// Decoder is the collaborator the Worker Pool calls on each job. A failed
// decode is reported as a nil/empty Levels slice rather than an error
// crossing goroutine boundaries, matching the source's
// Threadpool_Processor::process_job catch-and-swallow behaviour.
type Decoder interface {
	Decode(filepath string) []pyramid.Level
}

// Job is what the job queue carries: just the path to load, mirroring
// Threadpool_Job.
type Job struct {
	Filepath string
}

// Result is what the result queue carries back: the decoded pyramid, empty
// on failure, mirroring Threadpool_Result.
type Result struct {
	Filepath string
	Levels   []pyramid.Level
}

// Config holds the three process-local tunables from the external
// interface: the cache's byte ceiling, the per-frame upload wall-time cap,
// and the worker pool size (0 meaning "derive from cores", handled by
// workerpool.New).
type Config struct {
	CacheMemoryBudget    int64
	PerFrameUploadBudget time.Duration
	WorkerCount          int
}

// DefaultPerFrameUploadBudget matches the source's ~5ms Step E cap.
const DefaultPerFrameUploadBudget = 5 * time.Millisecond

// Controller is the single long-lived object the render loop owns and
// drives explicitly through QueriesBegin/Query/QueriesEnd each frame. It is
// not safe for concurrent use — exactly one goroutine (the render/driver
// goroutine) may call its exported methods.
type Controller struct {
	cache        *cache.Cache
	pool         *workerpool.Pool[Job, Result]
	uploadBudget time.Duration
	stats        atomic.Pointer[Stats]
}

// Stats is a point-in-time snapshot of cache occupancy and queue depth,
// safe to read from any goroutine — unlike Cache(), which exposes fields
// the render/driver goroutine owns exclusively (SPEC_FULL §5). The render
// goroutine publishes a fresh snapshot at the end of every QueriesEnd; a
// reporting goroutine (e.g. internal/statsserver) only ever loads it.
type Stats struct {
	CacheMemoryUsed   int64
	CacheMemoryBudget int64
	ResidentTextures  int
	QueuedJobs        int
}

// Stats returns the most recently published snapshot. Safe to call
// concurrently with QueriesBegin/Query/QueriesEnd from any goroutine.
func (c *Controller) Stats() Stats {
	if s := c.stats.Load(); s != nil {
		return *s
	}
	return Stats{}
}

// publishStats is called only from the render/driver goroutine.
func (c *Controller) publishStats() {
	s := Stats{
		CacheMemoryUsed:   c.cache.MemoryUsed,
		CacheMemoryBudget: c.cache.MemoryBudget,
		QueuedJobs:        c.pool.Jobs.Len(),
	}
	c.cache.Each(func(t *cache.CachedTexture) {
		if t.CachedMips > 0 {
			s.ResidentTextures++
		}
	})
	c.stats.Store(&s)
}

// New constructs a Controller with a fresh Cache Directory and Worker Pool.
// decode is called on worker goroutines only; it must be safe to call
// concurrently from multiple goroutines (re-entrant per the external
// interface's requirement). uploader supplies GPU texture objects for the
// cache to drive; pass gputex.NewMemoryUploader() where no real GPU context
// exists.
func New(cfg Config, decoder Decoder, uploader gputex.Uploader) *Controller {
	budget := cfg.PerFrameUploadBudget
	if budget <= 0 {
		budget = DefaultPerFrameUploadBudget
	}

	process := func(job Job) Result {
		return Result{
			Filepath: job.Filepath,
			Levels:   decoder.Decode(job.Filepath),
		}
	}

	c := &Controller{
		cache:        cache.New(cfg.CacheMemoryBudget, uploader),
		pool:         workerpool.New(cfg.WorkerCount, process),
		uploadBudget: budget,
	}
	c.publishStats()
	return c
}

// Close stops the worker pool, blocking until every worker goroutine has
// exited. Decoded images still in flight are dropped.
func (c *Controller) Close() {
	c.pool.Close()
}

// Cache exposes the underlying Cache Directory for the render/driver
// goroutine's own diagnostics. Only that goroutine may call it — every
// field it exposes is owned exclusively by whoever drives
// QueriesBegin/Query/QueriesEnd (SPEC_FULL §5). A reporting goroutine on
// another thread (internal/statsserver) must use Stats() instead.
func (c *Controller) Cache() *cache.Cache {
	return c.cache
}

// QueriesBegin resets every tracked texture's per-frame state: order
// priority and was-queried flag, and every mip's priority, all to +Inf/false
// so that the coming frame's queries can combine via minimum (most urgent
// wins). Call once per frame before any Query.
func (c *Controller) QueriesBegin() {
	c.cache.Each(func(t *cache.CachedTexture) {
		t.OrderPriority = math.Inf(1)
		t.WasQueried = false
		for i := range t.Mips {
			t.Mips[i].Priority = math.Inf(1)
		}
	})
}

// Query is called once per visible tile by the renderer. If path is unknown
// to the cache it is added with a pyramid descriptor derived from
// fullSizePx. Returns the CachedTexture so the caller can read
// GetDisplayablePixelDensity/AllMipsDisplayable.
func (c *Controller) Query(filepath string, onscreenSizePx, fullSizePx pyramid.Size, orderPriority float64) *cache.CachedTexture {
	t := c.cache.Find(filepath)
	if t == nil {
		var err error
		t, err = c.cache.Add(filepath, fullSizePx)
		if err != nil {
			// Add only fails on AlreadyPresent, which cannot happen here
			// since Find just reported nil for this exact path.
			panic(err)
		}
	}

	t.WasQueried = true
	if orderPriority < t.OrderPriority {
		t.OrderPriority = orderPriority
	}

	for i := range t.Mips {
		p := calcPriority(t.Mips[i].SizePx, onscreenSizePx, orderPriority)
		if p < t.Mips[i].Priority {
			t.Mips[i].Priority = p
		}
	}

	return t
}

// calcPriority computes the axis-wise pixel-density ratio between a mip's
// size and the size needed on screen, taking the minimum across axes, then
// biases it by a small monotone function of orderPriority. Lower is more
// urgent: a mip whose density already meets demand scores ~1, undersized
// mips score below 1 and sort first, oversized mips score above 1 and are
// deprioritised — QueriesEnd's Step B still admits them, after every more
// urgent mip, as long as the budget has room.
func calcPriority(sizePx, neededSizePx pyramid.Size, orderPriority float64) float64 {
	wx := float64(sizePx.W) / float64(neededSizePx.W)
	hy := float64(sizePx.H) / float64(neededSizePx.H)
	density := wx
	if hy < wx {
		density = hy
	}
	return density * lerp(1, 1.25, orderPriority)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// mipRef names one (texture, mip-level) pair for Step A's flatten-and-sort,
// recomputed fresh every QueriesEnd — no back-pointers are retained between
// frames, avoiding the cyclic-reference pattern the source's raw mipmap
// pointers required.
type mipRef struct {
	tex      *cache.CachedTexture
	mipIndex int
}

// QueriesEnd executes the six reconciliation steps described in the
// external interface, in order: flatten-and-sort, desired-set selection
// under budget, per-texture reconciliation, cancellation and reorder of the
// job queue, draining decode results under a wall-clock budget, and
// finalizing removals. Call once per frame after all Query calls.
func (c *Controller) QueriesEnd() {
	// Step A — flatten and sort all (texture, mip) pairs by priority,
	// ascending, stably.
	var refs []mipRef
	c.cache.Each(func(t *cache.CachedTexture) {
		t.DesiredCachedMips = 0
		for i := range t.Mips {
			refs = append(refs, mipRef{tex: t, mipIndex: i})
		}
	})
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].tex.Mips[refs[i].mipIndex].Priority < refs[j].tex.Mips[refs[j].mipIndex].Priority
	})

	// Step B — desired-set selection under budget. Mips still at +Inf
	// priority were not queried this frame and are never desired; refs is
	// sorted ascending, so every ref after the first +Inf one is +Inf too.
	var memoryTotal int64
	for _, r := range refs {
		if math.IsInf(r.tex.Mips[r.mipIndex].Priority, 1) {
			break
		}
		sz := r.tex.Mips[r.mipIndex].SizePx.MemorySize()
		if memoryTotal+sz > c.cache.MemoryBudget {
			continue
		}
		memoryTotal += sz
		if want := r.mipIndex + 1; want > r.tex.DesiredCachedMips {
			r.tex.DesiredCachedMips = want
		}
	}

	// Step C — reconcile per-texture state.
	toCancel := cancelset.New()
	var toRemove []string

	c.cache.Each(func(t *cache.CachedTexture) {
		switch {
		case t.DesiredCachedMips == 0 && !t.WasQueried:
			if t.JobInFlight {
				toCancel.Add(t.Filepath)
			}
			toRemove = append(toRemove, t.Filepath)

		case t.DesiredCachedMips == t.CachedMips:
			if t.JobInFlight {
				toCancel.Add(t.Filepath)
			}

		case t.DesiredCachedMips > t.CachedMips:
			if !t.JobInFlight {
				c.pool.Jobs.Push(Job{Filepath: t.Filepath})
				t.JobInFlight = true
			}

		default: // DesiredCachedMips < CachedMips
			if t.JobInFlight {
				toCancel.Add(t.Filepath)
			}
			for i := t.DesiredCachedMips; i < t.CachedMips; i++ {
				c.cache.EvictMip(t, i)
			}
			t.CachedMips = t.DesiredCachedMips
			if err := c.cache.UpdateTextureObject(t); err != nil {
				log.Printf("streamer: shrinking %s: %v", t.Filepath, err)
			}
		}
	})

	// Step D — apply cancellations and reorder the job queue so the most
	// visually urgent texture is always next out, even though jobs were
	// pushed in arrival order.
	if toCancel.Len() > 0 {
		c.pool.Jobs.Cancel(func(job Job) bool {
			cancel := toCancel.Contains(job.Filepath)
			if cancel {
				if t := c.cache.Find(job.Filepath); t != nil {
					t.JobInFlight = false
				}
			}
			return cancel
		})
	}
	c.pool.Jobs.Sort(func(a, b Job) bool {
		at := c.cache.Find(a.Filepath)
		bt := c.cache.Find(b.Filepath)
		aPriority, bPriority := math.Inf(1), math.Inf(1)
		if at != nil {
			aPriority = at.OrderPriority
		}
		if bt != nil {
			bPriority = bt.OrderPriority
		}
		return aPriority < bPriority
	})

	// Step E — drain results under a per-frame wall-time budget.
	start := time.Now()
	for {
		res, ok := c.pool.Results.TryPop()
		if !ok {
			break
		}

		if t := c.cache.Find(res.Filepath); t != nil {
			t.JobInFlight = false
			if len(res.Levels) == 0 {
				// Decode failed; no retry this frame. A fresh job may be
				// pushed on a later frame if priority still warrants it.
			} else if err := c.cache.CacheMips(t, res.Levels); err != nil {
				log.Printf("streamer: caching mips for %s: %v", t.Filepath, err)
			}
		}
		// If the texture is gone, the result is simply dropped; it was
		// removed while the job was in flight.

		if time.Since(start) > c.uploadBudget {
			break
		}
	}

	// Step F — finalize removals: any texture flagged in Step C that no
	// longer has a job in flight (the cancellation, if any, has landed) is
	// erased from the map and its GPU texture released.
	for _, path := range toRemove {
		if t := c.cache.Find(path); t != nil && !t.JobInFlight {
			c.cache.Remove(path)
		}
	}

	// Publish a fresh stats snapshot now that this frame's cache mutations
	// are complete, so concurrent readers (internal/statsserver) never
	// touch cache.Cache's fields directly.
	c.publishStats()
}
