// Package libkhova assembles the Khovanov chain complex of a link and drives its homology computation.
package libkhova

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fine-structures/khova.SDK/khova"
	"github.com/fine-structures/khova.SDK/libkhova/chains"
	"github.com/fine-structures/khova.SDK/libkhova/differential"
	"github.com/fine-structures/khova.SDK/libkhova/resolve"
	"github.com/fine-structures/khova.SDK/libkhova/zmatrix"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
	"golang.org/x/sync/errgroup"
)

// Solver computes the homology of a complete bigraded complex.
// It is called at most once per run and should return khova.ErrCancelled (wrapped) if ctx is cancelled.
type Solver interface {
	Solve(ctx context.Context, cx *zmatrix.BiComplex) (khova.Homology, error)
}

// Opts specifies how a homology computation runs.
type Opts struct {
	Workers int           // max concurrent differential builds; 0 means GOMAXPROCS
	Solver  Solver        // nil means zmatrix.SNFSolver
	Catalog khova.Catalog // if set, results are looked up before and stored after computing
}

// Outcome is the terminal result of a Job.
type Outcome struct {
	State    khova.RunState
	Homology khova.Homology // set only when State == khova.Completed
	Err      error          // wraps khova.ErrCancelled or khova.ErrFailed
	Elapsed  time.Duration
}

// Job is a homology computation running on its own goroutine.
type Job struct {
	id     uuid.UUID
	link   khova.Link
	opts   Opts
	ctx    context.Context
	cancel context.CancelFunc

	state      atomic.Int32
	phaseDone  atomic.Int64
	phaseTotal atomic.Int64

	cached  bool
	done    chan struct{}
	outcome Outcome
}

// Start begins computing the Khovanov homology of L and returns immediately.
func Start(ctx context.Context, L khova.Link, opts Opts) *Job {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Solver == nil {
		opts.Solver = zmatrix.SNFSolver{}
	}

	job := &Job{
		id:   uuid.New(),
		link: L,
		opts: opts,
		done: make(chan struct{}),
	}
	job.ctx, job.cancel = context.WithCancel(ctx)

	go job.run()
	return job
}

// Compute is the blocking form of Start.
func Compute(ctx context.Context, L khova.Link, opts Opts) (khova.Homology, error) {
	out := Start(ctx, L, opts).Wait()
	return out.Homology, out.Err
}

func (job *Job) ID() uuid.UUID {
	return job.id
}

func (job *Job) State() khova.RunState {
	return khova.RunState(job.state.Load())
}

// Progress returns the completed fraction of the current phase.
func (job *Job) Progress() float64 {
	if job.State() == khova.Completed {
		return 1
	}
	total := job.phaseTotal.Load()
	if total <= 0 {
		return 0
	}
	return float64(job.phaseDone.Load()) / float64(total)
}

// Cancel requests that the job stop.  Matrix builds already running finish first.
func (job *Job) Cancel() {
	job.cancel()
}

// Done is closed once the job reaches a terminal state.
func (job *Job) Done() <-chan struct{} {
	return job.done
}

// Wait blocks until the job is done and returns its Outcome.
func (job *Job) Wait() Outcome {
	<-job.done
	return job.outcome
}

func (job *Job) String() string {
	return fmt.Sprintf("%s[%s]", job.link.Name(), job.id.String()[:8])
}

func (job *Job) beginPhase(state khova.RunState, total int64) {
	job.phaseTotal.Store(total)
	job.phaseDone.Store(0)
	job.state.Store(int32(state))
}

func (job *Job) run() {
	defer close(job.done)
	defer job.cancel()

	startTime := time.Now()
	H, err := job.compute()
	job.finish(H, err, time.Since(startTime))
}

func cancelled(cause error) error {
	if errors.Is(cause, khova.ErrCancelled) {
		return cause
	}
	return errors.Wrap(khova.ErrCancelled, cause.Error())
}

// safely runs fn, returning a panic inside it as an error.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (job *Job) compute() (H khova.Homology, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()

	L := job.link
	if cat := job.opts.Catalog; cat != nil {
		H, found, err := cat.Lookup(L)
		if err != nil {
			klog.Warningf("%v: catalog lookup failed: %v", job, err)
		} else if found {
			job.cached = true
			klog.V(2).Infof("%v: found in catalog", job)
			return H, nil
		}
	}

	// Phase 1: generators
	phaseStart := time.Now()
	tracer := resolve.New(L)
	negCross, posCross := 0, 0
	for _, positive := range L.Signs() {
		if positive {
			posCross++
		} else {
			negCross++
		}
	}

	numResol := tracer.NumResolutions()
	job.beginPhase(khova.BuildingGenerators, int64(numResol))

	idx := chains.NewIndex()
	for r := uint64(0); r < numResol; r++ {
		if err := job.ctx.Err(); err != nil {
			return nil, cancelled(err)
		}
		c := tracer.CircleCount(r)
		for m := uint64(0); m < uint64(1)<<c; m++ {
			idx.Add(chains.Generator{Resolution: r, Labeling: m}, chains.Grade(r, m, c, negCross, posCross))
		}
		resolutionsTraced.Inc()
		job.phaseDone.Add(1)
	}
	klog.V(2).Infof("%v: %s generators in %s cells from %s resolutions (%v)", job,
		humanize.Comma(int64(idx.TotalGenerators())), humanize.Comma(int64(idx.TotalCells())),
		humanize.Comma(int64(numResol)), time.Since(phaseStart))

	// Phase 2: differentials
	phaseStart = time.Now()
	gradings := idx.Gradings()
	job.beginPhase(khova.BuildingDifferentials, int64(len(gradings)))

	builder := differential.New(tracer)
	cx := zmatrix.NewBiComplex()

	grp, grpCtx := errgroup.WithContext(job.ctx)
	grp.SetLimit(job.opts.Workers)
	for _, g := range gradings {
		g := g
		grp.Go(func() error {
			if err := grpCtx.Err(); err != nil {
				return cancelled(err)
			}
			return safely(func() error {
				D, err := builder.Build(idx.At(g), idx.At(khova.Bigrading{I: g.I + 1, J: g.J}))
				if err != nil {
					return errors.Wrapf(err, "building D(%d, %d)", g.I, g.J)
				}
				differentialsBuilt.Inc()
				job.phaseDone.Add(1)
				return cx.SetDiff(g, D)
			})
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	klog.V(2).Infof("%v: %s differentials built (%v)", job, humanize.Comma(int64(cx.Len())), time.Since(phaseStart))

	// Phase 3: solve
	if err := job.ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	phaseStart = time.Now()
	job.beginPhase(khova.Solving, 1)

	solverSubmissions.Inc()
	H, err = job.opts.Solver.Solve(job.ctx, cx)
	if err != nil {
		return nil, err
	}
	job.phaseDone.Add(1)
	klog.V(2).Infof("%v: solved, total rank %d (%v)", job, H.TotalRank(), time.Since(phaseStart))

	return H, nil
}

func (job *Job) finish(H khova.Homology, err error, elapsed time.Duration) {
	out := &job.outcome
	out.Elapsed = elapsed

	switch {
	case err == nil:
		out.State = khova.Completed
		out.Homology = H
		if job.cached {
			runsTotal.WithLabelValues("cached").Inc()
			break
		}
		runsTotal.WithLabelValues("completed").Inc()
		runDuration.Observe(elapsed.Seconds())
		klog.V(1).Infof("%v: completed in %v", job, elapsed)

		if cat := job.opts.Catalog; cat != nil && !cat.IsReadOnly() {
			if err := cat.Store(job.link, H); err != nil {
				klog.Warningf("%v: catalog store failed: %v", job, err)
			}
		}

	case job.ctx.Err() != nil || errors.Is(err, khova.ErrCancelled):
		out.State = khova.Cancelled
		out.Err = cancelled(err)
		runsTotal.WithLabelValues("cancelled").Inc()
		klog.V(1).Infof("%v: cancelled after %v", job, elapsed)

	default:
		out.State = khova.Failed
		out.Err = fmt.Errorf("%w: %w", khova.ErrFailed, err)
		runsTotal.WithLabelValues("failed").Inc()
		klog.Errorf("%v: %v", job, out.Err)
	}

	job.state.Store(int32(out.State))
}
