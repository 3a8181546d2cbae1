// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sim

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"grimm.is/flowsim/internal/engine"
	"grimm.is/flowsim/internal/errors"
	"grimm.is/flowsim/internal/logging"
	"grimm.is/flowsim/internal/probe"
)

// Options controls one simulation run.
type Options struct {
	// Workers selects the execution strategy: 1 evaluates inline,
	// 0 auto-sizes to min(GOMAXPROCS, source records), anything else is
	// a fixed pool size capped at the source record count.
	Workers int

	// FilterPolicyID, when set, keeps only rows whose matched policy id
	// equals it.
	FilterPolicyID string

	// OutPath is the main CSV sink. RoutablePath is the companion sink
	// used in fuzzy mode; empty disables it.
	OutPath      string
	RoutablePath string

	Metrics *Metrics
}

// Summary reports what a run produced.
type Summary struct {
	Probes   int
	Rows     int
	Routable int
	Workers  int
}

// result carries one evaluated probe back to the coordinator.
type result struct {
	seq      int
	row      Row
	routable *Row
}

type runner struct {
	ctx     *Context
	eval    *engine.Evaluator
	opts    Options
	log     *logging.Logger
	main    *resultWriter
	aux     *resultWriter
	metrics *Metrics
	summary Summary
}

// Run evaluates every probe in the plan and writes the result rows in
// plan order. Output rows are appended only here in the coordinator;
// workers share the immutable context and communicate by message.
func Run(simCtx *Context, planner *probe.Planner, opts Options, log *logging.Logger) (Summary, error) {
	if log == nil {
		log = logging.Discard()
	}
	workers, err := resolveWorkerCount(opts.Workers, planner.SourceCount())
	if err != nil {
		return Summary{}, err
	}

	r := &runner{
		ctx:     simCtx,
		eval:    engine.New(simCtx.Policies, simCtx.Addresses, simCtx.Services, simCtx.Mode, simCtx.IgnoreSchedule, log),
		opts:    opts,
		log:     log,
		metrics: opts.Metrics,
	}
	r.summary.Workers = workers

	r.main, err = newResultWriter(opts.OutPath)
	if err != nil {
		return r.summary, err
	}
	defer r.main.Close()
	if opts.RoutablePath != "" {
		r.aux, err = newResultWriter(opts.RoutablePath)
		if err != nil {
			return r.summary, err
		}
		defer r.aux.Close()
	}

	if workers <= 1 {
		err = r.runSerial(planner)
	} else {
		err = r.runParallel(planner, workers)
	}
	if err != nil {
		return r.summary, err
	}

	if err := r.main.Close(); err != nil {
		return r.summary, err
	}
	if r.aux != nil {
		if err := r.aux.Close(); err != nil {
			return r.summary, err
		}
	}
	return r.summary, nil
}

// resolveWorkerCount applies the CLI contract to the requested count.
func resolveWorkerCount(requested, sourceCount int) (int, error) {
	if sourceCount < 1 {
		return 1, nil
	}
	if requested < 0 {
		return 0, errors.New(errors.KindValidation, "workers must be zero or a positive integer")
	}
	if requested == 0 {
		requested = runtime.GOMAXPROCS(0)
	}
	if requested > sourceCount {
		requested = sourceCount
	}
	return requested, nil
}

func (r *runner) runSerial(planner *probe.Planner) error {
	return planner.Walk(func(p probe.Probe) error {
		res, err := r.evaluateProbe(p)
		if err != nil {
			return err
		}
		return r.record(res)
	})
}

func (r *runner) runParallel(planner *probe.Planner, workers int) error {
	total := planner.Total()
	chunk := total / (workers * 4)
	if chunk < 1 {
		chunk = 1
	}

	probes := make(chan probe.Probe, chunk)
	results := make(chan result, chunk)

	g, gctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		defer close(probes)
		return planner.Walk(func(p probe.Probe) error {
			select {
			case probes <- p:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	var workerWG sync.WaitGroup
	workerWG.Add(workers)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			defer workerWG.Done()
			for p := range probes {
				res, err := r.evaluateProbe(p)
				if err != nil {
					r.log.Error("worker failed", "probe", p.Seq, "error", err)
					return err
				}
				select {
				case results <- res:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		workerWG.Wait()
		close(results)
	}()

	// The coordinator re-establishes submission order: workers complete
	// out of order, so completed results park in pending until their
	// predecessors have been written.
	pending := make(map[int]result, chunk)
	next := 0
	var writeErr error
	for res := range results {
		if writeErr != nil {
			continue // drain so workers never block
		}
		pending[res.seq] = res
		for {
			buffered, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if err := r.record(buffered); err != nil {
				writeErr = err
				break
			}
			next++
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return writeErr
}

// evaluateProbe runs one probe through the evaluator. Evaluation itself
// never fails; a panic inside a worker is converted into a fatal error
// that aborts the run.
func (r *runner) evaluateProbe(p probe.Probe) (res result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf(errors.KindInternal,
				"worker panic evaluating probe %d (%s -> %s %s/%d): %v",
				p.Seq, p.Src.Network, p.DstNetwork, p.Port.Protocol, p.Port.Port, rec)
		}
	}()
	detail := r.eval.Evaluate(p.Src.Network, p.DstNetwork, p.Port.Protocol, p.Port.Port)
	row, routable := rowFor(r.ctx, p, detail)
	return result{seq: p.Seq, row: row, routable: routable}, nil
}

// record writes one result. Only the coordinator calls it.
func (r *runner) record(res result) error {
	r.summary.Probes++
	if r.metrics != nil {
		r.metrics.Probes.Inc()
		r.metrics.Decisions.WithLabelValues(string(res.row.Decision)).Inc()
	}
	if r.opts.FilterPolicyID != "" && res.row.PolicyID != r.opts.FilterPolicyID {
		return nil
	}
	if err := r.main.Write(res.row); err != nil {
		return err
	}
	r.summary.Rows++
	if r.metrics != nil {
		r.metrics.Rows.Inc()
	}
	if res.routable != nil && r.aux != nil {
		if err := r.aux.Write(*res.routable); err != nil {
			return err
		}
		r.summary.Routable++
		if r.metrics != nil {
			r.metrics.Routable.Inc()
		}
	}
	return nil
}
