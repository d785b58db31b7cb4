package worker

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Worker measures one operation of one adapter: a number of untimed warm-up calls
// followed by the measured iterations, strictly one call at a time.
type Worker struct {
	adapter         string
	operation       string
	warmup          int
	iterations      int
	timeout         time.Duration
	function        func(ctx context.Context) error
	operationsToLog chan *OperationLogEntry
	operationLogWg  *sync.WaitGroup
}

type OperationLogEntry struct {
	iteration int
	warmup    bool
	rt        float64
	err       error
	t         time.Time
}

type Metric struct {
	Rts           []float64 // list of the response times (seconds) of completed calls
	TotalRt       float64   // sum of the response time of all completed calls
	CompleteCount int       // number of completed calls
	AbortCount    int       // number of failed calls
	LastError     error     // error of the last failed call
}

type BenchmarkResults struct {
	Adapter      string
	Operation    string
	RealDuration float64 // seconds spent in the measured phase
	Warmup       *Metric
	Measured     *Metric
}

func NewWorker(adapter string, operation string, warmup int, iterations int, timeout time.Duration,
	function func(ctx context.Context) error) *Worker {
	worker := new(Worker)
	worker.adapter = adapter
	worker.operation = operation
	worker.warmup = warmup
	worker.iterations = iterations
	worker.timeout = timeout
	worker.function = function
	worker.operationsToLog = make(chan *OperationLogEntry, 1024)
	worker.operationLogWg = &sync.WaitGroup{}
	return worker
}

// Failed returns the results of a pair whose adapter could not be built: every
// iteration counts as failed and nothing was measured.
func Failed(adapter string, operation string, iterations int, err error) *BenchmarkResults {
	return &BenchmarkResults{
		Adapter:   adapter,
		Operation: operation,
		Warmup:    &Metric{},
		Measured:  &Metric{AbortCount: iterations, LastError: err},
	}
}

func (w *Worker) log(msg string) {
	zlog.Info().Str("adapter", w.adapter).Str("operation", w.operation).Msg(msg)
}

func (w *Worker) logOperationsWorker() {
	for operation := range w.operationsToLog {
		if operation == nil {
			break
		}

		if operation.err == nil {
			zlog.Debug().Str("adapter", w.adapter).Str("operation", w.operation).
				Int("iteration", operation.iteration).Bool("warmup", operation.warmup).
				Float64("rt", operation.rt).Time("real_time", operation.t).Msg("completed")
		} else {
			zlog.Warn().Str("adapter", w.adapter).Str("operation", w.operation).
				Int("iteration", operation.iteration).Bool("warmup", operation.warmup).
				Float64("rt", operation.rt).Time("real_time", operation.t).Err(operation.err).Msg("aborted")
		}
	}

	w.operationLogWg.Done()
}

func (w *Worker) call(ctx context.Context) (float64, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	txStart := time.Now()
	err := w.function(ctx)
	return time.Since(txStart).Seconds(), err
}

func (w *Worker) phase(ctx context.Context, n int, warmup bool) *Metric {
	metric := &Metric{}
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			// the run was cancelled, the remaining iterations never happen
			metric.AbortCount += n - i
			metric.LastError = ctx.Err()
			break
		}

		rt, err := w.call(ctx)
		w.operationsToLog <- &OperationLogEntry{i, warmup, rt, err, time.Now()}

		if err == nil {
			metric.CompleteCount++
			metric.Rts = append(metric.Rts, rt)
			metric.TotalRt += rt
		} else {
			metric.AbortCount++
			metric.LastError = err
		}
	}
	return metric
}

func (w *Worker) Run(ctx context.Context) *BenchmarkResults {
	w.operationLogWg.Add(1)
	go w.logOperationsWorker()

	results := &BenchmarkResults{Adapter: w.adapter, Operation: w.operation}

	w.log("Warming up")
	results.Warmup = w.phase(ctx, w.warmup, true)

	w.log("Running")
	start := time.Now()
	results.Measured = w.phase(ctx, w.iterations, false)
	results.RealDuration = time.Since(start).Seconds()

	w.operationsToLog <- nil
	w.operationLogWg.Wait()
	w.log("Done")

	return results
}
