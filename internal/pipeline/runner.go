package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"docuchat/internal/logger"
)

// Ingestor runs a full ingestion for one document.
type Ingestor interface {
	Run(ctx context.Context, documentID int64, storageKey string) error
}

// Runner executes ingestions on a bounded worker pool and guarantees at most
// one active run per document id. A second start for an id that is already
// in flight returns ErrAlreadyRunning; once a run finishes, a new start for
// the same id is accepted again.
type Runner struct {
	ingestor Ingestor
	pool     *ants.Pool

	mu     sync.Mutex
	active map[int64]struct{}

	wg sync.WaitGroup
}

func NewRunner(ingestor Ingestor, concurrency int) (*Runner, error) {
	pool, err := ants.NewPool(concurrency, ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}
	return &Runner{
		ingestor: ingestor,
		pool:     pool,
		active:   map[int64]struct{}{},
	}, nil
}

// Start submits an ingestion for documentID. It returns once the job is
// accepted; the run itself executes on the pool with its own context, so the
// trigger's deadline does not cancel an in-flight ingestion. The trigger's
// correlation id is carried over for log continuity.
func (r *Runner) Start(ctx context.Context, documentID int64, storageKey string) error {
	r.mu.Lock()
	if _, running := r.active[documentID]; running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.active[documentID] = struct{}{}
	r.mu.Unlock()

	runCtx := logger.WithCorrelationID(context.Background(), logger.GetCorrelationID(ctx))

	r.wg.Add(1)
	err := r.pool.Submit(func() {
		defer r.wg.Done()
		defer r.release(documentID)
		if err := r.ingestor.Run(runCtx, documentID, storageKey); err != nil {
			slog.ErrorContext(runCtx, "ingestion run failed", "document_id", documentID, "error", err)
		}
	})
	if err != nil {
		r.wg.Done()
		r.release(documentID)
		return err
	}
	return nil
}

func (r *Runner) release(documentID int64) {
	r.mu.Lock()
	delete(r.active, documentID)
	r.mu.Unlock()
}

// Running reports whether documentID currently has an active run.
func (r *Runner) Running(documentID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[documentID]
	return ok
}

// Close waits for in-flight runs to finish and releases the pool.
func (r *Runner) Close() {
	r.wg.Wait()
	r.pool.Release()
}
