package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/itemxtract/internal/ledger"
)

// RunBatch processes tasks with at most workers in flight and returns
// their records in task order. One failing task never stops the others.
func RunBatch(ctx context.Context, w *Worker, session *ledger.Session, tasks []Task, workers int) []ledger.FilingRecord {
	recs := make([]ledger.FilingRecord, len(tasks))
	runTasks(ctx, w, session, tasks, workers, func(i int, rec ledger.FilingRecord) {
		recs[i] = rec
	})
	return recs
}

// runTasks calls done with each task's index and record as soon as the
// task finishes. done may be called from several goroutines at once.
func runTasks(ctx context.Context, w *Worker, session *ledger.Session, tasks []Task, workers int, done func(int, ledger.FilingRecord)) {
	if workers <= 1 || len(tasks) <= 1 {
		for i, t := range tasks {
			done(i, w.Process(ctx, session, t))
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, t := range tasks {
		g.Go(func() error {
			done(i, w.Process(ctx, session, t))
			return nil
		})
	}
	_ = g.Wait()
}
