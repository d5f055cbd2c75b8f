package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qbank/internal/auth"
	"qbank/internal/event"

	"github.com/sirupsen/logrus"
)

// ActorLoader resolves the user a job was enqueued by, with current roles
// and memberships.
type ActorLoader func(ctx context.Context, userID int64) (*auth.User, error)

type Worker struct {
	queue    Queue
	files    *FileStore
	importer *Importer
	actors   ActorLoader
	progress Publisher
	log      logrus.FieldLogger
}

func NewWorker(queue Queue, files *FileStore, importer *Importer, actors ActorLoader, progress Publisher, log logrus.FieldLogger) *Worker {
	return &Worker{queue: queue, files: files, importer: importer, actors: actors, progress: progress, log: log}
}

// Run processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.WithError(err).Error("dequeue import job")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		entry := w.log.WithFields(logrus.Fields{"job_id": job.ID, "event_id": job.EventID, "user_id": job.ActorID})
		report, err := w.Process(ctx, job)
		if err != nil {
			entry.WithError(err).Error("import job failed")
			continue
		}
		entry.WithFields(logrus.Fields{
			"total_rows":   report.TotalRows,
			"success_rows": report.SuccessRows,
			"failed_rows":  report.FailedRows,
		}).Info("import job finished")
	}
}

// Process runs one job. The stored file is removed whatever the outcome.
func (w *Worker) Process(ctx context.Context, job Job) (*Report, error) {
	defer func() {
		if err := w.files.Remove(job.Path); err != nil {
			w.log.WithError(err).WithField("job_id", job.ID).Warn("remove import file")
		}
	}()

	actor, err := w.actors(ctx, job.ActorID)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}
	if !actor.InEvent(job.EventID) {
		return nil, errors.New("actor is no longer a member of the event")
	}

	f, err := w.files.Open(job.Path)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	rows, err := ParseWorkbook(f)
	_ = f.Close()
	if err != nil {
		w.publish(job, 1, &Report{Errors: []RowError{{Error: err.Error()}}})
		return nil, err
	}

	scope := event.Scope{EventID: job.EventID, Actor: actor}
	report := w.importer.Import(ctx, scope, rows, func(p float64) {
		if p < 1 {
			w.publish(job, p, nil)
		}
	})
	w.publish(job, 1, report)
	return report, nil
}

func (w *Worker) publish(job Job, p float64, report *Report) {
	if w.progress == nil {
		return
	}
	w.progress.Publish(Progress{JobID: job.ID, EventID: job.EventID, Progress: p, Done: report != nil, Report: report})
}
