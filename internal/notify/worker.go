package notify

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"schoolattendance/internal/queue"
)

// Worker drafts notifications for records announced on the queue.
type Worker struct {
	q   queue.Queue
	gw  *Gateway
	log *logrus.Entry
}

func NewWorker(q queue.Queue, gw *Gateway, log *logrus.Entry) *Worker {
	return &Worker{q: q, gw: gw, log: log.WithField("component", "notify-worker")}
}

// Run consumes until ctx is cancelled and the queue has handed out every
// buffered message. Drafts run on a context detached from ctx so a shutdown
// does not cut a generation or its write short.
func (w *Worker) Run(ctx context.Context) error {
	messages, err := w.q.Consume(ctx)
	if err != nil {
		return err
	}
	w.log.Info("worker started, waiting for messages")
	work := context.WithoutCancel(ctx)
	for msg := range messages {
		w.Handle(work, msg)
	}
	w.log.Info("worker stopped")
	return nil
}

// Handle processes one message. Unknown types are ignored.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) {
	if msg.Type != queue.TypeAttendanceResolved {
		return
	}
	id := string(msg.Body)
	_, err := w.gw.EnqueueRecord(ctx, id)
	switch {
	case errors.Is(err, ErrStale):
		w.log.WithField("record_id", id).Info("skipping notification for removed record")
	case err != nil:
		w.log.WithError(err).WithField("record_id", id).Warn("notification queued in memory only")
	}
}
