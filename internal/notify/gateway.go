// Package notify turns resolved attendance records into parent notification
// drafts and dispatches or discards them on admin request.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"schoolattendance/internal/metrics"
	"schoolattendance/internal/model"
	"schoolattendance/internal/state"
)

// TimeLayout is the display format of timestamps in messages.
const TimeLayout = "02/01/2006 15.04.05"

// ErrStale means the record or its student disappeared before drafting.
var ErrStale = errors.New("record or student no longer exists")

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Sender hands a message to the external messaging app and returns the
// action link it opened.
type Sender interface {
	Send(ctx context.Context, contact, body string) (string, error)
}

// Gateway is the only writer of the message queue.
type Gateway struct {
	state   *state.State
	gen     Generator
	sender  Sender
	loc     *time.Location
	log     *logrus.Entry
	metrics *metrics.Metrics
}

func NewGateway(st *state.State, gen Generator, sender Sender, loc *time.Location, log *logrus.Entry, m *metrics.Metrics) *Gateway {
	if loc == nil {
		loc = time.Local
	}
	return &Gateway{state: st, gen: gen, sender: sender, loc: loc, log: log.WithField("component", "notify"), metrics: m}
}

// FormatTimestamp renders unix milliseconds in loc with TimeLayout.
func FormatTimestamp(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format(TimeLayout)
}

// FallbackMessage is the deterministic text used whenever generation fails.
func FallbackMessage(u model.User, status model.Status, formatted string) string {
	return fmt.Sprintf("Laporan Kehadiran: %s (%s) status %s pada %s.", u.Name, u.ClassName, status.Label(), formatted)
}

// NotificationPrompt asks for a formal WhatsApp message to the parent.
func NotificationPrompt(u model.User, rec model.AttendanceRecord, formatted string) string {
	note := "None"
	if rec.Note != nil {
		note = *rec.Note
	}
	return fmt.Sprintf(`Compose a professional and polite WhatsApp message in Indonesian to a parent notifying them of their child's attendance.
Student Name: %s
Class: %s
Status: %s
Time: %s
Notes (if any): %s

The tone should be formal yet informative. Keep it concise.`, u.Name, u.ClassName, rec.Status.Label(), formatted, note)
}

// Draft builds a queue item for rec. It never fails: any generation error or
// empty answer is replaced by FallbackMessage.
func (g *Gateway) Draft(ctx context.Context, rec model.AttendanceRecord, u model.User) model.MessageQueueItem {
	formatted := FormatTimestamp(rec.Timestamp, g.loc)

	message, err := g.gen.Generate(ctx, NotificationPrompt(u, rec, formatted))
	message = strings.TrimSpace(message)
	if err != nil || message == "" {
		if err != nil {
			g.log.WithError(err).WithField("record_id", rec.ID).Warn("text generation failed, using fallback message")
		}
		message = FallbackMessage(u, rec.Status, formatted)
		g.metrics.Drafted("fallback")
	} else {
		g.metrics.Drafted("generated")
	}

	return model.MessageQueueItem{
		ID:            uuid.NewString(),
		StudentID:     u.ID,
		StudentName:   u.Name,
		ClassName:     u.ClassName,
		ParentContact: u.ParentContact,
		Message:       message,
		Timestamp:     rec.Timestamp,
		Status:        rec.Status,
	}
}

// Enqueue drafts a message for rec and prepends it to the queue.
func (g *Gateway) Enqueue(ctx context.Context, rec model.AttendanceRecord, u model.User) (model.MessageQueueItem, error) {
	item := g.Draft(ctx, rec, u)
	if err := g.state.PrependMessage(ctx, item); err != nil {
		if errors.Is(err, state.ErrUserNotFound) {
			return model.MessageQueueItem{}, ErrStale
		}
		return item, err
	}
	g.log.WithFields(logrus.Fields{"record_id": rec.ID, "item_id": item.ID, "student_id": u.ID}).Info("notification queued")
	return item, nil
}

// EnqueueRecord looks up the committed record and its student, then enqueues.
func (g *Gateway) EnqueueRecord(ctx context.Context, recordID string) (model.MessageQueueItem, error) {
	rec, ok := g.state.Record(recordID)
	if !ok {
		return model.MessageQueueItem{}, ErrStale
	}
	u, ok := g.state.User(rec.StudentID)
	if !ok {
		return model.MessageQueueItem{}, ErrStale
	}
	return g.Enqueue(ctx, rec, u)
}

// Send dispatches the item through the messaging app, then removes it.
// A missing id is a no-op and reports sent=false. When the sender fails the
// item stays queued.
func (g *Gateway) Send(ctx context.Context, id string) (link string, sent bool, err error) {
	item, ok := g.state.QueueItem(id)
	if !ok {
		return "", false, nil
	}
	link, err = g.sender.Send(ctx, item.ParentContact, item.Message)
	if err != nil {
		return "", false, err
	}
	removed, err := g.state.RemoveMessage(ctx, id)
	if removed {
		g.metrics.QueueAction("send")
	}
	return link, removed, err
}

// Discard removes the item without dispatching it. A missing id is a no-op.
func (g *Gateway) Discard(ctx context.Context, id string) (bool, error) {
	removed, err := g.state.RemoveMessage(ctx, id)
	if removed {
		g.metrics.QueueAction("discard")
	}
	return removed, err
}
