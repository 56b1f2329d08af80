package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolattendance/internal/metrics"
	"schoolattendance/internal/model"
	"schoolattendance/internal/state"
	"schoolattendance/internal/store"
)

var wib = time.FixedZone("WIB", 7*3600)

type fakeGenerator struct {
	text    string
	err     error
	delay   time.Duration
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

type sent struct{ contact, body string }

type fakeSender struct {
	calls []sent
	err   error
}

func (f *fakeSender) Send(_ context.Context, contact, body string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, sent{contact, body})
	return "https://wa.me/" + contact, nil
}

var budi = model.User{
	ID: "student-1", Username: "budi", Role: model.RoleStudent,
	Name: "Budi Santoso", ClassName: "12 IPA 1", ParentContact: "6281234567890",
}

var siti = model.User{
	ID: "student-2", Username: "siti", Role: model.RoleStudent,
	Name: "Siti Aminah", ClassName: "12 IPS 2", ParentContact: "6289876543210",
}

type fixture struct {
	state   *state.State
	gen     *fakeGenerator
	sender  *fakeSender
	gw      *Gateway
	metrics *metrics.Metrics
	logs    *logtest.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := state.Load(context.Background(), store.NewMemory(), state.Defaults{
		Users:  []model.User{budi, siti},
		Config: model.SchoolConfig{EntranceTime: "07:30", RadiusLimit: 100},
	}, nil)
	require.NoError(t, err)

	logger, hook := logtest.NewNullLogger()
	f := &fixture{
		state:   st,
		gen:     &fakeGenerator{},
		sender:  &fakeSender{},
		metrics: metrics.New(prometheus.NewRegistry()),
		logs:    hook,
	}
	f.gw = NewGateway(st, f.gen, f.sender, wib, logrus.NewEntry(logger), f.metrics)
	return f
}

func lateRecord(id, student string) model.AttendanceRecord {
	return model.AttendanceRecord{
		ID:        id,
		StudentID: student,
		Status:    model.StatusLate,
		Timestamp: time.Date(2026, time.October, 15, 7, 31, 5, 0, wib).UnixMilli(),
	}
}

func TestDraft_UsesGeneratedText(t *testing.T) {
	f := newFixture(t)
	f.gen.text = "  Yth. Bapak/Ibu, ananda Budi terlambat.  "

	item := f.gw.Draft(context.Background(), lateRecord("r1", budi.ID), budi)

	assert.Equal(t, "Yth. Bapak/Ibu, ananda Budi terlambat.", item.Message)
	assert.Equal(t, budi.ID, item.StudentID)
	assert.Equal(t, "Budi Santoso", item.StudentName)
	assert.Equal(t, "12 IPA 1", item.ClassName)
	assert.Equal(t, "6281234567890", item.ParentContact)
	assert.Equal(t, model.StatusLate, item.Status)
	assert.NotEmpty(t, item.ID)

	require.Len(t, f.gen.prompts, 1)
	p := f.gen.prompts[0]
	assert.Contains(t, p, "Budi Santoso")
	assert.Contains(t, p, "12 IPA 1")
	assert.Contains(t, p, "Terlambat")
	assert.Contains(t, p, "15/10/2026 07.31.05")
	assert.Contains(t, p, "Notes (if any): None")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Drafts.WithLabelValues("generated")))
}

func TestDraft_FallbackOnFailureOrEmpty(t *testing.T) {
	want := "Laporan Kehadiran: Budi Santoso (12 IPA 1) status Terlambat pada 15/10/2026 07.31.05."

	f := newFixture(t)
	f.gen.err = errors.New("deadline exceeded")
	item := f.gw.Draft(context.Background(), lateRecord("r1", budi.ID), budi)
	assert.Equal(t, want, item.Message)
	assert.NotEmpty(t, f.logs.AllEntries())

	f = newFixture(t)
	f.gen.text = "   "
	item = f.gw.Draft(context.Background(), lateRecord("r1", budi.ID), budi)
	assert.Equal(t, want, item.Message)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Drafts.WithLabelValues("fallback")))
}

func TestDraft_PromptIncludesNote(t *testing.T) {
	f := newFixture(t)
	rec := lateRecord("r1", budi.ID)
	rec.Status = model.StatusSick
	rec.Note = model.StringPtr("Demam")
	f.gw.Draft(context.Background(), rec, budi)
	assert.Contains(t, f.gen.prompts[0], "Notes (if any): Demam")
}

func TestEnqueue_OneItemPerRecordMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.gen.err = errors.New("unavailable")
	first, err := f.gw.Enqueue(ctx, lateRecord("r1", budi.ID), budi)
	require.NoError(t, err)

	f.gen.err, f.gen.text = nil, "pesan"
	second, err := f.gw.Enqueue(ctx, lateRecord("r2", siti.ID), siti)
	require.NoError(t, err)

	q := f.state.Queue()
	require.Len(t, q, 2)
	assert.Equal(t, second.ID, q[0].ID)
	assert.Equal(t, first.ID, q[1].ID)
}

func TestEnqueue_SnapshotNotResynced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.gen.text = "pesan"

	item, err := f.gw.Enqueue(ctx, lateRecord("r1", budi.ID), budi)
	require.NoError(t, err)

	edited := budi
	edited.Name = "Budi S."
	edited.ParentContact = "620000"
	require.NoError(t, f.state.UpdateUser(ctx, edited))

	got, ok := f.state.QueueItem(item.ID)
	require.True(t, ok)
	assert.Equal(t, "Budi Santoso", got.StudentName)
	assert.Equal(t, "6281234567890", got.ParentContact)
}

func TestEnqueueRecord_StaleWhenStudentDeleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.state.AddRecord(ctx, lateRecord("r1", budi.ID)))
	_, err := f.state.DeleteUser(ctx, budi.ID)
	require.NoError(t, err)

	_, err = f.gw.EnqueueRecord(ctx, "r1")
	assert.ErrorIs(t, err, ErrStale)
	assert.Empty(t, f.state.Queue())
}

func TestEnqueue_StaleWhenStudentDeletedDuringGeneration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.state.DeleteUser(ctx, budi.ID)
	require.NoError(t, err)

	_, err = f.gw.Enqueue(ctx, lateRecord("r1", budi.ID), budi)
	assert.ErrorIs(t, err, ErrStale)
	assert.Empty(t, f.state.Queue())
}

func TestSend_RemovesItemAfterDispatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.gen.text = "pesan untuk orang tua"

	a, err := f.gw.Enqueue(ctx, lateRecord("r1", budi.ID), budi)
	require.NoError(t, err)
	_, err = f.gw.Enqueue(ctx, lateRecord("r2", siti.ID), siti)
	require.NoError(t, err)

	link, ok, err := f.gw.Send(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(link, "https://wa.me/6281234567890"))

	require.Len(t, f.sender.calls, 1)
	assert.Equal(t, sent{"6281234567890", "pesan untuk orang tua"}, f.sender.calls[0])

	q := f.state.Queue()
	assert.Len(t, q, 1)
	for _, it := range q {
		assert.NotEqual(t, a.ID, it.ID)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.QueueActions.WithLabelValues("send")))

	link, ok, err = f.gw.Send(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, link)
	assert.Len(t, f.sender.calls, 1)
}

func TestSend_SenderFailureKeepsItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item, err := f.gw.Enqueue(ctx, lateRecord("r1", budi.ID), budi)
	require.NoError(t, err)

	f.sender.err = errors.New("no contact")
	_, ok, err := f.gw.Send(ctx, item.ID)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Len(t, f.state.Queue(), 1)
}

func TestDiscard_RemovesWithoutDispatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, err := f.gw.Enqueue(ctx, lateRecord("r1", budi.ID), budi)
	require.NoError(t, err)
	_, err = f.gw.Enqueue(ctx, lateRecord("r2", budi.ID), budi)
	require.NoError(t, err)

	removed, err := f.gw.Discard(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Len(t, f.state.Queue(), 1)
	assert.Empty(t, f.sender.calls)

	removed, err = f.gw.Discard(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Len(t, f.state.Queue(), 1)
}
