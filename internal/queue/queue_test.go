package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestInMemory_PublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	require.NoError(t, q.Publish(ctx, Message{Type: TypeAttendanceResolved, Body: []byte("rec-1")}))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	msg := receive(t, ch)
	assert.Equal(t, TypeAttendanceResolved, msg.Type)
	assert.Equal(t, "rec-1", string(msg.Body))

	cancel()
	for range ch {
	}
}

func TestInMemory_ConsumeDrainsAfterCancel(t *testing.T) {
	q := NewInMemory(4)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Publish(context.Background(), Message{Type: TypeAttendanceResolved, Body: []byte(id)}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch, err := q.Consume(ctx)
	require.NoError(t, err)

	var got []string
	for msg := range ch {
		got = append(got, string(msg.Body))
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestInMemory_PublishRespectsContext(t *testing.T) {
	q := NewInMemory(1)
	require.NoError(t, q.Publish(context.Background(), Message{Type: "a"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Publish(ctx, Message{Type: "b"}), context.DeadlineExceeded)
}

func TestRedisQueue_PublishConsume(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewRedisQueue(client, "")
	q.wait = 100 * time.Millisecond
	require.NoError(t, q.Publish(ctx, Message{Type: TypeAttendanceResolved, Body: []byte("rec|with|pipes")}))
	require.NoError(t, q.Publish(ctx, Message{Type: TypeAttendanceResolved, Body: []byte("rec-2")}))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rec|with|pipes", string(receive(t, ch).Body))
	assert.Equal(t, "rec-2", string(receive(t, ch).Body))
}

func TestEncodeDecode(t *testing.T) {
	raw, err := encode(Message{Type: "x", Body: []byte("y")})
	require.NoError(t, err)
	msg, err := decode(raw)
	require.NoError(t, err)
	assert.Equal(t, Message{Type: "x", Body: []byte("y")}, msg)

	_, err = decode("x|y")
	assert.Error(t, err)
}
