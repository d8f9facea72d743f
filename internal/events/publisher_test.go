package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/shswrite/internal/game/role"
	"github.com/palemoky/shswrite/internal/types"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	mu         sync.Mutex
	msgs       []published
	publishErr error
	flushErr   error
	drained    bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.msgs = append(c.msgs, published{subject: subject, data: data})
	return nil
}

func (c *fakeConn) FlushWithContext(context.Context) error { return c.flushErr }

func (c *fakeConn) Drain() error {
	c.drained = true
	return nil
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "shswrite.round.started", newPublisher(&fakeConn{}, "shswrite", nil).Subject(EventRoundStarted))
	assert.Equal(t, "round.finished", newPublisher(&fakeConn{}, "", nil).Subject(EventRoundFinished))
}

func TestPublisher_RoundFinished(t *testing.T) {
	c := &fakeConn{}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := newPublisher(c, "shswrite", clockwork.NewFakeClockAt(fixed))

	res := types.RoundResult{
		RoundID:        "r1",
		Phrase:         "merhaba",
		ElapsedSeconds: 4.2,
		Players:        []types.RoundPlayer{{ID: "p1", Nickname: "Player-1", Role: role.Blind}},
	}
	require.NoError(t, p.RoundFinished(context.Background(), res))

	require.Len(t, c.msgs, 1)
	assert.Equal(t, "shswrite.round.finished", c.msgs[0].subject)

	var env Envelope
	require.NoError(t, json.Unmarshal(c.msgs[0].data, &env))
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, EventRoundFinished, env.EventType)
	assert.Equal(t, "r1", env.RoundID)
	assert.True(t, fixed.Equal(env.Timestamp))

	var got types.RoundResult
	require.NoError(t, json.Unmarshal(env.Payload, &got))
	assert.Equal(t, "merhaba", got.Phrase)
	assert.InDelta(t, 4.2, got.ElapsedSeconds, 1e-9)
	assert.Equal(t, role.Blind, got.Players[0].Role)
}

func TestPublisher_RoundStarted(t *testing.T) {
	c := &fakeConn{}
	p := newPublisher(c, "game", nil)

	require.NoError(t, p.RoundStarted(context.Background(), types.RoundStarted{RoundID: "r2", Phrase: "test"}))
	require.Len(t, c.msgs, 1)
	assert.Equal(t, "game.round.started", c.msgs[0].subject)
}

func TestPublisher_Errors(t *testing.T) {
	boom := errors.New("boom")

	p := newPublisher(&fakeConn{publishErr: boom}, "x", nil)
	assert.ErrorIs(t, p.RoundStarted(context.Background(), types.RoundStarted{}), boom)

	p = newPublisher(&fakeConn{flushErr: boom}, "x", nil)
	assert.ErrorIs(t, p.RoundFinished(context.Background(), types.RoundResult{}), boom)
}

func TestPublisher_Close(t *testing.T) {
	c := &fakeConn{}
	require.NoError(t, newPublisher(c, "x", nil).Close())
	assert.True(t, c.drained)
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(Config{URL: "nats://127.0.0.1:1", MaxReconnects: 0, ReconnectWait: time.Millisecond})
	assert.Error(t, err)
}
