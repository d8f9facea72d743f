package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/shswrite/internal/apperrors"
	"github.com/palemoky/shswrite/internal/game/phrase"
	"github.com/palemoky/shswrite/internal/game/registry"
	"github.com/palemoky/shswrite/internal/game/role"
	"github.com/palemoky/shswrite/internal/game/session"
	"github.com/palemoky/shswrite/internal/protocol"
	"github.com/palemoky/shswrite/internal/testutil"
	"github.com/palemoky/shswrite/internal/types"
)

func newTestSynchronizer(t *testing.T, target string, opts ...Option) (*Synchronizer, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	reg := registry.New()
	sess := session.New(reg, phrase.Fixed(target), session.WithClock(clock))
	s := New(reg, sess, opts...)
	t.Cleanup(s.Close)
	return s, clock
}

func lastState(t *testing.T, c *testutil.SimpleClient) *protocol.GameStatePayload {
	t.Helper()
	states := c.MessagesOfType(protocol.MsgGameState)
	require.NotEmpty(t, states)
	state, err := protocol.ParsePayload[protocol.GameStatePayload](states[len(states)-1])
	require.NoError(t, err)
	return state
}

func TestJoin_SendsIdentityThenState(t *testing.T) {
	t.Parallel()

	s, _ := newTestSynchronizer(t, "abc")
	a := &testutil.SimpleClient{}
	p := s.Join(a)

	assert.Equal(t, p.ID, a.GetID())
	msgs := a.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, protocol.MsgPlayerID, msgs[0].Type)
	assert.Equal(t, protocol.MsgGameState, msgs[1].Type)

	id, err := protocol.ParsePayload[protocol.PlayerIDPayload](msgs[0])
	require.NoError(t, err)
	assert.Equal(t, p.ID, id.ID)
	assert.Equal(t, "Player-1", id.Nickname)

	b := &testutil.SimpleClient{}
	s.Join(b)

	// The existing player sees the newcomer.
	state := lastState(t, a)
	assert.Len(t, state.PlayersInfo, 2)
	assert.Contains(t, state.PlayersInfo, b.GetID())
	assert.Equal(t, 2, s.Online())
}

func TestLeave_Broadcasts(t *testing.T) {
	t.Parallel()

	s, _ := newTestSynchronizer(t, "abc")
	a := &testutil.SimpleClient{}
	b := &testutil.SimpleClient{}
	s.Join(a)
	s.Join(b)

	s.Leave(b.GetID())
	state := lastState(t, a)
	assert.Len(t, state.PlayersInfo, 1)
	assert.NotContains(t, state.PlayersInfo, b.GetID())

	// Leaving twice is a no-op.
	before := len(a.Messages())
	s.Leave(b.GetID())
	assert.Len(t, a.Messages(), before)
}

func TestMutationErrors_DoNotBroadcast(t *testing.T) {
	t.Parallel()

	s, _ := newTestSynchronizer(t, "abc")
	a := &testutil.SimpleClient{}
	s.Join(a)
	a.Reset()

	assert.ErrorIs(t, s.ChangeNickname(a.GetID(), "   "), apperrors.ErrInvalidNickname)
	assert.ErrorIs(t, s.Start(a.GetID()), apperrors.ErrNoRoleSelected)
	assert.ErrorIs(t, s.PressKey(a.GetID(), "a"), apperrors.ErrNoRoleSelected)
	assert.ErrorIs(t, s.SelectRole("ghost", role.Blind), apperrors.ErrUnknownPlayer)

	assert.Empty(t, a.Messages())
}

func TestFullRound(t *testing.T) {
	t.Parallel()

	s, clock := newTestSynchronizer(t, "merhaba")
	typist := &testutil.SimpleClient{}
	starter := &testutil.SimpleClient{}
	s.Join(typist)
	s.Join(starter)

	require.NoError(t, s.SelectRole(typist.GetID(), role.Blind))
	require.NoError(t, s.SelectRole(starter.GetID(), role.Mute))
	require.NoError(t, s.Start(starter.GetID()))

	state := lastState(t, typist)
	assert.True(t, state.GameStarted)
	assert.Equal(t, "merhaba", state.TargetText)

	clock.Advance(3 * time.Second)
	for _, ch := range "merhaba" {
		require.NoError(t, s.PressKey(typist.GetID(), string(ch)))
	}

	for _, c := range []*testutil.SimpleClient{typist, starter} {
		overs := c.MessagesOfType(protocol.MsgGameOver)
		require.Len(t, overs, 1)
		over, err := protocol.ParsePayload[protocol.GameOverPayload](overs[0])
		require.NoError(t, err)
		assert.InDelta(t, 3.0, over.TimeTaken, 1e-9)

		// game_over follows the finishing snapshot.
		msgs := c.Messages()
		last := msgs[len(msgs)-1]
		prev := msgs[len(msgs)-2]
		assert.Equal(t, protocol.MsgGameOver, last.Type)
		assert.Equal(t, protocol.MsgGameState, prev.Type)

		state := lastState(t, c)
		assert.Equal(t, "merhaba", state.TypedText)
		assert.False(t, state.GameStarted)
	}

	// Further key presses after completion are rejected silently.
	assert.ErrorIs(t, s.PressKey(typist.GetID(), "a"), apperrors.ErrGameNotRunning)
	assert.Len(t, typist.MessagesOfType(protocol.MsgGameOver), 1)
}

func TestReset_ClearsRolesForEveryone(t *testing.T) {
	t.Parallel()

	s, _ := newTestSynchronizer(t, "abc")
	a := &testutil.SimpleClient{}
	b := &testutil.SimpleClient{}
	s.Join(a)
	s.Join(b)
	require.NoError(t, s.SelectRole(a.GetID(), role.Blind))
	require.NoError(t, s.SelectRole(b.GetID(), role.Deaf))
	require.NoError(t, s.Start(b.GetID()))
	require.NoError(t, s.PressKey(a.GetID(), "a"))

	require.NoError(t, s.Reset(a.GetID()))

	state := lastState(t, b)
	assert.False(t, state.GameStarted)
	assert.Empty(t, state.TypedText)
	for _, p := range state.PlayersInfo {
		assert.Equal(t, role.Unset, p.Role)
	}
}

func TestSameRoleAllowed(t *testing.T) {
	t.Parallel()

	s, _ := newTestSynchronizer(t, "abc")
	a := &testutil.SimpleClient{}
	b := &testutil.SimpleClient{}
	s.Join(a)
	s.Join(b)

	require.NoError(t, s.SelectRole(a.GetID(), role.Deaf))
	require.NoError(t, s.SelectRole(b.GetID(), role.Deaf))

	snap := s.Snapshot()
	assert.Equal(t, role.Deaf, snap.PlayersInfo[a.GetID()].Role)
	assert.Equal(t, role.Deaf, snap.PlayersInfo[b.GetID()].Role)
}

func TestLeave_AutoReset(t *testing.T) {
	t.Parallel()

	t.Run("enabled", func(t *testing.T) {
		s, _ := newTestSynchronizer(t, "abc")
		a := &testutil.SimpleClient{}
		s.Join(a)
		require.NoError(t, s.SelectRole(a.GetID(), role.Deaf))
		require.NoError(t, s.Start(a.GetID()))

		s.Leave(a.GetID())
		assert.Equal(t, session.Idle, s.Phase())
	})

	t.Run("disabled", func(t *testing.T) {
		s, _ := newTestSynchronizer(t, "abc", WithAutoReset(false))
		a := &testutil.SimpleClient{}
		s.Join(a)
		require.NoError(t, s.SelectRole(a.GetID(), role.Deaf))
		require.NoError(t, s.Start(a.GetID()))

		s.Leave(a.GetID())
		assert.Equal(t, session.Running, s.Phase())
	})
}

func TestObservers(t *testing.T) {
	t.Parallel()

	observer := &testutil.MockRoundObserver{}
	failing := &testutil.MockRoundObserver{}
	s, clock := newTestSynchronizer(t, "ab", WithObservers(observer, failing), WithObserverTimeout(time.Second))

	observer.On("RoundStarted", mock.Anything, mock.MatchedBy(func(ev types.RoundStarted) bool {
		return ev.Phrase == "ab" && len(ev.Players) == 2
	})).Return(nil).Once()
	observer.On("RoundFinished", mock.Anything, mock.MatchedBy(func(res types.RoundResult) bool {
		return res.Phrase == "ab" && res.ElapsedSeconds == 2 && len(res.Players) == 2
	})).Return(nil).Once()
	failing.On("RoundStarted", mock.Anything, mock.Anything).Return(errors.New("boom"))
	failing.On("RoundFinished", mock.Anything, mock.Anything).Return(errors.New("boom"))

	a := &testutil.SimpleClient{}
	b := &testutil.SimpleClient{}
	s.Join(a)
	s.Join(b)
	require.NoError(t, s.SelectRole(a.GetID(), role.Blind))
	require.NoError(t, s.SelectRole(b.GetID(), role.Deaf))
	require.NoError(t, s.Start(b.GetID()))

	clock.Advance(2 * time.Second)
	require.NoError(t, s.PressKey(a.GetID(), "a"))
	require.NoError(t, s.PressKey(a.GetID(), "b"))

	s.Wait()
	observer.AssertExpectations(t)
	failing.AssertNumberOfCalls(t, "RoundFinished", 1)
}

// orderObserver 记录事件顺序，RoundStarted 可以人为变慢
type orderObserver struct {
	mu     sync.Mutex
	delay  time.Duration
	events []string
}

func (o *orderObserver) RoundStarted(context.Context, types.RoundStarted) error {
	time.Sleep(o.delay)
	o.record("started")
	return nil
}

func (o *orderObserver) RoundFinished(context.Context, types.RoundResult) error {
	o.record("finished")
	return nil
}

func (o *orderObserver) record(ev string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func TestObservers_KeepRoundOrder(t *testing.T) {
	t.Parallel()

	slow := &orderObserver{delay: 20 * time.Millisecond}
	fast := &orderObserver{}
	s, _ := newTestSynchronizer(t, "a", WithObservers(slow, fast))

	a := &testutil.SimpleClient{}
	b := &testutil.SimpleClient{}
	s.Join(a)
	s.Join(b)
	require.NoError(t, s.SelectRole(a.GetID(), role.Blind))
	require.NoError(t, s.SelectRole(b.GetID(), role.Mute))

	for range 3 {
		require.NoError(t, s.Start(b.GetID()))
		require.NoError(t, s.PressKey(a.GetID(), "a"))
		require.NoError(t, s.Reset(b.GetID()))
		require.NoError(t, s.SelectRole(a.GetID(), role.Blind))
		require.NoError(t, s.SelectRole(b.GetID(), role.Mute))
	}
	s.Wait()

	want := []string{"started", "finished", "started", "finished", "started", "finished"}
	assert.Equal(t, want, slow.events)
	assert.Equal(t, want, fast.events)
}

func TestClose_StopsObserverDelivery(t *testing.T) {
	t.Parallel()

	observer := &orderObserver{}
	s, _ := newTestSynchronizer(t, "a", WithObservers(observer))

	a := &testutil.SimpleClient{}
	s.Join(a)
	require.NoError(t, s.SelectRole(a.GetID(), role.Mute))

	s.Close()
	s.Close()
	require.NoError(t, s.Start(a.GetID()))
	s.Wait()

	assert.Empty(t, observer.events)
}

func TestBroadcastOrdering_Concurrent(t *testing.T) {
	t.Parallel()

	target := "birlikte çalışmak hedeflere ulaşmanın en etkili yoludur"
	s, _ := newTestSynchronizer(t, target)

	typist := &testutil.SimpleClient{}
	watcher := &testutil.SimpleClient{}
	s.Join(typist)
	s.Join(watcher)
	require.NoError(t, s.SelectRole(typist.GetID(), role.Blind))
	require.NoError(t, s.SelectRole(watcher.GetID(), role.Mute))
	require.NoError(t, s.Start(watcher.GetID()))

	var wg sync.WaitGroup
	wg.Go(func() {
		for _, ch := range target {
			_ = s.PressKey(typist.GetID(), string(ch))
		}
	})
	wg.Go(func() {
		for i := range 200 {
			_ = s.MoveCursor(watcher.GetID(), float64(i), float64(i))
		}
	})
	wg.Wait()

	// Both clients observe the same sequence of snapshots once the watcher has joined.
	assert.Equal(t, typist.MessagesOfType(protocol.MsgGameState)[1:], watcher.MessagesOfType(protocol.MsgGameState))

	// The typed buffer only ever grows toward the target.
	prev := ""
	for _, msg := range watcher.MessagesOfType(protocol.MsgGameState) {
		state, err := protocol.ParsePayload[protocol.GameStatePayload](msg)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(state.TypedText), len(prev))
		prev = state.TypedText
	}
	assert.Equal(t, target, prev)
	assert.Len(t, watcher.MessagesOfType(protocol.MsgGameOver), 1)
}

func TestBroadcastAndCloseAll(t *testing.T) {
	t.Parallel()

	s, _ := newTestSynchronizer(t, "abc")
	a := &testutil.SimpleClient{}
	s.Join(a)

	s.Broadcast(protocol.NewNoticeMessage(protocol.TitleNotice, "bye"))
	assert.Equal(t, protocol.MsgMessageBox, a.Last().Type)

	s.CloseAll()
	assert.True(t, a.Closed())
}
