package lobby

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fcavalcantirj/jarls-sub005/internal/engine"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			// channel closed → that's fine; no further snapshots possible
			return
		}
		t.Fatalf("expected no snapshot within %v, but got version %d", within, s.Version)
	case <-time.After(within):
		// good: no snapshot
	}
}

func recvView(t *testing.T, ch <-chan View, within time.Duration) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func recvResult(t *testing.T, ch <-chan Result, within time.Duration) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(within):
		t.Fatalf("timed out waiting for result")
		return Result{} // unreachable
	}
}

func newGame(t *testing.T, timerMs *int64) engine.State {
	t.Helper()
	s, err := engine.CreateGame("g1", engine.Config{
		PlayerCount:  2,
		BoardRadius:  3,
		ShieldCount:  5,
		WarriorCount: 5,
		TurnTimerMs:  timerMs,
	})
	require.NoError(t, err)
	return s
}

func startedGame(t *testing.T, timerMs *int64) engine.State {
	t.Helper()
	s := newGame(t, timerMs)
	var err error
	for _, id := range []string{"alice", "bob"} {
		s, err = engine.JoinGame(s, id, time.Now())
		require.NoError(t, err)
	}
	return s
}

type recordingPublisher struct {
	mu       sync.Mutex
	versions []int
}

func (p *recordingPublisher) Publish(_ context.Context, version int, _ engine.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.versions = append(p.versions, version)
	return nil
}

func (p *recordingPublisher) seen() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.versions...)
}

func TestLobby_SeatPlayers_StartsGame(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, newGame(t, nil))

	out := make(chan Snapshot, 4)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	first := recvSnapshot(t, out, 100*time.Millisecond)
	assert.Equal(t, 0, first.Version)
	assert.Equal(t, engine.PhaseLobby, first.State.Phase)

	reply := make(chan Result, 1)
	l.Inbox() <- Seat{PlayerID: "alice", Reply: reply}
	res := recvResult(t, reply, 100*time.Millisecond)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Snapshot.Version)
	assert.Equal(t, 1, recvSnapshot(t, out, 100*time.Millisecond).Version)

	l.Inbox() <- Seat{PlayerID: "bob", Reply: reply}
	res = recvResult(t, reply, 100*time.Millisecond)
	require.NoError(t, res.Err)
	assert.Equal(t, engine.PhaseActive, res.Snapshot.State.Phase)
	assert.Len(t, res.Snapshot.State.Pieces, 20)

	l.Inbox() <- Seat{PlayerID: "carol", Reply: reply}
	res = recvResult(t, reply, 100*time.Millisecond)
	require.ErrorIs(t, res.Err, engine.ErrGameFull)
	assert.Equal(t, 2, res.Snapshot.Version)

	l.Inbox() <- Shutdown{}
}

func TestLobby_Move_BroadcastsSnapshotAndVersionIncrements(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	init := startedGame(t, nil)
	l := NewLobby(ctx, init)

	clientOut := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "ch1", Outbox: clientOut}
	first := recvSnapshot(t, clientOut, 100*time.Millisecond)
	require.Equal(t, 0, first.Version)

	move := engine.LegalMoves(init, "alice")[0]
	reply := make(chan Result, 1)
	l.Inbox() <- FromClient{Action: move, Reply: reply}
	require.NoError(t, recvResult(t, reply, 100*time.Millisecond).Err)

	next := recvSnapshot(t, clientOut, 100*time.Millisecond)
	assert.Equal(t, 1, next.Version)
	assert.Equal(t, "bob", *next.State.CurrentPlayerID)
	pc, ok := engine.PieceAt(next.State, *move.To)
	require.True(t, ok)
	assert.Equal(t, move.PieceID, pc.ID)

	l.Inbox() <- Shutdown{}
}

func TestLobby_RejectedAction_RepliesOnlyToSender(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	init := startedGame(t, nil)
	l := NewLobby(ctx, init)

	out := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "ch1", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	reply := make(chan Result, 1)
	l.Inbox() <- FromClient{Action: engine.LegalMoves(init, "bob")[0], Reply: reply}
	res := recvResult(t, reply, 100*time.Millisecond)
	require.ErrorIs(t, res.Err, engine.ErrNotYourTurn)
	assert.Equal(t, 0, res.Snapshot.Version)

	recvNoSnapshot(t, out, 100*time.Millisecond)
}

func TestLobby_DropSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	init := startedGame(t, nil)
	l := NewLobby(ctx, init)

	clientOut := make(chan Snapshot, 1)
	l.Inbox() <- Join{ClientID: "ch1", Outbox: clientOut}

	l.Inbox() <- FromClient{Action: engine.Pass("alice")}

	reply := make(chan View, 1)
	l.Inbox() <- GetState{Reply: reply}
	view := recvView(t, reply, 100*time.Millisecond)

	assert.Equal(t, 0, view.NumClients, "slow client should be dropped")
	assert.Equal(t, 1, view.Version)
}

func TestLobby_DropSlowClient_MarksPlayerDisconnected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, startedGame(t, nil))

	watcher := make(chan Snapshot, 8)
	l.Inbox() <- Join{ClientID: "w", Outbox: watcher}
	aliceOut := make(chan Snapshot, 1) // filled by the join snapshot
	l.Inbox() <- Join{ClientID: "c1", PlayerID: "alice", Outbox: aliceOut}

	l.Inbox() <- FromClient{Action: engine.Pass("alice")}
	l.Inbox() <- Leave{ClientID: "c1"} // what the ws handler sends once its outbox closes

	reply := make(chan View, 1)
	l.Inbox() <- GetState{Reply: reply}
	view := recvView(t, reply, 100*time.Millisecond)

	assert.Equal(t, 1, view.NumClients, "only the watcher remains")
	assert.False(t, view.State.Players[0].Connected, "dropped player is marked disconnected")
	assert.True(t, view.State.Players[1].Connected)
	assert.Equal(t, 2, view.Version, "pass plus the disconnect")

	_ = recvSnapshot(t, watcher, 100*time.Millisecond) // join
	var last Snapshot
	for i := 0; i < 2; i++ {
		last = recvSnapshot(t, watcher, 100*time.Millisecond)
	}
	assert.False(t, last.State.Players[0].Connected)
}

func TestLobby_TimerFires_ForcedPassEmitsSnapshot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ms := int64(50)
	l := NewLobby(ctx, startedGame(t, &ms))

	out := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "ch1", Outbox: out}
	first := recvSnapshot(t, out, 100*time.Millisecond)
	require.Equal(t, "alice", *first.State.CurrentPlayerID)

	next := recvSnapshot(t, out, 500*time.Millisecond)
	assert.Equal(t, 1, next.Version)
	assert.Equal(t, "bob", *next.State.CurrentPlayerID)
	assert.Equal(t, 1, next.State.Players[0].MissedTurns)

	l.Inbox() <- Shutdown{}
}

func TestLobby_TimerTurn_DropsStaleFires(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ms := int64(300)
	l := NewLobby(ctx, startedGame(t, &ms))

	out := make(chan Snapshot, 4)
	l.Inbox() <- Join{ClientID: "ch1", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond) // version 0

	// BEFORE alice's timer fires, advance via a legal pass
	l.Inbox() <- FromClient{Action: engine.Pass("alice")}
	postPass := recvSnapshot(t, out, 100*time.Millisecond)
	require.Equal(t, 1, postPass.Version)

	// alice's original deadline passes without a snapshot
	recvNoSnapshot(t, out, 200*time.Millisecond)

	// bob's own timer then forces his pass
	next := recvSnapshot(t, out, 500*time.Millisecond)
	assert.Equal(t, 2, next.Version)
	assert.Equal(t, "alice", *next.State.CurrentPlayerID)
	assert.Zero(t, next.State.Players[0].MissedTurns)
	assert.Equal(t, 1, next.State.Players[1].MissedTurns)

	l.Inbox() <- Shutdown{}
}

func TestLobby_Shutdown_StopsTimer_NoFire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ms := int64(300)
	l := NewLobby(ctx, startedGame(t, &ms))

	out := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond) // drain join snapshot

	l.Inbox() <- Shutdown{}

	select {
	case <-l.Done():
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("lobby did not stop")
	}
	recvNoSnapshot(t, out, 400*time.Millisecond)
}

func TestLobby_PublishesEveryCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := &recordingPublisher{}
	l := NewLobby(ctx, newGame(t, nil), WithPublisher(pub))

	reply := make(chan Result, 1)
	for _, id := range []string{"alice", "bob"} {
		l.Inbox() <- Seat{PlayerID: id, Reply: reply}
		require.NoError(t, recvResult(t, reply, 100*time.Millisecond).Err)
	}
	l.Inbox() <- FromClient{Action: engine.Pass("bob"), Reply: reply}
	require.Error(t, recvResult(t, reply, 100*time.Millisecond).Err)

	assert.Equal(t, []int{1, 2}, pub.seen())
}

func TestLobby_ConnectionTracking(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	init := startedGame(t, nil)
	init, err := engine.SetConnected(init, "bob", false)
	require.NoError(t, err)
	l := NewLobby(ctx, init, WithVersion(7))

	watcher := make(chan Snapshot, 4)
	l.Inbox() <- Join{ClientID: "w", Outbox: watcher}
	assert.Equal(t, 7, recvSnapshot(t, watcher, 100*time.Millisecond).Version)

	bobOut := make(chan Snapshot, 4)
	l.Inbox() <- Join{ClientID: "b1", PlayerID: "bob", Outbox: bobOut}
	snap := recvSnapshot(t, watcher, 100*time.Millisecond)
	assert.Equal(t, 8, snap.Version)
	assert.True(t, snap.State.Players[1].Connected)

	l.Inbox() <- Leave{ClientID: "b1"}
	snap = recvSnapshot(t, watcher, 100*time.Millisecond)
	assert.Equal(t, 9, snap.Version)
	assert.False(t, snap.State.Players[1].Connected)

	l.Inbox() <- Shutdown{}
}

func TestLobby_RequestHelpers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, newGame(t, nil))

	res, err := l.SeatPlayer(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, res.Err)
	res, err = l.SeatPlayer(ctx, "alice")
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, engine.ErrAlreadyJoined)

	res, err = l.SeatPlayer(ctx, "bob")
	require.NoError(t, err)
	require.NoError(t, res.Err)

	res, err = l.Apply(ctx, engine.Pass("alice"))
	require.NoError(t, err)
	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.Snapshot.Version)

	view, err := l.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Version)
	assert.Equal(t, "bob", *view.State.CurrentPlayerID)

	l.Inbox() <- Shutdown{}
	<-l.Done()

	_, err = l.Apply(ctx, engine.Pass("bob"))
	assert.ErrorIs(t, err, ErrStopped)
	_, err = l.State(ctx)
	assert.ErrorIs(t, err, ErrStopped)
}
