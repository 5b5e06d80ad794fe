package sessions

import (
	"context"
	"io"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vancomm/minesweeper/internal/database"
	"github.com/vancomm/minesweeper/internal/mines"
	"github.com/vancomm/minesweeper/internal/repository"
)

var testLimits = Limits{MaxSize: 20, MaxMineRatio: 0.9}

func setupTestService(t *testing.T) *Service {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "mines.db"))
	require.NoError(t, err)
	repo := repository.NewSQLite(db)
	t.Cleanup(func() { repo.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	s := NewService(log, repo, testLimits, rand.New(rand.NewPCG(1, 2)))
	clock := time.UnixMilli(1_000).UTC()
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestLimitsValidate(t *testing.T) {
	for _, tc := range []struct {
		size, mineCount int
		ok              bool
	}{
		{1, 0, true},
		{20, 10, true},
		{0, 0, false},
		{21, 1, false},
		{3, 9, false},
		{3, -1, false},
		{10, 91, false},
		{10, 90, true},
	} {
		err := testLimits.Validate(tc.size, tc.mineCount)
		if tc.ok {
			assert.NoError(t, err, "size=%d mine_count=%d", tc.size, tc.mineCount)
		} else {
			assert.ErrorIs(t, err, ErrBadParams, "size=%d mine_count=%d", tc.size, tc.mineCount)
		}
	}
}

func TestCreateAndFetch(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	session, err := s.Create(ctx, nil, 5, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, session.GameSessionID)
	assert.Nil(t, session.EndedAt)
	assert.Equal(t, mines.Playing, session.Game.State)
	assert.False(t, session.Game.Mined)

	fetched, err := s.Fetch(ctx, session.GameSessionID)
	require.NoError(t, err)
	assert.Equal(t, session, fetched)

	_, err = s.Create(ctx, nil, 0, 0)
	assert.ErrorIs(t, err, ErrBadParams)
}

func TestApplyReveal(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	session, err := s.Create(ctx, nil, 6, 5)
	require.NoError(t, err)

	updated, err := s.Apply(ctx, session.GameSessionID, RevealAt(0, 0))
	require.NoError(t, err)
	assert.True(t, updated.Game.Mined)
	cell, err := updated.Game.Cell(1)
	require.NoError(t, err)
	assert.True(t, cell.Revealed)
	assert.False(t, cell.Mined)

	fetched, err := s.Fetch(ctx, session.GameSessionID)
	require.NoError(t, err)
	assert.Equal(t, updated.Game, fetched.Game)
}

func TestApplyLogsShortMinePlacement(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	s.log = log

	// more mines than cells; Create would reject it, so store it directly
	require.NoError(t, s.repo.CreateGameSession(ctx, &GameSession{
		GameSessionID: "crowded",
		Game:          mines.Create(2, 5),
		StartedAt:     s.now(),
	}))

	updated, err := s.Apply(ctx, "crowded", RevealCell(1))
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Game.PlacedMines())

	var entry *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "not enough unrevealed cells for all mines" {
			entry = e
		}
	}
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, 5, entry.Data["requested"])
	assert.Equal(t, 3, entry.Data["placed"])
	assert.Equal(t, "crowded", entry.Data["session"])

	hook.Reset()
	_, err = s.Apply(ctx, "crowded", FlagCell(2))
	require.NoError(t, err)
	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, "not enough unrevealed cells for all mines", e.Message)
	}
}

func TestApplyOutOfRangeStoresNothing(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	session, err := s.Create(ctx, nil, 4, 2)
	require.NoError(t, err)

	_, err = s.Apply(ctx, session.GameSessionID, RevealCell(1), RevealCell(17))
	assert.ErrorIs(t, err, mines.ErrOutOfRange)

	_, err = s.Apply(ctx, session.GameSessionID, FlagAt(4, 0))
	assert.ErrorIs(t, err, mines.ErrOutOfRange)

	fetched, err := s.Fetch(ctx, session.GameSessionID)
	require.NoError(t, err)
	assert.False(t, fetched.Game.Mined)
}

func TestApplyMissingSession(t *testing.T) {
	s := setupTestService(t)

	_, err := s.Apply(context.Background(), "missing", RevealCell(1))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestApplyStampsEndedAt(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	session, err := s.Create(ctx, nil, 3, 0)
	require.NoError(t, err)

	updated, err := s.Apply(ctx, session.GameSessionID, RevealCell(5))
	require.NoError(t, err)
	assert.Equal(t, mines.Won, updated.Game.State)
	require.NotNil(t, updated.EndedAt)
	assert.True(t, updated.EndedAt.After(updated.StartedAt))
	endedAt := *updated.EndedAt

	again, err := s.Apply(ctx, session.GameSessionID, RevealCell(1), Command{Action: Forfeit})
	require.NoError(t, err)
	assert.Equal(t, mines.Won, again.Game.State)
	assert.Equal(t, endedAt, *again.EndedAt)
}

func TestApplyForfeit(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	session, err := s.Create(ctx, nil, 5, 4)
	require.NoError(t, err)

	updated, err := s.Apply(ctx, session.GameSessionID, Command{Action: Forfeit})
	require.NoError(t, err)
	assert.Equal(t, mines.Lost, updated.Game.State)
	assert.NotNil(t, updated.EndedAt)
	for _, c := range updated.Game.Cells {
		assert.True(t, c.Revealed)
	}
}

func TestApplyStopsAtTerminalState(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	session, err := s.Create(ctx, nil, 3, 0)
	require.NoError(t, err)

	// the first reveal wins, the forfeit after it must not run
	updated, err := s.Apply(ctx, session.GameSessionID, RevealCell(1), Command{Action: Forfeit})
	require.NoError(t, err)
	assert.Equal(t, mines.Won, updated.Game.State)
}

func TestApplyGetBroadcastsWithoutStoring(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	session, err := s.Create(ctx, nil, 3, 1)
	require.NoError(t, err)

	updates, unsub := s.Subscribe(ctx, session.GameSessionID)
	defer unsub()

	got, err := s.Apply(ctx, session.GameSessionID, Command{Action: Get})
	require.NoError(t, err)
	assert.Equal(t, session, got)

	select {
	case update := <-updates:
		assert.Equal(t, session.Game, update.Game)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	session, err := s.Create(ctx, nil, 4, 3)
	require.NoError(t, err)

	updates, unsub := s.Subscribe(ctx, session.GameSessionID)
	defer unsub()

	applied, err := s.Apply(ctx, session.GameSessionID, FlagCell(2))
	require.NoError(t, err)

	select {
	case got := <-updates:
		assert.Equal(t, applied.Game, got.Game)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	session, err := s.Create(ctx, nil, 4, 3)
	require.NoError(t, err)

	updates, unsub := s.Subscribe(ctx, session.GameSessionID)
	defer unsub()

	for range subscriberBuffer + 1 {
		_, err = s.Apply(ctx, session.GameSessionID, FlagCell(2))
		require.NoError(t, err)
	}

	for range subscriberBuffer {
		<-updates
	}
	_, open := <-updates
	assert.False(t, open)
}

func TestSubscribeClosedByContext(t *testing.T) {
	s := setupTestService(t)
	ctx, cancel := context.WithCancel(context.Background())

	updates, _ := s.Subscribe(ctx, "any")
	cancel()

	select {
	case _, open := <-updates:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
}

func TestConcurrentApply(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	session, err := s.Create(ctx, nil, 10, 10)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Apply(ctx, session.GameSessionID, FlagCell(mines.CellID(i+1)))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	fetched, err := s.Fetch(ctx, session.GameSessionID)
	require.NoError(t, err)
	assert.Equal(t, 10, fetched.Game.FlagCount())
	assert.Empty(t, s.locks)
}

func TestBroadcastWhileUnsubscribing(t *testing.T) {
	s := setupTestService(t)
	session := &GameSession{GameSessionID: "race", Game: mines.Create(2, 1)}

	for range 2_000 {
		ctx, cancel := context.WithCancel(context.Background())
		unsubs := make([]func(), 8)
		for i := range unsubs {
			_, unsubs[i] = s.Subscribe(ctx, session.GameSessionID)
		}

		var wg sync.WaitGroup
		wg.Add(1 + len(unsubs))
		go func() {
			defer wg.Done()
			assert.NotPanics(t, func() { s.broadcast(session) })
		}()
		for _, unsub := range unsubs {
			go func() {
				defer wg.Done()
				unsub()
			}()
		}
		wg.Wait()
		cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Empty(t, s.subs)
}
