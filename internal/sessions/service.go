package sessions

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper/internal/mines"
	"github.com/vancomm/minesweeper/internal/repository"
)

type GameSession = repository.GameSession

var ErrBadParams = errors.New("invalid game parameters")

// Limits bound the boards players may create.
type Limits struct {
	MaxSize      int
	MaxMineRatio float64
}

func (l Limits) Validate(size, mineCount int) error {
	if size < 1 || size > l.MaxSize {
		return fmt.Errorf("%w: size must be in 1..%d", ErrBadParams, l.MaxSize)
	}
	cells := size * size
	if mineCount < 0 || mineCount >= cells {
		return fmt.Errorf("%w: mine_count must be in 0..%d", ErrBadParams, cells-1)
	}
	if float64(mineCount) > l.MaxMineRatio*float64(cells) {
		return fmt.Errorf("%w: too many mines for a %dx%d board", ErrBadParams, size, size)
	}
	return nil
}

// subscriberBuffer is how many updates a subscriber may lag behind before
// it is dropped.
const subscriberBuffer = 8

type subscriber struct {
	ch        chan *GameSession
	closeOnce sync.Once
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

type sessionLock struct {
	sync.Mutex
	refs int
}

// Service runs moves against stored game sessions and fans the results
// out to subscribers.
type Service struct {
	log    logrus.FieldLogger
	repo   repository.Repository
	limits Limits
	now    func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.Mutex
	locks map[string]*sessionLock
	subs  map[string]map[*subscriber]struct{}
}

func NewService(
	log logrus.FieldLogger,
	repo repository.Repository,
	limits Limits,
	rnd *rand.Rand,
) *Service {
	return &Service{
		log:    log,
		repo:   repo,
		limits: limits,
		now:    func() time.Time { return time.Now().UTC() },
		rnd:    rnd,
		locks:  make(map[string]*sessionLock),
		subs:   make(map[string]map[*subscriber]struct{}),
	}
}

func (s *Service) Limits() Limits {
	return s.limits
}

func (s *Service) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

func (s *Service) Create(
	ctx context.Context, playerID *int64, size, mineCount int,
) (*GameSession, error) {
	if err := s.limits.Validate(size, mineCount); err != nil {
		return nil, err
	}
	session := &GameSession{
		GameSessionID: uuid.NewString(),
		PlayerID:      playerID,
		Game:          mines.Create(size, mineCount),
		StartedAt:     s.now(),
	}
	if err := s.repo.CreateGameSession(ctx, session); err != nil {
		return nil, fmt.Errorf("unable to store game session: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"session":    session.GameSessionID,
		"size":       size,
		"mine_count": mineCount,
	}).Debug("created game session")
	return session, nil
}

func (s *Service) Fetch(ctx context.Context, id string) (*GameSession, error) {
	return s.repo.FetchGameSession(ctx, id)
}

func (s *Service) run(g mines.Game, cmd Command) (mines.Game, error) {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()

	if cmd.Action == Forfeit {
		return g.Forfeit(s.rnd), nil
	}
	if cmd.Action == Get {
		return g, nil
	}
	id, err := cmd.cellID(g)
	if err != nil {
		return g, err
	}
	if cmd.Action == Flag {
		return g.ToggleFlagged(id, s.rnd)
	}
	return g.Reveal(id, s.rnd)
}

// Apply runs cmds in order against the stored session and broadcasts the
// result. Commands after the game ends are skipped. When any command fails
// nothing is stored or broadcast.
func (s *Service) Apply(
	ctx context.Context, id string, cmds ...Command,
) (*GameSession, error) {
	unlock := s.lock(id)
	defer unlock()

	session, err := s.repo.FetchGameSession(ctx, id)
	if err != nil {
		return nil, err
	}

	g := session.Game
	moved := false
	for _, cmd := range cmds {
		if g.Over() {
			break
		}
		if g, err = s.run(g, cmd); err != nil {
			return nil, err
		}
		moved = moved || cmd.Action != Get
	}
	if len(cmds) == 0 {
		return session, nil
	}

	if moved {
		if placed := g.PlacedMines(); g.Mined && !session.Game.Mined && placed < g.MineCount {
			s.log.WithFields(logrus.Fields{
				"session":   id,
				"requested": g.MineCount,
				"placed":    placed,
			}).Debug("not enough unrevealed cells for all mines")
		}
		wasOver := session.Game.Over()
		session.Game = g
		if g.Over() && !wasOver {
			endedAt := s.now()
			session.EndedAt = &endedAt
			s.log.WithFields(logrus.Fields{
				"session": id,
				"state":   g.State,
			}).Info("game over")
		}
		if err := s.repo.UpdateGameSession(ctx, session); err != nil {
			return nil, fmt.Errorf("unable to store game session: %w", err)
		}
	}

	s.broadcast(session)
	return session, nil
}

// broadcast sends under s.mu so that no channel is closed between picking a
// subscriber and sending to it. Sends never block.
func (s *Service) broadcast(session *GameSession) {
	id := session.GameSessionID

	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for sub := range s.subs[id] {
		cp := *session
		select {
		case sub.ch <- &cp:
		default:
			delete(s.subs[id], sub)
			sub.close()
			dropped++
		}
	}
	if len(s.subs[id]) == 0 {
		delete(s.subs, id)
	}
	if dropped > 0 {
		s.log.WithField("session", id).Debugf("dropped %d slow subscribers", dropped)
	}
}

// Subscribe registers a listener for updates of session id. The channel is
// closed when ctx is done, the returned func is called, or the listener
// falls behind.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan *GameSession, func()) {
	sub := &subscriber{ch: make(chan *GameSession, subscriberBuffer)}

	s.mu.Lock()
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	set[sub] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(s.subs, id)
				}
			}
			sub.close()
			s.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub
}
