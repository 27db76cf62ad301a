package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-engine/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-engine/internal/entity"
	"github.com/rocketscienceinc/tictactoe-engine/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-engine/internal/pkg"
)

type SessionUseCase interface {
	StartSession(ctx context.Context) (*entity.Session, error)
	GetSession(ctx context.Context, id string) (*entity.Session, error)
	PlaceMark(ctx context.Context, id string, position int) (*entity.Session, error)
	Reset(ctx context.Context, id string) (*entity.Session, error)
	EndSession(ctx context.Context, id string) error
}

type sessionRepo interface {
	CreateOrUpdate(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	DeleteByID(ctx context.Context, id string) error
}

// SessionManager drives one engine per session. The engine itself is
// single-threaded, so every load-mutate-save on an id runs under that id's lock.
type SessionManager struct {
	logger      *slog.Logger
	sessionRepo sessionRepo
	locks       *keyedMutex
	now         func() time.Time
	newID       func() (string, error)
}

func NewSessionManager(logger *slog.Logger, sessionRepo sessionRepo) *SessionManager {
	return &SessionManager{
		logger:      logger.With("component", "session-manager"),
		sessionRepo: sessionRepo,
		locks:       newKeyedMutex(),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       pkg.GenerateSessionID,
	}
}

func (that *SessionManager) StartSession(ctx context.Context) (*entity.Session, error) {
	id, err := that.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	session := entity.NewSession(id)
	session.UpdatedAt = that.now()

	if err = that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	metrics.SessionsStartedTotal.Inc()
	that.logger.Info("Session started", "sessionID", id)

	return session, nil
}

func (that *SessionManager) GetSession(ctx context.Context, id string) (*entity.Session, error) {
	if id == "" {
		return nil, apperror.ErrEmptySessionID
	}

	session, err := that.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// PlaceMark applies a move. An ignored move is not an error: the unchanged
// session is returned and nothing is written back.
func (that *SessionManager) PlaceMark(ctx context.Context, id string, position int) (*entity.Session, error) {
	log := that.logger.With("method", "PlaceMark", "sessionID", id)

	return that.mutate(ctx, id, func(game *entity.Game) bool {
		before := game.State().Outcome

		state, err := game.TryPlaceMark(position)
		metrics.ObserveMark(before, state, err)

		if err != nil {
			log.Debug("Mark ignored", "position", position, "reason", err)
			return false
		}

		if state.Outcome.IsFinished() {
			log.Info("Game finished", "status", state.Outcome.Status, "winner", state.Outcome.Winner)
		}

		return true
	})
}

func (that *SessionManager) Reset(ctx context.Context, id string) (*entity.Session, error) {
	return that.mutate(ctx, id, func(game *entity.Game) bool {
		game.Reset()
		metrics.ResetsTotal.Inc()

		return true
	})
}

func (that *SessionManager) EndSession(ctx context.Context, id string) error {
	if id == "" {
		return apperror.ErrEmptySessionID
	}

	unlock := that.locks.Lock(id)
	defer unlock()

	if err := that.sessionRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	that.logger.Info("Session ended", "sessionID", id)

	return nil
}

// mutate loads the session, applies fn and saves when fn reports a change.
func (that *SessionManager) mutate(ctx context.Context, id string, fn func(game *entity.Game) bool) (*entity.Session, error) {
	if id == "" {
		return nil, apperror.ErrEmptySessionID
	}

	unlock := that.locks.Lock(id)
	defer unlock()

	session, err := that.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if !fn(session.Game) {
		return session, nil
	}

	session.UpdatedAt = that.now()

	if err = that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	return session, nil
}

// keyedMutex hands out one mutex per key and forgets it when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (that *keyedMutex) Lock(key string) func() {
	that.mu.Lock()
	lock, ok := that.locks[key]
	if !ok {
		lock = &refMutex{}
		that.locks[key] = lock
	}
	lock.refs++
	that.mu.Unlock()

	lock.Lock()

	return func() {
		lock.Unlock()

		that.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(that.locks, key)
		}
		that.mu.Unlock()
	}
}
