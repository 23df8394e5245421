package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/pizzaplanet/pkg/chat"
	"go.uber.org/zap"
)

// Handler runs one chat turn.
type Handler interface {
	Handle(ctx context.Context, message string, cctx chat.Context) (chat.Result, error)
}

// Messages
type chatTurn struct {
	ctx     context.Context
	message string
	cctx    chat.Context
}

type chatReply struct {
	result chat.Result
	err    error
}

// userActor owns one user's mailbox, so that user's turns run one at a
// time in arrival order.
type userActor struct {
	userID  string
	handler Handler
	idle    time.Duration
	onIdle  func(userID string, pid *actor.PID)
	logger  *zap.Logger
}

func (a *userActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		if a.idle > 0 {
			ctx.SetReceiveTimeout(a.idle)
		}
		a.logger.Debug("Session started", zap.String("user_id", a.userID))

	case *chatTurn:
		res, err := a.handler.Handle(msg.ctx, msg.message, msg.cctx)
		ctx.Respond(&chatReply{result: res, err: err})

	case *actor.ReceiveTimeout:
		a.onIdle(a.userID, ctx.Self())
		ctx.Stop(ctx.Self())

	case *actor.Stopped:
		a.logger.Debug("Session stopped", zap.String("user_id", a.userID))
	}
}

// Manager spawns a session actor per user on first contact and retires it
// after the idle period.
type Manager struct {
	system  *actor.ActorSystem
	handler Handler
	timeout time.Duration
	idle    time.Duration
	logger  *zap.Logger

	mu   sync.Mutex
	pids map[string]*actor.PID
	seq  int
}

func NewManager(handler Handler, timeout, idle time.Duration, logger *zap.Logger) *Manager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Manager{
		system:  actor.NewActorSystem(),
		handler: handler,
		timeout: timeout,
		idle:    idle,
		logger:  logger,
		pids:    make(map[string]*actor.PID),
	}
}

// Handle sends the turn to the user's session and waits for the reply.
func (m *Manager) Handle(ctx context.Context, message string, cctx chat.Context) (chat.Result, error) {
	turn := &chatTurn{ctx: ctx, message: message, cctx: cctx}
	for attempt := 0; attempt < 2; attempt++ {
		pid, err := m.session(cctx.UserID)
		if err != nil {
			return chat.Result{}, err
		}

		out, err := m.system.Root.RequestFuture(pid, turn, m.timeout).Result()
		if errors.Is(err, actor.ErrDeadLetter) {
			// The session retired between lookup and send.
			m.forget(cctx.UserID, pid)
			continue
		}
		if err != nil {
			return chat.Result{}, fmt.Errorf("failed to get chat reply for %s: %w", cctx.UserID, err)
		}
		reply, ok := out.(*chatReply)
		if !ok {
			return chat.Result{}, fmt.Errorf("unexpected session reply %T", out)
		}
		return reply.result, reply.err
	}
	return chat.Result{}, fmt.Errorf("session for %s unavailable", cctx.UserID)
}

// Active is the number of live sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pids)
}

// Close stops every session.
func (m *Manager) Close() {
	m.mu.Lock()
	pids := m.pids
	m.pids = make(map[string]*actor.PID)
	m.mu.Unlock()

	for _, pid := range pids {
		m.system.Root.Stop(pid)
	}
	m.logger.Info("Sessions stopped", zap.Int("count", len(pids)))
}

func (m *Manager) session(userID string) (*actor.PID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pid, ok := m.pids[userID]; ok {
		return pid, nil
	}
	props := actor.PropsFromProducer(func() actor.Actor {
		return &userActor{
			userID:  userID,
			handler: m.handler,
			idle:    m.idle,
			onIdle:  m.forget,
			logger:  m.logger,
		}
	})
	m.seq++
	pid, err := m.system.Root.SpawnNamed(props, fmt.Sprintf("session-%d", m.seq))
	if err != nil {
		return nil, fmt.Errorf("failed to spawn session actor: %w", err)
	}
	m.pids[userID] = pid
	return pid, nil
}

func (m *Manager) forget(userID string, pid *actor.PID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.pids[userID]; ok && cur.Id == pid.Id {
		delete(m.pids, userID)
	}
}
