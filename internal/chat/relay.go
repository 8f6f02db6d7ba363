package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/suPer8Hu/codesensei/internal/ai"
	"go.uber.org/zap"
)

type RelayState int

const (
	StateIdle RelayState = iota
	StateAwaitingUpstream
	StateStreaming
	StateFinalizing
	StateClosed
	StateErrored
)

func (s RelayState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingUpstream:
		return "awaiting_upstream"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

const errStreamTimedOut = "stream timed out"

// EventSink receives relay output for one client connection. A write error
// means the client is gone; the relay stops writing but keeps accumulating.
type EventSink interface {
	Chunk(content string) error
	Error(message string) error
	Done() error
	Heartbeat() error
}

type RelayConfig struct {
	// Timeout bounds the whole upstream stream. Zero means 5 minutes.
	Timeout time.Duration
	// Heartbeat is the keep-alive interval. Zero disables it.
	Heartbeat time.Duration
	// PersistTimeout bounds each message write, detached from the request context.
	PersistTimeout time.Duration
}

// Relay forwards upstream fragments to one client in arrival order and
// records the accumulated reply once the upstream is exhausted.
type Relay struct {
	store MessageStore
	log   *zap.Logger
	cfg   RelayConfig
}

func NewRelay(store MessageStore, log *zap.Logger, cfg RelayConfig) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 10 * time.Second
	}
	return &Relay{store: store, log: log, cfg: cfg}
}

type StreamResult struct {
	State RelayState
	// Content is everything accumulated, including a partial reply cut short by an error.
	Content        string
	ModelMessageID string
	Err            error
	ClientGone     bool
}

// Turn is a validated chat request ready to be sent upstream.
type Turn struct {
	UserID uint64
	// SessionID is empty for an ephemeral chat; nothing is persisted then.
	SessionID   string
	UserContent string
	Provider    ai.ProviderID
	Model       string
	Client      ai.Client
	Request     ai.ChatRequest
}

func (r *Relay) Run(ctx context.Context, turn *Turn, sink EventSink) *StreamResult {
	res := &StreamResult{State: StateIdle}
	log := r.log.With(zap.String("session_id", turn.SessionID), zap.String("provider", string(turn.Provider)))

	res.State = StateAwaitingUpstream
	r.persistUserTurn(ctx, turn, log)

	streamCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	chunks, errs := turn.Client.StreamChat(streamCtx, turn.Request)

	var heartbeat <-chan time.Time
	if r.cfg.Heartbeat > 0 {
		t := time.NewTicker(r.cfg.Heartbeat)
		defer t.Stop()
		heartbeat = t.C
	}

	var acc strings.Builder
	clientDone := ctx.Done()

loop:
	for {
		select {
		case c, ok := <-chunks:
			if !ok {
				break loop
			}
			res.State = StateStreaming
			if c == "" {
				continue
			}
			acc.WriteString(c)
			if !res.ClientGone {
				if err := sink.Chunk(c); err != nil {
					res.ClientGone = true
				}
			}
		case <-heartbeat:
			if !res.ClientGone {
				if err := sink.Heartbeat(); err != nil {
					res.ClientGone = true
				}
			}
		case <-clientDone:
			// upstream sees the same cancellation; keep draining until it closes
			res.ClientGone = true
			clientDone = nil
		}
	}

	upErr := <-errs
	if ctx.Err() != nil {
		res.ClientGone = true
	}
	if upErr == nil && streamCtx.Err() != nil && ctx.Err() == nil {
		upErr = streamCtx.Err()
	}
	if upErr != nil && errors.Is(streamCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		upErr = errors.New(errStreamTimedOut)
	}

	res.State = StateFinalizing
	res.Content = acc.String()
	res.Err = upErr

	if turn.SessionID != "" && res.Content != "" {
		if m, err := r.append(ctx, turn.SessionID, RoleModel, res.Content); err != nil {
			log.Error("persist model message failed", zap.Int("content_len", len(res.Content)), zap.Error(err))
		} else {
			res.ModelMessageID = m.ID
		}
	}

	if upErr != nil {
		res.State = StateErrored
		if !res.ClientGone {
			log.Warn("chat stream failed", zap.Error(upErr))
			_ = sink.Error(upErr.Error())
		}
	} else if !res.ClientGone {
		_ = sink.Done()
	}

	res.State = StateClosed
	return res
}

// persistUserTurn records the user's message. Failure is logged and the chat goes on.
func (r *Relay) persistUserTurn(ctx context.Context, turn *Turn, log *zap.Logger) {
	if turn.SessionID == "" || turn.UserContent == "" {
		return
	}
	if _, err := r.append(ctx, turn.SessionID, RoleUser, turn.UserContent); err != nil {
		log.Error("persist user message failed", zap.Error(err))
	}
}

func (r *Relay) append(ctx context.Context, sessionID string, role Role, content string) (*Message, error) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.PersistTimeout)
	defer cancel()
	return r.store.Append(pctx, sessionID, role, content)
}
