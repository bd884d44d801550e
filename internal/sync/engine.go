// Package sync implements the message delivery engine: writes go through
// Send, and every subscriber of a conversation observes the same ordered
// log via full-snapshot notifications.
package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/courierhq/courier/internal/bus"
	"github.com/courierhq/courier/internal/message"
	"github.com/courierhq/courier/internal/store"
	"go.uber.org/zap"
)

// ErrWriteFailed wraps storage or transport failures during Send. Callers
// must not assume the message was delivered and must not retry
// automatically; a retry is a human decision.
var ErrWriteFailed = errors.New("sync: write failed")

// Snapshot is the full ordered message log of one conversation at some
// point in time. Notifications always carry whole snapshots, never diffs;
// conversation histories here are small enough that simplicity wins.
type Snapshot []message.Message

// Engine coordinates sends and subscriptions over the shared store.
type Engine struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
}

// NewEngine creates an engine. A nil logger disables logging.
func NewEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{db: db, bus: b, logger: logger}
}

// Send appends msg to the conversation's log and notifies subscribers.
// The append is transactional: either the message and the latest-message
// snapshot both land, or nothing is visible to other participants.
func (e *Engine) Send(ctx context.Context, conversationID string, msg *message.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.db.AppendMessage(conversationID, msg); err != nil {
		if errors.Is(err, store.ErrConversationNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	e.logger.Debug("message appended",
		zap.String("conversation_id", conversationID),
		zap.String("msg_id", msg.ID))

	e.bus.Publish(bus.Event{
		Kind:           bus.KindMessageAppended,
		ConversationID: conversationID,
		Timestamp:      time.Now(),
		Payload:        msg.ID,
	})
	return nil
}

// Subscription delivers snapshots of one conversation on C. The channel is
// coalescing: if the consumer lags, intermediate snapshots are replaced by
// newer ones rather than queued, so the consumer always catches up to the
// latest state in one receive. The consumer picks its own execution context
// by choosing where to range over C.
type Subscription struct {
	C <-chan Snapshot

	ch   chan Snapshot
	stop func()
	once stdsync.Once
}

// Unsubscribe stops delivery and releases the subscription. Idempotent.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.stop)
}

// Subscribe registers a listener for the conversation. It returns
// immediately; the initial snapshot (and every later change) is delivered
// asynchronously. Empty snapshots are suppressed so a subscriber is never
// told about a conversation that has no messages yet.
func (e *Engine) Subscribe(conversationID string) *Subscription {
	events, unsub := e.bus.Subscribe("message.", 64)
	done := make(chan struct{})
	ch := make(chan Snapshot, 1)

	sub := &Subscription{C: ch, ch: ch}
	sub.stop = func() {
		unsub()
		close(done)
	}

	go func() {
		e.deliver(conversationID, ch)
		for {
			select {
			case evt := <-events:
				if evt.ConversationID != conversationID {
					continue
				}
				e.deliver(conversationID, ch)
			case <-done:
				return
			}
		}
	}()

	return sub
}

// deliver loads the current snapshot and places it on the subscription
// channel, replacing any undelivered older snapshot. Only the subscription
// goroutine sends on ch, so the drain-then-send pair cannot block.
func (e *Engine) deliver(conversationID string, ch chan Snapshot) {
	msgs, err := e.db.ListMessages(conversationID)
	if err != nil {
		if !errors.Is(err, store.ErrConversationNotFound) {
			e.logger.Error("failed to load snapshot",
				zap.Error(err), zap.String("conversation_id", conversationID))
		}
		return
	}
	if len(msgs) == 0 {
		return
	}
	select {
	case <-ch:
	default:
	}
	ch <- msgs
}
