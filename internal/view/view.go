// Package view holds the client-side state of one open conversation. It
// consumes whole snapshots from the delivery engine, caches them behind a
// lock, and signals the presentation layer to refresh.
package view

import (
	"context"
	stdsync "sync"

	"github.com/courierhq/courier/internal/blob"
	"github.com/courierhq/courier/internal/message"
	"github.com/courierhq/courier/internal/sync"
)

// ConversationView caches the latest snapshot of one conversation and
// signals refreshes. Every incoming snapshot replaces the cached log
// wholesale; the view never patches individual entries.
type ConversationView struct {
	mu stdsync.RWMutex

	ConversationID string

	messages []message.Message
	atBottom bool
	avatars  map[string]string

	blobs     blob.Store
	sub       *sync.Subscription
	refreshCh chan struct{}
	done      chan struct{}
	closeOnce stdsync.Once
}

// Open attaches a view to the conversation's subscription and starts
// consuming snapshots. Close must be called when the conversation is left.
func Open(conversationID string, sub *sync.Subscription, blobs blob.Store) *ConversationView {
	v := &ConversationView{
		ConversationID: conversationID,
		atBottom:       true,
		avatars:        make(map[string]string),
		blobs:          blobs,
		sub:            sub,
		refreshCh:      make(chan struct{}, 1),
		done:           make(chan struct{}),
	}
	go v.consume()
	return v
}

func (v *ConversationView) consume() {
	for {
		select {
		case snap := <-v.sub.C:
			v.apply(snap)
		case <-v.done:
			return
		}
	}
}

func (v *ConversationView) apply(snap sync.Snapshot) {
	v.mu.Lock()
	v.messages = snap
	v.mu.Unlock()
	v.signalRefresh()
}

// RefreshCh returns the channel that signals the view changed.
func (v *ConversationView) RefreshCh() <-chan struct{} {
	return v.refreshCh
}

func (v *ConversationView) signalRefresh() {
	select {
	case v.refreshCh <- struct{}{}:
	default:
	}
}

// Messages returns the currently cached ordered log.
func (v *ConversationView) Messages() []message.Message {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.messages
}

// SetAtBottom records whether the user is scrolled to the newest message.
func (v *ConversationView) SetAtBottom(atBottom bool) {
	v.mu.Lock()
	v.atBottom = atBottom
	v.mu.Unlock()
}

// ShouldAutoScroll reports whether a refresh should jump to the newest
// message. Only true while the user was already at the bottom, so reading
// older history is never interrupted.
func (v *ConversationView) ShouldAutoScroll() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.atBottom
}

// AvatarURL resolves the profile picture URL for a participant, memoizing
// per safe email. A participant without a stored picture memoizes to the
// empty string so the lookup is not repeated.
func (v *ConversationView) AvatarURL(ctx context.Context, safeEmail string) string {
	v.mu.RLock()
	url, ok := v.avatars[safeEmail]
	v.mu.RUnlock()
	if ok {
		return url
	}

	resolved, err := v.blobs.ResolveURL(ctx, "images/"+safeEmail+"_profile_picture.png")
	if err != nil {
		resolved = ""
	}
	v.mu.Lock()
	v.avatars[safeEmail] = resolved
	v.mu.Unlock()
	return resolved
}

// Close stops snapshot consumption and releases the subscription.
// Idempotent.
func (v *ConversationView) Close() {
	v.closeOnce.Do(func() {
		close(v.done)
		v.sub.Unsubscribe()
	})
}
