package view

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/courierhq/courier/internal/blob"
	"github.com/courierhq/courier/internal/bus"
	"github.com/courierhq/courier/internal/message"
	"github.com/courierhq/courier/internal/registry"
	"github.com/courierhq/courier/internal/store"
	"github.com/courierhq/courier/internal/sync"
)

func setup(t *testing.T) (*sync.Engine, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	r := registry.New(db)
	h, err := r.Resolve("alice@x.com", "bob@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.EnsureConversation(h, "Bob"); err != nil {
		t.Fatal(err)
	}
	return sync.NewEngine(db, bus.New(), nil), h.ConversationID
}

func textMessage(id, body string) *message.Message {
	content, _ := message.Text(body)
	return &message.Message{
		ID:      id,
		Sender:  message.Sender{SafeEmail: "alice--x-com", DisplayName: "Alice"},
		SentAt:  time.Now(),
		Content: content,
	}
}

func waitRefresh(t *testing.T, v *ConversationView) {
	t.Helper()
	select {
	case <-v.RefreshCh():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for refresh")
	}
}

func TestViewAppliesSnapshots(t *testing.T) {
	e, convID := setup(t)
	v := Open(convID, e.Subscribe(convID), &fakeBlobs{})
	defer v.Close()

	if err := e.Send(context.Background(), convID, textMessage("m1", "hi")); err != nil {
		t.Fatal(err)
	}

	waitRefresh(t, v)
	msgs := v.Messages()
	if len(msgs) != 1 || msgs[0].ID != "m1" {
		t.Errorf("messages = %+v, want m1", msgs)
	}
}

func TestViewReplacesWholesale(t *testing.T) {
	e, convID := setup(t)
	v := Open(convID, e.Subscribe(convID), &fakeBlobs{})
	defer v.Close()

	for _, id := range []string{"m1", "m2"} {
		if err := e.Send(context.Background(), convID, textMessage(id, id)); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.After(2 * time.Second)
	for {
		waitRefresh(t, v)
		if len(v.Messages()) == 2 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("view never reached 2 messages, have %d", len(v.Messages()))
		default:
		}
	}
}

func TestAutoScrollIntent(t *testing.T) {
	e, convID := setup(t)
	v := Open(convID, e.Subscribe(convID), &fakeBlobs{})
	defer v.Close()

	if !v.ShouldAutoScroll() {
		t.Error("new view should start at the bottom")
	}
	v.SetAtBottom(false)
	if v.ShouldAutoScroll() {
		t.Error("scrolled-up view must not auto-scroll")
	}
	v.SetAtBottom(true)
	if !v.ShouldAutoScroll() {
		t.Error("back at bottom, should auto-scroll again")
	}
}

func TestAvatarURLMemoized(t *testing.T) {
	e, convID := setup(t)
	blobs := &fakeBlobs{urls: map[string]string{
		"images/bob--x-com_profile_picture.png": "https://cdn.example.com/bob.png",
	}}
	v := Open(convID, e.Subscribe(convID), blobs)
	defer v.Close()

	ctx := context.Background()
	if got := v.AvatarURL(ctx, "bob--x-com"); got != "https://cdn.example.com/bob.png" {
		t.Errorf("url = %q", got)
	}
	v.AvatarURL(ctx, "bob--x-com")
	if blobs.resolveCalls != 1 {
		t.Errorf("resolve called %d times, want 1 (memoized)", blobs.resolveCalls)
	}

	// Missing avatars memoize too.
	if got := v.AvatarURL(ctx, "carol--x-com"); got != "" {
		t.Errorf("url = %q, want empty for missing avatar", got)
	}
	v.AvatarURL(ctx, "carol--x-com")
	if blobs.resolveCalls != 2 {
		t.Errorf("resolve called %d times, want 2", blobs.resolveCalls)
	}
}

func TestCloseIdempotent(t *testing.T) {
	e, convID := setup(t)
	v := Open(convID, e.Subscribe(convID), &fakeBlobs{})
	v.Close()
	v.Close() // second call is a no-op
}

type fakeBlobs struct {
	urls         map[string]string
	resolveCalls int
}

func (f *fakeBlobs) Put(ctx context.Context, key string, data []byte) error { return nil }

func (f *fakeBlobs) ResolveURL(ctx context.Context, key string) (string, error) {
	f.resolveCalls++
	if url, ok := f.urls[key]; ok {
		return url, nil
	}
	return "", errors.New("not found")
}

var _ blob.Store = (*fakeBlobs)(nil)
