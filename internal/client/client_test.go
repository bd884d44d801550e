package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/courierhq/courier/internal/blob"
	"github.com/courierhq/courier/internal/bus"
	"github.com/courierhq/courier/internal/chat"
	"github.com/courierhq/courier/internal/identity"
	"github.com/courierhq/courier/internal/lock"
	"github.com/courierhq/courier/internal/paths"
	"github.com/courierhq/courier/internal/registry"
	"github.com/courierhq/courier/internal/store"
	intsync "github.com/courierhq/courier/internal/sync"
	"github.com/courierhq/courier/internal/upload"
)

// Assembles the full component graph by hand, the way the fx providers do,
// and walks one send/open cycle through it.
func TestClientLifecycle(t *testing.T) {
	dataDir := t.TempDir()
	if err := paths.EnsureDirs(dataDir); err != nil {
		t.Fatal(err)
	}

	lk, err := lock.Acquire(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = lk.Release() }()

	db, err := store.Open(paths.DBPath(dataDir))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	blobs, err := blob.NewFS(paths.MediaDir(dataDir))
	if err != nil {
		t.Fatal(err)
	}

	b := bus.New()
	svc := chat.NewService(
		identity.Static{Email: "alice@x.com"},
		db,
		registry.New(db),
		intsync.NewEngine(db, b, nil),
		upload.NewUploader(blobs, b, nil),
		blobs,
		b,
		nil,
	)

	if _, err := svc.SendText(context.Background(), "bob@x.com", "hello"); err != nil {
		t.Fatal(err)
	}

	v, err := svc.OpenConversation("bob@x.com")
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	select {
	case <-v.RefreshCh():
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh after open")
	}
	if msgs := v.Messages(); len(msgs) != 1 || msgs[0].Content.Text != "hello" {
		t.Errorf("view messages = %+v", msgs)
	}

	// The data dir holds exactly the layout the providers expect.
	if _, err := os.Stat(filepath.Join(dataDir, "courier.db")); err != nil {
		t.Errorf("db not at expected path: %v", err)
	}
}
