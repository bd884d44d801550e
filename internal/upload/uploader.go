// Package upload implements the attachment pipeline: media bytes go to the
// content store first, and only a resolved download URL may be attached to
// an outgoing message.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/courierhq/courier/internal/blob"
	"github.com/courierhq/courier/internal/bus"
	"github.com/courierhq/courier/internal/message"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FailureReason distinguishes the phase an upload failed in.
type FailureReason string

const (
	// ReasonPutFailed means the byte write to the content store failed.
	ReasonPutFailed FailureReason = "put_failed"
	// ReasonResolutionFailed means the bytes were stored but the download
	// URL could not be resolved. The stored object is orphaned; there is
	// no automatic cleanup.
	ReasonResolutionFailed FailureReason = "resolution_failed"
)

// Error reports a failed upload with the phase it failed in.
type Error struct {
	Reason FailureReason
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("upload failed (%s): %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Uploader writes attachments to the content store and resolves their
// download URLs.
type Uploader struct {
	blobs  blob.Store
	bus    *bus.Bus
	logger *zap.Logger
}

// NewUploader creates an uploader. A nil logger disables logging.
func NewUploader(blobs blob.Store, b *bus.Bus, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{blobs: blobs, bus: b, logger: logger}
}

// Upload stores data under a kind-namespaced key derived from suggestedName
// and returns a resolved MediaRef. kind must be KindPhoto or KindVideo.
// The put and the URL resolution are sequential and both must succeed; a
// transient put failure is retried once, everything else propagates
// immediately. Cancelling ctx before resolution aborts with the context
// error and yields no MediaRef.
func (u *Uploader) Upload(ctx context.Context, data []byte, suggestedName string, kind message.Kind) (*message.MediaRef, error) {
	key, err := MessageKey(suggestedName, kind)
	if err != nil {
		return nil, err
	}
	return u.uploadKey(ctx, data, key)
}

// UploadProfilePicture stores a profile image under the shared images
// namespace, where avatar resolution looks it up.
func (u *Uploader) UploadProfilePicture(ctx context.Context, data []byte, fileName string) (*message.MediaRef, error) {
	return u.uploadKey(ctx, data, "images/"+SanitizeFilename(fileName))
}

func (u *Uploader) uploadKey(ctx context.Context, data []byte, key string) (*message.MediaRef, error) {
	if err := u.put(ctx, key, data); err != nil {
		u.publishFailed(key, ReasonPutFailed, err)
		return nil, &Error{Reason: ReasonPutFailed, Err: err}
	}

	url, err := u.blobs.ResolveURL(ctx, key)
	if err != nil {
		// The bytes are stored but unreachable by URL. Reported as a
		// failure; a garbage-collection pass for such orphans is out of
		// scope.
		u.publishFailed(key, ReasonResolutionFailed, err)
		return nil, &Error{Reason: ReasonResolutionFailed, Err: err}
	}

	u.logger.Info("attachment uploaded", zap.String("key", key), zap.String("url", url))
	u.bus.Publish(bus.Event{
		Kind:      bus.KindUploadResolved,
		Timestamp: time.Now(),
		Payload:   map[string]string{"key": key, "url": url},
	})
	return &message.MediaRef{RemoteURL: url}, nil
}

// put performs the store write with a single retry on transient failure.
func (u *Uploader) put(ctx context.Context, key string, data []byte) error {
	err := u.blobs.Put(ctx, key, data)
	if err == nil {
		return nil
	}
	if !errors.Is(err, blob.ErrTransient) || ctx.Err() != nil {
		return err
	}
	u.logger.Warn("transient put failure, retrying once", zap.String("key", key), zap.Error(err))
	return u.blobs.Put(ctx, key, data)
}

func (u *Uploader) publishFailed(key string, reason FailureReason, err error) {
	u.logger.Error("upload failed",
		zap.String("key", key), zap.String("reason", string(reason)), zap.Error(err))
	u.bus.Publish(bus.Event{
		Kind:      bus.KindUploadFailed,
		Timestamp: time.Now(),
		Payload:   map[string]string{"key": key, "reason": string(reason), "error": err.Error()},
	})
}

// Handle tracks an in-flight asynchronous upload. Wait for Done, then read
// Ref/Err exactly once; Cancel may be called at any time and is idempotent.
type Handle struct {
	ID   string
	Done <-chan struct{}

	cancel context.CancelFunc
	ref    *message.MediaRef
	err    error
}

// Ref returns the resolved MediaRef after Done is closed, nil on failure.
func (h *Handle) Ref() *message.MediaRef { return h.ref }

// Err returns the upload error after Done is closed, nil on success.
func (h *Handle) Err() error { return h.err }

// Cancel aborts the upload if it has not resolved yet.
func (h *Handle) Cancel() { h.cancel() }

// Enqueue starts an upload in the background and returns a cancellable
// handle for it.
func (u *Uploader) Enqueue(ctx context.Context, data []byte, suggestedName string, kind message.Kind) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	h := &Handle{
		ID:     uuid.NewString(),
		Done:   done,
		cancel: cancel,
	}
	go func() {
		defer close(done)
		defer cancel()
		h.ref, h.err = u.Upload(ctx, data, suggestedName, kind)
	}()
	return h
}

// SanitizeFilename replaces whitespace runs so the name is usable as a
// storage key segment.
func SanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '-'
		}
		return r
	}, name)
}

// MessageKey derives the content-store key for a message attachment,
// namespaced by kind the way the store layout expects.
func MessageKey(suggestedName string, kind message.Kind) (string, error) {
	name := SanitizeFilename(suggestedName)
	switch kind {
	case message.KindPhoto:
		return "message_images/photo_message_" + name, nil
	case message.KindVideo:
		return "message_videos/video_message_" + name, nil
	default:
		return "", fmt.Errorf("upload: kind %q carries no attachment", kind)
	}
}
