// Package chat is the orchestration layer: it ties the identity provider,
// the conversation registry, the upload pipeline and the delivery engine
// into the operations a client calls.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/courierhq/courier/internal/blob"
	"github.com/courierhq/courier/internal/bus"
	"github.com/courierhq/courier/internal/identity"
	"github.com/courierhq/courier/internal/message"
	"github.com/courierhq/courier/internal/registry"
	"github.com/courierhq/courier/internal/store"
	"github.com/courierhq/courier/internal/sync"
	"github.com/courierhq/courier/internal/upload"
	"github.com/courierhq/courier/internal/view"
	"go.uber.org/zap"
)

// Service exposes the client-facing conversation operations.
type Service struct {
	ids      identity.Provider
	db       *store.DB
	registry *registry.Registry
	engine   *sync.Engine
	uploader *upload.Uploader
	blobs    blob.Store
	bus      *bus.Bus
	logger   *zap.Logger
}

// NewService wires the orchestration layer. A nil logger disables logging.
func NewService(ids identity.Provider, db *store.DB, reg *registry.Registry, engine *sync.Engine, uploader *upload.Uploader, blobs blob.Store, b *bus.Bus, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ids:      ids,
		db:       db,
		registry: reg,
		engine:   engine,
		uploader: uploader,
		blobs:    blobs,
		bus:      b,
		logger:   logger,
	}
}

// SendText sends a text message to the other user, creating the
// conversation on first contact.
func (s *Service) SendText(ctx context.Context, otherEmail, body string) (*message.Message, error) {
	content, err := message.Text(body)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, otherEmail, content)
}

// SendPhoto uploads the image bytes and sends a photo message carrying the
// resolved URL. The upload must fully resolve before anything is sent.
func (s *Service) SendPhoto(ctx context.Context, otherEmail string, data []byte, fileName string) (*message.Message, error) {
	if _, err := s.currentEmail(); err != nil {
		return nil, err
	}
	ref, err := s.uploader.Upload(ctx, data, fileName, message.KindPhoto)
	if err != nil {
		return nil, err
	}
	content, err := message.Photo(*ref)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, otherEmail, content)
}

// SendVideo uploads the video bytes and sends a video message carrying the
// resolved URL.
func (s *Service) SendVideo(ctx context.Context, otherEmail string, data []byte, fileName string) (*message.Message, error) {
	if _, err := s.currentEmail(); err != nil {
		return nil, err
	}
	ref, err := s.uploader.Upload(ctx, data, fileName, message.KindVideo)
	if err != nil {
		return nil, err
	}
	content, err := message.Video(*ref)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, otherEmail, content)
}

// SendLocation sends a location message.
func (s *Service) SendLocation(ctx context.Context, otherEmail string, latitude, longitude float64) (*message.Message, error) {
	content, err := message.Location(latitude, longitude)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, otherEmail, content)
}

// currentEmail asks the identity provider for the signed-in user. Every
// operation starts here; nothing is built or uploaded without an identity.
func (s *Service) currentEmail() (string, error) {
	email, err := s.ids.CurrentEmail()
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	return email, nil
}

func (s *Service) send(ctx context.Context, otherEmail string, content message.Content) (*message.Message, error) {
	current, err := s.currentEmail()
	if err != nil {
		return nil, err
	}
	if err := identity.ValidateEmail(otherEmail); err != nil {
		return nil, err
	}

	h, err := s.registry.Resolve(current, otherEmail)
	if err != nil {
		return nil, err
	}
	if err := s.registry.EnsureConversation(h, displayName(otherEmail)); err != nil {
		return nil, err
	}

	now := time.Now()
	msg := &message.Message{
		ID: message.NewID(otherEmail, h.SelfEmail, now),
		Sender: message.Sender{
			SafeEmail:   h.SelfEmail,
			DisplayName: displayName(current),
		},
		SentAt:  now,
		Content: content,
	}
	if err := s.engine.Send(ctx, h.ConversationID, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// OpenConversation resolves the conversation with the other user, marks it
// read, and returns a live view over its snapshot stream. The caller owns
// the view and must Close it.
func (s *Service) OpenConversation(otherEmail string) (*view.ConversationView, error) {
	current, err := s.currentEmail()
	if err != nil {
		return nil, err
	}
	h, err := s.registry.Resolve(current, otherEmail)
	if err != nil {
		return nil, err
	}

	if h.State == registry.StateActive {
		if err := s.db.MarkConversationRead(h.ConversationID); err != nil {
			s.logger.Warn("mark read failed",
				zap.Error(err), zap.String("conversation_id", h.ConversationID))
		} else {
			s.bus.Publish(bus.Event{
				Kind:           bus.KindConversationRead,
				ConversationID: h.ConversationID,
				Timestamp:      time.Now(),
			})
		}
	}

	return view.Open(h.ConversationID, s.engine.Subscribe(h.ConversationID), s.blobs), nil
}

// ListConversations returns the current user's conversations, newest
// activity first.
func (s *Service) ListConversations(limit, offset int) ([]store.Conversation, error) {
	current, err := s.currentEmail()
	if err != nil {
		return nil, err
	}
	return s.db.ListConversations(identity.SafeEmail(current), limit, offset)
}

// Search runs a full-text query over message bodies. conversationID narrows
// the search to one conversation; empty searches everything.
func (s *Service) Search(query, conversationID string, limit int) ([]store.SearchResult, error) {
	return s.db.SearchMessages(query, conversationID, limit)
}

// SetProfilePicture uploads the current user's avatar to the location the
// view layer resolves it from.
func (s *Service) SetProfilePicture(ctx context.Context, data []byte) (*message.MediaRef, error) {
	current, err := s.currentEmail()
	if err != nil {
		return nil, err
	}
	name := identity.SafeEmail(current) + "_profile_picture.png"
	return s.uploader.UploadProfilePicture(ctx, data, name)
}

// displayName derives the human-readable name shown for an address when no
// richer profile exists: the local part of the email.
func displayName(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
