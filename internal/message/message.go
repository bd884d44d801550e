package message

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// Kind discriminates the payload variants a message can carry.
type Kind string

const (
	KindText     Kind = "text"
	KindPhoto    Kind = "photo"
	KindVideo    Kind = "video"
	KindLocation Kind = "location"
)

var (
	// ErrEmptyPayload is returned for text that is empty after trimming.
	ErrEmptyPayload = errors.New("message: empty payload")
	// ErrUnresolvedAttachment is returned when a photo or video is built
	// from a MediaRef whose upload has not resolved yet.
	ErrUnresolvedAttachment = errors.New("message: attachment not resolved")
	// ErrInvalidCoordinate is returned for out-of-range coordinates.
	ErrInvalidCoordinate = errors.New("message: coordinate out of range")
)

// MediaRef points at binary content stored out-of-band from the message log.
// RemoteURL is populated only once the upload pipeline has resolved it;
// LocalPreview may hold an in-flight placeholder path before that.
type MediaRef struct {
	RemoteURL    string
	LocalPreview string
	Width        int
	Height       int
}

// Resolved reports whether the ref can be persisted with a message.
func (r MediaRef) Resolved() bool {
	return r.RemoteURL != ""
}

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Content is the validated tagged variant of message payloads. Construct it
// through Text, Photo, Video or Location; the zero value is not a valid
// payload.
type Content struct {
	Kind     Kind
	Text     string
	Media    *MediaRef
	Location *Coordinates
}

// Text builds a text payload. The stored text keeps its original spacing;
// only the emptiness check trims.
func Text(body string) (Content, error) {
	if strings.TrimSpace(body) == "" {
		return Content{}, ErrEmptyPayload
	}
	return Content{Kind: KindText, Text: body}, nil
}

// Photo builds a photo payload from a resolved MediaRef.
func Photo(ref MediaRef) (Content, error) {
	if !ref.Resolved() {
		return Content{}, ErrUnresolvedAttachment
	}
	return Content{Kind: KindPhoto, Media: &ref}, nil
}

// Video builds a video payload from a resolved MediaRef.
func Video(ref MediaRef) (Content, error) {
	if !ref.Resolved() {
		return Content{}, ErrUnresolvedAttachment
	}
	return Content{Kind: KindVideo, Media: &ref}, nil
}

// Location builds a location payload.
func Location(lat, lon float64) (Content, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Content{}, ErrInvalidCoordinate
	}
	return Content{Kind: KindLocation, Location: &Coordinates{Latitude: lat, Longitude: lon}}, nil
}

// Sender identifies who produced a message.
type Sender struct {
	SafeEmail   string
	DisplayName string
}

// Message is immutable once created. Ordering within a conversation is by
// SentAt with store insertion order as the tie-break.
type Message struct {
	ID      string
	Sender  Sender
	SentAt  time.Time
	Content Content
}

// Preview returns the short text used for a conversation's latest-message
// snapshot.
func (m *Message) Preview() string {
	switch m.Content.Kind {
	case KindText:
		return truncate(m.Content.Text, 100)
	case KindPhoto:
		return "Photo"
	case KindVideo:
		return "Video"
	case KindLocation:
		return "Location"
	default:
		return ""
	}
}

// truncate cuts on a rune boundary so the preview is always valid UTF-8.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
