package message

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"plain text", "hi", nil},
		{"keeps inner spacing", "hello  world", nil},
		{"empty", "", ErrEmptyPayload},
		{"whitespace only", "   \t\n", ErrEmptyPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Text(tt.body)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, KindText, c.Kind)
			assert.Equal(t, tt.body, c.Text)
		})
	}
}

func TestPhotoRequiresResolvedRef(t *testing.T) {
	_, err := Photo(MediaRef{LocalPreview: "/tmp/preview.png"})
	assert.ErrorIs(t, err, ErrUnresolvedAttachment)

	c, err := Photo(MediaRef{RemoteURL: "https://media.example.com/p.png", Width: 640, Height: 480})
	require.NoError(t, err)
	assert.Equal(t, KindPhoto, c.Kind)
	require.NotNil(t, c.Media)
	assert.Equal(t, "https://media.example.com/p.png", c.Media.RemoteURL)
}

func TestVideoRequiresResolvedRef(t *testing.T) {
	_, err := Video(MediaRef{})
	assert.ErrorIs(t, err, ErrUnresolvedAttachment)

	c, err := Video(MediaRef{RemoteURL: "https://media.example.com/v.mov"})
	require.NoError(t, err)
	assert.Equal(t, KindVideo, c.Kind)
}

func TestLocationBounds(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		wantErr  bool
	}{
		{"origin", 0, 0, false},
		{"north pole", 90.0, 0, false},
		{"south pole", -90.0, 0, false},
		{"date line", 0, 180.0, false},
		{"latitude just over", 90.0001, 0, true},
		{"latitude just under", -90.0001, 0, true},
		{"longitude over", 0, 180.0001, true},
		{"longitude under", 0, -180.0001, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Location(tt.lat, tt.lon)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCoordinate)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, c.Location)
			assert.Equal(t, tt.lat, c.Location.Latitude)
			assert.Equal(t, tt.lon, c.Location.Longitude)
		})
	}
}

func TestPreview(t *testing.T) {
	text, _ := Text("hello there")
	photo, _ := Photo(MediaRef{RemoteURL: "u"})
	video, _ := Video(MediaRef{RemoteURL: "u"})
	loc, _ := Location(35.6, 139.7)

	assert.Equal(t, "hello there", (&Message{Content: text}).Preview())
	assert.Equal(t, "Photo", (&Message{Content: photo}).Preview())
	assert.Equal(t, "Video", (&Message{Content: video}).Preview())
	assert.Equal(t, "Location", (&Message{Content: loc}).Preview())

	long, _ := Text(strings.Repeat("a", 300))
	assert.Len(t, (&Message{Content: long}).Preview(), 100)
}

func TestPreviewTruncatesOnRuneBoundary(t *testing.T) {
	// 99 ASCII bytes followed by a multi-byte rune straddling the cut.
	body := strings.Repeat("a", 99) + "日本語"
	long, _ := Text(body)
	preview := (&Message{Content: long}).Preview()
	assert.True(t, utf8.ValidString(preview), "preview holds invalid UTF-8: %q", preview)
	assert.Equal(t, strings.Repeat("a", 99), preview)
	assert.LessOrEqual(t, len(preview), 100)
}
