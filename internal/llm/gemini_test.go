package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneytalks-bot/moneytalks/internal/common"
)

func TestAudioMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
		wantErr  bool
	}{
		{name: "bare voice note", filename: "voice", want: "audio/ogg"},
		{name: "ogg", filename: "note.ogg", want: "audio/ogg"},
		{name: "oga", filename: "note.oga", want: "audio/ogg"},
		{name: "opus", filename: "note.opus", want: "audio/ogg"},
		{name: "uppercase extension", filename: "NOTE.OGG", want: "audio/ogg"},
		{name: "mp3", filename: "memo.mp3", want: "audio/mpeg"},
		{name: "wav", filename: "memo.wav", want: "audio/wav"},
		{name: "m4a", filename: "memo.m4a", want: "audio/mp4"},
		{name: "flac", filename: "memo.flac", want: "audio/flac"},
		{name: "text file", filename: "notes.txt", wantErr: true},
		{name: "video", filename: "clip.avi", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, err := audioMIMEType(tt.filename)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrUnsupportedAudio)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, mime)
		})
	}
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := newGeminiClient(context.Background(), Config{Provider: ProviderGemini}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}
