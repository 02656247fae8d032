package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupportAudioExt(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{ext: ".wav", want: true},
		{ext: ".mp3", want: true},
		{ext: ".MP3", want: true},
		{ext: ".ogg", want: true},
		{ext: ".flac", want: true},
		{ext: ".aac", want: true},
		{ext: ".m4a", want: true},
		{ext: ".mp4", want: true},
		{ext: ".mkv", want: true},
		{ext: ".webm", want: true},
		{ext: ".zip", want: false},
		{ext: ".pdf", want: false},
		{ext: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := SupportAudioExt(tt.ext); got != tt.want {
				t.Errorf("SupportAudioExt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsVideoExt(t *testing.T) {
	assert.True(t, IsVideoExt(".mp4"))
	assert.True(t, IsVideoExt(".MOV"))
	assert.True(t, IsVideoExt(".avi"))
	assert.False(t, IsVideoExt(".mp3"))
	assert.False(t, IsVideoExt(""))
}

func TestResultFileName(t *testing.T) {
	tests := []struct {
		args string
		want string
	}{
		{args: "lecture.mp3", want: "lecture_result.txt"},
		{args: "/tmp/x/lecture.ogg", want: "lecture_result.txt"},
		{args: "voice", want: "voice_result.txt"},
		{args: "", want: "audio_result.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			assert.Equal(t, tt.want, ResultFileName(tt.args))
		})
	}
}

func TestRemoveFiles(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "a.wav")
	require.Nil(t, os.WriteFile(f, []byte("olia"), 0600))

	RemoveFiles(f, "", filepath.Join(dir, "missing.wav"))

	_, err := os.Stat(f)
	assert.True(t, os.IsNotExist(err))
}
