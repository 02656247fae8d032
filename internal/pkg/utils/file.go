package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
)

var (
	audioExt = map[string]bool{".mp3": true, ".wav": true, ".ogg": true, ".flac": true, ".aac": true, ".m4a": true}
	videoExt = map[string]bool{".mp4": true, ".avi": true, ".mov": true, ".mkv": true, ".webm": true}
)

// RemoveFiles deletes files ignoring empty names, logs failures
func RemoveFiles(names ...string) {
	for _, n := range names {
		if n == "" {
			continue
		}
		if err := os.Remove(n); err != nil && !os.IsNotExist(err) {
			goapp.Log.Warn().Err(err).Str("file", n).Msg("can't remove")
		}
	}
}

// Ext returns lower cased file extension
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

//SupportAudioExt checks if media ext is accepted as a document
func SupportAudioExt(ext string) bool {
	ext = strings.ToLower(ext)
	return audioExt[ext] || videoExt[ext]
}

// IsVideoExt checks if ext belongs to a video container
func IsVideoExt(ext string) bool {
	return videoExt[strings.ToLower(ext)]
}

// ResultFileName makes a name for the transcript document
func ResultFileName(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "audio"
	}
	return base + "_result.txt"
}
