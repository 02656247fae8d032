package media

import (
	"context"
	"fmt"
	"os"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/utils"
)

// Normalizer converts media to mono 16kHz wav
type Normalizer struct {
	ffmpeg string
	tmpDir string
	runner commandRunner
}

// NewNormalizer creates ffmpeg based normalizer
func NewNormalizer(ffmpeg, tmpDir string) (*Normalizer, error) {
	if ffmpeg == "" {
		return nil, fmt.Errorf("no ffmpeg")
	}
	goapp.Log.Info().Str("ffmpeg", ffmpeg).Str("tmp", tmpDir).Msg("normalizer")
	return &Normalizer{ffmpeg: ffmpeg, tmpDir: tmpDir, runner: &execRunner{}}, nil
}

// Normalize runs one ffmpeg invocation and returns path of the new wav file.
// Caller owns the returned file.
func (n *Normalizer) Normalize(ctx context.Context, input string, isVideo bool) (string, error) {
	f, err := os.CreateTemp(n.tmpDir, "norm-*.wav")
	if err != nil {
		return "", fmt.Errorf("can't create temp file: %w", err)
	}
	out := f.Name()
	_ = f.Close()

	defer goapp.Estimate("ffmpeg")()
	res, err := n.runner.Run(ctx, true, n.ffmpeg, ffmpegArgs(input, out, isVideo)...)
	if err != nil {
		utils.RemoveFiles(out)
		err = toolErr("ffmpeg", res, err)
		goapp.Log.Warn().Err(err).Str("file", input).Bool("video", isVideo).Msg("convert failed")
		return "", err
	}
	return out, nil
}

func ffmpegArgs(input, output string, isVideo bool) []string {
	res := []string{"-hide_banner", "-nostdin", "-y", "-i", input}
	if isVideo {
		res = append(res, "-vn", "-map", "0:a:0")
	}
	return append(res, "-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le", output)
}
