package media

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls  [][]string
	res    commandResult
	err    error
	stderr []bool
	onRun  func(args []string)
}

func (f *fakeRunner) Run(ctx context.Context, withStderr bool, name string, args ...string) (commandResult, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	f.stderr = append(f.stderr, withStderr)
	if f.onRun != nil {
		f.onRun(args)
	}
	return f.res, f.err
}

func newTestNormalizer(t *testing.T, r commandRunner) (*Normalizer, string) {
	t.Helper()
	dir := t.TempDir()
	n, err := NewNormalizer("ffmpeg", dir)
	require.Nil(t, err)
	n.runner = r
	return n, dir
}

func filesIn(t *testing.T, dir string) int {
	t.Helper()
	e, err := os.ReadDir(dir)
	require.Nil(t, err)
	return len(e)
}

func TestNewNormalizer(t *testing.T) {
	_, err := NewNormalizer("", "")
	assert.NotNil(t, err)
	_, err = NewNormalizer("ffmpeg", "")
	assert.Nil(t, err)
}

func TestNormalize_Audio(t *testing.T) {
	fr := &fakeRunner{}
	n, dir := newTestNormalizer(t, fr)

	out, err := n.Normalize(context.Background(), "in.ogg", false)

	require.Nil(t, err)
	assert.Equal(t, dir, filepath.Dir(out))
	assert.Equal(t, ".wav", filepath.Ext(out))
	require.Equal(t, 1, len(fr.calls))
	assert.Equal(t, []string{"ffmpeg", "-hide_banner", "-nostdin", "-y", "-i", "in.ogg",
		"-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le", out}, fr.calls[0])
	assert.True(t, fr.stderr[0])
	assert.Equal(t, 1, filesIn(t, dir))
}

func TestNormalize_Video(t *testing.T) {
	fr := &fakeRunner{}
	n, _ := newTestNormalizer(t, fr)

	out, err := n.Normalize(context.Background(), "in.mp4", true)

	require.Nil(t, err)
	require.Equal(t, 1, len(fr.calls))
	assert.Equal(t, []string{"ffmpeg", "-hide_banner", "-nostdin", "-y", "-i", "in.mp4",
		"-vn", "-map", "0:a:0", "-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le", out}, fr.calls[0])
}

func TestNormalize_FailExitCode(t *testing.T) {
	fr := &fakeRunner{res: commandResult{ExitCode: 1, Stderr: "Invalid data found"}, err: errors.New("exit status 1")}
	n, dir := newTestNormalizer(t, fr)
	fr.onRun = func(args []string) {
		// partial output written by the tool
		_ = os.WriteFile(args[len(args)-1], []byte("partial"), 0600)
	}

	out, err := n.Normalize(context.Background(), "in.ogg", false)

	assert.Equal(t, "", out)
	var te *ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 1, te.ExitCode)
	assert.Equal(t, "ffmpeg", te.Tool)
	assert.Contains(t, te.Error(), "Invalid data found")
	assert.False(t, errors.Is(err, ErrToolNotFound))
	assert.Equal(t, 0, filesIn(t, dir))
}

func TestNormalize_NotFound(t *testing.T) {
	fr := &fakeRunner{res: commandResult{ExitCode: -1}, err: &exec.Error{Name: "ffmpeg", Err: exec.ErrNotFound}}
	n, dir := newTestNormalizer(t, fr)

	out, err := n.Normalize(context.Background(), "in.ogg", false)

	assert.Equal(t, "", out)
	assert.True(t, errors.Is(err, ErrToolNotFound))
	assert.Equal(t, 0, filesIn(t, dir))
}

func TestNormalize_RealToolMissing(t *testing.T) {
	dir := t.TempDir()
	n, err := NewNormalizer(filepath.Join(dir, "no-such-ffmpeg"), dir)
	require.Nil(t, err)

	out, err := n.Normalize(context.Background(), "in.ogg", false)

	assert.Equal(t, "", out)
	assert.True(t, errors.Is(err, ErrToolNotFound))
	assert.Equal(t, 0, filesIn(t, dir))
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		err    error
		code   int
		want   float64
	}{
		{name: "OK", stdout: "125.400000\n", want: 125.4},
		{name: "OK int", stdout: "60", want: 60},
		{name: "N/A", stdout: "N/A\n", want: 0},
		{name: "empty", stdout: "", want: 0},
		{name: "negative", stdout: "-1", want: 0},
		{name: "nan", stdout: "nan\n", want: 0},
		{name: "NaN", stdout: "NaN", want: 0},
		{name: "inf", stdout: "inf", want: 0},
		{name: "+Inf", stdout: "+Inf\n", want: 0},
		{name: "exit code", stdout: "", code: 1, err: errors.New("exit status 1"), want: 0},
		{name: "not found", code: -1, err: &exec.Error{Name: "ffprobe", Err: exec.ErrNotFound}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := &fakeRunner{res: commandResult{Stdout: tt.stdout, ExitCode: tt.code}, err: tt.err}
			p, err := NewProber("ffprobe")
			require.Nil(t, err)
			p.runner = fr

			got := p.Duration(context.Background(), "a.wav")

			assert.InDelta(t, tt.want, got, 0.0001)
			require.Equal(t, 1, len(fr.calls))
			assert.Equal(t, []string{"ffprobe", "-v", "quiet", "-show_entries", "format=duration",
				"-of", "csv=p=0", "a.wav"}, fr.calls[0])
			assert.False(t, fr.stderr[0])
		})
	}
}

func TestNewProber(t *testing.T) {
	_, err := NewProber("")
	assert.NotNil(t, err)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "abc", tail("abc", 5))
	assert.Equal(t, "bc", tail("abc", 2))
}
