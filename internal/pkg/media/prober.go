package media

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
)

// Prober reads media duration with ffprobe
type Prober struct {
	ffprobe string
	runner  commandRunner
}

// NewProber creates ffprobe based prober
func NewProber(ffprobe string) (*Prober, error) {
	if ffprobe == "" {
		return nil, fmt.Errorf("no ffprobe")
	}
	return &Prober{ffprobe: ffprobe, runner: &execRunner{}}, nil
}

// Duration returns seconds, 0 if unknown
func (p *Prober) Duration(ctx context.Context, path string) float64 {
	res, err := p.runner.Run(ctx, false, p.ffprobe,
		"-v", "quiet", "-show_entries", "format=duration", "-of", "csv=p=0", path)
	if err != nil {
		goapp.Log.Warn().Err(toolErr("ffprobe", res, err)).Str("file", path).Msg("can't probe")
		return 0
	}
	v := strings.TrimSpace(res.Stdout)
	d, err := strconv.ParseFloat(v, 64)
	if err != nil || d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		goapp.Log.Warn().Str("value", goapp.Sanitize(v)).Str("file", path).Msg("no duration")
		return 0
	}
	return d
}
