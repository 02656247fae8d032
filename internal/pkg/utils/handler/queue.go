package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vgarvardt/gue/v5"
)

const (
	resultOK    = "ok"
	resultRetry = "retry"
	resultDrop  = "drop"
)

var msgMetric = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "scribe_queue_messages_total",
	Help: "Handled queue messages by result",
}, []string{"queue", "result"})

func init() {
	prometheus.MustRegister(msgMetric)
}

// FailureFunc decides if a failed message must be retried and after what delay
type FailureFunc[TM any] func(ctx context.Context, m *TM, err error, j *gue.Job) (bool, time.Duration, error)

// Opts configures a queue handler
type Opts[TM any] struct {
	backoff        gue.Backoff
	timeout        time.Duration
	maxAttempts    int32
	failureHandler FailureFunc[TM]
}

// Create wraps a typed message handler into gue work func
func Create[TM any, SD any](data *SD, hf func(context.Context, *TM, *SD) error, opts *Opts[TM]) gue.WorkFunc {
	if opts == nil {
		goapp.Log.Panic().Msg("no opts provided")
	}
	return func(ctx context.Context, j *gue.Job) error {
		goapp.Log.Info().Str("queue", j.Queue).Str("type", j.Type).Int32("errCount", j.ErrorCount).Msg("got msg")

		var m TM
		if err := json.Unmarshal(j.Args, &m); err != nil {
			goapp.Log.Error().Err(err).Str("queue", j.Queue).Str("args", goapp.Sanitize(string(j.Args))).Msg("drop broken msg")
			msgMetric.WithLabelValues(j.Queue, resultDrop).Inc()
			return nil
		}
		wrkCtx, cf := context.WithTimeout(ctx, opts.timeout)
		defer cf()
		err := hf(wrkCtx, &m, data)
		if err == nil {
			msgMetric.WithLabelValues(j.Queue, resultOK).Inc()
			return nil
		}
		goapp.Log.Warn().Err(err).Str("queue", j.Queue).Str("type", j.Type).Msg("fail")
		if j.ErrorCount+1 >= opts.maxAttempts {
			goapp.Log.Error().Err(err).Str("queue", j.Queue).Int32("errCount", j.ErrorCount).Msg("attempts exhausted")
			msgMetric.WithLabelValues(j.Queue, resultDrop).Inc()
			return nil
		}
		retry, delay, errHandler := opts.failureHandler(ctx, &m, err, j)
		if errHandler != nil {
			goapp.Log.Error().Err(errHandler).Str("queue", j.Queue).Str("type", j.Type).Msg("failure handler")
		}
		if !retry {
			goapp.Log.Warn().Str("queue", j.Queue).Str("type", j.Type).Int32("errCount", j.ErrorCount).Msg("no retry")
			msgMetric.WithLabelValues(j.Queue, resultDrop).Inc()
			return nil
		}
		if delay == 0 {
			delay = opts.backoff(int(j.ErrorCount + 1))
		}
		goapp.Log.Info().Str("queue", j.Queue).Str("type", j.Type).Dur("after", delay).Msg("retry after")
		msgMetric.WithLabelValues(j.Queue, resultRetry).Inc()
		return gue.ErrRescheduleJobIn(delay, err.Error())
	}
}

// DefaultOpts returns 15 min timeout, 5 attempts and jittered linear backoff
func DefaultOpts[TM any]() *Opts[TM] {
	return &Opts[TM]{timeout: time.Minute * 15, maxAttempts: 5, failureHandler: retryAll[TM], backoff: DefaultBackoff()}
}

func DefaultBackoff() gue.Backoff {
	return func(retries int) time.Duration {
		return fullJitter(time.Duration(retries) * time.Second * 10)
	}
}

func NoBackoff() gue.Backoff {
	return func(retries int) time.Duration {
		return 0
	}
}

func DefaultBackoffOrTest(test bool) gue.Backoff {
	if test {
		return NoBackoff()
	}
	return DefaultBackoff()
}

func (o *Opts[TM]) WithFailure(f FailureFunc[TM]) *Opts[TM] {
	o.failureHandler = f
	return o
}

func (o *Opts[TM]) WithTimeout(timeout time.Duration) *Opts[TM] {
	o.timeout = timeout
	return o
}

func (o *Opts[TM]) WithBackoff(b gue.Backoff) *Opts[TM] {
	o.backoff = b
	return o
}

// WithMaxAttempts sets how many times a message is tried, at least once
func (o *Opts[TM]) WithMaxAttempts(n int) *Opts[TM] {
	if n < 1 {
		n = 1
	}
	o.maxAttempts = int32(n)
	return o
}

func (o *Opts[TM]) String() string {
	return fmt.Sprintf("timeout=%s, attempts=%d", o.timeout, o.maxAttempts)
}

// fullJitter return randomized duration in interval [0, t)
func fullJitter(t time.Duration) time.Duration {
	return time.Duration(float64(t) * rand.Float64())
}

func retryAll[TM any](_ context.Context, _ *TM, _ error, _ *gue.Job) (bool, time.Duration, error) {
	return true, 0, nil
}
