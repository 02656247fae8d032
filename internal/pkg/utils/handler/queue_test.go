package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vgarvardt/gue/v5"
)

type testMsg struct {
	ID string `json:"id"`
}

type testData struct {
	calls int
	got   string
	err   error
	dl    bool
}

func handle(ctx context.Context, m *testMsg, d *testData) error {
	d.calls++
	d.got = m.ID
	_, d.dl = ctx.Deadline()
	return d.err
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name      string
		args      string
		errCount  int32
		hErr      error
		opts      *Opts[testMsg]
		wantCalls int
		wantErr   bool
	}{
		{name: "OK", args: `{"id":"1"}`, opts: DefaultOpts[testMsg](), wantCalls: 1},
		{name: "broken msg", args: `{"id":`, opts: DefaultOpts[testMsg](), wantCalls: 0},
		{name: "retry", args: `{"id":"1"}`, hErr: errors.New("olia"), opts: DefaultOpts[testMsg]().WithBackoff(NoBackoff()),
			wantCalls: 1, wantErr: true},
		{name: "exhausted", args: `{"id":"1"}`, errCount: 4, hErr: errors.New("olia"), opts: DefaultOpts[testMsg](),
			wantCalls: 1},
		{name: "single attempt", args: `{"id":"1"}`, hErr: errors.New("olia"), opts: DefaultOpts[testMsg]().WithMaxAttempts(0),
			wantCalls: 1},
		{name: "no retry", args: `{"id":"1"}`, hErr: errors.New("olia"),
			opts: DefaultOpts[testMsg]().WithFailure(func(context.Context, *testMsg, error, *gue.Job) (bool, time.Duration, error) {
				return false, 0, nil
			}), wantCalls: 1},
		{name: "handler delay", args: `{"id":"1"}`, hErr: errors.New("olia"),
			opts: DefaultOpts[testMsg]().WithFailure(func(context.Context, *testMsg, error, *gue.Job) (bool, time.Duration, error) {
				return true, time.Second, errors.New("handler")
			}), wantCalls: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &testData{err: tt.hErr}
			f := Create(d, handle, tt.opts)
			err := f(context.Background(), &gue.Job{Queue: "q", Type: "t", ErrorCount: tt.errCount, Args: []byte(tt.args)})
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
			assert.Equal(t, tt.wantCalls, d.calls)
			if tt.wantCalls > 0 {
				assert.Equal(t, "1", d.got)
				assert.True(t, d.dl)
			}
		})
	}
}

func TestCreate_PanicsNoOpts(t *testing.T) {
	assert.Panics(t, func() { Create[testMsg, testData](&testData{}, handle, nil) })
}

func TestDefaultBackoffOrTest(t *testing.T) {
	assert.Equal(t, time.Duration(0), DefaultBackoffOrTest(true)(5))
	for i := 0; i < 20; i++ {
		v := DefaultBackoffOrTest(false)(2)
		assert.True(t, v >= 0 && v < 20*time.Second, v)
	}
}

func TestOpts_String(t *testing.T) {
	assert.Equal(t, "timeout=1m0s, attempts=3", DefaultOpts[testMsg]().WithTimeout(time.Minute).WithMaxAttempts(3).String())
}
