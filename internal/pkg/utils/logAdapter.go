package utils

import (
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/rs/zerolog"
	"github.com/vgarvardt/gue/v5/adapter"
)

type eventFunc func() *zerolog.Event

// GueLogAdapter routes gue pool logs to the app logger
type GueLogAdapter struct {
	fields []adapter.Field
	debug  eventFunc
	info   eventFunc
	err    eventFunc
}

// NewGueLoggerAdapter creates adapter, gue info messages are logged as debug
func NewGueLoggerAdapter() *GueLogAdapter {
	return &GueLogAdapter{
		debug: func() *zerolog.Event { return goapp.Log.Debug() },
		info:  func() *zerolog.Event { return goapp.Log.Debug() },
		err:   func() *zerolog.Event { return goapp.Log.Error() },
	}
}

// Debug implements adapter.Logger
func (l *GueLogAdapter) Debug(msg string, fields ...adapter.Field) {
	l.do(l.debug(), fields...).Msg(msg)
}

// Info implements adapter.Logger
func (l *GueLogAdapter) Info(msg string, fields ...adapter.Field) {
	l.do(l.info(), fields...).Msg(msg)
}

// Error implements adapter.Logger
func (l *GueLogAdapter) Error(msg string, fields ...adapter.Field) {
	l.do(l.err(), fields...).Str(zerolog.ErrorFieldName, msg).Send()
}

// With implements adapter.Logger
func (l *GueLogAdapter) With(fields ...adapter.Field) adapter.Logger {
	res := *l
	res.fields = append(append(make([]adapter.Field, 0, len(l.fields)+len(fields)), l.fields...), fields...)
	return &res
}

func (l *GueLogAdapter) do(le *zerolog.Event, fields ...adapter.Field) *zerolog.Event {
	le = le.Str("component", "gue")
	for _, f := range l.fields {
		le = le.Interface(f.Key, f.Value)
	}
	for _, f := range fields {
		le = le.Interface(f.Key, f.Value)
	}
	return le
}
