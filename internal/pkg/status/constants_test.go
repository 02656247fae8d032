package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		name string
		st   Status
		want string
	}{
		{st: Processing, want: "processing"},
		{st: Completed, want: "completed"},
		{st: Failed, want: "failed"},
		{st: NoSpeech, want: "no_speech"},
		{st: 0, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.st.String(); got != tt.want {
				t.Errorf("Status.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFrom(t *testing.T) {
	tests := []struct {
		name string
		args string
		want Status
	}{
		{args: "completed", want: Completed},
		{args: "olia", want: 0},
		{args: "processing", want: Processing},
		{args: "failed", want: Failed},
		{args: "no_speech", want: NoSpeech},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := From(tt.args); got != tt.want {
				t.Errorf("From() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanMove(t *testing.T) {
	assert.True(t, CanMove(Processing, Completed))
	assert.True(t, CanMove(Processing, Failed))
	assert.True(t, CanMove(Processing, NoSpeech))
	assert.False(t, CanMove(Processing, Processing))
	assert.False(t, CanMove(Completed, Processing))
	assert.False(t, CanMove(Failed, Completed))
	assert.False(t, CanMove(NoSpeech, Failed))
	assert.False(t, CanMove(0, Failed))
}
