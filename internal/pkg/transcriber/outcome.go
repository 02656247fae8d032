package transcriber

import (
	"errors"
	"fmt"
	"net/http"
)

// State of one transcription exchange
type State int

const (
	// Submitting - audio upload in progress
	Submitting State = iota + 1
	// Polling - waiting for the transcript
	Polling
	// Done - transcript received
	Done
	// Failed - terminal error
	Failed
	// TimedOut - transcript not ready in max wait time
	TimedOut
)

var stateName = map[State]string{Submitting: "submitting", Polling: "polling", Done: "done",
	Failed: "failed", TimedOut: "timed_out"}

func (s State) String() string {
	return stateName[s]
}

// Outcome is a classified HTTP response of the provider
type Outcome int

const (
	// Unexpected - any unknown code
	Unexpected Outcome = iota
	// Accepted - job created
	Accepted
	// Ready - transcript available
	Ready
	// NotReady - job still running
	NotReady
	// AuthFailure - bad or missing credential
	AuthFailure
	// RateLimited - provider quota
	RateLimited
	// ServerError - provider failure
	ServerError
)

var outcomeName = map[Outcome]string{Unexpected: "unexpected", Accepted: "accepted", Ready: "ready",
	NotReady: "not_ready", AuthFailure: "auth_failure", RateLimited: "rate_limited", ServerError: "server_error"}

func (o Outcome) String() string {
	return outcomeName[o]
}

// Classified reports if outcome requires operator attention
func (o Outcome) Classified() bool {
	return o == AuthFailure || o == RateLimited || o == ServerError
}

// Classify maps HTTP code of a step to outcome
func Classify(st State, code int) Outcome {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return AuthFailure
	case http.StatusTooManyRequests:
		return RateLimited
	case http.StatusInternalServerError:
		return ServerError
	}
	switch st {
	case Submitting:
		if code == http.StatusOK || code == http.StatusCreated {
			return Accepted
		}
	case Polling:
		if code == http.StatusOK {
			return Ready
		}
		if code == http.StatusNotFound {
			return NotReady
		}
	}
	return Unexpected
}

// Next returns state after outcome of a step
func Next(st State, o Outcome) State {
	switch {
	case st == Submitting && o == Accepted:
		return Polling
	case st == Polling && o == Ready:
		return Done
	case st == Polling && o == NotReady:
		return Polling
	}
	return Failed
}

var (
	// ErrNoJobID - submit response has no id
	ErrNoJobID = errors.New("could not obtain job id")
	// ErrTimeout - no transcript in max wait time
	ErrTimeout = errors.New("timed out waiting for result")
	// ErrNoAPIKey - api_key setting is empty
	ErrNoAPIKey = errors.New("no api key")
)

// APIError is a non successful provider response
type APIError struct {
	State   State
	Outcome Outcome
	Code    int
	Body    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d, %s", e.State, e.Outcome, e.Code, e.Body)
}

// IsClassified checks whether err is an auth, rate limit or server provider error
func IsClassified(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) && ae.Outcome.Classified() {
		return ae, true
	}
	return nil, false
}
