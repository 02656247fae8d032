package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/transcriber/api"
	"github.com/cenkalti/backoff/v4"
)

// SettingsProvider returns persisted settings
type SettingsProvider interface {
	GetSetting(ctx context.Context, key string) (string, error)
}

// Progress is reported on every not ready poll
type Progress struct {
	JobID   string
	Attempt int
	Elapsed time.Duration
}

// ProgressFunc receives poll progress
type ProgressFunc func(context.Context, Progress)

// Result of a finished transcription, empty Text means no speech
type Result struct {
	JobID string
	Text  string
	State State
}

// Client comunicates with transcription service
type Client struct {
	httpclient    *http.Client
	url           string
	settings      SettingsProvider
	uploadTimeout time.Duration
	timeout       time.Duration
	pollInterval  time.Duration
	maxWait       time.Duration
	sleep         func(context.Context, time.Duration) error
}

// NewClient creates a transcriber client
func NewClient(urlStr string, settings SettingsProvider, pollInterval, maxWait time.Duration) (*Client, error) {
	if urlStr == "" {
		return nil, fmt.Errorf("no url")
	}
	if !strings.HasPrefix(urlStr, "http") {
		return nil, fmt.Errorf("no http in url")
	}
	if settings == nil {
		return nil, fmt.Errorf("no settings provider")
	}
	if pollInterval <= 0 {
		return nil, fmt.Errorf("wrong poll interval %v", pollInterval)
	}
	if maxWait < pollInterval {
		return nil, fmt.Errorf("max wait %v < poll interval %v", maxWait, pollInterval)
	}
	res := Client{url: strings.TrimSuffix(urlStr, "/"), settings: settings}
	res.httpclient = asrHTTPClient()
	res.uploadTimeout = time.Minute * 10
	res.timeout = time.Second * 50
	res.pollInterval = pollInterval
	res.maxWait = maxWait
	res.sleep = sleep
	goapp.Log.Info().Str("url", res.url).Dur("interval", pollInterval).Dur("maxWait", maxWait).Msg("transcriber")
	return &res, nil
}

// Transcribe submits audio and waits for the transcript
func (sp *Client) Transcribe(ctx context.Context, audioPath, lang string, onProgress ProgressFunc) (*Result, error) {
	key, err := sp.settings.GetSetting(ctx, persistence.SettingAPIKey)
	if err != nil {
		return nil, fmt.Errorf("can't get api key: %w", err)
	}
	if key == "" {
		return nil, ErrNoAPIKey
	}
	id, err := sp.submit(ctx, key, audioPath, lang)
	if err != nil {
		return nil, err
	}
	goapp.Log.Info().Str("extID", id).Msg("transcription job created")
	text, err := sp.wait(ctx, key, id, onProgress)
	if err != nil {
		return nil, err
	}
	return &Result{JobID: id, Text: text, State: Done}, nil
}

func (sp *Client) submit(ctx context.Context, key, audioPath, lang string) (string, error) {
	defer goapp.Estimate("submit")()
	body, cType, err := makeSubmitBody(audioPath, lang)
	if err != nil {
		return "", err
	}
	ctx, cancelF := context.WithTimeout(ctx, sp.uploadTimeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sp.url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", cType)
	req.Header.Set("Authorization", "Bearer "+key)
	goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
	resp, err := sp.httpclient.Do(req)
	if err != nil {
		return "", fmt.Errorf("can't call: %w", err)
	}
	defer drainClose(resp)
	if o := Classify(Submitting, resp.StatusCode); Next(Submitting, o) != Polling {
		return "", newAPIError(Submitting, o, resp)
	}
	var respData api.SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", fmt.Errorf("can't decode response: %w", err)
	}
	if respData.ID == "" {
		return "", ErrNoJobID
	}
	return respData.ID, nil
}

func (sp *Client) wait(ctx context.Context, key, id string, onProgress ProgressFunc) (string, error) {
	schedule := sp.schedule()
	schedule.Reset()
	started := time.Now()
	for attempt := 1; ; attempt++ {
		text, ready, err := sp.poll(ctx, key, id)
		if err != nil {
			return "", err
		}
		if ready {
			goapp.Log.Info().Str("extID", id).Int("attempt", attempt).Msg("transcript ready")
			return text, nil
		}
		if onProgress != nil {
			onProgress(ctx, Progress{JobID: id, Attempt: attempt, Elapsed: time.Since(started)})
		}
		next := schedule.NextBackOff()
		if next == backoff.Stop {
			goapp.Log.Warn().Str("extID", id).Int("attempts", attempt).Str("state", TimedOut.String()).Msg("give up waiting")
			return "", fmt.Errorf("job %s after %v: %w", id, sp.maxWait, ErrTimeout)
		}
		if err := sp.sleep(ctx, next); err != nil {
			return "", fmt.Errorf("wait interrupted: %w", err)
		}
	}
}

// schedule allows floor(maxWait/interval) sleeps, so floor(maxWait/interval)+1 polls at most
func (sp *Client) schedule() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(sp.pollInterval), uint64(sp.maxWait/sp.pollInterval))
}

func (sp *Client) poll(ctx context.Context, key, id string) (string, bool, error) {
	ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
	defer cancelF()
	urlStr, err := url.JoinPath(sp.url, url.PathEscape(id), "transcript")
	if err != nil {
		return "", false, fmt.Errorf("can't prepare url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Authorization", "Bearer "+key)
	resp, err := sp.httpclient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("can't call: %w", err)
	}
	defer drainClose(resp)
	o := Classify(Polling, resp.StatusCode)
	switch Next(Polling, o) {
	case Done:
		br, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", false, fmt.Errorf("can't read body: %w", err)
		}
		text, err := ParseText(br)
		if err != nil {
			return "", false, err
		}
		return text, true, nil
	case Polling:
		goapp.Log.Debug().Str("extID", id).Msg("not ready")
		return "", false, nil
	default:
		return "", false, newAPIError(Polling, o, resp)
	}
}

// ParseText joins best alternatives of all segments
func ParseText(data []byte) (string, error) {
	var t api.Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return "", fmt.Errorf("can't decode transcript: %w", err)
	}
	words := make([]string, 0, len(t.Results))
	for _, r := range t.Results {
		if len(r.Alternatives) == 0 || r.Alternatives[0].Content == "" {
			continue
		}
		words = append(words, r.Alternatives[0].Content)
	}
	return strings.TrimSpace(strings.Join(words, " ")), nil
}

func makeSubmitBody(audioPath, lang string) (io.Reader, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("can't open audio: %w", err)
	}
	defer f.Close()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, api.PrmFile, filepath.Base(audioPath)))
	h.Set("Content-Type", "audio/wav")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("can't add file to request: %w", err)
	}
	if _, err = io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("can't add file content to request: %w", err)
	}
	cfg, err := json.Marshal(api.JobConfig{Type: "transcription",
		TranscriptionConfig: api.TranscriptionConfig{Language: lang}})
	if err != nil {
		return nil, "", fmt.Errorf("can't marshal config: %w", err)
	}
	h = make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"`, api.PrmConfig))
	h.Set("Content-Type", "application/json")
	part, err = writer.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("can't add config: %w", err)
	}
	if _, err = part.Write(cfg); err != nil {
		return nil, "", fmt.Errorf("can't add config: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("can't finish body: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

func newAPIError(st State, o Outcome, resp *http.Response) *APIError {
	br, _ := io.ReadAll(io.LimitReader(resp.Body, 1000))
	res := &APIError{State: st, Outcome: o, Code: resp.StatusCode, Body: goapp.Sanitize(string(br))}
	goapp.Log.Error().Str("state", st.String()).Str("outcome", o.String()).Int("code", res.Code).Str("body", res.Body).Msg("transcriber failure")
	return res
}

func drainClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
	_ = resp.Body.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func asrHTTPClient() *http.Client {
	return &http.Client{Transport: newTransport()}
}

func newTransport() http.RoundTripper {
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 20
	res.MaxIdleConns = 10
	res.MaxIdleConnsPerHost = 10
	res.IdleConnTimeout = 90 * time.Second
	return res
}
