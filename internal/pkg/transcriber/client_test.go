package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/airenas/scribe/internal/pkg/test"
	"github.com/airenas/scribe/internal/pkg/transcriber/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testResp struct {
	code int
	resp string
}

type testReq struct {
	URL    string
	method string
	auth   string
	cType  string
	body   []byte
}

func newTestR(code int, resp string) testResp {
	return testResp{code: code, resp: resp}
}

type fakeSettings struct {
	key string
	err error
}

func (f *fakeSettings) GetSetting(ctx context.Context, key string) (string, error) {
	if key != "api_key" {
		return "", nil
	}
	return f.key, f.err
}

// initTestServer returns responses for URL in order, last one is repeated
func initTestServer(t *testing.T, rData map[string][]testResp) (*Client, *[]testReq) {
	t.Helper()
	resRequest := make([]testReq, 0)
	rLock := &sync.Mutex{}
	served := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rLock.Lock()
		defer rLock.Unlock()
		b, _ := io.ReadAll(req.Body)
		resRequest = append(resRequest, testReq{URL: req.URL.String(), method: req.Method,
			auth: req.Header.Get("Authorization"), cType: req.Header.Get("Content-Type"), body: b})
		resps, f := rData[req.URL.String()]
		if !f || len(resps) == 0 {
			rw.WriteHeader(http.StatusTeapot)
			return
		}
		i := served[req.URL.String()]
		if i >= len(resps) {
			i = len(resps) - 1
		}
		served[req.URL.String()]++
		rw.WriteHeader(resps[i].code)
		_, _ = rw.Write([]byte(resps[i].resp))
	}))
	t.Cleanup(func() { server.Close() })
	c, err := NewClient(server.URL+"/v2/jobs", &fakeSettings{key: "k1"}, time.Second*5, time.Second*300)
	require.Nil(t, err)
	c.httpclient = server.Client()
	c.timeout = time.Second
	c.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return c, &resRequest
}

func testAudio(t *testing.T) string {
	t.Helper()
	f := filepath.Join(t.TempDir(), "a.wav")
	require.Nil(t, os.WriteFile(f, []byte("RIFF-wav"), 0600))
	return f
}

const okTranscript = `{"results":[{"alternatives":[{"content":"hello"}]},{"alternatives":[{"content":"world"}]}]}`

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		s        SettingsProvider
		interval time.Duration
		maxWait  time.Duration
		wantErr  bool
	}{
		{name: "OK", url: "http://l/v2/jobs", s: &fakeSettings{}, interval: time.Second * 5, maxWait: time.Second * 300},
		{name: "no url", url: "", s: &fakeSettings{}, interval: time.Second * 5, maxWait: time.Second * 300, wantErr: true},
		{name: "no http", url: "l/v2", s: &fakeSettings{}, interval: time.Second * 5, maxWait: time.Second * 300, wantErr: true},
		{name: "no settings", url: "http://l", interval: time.Second * 5, maxWait: time.Second * 300, wantErr: true},
		{name: "no interval", url: "http://l", s: &fakeSettings{}, maxWait: time.Second * 300, wantErr: true},
		{name: "short wait", url: "http://l", s: &fakeSettings{}, interval: time.Second * 5, maxWait: time.Second, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.url, tt.s, tt.interval, tt.maxWait)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTranscribe_OK(t *testing.T) {
	cl, reqs := initTestServer(t, map[string][]testResp{
		"/v2/jobs":               {newTestR(http.StatusCreated, `{"id":"j1"}`)},
		"/v2/jobs/j1/transcript": {newTestR(http.StatusOK, okTranscript)},
	})

	res, err := cl.Transcribe(test.Ctx(t), testAudio(t), "en", nil)

	require.Nil(t, err)
	assert.Equal(t, &Result{JobID: "j1", Text: "hello world", State: Done}, res)
	require.Equal(t, 2, len(*reqs))
	sub := (*reqs)[0]
	assert.Equal(t, http.MethodPost, sub.method)
	assert.Equal(t, "Bearer k1", sub.auth)
	assert.Equal(t, "Bearer k1", (*reqs)[1].auth)
	assert.Equal(t, http.MethodGet, (*reqs)[1].method)

	_, params, err := mime.ParseMediaType(sub.cType)
	require.Nil(t, err)
	mr := multipart.NewReader(bytes.NewReader(sub.body), params["boundary"])
	p, err := mr.NextPart()
	require.Nil(t, err)
	assert.Equal(t, api.PrmFile, p.FormName())
	assert.Equal(t, "a.wav", p.FileName())
	assert.Equal(t, "audio/wav", p.Header.Get("Content-Type"))
	b, _ := io.ReadAll(p)
	assert.Equal(t, "RIFF-wav", string(b))
	p, err = mr.NextPart()
	require.Nil(t, err)
	assert.Equal(t, api.PrmConfig, p.FormName())
	var cfg map[string]interface{}
	require.Nil(t, json.NewDecoder(p).Decode(&cfg))
	assert.Equal(t, map[string]interface{}{"type": "transcription",
		"transcription_config": map[string]interface{}{"language": "en"}}, cfg)
}

func TestTranscribe_PollsUntilReady(t *testing.T) {
	cl, reqs := initTestServer(t, map[string][]testResp{
		"/v2/jobs": {newTestR(http.StatusOK, `{"id":"j1"}`)},
		"/v2/jobs/j1/transcript": {newTestR(http.StatusNotFound, ""), newTestR(http.StatusNotFound, ""),
			newTestR(http.StatusOK, okTranscript)},
	})
	var progress []Progress
	sleeps := 0
	cl.sleep = func(ctx context.Context, d time.Duration) error {
		assert.Equal(t, time.Second*5, d)
		sleeps++
		return nil
	}

	res, err := cl.Transcribe(test.Ctx(t), testAudio(t), "ru", func(ctx context.Context, p Progress) {
		progress = append(progress, p)
	})

	require.Nil(t, err)
	assert.Equal(t, "hello world", res.Text)
	assert.Equal(t, 4, len(*reqs))
	assert.Equal(t, 2, sleeps)
	require.Equal(t, 2, len(progress))
	assert.Equal(t, 1, progress[0].Attempt)
	assert.Equal(t, "j1", progress[1].JobID)
}

func TestTranscribe_Timeout(t *testing.T) {
	cl, reqs := initTestServer(t, map[string][]testResp{
		"/v2/jobs":               {newTestR(http.StatusOK, `{"id":"j1"}`)},
		"/v2/jobs/j1/transcript": {newTestR(http.StatusNotFound, "")},
	})
	sleeps := 0
	cl.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		return nil
	}

	res, err := cl.Transcribe(test.Ctx(t), testAudio(t), "ru", nil)

	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, 1+61, len(*reqs))
	assert.Equal(t, 60, sleeps)
}

func TestTranscribe_TimeoutBound(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		maxWait  time.Duration
		wantPoll int
	}{
		{name: "exact", interval: time.Second * 5, maxWait: time.Second * 20, wantPoll: 5},
		{name: "floor", interval: time.Second * 5, maxWait: time.Second * 22, wantPoll: 5},
		{name: "equal", interval: time.Second * 5, maxWait: time.Second * 5, wantPoll: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl, reqs := initTestServer(t, map[string][]testResp{
				"/v2/jobs":               {newTestR(http.StatusOK, `{"id":"j1"}`)},
				"/v2/jobs/j1/transcript": {newTestR(http.StatusNotFound, "")},
			})
			cl.pollInterval, cl.maxWait = tt.interval, tt.maxWait

			_, err := cl.Transcribe(test.Ctx(t), testAudio(t), "ru", nil)

			assert.True(t, errors.Is(err, ErrTimeout))
			assert.Equal(t, 1+tt.wantPoll, len(*reqs))
		})
	}
}

func TestTranscribe_RealSleep(t *testing.T) {
	cl, reqs := initTestServer(t, map[string][]testResp{
		"/v2/jobs":               {newTestR(http.StatusOK, `{"id":"j1"}`)},
		"/v2/jobs/j1/transcript": {newTestR(http.StatusNotFound, "")},
	})
	cl.sleep = sleep
	cl.pollInterval, cl.maxWait = time.Millisecond*5, time.Millisecond*20

	_, err := cl.Transcribe(test.Ctx(t), testAudio(t), "ru", nil)

	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, 1+5, len(*reqs))
}

func TestTranscribe_Empty(t *testing.T) {
	cl, _ := initTestServer(t, map[string][]testResp{
		"/v2/jobs":               {newTestR(http.StatusOK, `{"id":"j1"}`)},
		"/v2/jobs/j1/transcript": {newTestR(http.StatusOK, `{"results":[]}`)},
	})

	res, err := cl.Transcribe(test.Ctx(t), testAudio(t), "ru", nil)

	require.Nil(t, err)
	assert.Equal(t, "", res.Text)
	assert.Equal(t, Done, res.State)
}

func TestTranscribe_SubmitFailures(t *testing.T) {
	tests := []struct {
		name       string
		resp       testResp
		outcome    Outcome
		classified bool
	}{
		{name: "401", resp: newTestR(http.StatusUnauthorized, "bad key"), outcome: AuthFailure, classified: true},
		{name: "403", resp: newTestR(http.StatusForbidden, "no"), outcome: AuthFailure, classified: true},
		{name: "429", resp: newTestR(http.StatusTooManyRequests, "slow"), outcome: RateLimited, classified: true},
		{name: "500", resp: newTestR(http.StatusInternalServerError, "boom"), outcome: ServerError, classified: true},
		{name: "400", resp: newTestR(http.StatusBadRequest, "bad"), outcome: Unexpected},
		{name: "503", resp: newTestR(http.StatusServiceUnavailable, "later"), outcome: Unexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl, reqs := initTestServer(t, map[string][]testResp{"/v2/jobs": {tt.resp}})

			res, err := cl.Transcribe(test.Ctx(t), testAudio(t), "ru", nil)

			assert.Nil(t, res)
			var ae *APIError
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, tt.outcome, ae.Outcome)
			assert.Equal(t, tt.resp.code, ae.Code)
			assert.Equal(t, Submitting, ae.State)
			assert.Equal(t, tt.resp.resp, ae.Body)
			_, cl2 := IsClassified(err)
			assert.Equal(t, tt.classified, cl2)
			assert.Equal(t, 1, len(*reqs))
		})
	}
}

func TestTranscribe_PollFailures(t *testing.T) {
	tests := []struct {
		name    string
		resp    testResp
		outcome Outcome
	}{
		{name: "401", resp: newTestR(http.StatusUnauthorized, ""), outcome: AuthFailure},
		{name: "429", resp: newTestR(http.StatusTooManyRequests, ""), outcome: RateLimited},
		{name: "500", resp: newTestR(http.StatusInternalServerError, ""), outcome: ServerError},
		{name: "410", resp: newTestR(http.StatusGone, "gone"), outcome: Unexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl, reqs := initTestServer(t, map[string][]testResp{
				"/v2/jobs":               {newTestR(http.StatusOK, `{"id":"j1"}`)},
				"/v2/jobs/j1/transcript": {newTestR(http.StatusNotFound, ""), tt.resp},
			})

			_, err := cl.Transcribe(test.Ctx(t), testAudio(t), "ru", nil)

			var ae *APIError
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, tt.outcome, ae.Outcome)
			assert.Equal(t, Polling, ae.State)
			assert.Equal(t, 3, len(*reqs))
		})
	}
}

func TestTranscribe_NoID(t *testing.T) {
	cl, _ := initTestServer(t, map[string][]testResp{"/v2/jobs": {newTestR(http.StatusOK, `{"id":""}`)}})

	_, err := cl.Transcribe(test.Ctx(t), testAudio(t), "ru", nil)

	assert.True(t, errors.Is(err, ErrNoJobID))
}

func TestTranscribe_BadJSON(t *testing.T) {
	cl, _ := initTestServer(t, map[string][]testResp{
		"/v2/jobs":               {newTestR(http.StatusOK, `{"id":"j1"}`)},
		"/v2/jobs/j1/transcript": {newTestR(http.StatusOK, `{"results":`)},
	})

	_, err := cl.Transcribe(test.Ctx(t), testAudio(t), "ru", nil)

	assert.NotNil(t, err)
	_, classified := IsClassified(err)
	assert.False(t, classified)
}

func TestTranscribe_NoKey(t *testing.T) {
	cl, reqs := initTestServer(t, map[string][]testResp{})
	cl.settings = &fakeSettings{}

	_, err := cl.Transcribe(test.Ctx(t), testAudio(t), "ru", nil)

	assert.True(t, errors.Is(err, ErrNoAPIKey))
	assert.Equal(t, 0, len(*reqs))
}

func TestTranscribe_SettingsFail(t *testing.T) {
	cl, reqs := initTestServer(t, map[string][]testResp{})
	cl.settings = &fakeSettings{err: errors.New("olia")}

	_, err := cl.Transcribe(test.Ctx(t), testAudio(t), "ru", nil)

	assert.NotNil(t, err)
	assert.Equal(t, 0, len(*reqs))
}

func TestTranscribe_NoFile(t *testing.T) {
	cl, reqs := initTestServer(t, map[string][]testResp{})

	_, err := cl.Transcribe(test.Ctx(t), filepath.Join(t.TempDir(), "none.wav"), "ru", nil)

	assert.NotNil(t, err)
	assert.Equal(t, 0, len(*reqs))
}

func TestTranscribe_NetworkFail(t *testing.T) {
	cl, _ := initTestServer(t, map[string][]testResp{})
	cl.url = "http://127.0.0.1:1/v2/jobs"

	_, err := cl.Transcribe(test.Ctx(t), testAudio(t), "ru", nil)

	assert.NotNil(t, err)
}

func TestParseText(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    string
		wantErr bool
	}{
		{name: "hello world", args: okTranscript, want: "hello world"},
		{name: "empty", args: `{"results":[]}`, want: ""},
		{name: "no results", args: `{}`, want: ""},
		{name: "no alternatives", args: `{"results":[{"alternatives":[]},{"alternatives":[{"content":"a"}]}]}`, want: "a"},
		{name: "best", args: `{"results":[{"alternatives":[{"content":"a"},{"content":"b"}]}]}`, want: "a"},
		{name: "trim", args: `{"results":[{"alternatives":[{"content":" a "}]}]}`, want: "a"},
		{name: "bad", args: `{"results"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseText([]byte(tt.args))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseText() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseText() = %v, want %v", got, tt.want)
			}
		})
	}
}
