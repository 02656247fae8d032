package mocks

import (
	"context"

	"github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/status"
	"github.com/airenas/scribe/internal/pkg/transcriber"
	"github.com/stretchr/testify/mock"
)

// DB is postgress DB mock
type DB struct{ mock.Mock }

func (m *DB) GetUser(ctx context.Context, telegramID int64) (*persistence.User, error) {
	args := m.Called(ctx, telegramID)
	return to[*persistence.User](args.Get(0)), args.Error(1)
}

func (m *DB) CreateUser(ctx context.Context, user *persistence.User, bonus float64) (*persistence.User, error) {
	args := m.Called(ctx, user, bonus)
	return to[*persistence.User](args.Get(0)), args.Error(1)
}

func (m *DB) DeductBalance(ctx context.Context, telegramID int64, minutes int) (*persistence.User, error) {
	args := m.Called(ctx, telegramID, minutes)
	return to[*persistence.User](args.Get(0)), args.Error(1)
}

func (m *DB) CreateJob(ctx context.Context, job *persistence.NewJob) (*persistence.Job, error) {
	args := m.Called(ctx, job)
	return to[*persistence.Job](args.Get(0)), args.Error(1)
}

func (m *DB) UpdateJob(ctx context.Context, id string, st status.Status, result, errMsg string) error {
	args := m.Called(ctx, id, st, result, errMsg)
	return args.Error(0)
}

func (m *DB) LoadJob(ctx context.Context, id string) (*persistence.Job, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Job](args.Get(0)), args.Error(1)
}

func (m *DB) GetSetting(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *DB) SetChatStateUnless(ctx context.Context, chatID int64, state, unless string) (bool, error) {
	args := m.Called(ctx, chatID, state, unless)
	return args.Bool(0), args.Error(1)
}

func (m *DB) SwitchChatState(ctx context.Context, chatID int64, from, to string) (bool, error) {
	args := m.Called(ctx, chatID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *DB) GetChatState(ctx context.Context, chatID int64) (string, error) {
	args := m.Called(ctx, chatID)
	return args.String(0), args.Error(1)
}

func (m *DB) ClearChatState(ctx context.Context, chatID int64) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *DB) Live(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Sender is postgres queue mock
type Sender struct{ mock.Mock }

func (m *Sender) SendMessage(ctx context.Context, msg messages.Message, queue string) error {
	args := m.Called(ctx, msg, queue)
	return args.Error(0)
}

// Messenger is telegram client mock
type Messenger struct{ mock.Mock }

func (m *Messenger) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	args := m.Called(ctx, chatID, text)
	return args.Int(0), args.Error(1)
}

func (m *Messenger) EditMessage(ctx context.Context, chatID int64, msgID int, text string) error {
	args := m.Called(ctx, chatID, msgID, text)
	return args.Error(0)
}

func (m *Messenger) DeleteMessage(ctx context.Context, chatID int64, msgID int) error {
	args := m.Called(ctx, chatID, msgID)
	return args.Error(0)
}

func (m *Messenger) SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string) error {
	args := m.Called(ctx, chatID, name, data, caption)
	return args.Error(0)
}

// Fetcher is file download mock
type Fetcher struct{ mock.Mock }

func (m *Fetcher) Fetch(ctx context.Context, fileID, dst string) error {
	args := m.Called(ctx, fileID, dst)
	return args.Error(0)
}

// Normalizer is media converter mock
type Normalizer struct{ mock.Mock }

func (m *Normalizer) Normalize(ctx context.Context, input string, isVideo bool) (string, error) {
	args := m.Called(ctx, input, isVideo)
	return args.String(0), args.Error(1)
}

// Prober is duration prober mock
type Prober struct{ mock.Mock }

func (m *Prober) Duration(ctx context.Context, path string) float64 {
	args := m.Called(ctx, path)
	return args.Get(0).(float64)
}

// Gate is concurrency gate mock
type Gate struct{ mock.Mock }

func (m *Gate) Acquire(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Gate) Release() {
	m.Called()
}

// Transcriber is transcription client mock
type Transcriber struct{ mock.Mock }

func (m *Transcriber) Transcribe(ctx context.Context, audioPath, lang string, onProgress transcriber.ProgressFunc) (*transcriber.Result, error) {
	args := m.Called(ctx, audioPath, lang, onProgress)
	return to[*transcriber.Result](args.Get(0)), args.Error(1)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
