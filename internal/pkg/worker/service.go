package worker

import (
	"context"
	"fmt"
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/messages"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/status"
	"github.com/airenas/scribe/internal/pkg/transcriber"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/airenas/scribe/internal/pkg/utils/handler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vgarvardt/gue/v5"
)

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// DB provides persistnce functionality
type DB interface {
	GetUser(ctx context.Context, telegramID int64) (*persistence.User, error)
	DeductBalance(ctx context.Context, telegramID int64, minutes int) (*persistence.User, error)
	CreateJob(ctx context.Context, job *persistence.NewJob) (*persistence.Job, error)
	UpdateJob(ctx context.Context, id string, st status.Status, result, errMsg string) error
	GetSetting(ctx context.Context, key string) (string, error)
	ClearChatState(ctx context.Context, chatID int64) error
}

// Messenger talks to the user chat
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
	EditMessage(ctx context.Context, chatID int64, msgID int, text string) error
	DeleteMessage(ctx context.Context, chatID int64, msgID int) error
	SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string) error
}

// Fetcher downloads chat files
type Fetcher interface {
	Fetch(ctx context.Context, fileID, dst string) error
}

// Normalizer converts media to canonical wav
type Normalizer interface {
	Normalize(ctx context.Context, input string, isVideo bool) (string, error)
}

// Prober returns media duration in seconds, 0 if unknown
type Prober interface {
	Duration(ctx context.Context, path string) float64
}

// Gate bounds simultaneous conversions
type Gate interface {
	Acquire(ctx context.Context) error
	Release()
}

// Transcriber provides transcription
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, lang string, onProgress transcriber.ProgressFunc) (*transcriber.Result, error)
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient     *gue.Client
	WorkerCount   int
	Testing       bool
	DB            DB
	Messenger     Messenger
	Fetcher       Fetcher
	Normalizer    Normalizer
	Prober        Prober
	Gate          Gate
	Transcriber   Transcriber
	MsgSender     MsgSender
	TempDir       string
	MaxFileSizeMB int
	Timeout       time.Duration
}

var jobsMetric = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "scribe_jobs_total",
	Help: "Transcription requests by final state",
}, []string{"status"})

func init() {
	prometheus.MustRegister(jobsMetric)
}

// StartWorkerService starts the event queue listener service to listen for events
// returns channel for tracking if all jobs are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Int("workers", data.WorkerCount).Msg("Starting listen for messages")
	if data.Testing {
		goapp.Log.Warn().Msg("SERVICE IN TEST MODE")
	}
	if data.Timeout <= 0 {
		data.Timeout = time.Hour
	}

	wm := gue.WorkMap{
		messages.Work: handler.Create(data, handleTranscribe, handler.DefaultOpts[messages.TranscribeMessage]().
			WithTimeout(data.Timeout).WithBackoff(handler.DefaultBackoffOrTest(data.Testing))),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Work),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("transcribe-worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting workers")
		if err := pool.Run(ctx); err != nil {
			goapp.Log.Error().Err(err).Msg("pool error")
		}
		goapp.Log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

// handleTranscribe never fails, user already got feedback for every outcome
func handleTranscribe(ctx context.Context, m *messages.TranscribeMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Int64("chat", m.ChatID).Str("kind", string(m.File.Kind)).Msg("handling transcribe")
	Process(ctx, m, data)
	return nil
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.Messenger == nil {
		return fmt.Errorf("no Messenger")
	}
	if data.Fetcher == nil {
		return fmt.Errorf("no Fetcher")
	}
	if data.Normalizer == nil {
		return fmt.Errorf("no Normalizer")
	}
	if data.Prober == nil {
		return fmt.Errorf("no Prober")
	}
	if data.Gate == nil {
		return fmt.Errorf("no Gate")
	}
	if data.Transcriber == nil {
		return fmt.Errorf("no Transcriber")
	}
	if data.MaxFileSizeMB < 1 {
		return fmt.Errorf("no max file size")
	}
	return nil
}
