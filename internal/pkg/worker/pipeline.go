package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strconv"
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/messages"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/status"
	"github.com/airenas/scribe/internal/pkg/telegram"
	"github.com/airenas/scribe/internal/pkg/texts"
	"github.com/airenas/scribe/internal/pkg/transcriber"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/google/uuid"
)

const (
	defaultMaxDurationMin = 10
	defaultFileName       = "voice.ogg"
	finalizeTimeout       = time.Second * 30
)

type run struct {
	data     *ServiceData
	msg      *messages.TranscribeMessage
	lang     string
	files    []string
	progress *progress
	job      *persistence.Job
	final    bool
}

// Process runs one transcription request end to end.
// Every outcome is reported to the user, nothing is returned.
func Process(ctx context.Context, m *messages.TranscribeMessage, data *ServiceData) {
	r := &run{data: data, msg: m, lang: texts.Lang(m.Language)}
	defer r.cleanup()
	defer func() {
		if rec := recover(); rec != nil {
			goapp.Log.Error().Str("ID", m.ID).Str("stack", string(debug.Stack())).Msgf("panic: %v", rec)
			r.fail(fmt.Errorf("panic: %v", rec))
		}
	}()
	if err := r.do(ctx); err != nil {
		r.fail(err)
	}
}

func (r *run) do(ctx context.Context) error {
	m, data := r.msg, r.data
	if m.File.ID == "" {
		return r.reject(ctx, texts.Get(r.lang, texts.SendAudioVideo))
	}
	name := m.File.Name
	if name == "" {
		name = defaultFileName
	}
	ext := utils.Ext(name)
	if m.File.Kind == messages.KindDocument && !utils.SupportAudioExt(ext) {
		return r.reject(ctx, texts.Get(r.lang, texts.UnsupportedFormat))
	}
	isVideo := m.File.Kind == messages.KindVideo || utils.IsVideoExt(ext)

	maxMin, err := r.maxDurationMinutes(ctx)
	if err != nil {
		return err
	}

	if m.File.Size > int64(data.MaxFileSizeMB)*1024*1024 {
		return r.reject(ctx, texts.Get(r.lang, texts.FileTooBig, data.MaxFileSizeMB))
	}
	input, err := r.tempFile(ext)
	if err != nil {
		return err
	}
	if err := data.Fetcher.Fetch(ctx, m.File.ID, input); err != nil {
		if errors.Is(err, telegram.ErrFileTooBig) {
			return r.reject(ctx, texts.Get(r.lang, texts.FileTooBig, data.MaxFileSizeMB))
		}
		return fmt.Errorf("can't fetch file: %w", err)
	}

	r.progress = startProgress(ctx, data.Messenger, m.ChatID, texts.Get(r.lang, texts.Processing))

	audio, err := r.normalize(ctx, input, isVideo)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		goapp.Log.Warn().Err(err).Str("ID", m.ID).Msg("can't normalize")
		return r.reject(ctx, texts.Get(r.lang, texts.ProcessingFailed))
	}

	duration := data.Prober.Duration(ctx, audio)
	cost := utils.CostMinutes(duration)
	goapp.Log.Info().Str("ID", m.ID).Float64("duration", duration).Int("cost", cost).Msg("probed")
	if duration <= 0 {
		return r.reject(ctx, texts.Get(r.lang, texts.InvalidDuration))
	}
	if duration > float64(maxMin*60) {
		return r.reject(ctx, texts.Get(r.lang, texts.AudioTooLong, maxMin, cost))
	}

	user, err := data.DB.GetUser(ctx, m.UserID)
	if err != nil {
		return fmt.Errorf("can't load user: %w", err)
	}
	if user == nil {
		return r.reject(ctx, texts.Get(r.lang, texts.UserNotFound))
	}
	r.lang = texts.Lang(user.LanguageCode)
	if user.Balance <= 0 {
		return r.reject(ctx, texts.Get(r.lang, texts.ZeroBalance, user.DisplayName()))
	}
	if user.Balance < float64(cost) {
		return r.reject(ctx, texts.Get(r.lang, texts.InsufficientBalance, cost, int(user.Balance)))
	}

	r.job, err = data.DB.CreateJob(ctx, &persistence.NewJob{UserID: user.ID, FileName: name, FilePath: audio,
		Duration: duration, Language: transcriptionLang(user, m), Cost: cost})
	if err != nil {
		return fmt.Errorf("can't create job: %w", err)
	}
	goapp.Log.Info().Str("ID", m.ID).Str("job", r.job.ID).Msg("job created")

	progressText := texts.Get(r.lang, texts.Progress)
	res, err := data.Transcriber.Transcribe(ctx, audio, r.job.Language, func(ctx context.Context, p transcriber.Progress) {
		r.progress.update(ctx, progressText)
	})
	// the job must reach a final state even when ctx is done
	fCtx, cf := finalizeCtx()
	defer cf()
	if err != nil {
		return r.transcriptionFailed(fCtx, err)
	}
	if res.Text == "" {
		return r.noSpeech(fCtx)
	}
	return r.complete(fCtx, user, name, res.Text)
}

func (r *run) complete(ctx context.Context, user *persistence.User, name, text string) error {
	if err := r.data.DB.UpdateJob(ctx, r.job.ID, status.Completed, text, ""); err != nil {
		return fmt.Errorf("can't complete job: %w", err)
	}
	r.final = true
	u, err := r.data.DB.DeductBalance(ctx, user.TelegramID, r.job.Cost)
	if err != nil {
		goapp.Log.Error().Err(err).Str("job", r.job.ID).Msg("can't deduct balance")
		notifyAdmin(ctx, r.data, fmt.Sprintf("can't deduct %d min for user %d, job %s: %v", r.job.Cost, user.TelegramID, r.job.ID, err))
	} else if u == nil {
		goapp.Log.Warn().Str("job", r.job.ID).Int64("user", user.TelegramID).Msg("balance too low to deduct")
	}
	r.progress.remove(ctx)
	jobsMetric.WithLabelValues(status.Completed.String()).Inc()
	if err := r.data.Messenger.SendDocument(ctx, r.msg.ChatID, utils.ResultFileName(name), []byte(text),
		texts.Get(r.lang, texts.Complete)); err != nil {
		goapp.Log.Error().Err(err).Str("job", r.job.ID).Msg("can't send result")
		notifyAdmin(ctx, r.data, texts.Get(texts.DefaultLang, texts.AdminNotDelivered, r.job.ID, user.TelegramID, err.Error()))
		r.send(ctx, texts.Get(r.lang, texts.ResultNotDelivered, r.job.ID))
		return nil
	}
	goapp.Log.Info().Str("job", r.job.ID).Msg("completed")
	return nil
}

func (r *run) noSpeech(ctx context.Context) error {
	if err := r.data.DB.UpdateJob(ctx, r.job.ID, status.NoSpeech, "", ""); err != nil {
		return fmt.Errorf("can't finish job: %w", err)
	}
	r.final = true
	jobsMetric.WithLabelValues(status.NoSpeech.String()).Inc()
	goapp.Log.Warn().Str("job", r.job.ID).Msg("no text found")
	r.progress.remove(ctx)
	r.send(ctx, texts.Get(r.lang, texts.NoTextFound))
	return nil
}

func (r *run) transcriptionFailed(ctx context.Context, err error) error {
	goapp.Log.Error().Err(err).Str("job", r.job.ID).Msg("transcription failed")
	if errU := r.data.DB.UpdateJob(ctx, r.job.ID, status.Failed, "", err.Error()); errU != nil {
		goapp.Log.Error().Err(errU).Str("job", r.job.ID).Msg("can't mark job failed")
	}
	r.final = true
	jobsMetric.WithLabelValues(status.Failed.String()).Inc()
	userText := texts.Get(r.lang, texts.Error)
	if ae, ok := transcriber.IsClassified(err); ok {
		adminKey, userKey := classifiedTexts(ae.Outcome)
		notifyAdmin(ctx, r.data, texts.Get(texts.DefaultLang, adminKey, ae.Code))
		userText = texts.Get(r.lang, userKey)
	}
	r.progress.remove(ctx)
	r.send(ctx, userText)
	return nil
}

// fail handles unexpected errors, ctx may be already done here
func (r *run) fail(err error) {
	ctx, cf := finalizeCtx()
	defer cf()
	goapp.Log.Error().Err(err).Str("ID", r.msg.ID).Msg("pipeline failed")
	jobsMetric.WithLabelValues("error").Inc()
	notifyAdmin(ctx, r.data, texts.Get(texts.DefaultLang, texts.AdminPipelineError, r.msg.UserID, err.Error()))
	if r.job != nil && !r.final {
		if errU := r.data.DB.UpdateJob(ctx, r.job.ID, status.Failed, "", err.Error()); errU != nil {
			goapp.Log.Error().Err(errU).Str("job", r.job.ID).Msg("can't mark job failed")
		}
		r.final = true
	}
	r.progress.remove(ctx)
	r.send(ctx, texts.Get(r.lang, texts.Error))
}

// reject ends the run with a user message, no job is created
func (r *run) reject(ctx context.Context, text string) error {
	jobsMetric.WithLabelValues("rejected").Inc()
	goapp.Log.Info().Str("ID", r.msg.ID).Str("reason", text).Msg("rejected")
	r.progress.remove(ctx)
	r.send(ctx, text)
	return nil
}

func (r *run) send(ctx context.Context, text string) {
	if _, err := r.data.Messenger.SendMessage(ctx, r.msg.ChatID, text); err != nil {
		goapp.Log.Error().Err(err).Int64("chat", r.msg.ChatID).Msg("can't send message")
	}
}

func (r *run) normalize(ctx context.Context, input string, isVideo bool) (string, error) {
	if err := r.data.Gate.Acquire(ctx); err != nil {
		return "", err
	}
	defer r.data.Gate.Release()
	res, err := r.data.Normalizer.Normalize(ctx, input, isVideo)
	if err != nil {
		return "", err
	}
	r.files = append(r.files, res)
	return res, nil
}

func (r *run) tempFile(ext string) (string, error) {
	f, err := os.CreateTemp(r.data.TempDir, "in-*"+ext)
	if err != nil {
		return "", fmt.Errorf("can't create temp file: %w", err)
	}
	r.files = append(r.files, f.Name())
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("can't close temp file: %w", err)
	}
	return f.Name(), nil
}

func (r *run) maxDurationMinutes(ctx context.Context) (int, error) {
	v, err := r.data.DB.GetSetting(ctx, persistence.SettingMaxDurationMinutes)
	if err != nil {
		return 0, fmt.Errorf("can't load setting: %w", err)
	}
	res, err := strconv.Atoi(v)
	if err != nil || res <= 0 {
		return defaultMaxDurationMin, nil
	}
	return res, nil
}

func (r *run) cleanup() {
	ctx, cf := finalizeCtx()
	defer cf()
	r.progress.remove(ctx)
	utils.RemoveFiles(r.files...)
	if err := r.data.DB.ClearChatState(ctx, r.msg.ChatID); err != nil {
		goapp.Log.Error().Err(err).Int64("chat", r.msg.ChatID).Msg("can't clear chat state")
	}
}

func finalizeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), finalizeTimeout)
}

func transcriptionLang(user *persistence.User, m *messages.TranscribeMessage) string {
	if user.LanguageCode != "" {
		return user.LanguageCode
	}
	if m.Language != "" {
		return m.Language
	}
	return texts.DefaultLang
}

func classifiedTexts(o transcriber.Outcome) (string, string) {
	switch o {
	case transcriber.RateLimited:
		return texts.AdminRateLimited, texts.RateLimitedGeneric
	case transcriber.ServerError:
		return texts.AdminServerError, texts.ServerErrorGeneric
	default:
		return texts.AdminAPIKeyInvalid, texts.FailedGeneric
	}
}

// notifyAdmin enqueues a notification, failures are only logged
func notifyAdmin(ctx context.Context, data *ServiceData, text string) {
	err := data.MsgSender.SendMessage(ctx, &messages.AdminMessage{
		QueueMessage: amessages.QueueMessage{ID: uuid.NewString()}, Text: text, At: time.Now()}, messages.Inform)
	if err != nil {
		goapp.Log.Error().Err(err).Msg("can't notify admin")
	}
}
