package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/scribe/internal/pkg/messages"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/telegram"
	"github.com/airenas/scribe/internal/pkg/texts"
	"github.com/airenas/scribe/internal/pkg/utils"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const defaultWelcomeBonus = 5

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// Messenger answers to the user chat
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
}

// DB keeps users and conversation state
type DB interface {
	GetUser(ctx context.Context, telegramID int64) (*persistence.User, error)
	CreateUser(ctx context.Context, user *persistence.User, bonus float64) (*persistence.User, error)
	GetSetting(ctx context.Context, key string) (string, error)
	SetChatStateUnless(ctx context.Context, chatID int64, state, unless string) (bool, error)
	SwitchChatState(ctx context.Context, chatID int64, from, to string) (bool, error)
	GetChatState(ctx context.Context, chatID int64) (string, error)
	ClearChatState(ctx context.Context, chatID int64) error
	Live(ctx context.Context) error
}

// Data keeps data required for service work
type Data struct {
	Port      int
	Secret    string
	DB        DB
	Messenger Messenger
	MsgSender MsgSender
	Admins    []int64
	RateLimit time.Duration

	limiter *limiter
	admins  map[int64]bool
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP bot webhook service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 30 * time.Second
	e.Server.WriteTimeout = 30 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Secret == "" {
		return errors.New("no webhook secret")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.Messenger == nil {
		return fmt.Errorf("no messenger")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("scribe_bot", nil)
}

func initRoutes(data *Data) *echo.Echo {
	data.limiter = newLimiter(data.RateLimit)
	data.admins = map[int64]bool{}
	for _, id := range data.Admins {
		data.admins[id] = true
	}

	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/webhook/:secret", webhook(data))
	e.GET("/live", live(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		if err := data.DB.Live(c.Request().Context()); err != nil {
			goapp.Log.Error().Err(err).Msg("db not live")
			return c.JSONBlob(http.StatusServiceUnavailable, []byte(`{"service":"OK","db":"FAIL"}`))
		}
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK","db":"OK"}`))
	}
}

func webhook(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("webhook")()
		if c.Param("secret") != data.Secret {
			return echo.NewHTTPError(http.StatusUnauthorized)
		}
		var upd telegram.Update
		if err := json.NewDecoder(c.Request().Body).Decode(&upd); err != nil {
			goapp.Log.Warn().Err(err).Msg("can't decode update")
			return echo.NewHTTPError(http.StatusBadRequest, "wrong update")
		}
		if err := validateUpdate(&upd); err != nil {
			goapp.Log.Debug().Err(err).Int("update", upd.UpdateID).Msg("skip")
			return c.NoContent(http.StatusOK)
		}
		if err := handleMessage(c.Request().Context(), data, upd.Message); err != nil {
			goapp.Log.Error().Err(err).Int("update", upd.UpdateID).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.NoContent(http.StatusOK)
	}
}

func validateUpdate(upd *telegram.Update) error {
	if upd.Message == nil {
		return errors.New("no message")
	}
	if upd.Message.From == nil {
		return errors.New("no sender")
	}
	if upd.Message.From.IsBot {
		return errors.Errorf("message from bot %d", upd.Message.From.ID)
	}
	return nil
}

type request struct {
	data   *Data
	chatID int64
	from   *telegram.User
	user   *persistence.User
	lang   string
}

func handleMessage(ctx context.Context, data *Data, m *telegram.Message) error {
	r := &request{data: data, chatID: m.Chat.ID, from: m.From, lang: texts.Lang(m.From.LanguageCode)}
	admin := data.admins[r.from.ID]
	if !admin && !data.limiter.allow(r.from.ID) {
		goapp.Log.Info().Int64("user", r.from.ID).Msg("rate limited")
		return r.send(ctx, texts.Get(r.lang, texts.RateLimitExceeded))
	}
	var err error
	r.user, err = data.DB.GetUser(ctx, r.from.ID)
	if err != nil {
		return err
	}
	if r.user != nil {
		if r.user.LanguageCode != "" {
			r.lang = texts.Lang(r.user.LanguageCode)
		}
		if !r.user.IsActive && !admin && !r.user.IsAdmin {
			goapp.Log.Info().Int64("user", r.from.ID).Msg("blocked")
			return r.send(ctx, texts.Get(r.lang, texts.UserBlocked))
		}
	}

	switch command(m.Text) {
	case "/start":
		return r.start(ctx)
	case "/balance":
		return r.balance(ctx)
	case "/transcribe":
		return r.transcribe(ctx)
	case "/cancel":
		return r.cancel(ctx)
	}
	if f, ok := takeFile(m); ok {
		return r.acceptFile(ctx, f)
	}
	return r.send(ctx, texts.Get(r.lang, texts.UnknownCommand))
}

func (r *request) start(ctx context.Context) error {
	bonus, err := r.welcomeBonus(ctx)
	if err != nil {
		return err
	}
	u, err := r.data.DB.CreateUser(ctx, &persistence.User{TelegramID: r.from.ID, Username: utils.ToSQLStr(r.from.Username),
		FirstName: utils.ToSQLStr(r.from.FirstName), LanguageCode: r.from.LanguageCode}, bonus)
	if err != nil {
		return err
	}
	goapp.Log.Info().Int64("user", u.TelegramID).Float64("balance", u.Balance).Msg("started")
	return r.send(ctx, texts.Get(r.lang, texts.Welcome, u.DisplayName(), int(u.Balance)))
}

func (r *request) balance(ctx context.Context) error {
	if r.user == nil {
		return r.send(ctx, texts.Get(r.lang, texts.UserNotFound))
	}
	return r.send(ctx, texts.Get(r.lang, texts.Balance, int(r.user.Balance)))
}

func (r *request) transcribe(ctx context.Context) error {
	if r.user == nil {
		return r.send(ctx, texts.Get(r.lang, texts.UserNotFound))
	}
	ok, err := r.data.DB.SetChatStateUnless(ctx, r.chatID, persistence.ChatStateWaitingFile, persistence.ChatStateQueued)
	if err != nil {
		return err
	}
	if !ok {
		return r.send(ctx, texts.Get(r.lang, texts.Busy))
	}
	return r.send(ctx, texts.Get(r.lang, texts.SendAudioVideo))
}

func (r *request) cancel(ctx context.Context) error {
	if err := r.data.DB.ClearChatState(ctx, r.chatID); err != nil {
		return err
	}
	return r.send(ctx, texts.Get(r.lang, texts.Canceled))
}

func (r *request) acceptFile(ctx context.Context, f messages.File) error {
	if r.user == nil {
		return r.send(ctx, texts.Get(r.lang, texts.UserNotFound))
	}
	ok, err := r.data.DB.SwitchChatState(ctx, r.chatID, persistence.ChatStateWaitingFile, persistence.ChatStateQueued)
	if err != nil {
		return err
	}
	if !ok {
		st, err := r.data.DB.GetChatState(ctx, r.chatID)
		if err != nil {
			return err
		}
		if st == persistence.ChatStateQueued {
			return r.send(ctx, texts.Get(r.lang, texts.Busy))
		}
		return r.send(ctx, texts.Get(r.lang, texts.UnknownCommand))
	}
	msg := &messages.TranscribeMessage{QueueMessage: amessages.QueueMessage{ID: uuid.NewString()}, ChatID: r.chatID,
		UserID: r.from.ID, Language: r.lang, File: f}
	if err := r.data.MsgSender.SendMessage(ctx, msg, messages.Work); err != nil {
		// chat must accept the redelivered update
		if _, errS := r.data.DB.SwitchChatState(ctx, r.chatID, persistence.ChatStateQueued,
			persistence.ChatStateWaitingFile); errS != nil {
			goapp.Log.Error().Err(errS).Int64("chat", r.chatID).Msg("can't release chat state")
		}
		return err
	}
	goapp.Log.Info().Str("ID", msg.ID).Int64("user", r.from.ID).Str("kind", string(f.Kind)).Msg("queued")
	return r.send(ctx, texts.Get(r.lang, texts.Queued))
}

func (r *request) welcomeBonus(ctx context.Context) (float64, error) {
	v, err := r.data.DB.GetSetting(ctx, persistence.SettingWelcomeBonusMinutes)
	if err != nil {
		return 0, err
	}
	return utils.NumberOr(v, defaultWelcomeBonus), nil
}

func (r *request) send(ctx context.Context, text string) error {
	_, err := r.data.Messenger.SendMessage(ctx, r.chatID, text)
	return err
}

// command extracts "/cmd" from "/cmd@bot args"
func command(text string) string {
	f := strings.Fields(text)
	if len(f) == 0 || !strings.HasPrefix(f[0], "/") {
		return ""
	}
	res, _, _ := strings.Cut(f[0], "@")
	return strings.ToLower(res)
}

func takeFile(m *telegram.Message) (messages.File, bool) {
	mk := func(md *telegram.Media, k messages.FileKind) (messages.File, bool) {
		return messages.File{ID: md.FileID, Name: md.FileName, Kind: k, Size: md.FileSize}, true
	}
	switch {
	case m.Voice != nil:
		return mk(m.Voice, messages.KindVoice)
	case m.Audio != nil:
		return mk(m.Audio, messages.KindAudio)
	case m.Video != nil:
		return mk(m.Video, messages.KindVideo)
	case m.VideoNote != nil:
		return mk(m.VideoNote, messages.KindVideo)
	case m.Document != nil:
		return mk(m.Document, messages.KindDocument)
	}
	return messages.File{}, false
}
