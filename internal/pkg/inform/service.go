package inform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/messages"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/airenas/scribe/internal/pkg/utils/handler"
	"github.com/jordan-wright/email"
	"github.com/vgarvardt/gue/v5"
)

const emailSubject = "Scribe: admin notification"

// Sender send emails
type Sender interface {
	Send(email *email.Email) error
}

// Messenger sends chat messages
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient    *gue.Client
	WorkerCount  int
	Testing      bool
	Messenger    Messenger
	AdminChatIDs []int64
	// EmailSender is optional, mails are sent only if EmailTo is not empty
	EmailSender Sender
	EmailFrom   string
	EmailTo     []string
	Location    *time.Location
}

// StartWorkerService starts the event queue listener service to listen for admin notifications
// returns channel for tracking when all jobs are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Int("chats", len(data.AdminChatIDs)).Int("emails", len(data.EmailTo)).Msg("Starting listen for messages")

	wm := gue.WorkMap{
		messages.Inform: handler.Create(data, handleAdmin, handler.DefaultOpts[messages.AdminMessage]().
			WithTimeout(time.Minute).WithMaxAttempts(3).WithBackoff(handler.DefaultBackoffOrTest(data.Testing))),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Inform),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("scribe-inform"),
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

// handleAdmin delivers the text to every channel.
// Fails only if nothing was delivered, so a retry may not duplicate a message.
func handleAdmin(ctx context.Context, m *messages.AdminMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Msg("handling")
	text := prepareText(data, m)

	sent, failed := 0, 0
	for _, id := range data.AdminChatIDs {
		if _, err := data.Messenger.SendMessage(ctx, id, text); err != nil {
			goapp.Log.Error().Err(err).Int64("chat", id).Msg("can't send to admin")
			failed++
			continue
		}
		sent++
	}
	if len(data.EmailTo) > 0 {
		if err := data.EmailSender.Send(makeEmail(data, text)); err != nil {
			goapp.Log.Error().Err(err).Strs("to", data.EmailTo).Msg("can't send email")
			failed++
		} else {
			sent++
		}
	}
	goapp.Log.Info().Str("ID", m.ID).Int("sent", sent).Int("failed", failed).Msg("done")
	if sent == 0 && failed > 0 {
		return fmt.Errorf("can't deliver %s to any of %d channels", m.ID, failed)
	}
	return nil
}

func prepareText(data *ServiceData, m *messages.AdminMessage) string {
	if m.At.IsZero() {
		return m.Text
	}
	return fmt.Sprintf("%s\n%s", m.Text, toLocalTime(data, m.At).Format("2006-01-02 15:04:05"))
}

func makeEmail(data *ServiceData, text string) *email.Email {
	res := email.NewEmail()
	res.From = data.EmailFrom
	res.To = data.EmailTo
	res.Subject = emailSubject
	res.Text = []byte(text)
	return res
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.Messenger == nil {
		return fmt.Errorf("no Messenger")
	}
	if len(data.AdminChatIDs) == 0 && len(data.EmailTo) == 0 {
		return fmt.Errorf("no admin chats or emails")
	}
	if len(data.EmailTo) > 0 && data.EmailSender == nil {
		return fmt.Errorf("no EmailSender")
	}
	if len(data.EmailTo) > 0 && strings.TrimSpace(data.EmailFrom) == "" {
		return fmt.Errorf("no email from")
	}
	return nil
}

func toLocalTime(data *ServiceData, t time.Time) time.Time {
	if data.Location != nil {
		return t.In(data.Location)
	}
	return t
}
