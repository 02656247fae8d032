package worker

import (
	"context"

	"github.com/airenas/go-app/pkg/goapp"
)

// progress is the transient status message in the user chat
type progress struct {
	m      Messenger
	chatID int64
	msgID  int
	text   string
}

func startProgress(ctx context.Context, m Messenger, chatID int64, text string) *progress {
	res := &progress{m: m, chatID: chatID, text: text}
	id, err := m.SendMessage(ctx, chatID, text)
	if err != nil {
		goapp.Log.Warn().Err(err).Int64("chat", chatID).Msg("can't send progress")
		return res
	}
	res.msgID = id
	return res
}

// update edits the message only if the text changes
func (p *progress) update(ctx context.Context, text string) {
	if p == nil || p.msgID == 0 || p.text == text {
		return
	}
	if err := p.m.EditMessage(ctx, p.chatID, p.msgID, text); err != nil {
		goapp.Log.Warn().Err(err).Int64("chat", p.chatID).Msg("can't edit progress")
		return
	}
	p.text = text
}

// remove deletes the message, a failed delete is retried by the next call
func (p *progress) remove(ctx context.Context) {
	if p == nil || p.msgID == 0 {
		return
	}
	if err := p.m.DeleteMessage(ctx, p.chatID, p.msgID); err != nil {
		goapp.Log.Warn().Err(err).Int64("chat", p.chatID).Msg("can't delete progress")
		return
	}
	p.msgID = 0
}
