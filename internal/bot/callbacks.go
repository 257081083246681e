package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cmdStatus  = "status"
	cmdEntries = "entries"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	data := cb.Data
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	action, arg, ok := strings.Cut(data, ":")
	if !ok {
		return
	}

	b.log.Info("callback",
		"action", action,
		"arg", arg,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	switch action {
	case cmdStatus:
		b.handleStatus(chatID)
	case cmdEntries:
		b.handleEntries(ctx, chatID, arg)
	}
}
