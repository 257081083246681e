package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Giveaway auto-enter is running.

You will get a message for every giveaway entered.

Use /status to see what it is doing and /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `/status — current page, level, coins and next run
/entries [n] — last n entry attempts (1-50, default 10)
/help — this message`)
}

func (b *Bot) handleStatus(chatID int64) {
	if b.status == nil {
		b.reply(chatID, "Status is not available.")
		return
	}
	msg := tgbotapi.NewMessage(chatID, FormatStatus(b.status.Status(), b.now()))
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Refresh", cmdStatus+":0"),
			tgbotapi.NewInlineKeyboardButtonData("Entries", fmt.Sprintf("%s:%d", cmdEntries, defaultEntries)),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send status", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleEntries(ctx context.Context, chatID int64, args string) {
	limit, err := ParseLimitArg(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	entries, err := b.journal.ListEntries(ctx, limit)
	if err != nil {
		b.log.Error("list entries", "error", err)
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatEntryList(entries))
}
