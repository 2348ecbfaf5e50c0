package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kovalyov-valentin/news-ingest/internal/botkit"
	"github.com/kovalyov-valentin/news-ingest/internal/model"
)

type SourceDeleter interface {
	Delete(ctx context.Context, id int64) error
}

// ViewCmdDeleteSource removes a feed. Articles it produced stay published.
func ViewCmdDeleteSource(deleter SourceDeleter) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		chatID := update.Message.Chat.ID

		id, err := strconv.ParseInt(strings.TrimSpace(update.Message.CommandArguments()), 10, 64)
		if err != nil {
			_, sendErr := bot.Send(tgbotapi.NewMessage(chatID, "Usage: /deletesource <id>"))
			return sendErr
		}

		err = deleter.Delete(ctx, id)
		switch {
		case errors.Is(err, model.ErrNotFound):
			_, sendErr := bot.Send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Source %d not found", id)))
			return sendErr
		case err != nil:
			return err
		}

		if _, err := bot.Send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Source %d deleted", id))); err != nil {
			return err
		}
		return nil
	}
}
