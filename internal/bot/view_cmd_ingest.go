package bot

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kovalyov-valentin/news-ingest/internal/botkit"
	"github.com/kovalyov-valentin/news-ingest/internal/ingest"
	"github.com/kovalyov-valentin/news-ingest/internal/model"
	"github.com/kovalyov-valentin/news-ingest/internal/notifier"
)

type BatchRunner interface {
	RunOnce(ctx context.Context) (model.BatchSummary, error)
}

// ViewCmdIngest runs an ingestion pass on demand and replies with its summary.
func ViewCmdIngest(runner BatchRunner) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		chatID := update.Message.Chat.ID

		summary, err := runner.RunOnce(ctx)
		switch {
		case errors.Is(err, ingest.ErrNoActiveSources):
			_, sendErr := bot.Send(tgbotapi.NewMessage(chatID, "No active sources found"))
			return sendErr
		case errors.Is(err, ingest.ErrPrecondition):
			_, sendErr := bot.Send(tgbotapi.NewMessage(chatID, "Editorial author is not provisioned, nothing was ingested"))
			return sendErr
		case err != nil:
			return err
		}

		reply := tgbotapi.NewMessage(chatID, notifier.FormatBatch(summary))
		reply.ParseMode = tgbotapi.ModeMarkdownV2
		reply.DisableWebPagePreview = true

		if _, err := bot.Send(reply); err != nil {
			return err
		}
		return nil
	}
}
