package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kovalyov-valentin/news-ingest/internal/botkit"
)

const helpText = `News ingest bot.

/listsources - configured feeds
/addsource {"name": "...", "url": "...", "category": "..."} - add a feed
/deletesource <id> - remove a feed
/pausesource <id> - skip a feed during ingestion
/resumesource <id> - ingest a paused feed again
/ingest - run an ingestion pass now`

func ViewCmdStart() botkit.ViewFunc {
	return func(_ context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		if _, err := bot.Send(tgbotapi.NewMessage(update.Message.Chat.ID, helpText)); err != nil {
			return err
		}
		return nil
	}
}
