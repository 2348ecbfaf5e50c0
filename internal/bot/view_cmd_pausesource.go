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

type SourceActivator interface {
	SetActive(ctx context.Context, id int64, active bool) error
}

// ViewCmdPauseSource takes a feed out of ingestion passes without deleting it.
func ViewCmdPauseSource(activator SourceActivator) botkit.ViewFunc {
	return viewCmdSetActive(activator, "pausesource", false)
}

func ViewCmdResumeSource(activator SourceActivator) botkit.ViewFunc {
	return viewCmdSetActive(activator, "resumesource", true)
}

func viewCmdSetActive(activator SourceActivator, cmd string, active bool) botkit.ViewFunc {
	state := "paused"
	if active {
		state = "resumed"
	}

	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		chatID := update.Message.Chat.ID

		id, err := strconv.ParseInt(strings.TrimSpace(update.Message.CommandArguments()), 10, 64)
		if err != nil {
			_, sendErr := bot.Send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Usage: /%s <id>", cmd)))
			return sendErr
		}

		err = activator.SetActive(ctx, id, active)
		switch {
		case errors.Is(err, model.ErrNotFound):
			_, sendErr := bot.Send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Source %d not found", id)))
			return sendErr
		case err != nil:
			return err
		}

		if _, err := bot.Send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Source %d %s", id, state))); err != nil {
			return err
		}
		return nil
	}
}
