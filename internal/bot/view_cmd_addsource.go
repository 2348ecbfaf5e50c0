package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kovalyov-valentin/news-ingest/internal/botkit"
	"github.com/kovalyov-valentin/news-ingest/internal/botkit/markup"
	"github.com/kovalyov-valentin/news-ingest/internal/ingest"
	"github.com/kovalyov-valentin/news-ingest/internal/model"
)

type SourceStorage interface {
	Add(ctx context.Context, source model.Source) (int64, error)
}

func ViewCmdAddSource(storage SourceStorage) botkit.ViewFunc {
	type addSourceArgs struct {
		Name     string `json:"name"`
		URL      string `json:"url"`
		Category string `json:"category"`
	}

	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		args, err := botkit.ParseJSON[addSourceArgs](update.Message.CommandArguments())
		if err == nil && strings.TrimSpace(args.URL) == "" {
			err = errors.New("url is required")
		}
		if err != nil {
			reply := tgbotapi.NewMessage(update.Message.Chat.ID, fmt.Sprintf(
				"Invalid arguments: %v\nUsage: /addsource {\"name\": \"...\", \"url\": \"...\", \"category\": \"...\"}", err,
			))
			_, sendErr := bot.Send(reply)
			return sendErr
		}

		source := model.Source{
			Name:     args.Name,
			FeedURL:  strings.TrimSpace(args.URL),
			Category: ingest.NormalizeCategory(args.Category),
			Active:   true,
		}
		if source.Name == "" {
			source.Name = source.FeedURL
		}

		sourceID, err := storage.Add(ctx, source)
		if err != nil {
			return err
		}

		reply := tgbotapi.NewMessage(update.Message.Chat.ID, fmt.Sprintf(
			"Source added with ID `%d` in category *%s*\\. Use this ID to manage the source\\.",
			sourceID,
			markup.EscapeForMarkdown(source.Category),
		))
		reply.ParseMode = tgbotapi.ModeMarkdownV2

		if _, err := bot.Send(reply); err != nil {
			return err
		}

		return nil
	}
}
