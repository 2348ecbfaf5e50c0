package notifier

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kovalyov-valentin/news-ingest/internal/botkit/markup"
	"github.com/kovalyov-valentin/news-ingest/internal/model"
	"github.com/samber/lo"
)

const maxListedErrors = 5

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts the outcome of ingestion passes to a Telegram channel.
type Notifier struct {
	bot       Sender
	channelID int64
}

func New(bot Sender, channelID int64) *Notifier {
	return &Notifier{
		bot:       bot,
		channelID: channelID,
	}
}

// ReportBatch sends the summary of a pass. Passes that neither stored anything
// nor failed anywhere are not worth a message.
func (n *Notifier) ReportBatch(_ context.Context, summary model.BatchSummary) error {
	if summary.TotalStored == 0 && len(summary.AllErrors) == 0 {
		return nil
	}

	msg := tgbotapi.NewMessage(n.channelID, FormatBatch(summary))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send batch report: %w", err)
	}
	return nil
}

// FormatBatch renders a summary as a MarkdownV2 message.
func FormatBatch(summary model.BatchSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*Ingestion pass finished*\nStored: %d\nSkipped: %d\nErrors: %d",
		summary.TotalStored, summary.TotalSkipped, len(summary.AllErrors))

	active := lo.Filter(summary.SourceResults, func(r model.IngestionResult, _ int) bool {
		return r.Stored > 0 || len(r.Errors) > 0
	})
	if len(active) > 0 {
		b.WriteString("\n")
	}
	for _, r := range active {
		fmt.Fprintf(&b, "\n• *%s*: stored %d, skipped %d, errors %d",
			markup.EscapeForMarkdown(r.SourceName), r.Stored, r.Skipped, len(r.Errors))
	}

	if len(summary.AllErrors) > 0 {
		b.WriteString("\n")
	}
	listed := summary.AllErrors
	if len(listed) > maxListedErrors {
		listed = listed[:maxListedErrors]
	}
	for _, e := range listed {
		fmt.Fprintf(&b, "\n`%s` %s", e.Stage, markup.EscapeForMarkdown(e.Message))
	}
	if rest := len(summary.AllErrors) - maxListedErrors; rest > 0 {
		fmt.Fprintf(&b, "\n\\.\\.\\. and %d more", rest)
	}

	return b.String()
}
