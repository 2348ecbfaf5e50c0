package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kovalyov-valentin/news-ingest/internal/model"
)

type recordingSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if s.err != nil {
		return tgbotapi.Message{}, s.err
	}
	s.sent = append(s.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestReportBatch(t *testing.T) {
	sender := &recordingSender{}
	n := New(sender, -100)

	summary := model.BatchSummary{
		TotalStored:  2,
		TotalSkipped: 1,
		AllErrors:    []model.ItemError{{SourceID: 2, Stage: model.StageFetch, Message: "fetch http://x.io: unexpected status 503"}},
		SourceResults: []model.IngestionResult{
			{SourceID: 1, SourceName: "Hacker News", Stored: 2, Skipped: 1},
			{SourceID: 2, SourceName: "down.io", Errors: []model.ItemError{{Stage: model.StageFetch}}},
			{SourceID: 3, SourceName: "quiet", Skipped: 4},
		},
	}

	if err := n.ReportBatch(context.Background(), summary); err != nil {
		t.Fatalf("ReportBatch: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.sent))
	}

	msg := sender.sent[0]
	if msg.ChatID != -100 || msg.ParseMode != tgbotapi.ModeMarkdownV2 {
		t.Errorf("unexpected message config %+v", msg)
	}
	for _, want := range []string{"Stored: 2", "*Hacker News*", `down\.io`, "`fetch`", `http://x\.io`} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("message %q does not contain %q", msg.Text, want)
		}
	}
	if strings.Contains(msg.Text, "quiet") {
		t.Errorf("sources without news or errors should not be listed: %q", msg.Text)
	}
}

func TestReportBatchSkipsEmptyPasses(t *testing.T) {
	sender := &recordingSender{}

	if err := New(sender, 1).ReportBatch(context.Background(), model.BatchSummary{TotalSkipped: 10}); err != nil {
		t.Fatalf("ReportBatch: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatal("nothing should be sent for an empty pass")
	}
}

func TestReportBatchSendError(t *testing.T) {
	sender := &recordingSender{err: errors.New("bot was kicked")}

	if err := New(sender, 1).ReportBatch(context.Background(), model.BatchSummary{TotalStored: 1}); err == nil {
		t.Fatal("expected an error")
	}
}

func TestFormatBatchTruncatesErrors(t *testing.T) {
	summary := model.BatchSummary{}
	for i := 0; i < 8; i++ {
		summary.AllErrors = append(summary.AllErrors, model.ItemError{Stage: model.StageWrite, Message: "boom"})
	}

	text := FormatBatch(summary)
	if got := strings.Count(text, "boom"); got != maxListedErrors {
		t.Errorf("listed %d errors; want %d", got, maxListedErrors)
	}
	if !strings.Contains(text, "and 3 more") {
		t.Errorf("missing remainder line in %q", text)
	}
}
