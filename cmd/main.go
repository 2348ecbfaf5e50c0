package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kovalyov-valentin/news-ingest/internal/api"
	"github.com/kovalyov-valentin/news-ingest/internal/bot"
	"github.com/kovalyov-valentin/news-ingest/internal/bot/middleware"
	"github.com/kovalyov-valentin/news-ingest/internal/botkit"
	"github.com/kovalyov-valentin/news-ingest/internal/config"
	"github.com/kovalyov-valentin/news-ingest/internal/ingest"
	"github.com/kovalyov-valentin/news-ingest/internal/logging"
	"github.com/kovalyov-valentin/news-ingest/internal/model"
	"github.com/kovalyov-valentin/news-ingest/internal/notifier"
	"github.com/kovalyov-valentin/news-ingest/internal/objectstore"
	"github.com/kovalyov-valentin/news-ingest/internal/slug"
	"github.com/kovalyov-valentin/news-ingest/internal/source"
	"github.com/kovalyov-valentin/news-ingest/internal/storage"
	"github.com/kovalyov-valentin/news-ingest/internal/summary"
	"github.com/kovalyov-valentin/news-ingest/internal/webhook"
)

const (
	shutdownTimeout   = 10 * time.Second
	botCommandTimeout = 5 * time.Minute
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to load .env", "err", err)
	}

	cfg := config.Get()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Warn("falling back to info level", "err", err)
		logger, _ = logging.New("info")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := sqlx.Connect("postgres", cfg.DatabaseDSN)
	if err != nil {
		log.Error("failed to connect to database", "err", err)
		return
	}
	defer db.Close()

	if err := storage.Migrate(ctx, db); err != nil {
		log.Error("failed to migrate database", "err", err)
		return
	}

	var (
		articleStorage  = storage.NewArticleStorage(db)
		sourceStorage   = storage.NewSourcePostgresStorage(db)
		categoryStorage = storage.NewCategoryStorage(db)
		authorStorage   = storage.NewAuthorStorage(db)
	)

	if cfg.ProvisionEditorial {
		author, err := authorStorage.EnsureEditorial(ctx, cfg.EditorialEmail)
		if err != nil {
			log.Error("failed to provision editorial author", "err", err)
			return
		}
		log.Info("editorial author ready", "id", author.ID, "email", author.Email)
	}

	if cfg.SourcesFile != "" {
		if err := seedSources(ctx, sourceStorage, cfg.SourcesFile); err != nil {
			log.Error("failed to seed sources", "file", cfg.SourcesFile, "err", err)
			return
		}
	}

	var summarizer summary.Summarizer
	if cfg.OpenAIKey != "" {
		summarizer = summary.NewOpenAISummarizer(cfg.OpenAIKey, cfg.OpenAIPrompt)
	}

	var (
		excerpter = summary.NewExcerpter(summarizer)
		tokens    = slug.NewTokenSource()
		fetcher   = source.NewHTTPFetcher(cfg.FetchTimeout, fetchLimiter(cfg.FetchRate))
		parser    = source.NewParser()
		engine    = ingest.NewEngine(
			ingest.Deps{
				Articles:   articleStorage,
				Categories: categoryStorage,
				Sources:    sourceStorage,
				NewSource: func(s model.Source) ingest.Source {
					return source.NewRSSSourceFromModel(s, fetcher, parser)
				},
				Excerpter: excerpter,
				Tokens:    tokens,
			},
			ingest.Options{
				Workers:        cfg.Workers,
				FetchTimeout:   cfg.FetchTimeout,
				FilterKeywords: cfg.FilterKeywords,
			},
		)
	)

	var (
		botAPI   *tgbotapi.BotAPI
		reporter ingest.Reporter
	)
	if cfg.TelegramBotToken != "" {
		botAPI, err = tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			log.Error("failed to create bot", "err", err)
			return
		}
		if cfg.TelegramChannelID != 0 {
			reporter = notifier.New(botAPI, cfg.TelegramChannelID)
		}
	}

	scheduler := ingest.NewScheduler(
		engine,
		authorStorage,
		cfg.EditorialEmail,
		cfg.ArticlesPerCategory,
		cfg.FetchInterval,
		reporter,
	)

	var uploader webhook.Uploader
	objectConfig := objectstore.Config{
		Region:          cfg.AWSRegion,
		Bucket:          cfg.AWSBucketName,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	}
	if objectConfig.Configured() {
		s3, err := objectstore.NewS3(ctx, objectConfig)
		if err != nil {
			log.Error("failed to create object store", "err", err)
			return
		}
		uploader = s3
	} else {
		log.Warn("object storage is not configured, webhook images will be dropped")
	}

	ingestor := webhook.NewIngestor(webhook.Deps{
		Articles:   articleStorage,
		Categories: categoryStorage,
		Authors:    authorStorage,
		Uploader:   uploader,
		Excerpter:  excerpter,
		Tokens:     tokens,
	}, cfg.EditorialEmail)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.WebhookToken == "" {
		log.Warn("WEBHOOK_TOKEN is empty, the webhook rejects every request")
	}

	router := api.NewRouter(api.Handlers{
		Cron: api.NewCronHandler(scheduler, api.CronAuth{
			Secret:        cfg.CronSecret,
			Production:    cfg.Production(),
			TrustedHeader: cfg.TrustedCronHeader,
		}),
		Webhook:  api.NewWebhookHandler(ingestor, cfg.WebhookToken),
		Articles: api.NewArticlesHandler(articleStorage),
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel}),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	if cfg.FetchInterval > 0 {
		g.Go(func() error {
			return ignoreCanceled("scheduler", scheduler.Start(ctx))
		})
	}

	if botAPI != nil {
		newsBot := botkit.New(botAPI)
		newsBot.SetUpdateTimeout(botCommandTimeout)
		newsBot.RegisterCmdView("start", bot.ViewCmdStart())
		newsBot.RegisterCmdView("listsources", bot.ViewCmdListSources(sourceStorage))
		newsBot.RegisterCmdView(
			"addsource",
			middleware.AdminOnly(cfg.TelegramChannelID, bot.ViewCmdAddSource(sourceStorage)),
		)
		newsBot.RegisterCmdView(
			"deletesource",
			middleware.AdminOnly(cfg.TelegramChannelID, bot.ViewCmdDeleteSource(sourceStorage)),
		)
		newsBot.RegisterCmdView(
			"pausesource",
			middleware.AdminOnly(cfg.TelegramChannelID, bot.ViewCmdPauseSource(sourceStorage)),
		)
		newsBot.RegisterCmdView(
			"resumesource",
			middleware.AdminOnly(cfg.TelegramChannelID, bot.ViewCmdResumeSource(sourceStorage)),
		)
		newsBot.RegisterCmdView(
			"ingest",
			middleware.AdminOnly(cfg.TelegramChannelID, bot.ViewCmdIngest(scheduler)),
		)

		g.Go(func() error {
			return ignoreCanceled("bot", newsBot.Run(ctx))
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("stopped with error", "err", err)
		return
	}

	log.Info("stopped")
}

func ignoreCanceled(name string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		log.Info(name + " stopped")
		return nil
	}
	return err
}

// fetchLimiter paces outbound feed requests. A non-positive rate disables pacing.
func fetchLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}

	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func seedSources(ctx context.Context, sources *storage.SourcePostgresStorage, path string) error {
	seed, err := config.LoadSources(path)
	if err != nil {
		return err
	}

	for _, s := range seed {
		s.Category = ingest.NormalizeCategory(s.Category)
		if err := sources.Upsert(ctx, s); err != nil {
			return err
		}
	}

	log.Info("sources seeded", "count", len(seed), "file", path)
	return nil
}
