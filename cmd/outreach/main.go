package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"course_outreach/internal/app"
	"course_outreach/internal/infra/config"
	idb "course_outreach/internal/infra/database"
	"course_outreach/internal/infra/logger"
	"course_outreach/internal/infra/mail"
	"course_outreach/internal/infra/metrics"
	"course_outreach/internal/infra/render"
	"course_outreach/internal/infra/scheduler"
	"course_outreach/internal/infra/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	mainLogger := logger.Get().WithField("component", "main")
	mainLogger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"admin_id":    cfg.AdminTelegramID,
		"cron_spec":   cfg.CronSpecOutreach,
	}).Info("Course outreach starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established successfully.")

	// Initialize Repositories
	courseNames := idb.NewCachedCourseNames(idb.NewPostgresCourseRepository(db), cfg.CourseNameCacheTTL)
	progressRepo := idb.NewPostgresProgressRepository(db, courseNames)
	ledgerRepo := idb.NewPostgresLedgerRepository(db)
	runRepo := idb.NewPostgresRunRepository(db)
	studentRepo := idb.NewPostgresStudentRepository(db)
	mainLogger.Info("Repositories initialized.")

	renderer, err := render.New()
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not parse message templates")
	}
	mainLogger.WithField("template_sets", renderer.Sets()).Info("Message templates loaded.")

	mailer := mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword,
		cfg.MailFrom, cfg.MailFromName, logger.Get().WithField("component", "smtp_mailer"))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.MustRegister(registry)
	metrics.StartServer(ctx, logger.Get().WithField("component", "metrics"), cfg.MetricsAddr, registry)

	// Initialize Telegram Bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			errLog := logger.Get().WithField("component", "telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				errLog = errLog.WithFields(logrus.Fields{
					"text":      c.Text(),
					"sender_id": c.Sender().ID,
					"chat_id":   c.Chat().ID,
				})
			}
			errLog.Error("Telegram handler failed")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}
	telegramClient := telegram.NewTelebotAdapter(bot)

	outreachService := app.NewOutreachServiceImpl(
		progressRepo,
		ledgerRepo,
		runRepo,
		mailer,
		renderer,
		telegramClient,
		logger.NewStuckLogger(logrus.NewEntry(logger.Get())),
		logrus.NewEntry(logger.Get()),
		cfg.AdminTelegramID,
		cfg.OutreachWorkers,
	)
	adminService := app.NewAdminService(outreachService, studentRepo, cfg.AdminTelegramID)
	mainLogger.Info("Services initialized.")

	// Register Handlers
	handlerLogger := logger.Get().WithField("component", "telegram")
	telegram.RegisterBotCommands(bot, cfg.AdminTelegramID, handlerLogger)
	telegram.RegisterAdminHandlers(ctx, bot, adminService, renderer, cfg.AdminTelegramID, cfg.Location, handlerLogger)
	mainLogger.Info("Telegram handlers registered.")

	outreachScheduler := scheduler.NewOutreachScheduler(outreachService, logrus.NewEntry(logger.Get()), cfg.CronSpecOutreach, cfg.Location)
	if err := outreachScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start outreach scheduler")
	}

	mainLogger.Info("Application setup complete. Bot and Scheduler are running.")
	go bot.Start()

	<-ctx.Done()

	mainLogger.Info("Shutting down application...")
	outreachScheduler.Stop()
	bot.Stop()
	mainLogger.Info("Application shut down gracefully.")
}
