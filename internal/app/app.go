package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ZoomL-Olymp/EGSListener/internal/config"
	"github.com/ZoomL-Olymp/EGSListener/internal/metrics"
	"github.com/ZoomL-Olymp/EGSListener/internal/notify"
	"github.com/ZoomL-Olymp/EGSListener/internal/scheduler"
	"github.com/ZoomL-Olymp/EGSListener/internal/scrape"
	"github.com/ZoomL-Olymp/EGSListener/internal/store"
	"github.com/ZoomL-Olymp/EGSListener/internal/telegram"
)

type App struct {
	cfg      config.Config
	log      *zap.Logger
	bot      *tgbotapi.BotAPI
	renderer *scrape.ChromeRenderer
	httpSrv  *http.Server
	mets     *metrics.Set
	repo     store.Repo
	router   *telegram.Router
}

// New wires the bot API, rendering engine and ops HTTP server. A renderer
// that cannot start is a constructor error: without the ability to ever
// render the page there is no point running.
func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("bot api: %w", err)
	}
	bot.Debug = false

	renderer, err := scrape.NewChromeRenderer(cfg.ChromePath, cfg.RenderTimeout, log)
	if err != nil {
		return nil, fmt.Errorf("rendering engine: %w", err)
	}

	reg := prometheus.NewRegistry()
	mets := metrics.New(reg)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, renderer: renderer, httpSrv: srv, mets: mets}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting free-game listener",
		zap.String("store_url", a.cfg.StoreURL),
		zap.String("http", a.cfg.HTTPAddr),
	)

	// Open SQLite and run migrations.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	a.router = telegram.NewRouter(a.bot, a.log, a.repo)
	notifier := notify.New(a.repo, a.router, a.log, a.mets)
	extractor := scrape.NewExtractor(a.renderer, a.cfg.StoreURL, a.log)
	sched := scheduler.New(extractor, a.repo, notifier, a.log, a.mets)

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The control loop runs on its own goroutine; shutdown simply stops
	// scheduling further cycles.
	go sched.Run(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			a.renderer.Close()
			if a.repo != nil {
				_ = a.repo.Close()
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}
