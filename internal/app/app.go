package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"wadigest/internal/dedupe"
	"wadigest/internal/gateway"
	"wadigest/internal/httpapi"
	"wadigest/internal/infra/config"
	"wadigest/internal/infra/logger"
	"wadigest/internal/llm"
	"wadigest/internal/service/groupsync"
	"wadigest/internal/service/handler"
	"wadigest/internal/service/keepalive"
	"wadigest/internal/service/router"
	"wadigest/internal/service/spam"
	"wadigest/internal/service/summarize"
	"wadigest/internal/store"
)

const askUnavailableReply = "Group knowledge lookups aren't available yet. I can summarize the recent conversation if you ask me to."

// App is the main application orchestrator.
type App struct {
	Config    *config.Config
	Log       *logger.Logger
	Store     *store.Store
	Gateway   gateway.Client
	Handler   *handler.Handler
	Scheduler *summarize.Scheduler
	GroupSync *groupsync.Service
	KeepAlive *keepalive.Prober
	Server    *httpapi.Server
	Cron      *cron.Cron

	// Sub-stores for convenience
	MessageStore *store.MessageStore
	GroupStore   *store.GroupStore
	SenderStore  *store.SenderStore

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new App instance.
func New(cfg *config.Config) (*App, error) {
	log := logger.New("wadigest", cfg.LogLevel)
	log.Infof("Initializing wadigest...")

	// Ensure store path exists
	if err := cfg.EnsureStorePath(); err != nil {
		return nil, fmt.Errorf("failed to ensure store path: %w", err)
	}

	// Create store
	dbPath := cfg.StorePath + "/wadigest.db"
	appStore, err := store.New(dbPath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	// Create sub-stores
	messageStore := store.NewMessageStore(appStore)
	groupStore := store.NewGroupStore(appStore)
	senderStore := store.NewSenderStore(appStore)

	// Create gateway client and completion client
	gw := gateway.NewRESTClient(&cfg.Gateway, log)
	completer := llm.NewClient(&cfg.LLM)

	// Create services
	guard := dedupe.NewDefault()
	notifier := spam.NewNotifier(gw, log)
	action := summarize.NewAction(messageStore, groupStore, gw, completer, log)
	scheduler := summarize.NewScheduler(messageStore, groupStore, gw, completer, log)

	rt := router.New(completer, gw, log)
	rt.Register(router.IntentSummarize, action.Summarize)
	rt.Register(router.IntentAskQuestion, func(ctx context.Context, msg *store.Message, _ *store.Group) error {
		return gw.SendMessage(ctx, msg.ChatJID, askUnavailableReply, msg.ID)
	})

	msgHandler := handler.New(messageStore, groupStore, senderStore, gw, guard, rt, notifier, log)
	srv := httpapi.New(msgHandler, scheduler, messageStore, groupStore, log)

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		Config:       cfg,
		Log:          log,
		Store:        appStore,
		Gateway:      gw,
		Handler:      msgHandler,
		Scheduler:    scheduler,
		GroupSync:    groupsync.New(appStore, groupStore, senderStore, gw, log),
		KeepAlive:    keepalive.New(gw, log),
		Server:       srv,
		Cron:         cron.New(),
		MessageStore: messageStore,
		GroupStore:   groupStore,
		SenderStore:  senderStore,
		ctx:          ctx,
		cancel:       cancel,
	}

	// Periodic summary cycle
	spec := fmt.Sprintf("@every %s", cfg.SummaryInterval)
	if _, err := app.Cron.AddFunc(spec, app.runSummaryCycle); err != nil {
		appStore.Close()
		cancel()
		return nil, fmt.Errorf("failed to schedule summary cycle: %w", err)
	}

	return app, nil
}

// Run starts the application.
func (a *App) Run() error {
	a.Log.Infof("Starting wadigest...")

	// Setup signal handling to cancel context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		a.Log.Infof("Received %v, initiating shutdown...", sig)
		a.cancel()
	}()

	// Background workers
	go a.GroupSync.Bootstrap(a.ctx)
	go a.KeepAlive.Run(a.ctx)
	a.Cron.Start()

	errCh := make(chan error, 1)
	go func() {
		if err := a.Server.Start(a.Config.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	a.Log.Infof("wadigest is running on %s. Press Ctrl+C to stop.", a.Config.ListenAddr)

	select {
	case <-a.ctx.Done():
		return a.Shutdown()
	case err := <-errCh:
		a.Shutdown()
		return err
	}
}

// runSummaryCycle is the cron entrypoint for the periodic summary fan-out.
func (a *App) runSummaryCycle() {
	if err := a.Scheduler.Run(a.ctx); err != nil {
		a.Log.Errorf("Summary cycle finished with errors: %v", err)
	}
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.cancel()
	<-a.Cron.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.Log.Warnf("HTTP shutdown error: %v", err)
	}
	return a.Store.Close()
}
