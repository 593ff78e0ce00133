package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/WhyMan1/bot-reality/internal/checker"
	"github.com/WhyMan1/bot-reality/internal/config"
	"github.com/WhyMan1/bot-reality/internal/delivery"
	"github.com/WhyMan1/bot-reality/internal/geoip"
	"github.com/WhyMan1/bot-reality/internal/handlers"
	"github.com/WhyMan1/bot-reality/internal/models"
	"github.com/WhyMan1/bot-reality/internal/store"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/levels"
)

const cacheSweepInterval = 24 * time.Hour

// Application represents the main application structure
type Application struct {
	config      *config.Config
	store       *store.Store
	locator     geoip.Locator
	taskHandler *handlers.TaskHandler
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewApplication creates and initializes a new application instance
func NewApplication() (*Application, error) {
	app := &Application{}

	if err := app.initialize(); err != nil {
		return nil, err
	}

	return app, nil
}

// initialize sets up all application components
func (app *Application) initialize() error {
	app.config = config.Load()
	if err := app.config.Validate(); err != nil {
		return err
	}

	app.setupLogging(app.config.App.LogLevel)

	// Context for graceful shutdown; also bounds the sender rate limiter
	app.ctx, app.cancel = context.WithCancel(context.Background())

	if err := app.initializeStore(); err != nil {
		return err
	}

	return app.initializeTaskHandler()
}

// setupLogging configures gologger based on the log level
func (app *Application) setupLogging(logLevel string) {
	levelMap := map[string]levels.Level{
		"debug":   levels.LevelDebug,
		"info":    levels.LevelInfo,
		"warning": levels.LevelWarning,
		"warn":    levels.LevelWarning,
		"error":   levels.LevelError,
		"fatal":   levels.LevelFatal,
	}

	if level, exists := levelMap[strings.ToLower(logLevel)]; exists {
		gologger.DefaultLogger.SetMaxLevel(level)
	} else {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelInfo)
		gologger.Warning().Msgf("Unknown log level '%s', defaulting to 'info'", logLevel)
	}
}

// initializeStore connects the shared Redis store
func (app *Application) initializeStore() error {
	app.store = store.New(
		app.config.Redis,
		time.Duration(app.config.App.CacheTTL)*time.Second,
		time.Duration(app.config.App.PendingTTL)*time.Second,
	)

	if err := app.store.HealthCheck(context.Background()); err != nil {
		gologger.Warning().Msgf("Store health check failed: %v", err)
	}

	return nil
}

// initializeTaskHandler creates the task handler with all dependencies
func (app *Application) initializeTaskHandler() error {
	resolver, err := checker.NewResolver(app.config.App.DNSResolvers)
	if err != nil {
		return fmt.Errorf("failed to initialize DNS resolver: %w", err)
	}

	app.locator = geoip.NewLocator(app.config.App.GeoIP2DBPath)
	if app.locator.Enabled() {
		gologger.Info().Msgf("Offline geolocation enabled (%s)", app.config.App.GeoIP2DBPath)
	}

	chk := checker.New(app.config, resolver, app.locator)

	var messenger delivery.Messenger
	if app.config.Telegram.BotToken != "" {
		messenger = delivery.NewTelegramSender(app.ctx, app.config.Telegram.BotToken)
	} else {
		gologger.Warning().Msg("No bot token configured. Results will be logged and dropped.")
		messenger = delivery.NoopMessenger{}
	}

	router := delivery.NewRouter(messenger, app.config.Telegram.GroupOutputMode, app.config.Retry.Delivery)
	app.taskHandler = handlers.NewTaskHandler(app.config, app.store, chk, router)

	return nil
}

// Start begins the application's main processing loop
func (app *Application) Start(shutdownChan chan struct{}) error {
	processingErr := make(chan error, 1)
	go app.startTaskProcessing(processingErr)
	go app.startCacheSweep()

	return app.waitForShutdown(processingErr, shutdownChan)
}

// startTaskProcessing drains the dispatch queue until the context ends.
// Undecodable records are dropped with a log line; handler failures do not
// stop the loop.
func (app *Application) startTaskProcessing(processingErr chan<- error) {
	popTimeout := time.Duration(app.config.App.QueuePopTimeout) * time.Second

	gologger.Info().Msg("Worker started, waiting for tasks")

	for {
		if err := app.ctx.Err(); err != nil {
			processingErr <- nil
			return
		}

		payload, ok, err := app.store.Dequeue(app.ctx, popTimeout)
		if err != nil {
			if app.ctx.Err() != nil {
				processingErr <- nil
				return
			}
			gologger.Error().Msgf("Queue pop failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if !ok {
			continue
		}

		task, err := models.DecodeTask(payload)
		if err != nil {
			gologger.Error().Msgf("Dropping undecodable task record: %v", err)
			continue
		}

		if err := app.taskHandler.HandleTask(app.ctx, task); err != nil {
			gologger.Error().Msgf("Task for %s failed: %v", task.Domain, err)
		}
	}
}

// startCacheSweep clears the result cache once a day
func (app *Application) startCacheSweep() {
	ticker := time.NewTicker(cacheSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			if err := app.store.ClearCache(app.ctx); err != nil {
				gologger.Warning().Msgf("Cache sweep failed: %v", err)
			}
		}
	}
}

// waitForShutdown waits for shutdown signals and handles graceful shutdown
func (app *Application) waitForShutdown(processingErr <-chan error, shutdownChan chan struct{}) error {
	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-signalChannel:
		return app.handleGracefulShutdown(shutdownChan)
	case err := <-processingErr:
		return err
	}
}

// handleGracefulShutdown performs graceful shutdown of the application
func (app *Application) handleGracefulShutdown(shutdownChan chan struct{}) error {
	select {
	case shutdownChan <- struct{}{}:
		gologger.Info().Msg("Shutting down gracefully...")
	default:
	}

	app.cancel()

	if app.store != nil {
		if err := app.store.Close(); err != nil {
			gologger.Warning().Msgf("Store close failed: %v", err)
		}
	}
	if app.locator != nil {
		if err := app.locator.Close(); err != nil {
			gologger.Warning().Msgf("GeoIP2 close failed: %v", err)
		}
	}

	select {
	case shutdownChan <- struct{}{}:
		gologger.Info().Msg("Shutdown complete")
	default:
	}

	return nil
}
