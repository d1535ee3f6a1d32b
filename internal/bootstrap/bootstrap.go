// Package bootstrap wires the reader server together: configuration,
// logging, storage, the audio pipeline and the transports, then runs
// the whole thing until a shutdown signal arrives.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"aristo-server-go/internal/domain/audiocache"
	"aristo-server-go/internal/domain/eventbus"
	"aristo-server-go/internal/domain/library"
	"aristo-server-go/internal/domain/overlay"
	"aristo-server-go/internal/domain/playback"
	"aristo-server-go/internal/domain/reader"
	"aristo-server-go/internal/domain/tts"
	platformconfig "aristo-server-go/internal/platform/config"
	platformerrors "aristo-server-go/internal/platform/errors"
	platformlogging "aristo-server-go/internal/platform/logging"
	platformstorage "aristo-server-go/internal/platform/storage"
	httptransport "aristo-server-go/internal/transport/http"
	"aristo-server-go/internal/transport/http/webapi"
	"aristo-server-go/internal/transport/ws"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config     *platformconfig.Config
	configPath string
	logger     *platformlogging.Logger

	db         *gorm.DB
	cache      *audiocache.Cache
	provider   tts.Provider
	library    *library.Service
	reader     *reader.Service
	controller *playback.Controller
	matcher    *overlay.Matcher
	feed       *ws.Feed
}

// Run drives the whole service lifecycle: initialisation, serving and
// graceful shutdown.
func Run(ctx context.Context) error {
	state := &appState{}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}

	defer func() {
		if state.controller != nil {
			state.controller.Stop()
		}
		if state.feed != nil {
			state.feed.Close()
		}
		if state.cache != nil {
			closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelClose()
			if err := state.cache.Close(closeCtx); err != nil {
				logger.WarnTag("Audio", "audio cache did not close cleanly: %v", err)
			}
		}
	}()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	if err := waitForShutdown(signalCtx, cancel, logger, group); err != nil {
		return err
	}

	logger.InfoTag("HTTP", "server stopped")
	logger.Close()
	return nil
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph lists the initialisation steps in dependency order.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "storage:open-database",
			Title:     "Open library database",
			DependsOn: []string{"config:load", "logging:init-provider"},
			Kind:      platformerrors.KindPersistence,
			Execute:   openDatabaseStep,
		},
		{
			ID:        "audio:init-cache",
			Title:     "Initialise audio cache",
			DependsOn: []string{"storage:open-database"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initCacheStep,
		},
		{
			ID:        "tts:init-provider",
			Title:     "Initialise synthesis provider",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initProviderStep,
		},
		{
			ID:        "reader:init-services",
			Title:     "Initialise reading services",
			DependsOn: []string{"storage:open-database", "audio:init-cache", "tts:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initReaderStep,
		},
		{
			ID:        "ws:init-feed",
			Title:     "Initialise event feed",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initFeedStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "config:load",
			"loading configuration failed", err)
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "logging:init-provider",
			"config not loaded")
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider",
			"initialising logging failed", err)
	}

	state.logger = logger
	platformlogging.DefaultLogger = logger

	source := state.configPath
	if source == "" {
		source = "defaults"
	}
	logger.InfoTag("HTTP", "logging ready [%s] config from %s", state.config.Log.Level, source)
	return nil
}

func openDatabaseStep(_ context.Context, state *appState) error {
	db, err := platformstorage.Open(state.config.Database.Path)
	if err != nil {
		return err
	}
	state.db = db
	return nil
}

func initCacheStep(_ context.Context, state *appState) error {
	persisted, err := buildPersistedStore(state.config, state.db, state.logger)
	if err != nil {
		return err
	}
	state.cache = audiocache.New(persisted, state.config.Audio.DecodeTimeout, state.logger)
	return nil
}

func buildPersistedStore(
	config *platformconfig.Config,
	db *gorm.DB,
	logger *platformlogging.Logger,
) (audiocache.Persisted, error) {
	driver := strings.ToLower(strings.TrimSpace(config.Cache.Driver))
	storeCfg := audiocache.Config{Driver: driver}

	switch driver {
	case "", audiocache.DriverSQLite:
		storeCfg.Driver = audiocache.DriverSQLite
	case audiocache.DriverMemory:
	case audiocache.DriverRedis:
		storeCfg.Redis = &audiocache.RedisConfig{
			Addr:     config.Cache.Redis.Addr,
			Username: config.Cache.Redis.Username,
			Password: config.Cache.Redis.Password,
			DB:       config.Cache.Redis.DB,
			Prefix:   config.Cache.Redis.Prefix,
		}
		if storeCfg.Redis.Addr == "" {
			return nil, platformerrors.New(
				platformerrors.KindBootstrap,
				"audio:init-cache",
				"redis cache addr is required",
			)
		}
	default:
		logger.WarnTag("Audio", "unsupported cache driver %s, falling back to sqlite", driver)
		storeCfg.Driver = audiocache.DriverSQLite
	}

	persisted, err := audiocache.NewPersisted(storeCfg, audiocache.Dependencies{SQLiteDB: db})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindBootstrap, "audio:init-cache",
			"creating persisted audio store failed", err)
	}
	return persisted, nil
}

func initProviderStep(_ context.Context, state *appState) error {
	provider, err := tts.New(state.config.TTS, state.logger)
	if err != nil {
		return err
	}
	state.provider = provider
	state.logger.InfoTag("TTS", "synthesis provider ready: %s", provider.Name())
	return nil
}

func initReaderStep(_ context.Context, state *appState) error {
	config := state.config
	bus := eventbus.Get()

	state.library = library.NewService(state.db, state.logger)

	settings := reader.NewSettingsStore(state.db, reader.Settings{
		Voice:  config.Reader.Voice,
		Model:  config.Reader.Model,
		Volume: config.Reader.Volume,
		Rate:   config.Reader.Rate,
	}, state.logger)

	state.reader = reader.NewService(
		state.library,
		state.cache,
		state.provider,
		settings,
		bus,
		config.Audio,
		state.logger,
	)

	state.controller = playback.NewController(playback.TimerEngine{}, bus, state.logger)
	state.matcher = overlay.NewMatcher(state.logger)
	return nil
}

func initFeedStep(_ context.Context, state *appState) error {
	feed, err := ws.NewFeed(eventbus.Get(), state.logger)
	if err != nil {
		return err
	}
	state.feed = feed
	return nil
}

func startHTTPServer(
	state *appState,
	g *errgroup.Group,
	groupCtx context.Context,
) (*http.Server, error) {
	config := state.config
	logger := state.logger

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config: config,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	router := httpRouter.Engine

	staticRoot := config.Web.StaticDir
	if staticRoot == "" {
		staticRoot = "./web"
	}
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, webapi.APIResponse{
				Success: false,
				Message: "api not found",
				Code:    http.StatusNotFound,
			})
			return
		}
		c.File(staticRoot + "/index.html")
	})

	webapiService := webapi.NewService(
		config,
		logger,
		state.library,
		state.reader,
		state.controller,
		state.matcher,
	)
	webapiService.Register(httpRouter.API)
	router.GET("/ws", state.feed.Handle)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Server.IP, config.Server.Port),
		Handler: router,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "server listening on http://%s", httpServer.Addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "server shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "server shut down cleanly")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("HTTP", "shutdown signal received (%v), cleaning up", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("HTTP", "error during shutdown: %v", err)
			return err
		}
		logger.InfoTag("HTTP", "all services stopped")
	case <-time.After(15 * time.Second):
		timeoutErr := errors.New("shutdown timed out")
		logger.ErrorTag("HTTP", "shutdown timed out, forcing exit")
		return timeoutErr
	}
	return nil
}
