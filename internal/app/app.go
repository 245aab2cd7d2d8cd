// Package app wires configuration, storage, clients, and services together.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mharuka/kabuban/internal/clients/mailer"
	"github.com/mharuka/kabuban/internal/common"
	"github.com/mharuka/kabuban/internal/interfaces"
	"github.com/mharuka/kabuban/internal/services/alert"
	"github.com/mharuka/kabuban/internal/services/history"
	"github.com/mharuka/kabuban/internal/services/knowledge"
	"github.com/mharuka/kabuban/internal/services/portfolio"
	"github.com/mharuka/kabuban/internal/storage/surrealdb"
)

// App holds all initialized services and storage. It is the shared core
// behind cmd/kabuban-server and the HTTP layer.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	Sink             interfaces.NotificationSink
	PortfolioService interfaces.PortfolioService
	HistoryService   interfaces.HistoryService
	AlertService     interfaces.AlertService
	KnowledgeService interfaces.KnowledgeService
	StartupTime      time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, storage, the notification sink, and
// all services. configPath may be empty, in which case the default
// resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Load configuration - check provided path, KABUBAN_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("KABUBAN_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "kabuban.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/kabuban.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	location, err := config.Location()
	if err != nil {
		return nil, err
	}

	storageManager, err := surrealdb.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Notification sink: real SMTP when configured, otherwise log only
	var sink interfaces.NotificationSink
	if config.Notify.Host != "" {
		client, err := mailer.NewClient(config.Notify,
			mailer.WithLogger(logger),
			mailer.WithRateLimit(config.Notify.RateLimit),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mailer: %w", err)
		}
		sink = client
	} else {
		logger.Warn().Msg("SMTP host not configured - notifications will be logged only")
		sink = mailer.NewLogSink(logger)
	}

	locks := common.NewKeyedMutex()

	alertService := alert.NewService(storageManager, sink, locks, logger)
	portfolioService := portfolio.NewService(storageManager, locks, logger)
	historyService := history.NewService(storageManager, alertService, locks, location, logger)
	knowledgeService := knowledge.NewService(storageManager, logger)

	a := &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		Sink:             sink,
		PortfolioService: portfolioService,
		HistoryService:   historyService,
		AlertService:     alertService,
		KnowledgeService: knowledgeService,
		StartupTime:      startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}
