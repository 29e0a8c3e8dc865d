package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/omnibank/fraudline-voice-service/pkg/logger"
	"github.com/omnibank/fraudline-voice-service/pkg/redis"
	"go.uber.org/zap"

	"github.com/omnibank/fraudline-voice-service/internal/audit"
	"github.com/omnibank/fraudline-voice-service/internal/config"
	"github.com/omnibank/fraudline-voice-service/internal/core/callflow"
	"github.com/omnibank/fraudline-voice-service/internal/core/session"
	"github.com/omnibank/fraudline-voice-service/internal/core/tool"
	"github.com/omnibank/fraudline-voice-service/internal/domain"
	"github.com/omnibank/fraudline-voice-service/internal/prompts"
	"github.com/omnibank/fraudline-voice-service/internal/store"
)

// HandlerManager wires the service graph: case store, audit sink,
// call-flow controller, tool registry, session manager, and the HTTP
// handlers on top of them.
type HandlerManager struct {
	config   *config.FraudCallConfig
	cases    store.CaseStore
	sink     audit.Sink
	sessions *session.Manager

	callHandler   *CallHandler
	caseHandler   *CaseHandler
	streamHandler *StreamHandler
}

// NewHandlerManager creates and initializes all services and handlers.
func NewHandlerManager(cfg *config.FraudCallConfig) (*HandlerManager, error) {
	seed, err := loadSeed(cfg)
	if err != nil {
		return nil, err
	}

	var cases store.CaseStore
	var callLog *store.CallLogRepository
	if cfg.DatabaseURL != "" {
		db, err := store.OpenDatabase(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open case database: %w", err)
		}
		gormStore, err := store.NewGormCaseStore(db, seed)
		if err != nil {
			return nil, err
		}
		cases = gormStore
		if callLog, err = store.NewCallLogRepository(db); err != nil {
			return nil, err
		}
	} else {
		cases = store.NewMemoryCaseStore(seed)
	}

	var sink audit.Sink
	if cfg.AuditLogPath != "" {
		fileSink, err := audit.NewFileSink(cfg.AuditLogPath)
		if err != nil {
			return nil, err
		}
		sink = fileSink
	} else {
		logger.Base().Warn("No audit log path configured, keeping audit entries in memory only")
		sink = audit.NewMemorySink()
	}

	var redisSvc redis.ServiceInterface
	if cfg.RedisHost != "" {
		svc, err := redis.NewService(&redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			// Session monitoring is best-effort; calls work without it.
			logger.Base().Warn("Redis unavailable, session monitoring disabled", zap.Error(err))
		} else {
			redisSvc = svc
		}
	}

	controller := callflow.NewController(cases, sink)
	tools := tool.NewManager(controller)
	sessions := session.NewManager(redisSvc, cfg.InstanceID, prompts.AgentName)

	return &HandlerManager{
		config:        cfg,
		cases:         cases,
		sink:          sink,
		sessions:      sessions,
		callHandler:   NewCallHandler(sessions, tools, callLog),
		caseHandler:   NewCaseHandler(cases),
		streamHandler: NewStreamHandler(sessions, tools),
	}, nil
}

func loadSeed(cfg *config.FraudCallConfig) ([]*domain.CaseRecord, error) {
	if cfg.SeedFilePath != "" {
		seed, err := store.LoadSeedFile(cfg.SeedFilePath)
		if err != nil {
			return nil, err
		}
		logger.Base().Info("Loaded seed cases from file", zap.String("path", cfg.SeedFilePath), zap.Int("cases", len(seed)))
		return seed, nil
	}
	return store.SeedCases(), nil
}

// Sessions exposes the session manager for lifecycle hooks in main.
func (hm *HandlerManager) Sessions() *session.Manager {
	return hm.sessions
}

// Close releases the audit sink.
func (hm *HandlerManager) Close() error {
	return hm.sink.Close()
}

// SetupAllRoutes registers every route on the router.
func (hm *HandlerManager) SetupAllRoutes(router *mux.Router) {
	router.HandleFunc("/health", hm.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(LoggingMiddleware)
	api.Use(ValidationMiddleware)
	if hm.config.EnableCORS {
		api.Use(CORSMiddleware)
	}
	api.Use(AuthMiddleware(hm.config.AuthSecret))
	api.Use(RateLimitMiddleware(hm.config.RateLimitRPS, hm.config.RateLimitBurst))

	api.HandleFunc("/agent/definition", hm.callHandler.GetAgentDefinition).Methods(http.MethodGet)

	api.HandleFunc("/calls", hm.callHandler.StartCall).Methods(http.MethodPost)
	api.HandleFunc("/calls/{id}/tools/invoke", hm.callHandler.InvokeTool).Methods(http.MethodPost)
	api.HandleFunc("/calls/{id}/stream", hm.streamHandler.Stream).Methods(http.MethodGet)
	api.HandleFunc("/calls/{id}", hm.callHandler.EndCall).Methods(http.MethodDelete)

	api.HandleFunc("/cases", hm.caseHandler.ListCases).Methods(http.MethodGet)
	api.HandleFunc("/cases/{key}", hm.caseHandler.GetCase).Methods(http.MethodGet)
}

// StartBackground starts the session reaper and, when Redis is present,
// the cross-pod cleanup subscription.
func (hm *HandlerManager) StartBackground(ctx context.Context) {
	hm.sessions.StartReaper(ctx, hm.config.ReapInterval, hm.config.SessionMaxIdle)
	if err := hm.sessions.SubscribeToCleanup(ctx); err != nil {
		logger.Base().Warn("Failed to subscribe to session cleanup channel", zap.Error(err))
	}
}

func (hm *HandlerManager) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"active_sessions": hm.sessions.Count(),
	})
}
