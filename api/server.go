package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/OldStager01/crop-yield-predictor/api/handlers"
	"github.com/OldStager01/crop-yield-predictor/api/middleware"
	"github.com/OldStager01/crop-yield-predictor/api/websocket"
	_ "github.com/OldStager01/crop-yield-predictor/docs"
	"github.com/OldStager01/crop-yield-predictor/internal/auth"
	"github.com/OldStager01/crop-yield-predictor/internal/events"
	"github.com/OldStager01/crop-yield-predictor/internal/metrics"
	"github.com/OldStager01/crop-yield-predictor/pkg/config"
	"github.com/OldStager01/crop-yield-predictor/pkg/database"
	"github.com/OldStager01/crop-yield-predictor/pkg/database/queries"
	"github.com/OldStager01/crop-yield-predictor/pkg/validation"
	"github.com/OldStager01/crop-yield-predictor/web"
)

// Dependencies are the long-lived collaborators built once in main.
// DB and Metrics are optional.
type Dependencies struct {
	Validator *validation.Validator
	Predictor handlers.Predictor
	Bus       *events.EventBus
	Metrics   *metrics.Metrics
	DB        *database.DB
	Auth      *auth.Service
}

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *config.Config
	deps       Dependencies
	wsHub      *websocket.Hub
	wsBridge   *websocket.EventBridge
	limiter    *middleware.EndpointRateLimiter
}

func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if deps.Validator == nil || deps.Predictor == nil {
		return nil, errors.New("validator and predictor are required")
	}

	switch cfg.App.Mode {
	case "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	router := gin.New()
	router.SetHTMLTemplate(tmpl)

	s := &Server{
		router: router,
		config: cfg,
		deps:   deps,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.RequestSizeLimit(s.config.API.MaxBodyBytes))
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestLogger("/health/live", "/health/ready", s.config.Prometheus.Path))

	s.limiter = middleware.NewEndpointRateLimiter()
	s.limiter.AddEndpoint("/predict", s.config.API.RateLimit, time.Minute)
	s.limiter.AddEndpoint("/api/v1/predict", s.config.API.RateLimit, time.Minute)
	s.router.Use(s.limiter.Middleware())
}

func (s *Server) setupRoutes() {
	var observer handlers.PredictionObserver
	if s.deps.Metrics != nil {
		observer = s.deps.Metrics
	}
	var publisher *events.Publisher
	if s.deps.Bus != nil {
		publisher = events.NewPublisher(s.deps.Bus)
	}

	predictHandler := handlers.NewPredictHandler(s.deps.Validator, s.deps.Predictor, publisher, observer)

	var pinger handlers.Pinger
	if s.deps.DB != nil {
		pinger = s.deps.DB
	}
	healthHandler := handlers.NewHealthHandler(true, pinger)

	// Form
	s.router.GET("/", predictHandler.Index)
	s.router.POST("/predict", predictHandler.Submit)
	s.limiter.OnLimit("/predict", predictHandler.RateLimited)

	// Health
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	// JSON API
	v1 := s.router.Group("/api/v1")
	v1.Use(middleware.CORS(middleware.NewCORSConfig(s.config.API.CORS)))
	{
		v1.POST("/predict", predictHandler.PredictJSON)
		v1.GET("/options", predictHandler.Options)
		v1.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })

		if s.deps.DB != nil && s.deps.Auth != nil {
			historyHandler := handlers.NewHistoryHandler(
				queries.NewPredictionRepository(s.deps.DB.DB),
				s.deps.Validator.Items(),
				&s.config.API,
			)
			history := v1.Group("/predictions")
			history.Use(middleware.JWTAuth(s.deps.Auth))
			history.GET("/recent", historyHandler.Recent)
			history.GET("/stats", historyHandler.Stats)
		}
	}

	if s.deps.Metrics != nil && s.config.Prometheus.Enabled {
		s.router.GET(s.config.Prometheus.Path, gin.WrapH(s.deps.Metrics.Handler()))
	}

	if s.config.WebSocket.Enabled && s.deps.Bus != nil {
		s.wsHub = websocket.NewHub(&s.config.WebSocket)
		if s.deps.Metrics != nil {
			s.wsHub.OnClientCount(s.deps.Metrics.SetWebSocketClients)
		}
		go s.wsHub.Run()

		s.wsBridge = websocket.NewEventBridge(s.wsHub, s.deps.Bus.SubscribeAll())
		s.wsBridge.Start()

		s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))
	}

	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.API.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.API.ReadTimeout,
		WriteTimeout: s.config.API.WriteTimeout,
		IdleTimeout:  s.config.API.IdleTimeout,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}
	if s.wsHub != nil {
		s.wsHub.Stop()
	}

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
