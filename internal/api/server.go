package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"priceflow/config"
	"priceflow/internal/inference"
	"priceflow/internal/model"
	"priceflow/internal/orchestrator"
	"priceflow/internal/source"
	"priceflow/logger"
)

// defaultSource answers /inference requests that do not name a source and
// backs the /status probe.
const defaultSource = source.BulkArchive

// Server exposes the inference worker over HTTP. Refresh triggers return
// immediately; refresh outcomes are only observable via the status routes.
type Server struct {
	cfg        *config.Config
	orch       *orchestrator.Orchestrator
	infer      *inference.Service
	store      *model.Store
	httpServer *http.Server
	log        *logger.Log
}

func NewServer(cfg *config.Config, orch *orchestrator.Orchestrator, infer *inference.Service, store *model.Store) *Server {
	s := &Server{
		cfg:   cfg,
		orch:  orch,
		infer: infer,
		store: store,
		log:   logger.GetLogger(),
	}
	s.httpServer = &http.Server{
		Addr:    cfg.Server.Address,
		Handler: s.buildRouter(),
	}
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/inference/:token", s.handleInference)
	router.GET("/update", s.handleUpdate)
	router.GET("/status", s.handleStatus)
	router.GET("/refresh/status", s.handleRefreshStatus)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves HTTP on the configured address without blocking the caller.
func (s *Server) Start() {
	log := s.log.WithComponent("api").WithFields(logger.Fields{"address": s.cfg.Server.Address})
	log.Info("starting http server")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server terminated")
		}
	}()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.WithComponent("api").Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleInference(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	log := s.log.WithComponent("api").WithFields(logger.Fields{"token": token})

	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token is required"})
		return
	}
	if !strings.EqualFold(token, s.cfg.Priceflow.Token) {
		log.Warn("inference request for unsupported token")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token not supported"})
		return
	}

	src := defaultSource
	if raw := c.Query("source"); raw != "" {
		parsed, ok := source.Parse(raw)
		if !ok {
			log.WithFields(logger.Fields{"source": raw}).Warn("inference request for unsupported source")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Data source not supported"})
			return
		}
		src = parsed
	}

	value, err := s.infer.Predict(src, time.Now().UTC())
	if err != nil {
		log.WithError(err).Error("inference generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.String(http.StatusOK, strconv.FormatFloat(value, 'f', -1, 64))
}

func (s *Server) handleUpdate(c *gin.Context) {
	s.orch.TriggerAll()
	s.log.WithComponent("api").Info("update process started")
	c.JSON(http.StatusOK, gin.H{"status": "update started"})
}

func (s *Server) handleStatus(c *gin.Context) {
	if _, err := s.store.Load(defaultSource); err != nil {
		s.log.WithComponent("api").WithError(err).Error("status check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Model loaded successfully"})
}

func (s *Server) handleRefreshStatus(c *gin.Context) {
	states := s.orch.States()
	payload := make(gin.H, len(states))
	for id, state := range states {
		payload[string(id)] = state
	}
	c.JSON(http.StatusOK, payload)
}
