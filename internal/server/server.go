package server

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"gitlab.com/fieldion/api/missed-call-router/internal/model"
	"gitlab.com/fieldion/api/missed-call-router/internal/storage"
	"gitlab.com/fieldion/api/missed-call-router/pkg/utils"
)

// Dispatcher routes one inbound message end to end.
type Dispatcher interface {
	HandleInbound(ctx context.Context, msg model.InboundMessage) model.RoutingOutcome
}

// Server hosts the inbound webhook together with the operational endpoints.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	dispatcher Dispatcher
	logs       storage.LogRepo
	signature  *SignatureValidator
	logger     *zap.Logger
}

// HealthResponse is the response structure for health check endpoints
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(port string, dispatcher Dispatcher, logs storage.LogRepo, signature *SignatureValidator, logger *zap.Logger) *Server {
	mux := http.NewServeMux()

	server := &Server{
		httpServer: &http.Server{
			Addr:    ":" + port,
			Handler: mux,
		},
		mux:        mux,
		dispatcher: dispatcher,
		logs:       logs,
		signature:  signature,
		logger:     logger,
	}

	mux.HandleFunc("POST /webhook/sms", server.withSignatureCheck(server.handleWebhook))
	mux.HandleFunc("/health", server.handleHealth)
	mux.HandleFunc("/ready", server.handleReady)
	mux.HandleFunc("/debug/log-fields", server.handleLogFields)

	return server
}

// RegisterMetricsHandler adds the /metrics endpoint handler.
// Should only be called if metrics are enabled.
func (s *Server) RegisterMetricsHandler(handler http.Handler) {
	s.logger.Info("Registering /metrics endpoint")
	s.mux.Handle("/metrics", handler)
}

// Start begins the HTTP server
func (s *Server) Start() {
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// handleHealth handles the /health endpoint for liveness probes
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "UP",
		Version: "1.0.0",
	}

	utils.WriteJSONResponse(w, http.StatusOK, resp)
}

// handleReady handles the /ready endpoint for readiness probes
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "READY",
		Details: map[string]string{
			"timestamp": utils.FormatISO8601(utils.Now()),
		},
	}
	if s.logs == nil || !s.logs.Configured() {
		resp.Details["record_store"] = "unconfigured"
	}

	utils.WriteJSONResponse(w, http.StatusOK, resp)
}

// handleLogFields returns the record store's log table schema so operators
// can verify the table columns line up with what Append writes.
func (s *Server) handleLogFields(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil || !s.logs.Configured() {
		utils.WriteJSONResponse(w, http.StatusServiceUnavailable, map[string]string{
			"error": "record store is not configured",
		})
		return
	}

	fields, err := s.logs.Fields(r.Context())
	if err != nil {
		s.logger.Error("Failed to fetch log table schema", zap.Error(err))
		utils.WriteJSONResponse(w, http.StatusBadGateway, map[string]string{
			"error": err.Error(),
		})
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"fields": fields,
	})
}
