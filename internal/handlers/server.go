package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mealbox/orders-api/internal/audit"
	"github.com/mealbox/orders-api/internal/config"
	"github.com/mealbox/orders-api/internal/httpx"
	"github.com/mealbox/orders-api/internal/importer"
	"github.com/mealbox/orders-api/internal/ingest"
	"github.com/mealbox/orders-api/internal/sheet"
)

// Pinger reports whether a backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	Config      config.Config
	Gateway     *ingest.Gateway
	Importer    *importer.Reconciler
	Filler      *importer.Filler
	Cleaner     *importer.Cleaner
	Source      sheet.Store
	Destination sheet.Store
	Audit       *audit.Logger
	Logger      *slog.Logger
	DB          Pinger
}

// NewServer wires the pipeline components over the source store (raw log and
// working sheet) and the destination store (processing sheet).
func NewServer(cfg config.Config, gateway *ingest.Gateway, source, destination sheet.Store, auditLogger *audit.Logger, logger *slog.Logger, db Pinger) *Server {
	return &Server{
		Config:  cfg,
		Gateway: gateway,
		Importer: &importer.Reconciler{
			Source:           source,
			SourceSheet:      cfg.WorkingSheet,
			Destination:      destination,
			DestinationSheet: cfg.DestinationSheet,
			Audit:            auditLogger,
			Logger:           logger,
			Location:         cfg.Location,
		},
		Filler: &importer.Filler{
			Store:    destination,
			Sheet:    cfg.DestinationSheet,
			Audit:    auditLogger,
			Logger:   logger,
			Location: cfg.Location,
		},
		Cleaner: &importer.Cleaner{
			Store: source,
			Sheet: cfg.WorkingSheet,
			Audit: auditLogger,
		},
		Source:      source,
		Destination: destination,
		Audit:       auditLogger,
		Logger:      logger,
		DB:          db,
	}
}

func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.DB.Ping(ctx); err != nil {
			s.Logger.WarnContext(r.Context(), "health_db_unreachable", "error", err)
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writePipelineError maps importer and sheet errors onto the error envelope.
func (s *Server) writePipelineError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var (
		cfgErr   *importer.ConfigError
		storeErr *importer.StorageError
	)
	switch {
	case errors.As(err, &cfgErr):
		httpx.WriteError(w, r, http.StatusUnprocessableEntity, httpx.CodeConfig, cfgErr.Message, nil)
	case errors.Is(err, importer.ErrOrderNotFound):
		httpx.WriteError(w, r, http.StatusNotFound, httpx.CodeNotFound, err.Error(), nil)
	case errors.As(err, &storeErr):
		s.Logger.ErrorContext(r.Context(), "pipeline_storage_failed", "op", storeErr.Op, "appended", storeErr.Appended, "error", storeErr.Err)
		httpx.WriteError(w, r, http.StatusInternalServerError, httpx.CodeStorage, fallback, map[string]any{
			"operation": storeErr.Op,
			"appended":  storeErr.Appended,
		})
	default:
		s.Logger.ErrorContext(r.Context(), "pipeline_failed", "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, httpx.CodeInternal, fallback, nil)
	}
}
