package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mealbox/orders-api/internal/audit"
	"github.com/mealbox/orders-api/internal/auth"
	"github.com/mealbox/orders-api/internal/config"
	"github.com/mealbox/orders-api/internal/handlers"
	"github.com/mealbox/orders-api/internal/httpx"
	"github.com/mealbox/orders-api/internal/ingest"
	"github.com/mealbox/orders-api/internal/lock"
	"github.com/mealbox/orders-api/internal/sheet"
)

// Deps are the backends the service runs on. Source holds the raw log and
// the working sheet; Destination holds the processing sheet.
type Deps struct {
	Source      sheet.Store
	Colors      sheet.Counter
	Destination sheet.Store
	Locker      lock.Locker
	AuditSink   audit.Sink
	DB          handlers.Pinger
}

func New(cfg config.Config, deps Deps, logger *slog.Logger) (http.Handler, error) {
	verifier, err := auth.NewTokenVerifier(cfg.APIToken, cfg.APITokenHash)
	if err != nil {
		return nil, fmt.Errorf("token verifier: %w", err)
	}

	auditLogger := audit.NewLogger(deps.AuditSink, logger).WithRequestID(httpx.RequestIDFromContext)
	gateway := &ingest.Gateway{
		Lock:         deps.Locker,
		Verifier:     verifier,
		Store:        deps.Source,
		Colors:       deps.Colors,
		RawSheet:     cfg.RawSheet,
		WorkingSheet: cfg.WorkingSheet,
		Audit:        auditLogger,
		Logger:       logger,
		Location:     cfg.Location,
	}

	h := handlers.NewServer(cfg, gateway, deps.Source, deps.Destination, auditLogger, logger, deps.DB)
	return NewRouter(h, verifier, logger)
}

// Bootstrap writes the column header on the raw log and the working sheet
// and protects the raw log against edits and deletes.
func Bootstrap(ctx context.Context, cfg config.Config, source sheet.Store) error {
	for _, name := range []string{cfg.RawSheet, cfg.WorkingSheet} {
		if _, err := sheet.EnsureHeader(ctx, source, name, sheet.Labels()); err != nil {
			return fmt.Errorf("ensure header on %s: %w", name, err)
		}
	}
	if err := source.Protect(ctx, cfg.RawSheet); err != nil {
		return fmt.Errorf("protect %s: %w", cfg.RawSheet, err)
	}
	return nil
}
