package handlers

import (
	"net/http"
	"strings"

	"github.com/mealbox/orders-api/internal/httpx"
)

type cleanupResponse struct {
	Deleted int `json:"deleted"`
}

func (s *Server) PostImports(w http.ResponseWriter, r *http.Request) {
	result, err := s.Importer.Run(r.Context())
	if err != nil {
		s.writePipelineError(w, r, err, "Import failed")
		return
	}
	s.Logger.InfoContext(r.Context(), "import_completed",
		"imported", result.Imported,
		"orders", result.Orders,
		"rejected", result.Report.Count,
		"request_id", httpx.RequestIDFromContext(r.Context()),
	)
	httpx.WriteJSON(w, http.StatusOK, result)
}

func (s *Server) PostImportsCleanup(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.Cleaner.Cleanup(r.Context())
	if err != nil {
		s.writePipelineError(w, r, err, "Cleanup failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cleanupResponse{Deleted: deleted})
}

func (s *Server) PostDeliveryDatesFill(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(r.URL.Query().Get("orderId"))
	result, err := s.Filler.Fill(r.Context(), orderID)
	if err != nil {
		s.writePipelineError(w, r, err, "Failed to fill delivery dates")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}
