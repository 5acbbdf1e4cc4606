package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/mealbox/orders-api/internal/httpx"
	"github.com/mealbox/orders-api/internal/ingest"
)

// PostWebhookOrders hands the raw storefront body to the gateway. The body
// shape belongs to the storefront, so it is not validated against the API
// document.
func (s *Server) PostWebhookOrders(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteJSON(w, http.StatusRequestEntityTooLarge, ingest.Response{Status: ingest.StatusError, Message: "payload too large"})
			return
		}
		httpx.WriteJSON(w, http.StatusBadRequest, ingest.Response{Status: ingest.StatusError, Message: "failed to read body"})
		return
	}

	resp := s.Gateway.Handle(r.Context(), body)
	httpx.WriteJSON(w, webhookStatus(resp.Outcome), resp)
}

func webhookStatus(outcome ingest.Outcome) int {
	switch outcome {
	case ingest.OutcomeWritten, ingest.OutcomeTest, ingest.OutcomeEmpty:
		return http.StatusOK
	case ingest.OutcomeUnauthorized:
		return http.StatusUnauthorized
	case ingest.OutcomeMalformed:
		return http.StatusBadRequest
	case ingest.OutcomeBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
