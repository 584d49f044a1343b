package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/vsinha/shipcheckout/pkg/application/dto"
	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	apperrors "github.com/vsinha/shipcheckout/pkg/domain/errors"
	"github.com/vsinha/shipcheckout/pkg/domain/repositories"
	domainservices "github.com/vsinha/shipcheckout/pkg/domain/services"
	"github.com/vsinha/shipcheckout/pkg/domain/validation"
)

// validationResponse is returned by the standalone section validator
type validationResponse struct {
	Section string             `json:"section"`
	Valid   bool               `json:"valid"`
	Issues  []validation.Issue `json:"issues"`
}

// draftResponse acknowledges a queued autosave
type draftResponse struct {
	TransactionID string            `json:"transactionId"`
	Status        string            `json:"status"`
	SaveAfterMs   int64             `json:"saveAfterMs"`
	Validation    validation.Result `json:"validation"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"quoteCache": s.quotes.CacheStats(),
	})
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.presets.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": presets})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req dto.QuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.quotes.Quote(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	var req dto.AvailabilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.checkout.Availability(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	section := strings.ToLower(r.PathValue("section"))
	result, err := s.sections.Validate(section, body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	issues := result.Issues
	if issues == nil {
		issues = []validation.Issue{}
	}
	writeJSON(w, http.StatusOK, validationResponse{Section: section, Valid: result.Valid(), Issues: issues})
}

func (s *Server) handleVerifyReceipt(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		s.writeError(w, r, apperrors.New(apperrors.CodeInvalidArgument, "token query parameter is required"))
		return
	}
	claims, err := s.checkout.VerifyReceipt(r.Context(), token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "receipt": claims})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	tx, err := s.checkout.Create(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/transactions/"+tx.ID)
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repositories.TransactionFilter{Status: entities.TransactionStatus(query.Get("status"))}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, r, apperrors.New(apperrors.CodeInvalidArgument, "limit must be a non-negative integer"))
			return
		}
		filter.Limit = limit
	}
	list, err := s.checkout.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*entities.ShippingTransaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": list})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	tx, err := s.checkout.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.autosaver.Cancel(id)
	if err := s.checkout.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDraft queues the shipment for a debounced save and answers immediately
func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var shipment entities.Shipment
	if err := decodeJSON(w, r, &shipment); err != nil {
		s.writeError(w, r, err)
		return
	}

	tx, err := s.checkout.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	switch tx.Status {
	case entities.StatusConfirmed:
		s.writeError(w, r, apperrors.New(apperrors.CodeTransactionConfirmed, "transaction is already confirmed"))
		return
	case entities.StatusCancelled:
		s.writeError(w, r, apperrors.New(apperrors.CodeTransactionCancelled, "transaction was cancelled"))
		return
	}

	if err := s.autosaver.Schedule(id, shipment); err != nil {
		s.writeError(w, r, apperrors.Wrap(apperrors.CodeInternal, "failed to schedule autosave", err))
		return
	}
	writeJSON(w, http.StatusAccepted, draftResponse{
		TransactionID: id,
		Status:        "scheduled",
		SaveAfterMs:   s.autosaver.Delay().Milliseconds(),
		Validation:    domainservices.ValidateShipment(shipment).Prefixed("shipment"),
	})
}

func (s *Server) handleSaveShipment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var shipment entities.Shipment
	if err := decodeJSON(w, r, &shipment); err != nil {
		s.writeError(w, r, err)
		return
	}
	// An explicit save supersedes any queued draft
	s.autosaver.Cancel(id)
	res, err := s.checkout.SaveShipment(r.Context(), id, shipment)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.autosaver.Cancel(id)
	res, err := s.checkout.ApplyPreset(r.Context(), id, r.PathValue("preset"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTransactionQuote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req dto.QuoteTransactionRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.autosaver.Flush(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	tx, err := s.checkout.Quote(r.Context(), id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleSelectOption(w http.ResponseWriter, r *http.Request) {
	var req dto.SelectOptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	s.autosaver.Cancel(id)
	tx, err := s.checkout.SelectOption(r.Context(), id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleSubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req dto.PaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	s.autosaver.Cancel(id)
	res, err := s.checkout.SubmitPayment(r.Context(), id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	from := 0
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, r, apperrors.New(apperrors.CodeInvalidArgument, "from must be a non-negative version"))
			return
		}
		from = parsed
	}
	history, err := s.checkout.Events(r.Context(), id, from)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactionId": id, "events": history})
}

func (s *Server) handlePickupAvailability(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	days := 0
	if raw := query.Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, apperrors.New(apperrors.CodeInvalidArgument, "days must be an integer"))
			return
		}
		days = parsed
	}
	resp, err := s.checkout.PickupAvailability(r.Context(), r.PathValue("id"), query.Get("from"), days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSchedulePickup(w http.ResponseWriter, r *http.Request) {
	var pickup entities.PickupDetails
	if err := decodeJSON(w, r, &pickup); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	s.autosaver.Cancel(id)
	res, err := s.checkout.SchedulePickup(r.Context(), id, pickup)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	summary, err := s.checkout.Review(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.autosaver.Cancel(id)
	conf, err := s.checkout.Confirm(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conf)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.autosaver.Cancel(id)
	tx, err := s.checkout.Cancel(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}
