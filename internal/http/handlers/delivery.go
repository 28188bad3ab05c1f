package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"parcel-dispatch/internal/apperr"
	"parcel-dispatch/internal/logx"
	"parcel-dispatch/internal/service/cancel"
	"parcel-dispatch/internal/service/lifecycle"
)

// DeliveryHandler handles HTTP requests for delivery resources.
type DeliveryHandler struct {
	usecase   deliveryUsecase
	lifecycle lifecycleUsecase
	cancels   cancelUsecase
	logger    logx.Logger
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(logger logx.Logger, uc deliveryUsecase, lc lifecycleUsecase, cc cancelUsecase) *DeliveryHandler {
	return &DeliveryHandler{usecase: uc, lifecycle: lc, cancels: cc, logger: logger}
}

// Create handles POST /delivery.
func (h *DeliveryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDeliveryRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	d, err := h.usecase.Create(r.Context(), req.toInput())
	switch {
	case err == nil:
		w.Header().Set("Location", "/delivery/"+strconv.FormatInt(d.ID, 10))
		writeJSON(h.logger, w, r, http.StatusCreated, deliveryToResponse(d))
	case errors.Is(err, apperr.ErrValidation):
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid input")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// GetByID handles GET /delivery/{id}.
func (h *DeliveryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	d, err := h.usecase.Get(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, deliveryToResponse(d))
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "delivery not found")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// Accept handles POST /delivery/{id}/accept.
func (h *DeliveryHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	var req acceptDeliveryRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	res, err := h.usecase.Accept(r.Context(), id, req.DriverID)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, assignResultToResponse(res))
	case errors.Is(err, apperr.ErrValidation):
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "not found")
	case errors.Is(err, apperr.ErrConflict):
		writeError(h.logger, w, r, http.StatusConflict, "delivery already taken")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// AdvanceStatus handles PATCH /delivery/{id}/status.
func (h *DeliveryHandler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	var req advanceStatusRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	in := lifecycle.AdvanceInput{
		DeliveryID: id,
		To:         req.Status,
		DriverID:   req.DriverID,
	}
	if req.Location != nil {
		loc := locationToModel(*req.Location)
		in.Location = &loc
	}

	d, err := h.lifecycle.Advance(r.Context(), in)
	var te *apperr.TransitionError
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, deliveryToResponse(d))
	case errors.Is(err, apperr.ErrValidation):
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "delivery not found")
	case errors.Is(err, apperr.ErrPaymentRequired):
		writeError(h.logger, w, r, http.StatusPaymentRequired, "payment required")
	case errors.As(err, &te):
		writeError(h.logger, w, r, http.StatusUnprocessableEntity, te.Error())
	case errors.Is(err, apperr.ErrConflict):
		writeError(h.logger, w, r, http.StatusConflict, "delivery state changed, retry")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// Cancel handles POST /delivery/{id}/cancel.
func (h *DeliveryHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	var req cancelDeliveryRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	res, err := h.cancels.Cancel(r.Context(), cancel.Input{
		DeliveryID: id,
		Actor:      req.Actor,
		Reason:     req.Reason,
	})
	var te *apperr.TransitionError
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, cancelResultToResponse(res))
	case errors.Is(err, apperr.ErrValidation):
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "delivery not found")
	case errors.Is(err, apperr.ErrConflict):
		writeError(h.logger, w, r, http.StatusConflict, "delivery state changed, retry")
	case errors.As(err, &te):
		writeError(h.logger, w, r, http.StatusUnprocessableEntity, te.Error())
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// Track handles GET /delivery/{id}/track.
func (h *DeliveryHandler) Track(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	res, history, err := h.usecase.Track(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, trackResultToResponse(res, history))
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "delivery not found")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// Rebroadcast handles POST /delivery/{id}/rebroadcast.
func (h *DeliveryHandler) Rebroadcast(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	err = h.usecase.Rebroadcast(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusAccepted, map[string]string{"status": "rebroadcast"})
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "delivery not found")
	case errors.Is(err, apperr.ErrConflict):
		writeError(h.logger, w, r, http.StatusConflict, "delivery is not awaiting a driver")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// Rate handles POST /delivery/{id}/rating.
func (h *DeliveryHandler) Rate(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	var req rateDeliveryRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	err = h.usecase.Rate(r.Context(), id, req.Rating)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, apperr.ErrValidation):
		writeError(h.logger, w, r, http.StatusBadRequest, "rating must be between 1 and 5")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "delivery not found")
	case errors.Is(err, apperr.ErrConflict):
		writeError(h.logger, w, r, http.StatusConflict, "delivery cannot be rated")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}
