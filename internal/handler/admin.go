package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/casamueble/checkout/internal/domain/order"
)

type updateStatusRequest struct {
	Status string `json:"status"`
}

// updateOrderStatus applies a back-office lifecycle transition. The lifecycle
// graph is enforced in the domain; this handler only parses and maps errors.
func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed order id")
		return
	}

	var req updateStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	status, ok := order.ParseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unknown status")
		return
	}

	o, err := h.checkout.Transition(r.Context(), id, status)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("ok", func(e *jx.Encoder) { e.Bool(true) })
			e.Field("order", func(e *jx.Encoder) { encOrder(e, o, nil) })
		})
	})
}
