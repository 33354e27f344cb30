package handlers

import (
	"net/http"
	"strconv"

	"comanda/internal/dispatch"
	"comanda/internal/store"
	"comanda/pkg/api"
)

// Enqueue handles POST /comanda/{orderId}.
// It renders the kitchen, cashier and customer copies of the order as a new batch.
func (h *Handlers) Enqueue(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	orderID, ok := h.pathID(w, r, "orderId")
	if !ok {
		return
	}

	var req api.EnqueueRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	res, err := h.queue.EnqueueBatch(r.Context(), tenantID, orderID, dispatch.EnqueueOptions{
		PaperWidthMm: req.PaperWidthMm,
	})
	if err != nil {
		h.queueError(w, r, err)
		return
	}

	h.respondJson(w, http.StatusCreated, api.EnqueueResponse{
		Success:      true,
		BatchID:      res.BatchID.String(),
		Total:        res.Total,
		PaperWidthMm: res.PaperWidthMm,
	})
}

// Preview handles GET /comanda/{orderId}/preview?type=&paperWidthMm=.
// The type defaults to KITCHEN; nothing is enqueued.
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	orderID, ok := h.pathID(w, r, "orderId")
	if !ok {
		return
	}

	q := r.URL.Query()

	doc := store.DocumentKitchen
	if raw := q.Get("type"); raw != "" {
		if doc, ok = store.ParseDocumentType(raw); !ok {
			h.httpError(w, "Unknown document type: "+raw, http.StatusBadRequest)
			return
		}
	}

	// an unparsable width falls back to the default like any other unsupported width
	width, _ := strconv.Atoi(q.Get("paperWidthMm"))

	text, err := h.queue.Preview(r.Context(), tenantID, orderID, doc, width)
	if err != nil {
		h.queueError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}

// Summary handles GET /comanda/{orderId}/summary.
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	orderID, ok := h.pathID(w, r, "orderId")
	if !ok {
		return
	}

	view, err := h.queue.OrderSummary(r.Context(), tenantID, orderID)
	if err != nil {
		h.queueError(w, r, err)
		return
	}

	resp := api.OrderSummaryResponse{
		OrderID: view.OrderID.String(),
		BatchID: view.BatchID.String(),
		Summary: summaryResponse(view.Summary),
		Jobs:    make([]api.JobView, 0, len(view.Jobs)),
	}
	for _, j := range view.Jobs {
		resp.Jobs = append(resp.Jobs, api.JobView{
			ID:            j.ID.String(),
			DocumentType:  string(j.DocumentType),
			Status:        string(j.Status),
			Attempts:      j.Attempts,
			MaxAttempts:   j.MaxAttempts,
			NextAttemptAt: j.NextAttemptAt,
			LeaseOwner:    j.LeaseOwner,
			LeasedAt:      j.LeasedAt,
			LastError:     j.LastError,
		})
	}
	h.respondJson(w, http.StatusOK, resp)
}
