package handlers

import (
	"net/http"

	"comanda/internal/dispatch"
	"comanda/pkg/api"
)

// ClaimJobs handles POST /jobs/claim.
// The bridge receives up to limit leased jobs, possibly none.
func (h *Handlers) ClaimJobs(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	var req api.ClaimRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.BridgeID == "" {
		h.httpError(w, "bridgeId is required", http.StatusBadRequest)
		return
	}

	jobs, err := h.queue.Claim(r.Context(), tenantID, req.BridgeID, req.Limit)
	if err != nil {
		h.queueError(w, r, err)
		return
	}

	resp := api.ClaimResponse{Jobs: make([]api.ClaimedJob, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, api.ClaimedJob{
			ID:           j.ID.String(),
			OrderID:      j.OrderID.String(),
			BatchID:      j.BatchID.String(),
			DocumentType: string(j.DocumentType),
			PaperWidthMm: j.PaperWidthMm,
			Content:      j.Content,
			Attempts:     j.Attempts,
			MaxAttempts:  j.MaxAttempts,
		})
	}
	h.respondJson(w, http.StatusOK, resp)
}

// AckJob handles POST /jobs/{id}/ack.
func (h *Handlers) AckJob(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	jobID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req api.AckRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	res, err := h.queue.Ack(r.Context(), tenantID, jobID, req.BridgeID)
	if err != nil {
		h.queueError(w, r, err)
		return
	}
	h.respondJson(w, http.StatusOK, jobResult(res))
}

// FailJob handles POST /jobs/{id}/fail.
// A reported print failure is a normal transition, so the response is 200
// with the batch summary whether the job will be retried or not.
func (h *Handlers) FailJob(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	jobID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req api.FailRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	res, err := h.queue.Fail(r.Context(), tenantID, jobID, req.BridgeID, req.Error)
	if err != nil {
		h.queueError(w, r, err)
		return
	}
	h.respondJson(w, http.StatusOK, jobResult(res))
}

func jobResult(res *dispatch.Result) api.JobResultResponse {
	if res.AlreadyOK {
		return api.JobResultResponse{AlreadyOK: true}
	}
	summary := summaryResponse(res.Summary)
	return api.JobResultResponse{
		OrderID: res.OrderID.String(),
		Status:  string(res.Status),
		Summary: &summary,
	}
}
