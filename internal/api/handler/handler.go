package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"punchclock.service/internal/core"
	"punchclock.service/internal/core/model"
)

type PunchHandler struct {
	Service *core.PunchService
}

// SubmitPunchRequest is the wire form of a punch as sent by a device. The
// device's provisional id is accepted but ignored; the store assigns its own.
type SubmitPunchRequest struct {
	ID         int64    `json:"id,omitempty"`
	EmployeeID int64    `json:"employeeId"`
	Type       string   `json:"type"`
	Timestamp  string   `json:"timestamp"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Note       string   `json:"note,omitempty"`
}

func (h *PunchHandler) SubmitPunch(w http.ResponseWriter, r *http.Request) {
	var req SubmitPunchRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.EmployeeID <= 0 {
		writeError(w, http.StatusBadRequest, "employeeId is required")
		return
	}
	punchType := model.PunchType(req.Type)
	if !punchType.Valid() {
		writeError(w, http.StatusBadRequest, "type must be \"in\" or \"out\"")
		return
	}
	ts, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "timestamp must be RFC3339")
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		writeError(w, http.StatusBadRequest, "latitude and longitude are required")
		return
	}

	punch := model.Punch{
		EmployeeID: req.EmployeeID,
		Type:       punchType,
		Timestamp:  ts,
		Latitude:   *req.Latitude,
		Longitude:  *req.Longitude,
		Note:       req.Note,
	}

	id, err := h.Service.RecordPunch(r.Context(), punch)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record punch")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"id":      id,
		"message": "Time entry added successfully",
	})
}

func (h *PunchHandler) ListPunches(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDFromPath(w, r)
	if !ok {
		return
	}

	punches, err := h.Service.ListPunches(r.Context(), employeeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list punches")
		return
	}
	if punches == nil {
		punches = []model.Punch{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(punches)
}

func (h *PunchHandler) WeeklySummary(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeIDFromPath(w, r)
	if !ok {
		return
	}

	total, err := h.Service.WeeklySummary(r.Context(), employeeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute weekly summary")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"totalHours": total})
}

func employeeIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	employeeID, err := strconv.ParseInt(mux.Vars(r)["employeeId"], 10, 64)
	if err != nil || employeeID <= 0 {
		writeError(w, http.StatusBadRequest, "employeeId must be a positive integer")
		return 0, false
	}
	return employeeID, true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
