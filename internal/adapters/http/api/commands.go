package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	service "github.com/okian/salesbonus/internal/app"
	"github.com/okian/salesbonus/internal/domain/backfill"
	"github.com/okian/salesbonus/internal/domain/bonus"
	"github.com/okian/salesbonus/internal/domain/types"
	"github.com/okian/salesbonus/pkg/logger"
)

const dateLayout = "2006-01-02"

// Backfill modes accepted on POST /commands/backfill.
const (
	modeByDate  = "by-date"
	modeByCount = "by-count"
)

type bonusRateRequest struct {
	Rate *float64 `json:"rate" validate:"required,gte=0,lte=100"`
}

type bonusRateResponse struct {
	Rate float64 `json:"rate"`
}

type backfillRequest struct {
	Mode  string `json:"mode" validate:"required,oneof=by-date by-count"`
	Date  string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Count int    `json:"count" validate:"omitempty,min=1,max=1000"`
}

// toRequest checks the fields the mode needs and builds the driver request.
func (b backfillRequest) toRequest(loc *time.Location) (backfill.Request, error) {
	switch b.Mode {
	case modeByDate:
		if b.Date == "" {
			return backfill.Request{}, fmt.Errorf("%w: date is required for mode by-date", ErrBadRequest)
		}
		if b.Count != 0 {
			return backfill.Request{}, fmt.Errorf("%w: count is only valid with mode by-count", ErrBadRequest)
		}
		day, err := time.ParseInLocation(dateLayout, b.Date, loc)
		if err != nil {
			return backfill.Request{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrBadRequest)
		}
		return backfill.ByDate(day), nil
	default:
		if b.Count == 0 {
			return backfill.Request{}, fmt.Errorf("%w: count is required for mode by-count", ErrBadRequest)
		}
		if b.Date != "" {
			return backfill.Request{}, fmt.Errorf("%w: date is only valid with mode by-date", ErrBadRequest)
		}
		return backfill.ByCount(b.Count), nil
	}
}

type commandHelp struct {
	Name        string `json:"name"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

var commandList = []commandHelp{ //nolint:gochecknoglobals // static help table
	{"report", http.MethodGet, "/commands/report", "Bonus report for the current week. ?format=text for a plain-text block."},
	{"close", http.MethodPost, "/commands/close", "Report the current week, then start a new one."},
	{"set-bonus-rate", http.MethodPut, "/commands/bonus-rate", `Set the bonus percentage, 0-100. Body: {"rate": 20}`},
	{"backfill", http.MethodPost, "/commands/backfill", `Re-read chat history. Body: {"mode": "by-date", "date": "YYYY-MM-DD"} or {"mode": "by-count", "count": 1-1000}`},
	{"help", http.MethodGet, "/commands/help", "This list."},
	{"status", http.MethodGet, "/commands/status", "Period, next reset, queue, snapshot and backfill state."},
}

// CommandsHandler serves the administrator commands.
type CommandsHandler struct {
	deps   Dependencies
	loc    *time.Location
	logger logger.Logger
}

// NewCommandsHandler creates a new commands handler.
func NewCommandsHandler(deps Dependencies, loc *time.Location, log logger.Logger) *CommandsHandler {
	return &CommandsHandler{deps: deps, loc: loc, logger: log}
}

// HandleHelp handles GET /commands/help.
func (h *CommandsHandler) HandleHelp(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, commandList)
}

// HandleReport handles GET /commands/report.
func (h *CommandsHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.Report(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "report failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", nil)
		return
	}
	h.writeReport(w, r, http.StatusOK, report)
}

// HandleClose handles POST /commands/close.
func (h *CommandsHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.Close(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "close failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", nil)
		return
	}
	h.writeReport(w, r, http.StatusOK, report)
}

func (h *CommandsHandler) writeReport(w http.ResponseWriter, r *http.Request, status int, report types.Report) {
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(RenderReport(report, h.loc)))
		return
	}
	writeJSON(w, status, report)
}

// HandleSetBonusRate handles PUT /commands/bonus-rate.
func (h *CommandsHandler) HandleSetBonusRate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[bonusRateRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.deps.SetBonusRate(r.Context(), *req.Rate); err != nil {
		if errors.Is(err, bonus.ErrInvalidRate) {
			writeError(w, http.StatusBadRequest, "invalid_request", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", nil)
		return
	}
	writeJSON(w, http.StatusOK, bonusRateResponse{Rate: h.deps.BonusRate()})
}

// HandleBackfill handles POST /commands/backfill. The job runs in the background.
func (h *CommandsHandler) HandleBackfill(w http.ResponseWriter, r *http.Request) {
	body, err := decodeJSON[backfillRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}
	req, err := body.toRequest(h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}

	id, err := h.deps.StartBackfill(r.Context(), req)
	switch {
	case errors.Is(err, backfill.ErrInvalidCount), errors.Is(err, backfill.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, backfill.ErrBackfillRunning):
		writeError(w, http.StatusConflict, "backfill_running", err)
	case errors.Is(err, service.ErrHistoryUnavailable), errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case err != nil:
		h.logger.Error(r.Context(), "backfill start failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", nil)
	default:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "started", JobID: id})
	}
}

// HandleStatus handles GET /commands/status.
func (h *CommandsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Status(r.Context()))
}
