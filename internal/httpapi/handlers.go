package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/dotbot-project/fleet-controller/internal/controller"
	"github.com/dotbot-project/fleet-controller/internal/robot"
)

type handlers struct {
	ctrl   *controller.Controller
	logger *zap.Logger
}

// dotBotView is the client-facing projection of a robot.Record, mirroring
// original_source/dotbot/models.py's DotBotModel.
type dotBotView struct {
	Address     string           `json:"address"`
	Application uint8            `json:"application"`
	SwarmID     string           `json:"swarm_id"`
	Mode        uint8            `json:"mode"`
	Status      string           `json:"status"`
	LastSeen    int64            `json:"last_seen"`
	Battery     float64          `json:"battery"`
	Calibrated  bool             `json:"calibrated"`
	Positions   []robot.Position `json:"position_history"`
}

func toView(r robot.Record) dotBotView {
	return dotBotView{
		Address:     r.Address.String(),
		Application: uint8(r.Application),
		SwarmID:     r.SwarmID,
		Mode:        uint8(r.Mode),
		Status:      r.Status.String(),
		LastSeen:    r.LastSeen.Unix(),
		Battery:     r.Battery,
		Calibrated:  r.Calibrated,
		Positions:   r.PositionHistory(),
	}
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	recs := h.ctrl.List(robot.Filter{})
	views := make([]dotBotView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, toView(rec))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(r.PathValue("addr"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec, ok := h.ctrl.Get(addr)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, toView(rec))
}

func (h *handlers) moveRaw(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(r.PathValue("addr"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var cmd robot.MoveRawCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	h.respond(w, r, h.ctrl.SendMoveRaw(r.Context(), addr, cmd))
}

func (h *handlers) rgbLed(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(r.PathValue("addr"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var cmd robot.RGBLedCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	h.respond(w, r, h.ctrl.SendRgbLed(r.Context(), addr, cmd))
}

func (h *handlers) xgoAction(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(r.PathValue("addr"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var body struct {
		Action uint8 `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	h.respond(w, r, h.ctrl.SendXgoAction(r.Context(), addr, body.Action))
}

type waypointRequest struct {
	Kind      string           `json:"kind"`
	Waypoints []robot.Waypoint `json:"waypoints"`
	Threshold uint8            `json:"threshold"`
}

func (h *handlers) waypoints(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(r.PathValue("addr"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req waypointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	kind := robot.PositionLH2
	if req.Kind == "gps" {
		kind = robot.PositionGPS
	}
	h.respond(w, r, h.ctrl.SendWaypoints(r.Context(), addr, kind, req.Waypoints, req.Threshold))
}

func (h *handlers) clearPositions(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(r.PathValue("addr"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.respond(w, r, h.ctrl.ClearPositionHistory(addr))
}

// respond maps a controller error to the 404/200 contract of spec.md §6.
func (h *handlers) respond(w http.ResponseWriter, r *http.Request, err error) {
	var unknown *controller.ErrUnknownDotBot
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.As(err, &unknown):
		http.NotFound(w, r)
	default:
		h.logger.Error("command failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseAddress(raw string) (robot.Address, error) {
	v, err := strconv.ParseUint(raw, 16, 64)
	if err != nil {
		return 0, errors.New("invalid address")
	}
	return robot.Address(v), nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
