package net

import (
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"ballfield/server/internal/agent"
	"ballfield/server/internal/net/ws"
	"ballfield/server/internal/observability"
	"ballfield/server/internal/results"
	"ballfield/server/internal/sim"
	"ballfield/server/internal/strategy"
	"ballfield/server/internal/telemetry"
	"ballfield/server/logging"
)

const defaultResultsLimit = 20

// Match is the live session served over HTTP. *match.Session satisfies it.
type Match interface {
	ws.Match
	Stats() sim.Stats
	Strategies() []strategy.Descriptor
	Start() (bool, string)
	Stop() (bool, string)
	Reset(preserveConfig bool) error
	ConfigureRobot(id string, patch agent.ConfigPatch) error
	SetRobotStrategy(id string, mode strategy.Mode, strategyID string) error
}

type HTTPHandlerConfig struct {
	ClientDir string
	Logger    telemetry.Logger
	Publisher logging.Publisher
	// Store backs the results endpoints. They answer 404 when it is nil.
	Store         results.Store
	Observability observability.Config
}

func NewHTTPHandler(match Match, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NopLogger()
	}

	router := mux.NewRouter()

	router.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	}).Methods(nethttp.MethodGet)

	router.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		snap := match.Snapshot()
		payload := struct {
			Status     string    `json:"status"`
			ServerTime int64     `json:"serverTime"`
			MatchID    string    `json:"matchId"`
			State      sim.State `json:"state"`
			Tick       int       `json:"tick"`
			TotalTicks int       `json:"totalTicks"`
			Stats      sim.Stats `json:"stats"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			MatchID:    match.ID(),
			State:      snap.State,
			Tick:       snap.Tick,
			TotalTicks: snap.TotalTicks,
			Stats:      match.Stats(),
		}
		writeJSON(w, nethttp.StatusOK, payload)
	}).Methods(nethttp.MethodGet)

	router.HandleFunc("/snapshot", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			MatchID  string       `json:"matchId"`
			Snapshot sim.Snapshot `json:"snapshot"`
		}{MatchID: match.ID(), Snapshot: match.Snapshot()}
		writeJSON(w, nethttp.StatusOK, payload)
	}).Methods(nethttp.MethodGet)

	router.HandleFunc("/strategies", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Strategies []strategy.Descriptor `json:"strategies"`
		}{Strategies: match.Strategies()}
		writeJSON(w, nethttp.StatusOK, payload)
	}).Methods(nethttp.MethodGet)

	router.HandleFunc("/control/{action}", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		type controlRequest struct {
			PreserveConfig *bool    `json:"preserveConfig"`
			Speed          *float64 `json:"speed"`
		}
		var req controlRequest
		if !decodeOptional(w, r, &req) {
			return
		}

		action := mux.Vars(r)["action"]
		switch action {
		case "start", "stop":
			var ok bool
			var reason string
			if action == "start" {
				ok, reason = match.Start()
			} else {
				ok, reason = match.Stop()
			}
			if !ok {
				httpError(w, "command rejected: "+reason, nethttp.StatusTooManyRequests)
				return
			}
			writeStatus(w, nethttp.StatusAccepted, "queued")
		case "reset":
			preserve := true
			if req.PreserveConfig != nil {
				preserve = *req.PreserveConfig
			}
			if err := match.Reset(preserve); err != nil {
				logger.Printf("reset failed: %v", err)
				httpError(w, "reset failed", nethttp.StatusInternalServerError)
				return
			}
			payload := struct {
				Status  string `json:"status"`
				MatchID string `json:"matchId"`
			}{Status: "ok", MatchID: match.ID()}
			writeJSON(w, nethttp.StatusOK, payload)
		case "speed":
			if req.Speed == nil {
				httpError(w, "missing speed", nethttp.StatusBadRequest)
				return
			}
			if err := match.SetPlaybackSpeed(*req.Speed); err != nil {
				httpError(w, err.Error(), nethttp.StatusBadRequest)
				return
			}
			writeStatus(w, nethttp.StatusOK, "ok")
		default:
			httpError(w, "unknown action", nethttp.StatusNotFound)
		}
	}).Methods(nethttp.MethodPost)

	router.HandleFunc("/robots/{id}", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		id := mux.Vars(r)["id"]
		robot, ok := findRobot(match.Snapshot(), id)
		if !ok {
			httpError(w, "unknown robot", nethttp.StatusNotFound)
			return
		}
		writeJSON(w, nethttp.StatusOK, robot)
	}).Methods(nethttp.MethodGet)

	router.HandleFunc("/robots/{id}", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var patch agent.ConfigPatch
		if !decodeRequired(w, r, &patch) {
			return
		}
		if patch.Empty() {
			httpError(w, "no robot config fields to update", nethttp.StatusBadRequest)
			return
		}
		if err := match.ConfigureRobot(mux.Vars(r)["id"], patch); err != nil {
			robotError(w, err)
			return
		}
		writeStatus(w, nethttp.StatusOK, "ok")
	}).Methods(nethttp.MethodPatch, nethttp.MethodPut)

	router.HandleFunc("/robots/{id}/strategy", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req struct {
			Mode       string `json:"mode"`
			StrategyID string `json:"strategyId"`
		}
		if !decodeRequired(w, r, &req) {
			return
		}
		mode := strategy.Mode(strings.ToUpper(req.Mode))
		if mode != strategy.ModeScoring && mode != strategy.ModeCollecting {
			httpError(w, "unknown mode", nethttp.StatusBadRequest)
			return
		}
		if err := match.SetRobotStrategy(mux.Vars(r)["id"], mode, req.StrategyID); err != nil {
			robotError(w, err)
			return
		}
		writeStatus(w, nethttp.StatusOK, "ok")
	}).Methods(nethttp.MethodPut, nethttp.MethodPost)

	router.HandleFunc("/results", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if cfg.Store == nil {
			httpError(w, "results are not recorded", nethttp.StatusNotFound)
			return
		}
		limit := defaultResultsLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				httpError(w, "invalid limit", nethttp.StatusBadRequest)
				return
			}
			limit = parsed
		}
		records, err := cfg.Store.List(r.Context(), limit)
		if err != nil {
			logger.Printf("list results failed: %v", err)
			httpError(w, "failed to list results", nethttp.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []results.Record{}
		}
		payload := struct {
			Results []results.Record `json:"results"`
		}{Results: records}
		writeJSON(w, nethttp.StatusOK, payload)
	}).Methods(nethttp.MethodGet)

	router.HandleFunc("/results/{id}", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if cfg.Store == nil {
			httpError(w, "results are not recorded", nethttp.StatusNotFound)
			return
		}
		record, ok, err := cfg.Store.Get(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			logger.Printf("get result failed: %v", err)
			httpError(w, "failed to load result", nethttp.StatusInternalServerError)
			return
		}
		if !ok {
			httpError(w, "unknown match", nethttp.StatusNotFound)
			return
		}
		writeJSON(w, nethttp.StatusOK, record)
	}).Methods(nethttp.MethodGet)

	viewers := ws.NewHandler(match, ws.HandlerConfig{Logger: logger, Publisher: cfg.Publisher})
	router.HandleFunc("/ws", viewers.Handle)

	cfg.Observability.Mount(router)

	if cfg.ClientDir != "" {
		router.PathPrefix("/").Handler(nethttp.FileServer(nethttp.Dir(cfg.ClientDir)))
	}

	return router
}

func findRobot(snap sim.Snapshot, id string) (sim.RobotView, bool) {
	for _, robot := range snap.Robots {
		if robot.ID == id {
			return robot, true
		}
	}
	return sim.RobotView{}, false
}

func robotError(w nethttp.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sim.ErrUnknownRobot):
		httpError(w, err.Error(), nethttp.StatusNotFound)
	case errors.Is(err, agent.ErrInvalidConfig), errors.Is(err, strategy.ErrUnknownStrategy):
		httpError(w, err.Error(), nethttp.StatusBadRequest)
	default:
		httpError(w, err.Error(), nethttp.StatusInternalServerError)
	}
}

// decodeOptional accepts an empty body.
func decodeOptional(w nethttp.ResponseWriter, r *nethttp.Request, dst any) bool {
	if r.Body == nil {
		return true
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && err != io.EOF {
		httpError(w, "invalid payload", nethttp.StatusBadRequest)
		return false
	}
	return true
}

func decodeRequired(w nethttp.ResponseWriter, r *nethttp.Request, dst any) bool {
	if r.Body == nil {
		httpError(w, "missing payload", nethttp.StatusBadRequest)
		return false
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, "invalid payload", nethttp.StatusBadRequest)
		return false
	}
	return true
}

func writeStatus(w nethttp.ResponseWriter, code int, status string) {
	writeJSON(w, code, struct {
		Status string `json:"status"`
	}{Status: status})
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
