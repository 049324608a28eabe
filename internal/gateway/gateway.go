// Package gateway exposes the impact service over HTTP/JSON and streams
// trajectory playback over websockets.
package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/signalsfoundry/impact-simulator/internal/logging"
	"github.com/signalsfoundry/impact-simulator/internal/nbi"
	"github.com/signalsfoundry/impact-simulator/internal/nbi/types"
	"github.com/signalsfoundry/impact-simulator/internal/observability"
	"github.com/signalsfoundry/impact-simulator/timectrl"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const maxBodyBytes = 1 << 20

// Config wires the gateway's collaborators. Zero values are usable.
type Config struct {
	Logger  logging.Logger
	Metrics *observability.RPCCollector

	// PlaybackTick is the default delay between websocket frames.
	PlaybackTick time.Duration
	// PlaybackMode selects real-time or accelerated playback.
	PlaybackMode timectrl.Mode
}

// Gateway serves the HTTP API on top of an ImpactServiceServer, so HTTP and
// gRPC callers share one implementation and one error mapping.
type Gateway struct {
	svc     nbi.ImpactServiceServer
	log     logging.Logger
	metrics *observability.RPCCollector
	tick    time.Duration
	mode    timectrl.Mode
	handler http.Handler
}

// New builds a Gateway and its routes.
func New(svc nbi.ImpactServiceServer, cfg Config) *Gateway {
	g := &Gateway{
		svc:     svc,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		tick:    cfg.PlaybackTick,
		mode:    cfg.PlaybackMode,
	}
	if g.log == nil {
		g.log = logging.Noop()
	}
	if g.tick <= 0 {
		g.tick = 50 * time.Millisecond
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", g.healthz)
	mux.HandleFunc("GET /api/v1/presets", g.listPresets)
	mux.HandleFunc("GET /api/v1/presets/{name}", g.getPreset)
	mux.HandleFunc("POST /api/v1/impact", g.computeImpact)
	mux.HandleFunc("POST /api/v1/trajectory", g.computeTrajectory)
	mux.HandleFunc("POST /api/v1/simulate", g.simulate)
	mux.HandleFunc("GET /api/v1/playback", g.playback)

	// The mux records the matched pattern on the request it is handed, so
	// metrics must sit directly around it.
	var handler http.Handler = mux
	handler = metricsMiddleware(g.metrics)(handler)
	handler = loggingMiddleware(g.log)(handler)
	g.handler = handler
	return g
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.handler.ServeHTTP(w, r)
}

func (g *Gateway) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (g *Gateway) listPresets(w http.ResponseWriter, r *http.Request) {
	resp, err := g.svc.ListPresets(r.Context(), &types.ListPresetsRequest{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (g *Gateway) getPreset(w http.ResponseWriter, r *http.Request) {
	resp, err := g.svc.GetPreset(r.Context(), &types.GetPresetRequest{Name: r.PathValue("name")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (g *Gateway) computeImpact(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	resp, err := g.svc.ComputeImpact(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (g *Gateway) computeTrajectory(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	resp, err := g.svc.ComputeTrajectory(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (g *Gateway) simulate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	resp, err := g.svc.Simulate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (*types.SimulationRequest, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	var req types.SimulationRequest
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: err.Error(), Code: codes.InvalidArgument.String()})
			return nil, false
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body: " + err.Error(), Code: codes.InvalidArgument.String()})
		return nil, false
	}
	return &req, true
}

// HTTPStatus maps a service error onto an HTTP status code.
func HTTPStatus(err error) int {
	switch status.Code(nbi.ToStatusError(err)) {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	st := status.Convert(nbi.ToStatusError(err))
	writeJSON(w, HTTPStatus(err), errorBody{Error: st.Message(), Code: st.Code().String()})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
