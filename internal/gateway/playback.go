package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/signalsfoundry/impact-simulator/internal/logging"
	"github.com/signalsfoundry/impact-simulator/internal/nbi/types"
	"github.com/signalsfoundry/impact-simulator/timectrl"
	"google.golang.org/grpc/codes"
)

const (
	minPlaybackTick = time.Millisecond
	maxPlaybackTick = 2 * time.Second
	writeWait       = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// PlaybackFrame is one websocket message of a trajectory playback. The last
// frame carries the verdict.
type PlaybackFrame struct {
	Index    int        `json:"index"`
	Total    int        `json:"total"`
	T        float64    `json:"t"`
	Position types.Vec3 `json:"position"`

	Last        bool        `json:"last,omitempty"`
	WillImpact  *bool       `json:"will_impact,omitempty"`
	ImpactPoint *types.Vec3 `json:"impact_point,omitempty"`
	RenderSize  float64     `json:"render_size,omitempty"`
}

// playback computes a trajectory from the query string, upgrades to a
// websocket and streams one frame per clock tick. Query parameters mirror
// the JSON request: preset, or diameter_m, density_kg_m3, velocity_km_s and
// entry_angle_deg; plus delta_v_km_s and an optional tick_ms.
func (g *Gateway) playback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, err := playbackRequest(q)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Code: codes.InvalidArgument.String()})
		return
	}
	tick, err := playbackTick(q, g.tick)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Code: codes.InvalidArgument.String()})
		return
	}

	resp, err := g.svc.ComputeTrajectory(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	tr := resp.Trajectory

	log := logging.LoggerFromContext(r.Context())
	if log == nil {
		log = g.log
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn(r.Context(), "websocket upgrade failed", logging.Err(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Control frames are only processed while reading; a read error means the
	// peer went away.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	total := len(tr.Points)
	clock := timectrl.NewFrameClock(total, tick, g.mode)
	var writeErr error
	clock.AddListener(func(f timectrl.Frame) {
		if writeErr != nil {
			return
		}
		frame := PlaybackFrame{
			Index:    f.Index,
			Total:    total,
			T:        f.T,
			Position: tr.Points[f.Index],
		}
		if f.Index == total-1 {
			impact := tr.WillImpact
			frame.Last = true
			frame.WillImpact = &impact
			frame.ImpactPoint = tr.ImpactPoint
			frame.RenderSize = tr.RenderSize
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if writeErr = conn.WriteJSON(frame); writeErr != nil {
			cancel()
		}
	})

	<-clock.Start(ctx)

	if writeErr != nil {
		log.Debug(ctx, "playback aborted", logging.Err(writeErr))
		return
	}
	if ctx.Err() != nil {
		log.Debug(ctx, "playback cancelled by peer")
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "playback complete"),
		time.Now().Add(writeWait))
	log.Debug(ctx, "playback complete",
		logging.Int("frames", total),
		logging.Bool("will_impact", tr.WillImpact),
	)
}

func playbackRequest(q url.Values) (*types.SimulationRequest, error) {
	req := &types.SimulationRequest{Preset: q.Get("preset")}
	dv, err := floatParam(q, "delta_v_km_s")
	if err != nil {
		return nil, err
	}
	req.Deflection.DeltaVKmS = dv

	if !q.Has("diameter_m") && !q.Has("velocity_km_s") && !q.Has("entry_angle_deg") && !q.Has("density_kg_m3") {
		return req, nil
	}
	var a types.Asteroid
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"diameter_m", &a.DiameterM},
		{"density_kg_m3", &a.DensityKgM3},
		{"velocity_km_s", &a.VelocityKmS},
		{"entry_angle_deg", &a.EntryAngleDeg},
	} {
		v, err := floatParam(q, p.name)
		if err != nil {
			return nil, err
		}
		*p.dst = v
	}
	req.Asteroid = &a
	return req, nil
}

func floatParam(q url.Values, name string) (float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func playbackTick(q url.Values, def time.Duration) (time.Duration, error) {
	raw := q.Get("tick_ms")
	if raw == "" {
		return def, nil
	}
	ms, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("tick_ms: %w", err)
	}
	tick := time.Duration(ms) * time.Millisecond
	if tick < minPlaybackTick || tick > maxPlaybackTick {
		return 0, fmt.Errorf("tick_ms must be between %d and %d", minPlaybackTick.Milliseconds(), maxPlaybackTick.Milliseconds())
	}
	return tick, nil
}
