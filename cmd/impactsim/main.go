// Command impactsim computes one asteroid impact simulation from flags or a
// named preset and prints the report.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/impact-simulator/core"
	"github.com/signalsfoundry/impact-simulator/internal/nbi/types"
	"github.com/signalsfoundry/impact-simulator/kb"
	"github.com/signalsfoundry/impact-simulator/model"
	"github.com/signalsfoundry/impact-simulator/timectrl"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "impactsim:", err)
		os.Exit(1)
	}
}

type options struct {
	preset      string
	presetsPath string
	params      model.AsteroidParameters
	deltaV      float64
	format      string
	siteEpoch   string
	list        bool
	animate     bool
	tick        time.Duration
}

// result is the machine-readable output.
type result struct {
	Preset     string             `json:"preset,omitempty"`
	Asteroid   types.Asteroid     `json:"asteroid"`
	Deflection types.Deflection   `json:"deflection"`
	Report     types.ImpactReport `json:"report"`
	Trajectory types.Trajectory   `json:"trajectory"`
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}

	catalog := kb.NewDefaultKnowledgeBase()
	if opts.presetsPath != "" {
		f, err := os.Open(opts.presetsPath)
		if err != nil {
			return err
		}
		_, err = catalog.LoadPresets(f, kb.FormatFromPath(opts.presetsPath))
		f.Close()
		if err != nil {
			return err
		}
	}

	if opts.list {
		return listPresets(stdout, catalog.ListPresets())
	}

	params := opts.params
	if opts.preset != "" {
		p, err := catalog.GetPreset(opts.preset)
		if err != nil {
			return err
		}
		params = p.Parameters
		opts.preset = p.Name
	}
	params = params.WithDefaults()
	deflection := model.DeflectionImpulse{DeltaVKmPerSec: opts.deltaV}

	report, err := core.ComputeImpactReport(params, deflection)
	if err != nil {
		return err
	}
	traj, err := core.ComputeTrajectory(params, deflection)
	if err != nil {
		return err
	}

	var site *core.ImpactSite
	if opts.siteEpoch != "" && traj.WillImpact {
		epoch := time.Now().UTC()
		if opts.siteEpoch != "now" {
			if epoch, err = time.Parse(time.RFC3339, opts.siteEpoch); err != nil {
				return fmt.Errorf("site epoch: %w", err)
			}
		}
		s, err := core.LocateImpactSite(traj, epoch)
		if err != nil {
			return err
		}
		site = &s
	}

	if opts.animate {
		animate(ctx, stdout, traj, opts.tick)
	}

	res := result{
		Preset:     opts.preset,
		Asteroid:   types.AsteroidToWire(params),
		Deflection: types.Deflection{DeltaVKmS: deflection.DeltaVKmPerSec},
		Report:     types.ReportToWire(report),
		Trajectory: types.TrajectoryToWire(traj, site),
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "yaml":
		return writeYAML(stdout, res)
	default:
		return writeText(stdout, res)
	}
}

func parseArgs(args []string) (options, error) {
	fs := flag.NewFlagSet("impactsim", flag.ContinueOnError)
	var o options
	fs.StringVar(&o.preset, "preset", "", "Named preset (see -list); overrides the parameter flags")
	fs.StringVar(&o.presetsPath, "presets", "", "Optional YAML or JSON file of extra presets")
	fs.Float64Var(&o.params.DiameterMeters, "diameter", 250, "Asteroid diameter in metres")
	fs.Float64Var(&o.params.DensityKgPerM3, "density", model.DefaultDensityKgPerM3, "Bulk density in kg/m^3")
	fs.Float64Var(&o.params.VelocityKmPerSec, "velocity", 20, "Impact velocity in km/s")
	fs.Float64Var(&o.params.EntryAngleDegrees, "angle", 45, "Entry angle from horizontal in degrees")
	fs.Float64Var(&o.deltaV, "delta-v", 0, "Applied deflection delta-v in km/s")
	fs.StringVar(&o.format, "format", "text", "Output format: text, json or yaml")
	fs.StringVar(&o.siteEpoch, "site-epoch", "", `Locate the impact site at this RFC 3339 epoch, or "now"`)
	fs.BoolVar(&o.list, "list", false, "List available presets and exit")
	fs.BoolVar(&o.animate, "animate", false, "Print the approach frame by frame before the report")
	fs.DurationVar(&o.tick, "tick", 20*time.Millisecond, "Delay between animation frames")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	o.format = strings.ToLower(o.format)
	switch o.format {
	case "text", "json", "yaml":
	default:
		return options{}, fmt.Errorf("unsupported format %q", o.format)
	}
	return o, nil
}

func listPresets(w io.Writer, presets []model.Preset) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDIAMETER (m)\tDENSITY (kg/m^3)\tVELOCITY (km/s)\tANGLE (deg)\tDESCRIPTION")
	for _, p := range presets {
		fmt.Fprintf(tw, "%s\t%g\t%g\t%g\t%g\t%s\n",
			p.Name,
			p.Parameters.DiameterMeters,
			p.Parameters.DensityKgPerM3,
			p.Parameters.VelocityKmPerSec,
			p.Parameters.EntryAngleDegrees,
			p.Description,
		)
	}
	return tw.Flush()
}

// animate replays the approach through a frame clock, one line per sample.
func animate(ctx context.Context, w io.Writer, tr core.Trajectory, tick time.Duration) {
	clock := timectrl.NewFrameClock(len(tr.Samples), tick, timectrl.RealTime)
	clock.AddListener(func(f timectrl.Frame) {
		s := tr.Samples[f.Index]
		fmt.Fprintf(w, "t=%.2f  r=%6.3f  (%7.3f, %7.3f, %7.3f)\n", s.T, s.Distance, s.Position.X, s.Position.Y, s.Position.Z)
	})
	<-clock.Start(ctx)
}

func writeText(w io.Writer, res result) error {
	r := res.Report
	tr := res.Trajectory
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	if res.Preset != "" {
		fmt.Fprintf(tw, "Preset:\t%s\n", res.Preset)
	}
	fmt.Fprintf(tw, "Asteroid:\t%g m, %g kg/m^3, %g km/s, %g deg\n",
		res.Asteroid.DiameterM, res.Asteroid.DensityKgM3, res.Asteroid.VelocityKmS, res.Asteroid.EntryAngleDeg)
	fmt.Fprintf(tw, "Delta-v:\t%g km/s\n", res.Deflection.DeltaVKmS)
	fmt.Fprintf(tw, "Mass:\t%.3e kg\n", r.MassKg)
	fmt.Fprintf(tw, "Kinetic energy:\t%.3e J\n", r.KineticEnergyJoules)
	fmt.Fprintf(tw, "TNT equivalent:\t%s\n", r.TNTDisplay)
	fmt.Fprintf(tw, "Threat:\t%s\n", r.ThreatLabel)
	fmt.Fprintf(tw, "Crater:\t%.2f km wide, %.0f m deep\n", r.CraterDiameterMeters/1000, r.CraterDepthMeters)
	fmt.Fprintf(tw, "Population at risk:\t%.0f\n", r.PopulationAtRisk)
	fmt.Fprintf(tw, "Survival chance:\t%.1f%%\n", r.SurvivalChancePercent)
	fmt.Fprintf(tw, "Deflection:\t%.0f km off course (%s)\n", r.DeflectionDistanceKm, r.DeflectionStatus)
	fmt.Fprintf(tw, "Assessment:\t%s\n", r.Assessment)
	if tr.WillImpact && tr.ImpactPoint != nil {
		fmt.Fprintf(tw, "Trajectory:\timpact at (%.3f, %.3f, %.3f)\n", tr.ImpactPoint.X, tr.ImpactPoint.Y, tr.ImpactPoint.Z)
	} else {
		last := tr.Points[len(tr.Points)-1]
		fmt.Fprintf(tw, "Trajectory:\tmiss, closest approach (%.3f, %.3f, %.3f)\n", last.X, last.Y, last.Z)
	}
	if tr.ImpactSite != nil {
		fmt.Fprintf(tw, "Impact site:\t%.2f, %.2f at %s\n",
			tr.ImpactSite.LatitudeDeg, tr.ImpactSite.LongitudeDeg, tr.ImpactSite.Epoch.Format(time.RFC3339))
	}
	return tw.Flush()
}

// writeYAML renders the JSON form as block-style YAML so both formats share
// one set of field names.
func writeYAML(w io.Writer, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	clearStyle(&doc)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}
