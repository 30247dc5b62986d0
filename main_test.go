package main

import (
	"bytes"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soocke/leafscan-go/domain/rig"
	"github.com/soocke/leafscan-go/rigsim"
)

func TestLoadAppliesFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_url: http://rig.local:9000/\nstep_degrees: 12\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	e, err := (&globals{configPath: path, debug: true}).load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if e.cfg.APIURL != "http://rig.local:9000" || e.cfg.StepDegrees != 12 || !e.cfg.Debug {
		t.Fatalf("unexpected config %+v", e.cfg)
	}
	if e.cfgPath != path {
		t.Fatalf("cfgPath = %q", e.cfgPath)
	}

	e, err = (&globals{configPath: path, apiURL: "http://other:8000"}).load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if e.cfg.APIURL != "http://other:8000" {
		t.Fatalf("api-url flag not applied: %q", e.cfg.APIURL)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	e, err := (&globals{configPath: filepath.Join(t.TempDir(), "absent.yaml")}).load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if e.cfg.DevicePort != 80 || e.cfg.ModelType != "mobilenet" {
		t.Fatalf("expected defaults, got %+v", e.cfg)
	}
}

func TestLevelFor(t *testing.T) {
	if levelFor(true) != slog.LevelDebug || levelFor(false) != slog.LevelInfo {
		t.Fatalf("unexpected levels")
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(&globals{})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config=" + filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandsAgainstSimulator(t *testing.T) {
	sim := rigsim.New(rigsim.FastOptions())
	defer sim.Close()
	srv := httptest.NewServer(sim.Handler())
	defer srv.Close()
	api := "--api-url=" + srv.URL

	out, err := runCLI(t, api, "status")
	if err != nil || !strings.Contains(out, "device:     disconnected") {
		t.Fatalf("status: %v\n%s", err, out)
	}
	if _, err := runCLI(t, api, "motor", "left"); err == nil {
		t.Fatalf("motor while disconnected should fail")
	}

	if err := sim.Connect("10.0.0.5", 80); err != nil {
		t.Fatal(err)
	}
	out, err = runCLI(t, api, "status")
	if err != nil || !strings.Contains(out, "connected (http://10.0.0.5:80)") {
		t.Fatalf("status: %v\n%s", err, out)
	}
	if _, err := runCLI(t, api, "motor", "right", "--step", "15"); err != nil {
		t.Fatalf("motor: %v", err)
	}
	if p := sim.Position(); p.Pan != rigsim.CenterPan+15 {
		t.Fatalf("pan = %d", p.Pan)
	}
	out, err = runCLI(t, api, "position", "30", "60")
	if err != nil || !strings.Contains(out, "pan 30° tilt 60°") {
		t.Fatalf("position: %v\n%s", err, out)
	}
	if _, err := runCLI(t, api, "motor", "sideways"); err == nil {
		t.Fatalf("unknown direction should fail")
	}
	out, err = runCLI(t, api, "motor", "preset", "bottom_view")
	if err != nil || !strings.Contains(out, "bottom_view: pan 90° tilt 135°") {
		t.Fatalf("preset: %v\n%s", err, out)
	}
	if _, err := runCLI(t, api, "motor", "preset", "ceiling"); err == nil {
		t.Fatalf("unknown preset should fail")
	}
	out, err = runCLI(t, api, "motor", "rail", "right", "--speed", "90")
	if err != nil || !strings.Contains(out, "rail 55% moving right at 90") {
		t.Fatalf("rail: %v\n%s", err, out)
	}
	out, err = runCLI(t, api, "motor", "rail", "stop")
	if err != nil || !strings.Contains(out, "rail 55% stopped") {
		t.Fatalf("rail stop: %v\n%s", err, out)
	}
	if _, err := runCLI(t, api, "motor", "home", "--pan-tilt"); err != nil {
		t.Fatalf("home pan/tilt: %v", err)
	}
	if p, r := sim.Position(), sim.Rail(); p.Pan != rigsim.CenterPan || p.Tilt != rigsim.CenterTilt || r.Position != 55 {
		t.Fatalf("pan/tilt home moved the rail or missed the servos: %+v %+v", p, r)
	}
	if _, err := runCLI(t, api, "motor", "home"); err != nil {
		t.Fatalf("home: %v", err)
	}
	if r := sim.Rail(); r.Position != rig.RailHome {
		t.Fatalf("rail not homed: %+v", r)
	}
	out, err = runCLI(t, api, "detect")
	if err != nil || !strings.Contains(out, "detection(s)") {
		t.Fatalf("detect: %v\n%s", err, out)
	}
	out, err = runCLI(t, api, "scan", "start", "--model", "resnet", "--confidence", "0.5")
	if err != nil || !strings.Contains(out, "auto-scan started") {
		t.Fatalf("scan start: %v\n%s", err, out)
	}
	if _, err := runCLI(t, api, "scan", "stop"); err != nil {
		t.Fatalf("scan stop: %v", err)
	}
	if _, err := runCLI(t, api, "disconnect"); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if sim.Status().Connected {
		t.Fatalf("sim still connected")
	}
}
