package app

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roman-kulish/waterfall/internal/annotation"
	"github.com/roman-kulish/waterfall/internal/scale"
	"github.com/roman-kulish/waterfall/internal/spectrum"
)

// testPayload has four sweeps 10s apart, ten 1kHz bins from 100kHz and powers
// between -90 and -10 dB. On a 90x80 plot every cell is 10x20 pixels.
func testPayload() string {
	var sb strings.Builder
	for i := 0; i < 4; i++ {
		fmt.Fprintf(&sb, "2024-05-01, 10:00:%02d, 100000, 110000, 1000, 10", i*10)
		for k := 0; k < 10; k++ {
			fmt.Fprintf(&sb, ", %d", -90+((i*3+k)%9)*10)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func execute(t *testing.T, args ...string) (stdout, logs string, err error) {
	t.Helper()

	var out, logBuf bytes.Buffer
	var level slog.LevelVar
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: &level}))

	cmd := NewRootCmd(logger, &level)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err = cmd.ExecuteContext(context.Background())
	return out.String(), logBuf.String(), err
}

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening image: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding image: %v", err)
	}
	return img
}

func testColorMap(t *testing.T) *scale.ColorMap {
	t.Helper()
	cm, err := scale.NewColorMap(scale.DefaultTheme, spectrum.Range[float64]{Min: -90, Max: -10})
	if err != nil {
		t.Fatalf("NewColorMap failed: %v", err)
	}
	return cm
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestRender_PlotOnly(t *testing.T) {
	sweeps := writeFile(t, "sweeps.csv", testPayload())
	output := filepath.Join(t.TempDir(), "out.png")

	_, _, err := execute(t, "render", sweeps,
		"-o", output,
		"--width", "90", "--height", "80",
		"--no-axes", "--no-info", "--no-overlay",
	)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	img := decodePNG(t, output)
	if got := img.Bounds(); got != image.Rect(0, 0, 90, 80) {
		t.Fatalf("got bounds %v, want 90x80", got)
	}

	cm := testColorMap(t)
	tests := []struct {
		x, y  int
		power float64
	}{
		{5, 5, -90},   // sweep 0, bin 0
		{25, 5, -70},  // sweep 0, bin 2
		{5, 25, -60},  // sweep 1, bin 0
		{85, 75, -10}, // sweep 3, bin 8
	}
	for _, tt := range tests {
		if got, want := rgbaAt(img, tt.x, tt.y), cm.Color(tt.power); got != want {
			t.Errorf("pixel (%d, %d): got %v, want %v", tt.x, tt.y, got, want)
		}
	}
}

func TestRender_Decorated(t *testing.T) {
	sweeps := writeFile(t, "sweeps.csv", testPayload())
	annotations := writeFile(t, "annotations.json",
		`[{"freqStart": 103000, "freqStop": 105000, "description": "Beacon", "url": "https://example.com/beacon"}]`)
	output := filepath.Join(t.TempDir(), "out.png")

	_, logs, err := execute(t, "render", sweeps,
		"-o", output,
		"--width", "90", "--height", "80",
		"--annotations", annotations,
		"--probe", "35,10",
	)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	img := decodePNG(t, output)
	want := image.Rect(0, 0,
		90+defaultLeftBorder+defaultRightBorder,
		80+defaultTopBorder+defaultBottomBorder,
	)
	if got := img.Bounds(); got != want {
		t.Fatalf("got bounds %v, want %v", got, want)
	}

	if got := rgbaAt(img, 0, 0); got != (color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}) {
		t.Errorf("border should be white, got %v", got)
	}

	// First cell, outside the annotated band.
	cm := testColorMap(t)
	if got, want := rgbaAt(img, defaultLeftBorder+5, defaultTopBorder+5), cm.Color(-90); got != want {
		t.Errorf("plot pixel: got %v, want %v", got, want)
	}

	if !strings.Contains(logs, "annotation found") || !strings.Contains(logs, "Beacon") {
		t.Errorf("probe did not report the annotation, logs:\n%s", logs)
	}
}

func TestRender_Zoomed(t *testing.T) {
	sweeps := writeFile(t, "sweeps.csv", testPayload())
	output := filepath.Join(t.TempDir(), "out.png")

	_, _, err := execute(t, "render", sweeps,
		"-o", output,
		"--width", "90", "--height", "80",
		"--no-axes", "--no-info",
		"--zoom", "2",
	)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	img := decodePNG(t, output)
	cm := testColorMap(t)

	// At 2x every cell covers 20x40 pixels.
	if got, want := rgbaAt(img, 25, 5), cm.Color(-80); got != want {
		t.Errorf("pixel (25, 5): got %v, want %v", got, want)
	}
	if got, want := rgbaAt(img, 5, 45), cm.Color(-60); got != want {
		t.Errorf("pixel (5, 45): got %v, want %v", got, want)
	}
}

func TestRender_Invalid(t *testing.T) {
	sweeps := writeFile(t, "sweeps.csv", testPayload())
	output := filepath.Join(t.TempDir(), "out.png")

	tests := []struct {
		name string
		args []string
	}{
		{"no output", []string{"render", sweeps}},
		{"no payload", []string{"render", "-o", output}},
		{"bad format", []string{"render", sweeps, "-o", output, "--format", "gif"}},
		{"bad theme", []string{"render", sweeps, "-o", output, "--theme", "rainbow"}},
		{"bad probe", []string{"render", sweeps, "-o", output, "--probe", "1"}},
		{"missing payload", []string{"render", filepath.Join(t.TempDir(), "missing.csv"), "-o", output}},
		{"session without id", []string{"render", "--db", filepath.Join(t.TempDir(), "x.db"), "-o", output}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := execute(t, tt.args...); err == nil {
				t.Errorf("expected error for %v", tt.args)
			}
		})
	}
}

func TestRender_Profile(t *testing.T) {
	sweeps := writeFile(t, "sweeps.csv", testPayload())
	profile := writeFile(t, "profile.yml", fmt.Sprintf(`
render:
  theme: grayscale
  width: 90
  height: 80
output:
  axes: false
  infoBar: false
sources:
  sweeps: %s
`, sweeps))
	output := filepath.Join(t.TempDir(), "out.png")

	if _, _, err := execute(t, "render", "--profile", profile, "-o", output); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	img := decodePNG(t, output)
	if got := img.Bounds(); got != image.Rect(0, 0, 90, 80) {
		t.Fatalf("got bounds %v, want 90x80", got)
	}

	got := rgbaAt(img, 5, 5)
	if got.R != got.G || got.G != got.B {
		t.Errorf("grayscale theme should paint gray, got %v", got)
	}
}

func TestImportAndRenderSession(t *testing.T) {
	sweeps := writeFile(t, "sweeps.csv", testPayload())
	db := filepath.Join(t.TempDir(), "sweeps.db")

	out, _, err := execute(t, "import", sweeps, "--db", db)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if got := strings.TrimSpace(out); got != "1" {
		t.Errorf("got session %q, want 1", got)
	}

	out, _, err = execute(t, "sessions", "--db", db)
	if err != nil {
		t.Fatalf("sessions failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want header and one session:\n%s", len(lines), out)
	}
	if fields := strings.Fields(lines[1]); fields[0] != "1" || fields[len(fields)-1] != sweeps {
		t.Errorf("unexpected session row %q", lines[1])
	}

	output := filepath.Join(t.TempDir(), "out.png")
	_, _, err = execute(t, "render",
		"--db", db, "--session", "1",
		"--min-freq", "100000",
		"-o", output,
		"--width", "90", "--height", "80",
		"--no-axes", "--no-info",
	)
	if err != nil {
		t.Fatalf("render from session failed: %v", err)
	}

	img := decodePNG(t, output)
	cm := testColorMap(t)
	if got, want := rgbaAt(img, 25, 5), cm.Color(-70); got != want {
		t.Errorf("pixel (25, 5): got %v, want %v", got, want)
	}
}

func TestAnnotationsConvert(t *testing.T) {
	db := writeFile(t, "sigid.csv", strings.Join([]string{
		"Wide signal*100*200*x*x*x*x*https://www.sigidwiki.com/wiki/Wide",
		"No frequency*0*0*x*x*x*x*https://www.sigidwiki.com/wiki/None",
		"Narrow signal*150*151*x*x*x*x*https://www.sigidwiki.com/wiki/Narrow",
	}, "\n"))
	output := filepath.Join(t.TempDir(), "annotations.json")

	if _, _, err := execute(t, "annotations", "convert", db, "-o", output); err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	f, err := os.Open(output)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	store, err := annotation.Load(f)
	if err != nil {
		t.Fatalf("loading annotations: %v", err)
	}
	if got := store.Len(); got != 2 {
		t.Errorf("got %d annotations, want 2", got)
	}
}

func TestThemes(t *testing.T) {
	out, _, err := execute(t, "themes")
	if err != nil {
		t.Fatalf("themes failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != len(scale.Themes()) {
		t.Errorf("got %d themes, want %d", len(lines), len(scale.Themes()))
	}
	if !strings.Contains(out, "* "+scale.DefaultTheme.String()) {
		t.Errorf("default theme not marked:\n%s", out)
	}
}
