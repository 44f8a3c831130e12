package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roman-kulish/waterfall/internal/annotation"
	"github.com/roman-kulish/waterfall/internal/config"
	"github.com/roman-kulish/waterfall/internal/spectrum"
	"github.com/roman-kulish/waterfall/internal/storage"
	"github.com/roman-kulish/waterfall/internal/sweep"
	"github.com/roman-kulish/waterfall/internal/waterfall"
)

const progressInterval = time.Second

type renderFlags struct {
	output      string
	format      string
	quality     int
	theme       string
	width       int
	height      int
	animated    bool
	interval    time.Duration
	annotations string

	dbPath    string
	sessionID int64
	minFreq   float64
	maxFreq   float64
	start     string
	end       string

	panX  float64
	panY  float64
	zoom  float64
	probe []float64

	noAxes    bool
	noInfo    bool
	noOverlay bool
}

func newRenderCmd(env *environment) *cobra.Command {
	var f renderFlags

	cmd := &cobra.Command{
		Use:   "render [sweeps]",
		Short: "Render a sweep capture into an image",
		Long: `Render reads a sweep payload (file path or http(s) URL) or a session stored by
the import command, paints the waterfall and writes it as PNG or JPEG.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var location string
			if len(args) > 0 {
				location = args[0]
			}
			return runRender(cmd, env, &f, location)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output", "o", "", "Path to the output image")
	flags.StringVarP(&f.format, "format", "f", string(config.ImagePNG), "Output image format [png, jpeg]")
	flags.IntVar(&f.quality, "quality", 98, "JPEG quality [1, 100]")
	flags.StringVarP(&f.theme, "theme", "t", "", "Color theme, see the themes command")
	flags.IntVar(&f.width, "width", 0, "Plot width in pixels")
	flags.IntVar(&f.height, "height", 0, "Plot height in pixels")
	flags.BoolVar(&f.animated, "animated", false, "Paint progressively, one sweep per frame")
	flags.DurationVar(&f.interval, "frame-interval", 0, "Time between frames of an animated pass")
	flags.StringVarP(&f.annotations, "annotations", "a", "", "Annotation JSON file path or URL")

	flags.StringVar(&f.dbPath, "db", "", "Render a session from this database instead of a payload")
	flags.Int64VarP(&f.sessionID, "session", "s", 0, "Session ID, used with --db")
	flags.Float64Var(&f.minFreq, "min-freq", 0, "Lower frequency bound in Hz, used with --db")
	flags.Float64Var(&f.maxFreq, "max-freq", 0, "Upper frequency bound in Hz, used with --db")
	flags.StringVar(&f.start, "start", "", "Start time (2006-01-02 15:04:05 or RFC 3339), used with --db")
	flags.StringVar(&f.end, "end", "", "End time (2006-01-02 15:04:05 or RFC 3339), used with --db")

	flags.Float64Var(&f.panX, "pan-x", 0, "Horizontal pan in pixels")
	flags.Float64Var(&f.panY, "pan-y", 0, "Vertical pan in pixels")
	flags.Float64Var(&f.zoom, "zoom", 1, "Zoom factor")
	flags.Float64SliceVar(&f.probe, "probe", nil, "Report the annotation under the plot position x,y")

	flags.BoolVar(&f.noAxes, "no-axes", false, "Do not draw frequency and time scales")
	flags.BoolVar(&f.noInfo, "no-info", false, "Do not draw the information bar")
	flags.BoolVar(&f.noOverlay, "no-overlay", false, "Do not draw annotations")

	return cmd
}

// applyFlags overrides the profile with the flags given on the command line or
// through the environment.
func (f *renderFlags) applyFlags(cmd *cobra.Command, p *config.Profile) error {
	flags := cmd.Flags()

	if flags.Changed("format") {
		p.Output.Format = config.ImageFormat(strings.ToLower(f.format))
	}
	if flags.Changed("quality") {
		p.Output.Quality = f.quality
	}
	if flags.Changed("theme") {
		p.Render.Theme = f.theme
	}
	if flags.Changed("width") {
		p.Render.Width = f.width
	}
	if flags.Changed("height") {
		p.Render.Height = f.height
	}
	if flags.Changed("animated") {
		p.Render.Animated = f.animated
	}
	if flags.Changed("frame-interval") {
		p.Render.FrameInterval = config.NewDuration(f.interval)
	}
	if flags.Changed("annotations") {
		p.Sources.Annotations = f.annotations
	}
	if flags.Changed("no-axes") {
		p.Output.Axes = !f.noAxes
	}
	if flags.Changed("no-info") {
		p.Output.InfoBar = !f.noInfo
	}
	if flags.Changed("no-overlay") {
		p.Output.Overlay = !f.noOverlay
	}
	if flags.Changed("pan-x") || flags.Changed("pan-y") || flags.Changed("zoom") {
		p.View = &config.ViewConfig{X: f.panX, Y: f.panY, K: f.zoom}
	}
	if flags.Changed("probe") && len(f.probe) != 2 {
		return fmt.Errorf("probe takes two coordinates, %d given", len(f.probe))
	}

	return p.Validate()
}

func runRender(cmd *cobra.Command, env *environment, f *renderFlags, location string) error {
	ctx := cmd.Context()
	logger := env.logger

	if f.output == "" {
		return errors.New("output file is required")
	}

	profile := *env.profile
	if err := f.applyFlags(cmd, &profile); err != nil {
		return fmt.Errorf("invalid render settings: %w", err)
	}

	opts, err := profile.Options()
	if err != nil {
		return err
	}

	ds, err := f.readDataset(ctx, cmd, logger, &profile, location)
	if err != nil {
		return err
	}

	var store *annotation.Store
	if profile.Sources.Annotations != "" {
		if store, err = waterfall.LoadAnnotations(ctx, waterfall.NewSource(profile.Sources.Annotations)); err != nil {
			return err
		}
		logger.Info("annotations loaded", slog.Int("count", store.Len()))
	}

	wc, err := waterfall.Initialize(ctx, ds, opts,
		waterfall.WithLogger(logger),
		waterfall.WithAnnotations(store),
	)
	if err != nil {
		return fmt.Errorf("initializing render context: %w", err)
	}
	defer wc.Close()

	if err = waitForPass(ctx, wc, logger); err != nil {
		return fmt.Errorf("rendering: %w", err)
	}

	if palette := wc.Palette(); palette != nil {
		logger.Debug("selectable themes", slog.Any("palette", palette))
	}

	if profile.View != nil {
		t := profile.View.Transform()
		if !wc.Zoom(t) {
			logger.Warn("view not applied", slog.String("transform", t.String()))
		}
	}

	if len(f.probe) == 2 {
		if a, ok := wc.HitTest(f.probe[0], f.probe[1]); ok {
			logger.Info("annotation found",
				slog.String("description", a.Description),
				slog.String("band", fmt.Sprintf("%s - %s", humanHz(a.FreqStart), humanHz(a.FreqStop))),
				slog.String("url", a.URL),
			)
		} else {
			logger.Info("no annotation at probe", slog.Any("position", f.probe))
		}
	}

	loc, err := profile.Location()
	if err != nil {
		return err
	}

	ann, err := newAnnotator(annotatorConfig{
		TimeFormat: profile.Output.TimeFormat,
		Location:   loc,
		Axes:       profile.Output.Axes,
		InfoBar:    profile.Output.InfoBar,
		Overlay:    profile.Output.Overlay,
	})
	if err != nil {
		return fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	img, err := ann.compose(wc)
	if err != nil {
		return fmt.Errorf("composing image: %w", err)
	}

	logger.Info("writing image",
		slog.Group("image",
			slog.String("destination", f.output),
			slog.String("format", string(profile.Output.Format)),
			slog.String("theme", opts.Theme.String()),
			slog.Int("width", img.Bounds().Dx()),
			slog.Int("height", img.Bounds().Dy()),
		))

	return writeImage(f.output, img, profile.Output.Format, profile.Output.Quality)
}

// readDataset loads the sweeps from the database session when --db is given and
// from the payload location otherwise.
func (f *renderFlags) readDataset(ctx context.Context, cmd *cobra.Command, logger *slog.Logger, p *config.Profile, location string) (*spectrum.Dataset, error) {
	if f.dbPath != "" {
		return f.readSession(ctx, cmd, logger, p)
	}

	if location == "" {
		location = p.Sources.Sweeps
	}
	if location == "" {
		return nil, errors.New("a sweep payload or --db is required")
	}

	src := waterfall.NewSource(location)
	logger.Info("loading sweeps", slog.String("source", src.String()))

	res := <-waterfall.LoadAsync(ctx, src, sweep.WithLogger(logger))
	if res.Err != nil {
		return nil, res.Err
	}

	logDataset(logger, res.Dataset)
	return res.Dataset, nil
}

func (f *renderFlags) readSession(ctx context.Context, cmd *cobra.Command, logger *slog.Logger, p *config.Profile) (*spectrum.Dataset, error) {
	if f.sessionID <= 0 {
		return nil, errors.New("session id is required")
	}

	loc, err := p.Location()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	var opts []storage.ReaderOption
	var filters []any
	if flags.Changed("min-freq") || flags.Changed("max-freq") {
		minFreq, maxFreq := -math.MaxFloat64, math.MaxFloat64
		if flags.Changed("min-freq") {
			minFreq = f.minFreq
			filters = append(filters, slog.String("minFreq", humanHz(minFreq)))
		}
		if flags.Changed("max-freq") {
			maxFreq = f.maxFreq
			filters = append(filters, slog.String("maxFreq", humanHz(maxFreq)))
		}
		opts = append(opts, storage.WithFreqRange(minFreq, maxFreq))
	}

	if f.start != "" || f.end != "" {
		start, end := time.Unix(0, math.MinInt64), time.Unix(0, math.MaxInt64)
		if f.start != "" {
			if start, err = parseTime(f.start, loc); err != nil {
				return nil, fmt.Errorf("parsing start time: %w", err)
			}
			filters = append(filters, slog.String("start", start.UTC().Format(time.DateTime)))
		}
		if f.end != "" {
			if end, err = parseTime(f.end, loc); err != nil {
				return nil, fmt.Errorf("parsing end time: %w", err)
			}
			filters = append(filters, slog.String("end", end.UTC().Format(time.DateTime)))
		}
		opts = append(opts, storage.WithTimeRange(start.UTC(), end.UTC()))
	}

	logger.Info("reader configuration", filters...)

	store := storage.NewSqliteStore(f.dbPath, storage.WithLogger(logger))
	defer store.Close()

	ds, err := store.ReadDataset(ctx, f.sessionID, opts...)
	if err != nil {
		return nil, fmt.Errorf("reading session %d: %w", f.sessionID, err)
	}

	logDataset(logger, ds)
	return ds, nil
}

// waitForPass blocks until the first pass completes, reporting the progress of
// animated passes.
func waitForPass(ctx context.Context, wc *waterfall.Context, logger *slog.Logger) error {
	done := make(chan error, 1)
	go func() {
		done <- wc.Wait()
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	total := len(wc.Dataset().Sweeps)
	for {
		select {
		case err := <-done:
			return err
		case <-ticker.C:
			logger.Info("rendering",
				slog.Int("painted", wc.Progress()),
				slog.Int("total", total),
			)
		case <-ctx.Done():
			wc.Close()
			<-done
			return ctx.Err()
		}
	}
}

func parseTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(time.DateTime, value, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

func logDataset(logger *slog.Logger, ds *spectrum.Dataset) {
	logger.Info("dataset ready",
		slog.Group("stats",
			slog.String("sweeps", humanize.Comma(int64(len(ds.Sweeps)))),
			slog.String("samples", humanize.Comma(int64(ds.NumSamples()))),
			slog.String("minTimestamp", ds.TimeRange.Min.Format(time.DateTime)),
			slog.String("maxTimestamp", ds.TimeRange.Max.Format(time.DateTime)),
			slog.String("minFreq", humanHz(ds.FreqRange.Min)),
			slog.String("maxFreq", humanHz(ds.FreqRange.Max)),
			slog.String("step", humanHz(ds.FreqStep)),
			slog.String("minPower", fmt.Sprintf("%0.2fdB", ds.PowerRange.Min)),
			slog.String("maxPower", fmt.Sprintf("%0.2fdB", ds.PowerRange.Max)),
		))
}
