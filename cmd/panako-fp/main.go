// Command panako-fp turns an audio file into an FPAN fingerprint file
// (§4.D/§4.E), optionally splitting long inputs into overlapping
// windows via the monitor segmenter (§4.F).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"panako/internal/config"
	"panako/internal/container"
	"panako/internal/cqt"
	"panako/internal/eventpoint"
	"panako/internal/fingerprint"
	"panako/internal/monitor"
	"panako/internal/pcm"
	"panako/internal/status"
	"panako/internal/xerrors"
)

func main() {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("panako-fp", flag.ExitOnError)
	monitorMode := fs.Bool("monitor", false, "segment long inputs into overlapping windows")
	fs.BoolVar(monitorMode, "m", false, "segment long inputs into overlapping windows (shorthand)")
	verbose := fs.Bool("verbose", false, "print diagnostic progress to stderr")
	configPath := fs.String("config", "", "path to a YAML tuning file (defaults built in)")
	fs.Parse(os.Args[1:])

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: panako-fp [--monitor] [--verbose] [--config path] <input_audio> <output_directory>")
		os.Exit(1)
	}
	inputPath := fs.Arg(0)
	outputDir := fs.Arg(1)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	diag := newDiagnostics(*verbose)
	report, err := run(inputPath, outputDir, *monitorMode, cfg, diag)
	if err != nil {
		status.WriteError(os.Stdout, err)
		os.Exit(1)
	}

	if err := status.WriteGenerator(os.Stdout, report); err != nil {
		log.Fatalf("writing status report: %v", err)
	}
}

func run(inputPath, outputDir string, monitorMode bool, cfg config.Config, diag *diagnostics) (status.GeneratorReport, error) {
	start := time.Now()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return status.GeneratorReport{}, xerrors.New(xerrors.IoError, err)
	}

	src, err := pcm.Open(inputPath)
	if err != nil {
		return status.GeneratorReport{}, err
	}
	diag.logf("decoded %s: %.2fs at %d Hz", inputPath, float64(src.DurationMs)/1000, src.SampleRate)

	windows := monitor.Plan(src, cfg.Monitor, monitorMode)
	diag.logf("planned %d window(s)", len(windows))

	frontend := cqt.NewFrontend(cfg.Spectral)
	var allRecords []container.Record
	for _, w := range windows {
		extractor := eventpoint.NewExtractor(cfg.EventPoints, cfg.Spectral.TotalBins())
		points := extractor.Extract(frontend.Frames(w.Source))
		hashes := fingerprint.Generate(points, cfg.Hashing)

		windowDoc := container.FromHashes(hashes, container.Metadata{})
		allRecords = append(allRecords, monitor.RewriteAbsolute(windowDoc.Records, w, cfg.Spectral)...)

		diag.logf("window %d [%.1fs-%.1fs]: %d event points, %d hashes", w.Index, w.StartS, w.EndS, len(points), len(hashes))
	}

	meta := container.Metadata{
		Algorithm:  container.AlgorithmID,
		SourceFile: filepath.Base(inputPath),
		DurationMs: src.DurationMs,
		SampleRate: pcm.TargetSampleRate,
		Channels:   pcm.TargetChannels,
		Params: map[string]string{
			"bins_per_octave": fmt.Sprint(cfg.Spectral.BinsPerOctave),
			"octaves":         fmt.Sprint(cfg.Spectral.Octaves),
		},
	}
	if monitorMode && len(windows) > 1 {
		meta.Segments = monitor.Segments(windows)
	}

	doc := container.Document{Meta: meta, Records: allRecords}

	outBase := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, outBase+".fp")
	if err := container.Write(outputPath, doc); err != nil {
		return status.GeneratorReport{}, err
	}

	return status.GeneratorReport{
		InputFile:             inputPath,
		OutputFile:            outputPath,
		DurationSeconds:       float64(src.DurationMs) / 1000,
		NumFingerprints:       len(allRecords),
		ProcessingTimeSeconds: time.Since(start).Seconds(),
		Segments:              doc.Meta.Segments,
	}, nil
}

// diagnostics prints --verbose progress to stderr in cyan so it
// is visually distinct from the stdout status document, never writing
// to stdout itself.
type diagnostics struct {
	enabled bool
	printer *color.Color
}

func newDiagnostics(enabled bool) *diagnostics {
	return &diagnostics{enabled: enabled, printer: color.New(color.FgCyan)}
}

func (d *diagnostics) logf(format string, args ...any) {
	if !d.enabled {
		return
	}
	d.printer.Fprintf(os.Stderr, format+"\n", args...)
}
