// Command panako-match queries a corpus of FPAN fingerprint files for
// matches against one query file (§4.G).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"panako/internal/config"
	"panako/internal/matcher"
	"panako/internal/status"
)

func main() {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("panako-match", flag.ExitOnError)
	maxResults := fs.Int("max-results", 5, "maximum number of ranked matches to report")
	verbose := fs.Bool("verbose", false, "print diagnostic progress to stderr")
	configPath := fs.String("config", "", "path to a YAML tuning file (defaults built in)")
	timeout := fs.Duration("timeout", 2*time.Minute, "deadline for the whole corpus-load-and-match run")
	fs.Parse(os.Args[1:])

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: panako-match [--max-results N] [--verbose] <corpus_directory> <query_fp_path>")
		os.Exit(1)
	}
	corpusDir := fs.Arg(0)
	queryPath := fs.Arg(1)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	diag := newDiagnostics(*verbose)
	diag.logf("loading corpus from %s", corpusDir)

	detections, err := matcher.DetectFile(ctx, corpusDir, queryPath, cfg, *maxResults)
	if err != nil {
		status.WriteError(os.Stdout, err)
		os.Exit(1)
	}
	diag.logf("query produced %d candidate match(es)", len(detections))

	report := status.MatcherReport{
		QueryPath:  queryPath,
		Detections: len(detections),
		Results:    status.FromDetections(detections),
	}
	if err := status.WriteMatcher(os.Stdout, report); err != nil {
		log.Fatalf("writing status report: %v", err)
	}
}

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
