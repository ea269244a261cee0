// Command ccnfit aligns CCNC counts to SMPS scans, fits activation curves to
// every scan of a batch and stores, plots and summarises the results.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/ccnfit/internal/charge"
	"github.com/banshee-data/ccnfit/internal/config"
	"github.com/banshee-data/ccnfit/internal/db"
	"github.com/banshee-data/ccnfit/internal/monitoring"
	"github.com/banshee-data/ccnfit/internal/pipeline"
	"github.com/banshee-data/ccnfit/internal/report"
	"github.com/banshee-data/ccnfit/internal/version"
)

var (
	configPath  = flag.String("config", "", "Tuning config JSON (defaults apply when empty)")
	inputPath   = flag.String("input", "", "Batch of scans as a JSON array")
	dbPath      = flag.String("db", "ccnfit.db", "SQLite results database (empty disables storage)")
	plotsDir    = flag.String("plots", "", "Directory for per-scan PNG plots (empty disables)")
	htmlPath    = flag.String("html", "", "Path of the HTML summary page (empty disables)")
	workers     = flag.Int("workers", -1, "Worker count override (0 = GOMAXPROCS, -1 = from config)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

var cliLog = monitoring.Component("ccnfit")

type options struct {
	ConfigPath string
	InputPath  string
	DBPath     string
	PlotsDir   string
	HTMLPath   string
	Workers    int
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *inputPath == "" {
		log.Fatal("-input is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, options{
		ConfigPath: *configPath,
		InputPath:  *inputPath,
		DBPath:     *dbPath,
		PlotsDir:   *plotsDir,
		HTMLPath:   *htmlPath,
		Workers:    *workers,
	}, os.Stdout)
	if err != nil {
		log.Fatalf("ccnfit: %v", err)
	}
}

func run(ctx context.Context, o options, out io.Writer) error {
	tuning := config.EmptyTuningConfig()
	if o.ConfigPath != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(o.ConfigPath); err != nil {
			return err
		}
	}
	if o.Workers >= 0 {
		tuning.Workers = &o.Workers
	}

	scans, err := loadScans(o.InputPath)
	if err != nil {
		return err
	}
	cliLog("loaded %d scans from %s", len(scans), o.InputPath)

	proc := pipeline.NewProcessor(pipeline.ConfigFromTuning(tuning), charge.Passthrough{})
	rep, err := proc.Run(ctx, scans)
	if err != nil {
		return err
	}

	if o.DBPath != "" {
		runID, err := store(o.DBPath, tuning, rep)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "run %s\n", runID)
	}
	if o.PlotsDir != "" {
		written, err := report.WritePlots(o.PlotsDir, scans, rep)
		if err != nil {
			return fmt.Errorf("write plots: %w", err)
		}
		cliLog("wrote %d plots to %s", len(written), o.PlotsDir)
	}
	if o.HTMLPath != "" {
		if err := writeHTML(o.HTMLPath, rep); err != nil {
			return err
		}
	}

	printSummary(out, rep)
	return nil
}

// loadScans reads a JSON array of scans. A scan without an index takes its
// position in the array and a scan without a duration takes the length of
// its SMPS series. Indices must be unique since results are keyed by them.
func loadScans(path string) ([]pipeline.Scan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	var scans []pipeline.Scan
	if err := json.Unmarshal(data, &scans); err != nil {
		return nil, fmt.Errorf("failed to parse input JSON: %w", err)
	}
	if len(scans) == 0 {
		return nil, fmt.Errorf("no scans in %s", path)
	}
	var keys []struct {
		Index *int `json:"index"`
	}
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse input JSON: %w", err)
	}

	seen := make(map[int]int, len(scans))
	for i := range scans {
		if keys[i].Index == nil {
			scans[i].Index = i
		}
		if scans[i].Duration == 0 {
			scans[i].Duration = len(scans[i].SMPS)
		}
		if prev, dup := seen[scans[i].Index]; dup {
			return nil, fmt.Errorf("scans %d and %d share index %d", prev, i, scans[i].Index)
		}
		seen[scans[i].Index] = i
	}
	return scans, nil
}

func store(path string, tuning *config.TuningConfig, rep *pipeline.Report) (string, error) {
	results, err := db.Open(path)
	if err != nil {
		return "", fmt.Errorf("open db: %w", err)
	}
	defer results.Close()

	tuningJSON, err := json.Marshal(tuning)
	if err != nil {
		return "", err
	}
	runID, err := results.CreateRun(version.Version, tuningJSON)
	if err != nil {
		return "", err
	}
	if err := results.RecordReport(runID, rep); err != nil {
		return "", err
	}
	return runID, nil
}

func writeHTML(path string, rep *pipeline.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	if err := report.WriteSummaryHTML(f, rep); err != nil {
		f.Close()
		return fmt.Errorf("render summary: %w", err)
	}
	return f.Close()
}

func printSummary(w io.Writer, rep *pipeline.Report) {
	if rep.ReferenceShiftOK {
		fmt.Fprintf(w, "reference shift %d\n", rep.ReferenceShift)
	} else {
		fmt.Fprintln(w, "reference shift unavailable")
	}
	for _, o := range rep.Outcomes {
		line := fmt.Sprintf("scan %d: shift %d status %d (%s)", o.Index, o.Shift, o.Status.Code, o.Status.Description)
		for i, dp := range o.Dp50s() {
			line += fmt.Sprintf(" dp50[%d]=%.1f", i, dp)
		}
		if o.Outlier {
			line += " outlier"
		}
		fmt.Fprintln(w, line)
	}
}
