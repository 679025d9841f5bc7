// Command aperture-report analyzes radiotherapy beam delivery snapshots. It
// reconstructs MLC apertures per control point, reconciles gantry and dose
// rate dynamics, and reports plan complexity metrics as CSV files, PNG
// profiles, and an HTTP API with chart pages.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/kestrel-data/aperture.report/internal/analysis"
	"github.com/kestrel-data/aperture.report/internal/api"
	"github.com/kestrel-data/aperture.report/internal/db"
	"github.com/kestrel-data/aperture.report/internal/machine"
	"github.com/kestrel-data/aperture.report/internal/planfile"
	"github.com/kestrel-data/aperture.report/internal/report"
	"github.com/kestrel-data/aperture.report/internal/units"
	"github.com/kestrel-data/aperture.report/internal/version"
)

var (
	planPath      = flag.String("plan", "", "Analyze a plan JSON file and exit instead of serving")
	outDir        = flag.String("out", "report", "Output directory for one-shot CSV and plots")
	renderPlots   = flag.Bool("plots", false, "Render per-beam profile PNGs in one-shot mode")
	listen        = flag.String("listen", ":8080", "Listen address")
	dbFile        = flag.String("db", "", "SQLite database path (serve mode default "+defaultDBFile+"; empty skips persistence in one-shot mode)")
	machinesPath  = flag.String("machines", "", "JSON file of machine table overrides")
	binSize       = flag.Int("bin", analysis.DefaultBinSize, "Histogram bin width in mm^2")
	migrationsDir = flag.String("migrations", "internal/db/migrations", "Database migrations directory")
	displayUnits  = flag.String("units", units.MM2, "Chart display units ("+units.GetValidUnitsString()+")")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

const defaultDBFile = "aperture_runs.db"

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("aperture-report %s\n", version.String())
		return
	}

	if !units.IsValid(*displayUnits) {
		log.Fatalf("Invalid units %q (valid: %s)", *displayUnits, units.GetValidUnitsString())
	}

	registry := machine.NewRegistry()
	if *machinesPath != "" {
		if err := registry.LoadOverrides(*machinesPath); err != nil {
			log.Fatalf("Failed to load machine overrides: %v", err)
		}
	}

	if *planPath != "" {
		cfg := oneShotConfig{
			planPath:   *planPath,
			outDir:     *outDir,
			plots:      *renderPlots,
			dbFile:     *dbFile,
			migrations: *migrationsDir,
			binSize:    *binSize,
		}
		if err := runOnce(cfg, registry); err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}
		return
	}

	serve(registry)
}

type oneShotConfig struct {
	planPath   string
	outDir     string
	plots      bool
	dbFile     string
	migrations string
	binSize    int
}

// runOnce analyzes one plan file, writes the CSV report (and optional plots)
// under cfg.outDir, and persists the run when a database path is named.
func runOnce(cfg oneShotConfig, registry *machine.Registry) error {
	plan, err := planfile.Load(cfg.planPath)
	if err != nil {
		return err
	}

	res := analysis.AnalyzePlan(plan, registry, analysis.Options{HistogramBinSize: cfg.binSize})
	run := db.RunFromResult(res, cfg.planPath)

	for _, sk := range run.Skipped {
		log.Printf("beam %s skipped: %s", sk.BeamID, sk.Reason)
	}

	if cfg.dbFile != "" {
		database, err := db.NewDB(cfg.dbFile)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer database.Close()

		if err := database.MigrateUp(cfg.migrations); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		if err := db.NewRunStore(database).InsertRun(run); err != nil {
			return fmt.Errorf("store run: %w", err)
		}
		log.Printf("stored run %s in %s", run.RunID, cfg.dbFile)
	}

	if err := os.MkdirAll(cfg.outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	metricsPath := filepath.Join(cfg.outDir, "metrics.csv")
	metricsFile, err := os.Create(metricsPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", metricsPath, err)
	}
	defer metricsFile.Close()

	histogramPath := filepath.Join(cfg.outDir, "histogram.csv")
	histogramFile, err := os.Create(histogramPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", histogramPath, err)
	}
	defer histogramFile.Close()

	if err := report.NewCSVWriter(metricsFile, histogramFile).WriteRun(run); err != nil {
		return err
	}
	log.Printf("✓ Created: %s", metricsPath)
	log.Printf("✓ Created: %s", histogramPath)

	if cfg.plots {
		n, err := report.GenerateProfilePlots(cfg.outDir, run)
		if err != nil {
			return err
		}
		log.Printf("✓ Created: %d plot file(s) in %s", n, cfg.outDir)
	}

	s := run.Summary
	log.Printf("plan %s: %d beam(s), %.1f MU, %.1f s, MU per Gy %.2f, equivalent square %.1f mm",
		run.PlanID, run.BeamCount, s.PlanMU, s.TotalTime, s.MUPerDose, s.EquivalentSquareLength)

	return nil
}

func serve(registry *machine.Registry) {
	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	path := *dbFile
	if path == "" {
		path = defaultDBFile
	}

	database, err := db.NewDB(path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(db.NewRunStore(database), registry, *displayUnits).ServeMux()

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("aperture-report %s listening on %s (database %s)", version.String(), *listen, path)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// Create a shutdown context with a shorter timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
