package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	_ "net/http/pprof" // Enable pprof
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/signstream/vision-pipeline/internal/codec"
	"github.com/signstream/vision-pipeline/internal/governor"
	"github.com/signstream/vision-pipeline/internal/logger"
	"github.com/signstream/vision-pipeline/internal/metrics"
	"github.com/signstream/vision-pipeline/internal/optimizer"
	"github.com/signstream/vision-pipeline/internal/pipeline"
	"github.com/signstream/vision-pipeline/internal/quality"
	"github.com/signstream/vision-pipeline/internal/sysmon"
	"github.com/signstream/vision-pipeline/internal/workerpool"
	"github.com/signstream/vision-pipeline/pkg/types"
)

var (
	// Command-line flags
	httpAddr    = flag.String("http", ":8081", "HTTP server address")
	metricsAddr = flag.String("metrics", ":9090", "Metrics server address")
	pprofAddr   = flag.String("pprof", ":6060", "pprof server address")
	minFPS      = flag.Float64("min-fps", 10, "Adaptive frame rate floor")
	maxFPS      = flag.Float64("max-fps", 30, "Adaptive frame rate ceiling")
	cooldown    = flag.Duration("cooldown", 5*time.Second, "Quality transition cooldown")
	interval    = flag.Duration("interval", time.Second, "Optimizer cycle interval")
	workersMax  = flag.Int("workers-max", 0, "Worker pool ceiling (0 = logical cores)")
	history     = flag.Int("history", 300, "Performance history capacity")
	selftest    = flag.Bool("selftest", false, "Drive the pipeline with synthetic frames")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error, silent)")
	logColor    = flag.Bool("log-color", true, "Enable colored log output")
)

// Daemon ties the pipeline, the optimizer loop and the HTTP surfaces together
type Daemon struct {
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	metrics    *metrics.Metrics
	loop       *optimizer.Loop
	pipeline   *pipeline.Pipeline
	httpServer *http.Server
}

func main() {
	flag.Parse()

	// Initialize logger
	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, *logColor)

	logger.Info("Main", "Frame pipeline starting...")
	logger.Info("Main", "Log level: %s", level)

	d, err := NewDaemon()
	if err != nil {
		log.Fatalf("Failed to create daemon: %v", err)
	}

	if err := d.Start(); err != nil {
		log.Fatalf("Failed to start daemon: %v", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")

	if err := d.Shutdown(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Pipeline stopped")
}

// NewDaemon constructs the full processing stack from the flag values
func NewDaemon() (*Daemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := types.DefaultConfig()
	cfg.MinFPS = *minFPS
	cfg.MaxFPS = *maxFPS
	cfg.Cooldown = *cooldown
	cfg.SampleInterval = *interval
	cfg.WorkerMax = *workersMax
	cfg.HistoryCapacity = *history
	cfg = cfg.Normalize()

	m := metrics.New()

	registry := codec.NewRegistry()
	compressor := codec.NewAdaptiveCompressor(registry)
	qualityMgr := quality.NewManager(cfg, nil)
	frameRate := governor.NewFrameRate(cfg)

	sampler := sysmon.NewSystem()
	poolGov, err := workerpool.NewGovernor(sampler, cfg)
	if err != nil {
		cancel()
		return nil, err
	}

	stats := optimizer.NewStats()
	loop := optimizer.New(cfg, sampler, qualityMgr, frameRate, poolGov, compressor, stats, m)
	pipe := pipeline.New(frameRate, qualityMgr, poolGov, compressor, stats, m)

	mux := http.NewServeMux()
	d := &Daemon{
		ctx:      ctx,
		cancel:   cancel,
		metrics:  m,
		loop:     loop,
		pipeline: pipe,
		httpServer: &http.Server{
			Addr:    *httpAddr,
			Handler: mux,
		},
	}
	d.setupRoutes(mux)
	return d, nil
}

// Start launches the optimizer loop and the HTTP surfaces
func (d *Daemon) Start() error {
	log.Printf("Starting frame pipeline...")
	log.Printf("  HTTP server: %s", *httpAddr)
	log.Printf("  Metrics server: %s", *metricsAddr)
	log.Printf("  pprof server: %s", *pprofAddr)
	log.Printf("  Frame rate bounds: %.0f-%.0f fps", *minFPS, *maxFPS)

	// Start pprof server
	go func() {
		log.Printf("Starting pprof server on %s", *pprofAddr)
		if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
			log.Printf("pprof server error: %v", err)
		}
	}()

	// Start metrics server
	go func() {
		log.Printf("Starting metrics server on %s", *metricsAddr)
		if err := d.metrics.StartServer(*metricsAddr); err != nil {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	// Start HTTP server
	go func() {
		log.Printf("Starting HTTP server on %s", *httpAddr)
		if err := d.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	d.loop.Start()

	if *selftest {
		d.wg.Add(1)
		go d.generateFrames()
	}

	log.Println("Pipeline started successfully")
	return nil
}

// generateFrames drives the pipeline with synthetic frames so the
// daemon can be observed end to end without an ingest layer.
func (d *Daemon) generateFrames() {
	defer d.wg.Done()

	const width, height, channels = 320, 240, 3
	logger.Info("Selftest", "Generating %dx%d synthetic frames at %.0ffps", width, height, *maxFPS)

	ticker := time.NewTicker(time.Duration(float64(time.Second) / *maxFPS))
	defer ticker.Stop()

	buf := make([]byte, width*height*channels)
	var frameNum uint64

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			frameNum++
			// Moving gradient so successive frames differ
			shift := byte(frameNum)
			for i := range buf {
				buf[i] = byte(i) + shift
			}
			frame := &types.Frame{
				Data:      buf,
				Width:     width,
				Height:    height,
				Channels:  channels,
				Timestamp: time.Now(),
				FrameNum:  frameNum,
			}
			if _, err := d.pipeline.Process(frame); err != nil &&
				err != pipeline.ErrSkipped && err != pipeline.ErrDropped {
				logger.Warn("Selftest", "Process error: %v", err)
			}
			if frameNum%300 == 0 {
				snap := d.loop.Snapshot()
				logger.Info("Selftest", "frame %d: profile=%s fps=%.1f backend=%s workers=%d",
					frameNum, snap.Profile.Name, snap.AdaptiveFPS, snap.Backend, snap.Workers)
			}
		}
	}
}

// setupRoutes sets up HTTP routes
func (d *Daemon) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/status", d.handleStatus)
	mux.HandleFunc("/history", d.handleHistory)
	mux.HandleFunc("/health", d.handleHealth)
}

// handleStatus reports the current published settings snapshot
func (d *Daemon) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(d.loop.Snapshot())
}

// handleHistory reports the stored performance samples, oldest first
func (d *Daemon) handleHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(d.loop.History())
}

// handleHealth handles health check
func (d *Daemon) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := d.loop.Snapshot()
	if !snap.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  map[bool]string{true: "ok", false: "degraded"}[snap.Healthy],
		"active":  snap.Active,
		"backend": snap.Backend,
		"workers": snap.Workers,
	})
}

// Shutdown gracefully stops the generator, the optimizer and the HTTP server
func (d *Daemon) Shutdown() error {
	d.cancel()
	d.wg.Wait()

	d.loop.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.httpServer.Shutdown(ctx)
}
