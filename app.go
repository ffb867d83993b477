package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/enaudit/floorsense/floorplan"
)

// App encapsulates the application state and dependencies.
type App struct {
	Config       *floorplan.Config
	Store        floorplan.Store
	Learning     *floorplan.LearningStore
	Orchestrator *floorplan.Orchestrator
	Publisher    *floorplan.Publisher
	Results      *resultTracker

	// CLI flags (effectively dependencies)
	ConfigFile   string
	StoreDir     string
	ImageFile    string
	FloorID      string
	TargetWidth  int
	TargetHeight int
	OutputFile   string
	VectorFile   string
	Accept       bool
	HTTPPort     int
	MQTTMode     bool
}

// AppOptions carries parsed CLI flags into the App.
type AppOptions struct {
	ConfigFile   string
	StoreDir     string
	ImageFile    string
	FloorID      string
	TargetWidth  int
	TargetHeight int
	OutputFile   string
	VectorFile   string
	Accept       bool
	HTTPPort     int
	MQTTMode     bool
}

// NewApp creates a new App instance.
func NewApp() *App {
	return &App{
		Results: newResultTracker(),
	}
}

// ApplyOptions applies CLI options to the App instance.
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.StoreDir = opts.StoreDir
	a.ImageFile = opts.ImageFile
	a.FloorID = opts.FloorID
	a.TargetWidth = opts.TargetWidth
	a.TargetHeight = opts.TargetHeight
	a.OutputFile = opts.OutputFile
	a.VectorFile = opts.VectorFile
	a.Accept = opts.Accept
	a.HTTPPort = opts.HTTPPort
	a.MQTTMode = opts.MQTTMode
}

// Init loads configuration and wires the detection pipeline. A missing
// config file falls back to defaults so one-shot detection works without
// any setup.
func (a *App) Init() error {
	config, err := floorplan.LoadConfig(a.ConfigFile)
	if err != nil {
		if !strings.Contains(err.Error(), "not found") {
			return err
		}
		log.Printf("[APP] No config file at %s, using defaults", a.ConfigFile)
		config = &floorplan.Config{}
		config.Detection.ApplyDefaults()
	}
	a.Config = config

	storeDir := a.StoreDir
	if storeDir == "" {
		storeDir = config.Store.Dir
	}
	if storeDir == "" {
		storeDir = ".floorsense"
	}
	store, err := floorplan.NewFileStore(storeDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	a.Store = store
	a.Learning = floorplan.NewLearningStore(store, config.Detection)

	var neural floorplan.Detector
	if config.Neural.URL != "" {
		var opts []floorplan.InferOption
		if config.Neural.TimeoutSeconds > 0 {
			opts = append(opts, floorplan.WithInferTimeout(time.Duration(config.Neural.TimeoutSeconds*float64(time.Second))))
		}
		neural = floorplan.NewRemoteDetector(config.Neural.URL, opts...)
		log.Printf("[APP] Neural detector registered: %s", config.Neural.URL)
	}

	a.Orchestrator = floorplan.NewOrchestrator(config, a.Learning, neural)
	return nil
}

// RunDetectFile runs one detection on an image file and writes the
// requested outputs.
func (a *App) RunDetectFile() error {
	img, err := floorplan.DecodeImageFile(a.ImageFile)
	if err != nil {
		return err
	}

	result, err := a.Orchestrator.Detect(context.Background(), img, a.FloorID, a.TargetWidth, a.TargetHeight)
	if err != nil {
		return err
	}
	a.Results.Update(result)

	fmt.Printf("Floor %s: %d rooms detected (source=%s, confidence=%.2f)\n",
		a.FloorID, len(result.Rooms), result.Source, result.ConfidenceScore)
	for _, room := range result.Rooms {
		fmt.Printf("  %-24s %-10s (%.0f,%.0f) %.0fx%.0f confidence=%.2f\n",
			room.Name, room.Type, room.X, room.Y, room.Width, room.Height, room.Confidence)
	}

	if a.Accept {
		if err := a.Learning.Record(a.FloorID, result.Rooms, result.ConfidenceScore, false); err != nil {
			return err
		}
	}

	if a.OutputFile != "" {
		if err := a.writeOverlay(img, result); err != nil {
			return err
		}
		fmt.Printf("Created: %s\n", a.OutputFile)
	}

	if a.VectorFile != "" {
		if err := a.writeVector(result); err != nil {
			return err
		}
		fmt.Printf("Created: %s\n", a.VectorFile)
	}

	return nil
}

func (a *App) writeOverlay(img image.Image, result floorplan.DetectionResult) error {
	overlay := floorplan.RenderOverlay(img, result, a.TargetWidth, a.TargetHeight)
	f, err := os.Create(a.OutputFile)
	if err != nil {
		return fmt.Errorf("creating overlay output: %w", err)
	}
	defer f.Close()
	return png.Encode(f, overlay)
}

func (a *App) writeVector(result floorplan.DetectionResult) error {
	f, err := os.Create(a.VectorFile)
	if err != nil {
		return fmt.Errorf("creating vector output: %w", err)
	}
	defer f.Close()

	vr := floorplan.NewVectorRenderer(result, a.TargetWidth, a.TargetHeight)
	if strings.EqualFold(filepath.Ext(a.VectorFile), ".png") {
		return vr.RenderToPNG(f)
	}
	return vr.RenderToSVG(f)
}

// RunService starts the HTTP API (and the MQTT publisher when enabled)
// and blocks until interrupted.
func (a *App) RunService() error {
	if a.MQTTMode {
		client, err := floorplan.NewMQTTClient(a.Config.MQTT)
		if err != nil {
			log.Printf("[APP] MQTT unavailable: %v (detections will not be published)", err)
		} else {
			a.Publisher = floorplan.NewPublisher(client, a.Config.MQTT.Prefix)
			log.Printf("[APP] MQTT publisher connected to %s", a.Config.MQTT.Broker)
		}
	}

	port := a.HTTPPort
	if port == 0 {
		port = a.Config.HTTP.Port
	}
	if port == 0 {
		port = 8080
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: newHTTPServer(a),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[APP] HTTP server listening on :%d", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("[APP] Received %v, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// resultTracker holds the latest detection per floor for the HTTP
// endpoints.
type resultTracker struct {
	mu      sync.RWMutex
	results map[string]floorplan.DetectionResult
}

func newResultTracker() *resultTracker {
	return &resultTracker{results: make(map[string]floorplan.DetectionResult)}
}

// Update stores the latest result for a floor.
func (rt *resultTracker) Update(result floorplan.DetectionResult) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.results[result.FloorID] = result
}

// Get returns the latest result for a floor.
func (rt *resultTracker) Get(floorID string) (floorplan.DetectionResult, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	r, ok := rt.results[floorID]
	return r, ok
}
