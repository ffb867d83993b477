package main

import (
	"flag"
	"fmt"
	"log"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	configFile   = flag.String("config", "config.yaml", "Path to configuration file")
	storeDir     = flag.String("store-dir", "", "Directory for learning-sample persistence (default from config)")
	detectFile   = flag.String("detect", "", "Run one detection on the given floor-plan image and exit")
	floorID      = flag.String("floor", "", "Floor identifier for detection")
	targetWidth  = flag.Int("width", 1000, "Target output width in consumer coordinates")
	targetHeight = flag.Int("height", 800, "Target output height in consumer coordinates")
	outputFile   = flag.String("output", "", "Write an annotated overlay PNG for -detect mode")
	vectorFile   = flag.String("vector", "", "Write a vector export (.svg or .png) for -detect mode")
	acceptFlag   = flag.Bool("accept", false, "Record the -detect result into the learning store")
	httpMode     = flag.Bool("http", false, "Run the HTTP API server")
	httpPort     = flag.Int("http-port", 0, "HTTP server port (default from config, else 8080)")
	mqttMode     = flag.Bool("mqtt", false, "Publish accepted detections to MQTT")
)

func main() {
	flag.Parse()
	fmt.Printf("floorsense version: %s\n", Version)

	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile:   *configFile,
		StoreDir:     *storeDir,
		ImageFile:    *detectFile,
		FloorID:      *floorID,
		TargetWidth:  *targetWidth,
		TargetHeight: *targetHeight,
		OutputFile:   *outputFile,
		VectorFile:   *vectorFile,
		Accept:       *acceptFlag,
		HTTPPort:     *httpPort,
		MQTTMode:     *mqttMode,
	})

	if err := app.Init(); err != nil {
		log.Fatalf("Error initializing: %v", err)
	}

	if *detectFile != "" {
		if *floorID == "" {
			log.Fatal("-floor is required with -detect")
		}
		if err := app.RunDetectFile(); err != nil {
			log.Fatalf("Error detecting rooms: %v", err)
		}
		return
	}

	if *httpMode || *mqttMode {
		if err := app.RunService(); err != nil {
			log.Fatalf("Error running service: %v", err)
		}
		return
	}

	fmt.Println("floorsense room-detection service")
	fmt.Println("Use -detect=plan.png -floor=ID to run a one-shot detection")
	fmt.Println("Use -detect=plan.png -floor=ID -accept to record the result for learning")
	fmt.Println("Use -http to run the HTTP API server")
	fmt.Println("Use -http -mqtt to also publish accepted detections")
	fmt.Println("\nConfiguration:")
	fmt.Println("  config.yaml - thresholds, floors, broker, and store settings")
	fmt.Println("  .floorsense/ - persisted learning samples (JSON)")
}
