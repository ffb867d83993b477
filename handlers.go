package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/enaudit/floorsense/floorplan"
)

// maxUploadBytes caps detection request bodies at 20 MB.
const maxUploadBytes = 20 << 20

// newHTTPServer creates an HTTP server with all endpoints.
func newHTTPServer(app *App) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
			Busy      bool      `json:"busy"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			Busy:      app.Orchestrator.Busy(),
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	// Detection endpoint: image body in, DetectionResult JSON out
	mux.HandleFunc("/api/detect", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}

		floorID, targetW, targetH, ok := detectParams(w, r)
		if !ok {
			return
		}

		data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
		if err != nil {
			http.Error(w, "reading request body", http.StatusBadRequest)
			return
		}

		result, err := app.Orchestrator.DetectBytes(r.Context(), data, floorID, targetW, targetH)
		if err != nil {
			var decodeErr *floorplan.DecodeError
			if errors.As(err, &decodeErr) {
				http.Error(w, decodeErr.Error(), http.StatusUnprocessableEntity)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		app.Results.Update(result)
		log.Printf("[HTTP] /api/detect floor=%s rooms=%d source=%s", floorID, len(result.Rooms), result.Source)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			log.Printf("Error encoding detection result: %v", err)
		}
	})

	// Overlay endpoint: same input as /api/detect, annotated PNG out
	mux.HandleFunc("/api/detect/overlay.png", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}

		floorID, targetW, targetH, ok := detectParams(w, r)
		if !ok {
			return
		}

		data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
		if err != nil {
			http.Error(w, "reading request body", http.StatusBadRequest)
			return
		}

		img, err := floorplan.DecodeImage(data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		result, err := app.Orchestrator.Detect(r.Context(), img, floorID, targetW, targetH)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		app.Results.Update(result)

		overlay := floorplan.RenderOverlay(img, result, targetW, targetH)
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := png.Encode(w, overlay); err != nil {
			log.Printf("Error encoding overlay PNG: %v", err)
		}
	})

	// Accept endpoint: records a (possibly corrected) detection into the
	// learning store and publishes it when MQTT is connected
	mux.HandleFunc("/api/accept", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			FloorID           string                   `json:"floorId"`
			Rooms             []floorplan.DetectedRoom `json:"rooms"`
			Confidence        float64                  `json:"confidence"`
			ManuallyCorrected bool                     `json:"manuallyCorrected"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if req.FloorID == "" {
			http.Error(w, "floorId is required", http.StatusBadRequest)
			return
		}

		if err := app.Learning.Record(req.FloorID, req.Rooms, req.Confidence, req.ManuallyCorrected); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Printf("[HTTP] /api/accept floor=%s rooms=%d corrected=%v", req.FloorID, len(req.Rooms), req.ManuallyCorrected)

		if app.Publisher != nil {
			result := floorplan.DetectionResult{
				FloorID:         req.FloorID,
				Rooms:           req.Rooms,
				ConfidenceScore: req.Confidence,
				Source:          "accepted",
			}
			if err := app.Publisher.PublishDetection(result); err != nil {
				log.Printf("[HTTP] Publish after accept failed: %v", err)
			}
		}

		w.WriteHeader(http.StatusNoContent)
	})

	// Latest detection for a floor
	mux.HandleFunc("/api/detections", func(w http.ResponseWriter, r *http.Request) {
		floorID := r.URL.Query().Get("floor")
		result, ok := app.Results.Get(floorID)
		if !ok {
			http.Error(w, "no detection for floor", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			log.Printf("Error encoding detections: %v", err)
		}
	})

	// Latest detection converted to audit room details
	mux.HandleFunc("/api/roomdetails", func(w http.ResponseWriter, r *http.Request) {
		floorID := r.URL.Query().Get("floor")
		result, ok := app.Results.Get(floorID)
		if !ok {
			http.Error(w, "no detection for floor", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(floorplan.ToRoomDetails(result)); err != nil {
			log.Printf("Error encoding room details: %v", err)
		}
	})

	// Pattern consistency for a floor
	mux.HandleFunc("/api/consistency", func(w http.ResponseWriter, r *http.Request) {
		floorID := r.URL.Query().Get("floor")
		if floorID == "" {
			http.Error(w, "floor query parameter is required", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(app.Learning.Consistency(floorID)); err != nil {
			log.Printf("Error encoding consistency: %v", err)
		}
	})

	// Learning samples for a floor
	mux.HandleFunc("/api/samples", func(w http.ResponseWriter, r *http.Request) {
		floorID := r.URL.Query().Get("floor")
		if floorID == "" {
			http.Error(w, "floor query parameter is required", http.StatusBadRequest)
			return
		}
		samples := app.Learning.Samples(floorID)
		if samples == nil {
			samples = []floorplan.LearningSample{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(samples); err != nil {
			log.Printf("Error encoding samples: %v", err)
		}
	})

	// Vector export of the latest detection for the browser editor
	mux.HandleFunc("/rooms.svg", func(w http.ResponseWriter, r *http.Request) {
		floorID := r.URL.Query().Get("floor")
		result, ok := app.Results.Get(floorID)
		if !ok {
			http.Error(w, "no detection for floor", http.StatusNotFound)
			return
		}

		targetW := intParam(r, "width", 1000)
		targetH := intParam(r, "height", 800)
		vr := floorplan.NewVectorRenderer(result, targetW, targetH)

		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		if err := vr.RenderToSVG(w); err != nil {
			log.Printf("Error rendering rooms SVG: %v", err)
		}
	})

	return mux
}

// detectParams validates the shared query parameters of the detection
// endpoints.
func detectParams(w http.ResponseWriter, r *http.Request) (floorID string, targetW, targetH int, ok bool) {
	floorID = r.URL.Query().Get("floor")
	if floorID == "" {
		http.Error(w, "floor query parameter is required", http.StatusBadRequest)
		return "", 0, 0, false
	}
	targetW = intParam(r, "width", 1000)
	targetH = intParam(r, "height", 800)
	if targetW <= 0 || targetH <= 0 {
		http.Error(w, fmt.Sprintf("invalid target dimensions %dx%d", targetW, targetH), http.StatusBadRequest)
		return "", 0, 0, false
	}
	return floorID, targetW, targetH, true
}

func intParam(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
