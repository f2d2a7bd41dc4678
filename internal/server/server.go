package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/EddyBeaupre/MapTileDownloader/internal/api"
	"github.com/EddyBeaupre/MapTileDownloader/internal/stitch"
	"github.com/EddyBeaupre/MapTileDownloader/pkg/tile"
)

// DefaultZoom is used when a request does not specify a zoom level.
const DefaultZoom = 14

// Server implements api.ServerInterface.
type Server struct {
	startTime time.Time
	version   string
	log       *slog.Logger
}

// NewServer creates a new server instance. A nil logger discards logs.
func NewServer(version string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		startTime: time.Now(),
		version:   version,
		log:       log,
	}
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())

	response := api.HealthResponse{
		Status:    api.Healthy,
		Timestamp: time.Now(),
		Uptime:    &uptime,
		Version:   &s.version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.log.Error("encoding health response", "error", err)
	}
}

// GetStitch stitches a bounding box given as query parameters. The corner
// parameters accept the same free-form coordinate strings as the CLI.
func (s *Server) GetStitch(w http.ResponseWriter, r *http.Request, params api.GetStitchParams) {
	requestID := s.requestID(r)

	topLeft, err := tile.ParseLatLon(params.TopLeft)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.CodeValidationError,
			fmt.Sprintf("top_left: %v", err), &requestID, nil)
		return
	}
	botRight, err := tile.ParseLatLon(params.BotRight)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.CodeValidationError,
			fmt.Sprintf("bot_right: %v", err), &requestID, nil)
		return
	}

	opts := stitch.Options{Zoom: DefaultZoom, Logger: s.log}
	if params.Zoom != nil {
		opts.Zoom = *params.Zoom
	}
	if params.Url != nil {
		opts.URL = *params.Url
	}

	s.stitchAndServe(w, r, requestID, opts, topLeft, botRight)
}

// PostStitch stitches a bounding box given as a JSON body.
func (s *Server) PostStitch(w http.ResponseWriter, r *http.Request) {
	requestID := s.requestID(r)

	var req api.StitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.CodeInvalidJSON,
			"Invalid JSON in request body", &requestID, nil)
		return
	}

	opts := stitch.Options{Zoom: DefaultZoom, Logger: s.log}
	if req.Zoom != nil {
		opts.Zoom = *req.Zoom
	}
	if req.TileSource != nil {
		opts.URL = req.TileSource.Url
		if req.TileSource.Headers != nil {
			opts.Headers = *req.TileSource.Headers
		}
	}

	topLeft := tile.LatLon{Lat: req.TopLeft.Lat, Lon: req.TopLeft.Lon}
	botRight := tile.LatLon{Lat: req.BotRight.Lat, Lon: req.BotRight.Lon}

	s.stitchAndServe(w, r, requestID, opts, topLeft, botRight)
}

// stitchAndServe runs the engine and writes the composited PNG.
func (s *Server) stitchAndServe(w http.ResponseWriter, r *http.Request, requestID string, opts stitch.Options, topLeft, botRight tile.LatLon) {
	st, err := stitch.New(opts)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.CodeValidationError,
			err.Error(), &requestID, nil)
		return
	}

	s.log.Info("stitch request",
		"request_id", requestID,
		"top_left", fmt.Sprintf("%g,%g", topLeft.Lat, topLeft.Lon),
		"bot_right", fmt.Sprintf("%g,%g", botRight.Lat, botRight.Lon),
		"zoom", opts.Zoom)

	result, err := st.Stitch(r.Context(), topLeft, botRight)
	if err != nil {
		s.handleStitchError(w, err, &requestID)
		return
	}

	if result.TilesFailed == result.TilesTotal {
		response := api.TileErrorResponse{
			Error:       api.CodeTileServerError,
			Message:     "no tiles could be downloaded",
			FailedTiles: result.TilesFailed,
			TotalTiles:  result.TilesTotal,
			RequestId:   &requestID,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(response)
		return
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, result.Image.Image(), imaging.PNG); err != nil {
		s.log.Error("encoding stitched image", "request_id", requestID, "error", err)
		s.writeErrorResponse(w, http.StatusInternalServerError, api.CodeInternalError,
			"Internal server error", &requestID, nil)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("X-Tiles-Total", strconv.Itoa(result.TilesTotal))
	w.Header().Set("X-Tiles-Failed", strconv.Itoa(result.TilesFailed))

	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.log.Error("writing response", "request_id", requestID, "error", err)
	}
}

// WriteBindError reports a query binding failure in the standard error shape.
// Wired as the router's ErrorHandlerFunc.
func (s *Server) WriteBindError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := s.requestID(r)
	s.writeErrorResponse(w, http.StatusBadRequest, api.CodeValidationError,
		err.Error(), &requestID, nil)
}

// handleStitchError maps engine errors to API error responses.
func (s *Server) handleStitchError(w http.ResponseWriter, err error, requestID *string) {
	switch {
	case errors.Is(err, stitch.ErrCornerOrder),
		errors.Is(err, stitch.ErrCoordinateRange),
		errors.Is(err, stitch.ErrZoomRange),
		errors.Is(err, stitch.ErrCanvasEmpty),
		errors.Is(err, stitch.ErrCanvasTooLarge):
		s.writeErrorResponse(w, http.StatusBadRequest, api.CodeValidationError,
			err.Error(), requestID, nil)
	case errors.Is(err, context.DeadlineExceeded):
		s.writeErrorResponse(w, http.StatusGatewayTimeout, api.CodeTimeout,
			"Tile server requests timed out", requestID, nil)
	case errors.Is(err, context.Canceled):
		// The client went away, nothing left to write.
	default:
		s.log.Error("stitching failed", "request_id", *requestID, "error", err)
		s.writeErrorResponse(w, http.StatusInternalServerError, api.CodeInternalError,
			"Internal server error", requestID, nil)
	}
}

// writeErrorResponse writes a standard error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string, requestID *string, details map[string]interface{}) {
	response := api.ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestId: requestID,
	}

	if details != nil {
		response.Details = &details
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// requestID prefers the router's request id and falls back to a local one.
func (s *Server) requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return generateRequestID()
}

// generateRequestID generates a unique request ID
func generateRequestID() string {
	return fmt.Sprintf("req_%d", time.Now().UnixNano())
}
