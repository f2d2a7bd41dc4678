// Package api defines the HTTP contract of the stitching service.
// The wrapper and routing glue follow oapi-codegen's chi-server layout.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// HealthStatus reports the service state in health responses.
type HealthStatus string

const Healthy HealthStatus = "healthy"

// Error codes returned in the "error" field of error responses.
const (
	CodeInvalidJSON     = "INVALID_JSON"
	CodeValidationError = "VALIDATION_ERROR"
	CodeTileServerError = "TILE_SERVER_ERROR"
	CodeTimeout         = "TILE_SERVER_TIMEOUT"
	CodeInternalError   = "INTERNAL_ERROR"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    HealthStatus `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Uptime    *int         `json:"uptime,omitempty"`
	Version   *string      `json:"version,omitempty"`
}

// Coordinate is a geodetic point, latitude first.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// TileSource describes where tiles are fetched from.
type TileSource struct {
	// Url is an XYZ template with {x}, {y} and {z} placeholders.
	Url     string             `json:"url"`
	Name    *string            `json:"name,omitempty"`
	Headers *map[string]string `json:"headers,omitempty"`
}

// StitchRequest is the body of POST /stitch.
type StitchRequest struct {
	TopLeft    Coordinate  `json:"top_left"`
	BotRight   Coordinate  `json:"bot_right"`
	Zoom       *int        `json:"zoom,omitempty"`
	TileSource *TileSource `json:"tile_source,omitempty"`
}

// GetStitchParams holds the query parameters of GET /stitch. The corner
// parameters carry free-form coordinate strings and are parsed server-side.
type GetStitchParams struct {
	TopLeft  string  `form:"top_left" json:"top_left"`
	BotRight string  `form:"bot_right" json:"bot_right"`
	Zoom     *int    `form:"zoom,omitempty" json:"zoom,omitempty"`
	Url      *string `form:"url,omitempty" json:"url,omitempty"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error     string                  `json:"error"`
	Message   string                  `json:"message"`
	RequestId *string                 `json:"request_id,omitempty"`
	Details   *map[string]interface{} `json:"details,omitempty"`
}

// TileErrorResponse is returned when the upstream tile server failed.
type TileErrorResponse struct {
	Error       string  `json:"error"`
	Message     string  `json:"message"`
	FailedTiles int     `json:"failed_tiles"`
	TotalTiles  int     `json:"total_tiles"`
	RequestId   *string `json:"request_id,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Health check
	// (GET /health)
	GetHealth(w http.ResponseWriter, r *http.Request)
	// Stitch tiles for a bounding box given as query parameters
	// (GET /stitch)
	GetStitch(w http.ResponseWriter, r *http.Request, params GetStitchParams)
	// Stitch tiles for a bounding box given as a JSON body
	// (POST /stitch)
	PostStitch(w http.ResponseWriter, r *http.Request)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

type MiddlewareFunc func(http.Handler) http.Handler

// GetHealth operation middleware
func (siw *ServerInterfaceWrapper) GetHealth(w http.ResponseWriter, r *http.Request) {
	handler := http.Handler(http.HandlerFunc(siw.Handler.GetHealth))

	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}

	handler.ServeHTTP(w, r)
}

// GetStitch operation middleware
func (siw *ServerInterfaceWrapper) GetStitch(w http.ResponseWriter, r *http.Request) {
	var err error

	var params GetStitchParams

	// ------------- Required query parameter "top_left" -------------

	if !r.URL.Query().Has("top_left") {
		siw.ErrorHandlerFunc(w, r, &RequiredParamError{ParamName: "top_left"})
		return
	}

	err = runtime.BindQueryParameter("form", true, true, "top_left", r.URL.Query(), &params.TopLeft)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "top_left", Err: err})
		return
	}

	// ------------- Required query parameter "bot_right" -------------

	if !r.URL.Query().Has("bot_right") {
		siw.ErrorHandlerFunc(w, r, &RequiredParamError{ParamName: "bot_right"})
		return
	}

	err = runtime.BindQueryParameter("form", true, true, "bot_right", r.URL.Query(), &params.BotRight)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "bot_right", Err: err})
		return
	}

	// ------------- Optional query parameter "zoom" -------------

	err = runtime.BindQueryParameter("form", true, false, "zoom", r.URL.Query(), &params.Zoom)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "zoom", Err: err})
		return
	}

	// ------------- Optional query parameter "url" -------------

	err = runtime.BindQueryParameter("form", true, false, "url", r.URL.Query(), &params.Url)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "url", Err: err})
		return
	}

	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetStitch(w, r, params)
	}))

	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}

	handler.ServeHTTP(w, r)
}

// PostStitch operation middleware
func (siw *ServerInterfaceWrapper) PostStitch(w http.ResponseWriter, r *http.Request) {
	handler := http.Handler(http.HandlerFunc(siw.Handler.PostStitch))

	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}

	handler.ServeHTTP(w, r)
}

type RequiredParamError struct {
	ParamName string
}

func (e *RequiredParamError) Error() string {
	return fmt.Sprintf("Query argument %s is required, but not found", e.ParamName)
}

type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// Handler creates http.Handler with routing matching the API contract.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// ChiServerOptions configures the routing for the API handlers.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerFromMux creates http.Handler with routing matching the API contract.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{
		BaseRouter: r,
	})
}

func HandlerFromMuxWithBaseURL(si ServerInterface, r chi.Router, baseURL string) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{
		BaseURL:    baseURL,
		BaseRouter: r,
	})
}

// HandlerWithOptions creates http.Handler with additional options
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}

	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/health", wrapper.GetHealth)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/stitch", wrapper.GetStitch)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/stitch", wrapper.PostStitch)
	})

	return r
}
