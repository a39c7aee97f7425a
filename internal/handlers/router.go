package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/xelth-com/eckgrid/internal/buildinfo"
	"github.com/xelth-com/eckgrid/internal/config"
	"github.com/xelth-com/eckgrid/internal/database"
	"github.com/xelth-com/eckgrid/internal/gridfinity"
	"github.com/xelth-com/eckgrid/internal/middleware"
	"github.com/xelth-com/eckgrid/internal/models"
	"github.com/xelth-com/eckgrid/internal/recommend"
	"github.com/xelth-com/eckgrid/internal/services/layout"
	"github.com/xelth-com/eckgrid/internal/websocket"
)

// LayoutService is the container and placement backend used by the handlers
type LayoutService interface {
	ListUnits(ctx context.Context, ownerID string) ([]models.GridfinityUnit, error)
	CreateUnit(ctx context.Context, ownerID string, in layout.UnitInput) (*models.GridfinityUnit, error)
	GetUnit(ctx context.Context, ownerID string, id int64) (*models.GridfinityUnit, error)
	UpdateUnit(ctx context.Context, ownerID string, id int64, patch layout.UnitPatch) (*models.GridfinityUnit, error)
	DeleteUnit(ctx context.Context, ownerID string, id int64) error
	Layout(ctx context.Context, ownerID string, id int64) (*layout.View, error)
	AddPlacement(ctx context.Context, ownerID string, unitID int64, in layout.PlacementInput) (gridfinity.Placement, error)
	UpdatePlacement(ctx context.Context, ownerID string, placementID string, patch layout.PlacementPatch) (gridfinity.Placement, error)
	DeletePlacement(ctx context.Context, ownerID string, placementID string) error
	UnplacedItems(ctx context.Context, ownerID string, unitID int64) ([]models.Item, error)
	ItemNames(ctx context.Context, ownerID string, ids []string) (map[string]string, error)
	Locate(ctx context.Context, ownerID string, itemID string) ([]layout.Location, error)
	Recommend(ctx context.Context, ownerID string, itemIDs []string, refresh bool) ([]recommend.Recommendation, error)
	AutoLayout(ctx context.Context, ownerID string, unitID int64, itemIDs []string) (gridfinity.LayoutResult, error)
	ApplyAutoLayout(ctx context.Context, ownerID string, unitID int64, itemIDs []string) (gridfinity.BatchResult, error)
}

// Router wraps the mux router and its dependencies
type Router struct {
	*mux.Router
	db      *database.DB
	cfg     *config.Config
	layouts LayoutService
	hub     *websocket.Hub
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(db *database.DB, cfg *config.Config, layouts LayoutService, hub *websocket.Hub) *Router {
	r := &Router{
		Router:  mux.NewRouter(),
		db:      db,
		cfg:     cfg,
		layouts: layouts,
		hub:     hub,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", r.getStatus).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/register", r.register).Methods("POST")
	auth.HandleFunc("/logout", r.logout).Methods("POST")

	// Gridfinity routes (protected)
	gf := r.PathPrefix("/gridfinity").Subrouter()
	gf.Use(middleware.Auth(cfg.JWTSecret))

	gf.HandleFunc("/units", r.listUnits).Methods("GET")
	gf.HandleFunc("/units", r.createUnit).Methods("POST")
	gf.HandleFunc("/units/{id:[0-9]+}", r.getUnit).Methods("GET")
	gf.HandleFunc("/units/{id:[0-9]+}", r.updateUnit).Methods("PUT")
	gf.HandleFunc("/units/{id:[0-9]+}", r.deleteUnit).Methods("DELETE")
	gf.HandleFunc("/units/{id:[0-9]+}/layout", r.getLayout).Methods("GET")
	gf.HandleFunc("/units/{id:[0-9]+}/layout.pdf", r.layoutPDF).Methods("GET")
	gf.HandleFunc("/units/{id:[0-9]+}/layout.xlsx", r.layoutXLSX).Methods("GET")
	gf.HandleFunc("/units/{id:[0-9]+}/placements", r.addPlacement).Methods("POST")
	gf.HandleFunc("/units/{id:[0-9]+}/unplaced-items", r.unplacedItems).Methods("GET")
	gf.HandleFunc("/units/{id:[0-9]+}/auto-layout", r.autoLayout).Methods("POST")
	gf.HandleFunc("/placements/{placement_id}", r.updatePlacement).Methods("PUT")
	gf.HandleFunc("/placements/{placement_id}", r.deletePlacement).Methods("DELETE")
	gf.HandleFunc("/recommend-bins", r.recommendBins).Methods("GET")
	gf.HandleFunc("/scan", r.handleScan).Methods("POST")

	// Layout change events
	if hub != nil {
		r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
			websocket.ServeWs(hub, w, req)
		})
	}

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// getStatus returns build information and live connection count
func (r *Router) getStatus(w http.ResponseWriter, req *http.Request) {
	clients := 0
	if r.hub != nil {
		clients = r.hub.ClientCount()
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "running",
		"buildTime":  buildinfo.BuildTime,
		"commitTime": buildinfo.CommitTime,
		"commitHash": buildinfo.CommitHash,
		"startTime":  buildinfo.StartTime,
		"wsClients":  clients,
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondStoreError maps placement errors to a status and a wire code
func respondStoreError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("❌ Request failed: %v", err)
		message = "Internal server error"
	}
	respondJSON(w, status, map[string]string{
		"error": message,
		"code":  gridfinity.ErrorCode(err),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, gridfinity.ErrOverlap), errors.Is(err, gridfinity.ErrDuplicateItem):
		return http.StatusConflict
	case errors.Is(err, gridfinity.ErrOutOfBounds), errors.Is(err, gridfinity.ErrInvalidSize):
		return http.StatusUnprocessableEntity
	case errors.Is(err, gridfinity.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
