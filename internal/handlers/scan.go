package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/xelth-com/eckgrid/internal/gridfinity"
	"github.com/xelth-com/eckgrid/internal/services/layout"
	"github.com/xelth-com/eckgrid/internal/services/printer"
)

// ScanRequest represents the payload from a scanner
type ScanRequest struct {
	Barcode string `json:"barcode"`
}

// ScanResponse standardizes the scan result. Unit and placement describe the
// first container holding the item; Locations lists all of them.
type ScanResponse struct {
	Action    string                `json:"action"` // found, unplaced
	ItemID    string                `json:"item_id"`
	UnitID    int64                 `json:"unit_id,omitempty"`
	UnitName  string                `json:"unit_name,omitempty"`
	Placement *gridfinity.Placement `json:"placement,omitempty"`
	Locations []layout.Location     `json:"locations,omitempty"`
	Message   string                `json:"message"` // Human readable status
}

// handleScan resolves a printed bin label to the containers holding the item
func (r *Router) handleScan(w http.ResponseWriter, req *http.Request) {
	var body ScanRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	barcode := strings.TrimSpace(body.Barcode)
	itemID, ok := printer.ParseQRContent(barcode, r.cfg.InstanceSuffix)
	if !ok {
		respondError(w, http.StatusBadRequest, "Unrecognized label")
		return
	}

	locations, err := r.layouts.Locate(req.Context(), owner(req), itemID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, scanResponse(itemID, locations))
}

func scanResponse(itemID string, locations []layout.Location) ScanResponse {
	if len(locations) == 0 {
		return ScanResponse{
			Action:  "unplaced",
			ItemID:  itemID,
			Message: fmt.Sprintf("Item %s is not placed in any container", itemID),
		}
	}

	first := locations[0]
	resp := ScanResponse{
		Action:    "found",
		ItemID:    itemID,
		UnitID:    first.UnitID,
		UnitName:  first.UnitName,
		Placement: &first.Placement,
		Locations: locations,
		Message:   fmt.Sprintf("Item %s is in %s", itemID, first.UnitName),
	}
	if len(locations) > 1 {
		resp.Message = fmt.Sprintf("Item %s is in %d containers", itemID, len(locations))
	}
	return resp
}
