package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/xelth-com/eckgrid/internal/middleware"
	"github.com/xelth-com/eckgrid/internal/services/layout"
)

// AutoLayoutRequest lists the items to lay out; empty means every unplaced item
type AutoLayoutRequest struct {
	ItemIDs []string `json:"item_ids"`
}

func unitID(req *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(req)["id"], 10, 64)
	return id, err == nil && id > 0
}

func decodeBody(req *http.Request, v interface{}) bool {
	return json.NewDecoder(req.Body).Decode(v) == nil
}

// owner is the authenticated user every container call is scoped to
func owner(req *http.Request) string {
	return middleware.UserID(req.Context())
}

// --- Containers ---

func (r *Router) listUnits(w http.ResponseWriter, req *http.Request) {
	units, err := r.layouts.ListUnits(req.Context(), owner(req))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, units)
}

func (r *Router) createUnit(w http.ResponseWriter, req *http.Request) {
	var in layout.UnitInput
	if !decodeBody(req, &in) {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		respondError(w, http.StatusBadRequest, "Name is required")
		return
	}
	unit, err := r.layouts.CreateUnit(req.Context(), owner(req), in)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, unit)
}

func (r *Router) getUnit(w http.ResponseWriter, req *http.Request) {
	id, ok := unitID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid container id")
		return
	}
	unit, err := r.layouts.GetUnit(req.Context(), owner(req), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, unit)
}

func (r *Router) updateUnit(w http.ResponseWriter, req *http.Request) {
	id, ok := unitID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid container id")
		return
	}
	var patch layout.UnitPatch
	if !decodeBody(req, &patch) {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	unit, err := r.layouts.UpdateUnit(req.Context(), owner(req), id, patch)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, unit)
}

func (r *Router) deleteUnit(w http.ResponseWriter, req *http.Request) {
	id, ok := unitID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid container id")
		return
	}
	if err := r.layouts.DeleteUnit(req.Context(), owner(req), id); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Container deleted"})
}

// --- Layout & placements ---

func (r *Router) getLayout(w http.ResponseWriter, req *http.Request) {
	id, ok := unitID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid container id")
		return
	}
	view, err := r.layouts.Layout(req.Context(), owner(req), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (r *Router) addPlacement(w http.ResponseWriter, req *http.Request) {
	id, ok := unitID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid container id")
		return
	}
	var in layout.PlacementInput
	if !decodeBody(req, &in) || in.ItemID == "" {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	p, err := r.layouts.AddPlacement(req.Context(), owner(req), id, in)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (r *Router) updatePlacement(w http.ResponseWriter, req *http.Request) {
	var patch layout.PlacementPatch
	if !decodeBody(req, &patch) {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if patch.GridX == nil && patch.GridY == nil && patch.WidthUnits == nil && patch.DepthUnits == nil {
		respondError(w, http.StatusBadRequest, "Nothing to update")
		return
	}
	p, err := r.layouts.UpdatePlacement(req.Context(), owner(req), mux.Vars(req)["placement_id"], patch)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (r *Router) deletePlacement(w http.ResponseWriter, req *http.Request) {
	if err := r.layouts.DeletePlacement(req.Context(), owner(req), mux.Vars(req)["placement_id"]); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Placement deleted"})
}

func (r *Router) unplacedItems(w http.ResponseWriter, req *http.Request) {
	id, ok := unitID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid container id")
		return
	}
	items, err := r.layouts.UnplacedItems(req.Context(), owner(req), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// --- Recommendations & auto-layout ---

// autoLayout computes first-fit positions; with ?apply=true the server also
// commits them
func (r *Router) autoLayout(w http.ResponseWriter, req *http.Request) {
	id, ok := unitID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid container id")
		return
	}
	var body AutoLayoutRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil && err != io.EOF {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	ctx, ownerID := req.Context(), owner(req)
	if len(body.ItemIDs) == 0 {
		items, err := r.layouts.UnplacedItems(ctx, ownerID, id)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		for _, it := range items {
			body.ItemIDs = append(body.ItemIDs, it.ID)
		}
	}

	if req.URL.Query().Get("apply") == "true" {
		res, err := r.layouts.ApplyAutoLayout(ctx, ownerID, id, body.ItemIDs)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, res)
		return
	}

	res, err := r.layouts.AutoLayout(ctx, ownerID, id, body.ItemIDs)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// recommendBins accepts item_ids as a comma separated list or repeated
func (r *Router) recommendBins(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	ids := itemIDsFromQuery(q["item_ids"])
	if len(ids) == 0 {
		respondError(w, http.StatusBadRequest, "item_ids is required")
		return
	}
	recs, err := r.layouts.Recommend(req.Context(), owner(req), ids, q.Get("refresh") == "true")
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"recommendations": recs})
}

func itemIDsFromQuery(values []string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			id = strings.TrimSpace(id)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
