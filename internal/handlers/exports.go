package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/xelth-com/eckgrid/internal/services/export"
	"github.com/xelth-com/eckgrid/internal/services/layout"
	"github.com/xelth-com/eckgrid/internal/services/printer"
)

// loadSheet fetches a layout and the names of its items
func (r *Router) loadSheet(w http.ResponseWriter, req *http.Request) (*layout.View, map[string]string, bool) {
	id, ok := unitID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid container id")
		return nil, nil, false
	}
	view, err := r.layouts.Layout(req.Context(), owner(req), id)
	if err != nil {
		respondStoreError(w, err)
		return nil, nil, false
	}
	ids := make([]string, 0, len(view.Placements))
	for _, p := range view.Placements {
		ids = append(ids, p.ItemID)
	}
	names, err := r.layouts.ItemNames(req.Context(), owner(req), ids)
	if err != nil {
		respondStoreError(w, err)
		return nil, nil, false
	}
	return view, names, true
}

// layoutPDF renders the printable layout sheet
func (r *Router) layoutPDF(w http.ResponseWriter, req *http.Request) {
	view, names, ok := r.loadSheet(w, req)
	if !ok {
		return
	}

	pdfBytes, err := printer.GenerateLayoutPDF(printer.Sheet{
		Title:      view.Name,
		Grid:       view.Grid(),
		WidthMM:    view.ContainerWidthMM,
		DepthMM:    view.ContainerDepthMM,
		Placements: view.Placements,
		ItemNames:  names,
		Suffix:     r.cfg.InstanceSuffix,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate PDF: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"layout_%d.pdf\"", view.ID))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdfBytes)))
	w.Write(pdfBytes)
}

// layoutXLSX exports the layout as a spreadsheet
func (r *Router) layoutXLSX(w http.ResponseWriter, req *http.Request) {
	view, names, ok := r.loadSheet(w, req)
	if !ok {
		return
	}

	data, err := export.LayoutXLSX(export.Layout{
		Name:       view.Name,
		Grid:       view.Grid(),
		Placements: view.Placements,
		ItemNames:  names,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate spreadsheet: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"layout_%d.xlsx\"", view.ID))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
