package controller

import (
	"context"

	"github.com/xelth-com/eckgrid/internal/gridfinity"
)

// AutoLayout places the items in one batch. Positions come from the backend;
// each one is committed through the regular add path concurrently, and the
// layout is refetched once after the slowest commit settles.
func (c *Controller) AutoLayout(ctx context.Context, itemIDs []string) (gridfinity.BatchResult, error) {
	c.inflight.Add(1)
	defer c.inflight.Add(-1)

	assignments, err := c.backend.AutoLayout(ctx, itemIDs)
	if err != nil {
		return gridfinity.BatchResult{}, err
	}

	res := gridfinity.CommitAll(ctx, assignments, c.backend.Add)
	res.Unplaced = unplaced(itemIDs, assignments, c.layout())

	if err := c.Refresh(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// unplaced lists requested items that got no position and were not already placed
func unplaced(itemIDs []string, assigned []gridfinity.Assignment, s *gridfinity.Store) []string {
	got := make(map[string]bool, len(assigned))
	for _, a := range assigned {
		got[a.ItemID] = true
	}
	out := []string{}
	seen := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		if got[id] || seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := s.ByItem(id); ok {
			continue
		}
		out = append(out, id)
	}
	return out
}
