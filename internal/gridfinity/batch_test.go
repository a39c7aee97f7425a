package gridfinity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitAll_CollectsFailuresWithoutAborting(t *testing.T) {
	s := newTestStore(3, 1)
	// A manual placement lands on (1,0) after the layout was computed.
	res := AutoLayout(s.Grid(), nil, []LayoutItem{sized("A", 1, 1), sized("B", 1, 1), sized("C", 1, 1)})
	_, err := s.Add("manual", 1, 0, 1, 1)
	require.NoError(t, err)

	out := CommitAll(context.Background(), res.Placed, func(ctx context.Context, a Assignment) (Placement, error) {
		return s.Add(a.ItemID, a.GridX, a.GridY, a.WidthUnits, a.DepthUnits)
	})

	require.Len(t, out.Placed, 2)
	assert.Equal(t, "A", out.Placed[0].ItemID)
	assert.Equal(t, "C", out.Placed[1].ItemID)
	require.Len(t, out.Failed, 1)
	assert.Equal(t, "B", out.Failed[0].ItemID)
	assert.Equal(t, CodeOverlap, out.Failed[0].Code)
	assert.ErrorIs(t, out.Failed[0].Err, ErrOverlap)
	assert.Equal(t, "2 placed, 1 failed", out.Summary())
	assertInvariants(t, s)
}

func TestBatchResult_Summary(t *testing.T) {
	r := BatchResult{Placed: make([]Placement, 4), Unplaced: []string{"E"}}
	assert.Equal(t, "4 placed, 0 failed, 1 did not fit", r.Summary())
}
