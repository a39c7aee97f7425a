package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/xelth-com/eckgrid/internal/ai"
	"github.com/xelth-com/eckgrid/internal/models"
	"github.com/xelth-com/eckgrid/internal/utils"
)

// Generator produces text for a prompt. *ai.GeminiClient satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// AIRecommender asks a generative model for footprints.
type AIRecommender struct {
	gen     Generator
	source  string
	timeout time.Duration
}

// NewAIRecommender wraps a generator. source is recorded with each result.
func NewAIRecommender(gen Generator, source string, timeout time.Duration) *AIRecommender {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AIRecommender{gen: gen, source: source, timeout: timeout}
}

type promptItem struct {
	ItemID      string  `json:"item_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	WidthMM     float64 `json:"width_mm,omitempty"`
	DepthMM     float64 `json:"depth_mm,omitempty"`
	HeightMM    float64 `json:"height_mm,omitempty"`
}

type aiResponse struct {
	Recommendations []json.RawMessage `json:"recommendations"`
}

// Recommend implements Recommender.
func (a *AIRecommender) Recommend(ctx context.Context, items []models.Item) ([]Recommendation, error) {
	if len(items) == 0 {
		return []Recommendation{}, nil
	}

	prompt, err := buildPrompt(items)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.gen.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("bin-size recommendation failed: %w", err)
	}

	recs, err := parseResponse(text, items)
	if err != nil {
		log.Printf("⚠️ Recommend: unparseable AI response: %v", err)
		return nil, err
	}
	for i := range recs {
		recs[i].Source = a.source
	}
	return recs, nil
}

func buildPrompt(items []models.Item) (string, error) {
	var sb strings.Builder
	sb.WriteString(ai.BinSizePrompt)
	for _, it := range items {
		line, err := json.Marshal(promptItem{
			ItemID:      it.ID,
			Name:        it.Name,
			Description: it.Description,
			Category:    it.Category,
			WidthMM:     it.WidthMM,
			DepthMM:     it.DepthMM,
			HeightMM:    it.HeightMM,
		})
		if err != nil {
			return "", err
		}
		sb.Write(line)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// parseResponse keeps only recommendations for requested items, first one wins.
func parseResponse(text string, items []models.Item) ([]Recommendation, error) {
	var resp aiResponse
	if err := json.Unmarshal([]byte(utils.SanitizeJSON(text)), &resp); err != nil {
		return nil, fmt.Errorf("invalid recommendation JSON: %w", err)
	}

	wanted := make(map[string]bool, len(items))
	for _, it := range items {
		wanted[it.ID] = true
	}

	out := make([]Recommendation, 0, len(resp.Recommendations))
	for _, raw := range resp.Recommendations {
		var r Recommendation
		if err := json.Unmarshal(raw, &r); err != nil {
			continue
		}
		if !wanted[r.ItemID] {
			continue
		}
		wanted[r.ItemID] = false
		r.Raw = raw
		out = append(out, r)
	}
	return out, nil
}
