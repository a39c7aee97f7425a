// Package client talks to the gridfinity REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xelth-com/eckgrid/internal/gridfinity"
	"github.com/xelth-com/eckgrid/internal/recommend"
)

// NewHTTPClient returns the HTTP client used for API calls
func NewHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext:     dialer.DialContext,
			MaxIdleConns:    100,
			IdleConnTimeout: 90 * time.Second,
		},
	}
}

// Client is a REST client for one server and one bearer token
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client. baseURL is the server root, e.g. http://localhost:3210
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    NewHTTPClient(),
	}
}

// WithHTTPClient replaces the underlying HTTP client
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// SetToken replaces the bearer token
func (c *Client) SetToken(token string) {
	c.token = token
}

// Layout is the full layout of one container
type Layout struct {
	ID               int64                  `json:"id"`
	Name             string                 `json:"name"`
	GridColumns      int                    `json:"grid_columns"`
	GridRows         int                    `json:"grid_rows"`
	ContainerWidthMM float64                `json:"container_width_mm"`
	ContainerDepthMM float64                `json:"container_depth_mm"`
	Placements       []gridfinity.Placement `json:"placements"`
}

// Grid returns the container grid
func (l *Layout) Grid() gridfinity.Grid {
	return gridfinity.Grid{Columns: l.GridColumns, Rows: l.GridRows}
}

// Unit is a container as listed by the server
type Unit struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	ContainerWidthMM  float64 `json:"container_width_mm"`
	ContainerDepthMM  float64 `json:"container_depth_mm"`
	ContainerHeightMM float64 `json:"container_height_mm"`
	GridColumns       int     `json:"grid_columns"`
	GridRows          int     `json:"grid_rows"`
}

// PlacementPatch moves and/or resizes a placement; nil fields are not sent
type PlacementPatch struct {
	GridX      *int `json:"grid_x,omitempty"`
	GridY      *int `json:"grid_y,omitempty"`
	WidthUnits *int `json:"width_units,omitempty"`
	DepthUnits *int `json:"depth_units,omitempty"`
}

// BatchFailure is one assignment the server could not commit
type BatchFailure struct {
	ItemID string `json:"item_id"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}

// AppliedLayout is the response of a server-side auto-layout commit
type AppliedLayout struct {
	Placed   []gridfinity.Placement `json:"placed"`
	Failed   []BatchFailure         `json:"failed"`
	Unplaced []string               `json:"unplaced"`
}

// Login exchanges credentials for an access token and keeps it on the client
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp struct {
		Tokens struct {
			AccessToken string `json:"accessToken"`
		} `json:"tokens"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return err
	}
	c.token = resp.Tokens.AccessToken
	return nil
}

// Units lists the caller's containers
func (c *Client) Units(ctx context.Context) ([]Unit, error) {
	var units []Unit
	err := c.do(ctx, http.MethodGet, "/gridfinity/units", nil, &units)
	return units, err
}

// CreateUnit creates a container from its physical dimensions
func (c *Client) CreateUnit(ctx context.Context, name string, widthMM, depthMM, heightMM float64) (*Unit, error) {
	var u Unit
	body := map[string]interface{}{"name": name, "width_mm": widthMM, "depth_mm": depthMM, "height_mm": heightMM}
	if err := c.do(ctx, http.MethodPost, "/gridfinity/units", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Layout fetches the container layout
func (c *Client) Layout(ctx context.Context, unitID int64) (*Layout, error) {
	var l Layout
	if err := c.do(ctx, http.MethodGet, unitPath(unitID, "/layout"), nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// AddPlacement places an item in a container
func (c *Client) AddPlacement(ctx context.Context, unitID int64, a gridfinity.Assignment) (gridfinity.Placement, error) {
	var p gridfinity.Placement
	err := c.do(ctx, http.MethodPost, unitPath(unitID, "/placements"), a, &p)
	return p, err
}

// UpdatePlacement moves and/or resizes a placement
func (c *Client) UpdatePlacement(ctx context.Context, placementID string, patch PlacementPatch) (gridfinity.Placement, error) {
	var p gridfinity.Placement
	err := c.do(ctx, http.MethodPut, "/gridfinity/placements/"+url.PathEscape(placementID), patch, &p)
	return p, err
}

// DeletePlacement removes a placement
func (c *Client) DeletePlacement(ctx context.Context, placementID string) error {
	return c.do(ctx, http.MethodDelete, "/gridfinity/placements/"+url.PathEscape(placementID), nil, nil)
}

// AutoLayout asks the server for first-fit positions. Nothing is committed.
func (c *Client) AutoLayout(ctx context.Context, unitID int64, itemIDs []string) ([]gridfinity.Assignment, error) {
	var resp struct {
		Placed []gridfinity.Assignment `json:"placed"`
	}
	body := map[string][]string{"item_ids": itemIDs}
	if err := c.do(ctx, http.MethodPost, unitPath(unitID, "/auto-layout"), body, &resp); err != nil {
		return nil, err
	}
	return resp.Placed, nil
}

// ApplyAutoLayout lets the server compute and commit the layout in one call
func (c *Client) ApplyAutoLayout(ctx context.Context, unitID int64, itemIDs []string) (*AppliedLayout, error) {
	var resp AppliedLayout
	body := map[string][]string{"item_ids": itemIDs}
	if err := c.do(ctx, http.MethodPost, unitPath(unitID, "/auto-layout?apply=true"), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecommendBins fetches bin-size recommendations; refresh bypasses the server cache
func (c *Client) RecommendBins(ctx context.Context, itemIDs []string, refresh bool) ([]recommend.Recommendation, error) {
	q := url.Values{}
	q.Set("item_ids", strings.Join(itemIDs, ","))
	if refresh {
		q.Set("refresh", "true")
	}
	var resp struct {
		Recommendations []recommend.Recommendation `json:"recommendations"`
	}
	if err := c.do(ctx, http.MethodGet, "/gridfinity/recommend-bins?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Recommendations, nil
}

func unitPath(unitID int64, suffix string) string {
	return "/gridfinity/units/" + strconv.FormatInt(unitID, 10) + suffix
}

// do performs one request. Error bodies carrying a known code map back to the
// store sentinels; everything else is ErrCommitFailed.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", gridfinity.ErrCommitFailed, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", gridfinity.ErrCommitFailed, err)
	}

	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", gridfinity.ErrCommitFailed, err)
	}
	return nil
}

// APIError is a non-2xx response; it unwraps to the matching store sentinel
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Unwrap returns the sentinel for the error code
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return gridfinity.ErrCommitFailed
	}
	return gridfinity.ErrorFromCode(e.Code)
}

// IsUnauthorized reports whether the server rejected the token
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

func decodeError(status int, data []byte) error {
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	_ = json.Unmarshal(data, &body)
	if body.Code == "" && status == http.StatusNotFound {
		body.Code = gridfinity.CodeNotFound
	}
	return &APIError{Status: status, Code: body.Code, Message: body.Error}
}
