// Package ows is a client for the OGC requests the viewers issue against
// GeoServer: WMS GetFeatureInfo and WFS GetFeature, both answered as GeoJSON.
package ows

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-viewer/internal/geo"
	"github.com/joeblew999/plat-viewer/internal/metric"
)

// ErrUnexpectedStatus is returned for non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected status")

const (
	// DefaultTimeout bounds a request when no timeout is configured.
	DefaultTimeout = 30 * time.Second

	maxResponseSize = 32 << 20
	jsonFormat      = "application/json"
)

// FeatureInfoRequest holds the WMS 1.1.1 GetFeatureInfo parameters.
type FeatureInfoRequest struct {
	Layers      []string
	AccessToken string
	BBox        geo.Extent
	SRS         string
	X, Y        int
	Width       int
	Height      int
}

// Values encodes r as query parameters.
func (r FeatureInfoRequest) Values() url.Values {
	layers := strings.Join(r.Layers, ",")
	v := url.Values{}
	v.Set("service", "WMS")
	v.Set("version", "1.1.1")
	v.Set("request", "GetFeatureInfo")
	v.Set("info_format", jsonFormat)
	v.Set("layers", layers)
	v.Set("query_layers", layers)
	if r.AccessToken != "" {
		v.Set("access_token", r.AccessToken)
	}
	v.Set("bbox", r.BBox.String())
	v.Set("srs", r.SRS)
	v.Set("x", strconv.Itoa(r.X))
	v.Set("y", strconv.Itoa(r.Y))
	v.Set("height", strconv.Itoa(r.Height))
	v.Set("width", strconv.Itoa(r.Width))
	return v
}

// FeatureRequest holds the WFS 1.1.0 GetFeature parameters.
type FeatureRequest struct {
	TypeName    string
	SortBy      string
	BBox        string
	AccessToken string
}

// Values encodes r as query parameters.
func (r FeatureRequest) Values() url.Values {
	v := url.Values{}
	v.Set("service", "WFS")
	v.Set("version", "1.1.0")
	v.Set("request", "GetFeature")
	v.Set("outputFormat", jsonFormat)
	v.Set("typeName", r.TypeName)
	if r.SortBy != "" {
		v.Set("sortBy", r.SortBy)
	}
	if r.BBox != "" {
		v.Set("bbox", r.BBox)
	}
	if r.AccessToken != "" {
		v.Set("access_token", r.AccessToken)
	}
	return v
}

// BBoxParam formats a WFS bbox with its trailing CRS.
func BBoxParam(e geo.Extent, crs string) string {
	return e.String() + "," + crs
}

// Fetcher issues the OGC requests used by the pipelines.
type Fetcher interface {
	GetFeatureInfo(ctx context.Context, endpoint string, req FeatureInfoRequest) (*geojson.FeatureCollection, error)
	GetFeature(ctx context.Context, endpoint string, req FeatureRequest) (*geojson.FeatureCollection, error)
}

// Client is a Fetcher over HTTP.
type Client struct {
	httpClient *http.Client
	metrics    *metric.Metrics
}

// New creates a client. A zero timeout selects DefaultTimeout.
func New(timeout time.Duration, m *metric.Metrics) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		metrics:    m,
	}
}

// GetFeatureInfo queries the features under a map pixel.
func (c *Client) GetFeatureInfo(ctx context.Context, endpoint string, req FeatureInfoRequest) (*geojson.FeatureCollection, error) {
	return c.get(ctx, "GetFeatureInfo", endpoint, req.Values())
}

// GetFeature queries the features of a type, optionally inside a bbox.
func (c *Client) GetFeature(ctx context.Context, endpoint string, req FeatureRequest) (*geojson.FeatureCollection, error) {
	return c.get(ctx, "GetFeature", endpoint, req.Values())
}

func (c *Client) get(ctx context.Context, op, endpoint string, params url.Values) (fc *geojson.FeatureCollection, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		c.metrics.ObserveFetch(op, status, time.Since(start))
	}()

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%s: parse url: %w", op, err)
	}
	q := u.Query()
	for k, vs := range params {
		q[k] = vs
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", jsonFormat)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: http request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrUnexpectedStatus, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	fc, err = geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return fc, nil
}

// First returns the first feature of fc.
func First(fc *geojson.FeatureCollection) (*geojson.Feature, bool) {
	if fc == nil || len(fc.Features) == 0 {
		return nil, false
	}
	return fc.Features[0], true
}
