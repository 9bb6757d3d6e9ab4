package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Remote implements Detector and Cropper against the scansplitter detection
// service HTTP API
type Remote struct {
	baseURL string
	client  *http.Client
}

// NewRemote creates a new Remote client for the service at baseURL
func NewRemote(baseURL string) (*Remote, error) {
	if baseURL == "" {
		baseURL = "http://localhost:7860"
	}
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 120 * time.Second, // model inference can be slow on CPU
		},
	}, nil
}

type detectRequest struct {
	Image string `json:"image"`
	DetectOptions
}

type cropRequest struct {
	Image      string   `json:"image"`
	Regions    []Region `json:"regions"`
	AutoRotate bool     `json:"auto_rotate"`
}

type cropResponse struct {
	Images []struct {
		Data     string `json:"data"`
		Rotation int    `json:"rotation"`
	} `json:"images"`
}

// Detect sends a PNG page to the detection endpoint
func (r *Remote) Detect(ctx context.Context, page []byte, opts DetectOptions) ([]Region, error) {
	body, err := r.post(ctx, "/detect", detectRequest{
		Image:         base64.StdEncoding.EncodeToString(page),
		DetectOptions: opts,
	})
	if err != nil {
		return nil, err
	}

	regions, err := parseRegionsJSON(string(body))
	if err != nil {
		return nil, fmt.Errorf("parsing regions: %w", err)
	}
	SortRegions(regions)
	return regions, nil
}

// Crop sends a PNG page and regions to the crop endpoint
func (r *Remote) Crop(ctx context.Context, page []byte, regions []Region, autoRotate bool) ([]Cropped, error) {
	body, err := r.post(ctx, "/crop", cropRequest{
		Image:      base64.StdEncoding.EncodeToString(page),
		Regions:    regions,
		AutoRotate: autoRotate,
	})
	if err != nil {
		return nil, err
	}

	var resp cropResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(resp.Images) != len(regions) {
		return nil, fmt.Errorf("crop API returned %d images for %d regions", len(resp.Images), len(regions))
	}

	out := make([]Cropped, 0, len(resp.Images))
	for i, img := range resp.Images {
		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return nil, fmt.Errorf("decoding image %d: %w", i, err)
		}
		out = append(out, Cropped{Data: data, Rotation: img.Rotation})
	}
	return out, nil
}

func (r *Remote) post(ctx context.Context, path string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := r.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s API: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s API error (status %d): %s", path, resp.StatusCode, string(body))
	}
	return body, nil
}

// Close is a no-op for the HTTP client
func (r *Remote) Close() error {
	return nil
}
