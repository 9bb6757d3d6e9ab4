package scanning

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// rowHeight groups regions whose top edges fall in the same band into one row
const rowHeight = 100

// regionsResponse is the JSON shape returned by detection backends
type regionsResponse struct {
	Regions []Region `json:"regions"`
}

// parseRegionsJSON parses a detection response, tolerating markdown code
// fences and text around the JSON object
func parseRegionsJSON(text string) ([]Region, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var resp regionsResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	regions := make([]Region, 0, len(resp.Regions))
	for _, r := range resp.Regions {
		if r.Width <= 0 || r.Height <= 0 {
			continue
		}
		regions = append(regions, r)
	}
	return regions, nil
}

// SortRegions orders regions top-to-bottom, then left-to-right, treating
// regions whose top edges share a 100px band as one row
func SortRegions(regions []Region) {
	sort.SliceStable(regions, func(i, j int) bool {
		ri, rj := regions[i].Y/rowHeight, regions[j].Y/rowHeight
		if ri != rj {
			return ri < rj
		}
		return regions[i].X < regions[j].X
	})
}

// FilterByArea clips regions to the page, fills in AreaRatio and keeps those
// whose area is between minPct and maxPct percent of the page
func FilterByArea(regions []Region, width, height, minPct, maxPct int) []Region {
	total := float64(width * height)
	if total <= 0 {
		return nil
	}

	kept := make([]Region, 0, len(regions))
	for _, r := range regions {
		r.X = min(max(r.X, 0), width)
		r.Y = min(max(r.Y, 0), height)
		r.Width = min(r.Width, width-r.X)
		r.Height = min(r.Height, height-r.Y)
		if r.Width <= 0 || r.Height <= 0 {
			continue
		}
		r.AreaRatio = float64(r.Width*r.Height) / total
		if r.AreaRatio < float64(minPct)/100 || r.AreaRatio > float64(maxPct)/100 {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}
