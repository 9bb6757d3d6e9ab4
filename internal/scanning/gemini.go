package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// regionPrompt asks the model for photo bounding boxes in page pixels
const regionPrompt = `You are looking at a flatbed scan that contains one or more printed photographs laid on the scanner glass. The image is %d pixels wide and %d pixels tall.

Find every individual photograph. For each one return its axis-aligned bounding box in pixels of this image.

Return ONLY valid JSON in this exact format:
{
  "regions": [
    {"x": 0, "y": 0, "width": 0, "height": 0}
  ]
}

Important:
- x and y are the top-left corner, measured from the top-left of the image
- Include the photo border but not the scanner background
- Do not merge touching photos into one box
- If there are no photos, return {"regions": []}
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// Gemini implements the Detector interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Detector instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// Detect asks Gemini for photo regions on a PNG page. The detection mode is
// ignored; area limits are applied to the returned boxes.
func (g *Gemini) Detect(ctx context.Context, page []byte, opts DetectOptions) ([]Region, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	width, height, err := PageSize(page)
	if err != nil {
		return nil, err
	}

	// genai.ImageData expects just the format suffix (e.g., "png"), not the full MIME type
	parts := []genai.Part{
		genai.ImageData("png", page),
		genai.Text(fmt.Sprintf(regionPrompt, width, height)),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	regions, err := parseRegionsJSON(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing regions: %w", err)
	}

	regions = FilterByArea(regions, width, height, opts.MinArea, opts.MaxArea)
	SortRegions(regions)
	return regions, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
