package vision

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// listingSchema is the response schema handed to the model.
var listingSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":              {Type: genai.TypeString, Description: "The name/title of the listing"},
			"price":             {Type: genai.TypeNumber, Description: "The price per night"},
			"rating":            {Type: genai.TypeNumber, Description: "The rating score"},
			"bed_configuration": {Type: genai.TypeString, Description: "Bed configuration details"},
		},
		Required: []string{"name", "price", "rating"},
	},
}

// Gemini is a Generator backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini generator for the given model.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("vision: GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("vision: create client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Generate asks for JSON-only output constrained by listingSchema.
func (g *Gemini) Generate(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   listingSchema,
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}
