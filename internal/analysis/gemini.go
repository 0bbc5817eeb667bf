package analysis

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/drivercopilot/platform/internal/offer"
	"github.com/drivercopilot/platform/internal/resilience"
	"github.com/drivercopilot/platform/internal/trace"
)

// extractionPrompt asks the model for exactly the RawResult JSON shape.
const extractionPrompt = `Analyze this screenshot.
Is it an active ride offer from a driver app (Uber, Didi, Bolt, InDrive)?

If it is NOT a clear ride offer (for example a map without a price, a menu,
or a list), return JSON with "valid": false and every other value 0.

If it IS an offer, extract:
1. Total price of the trip.
2. Pickup distance (distance to reach the passenger).
3. Trip distance (from pickup to destination).
4. Pickup time (minutes).
5. Trip time (minutes).

Rules:
- "valid": true only if you found the data.
- If a value is a range (5-7 min), use the average.
- Return ONLY JSON.`

// responseSchema constrains the model to the RawResult contract.
var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"valid":         {Type: genai.TypeBoolean},
		"totalPrice":    {Type: genai.TypeNumber},
		"pickupKm":      {Type: genai.TypeNumber},
		"tripKm":        {Type: genai.TypeNumber},
		"pickupMinutes": {Type: genai.TypeNumber},
		"tripMinutes":   {Type: genai.TypeNumber},
		"currency":      {Type: genai.TypeString},
	},
	Required: []string{"valid", "totalPrice", "pickupKm", "tripKm", "pickupMinutes", "tripMinutes", "currency"},
}

// Gemini analyzes frames with the Gemini vision API. A circuit breaker stops
// hammering the API while it is down; while open, Analyze reports the invalid
// offer immediately.
type Gemini struct {
	client  *genai.Client
	model   string
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
}

// NewGemini creates the Gemini-backed analyzer.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &Gemini{
		client:  client,
		model:   model,
		breaker: resilience.New(resilience.DefaultConfig()),
		retry:   resilience.AnalysisRetryConfig(),
	}, nil
}

// Analyze sends the frame to the model and normalizes the response. Every
// failure path returns offer.Invalid(); the caller's loop never stops because
// one sample failed to analyze.
func (g *Gemini) Analyze(ctx context.Context, imageJPEG []byte) offer.Offer {
	log := trace.Logger(ctx)

	if err := g.breaker.Allow(); err != nil {
		log.Debug("analysis skipped, breaker open")
		return offer.Invalid()
	}

	var text string
	err := resilience.Retry(ctx, g.retry, func() error {
		resp, err := g.client.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{
				genai.NewContentFromParts([]*genai.Part{
					genai.NewPartFromBytes(imageJPEG, "image/jpeg"),
					genai.NewPartFromText(extractionPrompt),
				}, genai.RoleUser),
			},
			&genai.GenerateContentConfig{
				ResponseMIMEType: "application/json",
				ResponseSchema:   responseSchema,
			})
		if err != nil {
			return err
		}
		text = resp.Text()
		if text == "" {
			return errors.New("empty model response")
		}
		return nil
	})
	if err != nil {
		g.breaker.Failure()
		log.Debug("analysis call failed", "error", err)
		return offer.Invalid()
	}
	g.breaker.Success()

	result, err := Parse([]byte(text))
	if err != nil {
		log.Debug("analysis response malformed", "error", err)
	}
	return result
}
