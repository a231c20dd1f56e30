package biometric

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-flash-lite-latest"

	comparePrompt = "Compare these two photos. Photo 1 is the registered parent ID. " +
		"Photo 2 is the current person at the camera. Are they the same person?"
)

// contentGenerator is the subset of *genai.Models the oracle needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAIOracle asks a Gemini model whether two photos show the same person.
type GenAIOracle struct {
	models  contentGenerator
	model   string
	timeout time.Duration
}

// NewGenAIOracle creates an oracle backed by the Gemini API.
func NewGenAIOracle(ctx context.Context, apiKey, model string, timeout time.Duration) (*GenAIOracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return newGenAIOracle(client.Models, model, timeout), nil
}

func newGenAIOracle(models contentGenerator, model string, timeout time.Duration) *GenAIOracle {
	if model == "" {
		model = DefaultModel
	}
	return &GenAIOracle{models: models, model: model, timeout: timeout}
}

// Name returns the oracle name.
func (o *GenAIOracle) Name() string {
	return fmt.Sprintf("genai:%s", o.model)
}

// Compare sends both images with a structured-output schema and parses the verdict.
func (o *GenAIOracle) Compare(ctx context.Context, reference, probe Image) (Result, error) {
	if reference.Empty() || probe.Empty() {
		return Result{}, fmt.Errorf("%w: missing image", ErrOracleUnavailable)
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(comparePrompt),
			genai.NewPartFromBytes(reference.Data, mimeOrDefault(reference.MIMEType)),
			genai.NewPartFromBytes(probe.Data, mimeOrDefault(probe.MIMEType)),
		}, genai.RoleUser),
	}

	resp, err := o.models.GenerateContent(ctx, o.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   verdictSchema(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	if resp == nil {
		return Result{}, fmt.Errorf("%w: empty response", ErrOracleUnavailable)
	}

	return parseVerdict(resp.Text())
}

func verdictSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"match":      {Type: genai.TypeBoolean},
			"confidence": {Type: genai.TypeNumber},
		},
		Required: []string{"match", "confidence"},
	}
}

type verdict struct {
	Match      *bool    `json:"match"`
	Confidence *float64 `json:"confidence"`
}

func parseVerdict(text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, fmt.Errorf("%w: empty verdict", ErrOracleUnavailable)
	}

	var v verdict
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return Result{}, fmt.Errorf("%w: malformed verdict: %v", ErrOracleUnavailable, err)
	}
	if v.Match == nil || v.Confidence == nil {
		return Result{}, fmt.Errorf("%w: incomplete verdict", ErrOracleUnavailable)
	}
	if *v.Confidence < 0 || *v.Confidence > 1 {
		return Result{}, fmt.Errorf("%w: confidence %v out of range", ErrOracleUnavailable, *v.Confidence)
	}

	return Result{Match: *v.Match, Confidence: *v.Confidence}, nil
}

func mimeOrDefault(mime string) string {
	if mime == "" {
		return "image/jpeg"
	}
	return mime
}
