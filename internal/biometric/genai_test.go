package biometric

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	text     string
	err      error
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(f.text, genai.RoleModel)},
		},
	}, nil
}

var (
	refImage   = Image{Data: []byte("reference"), MIMEType: "image/png"}
	probeImage = Image{Data: []byte("probe")}
)

func TestGenAIOracleCompare(t *testing.T) {
	gen := &fakeGenerator{text: `{"match": true, "confidence": 0.82}`}
	oracle := newGenAIOracle(gen, "", 0)

	res, err := oracle.Compare(context.Background(), refImage, probeImage)
	require.NoError(t, err)
	assert.Equal(t, Result{Match: true, Confidence: 0.82}, res)

	assert.Equal(t, DefaultModel, gen.model)
	require.Len(t, gen.contents, 1)
	parts := gen.contents[0].Parts
	require.Len(t, parts, 3)
	assert.Equal(t, comparePrompt, parts[0].Text)
	assert.Equal(t, "image/png", parts[1].InlineData.MIMEType)
	assert.Equal(t, "image/jpeg", parts[2].InlineData.MIMEType)
	assert.Equal(t, "application/json", gen.config.ResponseMIMEType)
	assert.ElementsMatch(t, []string{"match", "confidence"}, gen.config.ResponseSchema.Required)
}

func TestGenAIOracleFailures(t *testing.T) {
	tests := []struct {
		name  string
		gen   *fakeGenerator
		probe Image
	}{
		{"transport error", &fakeGenerator{err: errors.New("dial tcp: timeout")}, probeImage},
		{"malformed json", &fakeGenerator{text: `match=yes`}, probeImage},
		{"missing confidence", &fakeGenerator{text: `{"match": true}`}, probeImage},
		{"confidence above one", &fakeGenerator{text: `{"match": true, "confidence": 1.5}`}, probeImage},
		{"negative confidence", &fakeGenerator{text: `{"match": false, "confidence": -0.1}`}, probeImage},
		{"empty text", &fakeGenerator{text: ``}, probeImage},
		{"empty probe", &fakeGenerator{text: `{"match": true, "confidence": 0.9}`}, Image{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := newGenAIOracle(tt.gen, "custom-model", 0)
			_, err := oracle.Compare(context.Background(), refImage, tt.probe)
			assert.ErrorIs(t, err, ErrOracleUnavailable)
		})
	}
}

func TestNegativeVerdictIsNotAnError(t *testing.T) {
	oracle := newGenAIOracle(&fakeGenerator{text: `{"match": false, "confidence": 0.4}`}, "", 0)
	res, err := oracle.Compare(context.Background(), refImage, probeImage)
	require.NoError(t, err)
	assert.False(t, res.Match)
	assert.InDelta(t, 0.4, res.Confidence, 1e-9)
}

func TestNewGenAIOracleRequiresKey(t *testing.T) {
	_, err := NewGenAIOracle(context.Background(), "", "", 0)
	assert.Error(t, err)
}

func TestOracleFunc(t *testing.T) {
	var o Oracle = OracleFunc(func(ctx context.Context, reference, probe Image) (Result, error) {
		return Result{Match: string(reference.Data) == string(probe.Data), Confidence: 1}, nil
	})
	res, err := o.Compare(context.Background(), refImage, refImage)
	require.NoError(t, err)
	assert.True(t, res.Match)
}
