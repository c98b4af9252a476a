package mediagate_test

import (
	"context"
	"testing"

	"github.com/defectdesk/defectdesk/pkg/service/mediagate"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"google.golang.org/genai"
)

type mockGemini struct {
	generateContent func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.generateContent(ctx, contents, config)
}

func verdictGemini(body string, err error) *mockGemini {
	return &mockGemini{
		generateContent: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			if err != nil {
				return nil, err
			}
			return &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{
					{Content: &genai.Content{Parts: []*genai.Part{{Text: body}}}},
				},
			}, nil
		},
	}
}

func TestNilBackendAcceptsEverything(t *testing.T) {
	gate := mediagate.New(nil)

	accepted, analysis := gate.Evaluate(context.Background(), []byte{0x00})
	gt.Equal(t, accepted, true)
	gt.S(t, analysis).Contains("turned off")
}

func TestAcceptVerdict(t *testing.T) {
	gate := mediagate.New(verdictGemini(`{"is_acceptable": true, "analysis": "Clear and sharp."}`, nil))

	accepted, analysis := gate.Evaluate(context.Background(), []byte{0x01})
	gt.Equal(t, accepted, true)
	gt.Equal(t, analysis, "Clear and sharp.")
}

func TestRejectVerdict(t *testing.T) {
	gate := mediagate.New(verdictGemini(`{"is_acceptable": false, "analysis": "Nothing is recognizable."}`, nil))

	accepted, analysis := gate.Evaluate(context.Background(), []byte{0x01})
	gt.Equal(t, accepted, false)
	gt.Equal(t, analysis, "Nothing is recognizable.")
}

func TestBackendErrorRejects(t *testing.T) {
	gate := mediagate.New(verdictGemini("", goerr.New("quota exceeded")))

	accepted, analysis := gate.Evaluate(context.Background(), []byte{0x01})
	gt.Equal(t, accepted, false)
	gt.S(t, analysis).Contains("quota exceeded")
}

func TestUnparsableVerdictRejects(t *testing.T) {
	gate := mediagate.New(verdictGemini("the photo looks fine to me", nil))

	accepted, _ := gate.Evaluate(context.Background(), []byte{0x01})
	gt.Equal(t, accepted, false)
}
