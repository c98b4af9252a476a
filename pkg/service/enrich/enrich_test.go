package enrich_test

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/defectdesk/defectdesk/pkg/service/enrich"
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

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: text}}}},
		},
	}
}

func TestSummarizeUsesBackend(t *testing.T) {
	gemini := &mockGemini{
		generateContent: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return textResponse("  The latch is broken.  "), nil
		},
	}

	e := enrich.New(gemini)
	summary := e.Summarize(context.Background(), "A very long story about the latch.")
	gt.Equal(t, summary, "The latch is broken.")
}

func TestSummarizeWithoutBackendTruncates(t *testing.T) {
	e := enrich.New(nil)

	long := strings.Repeat("я", 400)
	summary := e.Summarize(context.Background(), long)
	gt.Equal(t, utf8.RuneCountInString(summary), 300)
}

func TestSummarizeFallsBackOnError(t *testing.T) {
	gemini := &mockGemini{
		generateContent: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, goerr.New("backend down")
		},
	}

	e := enrich.New(gemini)
	summary := e.Summarize(context.Background(), "The fan rattles at high speed.")
	gt.Equal(t, summary, "The fan rattles at high speed.")
}

func TestSummarizeCapsBackendOutput(t *testing.T) {
	gemini := &mockGemini{
		generateContent: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return textResponse(strings.Repeat("x", 900)), nil
		},
	}

	e := enrich.New(gemini)
	summary := e.Summarize(context.Background(), "input")
	gt.Equal(t, utf8.RuneCountInString(summary), 500)
}

func TestTranscribe(t *testing.T) {
	var gotMIME string
	gemini := &mockGemini{
		generateContent: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			for _, c := range contents {
				for _, p := range c.Parts {
					if p.InlineData != nil {
						gotMIME = p.InlineData.MIMEType
					}
				}
			}
			return textResponse("the spoken words"), nil
		},
	}

	e := enrich.New(gemini)
	transcript := e.Transcribe(context.Background(), []byte("ogg"))
	gt.Equal(t, transcript, "the spoken words")
	gt.Equal(t, gotMIME, "audio/ogg")
}

func TestTranscribeFailuresYieldEmpty(t *testing.T) {
	gemini := &mockGemini{
		generateContent: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, goerr.New("backend down")
		},
	}

	gt.Equal(t, enrich.New(gemini).Transcribe(context.Background(), []byte("ogg")), "")
	gt.Equal(t, enrich.New(nil).Transcribe(context.Background(), []byte("ogg")), "")
}
