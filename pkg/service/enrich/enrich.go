// Package enrich derives text from raw user input: a short summary of a
// free-form defect description, and a transcript of a spoken one.
package enrich

import (
	"context"
	"strings"

	"github.com/defectdesk/defectdesk/pkg/adapter"
	"github.com/defectdesk/defectdesk/pkg/utils/logging"
	"google.golang.org/genai"
)

const (
	// maxFallbackLen caps the truncated-original fallback of Summarize.
	maxFallbackLen = 300
	// maxSummaryLen caps every Summarize result regardless of source.
	maxSummaryLen = 500
)

const summarizeSystemPrompt = `You process defect reports for goods.
You receive a long free-form description written by a person.
Produce a SHORT, human-readable summary of the main problems in one or two sentences.
Do not use bullet lists, just plain connected text.`

const transcribePrompt = `Transcribe the attached voice message verbatim. Reply with the transcript text only, no commentary.`

// Enricher wraps the Gemini backend. A nil Gemini disables enrichment:
// Summarize degrades to a truncated copy and Transcribe to an empty string.
type Enricher struct {
	gemini adapter.Gemini
}

// New creates an Enricher. gemini may be nil.
func New(gemini adapter.Gemini) *Enricher {
	return &Enricher{gemini: gemini}
}

// Summarize produces a 1-2 sentence summary of the description. It never
// fails: when the backend is unconfigured or errors, it falls back to the
// trimmed input truncated to maxFallbackLen runes. Every result is capped
// at maxSummaryLen runes.
func (e *Enricher) Summarize(ctx context.Context, text string) string {
	if e.gemini == nil {
		return truncate(strings.TrimSpace(text), maxFallbackLen)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(summarizeSystemPrompt, ""),
	}

	resp, err := e.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		logging.From(ctx).Warn("summarization failed, falling back to truncated input", "error", err)
		return truncate(strings.TrimSpace(text), maxFallbackLen)
	}

	summary := strings.TrimSpace(responseText(resp))
	if summary == "" {
		return truncate(strings.TrimSpace(text), maxFallbackLen)
	}
	return truncate(summary, maxSummaryLen)
}

// Transcribe converts spoken audio to text. An empty result means "could
// not transcribe", not silence: unconfigured backend and service errors
// both yield "".
func (e *Enricher) Transcribe(ctx context.Context, audio []byte) string {
	if e.gemini == nil {
		logging.From(ctx).Warn("transcription requested but enrichment backend is not configured")
		return ""
	}

	parts := []*genai.Part{
		genai.NewPartFromText(transcribePrompt),
		genai.NewPartFromBytes(audio, "audio/ogg"),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	resp, err := e.gemini.GenerateContent(ctx, contents, nil)
	if err != nil {
		logging.From(ctx).Warn("transcription failed", "error", err)
		return ""
	}
	return strings.TrimSpace(responseText(resp))
}

// responseText collects the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
		break
	}
	return sb.String()
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
