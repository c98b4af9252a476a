// Package mediagate validates photos against a technical-quality policy
// before they are accepted into a defect record.
//
// The gate is asymmetric: an unconfigured backend fails open (photo intake
// must not block on a missing dependency) while a backend error fails
// closed (an explicit failure must not silently admit bad data).
package mediagate

import (
	"context"
	"encoding/json"

	"github.com/defectdesk/defectdesk/pkg/adapter"
	"github.com/defectdesk/defectdesk/pkg/utils/logging"
	"google.golang.org/genai"
)

const systemPrompt = `You are a TECHNICAL photo quality analysis system.
Your answer must be STRICTLY JSON with the fields "is_acceptable" (true/false) and "analysis" (text).
Do not use markdown. Do not write anything except the JSON.`

const userPrompt = `Assess the TECHNICAL quality of this photograph. Check ONLY:
1. Subject visibility (the subject must be visible in the photo)
2. Legibility (it must be possible to tell what is pictured)

IMPORTANT: do NOT judge whether the pictured product is defective, and do
not judge the quality of the product itself. Only the technical quality of
the photograph matters.

Accept the photo (is_acceptable: true) if the subject is visible and the
photo is broadly legible. Mild blur, imperfect lighting or partial focus is
fine, accept such photos.

Reject the photo (is_acceptable: false) ONLY in extreme cases:
- the subject is entirely invisible or unidentifiable
- the photo is too dark to make anything out
- the photo is so blurred that nothing can be recognized
- the photo is fully white or black (over/under-exposed)`

type verdict struct {
	IsAcceptable bool   `json:"is_acceptable"`
	Analysis     string `json:"analysis"`
}

// Gate evaluates one image at a time. A nil Gemini means the check is
// turned off and every photo passes.
type Gate struct {
	gemini adapter.Gemini
}

// New creates a Gate. gemini may be nil.
func New(gemini adapter.Gemini) *Gate {
	return &Gate{gemini: gemini}
}

// Evaluate classifies the image and returns whether it is accepted plus an
// explanation for the user.
func (g *Gate) Evaluate(ctx context.Context, image []byte) (bool, string) {
	if g.gemini == nil {
		return true, "AI quality check is turned off, photo accepted by default."
	}

	parts := []*genai.Part{
		genai.NewPartFromText(userPrompt),
		genai.NewPartFromBytes(image, "image/jpeg"),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, ""),
		ResponseMIMEType:  "application/json",
	}

	resp, err := g.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		logging.From(ctx).Warn("image quality analysis failed", "error", err)
		return false, "An error occurred while analyzing the image: " + err.Error()
	}

	var v verdict
	if err := json.Unmarshal([]byte(responseText(resp)), &v); err != nil {
		logging.From(ctx).Warn("image quality verdict is not valid JSON", "error", err)
		return false, "The image analysis returned an unreadable verdict."
	}
	if v.Analysis == "" {
		v.Analysis = "No analysis provided."
	}
	return v.IsAcceptable, v.Analysis
}

func responseText(resp *genai.GenerateContentResponse) string {
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}
