package search

import (
	"context"
	_ "embed"

	"github.com/iin-community/kehila/pkg/adapter"
	"github.com/iin-community/kehila/pkg/utils/jsonutil"
	"github.com/iin-community/kehila/pkg/utils/logging"
	"google.golang.org/genai"
)

//go:embed prompt/intent.md
var intentPromptRaw string

type intentResponse struct {
	SearchQuery string `json:"search_query"`
}

// NormalizeIntent rewrites a raw user query into a short retrieval-oriented
// query, stripping emotional and urgency language. Every failure mode falls
// back to the raw input; this stage never fails the request.
func (u *UseCase) NormalizeIntent(ctx context.Context, rawQuery string) string {
	temperature := float32(0.2)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(intentPromptRaw, ""),
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"search_query": {
					Type:        genai.TypeString,
					Description: "Concise retrieval query",
				},
			},
			Required: []string{"search_query"},
		},
	}

	contents := []*genai.Content{
		genai.NewContentFromText(rawQuery, genai.RoleUser),
	}

	resp, err := u.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		logging.From(ctx).Warn("query intent rewrite failed, using raw query", "error", err)
		return rawQuery
	}

	text, err := adapter.ResponseText(resp)
	if err != nil {
		logging.From(ctx).Warn("query intent rewrite returned no text, using raw query", "error", err)
		return rawQuery
	}

	parsed := jsonutil.ParseOrDefault(jsonutil.Clean(text), intentResponse{})
	if parsed.SearchQuery == "" {
		return rawQuery
	}
	return parsed.SearchQuery
}
