package search

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/iin-community/kehila/pkg/adapter"
	"github.com/iin-community/kehila/pkg/model"
	"github.com/iin-community/kehila/pkg/utils/jsonutil"
	"github.com/iin-community/kehila/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

//go:embed prompt/answer.md
var answerPromptRaw string

// Answer is the structured output of the synthesis stage. SourceIndices are
// 1-based positions into the context block sent to the model.
type Answer struct {
	Answer        string `json:"answer"`
	SourceIndices []int  `json:"source_indices"`
}

// contextBlock renders the enriched posts into the numbered source format
// the answer prompt expects. Indices start at 1.
func contextBlock(posts []*model.EnrichedPost) string {
	if len(posts) == 0 {
		return "No relevant information found."
	}

	blocks := make([]string, 0, len(posts))
	for i, p := range posts {
		blocks = append(blocks, fmt.Sprintf("SOURCE_INDEX: %d\nתאריך: %s\nנושא: %s\nתוכן: %s",
			i+1, p.SentAt.Format("2006-01-02"), p.Subject, p.Message))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// Synthesize asks the model to answer question from the enriched posts.
// Transport failures propagate; malformed model output degrades to an empty
// answer with no citations.
func (u *UseCase) Synthesize(ctx context.Context, question string, posts []*model.EnrichedPost) (*Answer, error) {
	temperature := float32(0.4)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(answerPromptRaw, ""),
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"answer": {
					Type:        genai.TypeString,
					Description: "Answer in Hebrew, grounded only in the provided sources",
				},
				"source_indices": {
					Type:        genai.TypeArray,
					Items:       &genai.Schema{Type: genai.TypeInteger},
					Description: "1-based SOURCE_INDEX values actually used in the answer",
				},
			},
			Required: []string{"answer", "source_indices"},
		},
	}

	prompt := "Context:\n" + contextBlock(posts) + "\n\nQuestion: " + question
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := u.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "answer synthesis failed")
	}

	text, err := adapter.ResponseText(resp)
	if err != nil {
		logging.From(ctx).Warn("answer synthesis returned no text", "error", err)
		return &Answer{SourceIndices: []int{}}, nil
	}

	answer := jsonutil.ParseOrDefault(jsonutil.Clean(text), Answer{SourceIndices: []int{}})
	if answer.SourceIndices == nil {
		answer.SourceIndices = []int{}
	}
	return &answer, nil
}
