package summary

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"time"

	"github.com/iin-community/kehila/pkg/adapter"
	"github.com/iin-community/kehila/pkg/model"
	"github.com/iin-community/kehila/pkg/repository"
	"github.com/iin-community/kehila/pkg/utils/jsonutil"
	"github.com/iin-community/kehila/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

//go:embed prompt/daily.md
var dailyPromptRaw string

// Status of a single job run.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
)

// Outcome reports what a job run did. Skips are successes, not errors.
type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
	Count  int    `json:"summarized_count,omitempty"`
}

// Tuning holds the summary job policy.
type Tuning struct {
	// MinPosts is the minimum number of quality posts required to run the model
	MinPosts int `yaml:"min_posts"`
	// MinMessageLen is the quality filter length floor in runes
	MinMessageLen int `yaml:"min_message_len"`
	// BootstrapWindow is how far back the first run looks when no prior
	// summary exists
	BootstrapWindow time.Duration `yaml:"bootstrap_window"`
}

func DefaultTuning() Tuning {
	return Tuning{
		MinPosts:        5,
		MinMessageLen:   15,
		BootstrapWindow: 24 * time.Hour,
	}
}

// Job produces the daily community summary. Run is idempotent per watermark:
// each run only considers posts newer than the latest stored summary.
type Job struct {
	repo   repository.Repository
	gemini adapter.Gemini
	tuning Tuning
	filter model.QualityFilter
	now    func() time.Time
}

type Option func(*Job)

// WithTuning overrides the default job policy
func WithTuning(t Tuning) Option {
	return func(j *Job) {
		j.tuning = t
		j.filter.MinLength = t.MinMessageLen
	}
}

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(j *Job) {
		j.now = now
	}
}

// New creates a summary Job instance
func New(repo repository.Repository, gemini adapter.Gemini, opts ...Option) *Job {
	tuning := DefaultTuning()
	j := &Job{
		repo:   repo,
		gemini: gemini,
		tuning: tuning,
		filter: model.QualityFilter{
			MinLength:  tuning.MinMessageLen,
			NoiseWords: model.DefaultNoiseWords,
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(j)
	}

	return j
}

// watermark returns the timestamp new posts must be newer than. When no
// summary exists yet the job looks back one bootstrap window instead of
// swallowing the entire history in a single run.
func (j *Job) watermark(ctx context.Context) (time.Time, error) {
	latest, err := j.repo.LatestSummary(ctx)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return j.now().Add(-j.tuning.BootstrapWindow), nil
		}
		return time.Time{}, goerr.Wrap(err, "failed to load latest summary")
	}
	return latest.CreatedAt, nil
}

type summaryResponse struct {
	SummaryText string   `json:"summary_text"`
	Sources     []string `json:"sources"`
}

type payloadPost struct {
	ID      model.PostID `json:"id"`
	Subject string       `json:"subject"`
	Message string       `json:"message"`
}

// Run executes one summarization cycle. It returns a skip outcome when there
// is nothing worth summarizing; model transport and malformed model output
// are both fatal so a broken run never writes a summary.
func (j *Job) Run(ctx context.Context) (*Outcome, error) {
	logger := logging.From(ctx)

	since, err := j.watermark(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("checking for posts", "since", since)

	posts, err := j.repo.ListPostsSince(ctx, since)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list posts", goerr.V("since", since))
	}

	if len(posts) == 0 {
		logger.Info("no new posts since last summary, skipping")
		return &Outcome{Status: StatusSkipped, Reason: "No new posts"}, nil
	}

	quality := make([]*model.Post, 0, len(posts))
	for _, p := range posts {
		if j.filter.IsSubstantive(p.Message) {
			quality = append(quality, p)
		}
	}
	logger.Info("filtered posts", "total", len(posts), "quality", len(quality))

	if len(quality) < j.tuning.MinPosts {
		logger.Info("not enough quality content, skipping", "count", len(quality))
		return &Outcome{
			Status: StatusSkipped,
			Reason: "Threshold not met",
			Count:  len(quality),
		}, nil
	}

	parsed, err := j.generate(ctx, quality)
	if err != nil {
		return nil, err
	}

	sources := j.validateSources(ctx, parsed.Sources, quality)

	record := &model.Summary{
		ID:          model.NewSummaryID(),
		CreatedAt:   j.now(),
		SummaryText: parsed.SummaryText,
		Sources:     sources,
	}
	if err := j.repo.PutSummary(ctx, record); err != nil {
		return nil, goerr.Wrap(err, "failed to store summary")
	}

	logger.Info("summary created", "id", record.ID, "sources", len(sources))
	return &Outcome{Status: StatusOK, Count: len(quality)}, nil
}

// generate calls the model with the quality posts and strictly parses the
// structured response. Any failure aborts the run.
func (j *Job) generate(ctx context.Context, posts []*model.Post) (*summaryResponse, error) {
	payload := struct {
		Posts []payloadPost `json:"posts"`
	}{Posts: make([]payloadPost, 0, len(posts))}

	for _, p := range posts {
		subject := p.Subject
		if subject == "" {
			subject = "ללא נושא"
		}
		payload.Posts = append(payload.Posts, payloadPost{
			ID:      p.ID,
			Subject: subject,
			Message: p.Message,
		})
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal summary payload")
	}

	temperature := float32(0.7)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(dailyPromptRaw, ""),
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"summary_text": {
					Type:        genai.TypeString,
					Description: "Hebrew narrative summary of the day",
				},
				"sources": {
					Type:        genai.TypeArray,
					Items:       &genai.Schema{Type: genai.TypeString},
					Description: "IDs of posts reflected in the summary",
				},
			},
			Required: []string{"summary_text", "sources"},
		},
	}

	prompt := "Here is the raw data used to generate the JSON response:\n<community_data>\n" + string(raw) + "\n</community_data>"
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := j.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "summary generation failed")
	}

	text, err := adapter.ResponseText(resp)
	if err != nil {
		return nil, goerr.Wrap(err, "summary generation returned no text")
	}

	var parsed summaryResponse
	if err := json.Unmarshal([]byte(jsonutil.Clean(text)), &parsed); err != nil {
		return nil, goerr.Wrap(err, "model did not return valid JSON")
	}
	if parsed.SummaryText == "" {
		return nil, goerr.New("model returned empty summary text")
	}

	return &parsed, nil
}

// validateSources keeps only source IDs that match an input post, so the
// model cannot cite posts it was never shown. Dropped IDs are logged.
func (j *Job) validateSources(ctx context.Context, raw []string, posts []*model.Post) []model.PostID {
	known := make(map[model.PostID]bool, len(posts))
	for _, p := range posts {
		known[p.ID] = true
	}

	sources := make([]model.PostID, 0, len(raw))
	for _, s := range raw {
		id := model.PostID(s)
		if known[id] {
			sources = append(sources, id)
			continue
		}
		logging.From(ctx).Warn("dropping unknown source id from summary", "id", s)
	}
	return sources
}
