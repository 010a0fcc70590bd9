package search

import (
	"context"
	"time"

	"github.com/iin-community/kehila/pkg/adapter"
	"github.com/iin-community/kehila/pkg/model"
	"github.com/iin-community/kehila/pkg/repository"
	"github.com/iin-community/kehila/pkg/usecase/enrich"
)

// noAnswerFallback is returned when the model produced no usable answer text.
const noAnswerFallback = "לא נמצא מידע רלוונטי."

// Tuning holds the numeric search policy. Each value is tuned independently;
// see DefaultTuning for the production settings.
type Tuning struct {
	// FetchLimit caps how many candidates retrieval may return per query
	FetchLimit int `yaml:"fetch_limit"`
	// StrictFloor is the similarity floor for multi-word queries
	StrictFloor float64 `yaml:"strict_floor"`
	// BroadFloor is the permissive floor for single-word queries, which are
	// broad topic lookups where the strict floor would return nothing
	BroadFloor float64 `yaml:"broad_floor"`
	// MaxBonus bounds the additive recency bonus
	MaxBonus float64 `yaml:"max_bonus"`
	// DecayDays is the recency decay window in days
	DecayDays int `yaml:"decay_days"`
	// MissingAgeDays is the age assumed for posts without a timestamp,
	// effectively denying them any meaningful bonus
	MissingAgeDays int `yaml:"missing_age_days"`
}

func DefaultTuning() Tuning {
	return Tuning{
		FetchLimit:     60,
		StrictFloor:    0.3,
		BroadFloor:     0.05,
		MaxBonus:       0.15,
		DecayDays:      180,
		MissingAgeDays: 730,
	}
}

// UseCase runs the interactive search pipeline: intent normalization,
// embedding, vector retrieval, recency re-ranking, enrichment, answer
// synthesis and citation reconciliation, strictly in that order.
type UseCase struct {
	repo     repository.Repository
	gemini   adapter.Gemini
	enricher *enrich.Service
	tuning   Tuning
	now      func() time.Time
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithTuning overrides the default search policy
func WithTuning(t Tuning) Option {
	return func(uc *UseCase) {
		uc.tuning = t
	}
}

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}

// New creates a search UseCase instance
func New(repo repository.Repository, gemini adapter.Gemini, enricher *enrich.Service, opts ...Option) *UseCase {
	uc := &UseCase{
		repo:     repo,
		gemini:   gemini,
		enricher: enricher,
		tuning:   DefaultTuning(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Search answers rawQuery from the community's posts. Model-output failures
// in the intent and synthesis stages degrade to safe defaults; retrieval and
// data-store failures propagate.
func (u *UseCase) Search(ctx context.Context, rawQuery string) (*model.SearchResult, error) {
	optimized := u.NormalizeIntent(ctx, rawQuery)

	matches, err := u.retrieve(ctx, optimized)
	if err != nil {
		return nil, err
	}

	candidates := Rerank(matches, u.now(), u.tuning)

	posts := make([]*model.Post, 0, len(candidates))
	for _, c := range candidates {
		posts = append(posts, c.Post)
	}
	enriched, err := u.enricher.Posts(ctx, posts)
	if err != nil {
		return nil, err
	}

	answer, err := u.Synthesize(ctx, rawQuery, enriched)
	if err != nil {
		return nil, err
	}

	answerText := answer.Answer
	if answerText == "" {
		answerText = noAnswerFallback
	}

	used, all := Reconcile(enriched, answer.SourceIndices)

	return &model.SearchResult{
		Answer:         answerText,
		UsedSources:    used,
		AllSources:     all,
		OptimizedQuery: optimized,
	}, nil
}
