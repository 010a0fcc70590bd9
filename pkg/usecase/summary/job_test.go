package summary_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/iin-community/kehila/pkg/model"
	"github.com/iin-community/kehila/pkg/usecase/summary"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"google.golang.org/genai"
)

// Mock Repository
type mockRepo struct {
	posts  []*model.Post
	latest *model.Summary
	stored []*model.Summary

	lastSince time.Time
}

func (m *mockRepo) PutPost(ctx context.Context, post *model.Post) error { return nil }
func (m *mockRepo) GetPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	return nil, goerr.Wrap(model.ErrNotFound, "no post")
}
func (m *mockRepo) ListRecentPosts(ctx context.Context, limit int) ([]*model.Post, error) {
	return nil, nil
}
func (m *mockRepo) ListPostsSince(ctx context.Context, since time.Time) ([]*model.Post, error) {
	m.lastSince = since
	var matched []*model.Post
	for _, p := range m.posts {
		if p.SentAt.After(since) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}
func (m *mockRepo) UpdatePostEmbedding(ctx context.Context, id model.PostID, embedding firestore.Vector32) error {
	return nil
}
func (m *mockRepo) SearchSimilarPosts(ctx context.Context, embedding []float32, floor float64, limit int) ([]*model.PostMatch, error) {
	return nil, nil
}
func (m *mockRepo) PutComment(ctx context.Context, comment *model.Comment) error { return nil }
func (m *mockRepo) ListCommentsForPosts(ctx context.Context, ids []model.PostID) ([]*model.Comment, error) {
	return nil, nil
}
func (m *mockRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, goerr.Wrap(model.ErrNotFound, "no user")
}
func (m *mockRepo) GetUserByUUID(ctx context.Context, uuid string) (*model.User, error) {
	return nil, goerr.Wrap(model.ErrNotFound, "no user")
}
func (m *mockRepo) ListUsersByEmails(ctx context.Context, emails []string) ([]*model.User, error) {
	return nil, nil
}
func (m *mockRepo) LatestSummary(ctx context.Context) (*model.Summary, error) {
	if m.latest == nil {
		return nil, goerr.Wrap(model.ErrNotFound, "no summary")
	}
	return m.latest, nil
}
func (m *mockRepo) PutSummary(ctx context.Context, s *model.Summary) error {
	m.stored = append(m.stored, s)
	return nil
}

// Mock Gemini
type mockGemini struct {
	generate   func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	lastPrompt string
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		m.lastPrompt = contents[0].Parts[0].Text
	}
	return m.generate(ctx, contents, config)
}

func (m *mockGemini) Embedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1}, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{{Text: text}},
				},
			},
		},
	}
}

var now = time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func qualityPost(age time.Duration) *model.Post {
	return &model.Post{
		ID:      model.NewPostID(),
		Sender:  "member@example.com",
		Subject: "חגיגה",
		Message: "התחלתי היום תפקיד ראשון כמפתחת ואני נרגשת לשתף את הקהילה",
		SentAt:  now.Add(-age),
	}
}

func TestSummaryJob(t *testing.T) {
	ctx := context.Background()

	t.Run("no new posts skips without calling the model", func(t *testing.T) {
		repo := &mockRepo{
			latest: &model.Summary{CreatedAt: now.Add(-24 * time.Hour)},
			posts:  []*model.Post{qualityPost(48 * time.Hour)},
		}
		gemini := &mockGemini{
			generate: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				t.Fatal("model must not be called")
				return nil, nil
			},
		}

		outcome, err := summary.New(repo, gemini, summary.WithClock(clock)).Run(ctx)
		gt.NoError(t, err)

		gt.Equal(t, outcome.Status, summary.StatusSkipped)
		gt.Equal(t, outcome.Reason, "No new posts")
		gt.A(t, repo.stored).Length(0)
	})

	t.Run("below threshold skips with the quality count", func(t *testing.T) {
		repo := &mockRepo{
			latest: &model.Summary{CreatedAt: now.Add(-24 * time.Hour)},
			posts: []*model.Post{
				qualityPost(1 * time.Hour),
				qualityPost(2 * time.Hour),
				qualityPost(3 * time.Hour),
				{ID: model.NewPostID(), Message: "תודה", SentAt: now.Add(-4 * time.Hour)},
				{ID: model.NewPostID(), Message: "up", SentAt: now.Add(-5 * time.Hour)},
			},
		}
		gemini := &mockGemini{
			generate: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				t.Fatal("model must not be called")
				return nil, nil
			},
		}

		outcome, err := summary.New(repo, gemini, summary.WithClock(clock)).Run(ctx)
		gt.NoError(t, err)

		gt.Equal(t, outcome.Status, summary.StatusSkipped)
		gt.Equal(t, outcome.Reason, "Threshold not met")
		gt.Equal(t, outcome.Count, 3)
	})

	t.Run("threshold met produces and stores a summary", func(t *testing.T) {
		posts := []*model.Post{
			qualityPost(1 * time.Hour),
			qualityPost(2 * time.Hour),
			qualityPost(3 * time.Hour),
			qualityPost(4 * time.Hour),
			qualityPost(5 * time.Hour),
		}
		repo := &mockRepo{
			latest: &model.Summary{CreatedAt: now.Add(-24 * time.Hour)},
			posts:  posts,
		}
		gemini := &mockGemini{}
		gemini.generate = func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			body, _ := json.Marshal(map[string]any{
				"summary_text": "היום היה יום פעיל במיוחד בקהילה",
				"sources":      []string{string(posts[0].ID), string(posts[2].ID)},
			})
			return textResponse(string(body)), nil
		}

		outcome, err := summary.New(repo, gemini, summary.WithClock(clock)).Run(ctx)
		gt.NoError(t, err)

		gt.Equal(t, outcome.Status, summary.StatusOK)
		gt.Equal(t, outcome.Count, 5)
		gt.A(t, repo.stored).Length(1)

		stored := repo.stored[0]
		gt.Equal(t, stored.SummaryText, "היום היה יום פעיל במיוחד בקהילה")
		gt.Equal(t, stored.CreatedAt, now)
		gt.A(t, stored.Sources).Length(2)
		gt.Equal(t, stored.Sources[0], posts[0].ID)

		gt.S(t, gemini.lastPrompt).Contains("<community_data>")
		gt.S(t, gemini.lastPrompt).Contains(string(posts[0].ID))
	})

	t.Run("unknown source ids are dropped", func(t *testing.T) {
		posts := []*model.Post{
			qualityPost(1 * time.Hour),
			qualityPost(2 * time.Hour),
			qualityPost(3 * time.Hour),
			qualityPost(4 * time.Hour),
			qualityPost(5 * time.Hour),
		}
		repo := &mockRepo{
			latest: &model.Summary{CreatedAt: now.Add(-24 * time.Hour)},
			posts:  posts,
		}
		gemini := &mockGemini{
			generate: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				body, _ := json.Marshal(map[string]any{
					"summary_text": "סיכום",
					"sources":      []string{string(posts[0].ID), "invented-id"},
				})
				return textResponse(string(body)), nil
			},
		}

		_, err := summary.New(repo, gemini, summary.WithClock(clock)).Run(ctx)
		gt.NoError(t, err)

		gt.A(t, repo.stored[0].Sources).Length(1)
		gt.Equal(t, repo.stored[0].Sources[0], posts[0].ID)
	})

	t.Run("malformed model output aborts without writing", func(t *testing.T) {
		repo := &mockRepo{
			latest: &model.Summary{CreatedAt: now.Add(-24 * time.Hour)},
			posts: []*model.Post{
				qualityPost(1 * time.Hour),
				qualityPost(2 * time.Hour),
				qualityPost(3 * time.Hour),
				qualityPost(4 * time.Hour),
				qualityPost(5 * time.Hour),
			},
		}
		gemini := &mockGemini{
			generate: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return textResponse("definitely not json"), nil
			},
		}

		_, err := summary.New(repo, gemini, summary.WithClock(clock)).Run(ctx)
		gt.Error(t, err)
		gt.A(t, repo.stored).Length(0)
	})

	t.Run("first run bootstraps a one day window", func(t *testing.T) {
		repo := &mockRepo{}
		gemini := &mockGemini{
			generate: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return nil, goerr.New("unexpected")
			},
		}

		outcome, err := summary.New(repo, gemini, summary.WithClock(clock)).Run(ctx)
		gt.NoError(t, err)

		gt.Equal(t, outcome.Status, summary.StatusSkipped)
		gt.Equal(t, repo.lastSince, now.Add(-24*time.Hour))
	})

	t.Run("watermark comes from the latest summary", func(t *testing.T) {
		watermark := now.Add(-6 * time.Hour)
		repo := &mockRepo{latest: &model.Summary{CreatedAt: watermark}}
		gemini := &mockGemini{
			generate: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return nil, goerr.New("unexpected")
			},
		}

		_, err := summary.New(repo, gemini, summary.WithClock(clock)).Run(ctx)
		gt.NoError(t, err)
		gt.Equal(t, repo.lastSince, watermark)
	})

	t.Run("missing subject defaults in the payload", func(t *testing.T) {
		posts := make([]*model.Post, 5)
		for i := range posts {
			posts[i] = qualityPost(time.Duration(i+1) * time.Hour)
		}
		posts[0].Subject = ""

		repo := &mockRepo{
			latest: &model.Summary{CreatedAt: now.Add(-24 * time.Hour)},
			posts:  posts,
		}
		gemini := &mockGemini{
			generate: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return textResponse(`{"summary_text": "סיכום", "sources": []}`), nil
			},
		}

		_, err := summary.New(repo, gemini, summary.WithClock(clock)).Run(ctx)
		gt.NoError(t, err)

		gt.True(t, strings.Contains(gemini.lastPrompt, "ללא נושא"))
	})
}
