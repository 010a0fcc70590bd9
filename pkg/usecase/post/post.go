package post

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/iin-community/kehila/pkg/adapter"
	"github.com/iin-community/kehila/pkg/model"
	"github.com/iin-community/kehila/pkg/repository"
	"github.com/iin-community/kehila/pkg/usecase/enrich"
	"github.com/iin-community/kehila/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// defaultEmbedTimeout bounds a background embedding refresh. The refresh is
// detached from the request lifecycle and needs its own deadline.
const defaultEmbedTimeout = 30 * time.Second

// UseCase handles post and comment writes plus the feed read. Writes that
// change a post's searchable text schedule an embedding refresh in the
// background; the write itself never waits on the embedding model.
type UseCase struct {
	repo         repository.Repository
	gemini       adapter.Gemini
	enricher     *enrich.Service
	gate         model.QualityFilter
	embedTimeout time.Duration
	now          func() time.Time

	tasks sync.WaitGroup
}

type Option func(*UseCase)

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}

// WithEmbedTimeout overrides the background refresh deadline
func WithEmbedTimeout(d time.Duration) Option {
	return func(uc *UseCase) {
		uc.embedTimeout = d
	}
}

// New creates a post UseCase instance
func New(repo repository.Repository, gemini adapter.Gemini, enricher *enrich.Service, opts ...Option) *UseCase {
	uc := &UseCase{
		repo:     repo,
		gemini:   gemini,
		enricher: enricher,
		gate: model.QualityFilter{
			MinLength:  10,
			NoiseWords: model.DefaultNoiseWords,
		},
		embedTimeout: defaultEmbedTimeout,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// CreatePostInput carries the caller-supplied fields of a new post. The
// sender comes from the authenticated identity, not the request body.
type CreatePostInput struct {
	Sender      string
	Subject     string
	Message     string
	Attachments []string
}

// CreatePost stores a new post and schedules its embedding. The response
// does not wait for the embedding; a post is searchable once the background
// refresh lands.
func (u *UseCase) CreatePost(ctx context.Context, input CreatePostInput) (*model.Post, error) {
	if strings.TrimSpace(input.Message) == "" {
		return nil, goerr.Wrap(model.ErrMessageRequired, "post message is empty")
	}

	post := &model.Post{
		ID:          model.NewPostID(),
		Sender:      strings.ToLower(strings.TrimSpace(input.Sender)),
		Subject:     input.Subject,
		Message:     input.Message,
		Attachments: input.Attachments,
		SentAt:      u.now(),
	}

	if err := u.repo.PutPost(ctx, post); err != nil {
		return nil, goerr.Wrap(err, "failed to store post")
	}

	u.ScheduleVectorRefresh(ctx, post.ID)
	return post, nil
}

// CreateCommentInput carries the caller-supplied fields of a new comment.
type CreateCommentInput struct {
	PostID      model.PostID
	Sender      string
	Message     string
	Attachments []string
}

// CreateComment stores a comment on an existing post and returns it with the
// resolved author. Substantive comments trigger a refresh of the parent
// post's embedding; noise comments leave the vector untouched.
func (u *UseCase) CreateComment(ctx context.Context, input CreateCommentInput) (*model.CommentWithAuthor, error) {
	if strings.TrimSpace(input.Message) == "" {
		return nil, goerr.Wrap(model.ErrMessageRequired, "comment message is empty")
	}

	if _, err := u.repo.GetPost(ctx, input.PostID); err != nil {
		return nil, goerr.Wrap(err, "failed to load parent post", goerr.V("post_id", input.PostID))
	}

	sender := strings.ToLower(strings.TrimSpace(input.Sender))
	comment := &model.Comment{
		ID:          model.NewCommentID(),
		PostID:      input.PostID,
		Sender:      sender,
		Message:     input.Message,
		Attachments: input.Attachments,
		CreatedAt:   u.now(),
	}

	if err := u.repo.PutComment(ctx, comment); err != nil {
		return nil, goerr.Wrap(err, "failed to store comment")
	}

	author, err := u.repo.GetUserByEmail(ctx, sender)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			return nil, goerr.Wrap(err, "failed to resolve comment author")
		}
		author = model.PlaceholderAuthor(sender)
	}

	if u.gate.IsSubstantive(comment.Message) {
		u.ScheduleVectorRefresh(ctx, input.PostID)
	}

	return &model.CommentWithAuthor{Comment: comment, Author: author}, nil
}

// Feed returns the newest posts enriched with comments and authors.
func (u *UseCase) Feed(ctx context.Context, limit int) ([]*model.EnrichedPost, error) {
	posts, err := u.repo.ListRecentPosts(ctx, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list recent posts")
	}
	return u.enricher.Posts(ctx, posts)
}

// RefreshVector recomputes and stores the embedding of one post from its
// subject, message and all current comments. The upsert is keyed by the post
// id so concurrent refreshes converge on the last writer.
func (u *UseCase) RefreshVector(ctx context.Context, id model.PostID) error {
	post, err := u.repo.GetPost(ctx, id)
	if err != nil {
		return goerr.Wrap(err, "failed to load post for embedding", goerr.V("post_id", id))
	}

	comments, err := u.repo.ListCommentsForPosts(ctx, []model.PostID{id})
	if err != nil {
		return goerr.Wrap(err, "failed to load comments for embedding", goerr.V("post_id", id))
	}

	lines := make([]string, 0, len(comments))
	for _, c := range comments {
		lines = append(lines, c.Message)
	}

	text := strings.TrimSpace("Subject: " + post.Subject + "\nMessage: " + post.Message + "\nComments:\n" + strings.Join(lines, "\n"))

	vector, err := u.gemini.Embedding(ctx, text)
	if err != nil {
		return goerr.Wrap(err, "failed to embed post", goerr.V("post_id", id))
	}

	if err := u.repo.UpdatePostEmbedding(ctx, id, firestore.Vector32(vector)); err != nil {
		return goerr.Wrap(err, "failed to store post embedding", goerr.V("post_id", id))
	}

	return nil
}

// ScheduleVectorRefresh runs RefreshVector in the background, detached from
// the request context so a finished response cannot cancel it. Failures are
// logged and never surfaced to the caller.
func (u *UseCase) ScheduleVectorRefresh(ctx context.Context, id model.PostID) {
	logger := logging.From(ctx)
	detached := context.WithoutCancel(ctx)

	u.tasks.Add(1)
	go func() {
		defer u.tasks.Done()

		refreshCtx, cancel := context.WithTimeout(detached, u.embedTimeout)
		defer cancel()

		if err := u.RefreshVector(refreshCtx, id); err != nil {
			logger.Warn("background embedding refresh failed", "post_id", id, "error", err)
			return
		}
		logger.Debug("embedding refreshed", "post_id", id)
	}()
}

// Wait blocks until all scheduled background refreshes finish. Used on
// shutdown and in tests.
func (u *UseCase) Wait() {
	u.tasks.Wait()
}
