package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/iin-community/kehila/pkg/model"
)

// Repository defines the data-store edge of the service. All reads are keyed
// lookups or single-collection queries; cross-collection joins happen in the
// usecase layer.
type Repository interface {
	// PutPost saves a post (upsert keyed by post id)
	PutPost(ctx context.Context, post *model.Post) error

	// GetPost retrieves a post by ID
	GetPost(ctx context.Context, id model.PostID) (*model.Post, error)

	// ListRecentPosts retrieves the newest posts, descending by sent_at
	ListRecentPosts(ctx context.Context, limit int) ([]*model.Post, error)

	// ListPostsSince retrieves posts with sent_at strictly after since,
	// ascending
	ListPostsSince(ctx context.Context, since time.Time) ([]*model.Post, error)

	// UpdatePostEmbedding upserts the embedding vector on a post document
	UpdatePostEmbedding(ctx context.Context, id model.PostID, embedding firestore.Vector32) error

	// SearchSimilarPosts performs vector search, returning up to limit posts
	// whose similarity to embedding is at least floor
	SearchSimilarPosts(ctx context.Context, embedding []float32, floor float64, limit int) ([]*model.PostMatch, error)

	// PutComment saves a comment
	PutComment(ctx context.Context, comment *model.Comment) error

	// ListCommentsForPosts retrieves all comments for the given post ids in
	// one batch, ascending by created_at
	ListCommentsForPosts(ctx context.Context, ids []model.PostID) ([]*model.Comment, error)

	// GetUserByEmail retrieves a user profile by email
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// GetUserByUUID retrieves a user profile by uuid
	GetUserByUUID(ctx context.Context, uuid string) (*model.User, error)

	// ListUsersByEmails retrieves user profiles for the given emails in one
	// batch; missing emails are simply absent from the result
	ListUsersByEmails(ctx context.Context, emails []string) ([]*model.User, error)

	// LatestSummary retrieves the newest summary, or model.ErrNotFound when
	// none exists
	LatestSummary(ctx context.Context) (*model.Summary, error)

	// PutSummary saves a summary
	PutSummary(ctx context.Context, summary *model.Summary) error
}
