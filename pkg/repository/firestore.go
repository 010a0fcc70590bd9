package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/iin-community/kehila/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionPosts     = "posts"
	collectionComments  = "comments"
	collectionUsers     = "users"
	collectionSummaries = "summaries"

	// Firestore caps "in" filters at 30 values per query
	inFilterLimit = 30
)

// Firestore implements Repository on a Firestore database.
type Firestore struct {
	client *firestore.Client
}

// New creates a Firestore-backed repository.
func New(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}
	return &Firestore{client: client}, nil
}

// Close releases the underlying client.
func (r *Firestore) Close() error {
	return r.client.Close()
}

func (r *Firestore) PutPost(ctx context.Context, post *model.Post) error {
	if _, err := r.client.Collection(collectionPosts).Doc(string(post.ID)).Set(ctx, post); err != nil {
		return goerr.Wrap(err, "failed to put post", goerr.V("post_id", post.ID))
	}
	return nil
}

func (r *Firestore) GetPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	doc, err := r.client.Collection(collectionPosts).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "post not found", goerr.V("post_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get post", goerr.V("post_id", id))
	}

	var post model.Post
	if err := doc.DataTo(&post); err != nil {
		return nil, goerr.Wrap(err, "failed to decode post", goerr.V("post_id", id))
	}
	return &post, nil
}

func (r *Firestore) ListRecentPosts(ctx context.Context, limit int) ([]*model.Post, error) {
	iter := r.client.Collection(collectionPosts).
		OrderBy("sent_at", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	return collectPosts(iter)
}

func (r *Firestore) ListPostsSince(ctx context.Context, since time.Time) ([]*model.Post, error) {
	iter := r.client.Collection(collectionPosts).
		Where("sent_at", ">", since).
		OrderBy("sent_at", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	return collectPosts(iter)
}

func collectPosts(iter *firestore.DocumentIterator) ([]*model.Post, error) {
	posts := []*model.Post{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate posts")
		}
		var post model.Post
		if err := doc.DataTo(&post); err != nil {
			return nil, goerr.Wrap(err, "failed to decode post", goerr.V("doc_id", doc.Ref.ID))
		}
		posts = append(posts, &post)
	}
	return posts, nil
}

func (r *Firestore) UpdatePostEmbedding(ctx context.Context, id model.PostID, embedding firestore.Vector32) error {
	_, err := r.client.Collection(collectionPosts).Doc(string(id)).Update(ctx, []firestore.Update{
		{Path: "embedding", Value: embedding},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(model.ErrNotFound, "post not found", goerr.V("post_id", id))
		}
		return goerr.Wrap(err, "failed to update post embedding", goerr.V("post_id", id))
	}
	return nil
}

func (r *Firestore) SearchSimilarPosts(ctx context.Context, embedding []float32, floor float64, limit int) ([]*model.PostMatch, error) {
	// COSINE distance is 1 - similarity, so the similarity floor becomes a
	// distance ceiling
	distanceCeiling := 1.0 - floor

	query := r.client.Collection(collectionPosts).FindNearest(
		"embedding",
		firestore.Vector32(embedding),
		limit,
		firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{
			DistanceThreshold:   &distanceCeiling,
			DistanceResultField: "vector_distance",
		},
	)

	iter := query.Documents(ctx)
	defer iter.Stop()

	matches := []*model.PostMatch{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "vector search failed")
		}

		var post model.Post
		if err := doc.DataTo(&post); err != nil {
			return nil, goerr.Wrap(err, "failed to decode post", goerr.V("doc_id", doc.Ref.ID))
		}

		similarity := 0.0
		if distance, ok := doc.Data()["vector_distance"].(float64); ok {
			similarity = 1.0 - distance
		}

		matches = append(matches, &model.PostMatch{Post: &post, Similarity: similarity})
	}
	return matches, nil
}

func (r *Firestore) PutComment(ctx context.Context, comment *model.Comment) error {
	if _, err := r.client.Collection(collectionComments).Doc(string(comment.ID)).Set(ctx, comment); err != nil {
		return goerr.Wrap(err, "failed to put comment", goerr.V("comment_id", comment.ID))
	}
	return nil
}

func (r *Firestore) ListCommentsForPosts(ctx context.Context, ids []model.PostID) ([]*model.Comment, error) {
	comments := []*model.Comment{}

	for _, chunk := range chunkStrings(postIDStrings(ids), inFilterLimit) {
		iter := r.client.Collection(collectionComments).
			Where("post_id", "in", chunk).
			Documents(ctx)

		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return nil, goerr.Wrap(err, "failed to iterate comments")
			}
			var comment model.Comment
			if err := doc.DataTo(&comment); err != nil {
				iter.Stop()
				return nil, goerr.Wrap(err, "failed to decode comment", goerr.V("doc_id", doc.Ref.ID))
			}
			comments = append(comments, &comment)
		}
		iter.Stop()
	}

	// chunked queries return per-chunk order; restore the global ordering here
	sortCommentsByCreatedAt(comments)
	return comments, nil
}

func (r *Firestore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	iter := r.client.Collection(collectionUsers).
		Where("email", "==", strings.ToLower(email)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(model.ErrNotFound, "user not found", goerr.V("email", email))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("email", email))
	}

	var user model.User
	if err := doc.DataTo(&user); err != nil {
		return nil, goerr.Wrap(err, "failed to decode user", goerr.V("email", email))
	}
	return &user, nil
}

func (r *Firestore) GetUserByUUID(ctx context.Context, uuid string) (*model.User, error) {
	iter := r.client.Collection(collectionUsers).
		Where("uuid", "==", uuid).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(model.ErrNotFound, "user not found", goerr.V("uuid", uuid))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("uuid", uuid))
	}

	var user model.User
	if err := doc.DataTo(&user); err != nil {
		return nil, goerr.Wrap(err, "failed to decode user", goerr.V("uuid", uuid))
	}
	return &user, nil
}

func (r *Firestore) ListUsersByEmails(ctx context.Context, emails []string) ([]*model.User, error) {
	users := []*model.User{}

	for _, chunk := range chunkStrings(emails, inFilterLimit) {
		iter := r.client.Collection(collectionUsers).
			Where("email", "in", chunk).
			Documents(ctx)

		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return nil, goerr.Wrap(err, "failed to iterate users")
			}
			var user model.User
			if err := doc.DataTo(&user); err != nil {
				iter.Stop()
				return nil, goerr.Wrap(err, "failed to decode user", goerr.V("doc_id", doc.Ref.ID))
			}
			users = append(users, &user)
		}
		iter.Stop()
	}

	return users, nil
}

func (r *Firestore) LatestSummary(ctx context.Context) (*model.Summary, error) {
	iter := r.client.Collection(collectionSummaries).
		OrderBy("created_at", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(model.ErrNotFound, "no summaries exist")
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get latest summary")
	}

	var summary model.Summary
	if err := doc.DataTo(&summary); err != nil {
		return nil, goerr.Wrap(err, "failed to decode summary")
	}
	return &summary, nil
}

func (r *Firestore) PutSummary(ctx context.Context, summary *model.Summary) error {
	if _, err := r.client.Collection(collectionSummaries).Doc(string(summary.ID)).Set(ctx, summary); err != nil {
		return goerr.Wrap(err, "failed to put summary", goerr.V("summary_id", summary.ID))
	}
	return nil
}

func postIDStrings(ids []model.PostID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func chunkStrings(values []string, size int) [][]string {
	var chunks [][]string
	for len(values) > size {
		chunks = append(chunks, values[:size])
		values = values[size:]
	}
	if len(values) > 0 {
		chunks = append(chunks, values)
	}
	return chunks
}

func sortCommentsByCreatedAt(comments []*model.Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
}
