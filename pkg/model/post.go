package model

import (
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrNotFound        = goerr.New("not found")
	ErrMessageRequired = goerr.New("message is required")
)

type PostID string

// NewPostID generates a new unique PostID
func NewPostID() PostID {
	return PostID(uuid.New().String())
}

// Post is a single community post. The embedding vector lives on the post
// document itself, so recomputation is an upsert keyed by the post id and at
// most one vector exists per post.
type Post struct {
	ID          PostID             `firestore:"id" json:"id"`
	Sender      string             `firestore:"sender" json:"sender"`
	Subject     string             `firestore:"subject" json:"subject"`
	Message     string             `firestore:"message" json:"message"`
	Attachments []string           `firestore:"attachments" json:"attachments,omitempty"`
	SentAt      time.Time          `firestore:"sent_at" json:"sent_at"`
	Embedding   firestore.Vector32 `firestore:"embedding,omitempty" json:"-"`
}

// PostMatch is a vector-search hit: a post with its similarity to the query
// vector, in the 0.0-1.0 range.
type PostMatch struct {
	Post       *Post
	Similarity float64
}
