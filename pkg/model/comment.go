package model

import (
	"time"

	"github.com/google/uuid"
)

type CommentID string

// NewCommentID generates a new unique CommentID
func NewCommentID() CommentID {
	return CommentID(uuid.New().String())
}

// Comment belongs to exactly one post, identified by sender email.
type Comment struct {
	ID          CommentID `firestore:"id" json:"id"`
	PostID      PostID    `firestore:"post_id" json:"post_id"`
	Sender      string    `firestore:"sender" json:"sender"`
	Message     string    `firestore:"message" json:"message"`
	Attachments []string  `firestore:"attachments" json:"attachments,omitempty"`
	CreatedAt   time.Time `firestore:"created_at" json:"created_at"`
}
