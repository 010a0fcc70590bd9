package model

// User is the profile projection attached to posts and comments at display
// time. It is keyed by email and is not authoritative for identity.
type User struct {
	UUID     string  `firestore:"uuid" json:"uuid,omitempty"`
	Email    string  `firestore:"email" json:"email"`
	Name     string  `firestore:"name" json:"name"`
	Image    *string `firestore:"image" json:"image"`
	Role     string  `firestore:"role" json:"role"`
	Headline string  `firestore:"headline" json:"headline,omitempty"`
	Status   string  `firestore:"status" json:"-"`
}

// PlaceholderAuthor stands in for a sender with no profile record. Display
// degrades to the bare email instead of failing the request.
func PlaceholderAuthor(email string) *User {
	name := email
	if name == "" {
		name = "Unknown"
	}
	return &User{
		Email: email,
		Name:  name,
		Image: nil,
		Role:  "unknown",
	}
}

// Identity is the authenticated caller resolved from a bearer token by the
// external identity service.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
