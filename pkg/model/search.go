package model

// Candidate is a post scored for relevance during one search request. It is
// created per request and discarded after the response.
type Candidate struct {
	Post       *Post
	Similarity float64
	DaysOld    int
	FinalScore float64
}

// CommentWithAuthor is a comment with its resolved author profile.
type CommentWithAuthor struct {
	*Comment
	Author *User `json:"author"`
}

// EnrichedPost is a post merged with its comments and resolved author for
// client display.
type EnrichedPost struct {
	*Post
	Author   *User                `json:"author"`
	Comments []*CommentWithAuthor `json:"comments"`
}

// SearchResult is the response of the interactive search pipeline. AllSources
// is a permutation of the retrieved candidates with cited sources first.
type SearchResult struct {
	Answer         string          `json:"answer"`
	UsedSources    []*EnrichedPost `json:"used_sources"`
	AllSources     []*EnrichedPost `json:"all_sources"`
	OptimizedQuery string          `json:"optimized_query"`
}
