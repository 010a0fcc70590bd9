package enrich

import (
	"context"
	"strings"

	"github.com/iin-community/kehila/pkg/model"
	"github.com/iin-community/kehila/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
)

// Service attaches comments and author profiles to posts. It issues exactly
// one batch read for comments and one for author profiles per call,
// regardless of how many posts are passed in.
type Service struct {
	repo repository.Repository
}

func New(repo repository.Repository) *Service {
	return &Service{repo: repo}
}

// Posts enriches the given posts in order. A sender without a profile record
// degrades to a placeholder author; it never fails the call.
func (s *Service) Posts(ctx context.Context, posts []*model.Post) ([]*model.EnrichedPost, error) {
	if len(posts) == 0 {
		return []*model.EnrichedPost{}, nil
	}

	ids := make([]model.PostID, 0, len(posts))
	emailSet := map[string]struct{}{}
	for _, p := range posts {
		ids = append(ids, p.ID)
		if p.Sender != "" {
			emailSet[strings.ToLower(p.Sender)] = struct{}{}
		}
	}

	comments, err := s.repo.ListCommentsForPosts(ctx, ids)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch comments for posts")
	}
	for _, c := range comments {
		if c.Sender != "" {
			emailSet[strings.ToLower(c.Sender)] = struct{}{}
		}
	}

	emails := make([]string, 0, len(emailSet))
	for email := range emailSet {
		emails = append(emails, email)
	}

	users, err := s.repo.ListUsersByEmails(ctx, emails)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch author profiles")
	}

	byEmail := make(map[string]*model.User, len(users))
	for _, u := range users {
		if u.Email != "" {
			byEmail[strings.ToLower(u.Email)] = u
		}
	}
	author := func(email string) *model.User {
		if u, ok := byEmail[strings.ToLower(email)]; ok {
			return u
		}
		return model.PlaceholderAuthor(email)
	}

	commentsByPost := map[model.PostID][]*model.CommentWithAuthor{}
	for _, c := range comments {
		commentsByPost[c.PostID] = append(commentsByPost[c.PostID], &model.CommentWithAuthor{
			Comment: c,
			Author:  author(c.Sender),
		})
	}

	enriched := make([]*model.EnrichedPost, 0, len(posts))
	for _, p := range posts {
		attached := commentsByPost[p.ID]
		if attached == nil {
			attached = []*model.CommentWithAuthor{}
		}
		enriched = append(enriched, &model.EnrichedPost{
			Post:     p,
			Author:   author(p.Sender),
			Comments: attached,
		})
	}
	return enriched, nil
}
