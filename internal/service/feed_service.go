package service

import (
	"context"
	"slices"

	"socialhub/internal/models"
	"socialhub/internal/repository"
)

// FeedService assembles post listings with authors and engagement counts
// computed at read time.
type FeedService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	urls     *URLBuilder
}

func NewFeedService(postRepo repository.PostRepository, userRepo repository.UserRepository, urls *URLBuilder) *FeedService {
	return &FeedService{postRepo: postRepo, userRepo: userRepo, urls: urls}
}

// GlobalFeed returns every post, newest first. viewerID drives the liked flag
// and may be empty.
func (s *FeedService) GlobalFeed(ctx context.Context, viewerID string) ([]*models.Post, error) {
	posts, err := s.postRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, posts, viewerID)
}

// UserFeed returns the posts authored by ownerID, newest first.
func (s *FeedService) UserFeed(ctx context.Context, ownerID, viewerID string) ([]*models.Post, error) {
	posts, err := s.postRepo.ListByUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, posts, viewerID)
}

func (s *FeedService) assemble(ctx context.Context, posts []*models.Post, viewerID string) ([]*models.Post, error) {
	authors := newAuthorCache(s.userRepo, s.urls)
	for _, p := range posts {
		author, err := authors.get(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		p.Author = author

		if p.LikesCount, err = s.postRepo.CountLikes(ctx, p.ID); err != nil {
			return nil, err
		}
		if p.CommentsCount, err = s.postRepo.CountComments(ctx, p.ID); err != nil {
			return nil, err
		}
		if viewerID != "" {
			if p.Liked, err = s.postRepo.IsLiked(ctx, p.ID, viewerID); err != nil {
				return nil, err
			}
		}
		p.MediaURL = s.urls.Absolute(p.MediaURL)
	}

	slices.SortStableFunc(posts, func(a, b *models.Post) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return posts, nil
}

// authorCache memoizes user lookups for the duration of one listing.
// Missing users resolve to an author carrying only the id.
type authorCache struct {
	users repository.UserRepository
	urls  *URLBuilder
	seen  map[string]*models.AuthorSummary
}

func newAuthorCache(users repository.UserRepository, urls *URLBuilder) *authorCache {
	return &authorCache{users: users, urls: urls, seen: make(map[string]*models.AuthorSummary)}
}

func (c *authorCache) get(ctx context.Context, userID string) (*models.AuthorSummary, error) {
	if a, ok := c.seen[userID]; ok {
		return a, nil
	}
	user, err := c.users.GetByID(ctx, userID)
	var a *models.AuthorSummary
	switch {
	case err == nil:
		a = c.urls.author(user.Summary())
	case models.IsNotFound(err):
		a = &models.AuthorSummary{ID: userID}
	default:
		return nil, err
	}
	c.seen[userID] = a
	return a, nil
}
