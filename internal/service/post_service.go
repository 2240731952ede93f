package service

import (
	"context"
	"strings"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/observability"
	"socialhub/internal/repository"
	"socialhub/internal/validation"
)

type PostService struct {
	postRepo repository.PostRepository
	emitter  EventEmitter
	urls     *URLBuilder
	now      func() time.Time
}

type CreatePostInput struct {
	UserID      string
	Description string
	// MediaURL is the relative path of the already stored upload.
	MediaURL  string
	MediaMIME string
}

func NewPostService(postRepo repository.PostRepository, emitter EventEmitter, urls *URLBuilder) *PostService {
	if emitter == nil {
		emitter = noopEmitter{}
	}
	return &PostService{
		postRepo: postRepo,
		emitter:  emitter,
		urls:     urls,
		now:      time.Now,
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	description, err := validation.ValidateText("description", in.Description)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if strings.TrimSpace(in.MediaURL) == "" {
		return nil, models.NewValidationError("Media file is required")
	}

	post := &models.Post{
		UserID:      in.UserID,
		Description: description,
		MediaURL:    in.MediaURL,
		MediaType:   models.MediaKindFromMIME(in.MediaMIME),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	out := *post
	out.MediaURL = s.urls.Absolute(post.MediaURL)
	return &out, nil
}

// ToggleLike flips actorID's like on the post. A new like on someone else's
// post emits a like event; unlikes and self-likes emit nothing.
func (s *PostService) ToggleLike(ctx context.Context, actorID, postID string) (*models.LikeResult, error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "ToggleLike")
	defer span.End()

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	liked, err := s.postRepo.ToggleLike(ctx, postID, actorID, now)
	if err != nil {
		observability.RecordErrorInContext(ctx, err)
		return nil, err
	}
	count, err := s.postRepo.CountLikes(ctx, postID)
	if err != nil {
		return nil, err
	}

	if liked {
		observability.LikesToggled.WithLabelValues("like").Inc()
		if ev, ok := newEngagementEvent(models.NotificationLike, post, actorID, now); ok {
			s.emitter.Emit(ctx, ev)
		}
	} else {
		observability.LikesToggled.WithLabelValues("unlike").Inc()
	}

	return &models.LikeResult{IsLiked: liked, LikesCount: count}, nil
}

// LikeStatus reports whether actorID likes the post without changing it.
func (s *PostService) LikeStatus(ctx context.Context, actorID, postID string) (*models.LikeResult, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	liked, err := s.postRepo.IsLiked(ctx, postID, actorID)
	if err != nil {
		return nil, err
	}
	count, err := s.postRepo.CountLikes(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &models.LikeResult{IsLiked: liked, LikesCount: count}, nil
}

// SharePost increments the share counter and returns the new total.
func (s *PostService) SharePost(ctx context.Context, postID string) (int, error) {
	return s.postRepo.IncrementShares(ctx, postID)
}
