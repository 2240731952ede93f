package service

import (
	"context"
	"slices"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/observability"
	"socialhub/internal/repository"
	"socialhub/internal/validation"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	emitter     EventEmitter
	urls        *URLBuilder
	now         func() time.Time
}

type CreateCommentInput struct {
	UserID string
	PostID string
	Text   string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	emitter EventEmitter,
	urls *URLBuilder,
) *CommentService {
	if emitter == nil {
		emitter = noopEmitter{}
	}
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		userRepo:    userRepo,
		emitter:     emitter,
		urls:        urls,
		now:         time.Now,
	}
}

// AddComment appends a comment to the post and emits a comment event when
// the commenter is not the post owner.
func (s *CommentService) AddComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	text, err := validation.ValidateText("text", in.Text)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	comment := &models.Comment{
		PostID:    in.PostID,
		UserID:    in.UserID,
		Text:      text,
		CreatedAt: now,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	observability.CommentsCreated.Inc()

	if ev, ok := newEngagementEvent(models.NotificationComment, post, in.UserID, now); ok {
		s.emitter.Emit(ctx, ev)
	}
	return comment, nil
}

// ListComments returns the post's comments newest first, each joined with
// the commenter's current name and photo.
func (s *CommentService) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	authors := newAuthorCache(s.userRepo, s.urls)
	for _, c := range comments {
		author, err := authors.get(ctx, c.UserID)
		if err != nil {
			return nil, err
		}
		c.Author = author
	}

	slices.SortStableFunc(comments, func(a, b *models.Comment) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return comments, nil
}
