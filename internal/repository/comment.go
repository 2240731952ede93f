package repository

import (
	"context"
	"fmt"

	"socialhub/internal/models"
	"socialhub/internal/observability"
	"socialhub/internal/store"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	// Create assigns comment.ID and appends it under comment.PostID.
	Create(ctx context.Context, comment *models.Comment) error
	ListByPost(ctx context.Context, postID string) ([]*models.Comment, error)
}

type commentRepository struct {
	store  store.Store
	logger *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(s store.Store) CommentRepository {
	return &commentRepository{store: s, logger: observability.NewRepoLogger("comments")}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	id, err := r.store.Push(ctx, commentsCollection(comment.PostID), commentDoc{
		UserID:    comment.UserID,
		Text:      comment.Text,
		CreatedAt: comment.CreatedAt,
	})
	if err != nil {
		r.logger.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	comment.ID = id
	r.logger.LogCreate(ctx, map[string]any{"comment_id": id, "post_id": comment.PostID})
	return nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	docs, err := r.store.List(ctx, commentsCollection(postID))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	comments := make([]*models.Comment, 0, len(docs))
	for _, d := range docs {
		var doc commentDoc
		if err := d.Decode(&doc); err != nil {
			return nil, models.NewInternalError(fmt.Errorf("decode comment %s: %w", d.Key, err))
		}
		comments = append(comments, &models.Comment{
			ID:        d.Key,
			PostID:    postID,
			UserID:    doc.UserID,
			Text:      doc.Text,
			CreatedAt: doc.CreatedAt,
		})
	}
	return comments, nil
}
