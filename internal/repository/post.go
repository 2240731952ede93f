package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/observability"
	"socialhub/internal/store"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// List returns every post in storage order.
	List(ctx context.Context) ([]*models.Post, error)
	// ListByUser returns posts whose author is exactly userID.
	ListByUser(ctx context.Context, userID string) ([]*models.Post, error)
	// IncrementShares atomically adds one share and returns the new total.
	IncrementShares(ctx context.Context, id string) (int, error)
	// ToggleLike flips userID's membership in the post's like set and
	// reports whether the user likes the post afterwards.
	ToggleLike(ctx context.Context, postID, userID string, at time.Time) (bool, error)
	IsLiked(ctx context.Context, postID, userID string) (bool, error)
	CountLikes(ctx context.Context, postID string) (int, error)
	CountComments(ctx context.Context, postID string) (int, error)
}

type postRepository struct {
	store  store.Store
	logger *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(s store.Store) PostRepository {
	return &postRepository{store: s, logger: observability.NewRepoLogger(postsCollection)}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	doc := postDoc{
		UserID:      post.UserID,
		Description: post.Description,
		MediaURL:    post.MediaURL,
		MediaType:   post.MediaType,
		Shares:      post.Shares,
		CreatedAt:   post.CreatedAt,
	}
	id, err := r.store.Push(ctx, postsCollection, doc)
	if err != nil {
		r.logger.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	post.ID = id
	r.logger.LogCreate(ctx, map[string]any{"post_id": id, "user_id": post.UserID})
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var doc postDoc
	found, err := r.store.Get(ctx, postPath(id), &doc)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !found {
		return nil, models.NewNotFoundError("Post", id)
	}
	return doc.toModel(id), nil
}

func (r *postRepository) List(ctx context.Context) ([]*models.Post, error) {
	docs, err := r.store.List(ctx, postsCollection)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return decodePosts(docs)
}

func (r *postRepository) ListByUser(ctx context.Context, userID string) ([]*models.Post, error) {
	docs, err := r.store.Query(ctx, postsCollection, "user_id", userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return decodePosts(docs)
}

func decodePosts(docs []store.Document) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, len(docs))
	for _, d := range docs {
		var doc postDoc
		if err := d.Decode(&doc); err != nil {
			return nil, models.NewInternalError(fmt.Errorf("decode post %s: %w", d.Key, err))
		}
		posts = append(posts, doc.toModel(d.Key))
	}
	return posts, nil
}

func (r *postRepository) IncrementShares(ctx context.Context, id string) (int, error) {
	var shares int
	err := r.store.Transact(ctx, postPath(id), func(cur json.RawMessage) (any, error) {
		if cur == nil {
			return nil, models.NewNotFoundError("Post", id)
		}
		var doc postDoc
		if err := json.Unmarshal(cur, &doc); err != nil {
			return nil, err
		}
		doc.Shares++
		shares = doc.Shares
		return doc, nil
	})
	if err != nil {
		if models.IsNotFound(err) {
			return 0, models.NewNotFoundError("Post", id)
		}
		r.logger.LogError(ctx, err, "increment_shares")
		return 0, models.NewInternalError(err)
	}
	r.logger.LogUpdate(ctx, map[string]any{"post_id": id, "shares": shares})
	return shares, nil
}

func (r *postRepository) ToggleLike(ctx context.Context, postID, userID string, at time.Time) (bool, error) {
	var liked bool
	path := store.Join(likesCollection(postID), userID)
	err := r.store.Transact(ctx, path, func(cur json.RawMessage) (any, error) {
		if cur != nil {
			liked = false
			return nil, nil
		}
		liked = true
		return likeDoc{Timestamp: at}, nil
	})
	if err != nil {
		r.logger.LogError(ctx, err, "toggle_like")
		return false, models.NewInternalError(err)
	}
	return liked, nil
}

func (r *postRepository) IsLiked(ctx context.Context, postID, userID string) (bool, error) {
	found, err := r.store.Get(ctx, store.Join(likesCollection(postID), userID), nil)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return found, nil
}

func (r *postRepository) CountLikes(ctx context.Context, postID string) (int, error) {
	docs, err := r.store.List(ctx, likesCollection(postID))
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return len(docs), nil
}

func (r *postRepository) CountComments(ctx context.Context, postID string) (int, error) {
	docs, err := r.store.List(ctx, commentsCollection(postID))
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return len(docs), nil
}
