package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"socialhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost_Validation(t *testing.T) {
	svc := NewPostService(noopPostRepo(), nil, nil)

	tests := []struct {
		name string
		in   CreatePostInput
	}{
		{"blank description", CreatePostInput{UserID: "u1", Description: "   ", MediaURL: "uploads/postingan/a.jpg"}},
		{"missing media", CreatePostInput{UserID: "u1", Description: "hello"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePost(context.Background(), tt.in)
			assertAppError(t, err, models.CodeValidation)
		})
	}
}

func TestCreatePost_DerivesMediaKind(t *testing.T) {
	var stored *models.Post
	repo := noopPostRepo()
	repo.createFn = func(_ context.Context, p *models.Post) error {
		p.ID = "p1"
		stored = p
		return nil
	}
	svc := NewPostService(repo, nil, NewURLBuilder("http://api.test/"))
	svc.now = fixedClock()

	post, err := svc.CreatePost(context.Background(), CreatePostInput{
		UserID:      "u1",
		Description: "  clip  ",
		MediaURL:    "uploads/postingan/clip.mp4",
		MediaMIME:   "video/mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, "clip", stored.Description)
	assert.Equal(t, models.MediaVideo, stored.MediaType)
	assert.Equal(t, "uploads/postingan/clip.mp4", stored.MediaURL)
	assert.Equal(t, 0, stored.Shares)
	assert.Equal(t, testNow, stored.CreatedAt)
	assert.Equal(t, "http://api.test/uploads/postingan/clip.mp4", post.MediaURL)
}

func TestToggleLike_PostNotFound(t *testing.T) {
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id string) (*models.Post, error) {
		return nil, models.NewNotFoundError("Post", id)
	}
	repo.toggleLikeFn = func(context.Context, string, string, time.Time) (bool, error) {
		t.Fatal("toggle must not run for a missing post")
		return false, nil
	}
	svc := NewPostService(repo, nil, nil)

	_, err := svc.ToggleLike(context.Background(), "u1", "missing")
	assertAppError(t, err, models.CodeNotFound)
}

func TestToggleLike_EmitsOnlyForNewLikeByOtherUser(t *testing.T) {
	tests := []struct {
		name      string
		actor     string
		liked     bool
		wantEvent bool
	}{
		{"like by other user", "actor", true, true},
		{"unlike by other user", "actor", false, false},
		{"like own post", "owner", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := noopPostRepo()
			repo.getByIDFn = func(_ context.Context, id string) (*models.Post, error) {
				return &models.Post{ID: id, UserID: "owner"}, nil
			}
			repo.toggleLikeFn = func(context.Context, string, string, time.Time) (bool, error) { return tt.liked, nil }
			repo.countLikesFn = func(context.Context, string) (int, error) { return 3, nil }

			emitter := &recordingEmitter{}
			svc := NewPostService(repo, emitter, nil)
			svc.now = fixedClock()

			res, err := svc.ToggleLike(context.Background(), tt.actor, "p1")
			require.NoError(t, err)
			assert.Equal(t, tt.liked, res.IsLiked)
			assert.Equal(t, 3, res.LikesCount)

			events := emitter.Events()
			if !tt.wantEvent {
				assert.Empty(t, events)
				return
			}
			require.Len(t, events, 1)
			assert.Equal(t, models.EngagementEvent{
				Type:       models.NotificationLike,
				PostID:     "p1",
				ActorID:    "actor",
				OwnerID:    "owner",
				OccurredAt: testNow,
			}, events[0])
		})
	}
}

func TestToggleLike_StoreErrorSurfaces(t *testing.T) {
	repo := noopPostRepo()
	repo.toggleLikeFn = func(context.Context, string, string, time.Time) (bool, error) {
		return false, models.NewInternalError(errors.New("store down"))
	}
	emitter := &recordingEmitter{}
	svc := NewPostService(repo, emitter, nil)

	_, err := svc.ToggleLike(context.Background(), "u1", "p1")
	assertAppError(t, err, models.CodeInternal)
	assert.Empty(t, emitter.Events())
}

func TestSharePost(t *testing.T) {
	repo := noopPostRepo()
	repo.incrementSharesFn = func(_ context.Context, id string) (int, error) {
		if id == "missing" {
			return 0, models.NewNotFoundError("Post", id)
		}
		return 7, nil
	}
	svc := NewPostService(repo, nil, nil)

	n, err := svc.SharePost(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = svc.SharePost(context.Background(), "missing")
	assertAppError(t, err, models.CodeNotFound)
}
