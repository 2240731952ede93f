package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"socialhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngagement_LikeNotifiesOwnerOnceAndUnlikeRestores(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "bob@example.com", "Bob")
	actor := env.register(t, "alice@example.com", "Alice")
	post := env.createPost(t, owner.ID, "sunset", testNow)

	res, err := env.postSvc.ToggleLike(ctx, actor.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, res.IsLiked)
	assert.Equal(t, 1, res.LikesCount)

	inbox, err := env.notifSvc.List(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.NotificationLike, inbox[0].Type)
	assert.Equal(t, post.ID, inbox[0].PostID)
	assert.Equal(t, actor.ID, inbox[0].FromUserID)
	assert.Equal(t, "Alice", inbox[0].FromUserName)
	assert.False(t, inbox[0].IsRead)

	res, err = env.postSvc.ToggleLike(ctx, actor.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, res.IsLiked)
	assert.Equal(t, 0, res.LikesCount)

	inbox, err = env.notifSvc.List(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)
	assert.Len(t, env.publisher.sent[owner.ID], 1)
}

func TestEngagement_SelfEngagementIsSilent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "bob@example.com", "Bob")
	post := env.createPost(t, owner.ID, "selfie", testNow)

	_, err := env.postSvc.ToggleLike(ctx, owner.ID, post.ID)
	require.NoError(t, err)
	_, err = env.commentSvc.AddComment(ctx, CreateCommentInput{UserID: owner.ID, PostID: post.ID, Text: "me"})
	require.NoError(t, err)

	n, err := env.notifSvc.UnreadCount(ctx, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEngagement_NotificationSnapshotSurvivesProfileEdit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "bob@example.com", "Bob")
	actor := env.register(t, "alice@example.com", "Alice")
	post := env.createPost(t, owner.ID, "sunset", testNow)

	_, err := env.commentSvc.AddComment(ctx, CreateCommentInput{UserID: actor.ID, PostID: post.ID, Text: "wow"})
	require.NoError(t, err)

	_, err = env.userSvc.UpdateProfile(ctx, UpdateProfileInput{
		UserID: actor.ID, Name: "Alicia", BirthDate: "1990-01-01", Gender: "female",
	})
	require.NoError(t, err)

	inbox, err := env.notifSvc.List(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "Alice", inbox[0].FromUserName)
	assert.Equal(t, models.NotificationComment, inbox[0].Type)

	comments, err := env.commentSvc.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Alicia", comments[0].Author.Name)
}

func TestEngagement_MarkAsReadIsMonotonic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "bob@example.com", "Bob")
	actor := env.register(t, "alice@example.com", "Alice")
	post := env.createPost(t, owner.ID, "sunset", testNow)

	_, err := env.postSvc.ToggleLike(ctx, actor.ID, post.ID)
	require.NoError(t, err)
	inbox, err := env.notifSvc.List(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)

	env.notifSvc.now = fixedClock()
	first, err := env.notifSvc.MarkAsRead(ctx, owner.ID, inbox[0].ID)
	require.NoError(t, err)
	assert.True(t, first.IsRead)

	env.notifSvc.now = func() time.Time { return testNow.Add(time.Hour) }
	second, err := env.notifSvc.MarkAsRead(ctx, owner.ID, inbox[0].ID)
	require.NoError(t, err)
	assert.True(t, second.IsRead)
	assert.Equal(t, *first.ReadAt, *second.ReadAt)

	n, err := env.notifSvc.UnreadCount(ctx, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEngagement_FeedCountsMatchLikeSet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "bob@example.com", "Bob")
	post := env.createPost(t, owner.ID, "crowd", testNow)

	const likers = 8
	var wg sync.WaitGroup
	for i := 0; i < likers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.postSvc.ToggleLike(ctx, "liker-"+string(rune('a'+i)), post.ID)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	likes, err := env.store.List(ctx, "posts/"+post.ID+"/likes")
	require.NoError(t, err)

	feed, err := env.feedSvc.GlobalFeed(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, likers, feed[0].LikesCount)
	assert.Equal(t, len(likes), feed[0].LikesCount)
	assert.False(t, feed[0].Liked)
}

func TestEngagement_UserFeedFiltersAndSortsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", "Alice")
	bob := env.register(t, "bob@example.com", "Bob")

	env.createPost(t, alice.ID, "first", testNow)
	env.createPost(t, bob.ID, "other", testNow.Add(time.Minute))
	env.createPost(t, alice.ID, "third", testNow.Add(2*time.Minute))

	feed, err := env.feedSvc.UserFeed(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, "third", feed[0].Description)
	assert.Equal(t, "first", feed[1].Description)
	for _, p := range feed {
		assert.Equal(t, alice.ID, p.UserID)
		assert.Equal(t, "http://api.test/uploads/postingan/"+p.Description+".jpg", p.MediaURL)
	}
}

func TestEngagement_DuplicateRegistrationLeavesStoreUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "bob@example.com", "Bob")

	before, err := env.store.List(ctx, "users")
	require.NoError(t, err)

	_, err = env.userSvc.Register(ctx, RegisterInput{
		Email: "bob@example.com", Password: "x", Name: "Imposter", BirthDate: "2000-01-01", Gender: "male", Photo: "p.png",
	})
	assertAppError(t, err, models.CodeConflict)

	after, err := env.store.List(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEngagement_ConcurrentSharesAreCounted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "bob@example.com", "Bob")
	post := env.createPost(t, owner.ID, "viral", testNow)

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.postSvc.SharePost(ctx, post.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := env.postSvc.SharePost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 13, n)
}
