package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/repository"
	"socialhub/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() func() time.Time { return func() time.Time { return testNow } }

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn          func(context.Context, *models.Post) error
	getByIDFn         func(context.Context, string) (*models.Post, error)
	listFn            func(context.Context) ([]*models.Post, error)
	listByUserFn      func(context.Context, string) ([]*models.Post, error)
	incrementSharesFn func(context.Context, string) (int, error)
	toggleLikeFn      func(context.Context, string, string, time.Time) (bool, error)
	isLikedFn         func(context.Context, string, string) (bool, error)
	countLikesFn      func(context.Context, string) (int, error)
	countCommentsFn   func(context.Context, string) (int, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context) ([]*models.Post, error) { return s.listFn(ctx) }
func (s *postRepoStub) ListByUser(ctx context.Context, userID string) ([]*models.Post, error) {
	return s.listByUserFn(ctx, userID)
}
func (s *postRepoStub) IncrementShares(ctx context.Context, id string) (int, error) {
	return s.incrementSharesFn(ctx, id)
}
func (s *postRepoStub) ToggleLike(ctx context.Context, postID, userID string, at time.Time) (bool, error) {
	return s.toggleLikeFn(ctx, postID, userID, at)
}
func (s *postRepoStub) IsLiked(ctx context.Context, postID, userID string) (bool, error) {
	return s.isLikedFn(ctx, postID, userID)
}
func (s *postRepoStub) CountLikes(ctx context.Context, postID string) (int, error) {
	return s.countLikesFn(ctx, postID)
}
func (s *postRepoStub) CountComments(ctx context.Context, postID string) (int, error) {
	return s.countCommentsFn(ctx, postID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:          func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn:         func(_ context.Context, id string) (*models.Post, error) { return &models.Post{ID: id}, nil },
		listFn:            func(_ context.Context) ([]*models.Post, error) { return nil, nil },
		listByUserFn:      func(_ context.Context, _ string) ([]*models.Post, error) { return nil, nil },
		incrementSharesFn: func(_ context.Context, _ string) (int, error) { return 0, nil },
		toggleLikeFn:      func(_ context.Context, _, _ string, _ time.Time) (bool, error) { return true, nil },
		isLikedFn:         func(_ context.Context, _, _ string) (bool, error) { return false, nil },
		countLikesFn:      func(_ context.Context, _ string) (int, error) { return 0, nil },
		countCommentsFn:   func(_ context.Context, _ string) (int, error) { return 0, nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	createFn        func(context.Context, *models.User) error
	getByIDFn       func(context.Context, string) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	updateProfileFn func(context.Context, *models.User) error
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) UpdateProfile(ctx context.Context, user *models.User) error {
	return s.updateProfileFn(ctx, user)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		createFn: func(_ context.Context, _ *models.User) error { return nil },
		getByIDFn: func(_ context.Context, id string) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id)
		},
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			return nil, models.NewNotFoundError("User", email)
		},
		updateProfileFn: func(_ context.Context, _ *models.User) error { return nil },
	}
}

// recordingEmitter collects emitted events.
type recordingEmitter struct {
	mu     sync.Mutex
	events []models.EngagementEvent
}

func (r *recordingEmitter) Emit(_ context.Context, ev models.EngagementEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingEmitter) Events() []models.EngagementEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.EngagementEvent(nil), r.events...)
}

// recordingPublisher collects realtime payloads per user.
type recordingPublisher struct {
	mu   sync.Mutex
	sent map[string][]string
	err  error
}

func (r *recordingPublisher) PublishUser(_ context.Context, userID, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent == nil {
		r.sent = make(map[string][]string)
	}
	r.sent[userID] = append(r.sent[userID], payload)
	return r.err
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, models.ErrorCode(err))
}

// testEnv wires every service over one in-memory store. Engagement events
// are delivered synchronously to the notification service.
type testEnv struct {
	store         store.Store
	users         repository.UserRepository
	posts         repository.PostRepository
	comments      repository.CommentRepository
	notifications repository.NotificationRepository

	userSvc    *UserService
	postSvc    *PostService
	commentSvc *CommentService
	feedSvc    *FeedService
	notifSvc   *NotificationService
	publisher  *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := store.NewMemory()
	env := &testEnv{
		store:         s,
		users:         repository.NewUserRepository(s),
		posts:         repository.NewPostRepository(s),
		comments:      repository.NewCommentRepository(s),
		notifications: repository.NewNotificationRepository(s),
		publisher:     &recordingPublisher{},
	}
	urls := NewURLBuilder("http://api.test")

	env.notifSvc = NewNotificationService(env.notifications, env.users, env.posts, env.publisher, urls)
	emitter := EmitterFunc(func(ctx context.Context, ev models.EngagementEvent) {
		assert.NoError(t, env.notifSvc.HandleEngagement(ctx, ev))
	})

	env.userSvc = NewUserService(env.users, urls)
	env.userSvc.bcryptCost = 4
	env.postSvc = NewPostService(env.posts, emitter, urls)
	env.commentSvc = NewCommentService(env.comments, env.posts, env.users, emitter, urls)
	env.feedSvc = NewFeedService(env.posts, env.users, urls)
	return env
}

func (e *testEnv) register(t *testing.T, email, name string) *models.User {
	t.Helper()
	u, err := e.userSvc.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  "secret123",
		Name:      name,
		BirthDate: "1990-01-01",
		Gender:    "female",
		Photo:     "uploads/profil/" + name + ".png",
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) createPost(t *testing.T, ownerID, description string, at time.Time) *models.Post {
	t.Helper()
	e.postSvc.now = func() time.Time { return at }
	p, err := e.postSvc.CreatePost(context.Background(), CreatePostInput{
		UserID:      ownerID,
		Description: description,
		MediaURL:    "uploads/postingan/" + description + ".jpg",
		MediaMIME:   "image/jpeg",
	})
	require.NoError(t, err)
	return p
}
