package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	NumLikes    int
	NumComments int
	Password    string
	// Seed makes a run reproducible; zero picks a time-based seed.
	Seed int64
}

// Result summarizes what a run created.
type Result struct {
	Users    []*models.User
	Posts    []*models.Post
	Likes    int
	Comments int
}

// Seeder creates data through the services, so uploads are stored, counters
// stay consistent and engagement events reach whatever emitter the services
// were built with.
type Seeder struct {
	users    *service.UserService
	posts    *service.PostService
	comments *service.CommentService
	media    *service.MediaService
}

func NewSeeder(users *service.UserService, posts *service.PostService, comments *service.CommentService, media *service.MediaService) *Seeder {
	return &Seeder{users: users, posts: posts, comments: comments, media: media}
}

// Run creates users, then posts by random users, then likes and comments by
// random users on random posts. Likes are distinct (user, post) pairs so a
// second toggle never undoes the first.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	f := NewFactory(opts.Seed)
	pick := gofakeit.New(opts.Seed + 1)

	slog.Info("seeding",
		slog.Int("users", opts.NumUsers), slog.Int("posts", opts.NumPosts),
		slog.Int("likes", opts.NumLikes), slog.Int("comments", opts.NumComments))

	res := &Result{}

	for i := range opts.NumUsers {
		user, err := s.createUser(ctx, f, i, opts.Password)
		if err != nil {
			return res, fmt.Errorf("create user %d: %w", i, err)
		}
		res.Users = append(res.Users, user)
	}
	if len(res.Users) == 0 {
		return res, nil
	}

	for i := range opts.NumPosts {
		author := res.Users[pick.Number(0, len(res.Users)-1)]
		post, err := s.createPost(ctx, f, author.ID)
		if err != nil {
			return res, fmt.Errorf("create post %d: %w", i, err)
		}
		res.Posts = append(res.Posts, post)
	}
	if len(res.Posts) == 0 {
		return res, nil
	}

	maxLikes := min(opts.NumLikes, len(res.Users)*len(res.Posts))
	liked := make(map[[2]string]bool, maxLikes)
	for res.Likes < maxLikes {
		user := res.Users[pick.Number(0, len(res.Users)-1)]
		post := res.Posts[pick.Number(0, len(res.Posts)-1)]
		key := [2]string{user.ID, post.ID}
		if liked[key] {
			continue
		}
		liked[key] = true
		if _, err := s.posts.ToggleLike(ctx, user.ID, post.ID); err != nil {
			return res, fmt.Errorf("like post %s: %w", post.ID, err)
		}
		res.Likes++
	}

	for range opts.NumComments {
		user := res.Users[pick.Number(0, len(res.Users)-1)]
		post := res.Posts[pick.Number(0, len(res.Posts)-1)]
		if _, err := s.comments.AddComment(ctx, service.CreateCommentInput{
			UserID: user.ID,
			PostID: post.ID,
			Text:   f.CommentText(),
		}); err != nil {
			return res, fmt.Errorf("comment on post %s: %w", post.ID, err)
		}
		res.Comments++
	}

	slog.Info("seeding completed",
		slog.Int("users", len(res.Users)), slog.Int("posts", len(res.Posts)),
		slog.Int("likes", res.Likes), slog.Int("comments", res.Comments))
	return res, nil
}

func (s *Seeder) createUser(ctx context.Context, f *Factory, n int, password string) (*models.User, error) {
	photo, err := s.media.SaveProfilePhoto(ctx, f.Avatar())
	if err != nil {
		return nil, err
	}
	in := f.Registration(n, password)
	in.Photo = photo

	user, err := s.users.Register(ctx, in)
	if err != nil {
		s.media.Discard(photo)
		return nil, err
	}
	return user, nil
}

func (s *Seeder) createPost(ctx context.Context, f *Factory, authorID string) (*models.Post, error) {
	upload := f.PostMedia()
	mediaURL, _, err := s.media.SavePostMedia(ctx, upload)
	if err != nil {
		return nil, err
	}
	post, err := s.posts.CreatePost(ctx, service.CreatePostInput{
		UserID:      authorID,
		Description: f.Description(),
		MediaURL:    mediaURL,
		MediaMIME:   upload.ContentType,
	})
	if err != nil {
		s.media.Discard(mediaURL)
		return nil, err
	}
	return post, nil
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
