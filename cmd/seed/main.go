// Command seed fills the configured store with demo users, posts, likes and
// comments. Data goes through the services, so notifications are fanned out
// exactly as they would be for real traffic.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"time"

	"socialhub/internal/config"
	"socialhub/internal/observability"
	"socialhub/internal/seed"
	"socialhub/internal/server"
)

func main() {
	configDir := flag.String("config", "", "Directory containing config.yml (defaults to . and ..)")
	numUsers := flag.Int("users", 10, "Number of users to create")
	numPosts := flag.Int("posts", 30, "Number of posts to create")
	numLikes := flag.Int("likes", 100, "Number of likes to create")
	numComments := flag.Int("comments", 50, "Number of comments to create")
	password := flag.String("password", seed.DefaultPassword, "Password for every seeded account")
	randSeed := flag.Int64("seed", 0, "Random seed (0 = time based)")
	flag.Parse()

	var paths []string
	if *configDir != "" {
		paths = append(paths, *configDir)
	}
	cfg, err := config.LoadConfig(paths...)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.InitLogger(cfg.Env, cfg.LogLevel)

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	srv.StartBackground()

	seeder := seed.NewSeeder(srv.UserService(), srv.PostService(), srv.CommentService(), srv.MediaService())
	res, runErr := seeder.Run(context.Background(), seed.Options{
		NumUsers:    *numUsers,
		NumPosts:    *numPosts,
		NumLikes:    *numLikes,
		NumComments: *numComments,
		Password:    *password,
		Seed:        *randSeed,
	})

	// Drain queued notification events before closing the store.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", slog.String("error", err.Error()))
	}

	if runErr != nil {
		log.Fatalf("Seeding failed: %v", runErr)
	}
	for _, u := range res.Users {
		slog.Info("seeded account", slog.String("email", u.Email), slog.String("id", u.ID))
	}
}
