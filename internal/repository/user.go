// Package repository provides typed collections over the document store.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"socialhub/internal/models"
	"socialhub/internal/observability"
	"socialhub/internal/store"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create assigns user.ID and stores the user. A second account with the
	// same email fails with a CONFLICT error.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByEmail performs an exact, case-sensitive match.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// UpdateProfile merges name, birth date, gender and photo into an existing user.
	UpdateProfile(ctx context.Context, user *models.User) error
}

var errEmailTaken = errors.New("email already claimed")

type userRepository struct {
	store  store.Store
	newID  func() string
	logger *observability.RepoLogger
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(s store.Store) UserRepository {
	return &userRepository{
		store:  s,
		newID:  store.NewKey,
		logger: observability.NewRepoLogger(usersCollection),
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	id := r.newID()

	claim := emailClaimPath(user.Email)
	err := r.store.Transact(ctx, claim, func(cur json.RawMessage) (any, error) {
		if cur != nil {
			return nil, errEmailTaken
		}
		return emailClaimDoc{UserID: id}, nil
	})
	if errors.Is(err, errEmailTaken) {
		return models.NewConflictError("Email already registered")
	}
	if err != nil {
		r.logger.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}

	doc := userDoc{
		Email:     user.Email,
		Password:  user.Password,
		Name:      user.Name,
		BirthDate: user.BirthDate,
		Gender:    user.Gender,
		Photo:     user.Photo,
		CreatedAt: user.CreatedAt,
	}
	if err := r.store.Set(ctx, userPath(id), doc); err != nil {
		if relErr := r.store.Delete(ctx, claim); relErr != nil {
			r.logger.LogError(ctx, relErr, "release_email_claim")
		}
		r.logger.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}

	user.ID = id
	r.logger.LogCreate(ctx, map[string]any{"user_id": id})
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var doc userDoc
	found, err := r.store.Get(ctx, userPath(id), &doc)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !found {
		return nil, models.NewNotFoundError("User", id)
	}
	return doc.toModel(id), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	docs, err := r.store.Query(ctx, usersCollection, "email", email)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(docs) == 0 {
		return nil, models.NewNotFoundError("User", email)
	}
	var doc userDoc
	if err := docs[0].Decode(&doc); err != nil {
		return nil, models.NewInternalError(fmt.Errorf("decode user %s: %w", docs[0].Key, err))
	}
	return doc.toModel(docs[0].Key), nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	err := r.store.Transact(ctx, userPath(user.ID), func(cur json.RawMessage) (any, error) {
		if cur == nil {
			return nil, models.NewNotFoundError("User", user.ID)
		}
		var doc userDoc
		if err := json.Unmarshal(cur, &doc); err != nil {
			return nil, err
		}
		doc.Name = user.Name
		doc.BirthDate = user.BirthDate
		doc.Gender = user.Gender
		doc.Photo = user.Photo
		return doc, nil
	})
	if err != nil {
		if models.IsNotFound(err) {
			return models.NewNotFoundError("User", user.ID)
		}
		r.logger.LogError(ctx, err, "update")
		return models.NewInternalError(err)
	}
	r.logger.LogUpdate(ctx, map[string]any{"user_id": user.ID})
	return nil
}
