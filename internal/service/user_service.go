package service

import (
	"context"
	"strings"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/repository"
	"socialhub/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// UserService covers registration, login and profile management.
type UserService struct {
	userRepo   repository.UserRepository
	urls       *URLBuilder
	bcryptCost int
	now        func() time.Time
}

type RegisterInput struct {
	Email     string
	Password  string
	Name      string
	BirthDate string
	Gender    string
	Photo     string
}

type UpdateProfileInput struct {
	UserID    string
	Name      string
	BirthDate string
	Gender    string
	// Photo replaces the current photo when non-empty.
	Photo string
}

func NewUserService(userRepo repository.UserRepository, urls *URLBuilder) *UserService {
	return &UserService{
		userRepo:   userRepo,
		urls:       urls,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// Register creates an account. The email must be unused; the check runs
// before any write.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validation.RequireFields(
		validation.Field{Name: "email", Value: in.Email},
		validation.Field{Name: "password", Value: in.Password},
		validation.Field{Name: "name", Value: in.Name},
		validation.Field{Name: "birth_date", Value: in.BirthDate},
		validation.Field{Name: "gender", Value: in.Gender},
	); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.Photo == "" {
		return nil, models.NewValidationError("Profile photo is required")
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil && !models.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Email:     in.Email,
		Password:  string(hash),
		Name:      strings.TrimSpace(in.Name),
		BirthDate: strings.TrimSpace(in.BirthDate),
		Gender:    strings.TrimSpace(in.Gender),
		Photo:     in.Photo,
		CreatedAt: s.now().UTC(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.present(user), nil
}

// Login verifies credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewUnauthorizedError("Invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	return s.present(user), nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.present(user), nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	if err := validation.RequireFields(
		validation.Field{Name: "name", Value: in.Name},
		validation.Field{Name: "birth_date", Value: in.BirthDate},
		validation.Field{Name: "gender", Value: in.Gender},
	); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	user.Name = strings.TrimSpace(in.Name)
	user.BirthDate = strings.TrimSpace(in.BirthDate)
	user.Gender = strings.TrimSpace(in.Gender)
	if in.Photo != "" {
		user.Photo = in.Photo
	}
	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return s.present(user), nil
}

// present returns a copy safe to serialize: photo absolute, no hash.
func (s *UserService) present(u *models.User) *models.User {
	out := *u
	out.Password = ""
	out.Photo = s.urls.Absolute(u.Photo)
	return &out
}
