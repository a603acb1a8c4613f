package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tnqbao/gau-catalog-service/entity"
	"github.com/tnqbao/gau-catalog-service/infra"
	"github.com/tnqbao/gau-catalog-service/utils"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type UserInput struct {
	Name           string
	Email          string
	Password       string
	Role           string
	Bio            string
	ProfilePicture string
}

type UserUpdate struct {
	Name           *string
	Email          *string
	Password       *string
	Role           *string
	Bio            *string
	ProfilePicture *string
}

type UserService struct {
	users    UserRepository
	logger   *infra.LoggerClient
	validate *validator.Validate
}

func NewUserService(users UserRepository, logger *infra.LoggerClient) *UserService {
	return &UserService{users: users, logger: logger, validate: validator.New()}
}

func (s *UserService) List(ctx context.Context) ([]entity.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []entity.User{}
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}
	return user, nil
}

func (s *UserService) Create(ctx context.Context, input UserInput) (*entity.User, error) {
	user := &entity.User{
		ID:             uuid.New(),
		Name:           strings.TrimSpace(input.Name),
		Email:          strings.ToLower(strings.TrimSpace(input.Email)),
		Role:           strings.TrimSpace(input.Role),
		Bio:            strings.TrimSpace(input.Bio),
		ProfilePicture: strings.TrimSpace(input.ProfilePicture),
	}
	if user.Role == "" {
		user.Role = entity.RoleViewer
	}

	verr := &ValidationError{}
	requireField(verr, "name", user.Name)
	s.checkEmail(verr, user.Email)
	s.checkRole(verr, user.Role)
	checkPassword(verr, input.Password)
	s.checkPicture(verr, user.ProfilePicture)
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if err := s.ensureEmailFree(ctx, user.Email); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoWithContextf(ctx, "[User] Created user %s with role %s", user.ID, user.Role)
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, update UserUpdate) (*entity.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previousEmail := user.Email

	verr := &ValidationError{}
	applyField(verr, "name", update.Name, &user.Name)
	if update.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*update.Email))
		s.checkEmail(verr, user.Email)
	}
	if update.Role != nil {
		user.Role = strings.TrimSpace(*update.Role)
		s.checkRole(verr, user.Role)
	}
	if update.Password != nil {
		checkPassword(verr, *update.Password)
	}
	if update.Bio != nil {
		user.Bio = strings.TrimSpace(*update.Bio)
	}
	if update.ProfilePicture != nil {
		user.ProfilePicture = strings.TrimSpace(*update.ProfilePicture)
		s.checkPicture(verr, user.ProfilePicture)
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if user.Email != previousEmail {
		if err := s.ensureEmailFree(ctx, user.Email); err != nil {
			return nil, err
		}
	}

	if update.Password != nil {
		hash, err := utils.HashPassword(*update.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.InfoWithContextf(ctx, "[User] Deleted user %s", id)
	return nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string) error {
	taken, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return ErrEmailTaken
	}
	return nil
}

func (s *UserService) checkEmail(verr *ValidationError, email string) {
	if err := s.validate.Var(email, "required,email"); err != nil {
		verr.add("email", "must be a valid email address")
	}
}

func (s *UserService) checkRole(verr *ValidationError, role string) {
	if !entity.IsValidRole(role) {
		verr.add("role", "must be one of admin, editor, viewer")
	}
}

func (s *UserService) checkPicture(verr *ValidationError, picture string) {
	if picture == "" {
		return
	}
	if err := s.validate.Var(picture, "url"); err != nil {
		verr.add("profilePicture", "must be a valid URL")
	}
}

func checkPassword(verr *ValidationError, password string) {
	if len(password) < minPasswordLength {
		verr.add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
}
