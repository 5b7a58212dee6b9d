package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"taskManager/internal/logger"
	"taskManager/internal/models/user"
	"taskManager/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordBytes  = 72
)

type UserService struct {
	repo UserRepository
	cost int
	settings
}

func NewUserService(repo UserRepository, opts ...Option) *UserService {
	return &UserService{
		repo:     repo,
		cost:     bcrypt.DefaultCost,
		settings: applyOptions(opts),
	}
}

// WithHashCost понижает стоимость bcrypt, например в тестах.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type UpdateProfileInput struct {
	Name            *string
	Password        *string
	CurrentPassword string
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (*user.User, error) {
	errs := map[string]string{}
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	validateUserName(input.Name, errs)
	validateEmail(input.Email, errs)
	validatePassword(input.Password, errs)
	if len(errs) > 0 {
		return nil, NewValidationErrors(errs)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("хеширование пароля: %w", err)
	}

	u := &user.User{
		UUID:         uuid.New(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         user.RoleUser,
		Active:       true,
		CreatedAt:    s.now(),
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, NewValidationError("email", "пользователь с таким email уже зарегистрирован")
		}
		return nil, fmt.Errorf("регистрация пользователя: %w", err)
	}

	logger.Info("Service: Пользователь зарегистрирован", zap.String("user_id", u.UUID.String()))
	return u, nil
}

// GetActiveUser используется при определении текущего пользователя запроса.
func (s *UserService) GetActiveUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, ResourceUser, id.String())
	}
	if !u.Active {
		return nil, NewBusinessError(CodeUserInactive, "пользователь деактивирован", ToDetail("id", id.String()))
	}
	return u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, actor *user.User, input UpdateProfileInput) (*user.User, error) {
	errs := map[string]string{}
	if input.Name != nil {
		validateUserName(strings.TrimSpace(*input.Name), errs)
	}
	if input.Password != nil {
		validatePassword(*input.Password, errs)
		if bcrypt.CompareHashAndPassword([]byte(actor.PasswordHash), []byte(input.CurrentPassword)) != nil {
			errs["current_password"] = "текущий пароль указан неверно"
		}
	}
	if len(errs) > 0 {
		return nil, NewValidationErrors(errs)
	}

	updated := *actor
	if input.Name != nil {
		updated.Name = strings.TrimSpace(*input.Name)
	}
	if input.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), s.cost)
		if err != nil {
			return nil, fmt.Errorf("хеширование пароля: %w", err)
		}
		updated.PasswordHash = string(hash)
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, translate(err, ResourceUser, actor.UUID.String())
	}
	return &updated, nil
}

func validateUserName(name string, errs map[string]string) {
	switch {
	case name == "":
		errs["name"] = "имя не может быть пустым"
	case utf8.RuneCountInString(name) > maxNameLength:
		errs["name"] = fmt.Sprintf("имя длиннее %d символов", maxNameLength)
	}
}

// validateEmail принимает только голый адрес: "Bob <bob@x.io>" разбирается mail.ParseAddress, но не подходит.
func validateEmail(email string, errs map[string]string) {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		errs["email"] = "некорректный email"
	}
}

// bcrypt не принимает пароли длиннее 72 байт.
func validatePassword(password string, errs map[string]string) {
	switch {
	case utf8.RuneCountInString(password) < minPasswordLength:
		errs["password"] = fmt.Sprintf("пароль должен быть не короче %d символов", minPasswordLength)
	case len(password) > maxPasswordBytes:
		errs["password"] = fmt.Sprintf("пароль не должен превышать %d байт", maxPasswordBytes)
	}
}
