package service

import (
	"fmt"
	"log"
	"strings"

	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/repository"
	apperrors "github.com/azamalidev/Kick-Expert-sub000/internal/pkg/errors"
	"github.com/azamalidev/Kick-Expert-sub000/pkg/auth"
)

// AuthService отвечает за регистрацию и аутентификацию пользователей
type AuthService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
}

// NewAuthService создает новый сервис аутентификации
func NewAuthService(userRepo repository.UserRepository, jwtService *auth.JWTService) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
	}
}

// Register создает нового пользователя
func (s *AuthService) Register(username, email, password string) (*entity.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: имя пользователя и email обязательны", apperrors.ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: пароль должен быть не короче 8 символов", apperrors.ErrValidation)
	}

	user := &entity.User{
		Username: username,
		Email:    email,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	log.Printf("[AuthService] Зарегистрирован пользователь %d (%s)", user.ID, user.Username)
	return user, nil
}

// Login проверяет учётные данные и выдаёт токен
func (s *AuthService) Login(email, password string) (string, *entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return "", nil, apperrors.ErrUnauthorized
	}
	if !user.CheckPassword(password) {
		return "", nil, apperrors.ErrUnauthorized
	}

	token, err := s.jwtService.GenerateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}
