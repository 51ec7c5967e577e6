package services

import (
	"errors"
	"fmt"
	"time"

	"flowroute/pkg/cache"
	"flowroute/pkg/models"
	"flowroute/pkg/repository"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
)

const minPasswordLen = 6

type UserService interface {
	Register(name, email, password string) (models.User, error)
	Authenticate(email, password string) (models.User, error)
	GetByID(id int) (models.User, error)
	GetByEmail(email string) (models.User, error)
	UpdateProfile(id int, name, email string) (models.User, error)
	ChangePassword(id int, currentPassword, newPassword string) error
	ResetPassword(email, newPassword string) error
	UpdateAvatar(id int, avatar string) (models.User, error)
}

type userService struct {
	repo  repository.UserRepository
	redis *cache.Redis
}

func NewUserService(repo repository.UserRepository, redis *cache.Redis) UserService {
	return &userService{repo: repo, redis: redis}
}

func userKey(id int) string { return fmt.Sprintf("user:%d", id) }

func (s *userService) Register(name, email, password string) (models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	user, err := s.repo.Create(name, email, string(hashed))
	if err != nil {
		return models.User{}, err
	}
	s.cacheUser(user)
	return user, nil
}

// Authenticate returns ErrInvalidCredentials for both unknown emails
// and wrong passwords so the two cases are indistinguishable.
func (s *userService) Authenticate(email, password string) (models.User, error) {
	user, hash, err := s.repo.GetCredentials(email)
	if err == repository.ErrUserNotFound {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return models.User{}, ErrInvalidCredentials
	}
	s.cacheUser(user)
	return user, nil
}

func (s *userService) GetByID(id int) (models.User, error) {
	if s.redis != nil {
		var cached models.User
		if s.redis.Get(userKey(id), &cached) {
			return cached, nil
		}
	}
	user, err := s.repo.GetByID(id)
	if err != nil {
		return models.User{}, err
	}
	s.cacheUser(user)
	return user, nil
}

func (s *userService) GetByEmail(email string) (models.User, error) {
	return s.repo.GetByEmail(email)
}

func (s *userService) UpdateProfile(id int, name, email string) (models.User, error) {
	user, err := s.repo.UpdateProfile(id, name, email)
	if err != nil {
		return models.User{}, err
	}
	s.cacheUser(user)
	return user, nil
}

func (s *userService) ChangePassword(id int, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return ErrPasswordTooShort
	}

	hash, err := s.repo.GetPassword(id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(currentPassword)) != nil {
		return ErrInvalidCredentials
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(id, string(newHash))
}

func (s *userService) ResetPassword(email, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return ErrPasswordTooShort
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePasswordByEmail(email, string(hashed))
}

func (s *userService) UpdateAvatar(id int, avatar string) (models.User, error) {
	if err := s.repo.UpdateAvatar(id, avatar); err != nil {
		return models.User{}, err
	}
	if s.redis != nil {
		s.redis.Del(userKey(id))
	}
	return s.repo.GetByID(id)
}

func (s *userService) cacheUser(user models.User) {
	if s.redis == nil {
		return
	}
	s.redis.Set(userKey(user.ID), user, 15*time.Minute)
}
