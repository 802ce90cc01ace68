package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"wholesale/internal/domain"
	"wholesale/internal/repository"
)

// ProfileService редактирование профиля владельцем и модерация администратором
type ProfileService struct {
	profiles repository.ProfileRepository
	accounts repository.AccountRepository
}

func NewProfileService(store repository.Store) *ProfileService {
	return &ProfileService{profiles: store.Profiles, accounts: store.Accounts}
}

func (s *ProfileService) Get(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

func (s *ProfileService) List(ctx context.Context) ([]domain.Profile, error) {
	return s.profiles.List(ctx)
}

// ProfileUpdate поля, которые владелец может менять сам
type ProfileUpdate struct {
	FullName string
	Phone    string
	Address  string
}

func (s *ProfileService) UpdateOwn(ctx context.Context, id uuid.UUID, u ProfileUpdate) (*domain.Profile, error) {
	if strings.TrimSpace(u.FullName) == "" {
		return nil, invalid("full name is required")
	}
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.FullName = strings.TrimSpace(u.FullName)
	p.Phone = strings.TrimSpace(u.Phone)
	p.Address = strings.TrimSpace(u.Address)
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetStatus смена статуса администратором; rejected/blocked закрывает все сессии
func (s *ProfileService) SetStatus(ctx context.Context, id uuid.UUID, status domain.ProfileStatus) (*domain.Profile, error) {
	if !status.Valid() {
		return nil, invalid("unknown profile status")
	}
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Status = status
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, err
	}
	if status == domain.ProfileStatusRejected || status == domain.ProfileStatusBlocked {
		if err := s.accounts.DeleteSessionsByAccount(ctx, id); err != nil {
			return nil, err
		}
	}
	log.WithFields(log.Fields{"profile_id": id, "status": status}).Info("profile status changed")
	return p, nil
}

func (s *ProfileService) SetRole(ctx context.Context, id uuid.UUID, role domain.Role) (*domain.Profile, error) {
	if !role.Valid() {
		return nil, invalid("unknown role")
	}
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Role = role
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"profile_id": id, "role": role}).Info("profile role changed")
	return p, nil
}
