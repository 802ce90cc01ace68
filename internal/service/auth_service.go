package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"wholesale/internal/domain"
	"wholesale/internal/repository"
)

const minPasswordLen = 6

// AuthService регистрация, вход и проверка сессий
type AuthService struct {
	accounts     repository.AccountRepository
	profiles     repository.ProfileRepository
	tx           repository.TxManager
	validate     *validator.Validate
	sessionTTL   time.Duration
	pendingTrial time.Duration
	now          func() time.Time
}

// NewAuthService: sessionTTL время жизни сессии, pendingTrial сколько неподтверждённый
// профиль может пользоваться системой после регистрации
func NewAuthService(store repository.Store, sessionTTL, pendingTrial time.Duration) *AuthService {
	return &AuthService{
		accounts:     store.Accounts,
		profiles:     store.Profiles,
		tx:           store.Tx,
		validate:     validator.New(),
		sessionTTL:   sessionTTL,
		pendingTrial: pendingTrial,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SignUp создаёт учётную запись и профиль покупателя в статусе pending
func (s *AuthService) SignUp(ctx context.Context, email, password, fullName string) (*domain.Profile, error) {
	return s.register(ctx, email, password, fullName, domain.RoleCustomer, domain.ProfileStatusPending)
}

// EnsureAdmin создаёт подтверждённого администратора, если такого email ещё нет
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, fullName string) (*domain.Profile, error) {
	p, err := s.register(ctx, email, password, fullName, domain.RoleAdmin, domain.ProfileStatusApproved)
	if errors.Is(err, repository.ErrDuplicate) {
		a, err := s.accounts.GetAccountByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		return s.profiles.GetByID(ctx, a.ID)
	}
	return p, err
}

func (s *AuthService) register(ctx context.Context, email, password, fullName string, role domain.Role, status domain.ProfileStatus) (*domain.Profile, error) {
	email = strings.TrimSpace(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, invalid("valid email is required")
	}
	if len(password) < minPasswordLen {
		return nil, invalid("password is too short")
	}
	if strings.TrimSpace(fullName) == "" {
		return nil, invalid("full name is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	var profile domain.Profile
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		a := domain.Account{Email: email, PasswordHash: hash}
		if err := s.accounts.CreateAccount(ctx, &a); err != nil {
			return err
		}
		profile = domain.Profile{
			ID:           a.ID,
			Email:        a.Email,
			FullName:     strings.TrimSpace(fullName),
			Role:         role,
			Status:       status,
			RegisteredAt: s.now(),
		}
		return s.profiles.Create(ctx, &profile)
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"profile_id": profile.ID, "role": role}).Info("account registered")
	return &profile, nil
}

// SignIn проверяет пароль и открывает сессию. Доступ профиля проверяется сразу.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.Session, *domain.Profile, error) {
	a, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, errors.Wrap(ErrUnauthenticated, "invalid email or password")
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)); err != nil {
		return nil, nil, errors.Wrap(ErrUnauthenticated, "invalid email or password")
	}
	p, err := s.profiles.GetByID(ctx, a.ID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.checkAccess(ctx, p); err != nil {
		return nil, nil, err
	}

	token, err := newToken()
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	sess := domain.Session{Token: token, AccountID: a.ID, CreatedAt: now, ExpiresAt: now.Add(s.sessionTTL)}
	if err := s.accounts.CreateSession(ctx, &sess); err != nil {
		return nil, nil, err
	}
	return &sess, p, nil
}

func (s *AuthService) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.accounts.DeleteSession(ctx, token)
}

// Authenticate возвращает профиль по токену сессии. Отклонённый или заблокированный
// профиль, как и истёкший пробный период, принудительно разлогинивается.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.Profile, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	sess, err := s.accounts.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if sess.Expired(s.now()) {
		_ = s.accounts.DeleteSession(ctx, token)
		return nil, errors.Wrap(ErrUnauthenticated, "session expired")
	}
	p, err := s.profiles.GetByID(ctx, sess.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if err := s.checkAccess(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *AuthService) checkAccess(ctx context.Context, p *domain.Profile) error {
	var reason string
	switch p.Status {
	case domain.ProfileStatusApproved:
		return nil
	case domain.ProfileStatusRejected, domain.ProfileStatusBlocked:
		reason = "profile is " + string(p.Status)
	case domain.ProfileStatusPending:
		if s.now().Sub(p.RegisteredAt) <= s.pendingTrial {
			return nil
		}
		reason = "trial access expired, waiting for admin approval"
	default:
		reason = "unknown profile status"
	}
	if err := s.accounts.DeleteSessionsByAccount(ctx, p.ID); err != nil {
		log.WithError(err).WithField("profile_id", p.ID).Warn("revoke sessions")
	}
	return errors.Wrap(ErrForbidden, reason)
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "session token")
	}
	return hex.EncodeToString(b), nil
}

// RequireRole проверяет роль профиля
func RequireRole(p *domain.Profile, roles ...domain.Role) error {
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return errors.Wrapf(ErrForbidden, "role %s not allowed", p.Role)
}
