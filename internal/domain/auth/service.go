package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/noaigpt/noaigpt-api/internal/domain/credit"
	"github.com/noaigpt/noaigpt-api/internal/domain/user"
	"github.com/noaigpt/noaigpt-api/internal/pkg/email"
	"github.com/noaigpt/noaigpt-api/internal/pkg/jwt"
	"github.com/noaigpt/noaigpt-api/internal/pkg/password"
)

const refreshKeyPrefix = "auth:refresh:"

type Bonuses struct {
	Referrer int
	Referee  int
}

type Service struct {
	users   user.Repository
	credits *credit.Service
	tokens  *jwt.Service
	redis   *redis.Client
	email   email.Sender
	bonuses Bonuses
}

func NewService(
	users user.Repository,
	credits *credit.Service,
	tokens *jwt.Service,
	redisClient *redis.Client,
	sender email.Sender,
	bonuses Bonuses,
) *Service {
	return &Service{
		users:   users,
		credits: credits,
		tokens:  tokens,
		redis:   redisClient,
		email:   sender,
		bonuses: bonuses,
	}
}

// Signup registers a user and hands out the free credit grant. A valid
// referral code additionally credits both sides of the referral.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	var referrer *user.User
	if req.ReferralCode != "" {
		u, err := s.users.GetByReferralCode(ctx, req.ReferralCode)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return nil, ErrInvalidReferral
			}
			return nil, ErrInternal
		}
		referrer = u
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("password hash failed")
		return nil, ErrInternal
	}

	u := &user.User{
		ID:           uuid.New(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         user.RoleUser,
	}
	u.ReferralCode.String = newReferralCode()
	u.ReferralCode.Valid = true
	if referrer != nil {
		u.ReferredBy.UUID = referrer.ID
		u.ReferredBy.Valid = true
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		log.Error().Err(err).Msg("user create failed")
		return nil, ErrInternal
	}

	// Provision the free grant now so the welcome state is visible on first
	// balance read.
	if _, err := s.credits.GetBalance(ctx, u.ID); err != nil {
		log.Error().Err(err).Str("user_id", u.ID.String()).Msg("free grant provisioning failed")
	}

	if referrer != nil {
		s.grantReferralBonuses(ctx, referrer.ID, u.ID)
	}

	s.email.Enqueue(u.Email, u.Name, "welcome", "Welcome to NoaiGPT", map[string]interface{}{
		"Name":    u.Name,
		"Credits": s.credits.FreeCredits(),
	})

	tokens, err := s.issueTokens(ctx, u)
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", u.ID.String()).Bool("referred", referrer != nil).Msg("user signed up")
	return &AuthResponse{User: profileOf(u), Tokens: tokens}, nil
}

// Referral bonuses are best effort: a failed bonus write is logged, not
// rolled into the signup outcome.
func (s *Service) grantReferralBonuses(ctx context.Context, referrerID, refereeID uuid.UUID) {
	expiry := s.credits.DefaultExpiration()
	if s.bonuses.Referrer > 0 {
		if err := s.credits.Credit(ctx, referrerID, s.bonuses.Referrer, credit.KindReferral, expiry, "referral signup"); err != nil {
			log.Error().Err(err).Str("user_id", referrerID.String()).Msg("referrer bonus failed")
		}
	}
	if s.bonuses.Referee > 0 {
		if err := s.credits.Credit(ctx, refereeID, s.bonuses.Referee, credit.KindBonus, expiry, "signup with referral code"); err != nil {
			log.Error().Err(err).Str("user_id", refereeID.String()).Msg("referee bonus failed")
		}
	}
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, ErrInternal
	}
	if !password.Verify(req.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(ctx, u)
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", u.ID.String()).Msg("user logged in")
	return &AuthResponse{User: profileOf(u), Tokens: tokens}, nil
}

// Refresh rotates a refresh token: the presented token must still be
// registered, and it is revoked as the new pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if s.redis != nil {
		stored, err := s.redis.Get(ctx, refreshKeyPrefix+claims.ID).Result()
		if err != nil || stored != jwt.HashRefreshToken(refreshToken) {
			return nil, ErrInvalidToken
		}
		s.redis.Del(ctx, refreshKeyPrefix+claims.ID)
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return s.issueTokens(ctx, u)
}

// Logout revokes the refresh token. Access tokens simply age out.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return ErrInvalidToken
	}
	if s.redis != nil {
		s.redis.Del(ctx, refreshKeyPrefix+claims.ID)
	}
	return nil
}

func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, ErrInternal
	}
	return profileOf(u), nil
}

func (s *Service) issueTokens(ctx context.Context, u *user.User) (*TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(u.ID, string(u.Role))
	if err != nil {
		log.Error().Err(err).Msg("access token generation failed")
		return nil, ErrInternal
	}
	refresh, jti, expiresAt, err := s.tokens.GenerateRefreshToken(u.ID)
	if err != nil {
		log.Error().Err(err).Msg("refresh token generation failed")
		return nil, ErrInternal
	}

	if s.redis != nil {
		ttl := time.Until(expiresAt)
		if err := s.redis.Set(ctx, refreshKeyPrefix+jti, jwt.HashRefreshToken(refresh), ttl).Err(); err != nil {
			log.Error().Err(err).Msg("refresh token storage failed")
			return nil, ErrInternal
		}
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(s.tokens.GetAccessTTL()),
	}, nil
}

func profileOf(u *user.User) *UserProfile {
	p := &UserProfile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
	if u.ReferralCode.Valid {
		p.ReferralCode = u.ReferralCode.String
	}
	return p
}

func newReferralCode() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}
