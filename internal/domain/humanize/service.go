package humanize

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/noaigpt/noaigpt-api/internal/domain/credit"
	"github.com/noaigpt/noaigpt-api/internal/pkg/humanizer"
	"github.com/noaigpt/noaigpt-api/internal/pkg/ratelimit"
)

// MinWords is the smallest input the rewrite accepts. Shorter texts produce
// unusable rewrites and still cost a credit, so they are rejected up front.
const MinWords = 50

// Rewriter is the upstream text-processing dependency.
type Rewriter interface {
	Humanize(ctx context.Context, text string) (string, error)
}

type Service struct {
	rewriter Rewriter
	credits  *credit.Service
	limiter  *ratelimit.Limiter
}

func NewService(rewriter Rewriter, credits *credit.Service, limiter *ratelimit.Limiter) *Service {
	return &Service{rewriter: rewriter, credits: credits, limiter: limiter}
}

// Rewrite runs the paid humanize operation. The upstream call happens before
// the debit: a vendor failure must never cost the user a credit. The debit
// itself re-checks the balance under a row lock, so a racing rewrite that
// spent the last credits surfaces as ErrInsufficientCredits here too.
func (s *Service) Rewrite(ctx context.Context, userID uuid.UUID, req RewriteRequest) (*RewriteResponse, error) {
	if s.limiter != nil && !s.limiter.Allow(ctx, userID.String()) {
		return nil, ErrRateLimited
	}

	words := humanizer.CountWords(req.Text)
	if words < MinWords {
		return nil, ErrTextTooShort
	}
	cost := credit.CostForWords(words)

	balance, err := s.credits.GetBalance(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to read balance")
		return nil, ErrInternal
	}
	if balance.Rewrites < cost {
		return nil, credit.ErrInsufficientCredits
	}

	output, err := s.rewriter.Humanize(ctx, req.Text)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Int("words", words).Msg("humanize upstream failed")
		return nil, err
	}

	if err := s.credits.Debit(ctx, userID, cost, fmt.Sprintf("humanize %d words", words)); err != nil {
		if errors.Is(err, credit.ErrInsufficientCredits) {
			return nil, err
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("debit after successful rewrite failed")
		return nil, ErrInternal
	}

	log.Info().
		Str("user_id", userID.String()).
		Int("words", words).
		Int("cost", cost).
		Msg("text humanized")

	return &RewriteResponse{
		Output:    output,
		Words:     words,
		Cost:      cost,
		Remaining: balance.Rewrites - cost,
	}, nil
}

// Balance exposes the caller's credit balance for the humanize surface.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (*credit.Balance, error) {
	return s.credits.GetBalance(ctx, userID)
}
