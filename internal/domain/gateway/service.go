package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/noaigpt/noaigpt-api/internal/domain/catalog"
	"github.com/noaigpt/noaigpt-api/internal/domain/credit"
	"github.com/noaigpt/noaigpt-api/internal/domain/order"
	"github.com/noaigpt/noaigpt-api/internal/domain/user"
	"github.com/noaigpt/noaigpt-api/internal/pkg/email"
	"github.com/noaigpt/noaigpt-api/internal/pkg/imepay"
)

type Service struct {
	db      *sqlx.DB
	repo    Repository
	client  *imepay.Client
	catalog *catalog.Service
	credits *credit.Service
	orders  order.Repository
	users   user.Repository
	email   email.Sender

	backendURL  string
	frontendURL string
}

func NewService(
	db *sqlx.DB,
	client *imepay.Client,
	catalogSvc *catalog.Service,
	creditSvc *credit.Service,
	orderRepo order.Repository,
	users user.Repository,
	sender email.Sender,
	backendURL, frontendURL string,
) *Service {
	return &Service{
		db:          db,
		repo:        NewRepository(db),
		client:      client,
		catalog:     catalogSvc,
		credits:     creditSvc,
		orders:      orderRepo,
		users:       users,
		email:       sender,
		backendURL:  backendURL,
		frontendURL: frontendURL,
	}
}

// Initiate opens an IME Pay checkout: token from the gateway, a local
// pending transaction keyed by our RefID, and the hosted-page redirect URL.
func (s *Service) Initiate(ctx context.Context, userID, itemID uuid.UUID) (*InitiateResponse, error) {
	enabled, err := s.catalog.MethodEnabled(ctx, catalog.MethodIMEPay)
	if err != nil {
		return nil, ErrInternal
	}
	if !enabled {
		return nil, ErrMethodDisabled
	}

	item, err := s.catalog.GetPurchasable(ctx, itemID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, catalog.ErrNotFound
		}
		return nil, ErrInternal
	}

	refID := imepay.NewRefID()
	token, err := s.client.GetToken(ctx, float64(item.Price), refID)
	if err != nil {
		log.Error().Err(err).Str("ref_id", refID).Msg("imepay token request failed")
		return nil, fmt.Errorf("%w: %v", imepay.ErrUpstream, err)
	}

	txn := &PaymentTransaction{
		ID:      uuid.New(),
		UserID:  userID,
		ItemID:  item.ID,
		RefID:   refID,
		TokenID: token.TokenID,
		Amount:  item.Price,
		Status:  TxnInitiated,
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		log.Error().Err(err).Str("ref_id", refID).Msg("failed to persist payment transaction")
		return nil, ErrInternal
	}

	callbackURL := s.backendURL + "/api/payments/imepay/callback"
	checkoutURL := s.client.CheckoutURL(token.TokenID, refID, float64(item.Price), callbackURL, callbackURL)

	log.Info().
		Str("ref_id", refID).
		Str("user_id", userID.String()).
		Int64("amount", item.Price).
		Msg("imepay checkout initiated")

	return &InitiateResponse{RefID: refID, CheckoutURL: checkoutURL, Amount: item.Price}, nil
}

// HandleCallback processes the gateway's redirect-back payload. Non-success
// outcomes just close the local transaction; success is verified against the
// stored transaction, confirmed upstream, then settled in one database
// transaction. A duplicate callback for an already-settled RefID returns
// ErrDuplicateCallback without crediting again.
func (s *Service) HandleCallback(ctx context.Context, data string) (*CallbackResult, error) {
	payload, err := imepay.DecodeCallback(data)
	if err != nil {
		return nil, fmt.Errorf("decode callback: %w", err)
	}

	switch payload.ResponseCode {
	case imepay.CodeSuccess:
		return s.settle(ctx, payload)
	case imepay.CodeCancelled:
		if err := s.repo.UpdateStatus(ctx, payload.RefID, TxnCancelled); err != nil {
			log.Error().Err(err).Str("ref_id", payload.RefID).Msg("failed to mark transaction cancelled")
		}
		log.Info().Str("ref_id", payload.RefID).Msg("imepay checkout cancelled by user")
		return &CallbackResult{Outcome: "cancelled", RefID: payload.RefID}, nil
	default:
		if err := s.repo.UpdateStatus(ctx, payload.RefID, TxnFailed); err != nil {
			log.Error().Err(err).Str("ref_id", payload.RefID).Msg("failed to mark transaction failed")
		}
		log.Warn().
			Str("ref_id", payload.RefID).
			Int("code", payload.ResponseCode).
			Str("description", payload.Description).
			Msg("imepay checkout failed")
		return &CallbackResult{Outcome: "failed", RefID: payload.RefID}, nil
	}
}

func (s *Service) settle(ctx context.Context, payload *imepay.CallbackPayload) (*CallbackResult, error) {
	txn, err := s.repo.GetByRefID(ctx, payload.RefID)
	if err != nil {
		return nil, err
	}
	if txn.Status != TxnInitiated {
		return nil, ErrDuplicateCallback
	}

	amount, err := strconv.ParseFloat(payload.Amount, 64)
	if err != nil || imepay.FormatAmount(amount) != imepay.FormatAmount(float64(txn.Amount)) {
		log.Warn().
			Str("ref_id", payload.RefID).
			Str("callback_amount", payload.Amount).
			Int64("expected", txn.Amount).
			Msg("imepay callback amount mismatch")
		return nil, ErrAmountMismatch
	}

	item, err := s.catalog.Get(ctx, txn.ItemID)
	if err != nil {
		return nil, ErrInternal
	}

	// Confirm upstream before touching local state, and without holding any
	// row lock while the HTTP call is in flight.
	confirm, err := s.client.Confirm(ctx, imepay.ConfirmRequest{
		RefID:         payload.RefID,
		TokenID:       payload.TokenID,
		TransactionID: payload.TransactionID,
		Msisdn:        payload.Msisdn,
	})
	if err != nil {
		return nil, err
	}
	if confirm.ResponseCode != imepay.CodeSuccess {
		if err := s.repo.UpdateStatus(ctx, payload.RefID, TxnFailed); err != nil {
			log.Error().Err(err).Str("ref_id", payload.RefID).Msg("failed to mark transaction failed")
		}
		return &CallbackResult{Outcome: "failed", RefID: payload.RefID}, nil
	}

	creditExpiry := time.Now().AddDate(0, 0, item.Tier.ValidityDays())

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin settle tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.repo.LockByRefID(ctx, tx, payload.RefID)
	if err != nil {
		return nil, err
	}
	if locked.Status != TxnInitiated {
		return nil, ErrDuplicateCallback
	}

	if err := s.repo.UpdateStatusTx(ctx, tx, payload.RefID, TxnConfirmed, payload.TransactionID, payload.Msisdn); err != nil {
		return nil, err
	}

	p := &order.Purchase{
		ID:                    uuid.New(),
		UserID:                txn.UserID,
		ItemID:                txn.ItemID,
		ExternalTransactionID: payload.TransactionID,
		Amount:                txn.Amount,
		PaymentMethod:         catalog.MethodIMEPay,
		ExpirationDate:        creditExpiry,
	}
	if err := s.orders.CreatePurchaseTx(ctx, tx, p); err != nil {
		if errors.Is(err, order.ErrDuplicateCallback) {
			return nil, ErrDuplicateCallback
		}
		return nil, err
	}

	if err := s.credits.CreditTx(ctx, tx, txn.UserID, item.RewriteLimit, credit.KindPurchase, creditExpiry, "imepay "+payload.RefID); err != nil {
		return nil, ErrInternal
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit settle tx: %w", err)
	}

	log.Info().
		Str("ref_id", payload.RefID).
		Str("transaction_id", payload.TransactionID).
		Int("credits", item.RewriteLimit).
		Msg("imepay payment settled")

	s.notifySettled(ctx, txn.UserID, p)
	return &CallbackResult{Outcome: "confirmed", RefID: payload.RefID}, nil
}

func (s *Service) notifySettled(ctx context.Context, userID uuid.UUID, p *order.Purchase) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("settlement email skipped, user lookup failed")
		return
	}
	s.email.Enqueue(u.Email, u.Name, "order_approved", "Payment Received", map[string]interface{}{
		"Name":           u.Name,
		"TransactionID":  p.ExternalTransactionID,
		"Amount":         p.Amount,
		"PaymentMethod":  p.PaymentMethod,
		"ExpirationDate": p.ExpirationDate.Format("January 2, 2006"),
		"InvoiceURL":     fmt.Sprintf("%s/invoices/%s", s.frontendURL, p.ID),
	})
}

// FrontendURL is used by the HTTP layer to build post-payment redirects.
func (s *Service) FrontendURL() string {
	return s.frontendURL
}
