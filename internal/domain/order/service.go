package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/noaigpt/noaigpt-api/internal/domain/catalog"
	"github.com/noaigpt/noaigpt-api/internal/domain/credit"
	"github.com/noaigpt/noaigpt-api/internal/domain/user"
	"github.com/noaigpt/noaigpt-api/internal/pkg/email"
)

const orderValidityDays = 30

type ManualPayee struct {
	ID   string
	Name string
}

type Service struct {
	db      *sqlx.DB
	repo    Repository
	catalog *catalog.Service
	credits *credit.Service
	users   user.Repository
	email   email.Sender

	payee         ManualPayee
	operatorEmail string
	frontendURL   string
}

func NewService(
	db *sqlx.DB,
	catalogSvc *catalog.Service,
	creditSvc *credit.Service,
	users user.Repository,
	sender email.Sender,
	payee ManualPayee,
	operatorEmail string,
	frontendURL string,
) *Service {
	return &Service{
		db:            db,
		repo:          NewRepository(db),
		catalog:       catalogSvc,
		credits:       creditSvc,
		users:         users,
		email:         sender,
		payee:         payee,
		operatorEmail: operatorEmail,
		frontendURL:   frontendURL,
	}
}

// Repo exposes the order store to the payment gateway adapters, which settle
// purchases inside their own transactions.
func (s *Service) Repo() Repository {
	return s.repo
}

// Initiate opens a manual-transfer order for an enabled catalog item and
// returns the payee the user should wire funds to.
func (s *Service) Initiate(ctx context.Context, userID, itemID uuid.UUID) (*InitiateResponse, error) {
	enabled, err := s.catalog.MethodEnabled(ctx, catalog.MethodManual)
	if err != nil {
		return nil, ErrInternal
	}
	if !enabled {
		return nil, ErrInvalidState
	}

	item, err := s.catalog.GetPurchasable(ctx, itemID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, catalog.ErrNotFound
		}
		return nil, ErrInternal
	}

	o := &Order{
		ID:             uuid.New(),
		UserID:         userID,
		ItemID:         item.ID,
		OrderID:        NewOrderID(catalog.MethodManual),
		Amount:         item.Price,
		PaymentMethod:  catalog.MethodManual,
		Status:         StatusCreated,
		ExpirationDate: time.Now().AddDate(0, 0, orderValidityDays),
	}
	if err := s.repo.Create(ctx, o); err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to create order")
		return nil, ErrInternal
	}

	log.Info().
		Str("order_id", o.OrderID).
		Str("user_id", userID.String()).
		Int64("amount", o.Amount).
		Msg("order initiated")

	return &InitiateResponse{
		Order:        o,
		Instructions: fmt.Sprintf("Send %d to %s (%s) and submit the transaction reference as proof.", o.Amount, s.payee.Name, s.payee.ID),
		PayeeID:      s.payee.ID,
		PayeeName:    s.payee.Name,
	}, nil
}

// SubmitProof attaches the user's transfer reference and moves the order to
// pending review. The operator is notified off the request path.
func (s *Service) SubmitProof(ctx context.Context, userID, id uuid.UUID, proof string) (*Order, error) {
	if err := s.requireOwner(ctx, userID, id); err != nil {
		return nil, err
	}

	o, err := s.repo.Transition(ctx, id, []Status{StatusCreated}, StatusPending, &proof)
	if err != nil {
		return nil, err
	}

	if s.operatorEmail != "" {
		s.email.Enqueue(s.operatorEmail, "Operator", "order_submitted", "New Manual Payment Confirmation", map[string]interface{}{
			"OrderID": o.OrderID,
			"Proof":   proof,
			"Status":  o.Status,
			"Time":    time.Now().Format(time.RFC1123),
		})
	}

	log.Info().Str("order_id", o.OrderID).Msg("payment proof submitted")
	return o, nil
}

// Cancel is only legal while the order is still in created.
func (s *Service) Cancel(ctx context.Context, userID, id uuid.UUID) (*Order, error) {
	if err := s.requireOwner(ctx, userID, id); err != nil {
		return nil, err
	}
	o, err := s.repo.Transition(ctx, id, []Status{StatusCreated}, StatusCancelled, nil)
	if err != nil {
		return nil, err
	}
	log.Info().Str("order_id", o.OrderID).Msg("order cancelled")
	return o, nil
}

// Reject closes an open order without crediting. Terminal orders, including
// already-rejected ones, cannot be rejected again.
func (s *Service) Reject(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.Transition(ctx, id, []Status{StatusCreated, StatusPending}, StatusRejected, nil)
	if err != nil {
		return nil, err
	}
	log.Info().Str("order_id", o.OrderID).Msg("order rejected")
	return o, nil
}

// MarkPending lets an admin push an order back to review, e.g. after the
// user sent proof out of band.
func (s *Service) MarkPending(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.repo.Transition(ctx, id, []Status{StatusCreated}, StatusPending, nil)
}

// Approve settles an order: status flip, Purchase record and ledger credit
// commit together or not at all. The row lock serializes a duplicate gateway
// callback racing an admin click; the second caller sees a terminal status
// and gets ErrInvalidState.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin approve tx: %w", err)
	}
	defer tx.Rollback()

	o, err := s.repo.LockByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, ErrInvalidState
	}

	item, err := s.catalog.Get(ctx, o.ItemID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, ErrInternal
		}
		return nil, ErrInternal
	}

	if err := s.repo.MarkApprovedTx(ctx, tx, o.ID); err != nil {
		return nil, err
	}

	externalID := o.OrderID
	if o.TransactionProof.Valid && o.TransactionProof.String != "" {
		externalID = o.TransactionProof.String
	}
	creditExpiry := time.Now().AddDate(0, 0, item.Tier.ValidityDays())

	p := &Purchase{
		ID:                    uuid.New(),
		UserID:                o.UserID,
		ItemID:                o.ItemID,
		ExternalTransactionID: externalID,
		Amount:                o.Amount,
		PaymentMethod:         o.PaymentMethod,
		ExpirationDate:        creditExpiry,
	}
	if err := s.repo.CreatePurchaseTx(ctx, tx, p); err != nil {
		return nil, err
	}

	if err := s.credits.CreditTx(ctx, tx, o.UserID, item.RewriteLimit, credit.KindAdded, creditExpiry, "order "+o.OrderID); err != nil {
		return nil, ErrInternal
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approve tx: %w", err)
	}

	o.Status = StatusApproved
	log.Info().
		Str("order_id", o.OrderID).
		Str("purchase_id", p.ID.String()).
		Int("credits", item.RewriteLimit).
		Msg("order approved")

	s.notifyApproved(ctx, o, p)
	return o, nil
}

func (s *Service) notifyApproved(ctx context.Context, o *Order, p *Purchase) {
	u, err := s.users.GetByID(ctx, o.UserID)
	if err != nil {
		log.Warn().Err(err).Str("order_id", o.OrderID).Msg("approval email skipped, user lookup failed")
		return
	}
	s.email.Enqueue(u.Email, u.Name, "order_approved", "Your Order Has Been Approved", map[string]interface{}{
		"Name":           u.Name,
		"TransactionID":  p.ExternalTransactionID,
		"Amount":         p.Amount,
		"PaymentMethod":  p.PaymentMethod,
		"ExpirationDate": p.ExpirationDate.Format("January 2, 2006"),
		"InvoiceURL":     fmt.Sprintf("%s/invoices/%s", s.frontendURL, p.ID),
	})
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *Service) ListMine(ctx context.Context, userID uuid.UUID, f ListFilter) ([]Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID, f)
	if err != nil {
		log.Error().Err(err).Msg("failed to list user orders")
		return nil, ErrInternal
	}
	return orders, nil
}

func (s *Service) ListAll(ctx context.Context, f ListFilter) ([]AdminOrder, error) {
	orders, err := s.repo.List(ctx, f)
	if err != nil {
		log.Error().Err(err).Msg("failed to list orders")
		return nil, ErrInternal
	}
	return orders, nil
}

func (s *Service) Purchases(ctx context.Context, userID uuid.UUID) ([]Purchase, error) {
	purchases, err := s.repo.ListPurchases(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list purchases")
		return nil, ErrInternal
	}
	return purchases, nil
}

// Invoice returns the memoized invoice for a purchase, building it on first
// request. isAdmin bypasses the ownership check.
func (s *Service) Invoice(ctx context.Context, requesterID uuid.UUID, isAdmin bool, purchaseID uuid.UUID) (*Invoice, error) {
	p, err := s.repo.GetPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && p.UserID != requesterID {
		return nil, ErrPurchaseNotFound
	}

	inv, err := s.repo.GetInvoiceByPurchase(ctx, purchaseID)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInternal
	}

	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, ErrInternal
	}
	itemTitle := "Credit pack"
	if item, err := s.catalog.Get(ctx, p.ItemID); err == nil {
		itemTitle = item.Title
	}

	inv = &Invoice{
		ID:            uuid.New(),
		PurchaseID:    p.ID,
		InvoiceNumber: NewInvoiceNumber(p),
		CustomerName:  u.Name,
		CustomerEmail: u.Email,
		ItemTitle:     itemTitle,
		Amount:        p.Amount,
		PaymentMethod: p.PaymentMethod,
		IssuedAt:      time.Now(),
	}
	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		log.Error().Err(err).Str("purchase_id", p.ID.String()).Msg("failed to create invoice")
		return nil, ErrInternal
	}

	// A concurrent first request may have won the insert; serve whichever
	// row landed.
	stored, err := s.repo.GetInvoiceByPurchase(ctx, purchaseID)
	if err != nil {
		return inv, nil
	}
	return stored, nil
}

func (s *Service) requireOwner(ctx context.Context, userID, id uuid.UUID) error {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if o.UserID != userID {
		return ErrNotFound
	}
	return nil
}
