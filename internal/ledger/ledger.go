// Package ledger handles transactions entered or edited by hand and exports the ledger as CSV.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fjacquet/statement-ledger/internal/fingerprint"
	"fjacquet/statement-ledger/internal/logging"
	"fjacquet/statement-ledger/internal/models"
	"fjacquet/statement-ledger/internal/parsererror"
	"fjacquet/statement-ledger/internal/store"
)

var (
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrDuplicateTransaction = errors.New("duplicate transaction detected")
	ErrAccountNotFound      = errors.New("account not found")
	ErrInvalidTransaction   = errors.New("invalid transaction")
)

// DuplicateError carries the ID of the transaction that already has the same fingerprint.
type DuplicateError struct {
	ExistingID string
}

func (e *DuplicateError) Error() string {
	if e.ExistingID == "" {
		return ErrDuplicateTransaction.Error()
	}
	return fmt.Sprintf("%s: existing transaction %s", ErrDuplicateTransaction, e.ExistingID)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicateTransaction }

// Store is the persistence the ledger service uses.
type Store interface {
	store.TransactionReader
	store.TransactionWriter
	GetAccount(ctx context.Context, userID, id string) (models.Account, error)
}

// Matcher picks a category for free text.
type Matcher interface {
	Match(ctx context.Context, userID, text string) (categoryID string, found bool, err error)
}

// NewTransaction is a manually entered transaction. An empty CategoryID asks for
// automatic categorization; an empty Currency uses the account's.
type NewTransaction struct {
	AccountID   string
	CategoryID  string
	Kind        models.TransactionKind
	Amount      decimal.Decimal
	Currency    string
	Description string
	Merchant    string
	Notes       string
	Tags        []string
	Date        time.Time
}

// TransactionUpdate holds optional changes. Nil fields are left alone.
type TransactionUpdate struct {
	CategoryID  *string
	Kind        *models.TransactionKind
	Amount      *decimal.Decimal
	Currency    *string
	Description *string
	Merchant    *string
	Notes       *string
	Tags        *[]string
	Date        *time.Time
}

type Service struct {
	store   Store
	matcher Matcher
	now     func() time.Time
	logger  logging.Logger
}

func NewService(st Store, matcher Matcher, logger logging.Logger) *Service {
	return &Service{store: st, matcher: matcher, now: time.Now, logger: logging.OrDefault(logger)}
}

// Add stores a manual transaction. Its fingerprint has no batch position, so entering the
// same date, amount and description twice is reported as a *DuplicateError.
func (s *Service) Add(ctx context.Context, userID string, in NewTransaction) (models.StoredTransaction, error) {
	in.Description = strings.TrimSpace(in.Description)
	if err := validate(in.Kind, in.Amount, in.Date); err != nil {
		return models.StoredTransaction{}, err
	}
	if in.Description == "" {
		return models.StoredTransaction{}, errDescriptionRequired
	}

	acct, err := s.store.GetAccount(ctx, userID, in.AccountID)
	if errors.Is(err, store.ErrNotFound) {
		return models.StoredTransaction{}, fmt.Errorf("%w: %s", ErrAccountNotFound, in.AccountID)
	}
	if err != nil {
		return models.StoredTransaction{}, parsererror.Store("get account", err)
	}

	categoryID := in.CategoryID
	if categoryID == "" && s.matcher != nil {
		text := in.Description + " " + in.Merchant
		if id, found, err := s.matcher.Match(ctx, userID, text); err != nil {
			return models.StoredTransaction{}, err
		} else if found {
			categoryID = id
		}
	}

	currency := in.Currency
	if currency == "" {
		currency = acct.Currency
	}
	if currency == "" {
		currency = models.DefaultCurrency
	}

	tx := models.StoredTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		AccountID:   in.AccountID,
		CategoryID:  categoryID,
		Date:        in.Date,
		Description: in.Description,
		Amount:      in.Amount,
		Kind:        in.Kind,
		Currency:    currency,
		Merchant:    strings.TrimSpace(in.Merchant),
		Notes:       in.Notes,
		Tags:        in.Tags,
		Fingerprint: fingerprint.Build(userID, in.Date, in.Amount, in.Description),
		CreatedAt:   s.now().UTC(),
	}

	outcomes, err := s.store.InsertTransactions(ctx, []models.StoredTransaction{tx})
	if err != nil {
		return models.StoredTransaction{}, parsererror.Store("insert transaction", err)
	}
	if len(outcomes) == 1 && outcomes[0].Status == store.InsertConflict {
		return models.StoredTransaction{}, &DuplicateError{ExistingID: outcomes[0].ID}
	}

	s.logger.Info("Transaction added",
		logging.F(logging.FieldUserID, userID),
		logging.F(logging.FieldAccountID, in.AccountID),
		logging.F(logging.FieldCategory, categoryID))
	return s.Get(ctx, userID, tx.ID)
}

// Get returns one of the user's transactions.
func (s *Service) Get(ctx context.Context, userID, id string) (models.StoredTransaction, error) {
	tx, err := s.store.GetTransaction(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return tx, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}
	if err != nil {
		return tx, parsererror.Store("get transaction", err)
	}
	return tx, nil
}

// Update applies upd and recomputes the fingerprint from the resulting date, amount and
// description.
func (s *Service) Update(ctx context.Context, userID, id string, upd TransactionUpdate) (models.StoredTransaction, error) {
	tx, err := s.Get(ctx, userID, id)
	if err != nil {
		return tx, err
	}
	before := tx

	if upd.CategoryID != nil {
		tx.CategoryID = *upd.CategoryID
	}
	if upd.Kind != nil {
		tx.Kind = *upd.Kind
	}
	if upd.Amount != nil {
		tx.Amount = *upd.Amount
	}
	if upd.Currency != nil {
		tx.Currency = *upd.Currency
	}
	if upd.Description != nil {
		tx.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Merchant != nil {
		tx.Merchant = strings.TrimSpace(*upd.Merchant)
	}
	if upd.Notes != nil {
		tx.Notes = *upd.Notes
	}
	if upd.Tags != nil {
		tx.Tags = *upd.Tags
	}
	if upd.Date != nil {
		tx.Date = *upd.Date
	}
	if err := validate(tx.Kind, tx.Amount, tx.Date); err != nil {
		return models.StoredTransaction{}, err
	}
	if upd.Description != nil && tx.Description == "" {
		return models.StoredTransaction{}, errDescriptionRequired
	}
	// Imported rows keep their position-suffixed fingerprint until a hashed field changes.
	if identityChanged(before, tx) {
		tx.Fingerprint = fingerprint.Build(userID, tx.Date, tx.Amount, tx.Description)
	}

	err = s.store.UpdateTransaction(ctx, tx)
	switch {
	case errors.Is(err, parsererror.ErrDuplicateConstraint):
		existing, ferr := s.store.FindByFingerprints(ctx, userID, []string{tx.Fingerprint})
		if ferr != nil {
			return models.StoredTransaction{}, &DuplicateError{}
		}
		return models.StoredTransaction{}, &DuplicateError{ExistingID: existing[tx.Fingerprint]}
	case errors.Is(err, store.ErrNotFound):
		return models.StoredTransaction{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	case err != nil:
		return models.StoredTransaction{}, parsererror.Store("update transaction", err)
	}
	return s.Get(ctx, userID, id)
}

var errDescriptionRequired = fmt.Errorf("%w: description is required", ErrInvalidTransaction)

// identityChanged reports whether an edit touched a field the fingerprint is built from.
func identityChanged(before, after models.StoredTransaction) bool {
	return !before.Date.Equal(after.Date) ||
		!before.Amount.Equal(after.Amount) ||
		before.Description != after.Description
}

func validate(kind models.TransactionKind, amount decimal.Decimal, date time.Time) error {
	switch {
	case !kind.Valid():
		return fmt.Errorf("%w: type must be debit or credit, got %q", ErrInvalidTransaction, kind)
	case !amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidTransaction, amount)
	case date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalidTransaction)
	}
	return nil
}
