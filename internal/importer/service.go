package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"fjacquet/statement-ledger/internal/filestore"
	"fjacquet/statement-ledger/internal/logging"
	"fjacquet/statement-ledger/internal/models"
	"fjacquet/statement-ledger/internal/parsererror"
	"fjacquet/statement-ledger/internal/rowparser"
	"fjacquet/statement-ledger/internal/statement"
	"fjacquet/statement-ledger/internal/store"
)

const (
	DefaultBatchSize    = 50
	DefaultListLimit    = 50
	MinStatementYear    = 2000
	MaxStatementYear    = 2100
	defaultStatementExt = ".pdf"
)

var (
	ErrSessionNotFound  = errors.New("import session not found")
	ErrAlreadyConfirmed = errors.New("import already confirmed")
	ErrAccountNotFound  = errors.New("account not found")
	ErrNoValidRows      = errors.New("no valid rows found")
	ErrInvalidYear      = fmt.Errorf("statement year must be between %d and %d", MinStatementYear, MaxStatementYear)
)

// Store is what the import service needs from persistence.
type Store interface {
	FingerprintFinder
	store.TransactionWriter
	store.SessionStore
	store.AccountStore
}

// ConfirmResult counts rows written and rows skipped because they already existed.
type ConfirmResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// Service runs imports from upload to confirmation.
type Service struct {
	store      Store
	normalizer *Normalizer
	rows       *rowparser.Parser
	files      filestore.FileStore
	statements statement.Parser
	batchSize  int
	now        func() time.Time
	logger     logging.Logger
}

type Option func(*Service)

func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithRowParser(p *rowparser.Parser) Option {
	return func(s *Service) { s.rows = p }
}

// NewService wires an import service. files and statements may be nil when only delimited
// imports are used.
func NewService(st Store, rules RuleSetLoader, files filestore.FileStore, statements statement.Parser, logger logging.Logger, opts ...Option) *Service {
	logger = logging.OrDefault(logger)
	s := &Service{
		store:      st,
		normalizer: NewNormalizer(st, rules, logger),
		rows:       rowparser.New(logger),
		files:      files,
		statements: statements,
		batchSize:  DefaultBatchSize,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ImportCSV parses delimited text and stores a parsed session holding the preview.
func (s *Service) ImportCSV(ctx context.Context, userID, accountID string, data []byte) (models.ImportSession, error) {
	if err := s.checkAccount(ctx, userID, accountID); err != nil {
		return models.ImportSession{}, err
	}

	seq, err := s.rows.Parse(data)
	if err != nil {
		return models.ImportSession{}, err
	}
	rows, err := rowparser.Collect(seq)
	if err != nil {
		return models.ImportSession{}, err
	}
	if len(rows) == 0 {
		return models.ImportSession{}, ErrNoValidRows
	}

	normalized, err := s.normalizer.Normalize(ctx, userID, accountID, rows)
	if err != nil {
		return models.ImportSession{}, err
	}

	session := models.ImportSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		AccountID: accountID,
		Source:    models.SourceCSV,
		CreatedAt: s.now().UTC(),
	}
	setPreview(&session, normalized)
	if err := s.store.CreateSession(ctx, session); err != nil {
		return models.ImportSession{}, parsererror.Store("create session", err)
	}

	s.logger.Info("CSV import parsed",
		logging.F(logging.FieldImportID, session.ID),
		logging.F(logging.FieldCount, session.TransactionCount),
		logging.F("duplicates", session.DuplicateCount))
	return session, nil
}

// ImportStatement stores the uploaded file, asks the parsing service for its rows and
// records the preview. A parsing failure leaves the session marked failed.
func (s *Service) ImportStatement(ctx context.Context, userID, accountID, filename string, body []byte, year int) (models.ImportSession, error) {
	if year < MinStatementYear || year > MaxStatementYear {
		return models.ImportSession{}, fmt.Errorf("%w: got %d", ErrInvalidYear, year)
	}
	if s.files == nil || s.statements == nil {
		return models.ImportSession{}, errors.New("statement imports are not configured")
	}
	if err := s.checkAccount(ctx, userID, accountID); err != nil {
		return models.ImportSession{}, err
	}

	now := s.now().UTC()
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = defaultStatementExt
	}
	storagePath := fmt.Sprintf("%s/%d_statement%s", userID, now.UnixMilli(), ext)
	if err := s.files.Save(ctx, storagePath, body); err != nil {
		return models.ImportSession{}, fmt.Errorf("storage upload failed: %w", err)
	}

	session := models.ImportSession{
		ID:          uuid.NewString(),
		UserID:      userID,
		AccountID:   accountID,
		Source:      models.SourceStatement,
		Status:      models.ImportPending,
		StoragePath: storagePath,
		CreatedAt:   now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return models.ImportSession{}, parsererror.Store("create session", err)
	}

	result, err := s.statements.Parse(ctx, storagePath, year)
	if err != nil {
		session.Status = models.ImportFailed
		if uerr := s.store.UpdateSession(ctx, session); uerr != nil {
			s.logger.WithError(uerr).Warn("Could not mark import failed", logging.F(logging.FieldImportID, session.ID))
		}
		var upErr *parsererror.UpstreamParseError
		if !errors.As(err, &upErr) {
			err = &parsererror.UpstreamParseError{Message: "statement parser", Cause: err}
		}
		return session, err
	}

	rows, err := rowparser.Collect(s.rows.FromRecords(result.Records()))
	if err != nil {
		return session, err
	}
	normalized, err := s.normalizer.Normalize(ctx, userID, accountID, rows)
	if err != nil {
		return session, err
	}

	setPreview(&session, normalized)
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return session, parsererror.Store("update session", err)
	}

	s.logger.Info("Statement import parsed",
		logging.F(logging.FieldImportID, session.ID),
		logging.F("bank", result.BankName()),
		logging.F(logging.FieldCount, session.TransactionCount),
		logging.F("duplicates", session.DuplicateCount))
	return session, nil
}

// Confirm writes the session's non-duplicate rows. edited replaces the stored preview when
// not nil. Rows that collide with an existing fingerprint are counted as skipped. A store
// failure aborts the call; chunks written before it stay written.
func (s *Service) Confirm(ctx context.Context, userID, importID string, edited []models.NormalizedTransaction) (ConfirmResult, error) {
	session, err := s.store.GetSession(ctx, userID, importID)
	if errors.Is(err, store.ErrNotFound) {
		return ConfirmResult{}, fmt.Errorf("%w: %s", ErrSessionNotFound, importID)
	}
	if err != nil {
		return ConfirmResult{}, parsererror.Store("get session", err)
	}
	if session.Status == models.ImportConfirmed {
		return ConfirmResult{}, fmt.Errorf("%w: %s", ErrAlreadyConfirmed, importID)
	}

	rows := edited
	if rows == nil {
		rows = session.Transactions
	}

	currency := models.DefaultCurrency
	if acct, err := s.store.GetAccount(ctx, userID, session.AccountID); err == nil && acct.Currency != "" {
		currency = acct.Currency
	}

	createdAt := s.now().UTC()
	toInsert := make([]models.StoredTransaction, 0, len(rows))
	for _, r := range rows {
		if r.IsDuplicate {
			continue
		}
		toInsert = append(toInsert, models.StoredTransaction{
			ID:          uuid.NewString(),
			UserID:      userID,
			AccountID:   session.AccountID,
			CategoryID:  r.CategoryID,
			Date:        r.Date,
			Description: r.Description,
			Amount:      r.Amount,
			Kind:        r.Kind,
			Currency:    currency,
			Merchant:    r.Merchant,
			Notes:       r.Notes,
			Tags:        r.Tags,
			Fingerprint: r.Fingerprint,
			ImportID:    session.ID,
			CreatedAt:   createdAt,
		})
	}

	var res ConfirmResult
	for start := 0; start < len(toInsert); start += s.batchSize {
		end := min(start+s.batchSize, len(toInsert))
		outcomes, err := s.store.InsertTransactions(ctx, toInsert[start:end])
		if err != nil {
			s.logger.WithError(err).Error("Import confirmation aborted",
				logging.F(logging.FieldImportID, importID),
				logging.F("inserted", res.Inserted))
			return res, parsererror.Store("insert transactions", err)
		}
		for _, o := range outcomes {
			if o.Status == store.InsertConflict {
				res.Skipped++
				continue
			}
			res.Inserted++
		}
	}

	session.Status = models.ImportConfirmed
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return res, parsererror.Store("update session", err)
	}

	s.logger.Info("Import confirmed",
		logging.F(logging.FieldImportID, importID),
		logging.F("inserted", res.Inserted),
		logging.F("skipped", res.Skipped))
	return res, nil
}

// ListSessions returns the user's sessions, most recent first. limit <= 0 means DefaultListLimit.
func (s *Service) ListSessions(ctx context.Context, userID string, limit int) ([]models.ImportSession, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	sessions, err := s.store.ListSessions(ctx, userID, limit)
	if err != nil {
		return nil, parsererror.Store("list sessions", err)
	}
	return sessions, nil
}

// Session returns one session with its preview rows.
func (s *Service) Session(ctx context.Context, userID, importID string) (models.ImportSession, error) {
	session, err := s.store.GetSession(ctx, userID, importID)
	if errors.Is(err, store.ErrNotFound) {
		return session, fmt.Errorf("%w: %s", ErrSessionNotFound, importID)
	}
	if err != nil {
		return session, parsererror.Store("get session", err)
	}
	return session, nil
}

func (s *Service) checkAccount(ctx context.Context, userID, accountID string) error {
	_, err := s.store.GetAccount(ctx, userID, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
	}
	if err != nil {
		return parsererror.Store("get account", err)
	}
	return nil
}

func setPreview(session *models.ImportSession, rows []models.NormalizedTransaction) {
	session.Status = models.ImportParsed
	session.Transactions = rows
	session.TransactionCount = len(rows)
	session.DuplicateCount = 0
	for _, r := range rows {
		if r.IsDuplicate {
			session.DuplicateCount++
		}
	}
}
