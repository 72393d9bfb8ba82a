package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"fjacquet/statement-ledger/internal/models"
	"fjacquet/statement-ledger/internal/parsererror"
)

//go:embed schema.sql
var schema string

const timestampLayout = time.RFC3339Nano

// SQLiteStore is a Repository backed by a SQLite database file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, models.PermissionDirectory); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer keeps per-chunk transactions from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("execute schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (s *SQLiteStore) FindByFingerprints(ctx context.Context, userID string, fingerprints []string) (map[string]string, error) {
	found := make(map[string]string)
	if len(fingerprints) == 0 {
		return found, nil
	}

	// Stay well below SQLite's bound-parameter limit.
	const chunk = 500
	for start := 0; start < len(fingerprints); start += chunk {
		end := min(start+chunk, len(fingerprints))
		part := fingerprints[start:end]

		args := make([]any, 0, len(part)+1)
		args = append(args, userID)
		for _, fp := range part {
			args = append(args, fp)
		}
		query := `SELECT fingerprint, id FROM transactions WHERE user_id = ? AND fingerprint IN (` +
			placeholders(len(part)) + `)`

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("query fingerprints: %w", err)
		}
		for rows.Next() {
			var fp, id string
			if err := rows.Scan(&fp, &id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan fingerprint: %w", err)
			}
			found[fp] = id
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func (s *SQLiteStore) InsertTransactions(ctx context.Context, txs []models.StoredTransaction) ([]InsertOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	outcomes := make([]InsertOutcome, len(txs))
	for i, t := range txs {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = s.now()
		}
		tags, err := json.Marshal(nonNil(t.Tags))
		if err != nil {
			return nil, fmt.Errorf("encode tags: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO transactions (
				id, user_id, account_id, category_id, date, description, amount, kind,
				currency, merchant, notes, tags, fingerprint, import_id, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, t.ID, t.UserID, t.AccountID, t.CategoryID, t.Date.Format(models.DateLayout), t.Description,
			t.Amount.String(), string(t.Kind), t.Currency, t.Merchant, t.Notes, string(tags),
			t.Fingerprint, t.ImportID, t.CreatedAt.UTC().Format(timestampLayout))

		if isUniqueViolation(err) {
			var existingID string
			if qerr := tx.QueryRowContext(ctx,
				`SELECT id FROM transactions WHERE user_id = ? AND fingerprint = ?`,
				t.UserID, t.Fingerprint).Scan(&existingID); qerr != nil {
				return nil, fmt.Errorf("look up conflicting transaction: %w", qerr)
			}
			outcomes[i] = InsertOutcome{Status: InsertConflict, ID: existingID, Fingerprint: t.Fingerprint}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("insert transaction: %w", err)
		}
		outcomes[i] = InsertOutcome{Status: Inserted, ID: t.ID, Fingerprint: t.Fingerprint}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}
	return outcomes, nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func (s *SQLiteStore) UpdateTransaction(ctx context.Context, t models.StoredTransaction) error {
	tags, err := json.Marshal(nonNil(t.Tags))
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET account_id = ?, category_id = ?, date = ?, description = ?, amount = ?, kind = ?,
			currency = ?, merchant = ?, notes = ?, tags = ?, fingerprint = ?
		WHERE id = ? AND user_id = ?
	`, t.AccountID, t.CategoryID, t.Date.Format(models.DateLayout), t.Description, t.Amount.String(),
		string(t.Kind), t.Currency, t.Merchant, t.Notes, string(tags), t.Fingerprint, t.ID, t.UserID)
	if isUniqueViolation(err) {
		return fmt.Errorf("fingerprint %s: %w", t.Fingerprint, parsererror.ErrDuplicateConstraint)
	}
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const transactionColumns = `
	t.id, t.user_id, t.account_id, t.category_id, COALESCE(c.name, ''), t.date, t.description,
	t.amount, t.kind, t.currency, t.merchant, t.notes, t.tags, t.fingerprint, t.import_id, t.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(r rowScanner) (models.StoredTransaction, error) {
	var (
		t                        models.StoredTransaction
		date, amount, kind, tags string
		createdAt                string
	)
	if err := r.Scan(&t.ID, &t.UserID, &t.AccountID, &t.CategoryID, &t.CategoryName, &date,
		&t.Description, &amount, &kind, &t.Currency, &t.Merchant, &t.Notes, &tags,
		&t.Fingerprint, &t.ImportID, &createdAt); err != nil {
		return t, err
	}

	var err error
	if t.Date, err = time.Parse(models.DateLayout, date); err != nil {
		return t, fmt.Errorf("parse date %q: %w", date, err)
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return t, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if t.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return t, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return t, fmt.Errorf("decode tags: %w", err)
	}
	if len(t.Tags) == 0 {
		t.Tags = nil
	}
	t.Kind = models.TransactionKind(kind)
	return t, nil
}

func (s *SQLiteStore) GetTransaction(ctx context.Context, userID, id string) (models.StoredTransaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+`
		FROM transactions t LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.id = ? AND t.user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, q models.TransactionQuery) ([]models.StoredTransaction, error) {
	where := []string{"t.user_id = ?"}
	args := []any{q.UserID}

	if q.AccountID != "" {
		where = append(where, "t.account_id = ?")
		args = append(args, q.AccountID)
	}
	if !q.From.IsZero() {
		where = append(where, "t.date >= ?")
		args = append(args, q.From.Format(models.DateLayout))
	}
	if !q.To.IsZero() {
		where = append(where, "t.date <= ?")
		args = append(args, q.To.Format(models.DateLayout))
	}
	if q.Kind != "" {
		where = append(where, "t.kind = ?")
		args = append(args, string(q.Kind))
	}
	if q.HasMerchant {
		where = append(where, "t.merchant <> ''")
	}

	order := "t.date ASC, t.rowid ASC"
	if q.Descending {
		order = "t.date DESC, t.rowid ASC"
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+transactionColumns+`
		FROM transactions t LEFT JOIN categories c ON c.id = t.category_id
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY `+order, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []models.StoredTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListRules(ctx context.Context, userID string) ([]models.CategorizationRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, keyword, category_id, priority, owner_id
		FROM categorization_rules
		WHERE owner_id = '' OR owner_id = ?
		ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []models.CategorizationRule
	for rows.Next() {
		var r models.CategorizationRule
		if err := rows.Scan(&r.ID, &r.Keyword, &r.CategoryID, &r.Priority, &r.OwnerID); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetRule(ctx context.Context, id string) (models.CategorizationRule, error) {
	var r models.CategorizationRule
	err := s.db.QueryRowContext(ctx, `
		SELECT id, keyword, category_id, priority, owner_id FROM categorization_rules WHERE id = ?`, id).
		Scan(&r.ID, &r.Keyword, &r.CategoryID, &r.Priority, &r.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, fmt.Errorf("get rule: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) CreateRule(ctx context.Context, r models.CategorizationRule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categorization_rules (id, keyword, category_id, priority, owner_id)
		VALUES (?, ?, ?, ?, ?)`, r.ID, r.Keyword, r.CategoryID, r.Priority, r.OwnerID)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("rule %s: %w", r.ID, parsererror.ErrDuplicateConstraint)
		}
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateRule(ctx context.Context, r models.CategorizationRule) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categorization_rules SET keyword = ?, category_id = ?, priority = ? WHERE id = ?`,
		r.Keyword, r.CategoryID, r.Priority, r.ID)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) DeleteRule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categorization_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) GetCategory(ctx context.Context, userID, id string) (models.Category, error) {
	var c models.Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id FROM categories WHERE id = ? AND (owner_id = '' OR owner_id = ?)`,
		id, userID).Scan(&c.ID, &c.Name, &c.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	if err != nil {
		return c, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) CreateCategory(ctx context.Context, c models.Category) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, owner_id) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, owner_id = excluded.owner_id`,
		c.ID, c.Name, c.OwnerID)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertPattern(ctx context.Context, p models.RecurringPattern) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recurring_patterns (
			user_id, merchant, frequency, average_amount, last_seen, occurrence_count, category_id
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, merchant, frequency) DO UPDATE SET
			average_amount = excluded.average_amount,
			last_seen = excluded.last_seen,
			occurrence_count = excluded.occurrence_count,
			category_id = excluded.category_id`,
		p.UserID, p.Merchant, string(p.Frequency), p.AverageAmount.StringFixed(2),
		p.LastSeen.Format(models.DateLayout), p.OccurrenceCount, p.CategoryID)
	if err != nil {
		return fmt.Errorf("upsert pattern: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListPatterns(ctx context.Context, userID string) ([]models.RecurringPattern, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, merchant, frequency, average_amount, last_seen, occurrence_count, category_id
		FROM recurring_patterns WHERE user_id = ?
		ORDER BY occurrence_count DESC, merchant, frequency`, userID)
	if err != nil {
		return nil, fmt.Errorf("query patterns: %w", err)
	}
	defer rows.Close()

	var out []models.RecurringPattern
	for rows.Next() {
		var (
			p               models.RecurringPattern
			freq, avg, seen string
		)
		if err := rows.Scan(&p.UserID, &p.Merchant, &freq, &avg, &seen, &p.OccurrenceCount, &p.CategoryID); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		p.Frequency = models.Frequency(freq)
		if p.AverageAmount, err = decimal.NewFromString(avg); err != nil {
			return nil, fmt.Errorf("parse average amount %q: %w", avg, err)
		}
		if p.LastSeen, err = time.Parse(models.DateLayout, seen); err != nil {
			return nil, fmt.Errorf("parse last seen %q: %w", seen, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListBudgets(ctx context.Context, userID string, month time.Time) ([]models.Budget, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.user_id, b.category_id, COALESCE(c.name, ''), b.amount, b.month
		FROM budgets b LEFT JOIN categories c ON c.id = b.category_id
		WHERE b.user_id = ? AND b.month = ?
		ORDER BY b.rowid`, userID, month.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	var out []models.Budget
	for rows.Next() {
		var (
			b             models.Budget
			amount, month string
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.CategoryName, &amount, &month); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		if b.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse budget amount %q: %w", amount, err)
		}
		if b.Month, err = time.Parse(models.DateLayout, month); err != nil {
			return nil, fmt.Errorf("parse budget month %q: %w", month, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveBudget(ctx context.Context, b models.Budget) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (id, user_id, category_id, amount, month) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, category_id, month) DO UPDATE SET amount = excluded.amount`,
		b.ID, b.UserID, b.CategoryID, b.Amount.String(), b.Month.Format(models.DateLayout))
	if err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, sess models.ImportSession) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}
	raw, err := json.Marshal(sess.Transactions)
	if err != nil {
		return fmt.Errorf("encode session rows: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO imports (
			id, user_id, account_id, source, status, storage_path, raw_result,
			transaction_count, duplicate_count, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.AccountID, string(sess.Source), string(sess.Status), sess.StoragePath,
		string(raw), sess.TransactionCount, sess.DuplicateCount, sess.CreatedAt.UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("insert import session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, userID, id string) (models.ImportSession, error) {
	var (
		sess                         models.ImportSession
		source, status, raw, created string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, account_id, source, status, storage_path, raw_result,
			transaction_count, duplicate_count, created_at
		FROM imports WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&sess.ID, &sess.UserID, &sess.AccountID, &source, &status, &sess.StoragePath, &raw,
			&sess.TransactionCount, &sess.DuplicateCount, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, ErrNotFound
	}
	if err != nil {
		return sess, fmt.Errorf("get import session: %w", err)
	}

	sess.Source = models.ImportSource(source)
	sess.Status = models.ImportStatus(status)
	if err := json.Unmarshal([]byte(raw), &sess.Transactions); err != nil {
		return sess, fmt.Errorf("decode session rows: %w", err)
	}
	if sess.CreatedAt, err = time.Parse(timestampLayout, created); err != nil {
		return sess, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	return sess, nil
}

func (s *SQLiteStore) UpdateSession(ctx context.Context, sess models.ImportSession) error {
	raw, err := json.Marshal(sess.Transactions)
	if err != nil {
		return fmt.Errorf("encode session rows: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE imports SET status = ?, storage_path = ?, raw_result = ?, transaction_count = ?, duplicate_count = ?
		WHERE id = ? AND user_id = ?`,
		string(sess.Status), sess.StoragePath, string(raw), sess.TransactionCount, sess.DuplicateCount,
		sess.ID, sess.UserID)
	if err != nil {
		return fmt.Errorf("update import session: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) ListSessions(ctx context.Context, userID string, limit int) ([]models.ImportSession, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, account_id, source, status, storage_path, transaction_count, duplicate_count, created_at
		FROM imports WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query import sessions: %w", err)
	}
	defer rows.Close()

	var out []models.ImportSession
	for rows.Next() {
		var (
			sess                    models.ImportSession
			source, status, created string
		)
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.AccountID, &source, &status, &sess.StoragePath,
			&sess.TransactionCount, &sess.DuplicateCount, &created); err != nil {
			return nil, fmt.Errorf("scan import session: %w", err)
		}
		sess.Source = models.ImportSource(source)
		sess.Status = models.ImportStatus(status)
		if sess.CreatedAt, err = time.Parse(timestampLayout, created); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", created, err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetAccount(ctx context.Context, userID, id string) (models.Account, error) {
	var (
		a    models.Account
		kind string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, kind, currency FROM accounts WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&a.ID, &a.UserID, &a.Name, &kind, &a.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	if err != nil {
		return a, fmt.Errorf("get account: %w", err)
	}
	a.Kind = models.AccountKind(kind)
	return a, nil
}

func (s *SQLiteStore) CreateAccount(ctx context.Context, a models.Account) error {
	if a.Currency == "" {
		a.Currency = models.DefaultCurrency
	}
	if a.Kind == "" {
		a.Kind = models.AccountBank
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, name, kind, currency) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, string(a.Kind), a.Currency)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

var _ Repository = (*SQLiteStore)(nil)
