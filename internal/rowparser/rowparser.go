// Package rowparser turns delimited statement text into candidate rows.
//
// Structural problems (bad encoding, missing header or required columns, broken quoting)
// fail the whole input. Individual rows that cannot be coerced are dropped and logged.
package rowparser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"iter"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/gocarina/gocsv"

	"fjacquet/statement-ledger/internal/logging"
	"fjacquet/statement-ledger/internal/models"
	"fjacquet/statement-ledger/internal/parsererror"
)

// RequiredColumns must be present in the header, in any order and case.
var RequiredColumns = []string{"date", "description", "amount", "type"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parser parses delimited statement text.
type Parser struct {
	logger    logging.Logger
	delimiter rune
}

// Option configures a Parser.
type Option func(*Parser)

// WithDelimiter sets the field separator (default ',').
func WithDelimiter(r rune) Option {
	return func(p *Parser) { p.delimiter = r }
}

// New creates a Parser.
func New(logger logging.Logger, opts ...Option) *Parser {
	p := &Parser{logger: logging.OrDefault(logger), delimiter: ','}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse validates the header and returns a lazy sequence of candidate rows. The sequence can
// be consumed once; a second range over it yields nothing. A structural error found mid-stream
// is yielded once with a zero row and ends the sequence.
func (p *Parser) Parse(data []byte) (iter.Seq2[models.CandidateRow, error], error) {
	if !utf8.Valid(data) {
		return nil, &parsererror.MalformedInputError{Source: "csv", Reason: "input is not valid UTF-8"}
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = p.delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	um, err := gocsv.NewUnmarshaller(reader, Record{})
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &parsererror.MalformedInputError{Source: "csv", Reason: "missing header row"}
		}
		return nil, &parsererror.MalformedInputError{Source: "csv", Reason: "unreadable header", Err: err}
	}
	if err := um.RenormalizeHeaders(normalizeHeaders); err != nil {
		return nil, &parsererror.MalformedInputError{Source: "csv", Reason: "unreadable header", Err: err}
	}
	if missing := missingColumns(um.Headers); len(missing) > 0 {
		return nil, &parsererror.MalformedInputError{
			Source: "csv",
			Reason: "missing required column(s): " + strings.Join(missing, ", "),
		}
	}

	var consumed atomic.Bool
	return func(yield func(models.CandidateRow, error) bool) {
		if !consumed.CompareAndSwap(false, true) {
			return
		}
		row := 0
		for {
			value, err := um.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(models.CandidateRow{}, &parsererror.MalformedInputError{Source: "csv", Reason: "unreadable record", Err: err})
				return
			}
			row++

			rec, ok := value.(Record)
			if !ok || isBlank(rec) {
				continue
			}
			candidate, err := Coerce(rec, row)
			if err != nil {
				p.logger.Debug("Dropping statement row", logging.F(logging.FieldRow, row), logging.F(logging.FieldReason, err.Error()))
				continue
			}
			if !yield(candidate, nil) {
				return
			}
		}
	}, nil
}

// FromRecords returns a sequence over already-split records, applying the same coercion
// and filtering as Parse. It is used for rows returned by the statement-parsing service.
func (p *Parser) FromRecords(records []Record) iter.Seq2[models.CandidateRow, error] {
	var consumed atomic.Bool
	return func(yield func(models.CandidateRow, error) bool) {
		if !consumed.CompareAndSwap(false, true) {
			return
		}
		for i, rec := range records {
			candidate, err := Coerce(rec, i+1)
			if err != nil {
				p.logger.Debug("Dropping statement row", logging.F(logging.FieldRow, i+1), logging.F(logging.FieldReason, err.Error()))
				continue
			}
			if !yield(candidate, nil) {
				return
			}
		}
	}
}

// Collect drains seq, stopping at the first structural error.
func Collect(seq iter.Seq2[models.CandidateRow, error]) ([]models.CandidateRow, error) {
	var rows []models.CandidateRow
	for row, err := range seq {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func normalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

func missingColumns(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

func isBlank(rec Record) bool {
	return strings.TrimSpace(rec.Date+rec.Description+rec.Amount+rec.Type+rec.Merchant+rec.Notes+rec.Tags) == ""
}
