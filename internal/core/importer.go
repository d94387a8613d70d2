package core

// importer.go drives a whole CSV payload through tokenize → resolve →
// validate → upsert.
//
// Rows are applied one at a time in file order with no surrounding
// transaction: a failure on one row is recorded and the next row is
// processed, so a later success never depends on an earlier failure and
// rows already written stay written if the call is interrupted.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/userimport/internal/logging"
)

// ErrNotEnoughLines is returned when a file lacks a header and at least one data row.
var ErrNotEnoughLines = errors.New("csv file must contain a header line and at least one data row")

// Importer upserts users from CSV text into a UserStore, keyed by email.
type Importer struct {
	store   UserStore
	hasher  PasswordHasher
	aliases AliasTable
	now     func() time.Time
}

// NewImporter creates an importer. A nil aliases table uses DefaultAliases.
func NewImporter(store UserStore, hasher PasswordHasher, aliases AliasTable) *Importer {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &Importer{
		store:   store,
		hasher:  hasher,
		aliases: aliases,
		now:     time.Now,
	}
}

// parsedFile is the tokenized form of one upload.
type parsedFile struct {
	validator *RowValidator
	rows      [][]string
}

// parse applies the structural checks; any error aborts the whole call.
func (im *Importer) parse(raw string) (*parsedFile, error) {
	lines := nonBlankLines(StripBOM(raw))
	if len(lines) < 2 {
		return nil, ErrNotEnoughLines
	}

	headers, err := ResolveHeaders(SplitLine(lines[0]), im.aliases)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		fields := SplitLine(line)
		if isBlankRow(fields) {
			continue
		}
		rows = append(rows, fields)
	}

	return &parsedFile{validator: NewRowValidator(headers), rows: rows}, nil
}

// Import processes raw CSV text. It returns an error only for structural
// problems (too few lines, missing required columns) or context
// cancellation; every per-row problem is reported in the outcome.
//
// A cancelled import returns the partial outcome alongside the error.
// Its counts cover the rows already attempted and Pending holds the rest.
func (im *Importer) Import(ctx context.Context, raw string) (*ImportOutcome, error) {
	start := im.now()
	logger := logging.WithFields(ctx, "import_id", uuid.NewString(), "ip", IPAddressFromContext(ctx))

	pf, err := im.parse(raw)
	if err != nil {
		logger.Warn("import rejected", "error", err)
		return nil, err
	}

	outcome := newImportOutcome()
	outcome.Total = len(pf.rows)
	logger.Info("import started", "rows", outcome.Total)

	for i, row := range pf.rows {
		if err := ctx.Err(); err != nil {
			outcome.Total = i
			outcome.Pending = len(pf.rows) - i
			logger.Warn("import interrupted", "processed", i, "pending", outcome.Pending, "error", err)
			return outcome, fmt.Errorf("import interrupted after %d of %d rows: %w", i, len(pf.rows), err)
		}

		rowNum := i + 2
		rec := pf.validator.Record(row)

		user, rowErr := pf.validator.Validate(row, rowNum)
		if rowErr != nil {
			logger.Debug("row rejected", "row", rowNum, "error", rowErr)
			outcome.fail(rowNum, rec, rowErr.Error())
			continue
		}

		created, err := im.upsert(ctx, user)
		if err != nil {
			logger.Debug("row failed", "row", rowNum, "error", err)
			outcome.fail(rowNum, rec, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		if created {
			outcome.Success++
		} else {
			outcome.Updated++
		}
	}

	logger.Info("import completed",
		"total", outcome.Total,
		"success", outcome.Success,
		"updated", outcome.Updated,
		"failed", outcome.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return outcome, nil
}

// upsert inserts v or overwrites the existing user with the same email.
// It reports whether a new user was created.
func (im *Importer) upsert(ctx context.Context, v ValidatedUser) (bool, error) {
	hash, err := im.hasher.Hash(v.Password)
	if err != nil {
		return false, err
	}
	u := v.ToUser(hash)

	existing, err := im.store.FindByEmail(ctx, v.Email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		if err := im.store.Insert(ctx, u); err != nil {
			return false, fmt.Errorf("insert user: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("find user: %w", err)
	}

	u.ID = existing.ID
	u.CreatedAt = existing.CreatedAt
	if err := im.store.ReplaceByEmail(ctx, v.Email, u); err != nil {
		return false, fmt.Errorf("update user: %w", err)
	}
	return false, nil
}

// Validate runs the import checks without touching the store.
func (im *Importer) Validate(ctx context.Context, raw string) (*ValidationReport, error) {
	pf, err := im.parse(raw)
	if err != nil {
		return nil, err
	}

	report := &ValidationReport{TotalRows: len(pf.rows), Errors: []ImportError{}}
	for i, row := range pf.rows {
		rowNum := i + 2
		if _, rowErr := pf.validator.Validate(row, rowNum); rowErr != nil {
			report.Errors = append(report.Errors, ImportError{
				Row:     rowNum,
				RawData: pf.validator.Record(row),
				Message: rowErr.Error(),
			})
			continue
		}
		report.ValidRows++
	}
	report.Valid = len(report.Errors) == 0

	logging.FromContext(ctx).Debug("import validated",
		"rows", report.TotalRows,
		"valid", report.ValidRows,
	)

	return report, nil
}
