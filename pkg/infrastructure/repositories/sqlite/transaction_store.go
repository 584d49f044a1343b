// Package sqlite provides a SQLite-backed transaction repository.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	apperrors "github.com/vsinha/shipcheckout/pkg/domain/errors"
	"github.com/vsinha/shipcheckout/pkg/domain/repositories"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/repositories/sqlite/migrations"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/storage/sqlitemigrate"
)

// Store persists checkout transactions in SQLite. The full record is kept as
// JSON; status, step and pickup columns are denormalized for filtering. The
// corporate account PIN hash is excluded from the JSON and kept in its own column.
type Store struct {
	sqlDB *sql.DB
}

// Verify interface compliance
var _ repositories.TransactionRepository = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens the database at path and applies embedded migrations
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get loads one transaction
func (s *Store) Get(ctx context.Context, id string) (*entities.ShippingTransaction, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var payload, pinHash string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT payload, pin_hash FROM transactions WHERE id = ?`, id).Scan(&payload, &pinHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("transaction not found: %s", id))
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return decode(payload, pinHash)
}

// Save upserts the transaction
func (s *Store) Save(ctx context.Context, tx *entities.ShippingTransaction) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if tx == nil || strings.TrimSpace(tx.ID) == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "transaction id is required")
	}
	payload, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode transaction %s: %w", tx.ID, err)
	}

	var pickupDate, pickupSlot string
	if tx.Pickup != nil {
		pickupDate, pickupSlot = tx.Pickup.Date, tx.Pickup.Slot.ID
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO transactions (
		   id, status, step, pickup_date, pickup_slot, confirmation_number, payload, pin_hash, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status = excluded.status,
		   step = excluded.step,
		   pickup_date = excluded.pickup_date,
		   pickup_slot = excluded.pickup_slot,
		   confirmation_number = excluded.confirmation_number,
		   payload = excluded.payload,
		   pin_hash = excluded.pin_hash,
		   updated_at = excluded.updated_at`,
		tx.ID,
		string(tx.Status),
		tx.Step.String(),
		pickupDate,
		pickupSlot,
		tx.ConfirmationNumber,
		string(payload),
		tx.AccountPINHash(),
		toMillis(tx.CreatedAt),
		toMillis(tx.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Wrap(apperrors.CodeAlreadyExists, "confirmation number already issued", err)
		}
		return fmt.Errorf("save transaction %s: %w", tx.ID, err)
	}
	return nil
}

// Delete removes one transaction
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if affected == 0 {
		return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("transaction not found: %s", id))
	}
	return nil
}

// List returns transactions ordered by most recent update first
func (s *Store) List(ctx context.Context, filter repositories.TransactionFilter) ([]*entities.ShippingTransaction, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	query := `SELECT payload, pin_hash FROM transactions`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY updated_at DESC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var result []*entities.ShippingTransaction
	for rows.Next() {
		var payload, pinHash string
		if err := rows.Scan(&payload, &pinHash); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx, err := decode(payload, pinHash)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return result, nil
}

// CountPickups counts non-cancelled transactions booked into the slot
func (s *Store) CountPickups(ctx context.Context, date, slotID string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var count int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE pickup_date = ? AND pickup_slot = ? AND status <> ?`,
		date, slotID, string(entities.StatusCancelled),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pickups for %s %s: %w", date, slotID, err)
	}
	return count, nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func decode(payload, pinHash string) (*entities.ShippingTransaction, error) {
	var tx entities.ShippingTransaction
	if err := json.Unmarshal([]byte(payload), &tx); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	tx.SetAccountPINHash(pinHash)
	return &tx, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
