package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockNotAvailable is the SQLSTATE raised when NOWAIT cannot take the lock
const lockNotAvailable = "55P03"

// NumberSequenceRow is the storage model for per-prefix invoice counters
type NumberSequenceRow struct {
	Prefix    string `gorm:"primaryKey;size:50"`
	LastValue int    `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// TableName sets the database table name
func (NumberSequenceRow) TableName() string {
	return "invoice_number_sequences"
}

// GormNumberSequence allocates invoice numbers from a counter table. The
// counter row is taken with FOR UPDATE NOWAIT so a second allocator hitting
// the same prefix fails immediately instead of queueing; the failure maps
// to shared.ErrNumberContention.
type GormNumberSequence struct {
	db *gorm.DB
}

// NewGormNumberSequence creates a new GormNumberSequence
func NewGormNumberSequence(db *gorm.DB) *GormNumberSequence {
	return &GormNumberSequence{db: db}
}

// Next allocates the next sequence value for the prefix
func (s *GormNumberSequence) Next(ctx context.Context, prefix string) (int, error) {
	var value int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Ensure the counter row exists before locking it
		seed := NumberSequenceRow{Prefix: prefix}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		query := tx.Model(&NumberSequenceRow{})
		// Row locks only exist on postgres; sqlite serializes writers on
		// its own so the plain read is already exclusive there.
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "NOWAIT"})
		}

		var row NumberSequenceRow
		if err := query.Where("prefix = ?", prefix).First(&row).Error; err != nil {
			return translateLockError(err)
		}

		row.LastValue++
		row.UpdatedAt = time.Now()
		if err := tx.Model(&NumberSequenceRow{}).
			Where("prefix = ?", prefix).
			Updates(map[string]interface{}{
				"last_value": row.LastValue,
				"updated_at": row.UpdatedAt,
			}).Error; err != nil {
			return err
		}

		value = row.LastValue
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

// translateLockError maps the postgres lock_not_available error raised by
// NOWAIT to the domain contention error
func translateLockError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == lockNotAvailable {
		return shared.ErrNumberContention
	}
	return err
}
