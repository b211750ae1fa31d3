package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"custodia/internal/identity/models"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
)

// PostgresStore persists identities and the verification queue in PostgreSQL.
// DID uniqueness rides on a unique index rather than a separate lookup table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed identity store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, identity *models.Identity) error {
	if identity == nil {
		return fmt.Errorf("identity is required")
	}
	query := `
		INSERT INTO identities (owner, did, role, name, email_hash,
			verification_status, registered_at, updated_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		identity.Owner.String(),
		identity.DID.String(),
		string(identity.Role),
		identity.Name,
		identity.EmailHash[:],
		string(identity.VerificationStatus),
		identity.RegisteredAt,
		identity.UpdatedAt,
		identity.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, account id.AccountID) (*models.Identity, error) {
	return s.get(ctx, `WHERE owner = $1`, account.String())
}

func (s *PostgresStore) GetByDID(ctx context.Context, did id.DID) (*models.Identity, error) {
	return s.get(ctx, `WHERE did = $1`, did.String())
}

func (s *PostgresStore) get(ctx context.Context, where string, arg string) (*models.Identity, error) {
	query := `
		SELECT owner, did, role, name, email_hash,
			verification_status, registered_at, updated_at, active
		FROM identities ` + where
	identity, err := scanIdentity(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return identity, nil
}

func (s *PostgresStore) Update(ctx context.Context, identity *models.Identity) error {
	if identity == nil {
		return fmt.Errorf("identity is required")
	}
	query := `
		UPDATE identities
		SET name = $2, email_hash = $3, verification_status = $4,
			updated_at = $5, active = $6
		WHERE owner = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		identity.Owner.String(),
		identity.Name,
		identity.EmailHash[:],
		string(identity.VerificationStatus),
		identity.UpdatedAt,
		identity.Active,
	)
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update identity rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Enqueue(ctx context.Context, account id.AccountID, at time.Time) error {
	query := `
		INSERT INTO verification_queue (owner, requested_at)
		VALUES ($1, $2)
		ON CONFLICT (owner) DO UPDATE SET requested_at = EXCLUDED.requested_at
	`
	if _, err := s.db.ExecContext(ctx, query, account.String(), at); err != nil {
		return fmt.Errorf("enqueue verification: %w", err)
	}
	return nil
}

func (s *PostgresStore) Dequeue(ctx context.Context, account id.AccountID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM verification_queue WHERE owner = $1`, account.String()); err != nil {
		return fmt.Errorf("dequeue verification: %w", err)
	}
	return nil
}

func (s *PostgresStore) PendingVerifications(ctx context.Context) ([]id.AccountID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT owner FROM verification_queue ORDER BY requested_at`)
	if err != nil {
		return nil, fmt.Errorf("list pending verifications: %w", err)
	}
	defer rows.Close()

	var accounts []id.AccountID
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("scan pending verification: %w", err)
		}
		accounts = append(accounts, id.AccountID(owner))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending verifications: %w", err)
	}
	return accounts, nil
}

type identityRow interface {
	Scan(dest ...any) error
}

func scanIdentity(row identityRow) (*models.Identity, error) {
	var identity models.Identity
	var owner, did, role, status string
	var emailHash []byte
	if err := row.Scan(&owner, &did, &role, &identity.Name, &emailHash,
		&status, &identity.RegisteredAt, &identity.UpdatedAt, &identity.Active); err != nil {
		return nil, err
	}
	identity.Owner = id.AccountID(owner)
	identity.DID = id.DID(did)
	identity.Role = models.Role(role)
	identity.VerificationStatus = models.VerificationStatus(status)
	copy(identity.EmailHash[:], emailHash)
	return &identity, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
