package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"custodia/internal/consent/models"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
)

// PostgresStore persists consents in PostgreSQL. The owner and consumer
// indices are derived from the consents table itself (append-only by
// construction: rows are never deleted, revocation only updates status).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed consent store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, consent *models.Consent) error {
	if consent == nil {
		return fmt.Errorf("consent is required")
	}
	query := `
		INSERT INTO consents (id, data_owner, data_consumer, purpose, data_types,
			created_at, expires_at, status, revoked_at, access_count, last_accessed, terms_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		consent.ID[:],
		consent.DataOwner.String(),
		consent.DataConsumer.String(),
		string(consent.Purpose),
		encodeDataTypes(consent.DataTypes),
		consent.CreatedAt,
		nullableTime(consent.ExpiresAt),
		string(consent.Status),
		consent.RevokedAt,
		int64(consent.AccessCount),
		consent.LastAccessed,
		consent.TermsHash[:],
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("save consent: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, consentID id.ConsentID) (*models.Consent, error) {
	query := `
		SELECT id, data_owner, data_consumer, purpose, data_types,
			created_at, expires_at, status, revoked_at, access_count, last_accessed, terms_hash
		FROM consents
		WHERE id = $1
	`
	consent, err := scanConsent(s.db.QueryRowContext(ctx, query, consentID[:]))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find consent: %w", err)
	}
	return consent, nil
}

func (s *PostgresStore) Update(ctx context.Context, consent *models.Consent) error {
	if consent == nil {
		return fmt.Errorf("consent is required")
	}
	query := `
		UPDATE consents
		SET data_types = $2, expires_at = $3, status = $4, revoked_at = $5,
			access_count = $6, last_accessed = $7
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		consent.ID[:],
		encodeDataTypes(consent.DataTypes),
		nullableTime(consent.ExpiresAt),
		string(consent.Status),
		consent.RevokedAt,
		int64(consent.AccessCount),
		consent.LastAccessed,
	)
	if err != nil {
		return fmt.Errorf("update consent: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update consent rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) OwnerIndex(ctx context.Context, owner id.AccountID) ([]id.ConsentID, error) {
	return s.index(ctx, `SELECT id FROM consents WHERE data_owner = $1 ORDER BY created_at, id`, owner)
}

func (s *PostgresStore) ConsumerIndex(ctx context.Context, consumer id.AccountID) ([]id.ConsentID, error) {
	return s.index(ctx, `SELECT id FROM consents WHERE data_consumer = $1 ORDER BY created_at, id`, consumer)
}

func (s *PostgresStore) index(ctx context.Context, query string, account id.AccountID) ([]id.ConsentID, error) {
	rows, err := s.db.QueryContext(ctx, query, account.String())
	if err != nil {
		return nil, fmt.Errorf("list consent index: %w", err)
	}
	defer rows.Close()

	var ids []id.ConsentID
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan consent id: %w", err)
		}
		var consentID id.ConsentID
		copy(consentID[:], raw)
		ids = append(ids, consentID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consent index: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) AppendAccessLog(ctx context.Context, log models.AccessLog) error {
	query := `
		INSERT INTO consent_access_logs (consent_id, accessor, accessed_at, data_hash, approved)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		log.ConsentID[:],
		log.Accessor.String(),
		log.AccessedAt,
		log.DataHash[:],
		log.Approved,
	)
	if err != nil {
		return fmt.Errorf("append access log: %w", err)
	}
	return nil
}

func (s *PostgresStore) AccessLogs(ctx context.Context, consentID id.ConsentID) ([]models.AccessLog, error) {
	query := `
		SELECT consent_id, accessor, accessed_at, data_hash, approved
		FROM consent_access_logs
		WHERE consent_id = $1
		ORDER BY accessed_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, consentID[:])
	if err != nil {
		return nil, fmt.Errorf("list access logs: %w", err)
	}
	defer rows.Close()

	var logs []models.AccessLog
	for rows.Next() {
		var log models.AccessLog
		var rawID, rawHash []byte
		var accessor string
		if err := rows.Scan(&rawID, &accessor, &log.AccessedAt, &rawHash, &log.Approved); err != nil {
			return nil, fmt.Errorf("scan access log: %w", err)
		}
		copy(log.ConsentID[:], rawID)
		copy(log.DataHash[:], rawHash)
		log.Accessor = id.AccountID(accessor)
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access logs: %w", err)
	}
	return logs, nil
}

func (s *PostgresStore) NextNonce(ctx context.Context) (uint64, error) {
	var nonce int64
	if err := s.db.QueryRowContext(ctx, `SELECT nextval('consent_nonce_seq')`).Scan(&nonce); err != nil {
		return 0, fmt.Errorf("advance consent nonce: %w", err)
	}
	return uint64(nonce), nil
}

type consentRow interface {
	Scan(dest ...any) error
}

func scanConsent(row consentRow) (*models.Consent, error) {
	var consent models.Consent
	var rawID, rawHash []byte
	var owner, consumer, purpose, dataTypes, status string
	var expiresAt sql.NullTime
	var accessCount int64
	if err := row.Scan(&rawID, &owner, &consumer, &purpose, &dataTypes,
		&consent.CreatedAt, &expiresAt, &status, &consent.RevokedAt, &accessCount,
		&consent.LastAccessed, &rawHash); err != nil {
		return nil, err
	}
	copy(consent.ID[:], rawID)
	copy(consent.TermsHash[:], rawHash)
	consent.DataOwner = id.AccountID(owner)
	consent.DataConsumer = id.AccountID(consumer)
	consent.Purpose = models.Purpose(purpose)
	consent.DataTypes = decodeDataTypes(dataTypes)
	consent.Status = models.Status(status)
	consent.AccessCount = uint64(accessCount)
	if expiresAt.Valid {
		consent.ExpiresAt = expiresAt.Time
	}
	return &consent, nil
}

// encodeDataTypes stores the bounded enum list as a comma-joined string; no
// element contains a comma.
func encodeDataTypes(dataTypes []models.DataType) string {
	parts := make([]string, len(dataTypes))
	for i, dt := range dataTypes {
		parts[i] = string(dt)
	}
	return strings.Join(parts, ",")
}

func decodeDataTypes(encoded string) []models.DataType {
	if encoded == "" {
		return nil
	}
	parts := strings.Split(encoded, ",")
	dataTypes := make([]models.DataType, len(parts))
	for i, p := range parts {
		dataTypes[i] = models.DataType(p)
	}
	return dataTypes
}

func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
