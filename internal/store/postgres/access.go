package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/gooleh/Hotel-Management-App/internal/models"
	"github.com/gooleh/Hotel-Management-App/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

func (s *Store) Login(ctx context.Context, phone, password string, expiresAt time.Time) (models.Session, error) {
	var approved models.ApprovedNumber
	var passwordHash sql.NullString
	row := s.pool.QueryRow(ctx, `
		SELECT phone, name, department, password_hash
		FROM approved_numbers
		WHERE phone = $1
	`, phone)
	if err := row.Scan(&approved.Phone, &approved.Name, &approved.Department, &passwordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, store.ErrNotApproved
		}
		return models.Session{}, err
	}

	// Admin rows carry a password hash; the check happens here, never in
	// the client.
	if approved.Department == models.DeptAdmin {
		if !passwordHash.Valid {
			return models.Session{}, store.ErrBadCredential
		}
		if err := bcrypt.CompareHashAndPassword([]byte(passwordHash.String), []byte(password)); err != nil {
			return models.Session{}, store.ErrBadCredential
		}
	}

	session := models.Session{
		SessionID:  uuid.NewString(),
		Phone:      approved.Phone,
		Name:       approved.Name,
		Department: approved.Department,
		ExpiresAt:  expiresAt,
	}
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, phone, name, department, expires_at)
		VALUES ($1,$2,$3,$4,$5)
	`, session.SessionID, session.Phone, session.Name, session.Department, session.ExpiresAt); err != nil {
		return models.Session{}, err
	}
	return session, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	var session models.Session
	row := s.pool.QueryRow(ctx, `
		SELECT session_id, phone, name, department, expires_at
		FROM sessions
		WHERE session_id = $1
	`, sessionID)
	if err := row.Scan(&session.SessionID, &session.Phone, &session.Name, &session.Department, &session.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, store.ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

func (s *Store) ListApprovedNumbers(ctx context.Context) ([]models.ApprovedNumber, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT phone, name, department
		FROM approved_numbers
		ORDER BY phone
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var numbers []models.ApprovedNumber
	for rows.Next() {
		var number models.ApprovedNumber
		if err := rows.Scan(&number.Phone, &number.Name, &number.Department); err != nil {
			decodeErrors.Add(1)
			log.Printf("approved number decode error: %v", err)
			continue
		}
		numbers = append(numbers, number)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return numbers, nil
}

func (s *Store) AddApprovedNumber(ctx context.Context, number models.ApprovedNumber, password string) error {
	passwordHash := sql.NullString{}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		passwordHash = sql.NullString{String: string(hash), Valid: true}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO approved_numbers (phone, name, department, password_hash)
		VALUES ($1,$2,$3,$4)
	`, number.Phone, number.Name, number.Department, passwordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// DeleteApprovedNumber revokes the number and every live session it holds,
// so removal takes effect immediately rather than at session expiry.
func (s *Store) DeleteApprovedNumber(ctx context.Context, phone string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM sessions WHERE phone = $1`, phone); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM approved_numbers WHERE phone = $1`, phone); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
