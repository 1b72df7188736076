// FilePath: internal/repository/postgres/postgres.account.go
package postgres

import (
	"context"
	"database/sql"

	"github.com/avisproject/avis-hub/internal/database"
	"github.com/avisproject/avis-hub/internal/errors"
	"github.com/avisproject/avis-hub/internal/models"
	"github.com/avisproject/avis-hub/internal/repository"
	"github.com/lib/pq"
)

type AccountRepo struct {
	PostgresBaseRepo
}

func NewAccountRepository(db database.DB) (*AccountRepo, error) {
	repo := &AccountRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *AccountRepo) initializeSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	if _, err := r.db.GetDB().Exec(query); err != nil {
		return errors.NewDatabaseError("failed to initialize accounts schema", err)
	}
	return nil
}

func (r *AccountRepo) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (
			id, username, email, first_name, last_name, password_hash, created_at
		) VALUES (
			:id, :username, :email, :first_name, :last_name, :password_hash, :created_at
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, account)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return errors.NewDatabaseError("failed to create account", err)
	}
	return nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (*models.Account, error) {
	account := &models.Account{}
	query := `SELECT * FROM accounts WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, account, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, errors.NewDatabaseError("failed to get account", err)
	}
	return account, nil
}

func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	account := &models.Account{}
	query := `SELECT * FROM accounts WHERE username = $1`

	err := r.db.GetDB().GetContext(ctx, account, query, username)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, errors.NewDatabaseError("failed to get account", err)
	}
	return account, nil
}

func (r *AccountRepo) Update(ctx context.Context, account *models.Account) error {
	query := `
		UPDATE accounts SET
			username = :username,
			email = :email,
			first_name = :first_name,
			last_name = :last_name
		WHERE id = :id`

	result, err := r.db.GetDB().NamedExecContext(ctx, query, account)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return errors.NewDatabaseError("failed to update account", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *AccountRepo) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	query := `UPDATE accounts SET password_hash = $1 WHERE username = $2`

	result, err := r.db.GetDB().ExecContext(ctx, query, passwordHash, username)
	if err != nil {
		return errors.NewDatabaseError("failed to update password", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// FindByIdentity matches an account by the full identity quadruple; used to
// verify a password-recovery request.
func (r *AccountRepo) FindByIdentity(ctx context.Context, username, email, firstName, lastName string) (*models.Account, error) {
	account := &models.Account{}
	query := `
		SELECT * FROM accounts
		WHERE username = $1 AND email = $2 AND first_name = $3 AND last_name = $4`

	err := r.db.GetDB().GetContext(ctx, account, query, username, email, firstName, lastName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, errors.NewDatabaseError("failed to find account", err)
	}
	return account, nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
