// FilePath: internal/hubservice/hubservice.account.go
package hubservice

import (
	"context"
	"time"

	"github.com/avisproject/avis-hub/internal/errors"
	"github.com/avisproject/avis-hub/internal/models"
	"github.com/itsatony/struccy"
	nuts "github.com/vaudience/go-nuts"
	"golang.org/x/crypto/bcrypt"
)

// CreateAccount registers a new account. The password is bcrypt-hashed
// before anything touches the database; the clear text is never stored.
func (s *HubService) CreateAccount(ctx context.Context, account *models.Account, password string) error {
	if account.Username == "" {
		return errors.NewValidationError("username is required", nil)
	}
	if account.Email == "" {
		return errors.NewValidationError("email is required", nil)
	}
	if password == "" {
		return errors.NewValidationError("password is required", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.NewInternalError("failed to hash password", err)
	}
	account.PasswordHash = string(hash)

	if account.ID == "" {
		account.ID = nuts.NID("acc", 12)
	}
	account.CreatedAt = time.Now()

	nuts.L.Infof("[AccountService] Creating new account: %s (%s)", account.Username, account.ID)
	return s.Accounts.Create(ctx, account)
}

// Authenticate verifies credentials and issues a bearer token. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *HubService) Authenticate(ctx context.Context, username, password string) (string, *models.Account, error) {
	account, err := s.Accounts.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, errors.NewAuthError("invalid credentials", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", nil, errors.NewAuthError("invalid credentials", nil)
	}

	token, err := s.Tokens.Issue(ctx, account.ID)
	if err != nil {
		return "", nil, errors.NewInternalError("failed to issue token", err)
	}

	nuts.L.Infof("[AccountService] Authenticated account %s", account.ID)
	return token, account, nil
}

// GetAccount retrieves an account by username with role-based field
// filtering: email is only visible to the account itself, the password
// hash to nobody.
func (s *HubService) GetAccount(ctx context.Context, username string) (*models.Account, error) {
	account, err := s.Accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	roles := rolesFor(ctx, account.ID)

	filteredMap, err := struccy.StructToMapFieldsWithReadXS(account, roles)
	if err != nil {
		return nil, errors.NewInternalError("failed to filter account fields", err)
	}
	filtered := &models.Account{}
	_, err = struccy.MergeMapStringFieldsToStruct(filtered, filteredMap, roles)
	if err != nil {
		return nil, errors.NewInternalError("failed to map filtered fields to account struct", err)
	}

	return filtered, nil
}

// UpdateAccount updates profile fields of the named account with
// role-based write access.
func (s *HubService) UpdateAccount(ctx context.Context, username string, patch *models.Account) error {
	existing, err := s.Accounts.GetByUsername(ctx, username)
	if err != nil {
		return err
	}

	roles := rolesFor(ctx, existing.ID)

	updatedFields, _, err := struccy.UpdateStructFields(existing, patch, roles, true, true)
	if err != nil {
		return errors.NewAuthorizationError("unauthorized field update", err)
	}

	nuts.L.Infof("[AccountService] Updating account %s, fields changed: %v", existing.ID, updatedFields)
	return s.Accounts.Update(ctx, existing)
}

// ChangePassword replaces an account's password after verifying the
// current one.
func (s *HubService) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error {
	account, err := s.Accounts.GetByUsername(ctx, username)
	if err != nil {
		return errors.NewAuthError("invalid credentials", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(currentPassword)); err != nil {
		return errors.NewAuthError("invalid credentials", nil)
	}

	return s.setPassword(ctx, account.Username, newPassword)
}

// RecoverPassword resets a forgotten password when the caller can supply
// the account's full identity: username, email, first and last name must
// all match the stored record.
func (s *HubService) RecoverPassword(ctx context.Context, username, email, firstName, lastName, newPassword string) error {
	account, err := s.Accounts.FindByIdentity(ctx, username, email, firstName, lastName)
	if err != nil {
		return errors.NewAuthError("account details do not match", nil)
	}

	nuts.L.Infof("[AccountService] Password recovery for account %s", account.ID)
	return s.setPassword(ctx, account.Username, newPassword)
}

func (s *HubService) setPassword(ctx context.Context, username, newPassword string) error {
	if newPassword == "" {
		return errors.NewValidationError("new password is required", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.NewInternalError("failed to hash password", err)
	}

	return s.Accounts.UpdatePassword(ctx, username, string(hash))
}
