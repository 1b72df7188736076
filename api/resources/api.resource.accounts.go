// FilePath: api/resources/api.resource.accounts.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/avisproject/avis-hub/internal/errors"
	"github.com/avisproject/avis-hub/internal/hubservice"
	"github.com/avisproject/avis-hub/internal/models"
	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"
)

// AccountHandlers encapsulates the account-related HTTP handlers
type AccountHandlers struct {
	hubservice *hubservice.HubService
}

type registerForm struct {
	Username  string `schema:"username,required"`
	Password  string `schema:"password,required"`
	Email     string `schema:"email,required"`
	FirstName string `schema:"first_name"`
	LastName  string `schema:"last_name"`
}

type loginForm struct {
	Username string `schema:"username,required"`
	Password string `schema:"password,required"`
}

type passwordChangeForm struct {
	CurrentPassword string `schema:"current_password,required"`
	NewPassword     string `schema:"new_password,required"`
}

type recoverForm struct {
	Username    string `schema:"username,required"`
	Email       string `schema:"email,required"`
	FirstName   string `schema:"first_name,required"`
	LastName    string `schema:"last_name,required"`
	NewPassword string `schema:"new_password,required"`
}

type loginResponse struct {
	Token   string          `json:"token"`
	Account *models.Account `json:"account"`
}

// @Summary Register a new account
// @Description Create an account from a url-encoded registration form
// @Tags accounts
// @Accept x-www-form-urlencoded
// @Produce json
// @Success 201 {object} models.Account
// @Failure 400 {object} errors.APIError
// @Failure 409 {object} errors.APIError
// @Router /accounts [post]
func (h *AccountHandlers) Register(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var form registerForm
	if err := decodeForm(r, &form); err != nil {
		respondWithError(w, errors.NewValidationError("invalid registration form", err).WithRequestID(requestID))
		return
	}

	account := &models.Account{
		Username:  form.Username,
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
	}

	if err := h.hubservice.CreateAccount(r.Context(), account, form.Password); err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	account.PasswordHash = ""
	respondWithJSON(w, http.StatusCreated, account)
}

// @Summary Log in
// @Description Exchange credentials for a bearer token
// @Tags accounts
// @Accept x-www-form-urlencoded
// @Produce json
// @Success 200 {object} loginResponse
// @Failure 401 {object} errors.APIError
// @Router /auth/login [post]
func (h *AccountHandlers) Login(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var form loginForm
	if err := decodeForm(r, &form); err != nil {
		respondWithError(w, errors.NewValidationError("invalid login form", err).WithRequestID(requestID))
		return
	}

	token, account, err := h.hubservice.Authenticate(r.Context(), form.Username, form.Password)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	account.PasswordHash = ""
	respondWithJSON(w, http.StatusOK, loginResponse{Token: token, Account: account})
}

// @Summary Get an account by username
// @Description Fields are filtered by viewer: email is owner-only
// @Tags accounts
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.Account
// @Failure 404 {object} errors.APIError
// @Router /accounts/{username} [get]
// @Security BearerAuth
func (h *AccountHandlers) GetAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	username := vars["username"]
	requestID := nuts.NID("req", 12)

	account, err := h.hubservice.GetAccount(r.Context(), username)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, account)
}

// @Summary Update an account
// @Description Update profile fields of the authenticated account
// @Tags accounts
// @Accept json
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.Account
// @Failure 400 {object} errors.APIError
// @Failure 403 {object} errors.APIError
// @Router /accounts/{username} [put]
// @Security BearerAuth
func (h *AccountHandlers) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	username := vars["username"]
	requestID := nuts.NID("req", 12)

	var account models.Account
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	if err := h.hubservice.UpdateAccount(r.Context(), username, &account); err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	updated, err := h.hubservice.GetAccount(r.Context(), username)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

// @Summary Change password
// @Description Replace the password after verifying the current one
// @Tags accounts
// @Accept x-www-form-urlencoded
// @Param username path string true "Username"
// @Success 204
// @Failure 401 {object} errors.APIError
// @Router /accounts/{username}/password [put]
// @Security BearerAuth
func (h *AccountHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	username := vars["username"]
	requestID := nuts.NID("req", 12)

	var form passwordChangeForm
	if err := decodeForm(r, &form); err != nil {
		respondWithError(w, errors.NewValidationError("invalid password form", err).WithRequestID(requestID))
		return
	}

	if err := h.hubservice.ChangePassword(r.Context(), username, form.CurrentPassword, form.NewPassword); err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Recover password
// @Description Reset a forgotten password by proving account identity
// @Tags accounts
// @Accept x-www-form-urlencoded
// @Success 204
// @Failure 401 {object} errors.APIError
// @Router /auth/recover [post]
func (h *AccountHandlers) RecoverPassword(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var form recoverForm
	if err := decodeForm(r, &form); err != nil {
		respondWithError(w, errors.NewValidationError("invalid recovery form", err).WithRequestID(requestID))
		return
	}

	err := h.hubservice.RecoverPassword(r.Context(), form.Username, form.Email, form.FirstName, form.LastName, form.NewPassword)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func decodeForm(r *http.Request, dst interface{}) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	return formDecoder.Decode(dst, r.PostForm)
}
