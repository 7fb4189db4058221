// Package account serves the users resource.
package account

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/radiusfinancial/radius-api/internal/access"
	"github.com/radiusfinancial/radius-api/internal/apperr"
	"github.com/radiusfinancial/radius-api/internal/auth"
	"github.com/radiusfinancial/radius-api/internal/httputil"
	"github.com/radiusfinancial/radius-api/internal/logging"
	"github.com/radiusfinancial/radius-api/internal/user"
)

const maxImageSize = 5 << 20

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageStore stores uploaded profile images.
type ImageStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
}

type Handler struct {
	service *auth.Service
	users   user.Store
	images  *user.ImageResolver
	uploads ImageStore
	siteURL string
}

// NewHandler creates the users handler. uploads may be nil, which disables
// image uploads.
func NewHandler(service *auth.Service, users user.Store, images *user.ImageResolver, uploads ImageStore, siteURL string) *Handler {
	return &Handler{
		service: service,
		users:   users,
		images:  images,
		uploads: uploads,
		siteURL: strings.TrimSuffix(siteURL, "/"),
	}
}

// Routes returns the users resource for mounting with chi's Route.
// createMiddlewares wrap only account creation. Authentication is optional
// on every route; the access policy decides per operation.
func (h *Handler) Routes(createMiddlewares ...func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.With(createMiddlewares...).Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/from-token", h.FromToken)
		r.Post("/impersonate", h.Impersonate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
			r.Get("/image", h.Image)
			r.Post("/image", h.UploadImage)
		})
	}
}

// UserResponse is the public representation of an account.
type UserResponse struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	PreferredName string     `json:"preferred_name"`
	FullName      string     `json:"full_name"`
	ShortName     string     `json:"short_name"`
	Gender        *string    `json:"gender"`
	Birthdate     *string    `json:"birthdate"`
	Age           int        `json:"age"`
	Phone         string     `json:"phone"`
	Image         string     `json:"image"`
	IsSuperuser   bool       `json:"is_superuser"`
	IsDeveloper   bool       `json:"is_developer"`
	IsStaff       bool       `json:"is_staff"`
	IsValidated   bool       `json:"is_validated"`
	DateJoined    time.Time  `json:"date_joined"`
	LastLogin     *time.Time `json:"last_login"`
}

// ImpersonateRequest names the account to act as.
type ImpersonateRequest struct {
	Email string `json:"email"`
}

func (h *Handler) toResponse(u *user.User) UserResponse {
	resp := UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		PreferredName: u.PreferredName,
		FullName:      u.FullName(),
		ShortName:     u.ShortName(),
		Age:           u.Age(),
		Phone:         u.Phone,
		Image:         h.siteURL + "/users/" + u.ID.String() + "/image",
		IsSuperuser:   u.IsSuperuser,
		IsDeveloper:   u.IsDeveloper,
		IsStaff:       u.IsStaff(),
		IsValidated:   u.IsValidated(),
		DateJoined:    u.DateJoined,
		LastLogin:     u.LastLogin,
	}
	if u.Gender != nil {
		g := string(*u.Gender)
		resp.Gender = &g
	}
	if u.Birthdate != nil {
		b := u.Birthdate.Format("2006-01-02")
		resp.Birthdate = &b
	}
	return resp
}

// Create registers an account
// @Summary      Create an account
// @Description  Anyone may register. Role flags in the body are ignored. A validation email is sent.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body user.Registration true "Account details"
// @Success      201 {object} UserResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid input or duplicate email"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /users [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var reg user.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	u, err := h.service.Register(r.Context(), reg)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			logger.Warn("registration failed: email already exists")
		}
		httputil.RespondAppError(w, r, err)
		return
	}

	logger.Info("user registered successfully", "user_id", u.ID)
	httputil.RespondJSON(w, h.toResponse(u), http.StatusCreated)
}

// List returns the accounts visible to the caller
// @Summary      List accounts
// @Description  Superusers see every account, other users only themselves.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} UserResponse
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Router       /users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())
	if err := access.Authorize(caller, access.ReadList, uuid.Nil); err != nil {
		httputil.RespondAppError(w, r, err)
		return
	}

	users, err := h.users.List(r.Context(), access.ListScope(caller))
	if err != nil {
		httputil.RespondAppError(w, r, err)
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, h.toResponse(u))
	}
	httputil.RespondJSON(w, resp, http.StatusOK)
}

// Get returns one account
// @Summary      Get an account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Success      200 {object} UserResponse
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Failure      403 {object} httputil.ErrorResponse "Not your account"
// @Failure      404 {object} httputil.ErrorResponse "Not found"
// @Router       /users/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := h.authorizedTarget(w, r, access.ReadDetail)
	if !ok {
		return
	}
	httputil.RespondJSON(w, h.toResponse(u), http.StatusOK)
}

// Update applies a partial update
// @Summary      Update an account
// @Description  Email is read-only. is_superuser and is_developer are only applied for superusers.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Param        request body user.Patch true "Fields to change"
// @Success      200 {object} UserResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid input"
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Failure      403 {object} httputil.ErrorResponse "Not your account"
// @Failure      404 {object} httputil.ErrorResponse "Not found"
// @Router       /users/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	u, ok := h.authorizedTarget(w, r, access.Update)
	if !ok {
		return
	}

	var patch user.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		logger.Warn("invalid update request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	patch = access.SanitizeUpdate(auth.CallerFromContext(r.Context()), patch)
	if err := patch.Apply(u); err != nil {
		httputil.RespondAppError(w, r, err)
		return
	}

	if err := h.users.UpdateProfile(r.Context(), u); err != nil {
		httputil.RespondAppError(w, r, err)
		return
	}

	logger.Info("user updated", "user_id", u.ID)
	httputil.RespondJSON(w, h.toResponse(u), http.StatusOK)
}

// Delete removes an account
// @Summary      Delete an account
// @Tags         users
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Success      204
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Failure      403 {object} httputil.ErrorResponse "Not your account"
// @Failure      404 {object} httputil.ErrorResponse "Not found"
// @Router       /users/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	u, ok := h.authorizedTarget(w, r, access.Delete)
	if !ok {
		return
	}

	if err := h.service.DeleteAccount(r.Context(), u); err != nil {
		httputil.RespondAppError(w, r, err)
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("user deleted", "user_id", u.ID)
	w.WriteHeader(http.StatusNoContent)
}

// FromToken returns the account an access token belongs to
// @Summary      Resolve a token
// @Tags         users
// @Produce      json
// @Param        token query string true "Access token"
// @Success      200 {object} UserResponse
// @Failure      404 {object} httputil.ErrorResponse "Unknown token"
// @Router       /users/from-token [get]
func (h *Handler) FromToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httputil.RespondAppError(w, r, apperr.NotFound(""))
		return
	}

	u, err := h.service.UserFromToken(r.Context(), token)
	if err != nil {
		httputil.RespondAppError(w, r, err)
		return
	}
	httputil.RespondJSON(w, h.toResponse(u), http.StatusOK)
}

// Impersonate issues tokens for another account
// @Summary      Impersonate an account
// @Description  Superusers only.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ImpersonateRequest true "Account email"
// @Success      200 {object} auth.TokenResponse
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Failure      403 {object} httputil.ErrorResponse "Not a superuser"
// @Failure      404 {object} httputil.ErrorResponse "Unknown email"
// @Router       /users/impersonate [post]
func (h *Handler) Impersonate(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	caller := auth.CallerFromContext(r.Context())
	if !caller.Authenticated {
		httputil.RespondAppError(w, r, apperr.Authentication(httputil.CodeMissingAuth, ""))
		return
	}
	if !caller.IsSuperuser {
		httputil.RespondAppError(w, r, apperr.PermissionDenied())
		return
	}

	var req ImpersonateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		httputil.RespondErrorWithCode(w, "email is required", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	target, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		httputil.RespondAppError(w, r, err)
		return
	}

	tokens, err := h.service.TokensFor(r.Context(), target)
	if err != nil {
		httputil.RespondAppError(w, r, err)
		return
	}

	logger.Warn("impersonation token issued", "operator_id", caller.ID, "user_id", target.ID)
	httputil.RespondJSON(w, auth.TokenResponse{AuthTokens: *tokens, ID: target.ID}, http.StatusOK)
}

// Image redirects to the profile image
// @Summary      Profile image
// @Description  Redirects to the uploaded image, else the gravatar for the email, else a placeholder.
// @Tags         users
// @Param        id path string true "User ID"
// @Success      302
// @Failure      404 {object} httputil.ErrorResponse "Not found"
// @Router       /users/{id}/image [get]
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	u, ok := h.loadTarget(w, r)
	if !ok {
		return
	}
	http.Redirect(w, r, h.images.URL(r.Context(), u), http.StatusFound)
}

// UploadImage stores a new profile image
// @Summary      Upload a profile image
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Param        image formData file true "PNG, JPEG, GIF or WebP image"
// @Success      200 {object} UserResponse
// @Failure      400 {object} httputil.ErrorResponse "Missing or unsupported image"
// @Failure      403 {object} httputil.ErrorResponse "Not your account"
// @Failure      501 {object} httputil.ErrorResponse "Uploads not configured"
// @Router       /users/{id}/image [post]
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	u, ok := h.authorizedTarget(w, r, access.Update)
	if !ok {
		return
	}

	if h.uploads == nil {
		httputil.RespondErrorWithCode(w, "image uploads are not configured", httputil.CodeStorageDisabled, http.StatusNotImplemented)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+1<<10)
	file, _, err := r.FormFile("image")
	if err != nil {
		msg := "No file was submitted."
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = "The submitted file is too large."
		}
		httputil.RespondAppError(w, r, apperr.ValidationFields(map[string][]string{"image": {msg}}))
		return
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		httputil.RespondAppError(w, r, apperr.ValidationFields(map[string][]string{"image": {"The submitted file is empty."}}))
		return
	}
	contentType := http.DetectContentType(head[:n])
	ext, ok := imageExtensions[contentType]
	if !ok {
		httputil.RespondAppError(w, r, apperr.ValidationFields(map[string][]string{
			"image": {"Upload a valid image. The file you uploaded was either not an image or a corrupted image."},
		}).WithCode(httputil.CodeInvalidImage))
		return
	}

	key := user.ImageKey(u, ext)
	body := io.MultiReader(bytes.NewReader(head[:n]), file)
	if err := h.uploads.Put(r.Context(), key, body, contentType); err != nil {
		httputil.RespondAppError(w, r, err)
		return
	}

	if err := h.users.SetImage(r.Context(), u.ID, key); err != nil {
		httputil.RespondAppError(w, r, err)
		return
	}
	u.Image = &key

	logger.Info("profile image uploaded", "user_id", u.ID, "content_type", contentType)
	httputil.RespondJSON(w, h.toResponse(u), http.StatusOK)
}

// authorizedTarget checks the caller may use capability on the {id} record
// and loads it. Authorization runs first so other users' ids are not
// revealed.
func (h *Handler) authorizedTarget(w http.ResponseWriter, r *http.Request, capability access.Capability) (*user.User, bool) {
	id, parseErr := uuid.Parse(chi.URLParam(r, "id"))

	if err := access.Authorize(auth.CallerFromContext(r.Context()), capability, id); err != nil {
		httputil.RespondAppError(w, r, err)
		return nil, false
	}
	if parseErr != nil {
		httputil.RespondAppError(w, r, apperr.NotFound(""))
		return nil, false
	}

	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		httputil.RespondAppError(w, r, err)
		return nil, false
	}
	return u, true
}

func (h *Handler) loadTarget(w http.ResponseWriter, r *http.Request) (*user.User, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondAppError(w, r, apperr.NotFound(""))
		return nil, false
	}
	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		httputil.RespondAppError(w, r, err)
		return nil, false
	}
	return u, true
}
