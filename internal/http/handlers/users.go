package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/foodlink/userhub/internal/cache"
	"github.com/foodlink/userhub/internal/config"
	"github.com/foodlink/userhub/internal/domain/user"
	"github.com/foodlink/userhub/internal/http/middlewares"
	"github.com/foodlink/userhub/internal/observability"
	"github.com/foodlink/userhub/internal/security"
	"github.com/foodlink/userhub/internal/storage"
	"github.com/gin-gonic/gin"
)

const listCacheKey = "users:list:all"

// UserStore is the persistence contract the handler depends on.
type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	FilterByName(ctx context.Context, name string) ([]user.User, error)
	Update(ctx context.Context, id string, req user.UpdateRequest, passwordHash *string) (user.User, error)
	Delete(ctx context.Context, id string) (string, error)
}

type SessionIssuer interface {
	IssueSession(userID string) (string, error)
	SessionTTL() time.Duration
}

type UsersHandler struct {
	store  UserStore
	images storage.ImageStore
	jwt    SessionIssuer
	cache  cache.Store
	prom   *observability.Prom
	env    string
}

func NewUsersHandler(store UserStore, images storage.ImageStore, jwt SessionIssuer, listCache cache.Store, prom *observability.Prom, env string) *UsersHandler {
	return &UsersHandler{
		store:  store,
		images: images,
		jwt:    jwt,
		cache:  listCache,
		prom:   prom,
		env:    env,
	}
}

func (h *UsersHandler) Greeting(ctx *gin.Context) {
	ctx.String(http.StatusOK, "Welcome to the Food Donation User Service")
}

// Register handles the multipart registration form. The image must be
// attached; the password is hashed before the record ever reaches the
// store.
func (h *UsersHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindForm(ctx, &req) {
		return
	}

	fileHeader, err := ctx.FormFile("image")

	if err != nil {
		RespondBadRequest(ctx, "Profile image is required", nil)
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	file, err := fileHeader.Open()

	if err != nil {
		RespondInternal(ctx, "Could not read uploaded image")
		return
	}

	defer file.Close()

	stored, err := h.images.Save(cctx, fileHeader.Filename, file)

	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImage) {
			RespondBadRequest(ctx, "Unsupported image type", nil)
			return
		}

		RespondInternal(ctx, "Could not store uploaded image")
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not register user")
		return
	}

	created, err := h.store.Create(cctx, user.NewFromRegisterRequest(req, hash, stored))

	if err != nil {
		h.countAuth("register", "error")
		// the email-uniqueness race loses here; the store error is
		// surfaced as a plain persistence failure
		respondPersistence(ctx, http.StatusInternalServerError, err)
		return
	}

	h.countAuth("register", "ok")
	h.invalidateList(cctx)

	ctx.JSON(http.StatusCreated, created)
}

// Login checks the credentials and delivers a 1-day session token via an
// HTTP-only cookie. A missing user and a wrong userType collapse to the
// same message on purpose, so callers cannot probe which one failed.
func (h *UsersHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(ctx, "Something is missing", parseBindError(err, &req))
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	found, err := h.store.GetByEmail(cctx, req.Email)

	if err != nil && !errors.Is(err, user.ErrNotFound) {
		RespondInternal(ctx, "Could not log in")
		return
	}

	if err != nil || found.UserType != req.UserType {
		h.countAuth("login", "rejected")
		RespondError(ctx, http.StatusBadRequest, "invalid_credentials", "Incorrect email or user type", nil)
		return
	}

	err = security.CheckPassword(found.PasswordHash, req.Password)

	if err != nil {
		h.countAuth("login", "rejected")
		RespondError(ctx, http.StatusBadRequest, "invalid_credentials", "Incorrect password", nil)
		return
	}

	token, err := h.jwt.IssueSession(found.ID)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.countAuth("login", "ok")
	h.setSessionCookie(ctx, token)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Welcome back " + found.FullName,
		"user":    found.Profile(),
		"success": true,
	})
}

// Profile returns the record as stored; the image stays a raw reference
// here, list endpoints are the ones that resolve URLs.
func (h *UsersHandler) Profile(ctx *gin.Context) {
	h.profileByID(ctx, ctx.Param("id"))
}

// Me resolves the caller from the session cookie set at login.
func (h *UsersHandler) Me(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing session")
		return
	}

	h.profileByID(ctx, id)
}

func (h *UsersHandler) profileByID(ctx *gin.Context, id string) {
	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	found, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, found)
}

func (h *UsersHandler) ListAll(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	users, ok := h.cachedList(cctx)

	if !ok {
		var err error
		users, err = h.store.List(cctx)

		if err != nil {
			respondPersistence(ctx, http.StatusInternalServerError, err)
			return
		}

		h.storeList(cctx, users)
	}

	ctx.JSON(http.StatusOK, withImageURLs(ctx, users))
}

func (h *UsersHandler) FilterByName(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	users, err := h.store.FilterByName(cctx, ctx.Param("name"))

	if err != nil {
		respondPersistence(ctx, http.StatusInternalServerError, err)
		return
	}

	ctx.JSON(http.StatusOK, withImageURLs(ctx, users))
}

// Update applies a partial update; a present password is re-hashed so
// plaintext never reaches the store.
func (h *UsersHandler) Update(ctx *gin.Context) {
	var req user.UpdateRequest

	if !BindJSONStrict(ctx, &req) {
		return
	}

	var passwordHash *string

	if req.Password != nil {
		hash, err := security.HashPassword(*req.Password)

		if err != nil {
			RespondInternal(ctx, "Could not update user")
			return
		}

		passwordHash = &hash
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	updated, err := h.store.Update(cctx, ctx.Param("id"), req, passwordHash)

	if err != nil {
		// no existence precheck: an unknown id surfaces from the update
		// itself and is reported as a bad request
		respondPersistence(ctx, http.StatusBadRequest, err)
		return
	}

	h.invalidateList(cctx)

	ctx.JSON(http.StatusOK, updated)
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	fullName, err := h.store.Delete(cctx, ctx.Param("id"))

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		respondPersistence(ctx, http.StatusBadRequest, err)
		return
	}

	h.invalidateList(cctx)

	ctx.String(http.StatusOK, "User %s has been deleted.", fullName)
}

// helpers

func (h *UsersHandler) setSessionCookie(ctx *gin.Context, token string) {
	secure := h.env == "prod"

	ctx.SetSameSite(http.SameSiteLaxMode)

	ctx.SetCookie(
		middlewares.SessionCookieName,
		token,
		int(h.jwt.SessionTTL().Seconds()),
		"/",
		"",
		secure,
		true, // HttpOnly.
	)
}

func (h *UsersHandler) countAuth(op, result string) {
	if h.prom != nil {
		h.prom.AuthResults.WithLabelValues(op, result).Inc()
	}
}

func (h *UsersHandler) cachedList(ctx context.Context) ([]user.User, bool) {
	if h.cache == nil {
		return nil, false
	}

	raw, ok := h.cache.Get(ctx, listCacheKey)

	if !ok {
		return nil, false
	}

	var users []user.User

	if err := json.Unmarshal(raw, &users); err != nil {
		h.cache.Delete(ctx, listCacheKey)
		return nil, false
	}

	return users, true
}

func (h *UsersHandler) storeList(ctx context.Context, users []user.User) {
	if h.cache == nil {
		return
	}

	raw, err := json.Marshal(users)

	if err != nil {
		return
	}

	h.cache.Set(ctx, listCacheKey, raw)
}

func (h *UsersHandler) invalidateList(ctx context.Context) {
	if h.cache != nil {
		h.cache.Delete(ctx, listCacheKey)
	}
}

func respondPersistence(ctx *gin.Context, status int, err error) {
	if errors.Is(err, user.ErrNotFound) && status == http.StatusBadRequest {
		RespondBadRequest(ctx, "User not found", nil)
		return
	}

	RespondError(ctx, status, "persistence_error", err.Error(), nil)
}

// withImageURLs rewrites each record's image reference to an absolute
// URL rooted at the host that served this request.
func withImageURLs(ctx *gin.Context, users []user.User) []user.User {
	base := requestBaseURL(ctx) + "/uploads"

	out := make([]user.User, 0, len(users))

	for _, u := range users {
		out = append(out, u.WithImageURL(base))
	}

	return out
}

func requestBaseURL(ctx *gin.Context) string {
	scheme := "http"

	if proto := ctx.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(proto)
	} else if ctx.Request.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + ctx.Request.Host
}
