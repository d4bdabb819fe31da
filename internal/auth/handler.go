package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/userdesk/internal/audit"
	"github.com/noah-isme/userdesk/internal/shared"
	"github.com/noah-isme/userdesk/internal/view"
)

// ActorSessionKey holds the email used to sign in, for audit records.
const ActorSessionKey = "actor"

// SessionListener is told when a session signs out.
type SessionListener interface {
	Forget(sessionID string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	audit          *audit.Service
	listeners      []SessionListener
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, auditor *audit.Service, listeners ...SessionListener) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		audit:          auditor,
		listeners:      listeners,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(RedirectAuthenticated("/"))
		r.Get("/login", h.showLogin)
		r.Post("/login", h.handleLogin)
	})
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

var loginMessages = map[string]string{
	"Email.required":    "Invalid email address",
	"Email.email":       "Invalid email address",
	"Password.required": "Password must be at least 6 characters",
	"Password.min":      "Password must be at least 6 characters",
}

type loginPageData struct {
	Email  string
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, loginPageData{}, shared.PopFlash(r.Context()), http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	data := loginPageData{Email: form.Email, Errors: map[string]string{}}

	// Field errors are reported inline and never reach the directory.
	if err := h.validator.Struct(form); err != nil {
		data.Errors = shared.ValidationMessages(err, loginMessages)
		h.renderLogin(w, r, data, nil, http.StatusBadRequest)
		return
	}

	token, err := h.service.Authenticate(ctx, form.Email, form.Password)
	if err != nil {
		if Rejected(err) {
			h.logger.Info("login rejected", slog.String("email", form.Email))
		} else {
			h.logger.Warn("login failed", slog.String("email", form.Email), slog.Any("error", err))
		}
		flash := &shared.FlashMessage{Kind: shared.FlashError, Message: shared.UserSafeMessage(shared.ErrInvalidCredentials)}
		h.renderLogin(w, r, data, flash, http.StatusBadRequest)
		return
	}

	sess := shared.SessionFromContext(ctx)
	state := StateFromContext(ctx)
	if state == nil {
		state = LoadState(sess)
	}
	if err := state.Login(token); err != nil {
		h.logger.Error("persist session marker", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if _, err := h.csrfManager.RotateToken(ctx, sess); err != nil {
		h.logger.Warn("rotate csrf token", slog.Any("error", err))
	}
	sess.Set(ActorSessionKey, form.Email)
	sess.AddFlash(shared.FlashMessage{Kind: shared.FlashSuccess, Message: "Logged in successfully"})
	_ = h.audit.Record(ctx, audit.Entry{Actor: form.Email, Action: audit.ActionLogin, Entity: "session", EntityID: sess.ID})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	if sess != nil {
		actor := sess.Get(ActorSessionKey)
		if state := StateFromContext(ctx); state != nil {
			state.Logout()
		} else {
			sess.ClearMarker()
		}
		for _, l := range h.listeners {
			l.Forget(sess.ID)
		}
		_ = h.audit.Record(ctx, audit.Entry{Actor: actor, Action: audit.ActionLogout, Entity: "session", EntityID: sess.ID})
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, data loginPageData, flash *shared.FlashMessage, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	viewData := view.TemplateData{
		Title:       "Sign in",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, "pages/login.html", status, viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}
