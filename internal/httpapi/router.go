package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"cementops/admin/internal/config"
	"cementops/admin/internal/db"
	"cementops/admin/internal/detail"
	"cementops/admin/internal/gateway"
	"cementops/admin/internal/logging"
	"cementops/admin/internal/screens"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/form"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const sessionCookie = "cementops_session"

// Auth is the admin session store.
type Auth interface {
	Login(ctx context.Context, email, password string) (db.Session, error)
	Resolve(ctx context.Context, sid uuid.UUID) (db.Session, error)
	Logout(ctx context.Context, sid uuid.UUID) error
}

type Deps struct {
	Auth    Auth
	Screens *screens.Store
	Viewer  *detail.Viewer
	Config  config.Config
	Logger  *logrus.Logger
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
}

type App struct {
	auth    Auth
	screens *screens.Store
	viewer  *detail.Viewer
	cfg     config.Config
	log     *logrus.Logger
	forms   *form.Decoder
}

func NewRouter(deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	app := &App{
		auth:    deps.Auth,
		screens: deps.Screens,
		viewer:  deps.Viewer,
		cfg:     deps.Config,
		log:     log,
		forms:   form.NewDecoder(),
	}

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/login", app.handleLogin)
		api.Post("/auth/logout", app.handleLogout)

		api.Group(func(pr chi.Router) {
			pr.Use(app.authMiddleware)
			pr.Get("/auth/me", app.handleMe)

			pr.With(app.requireRole("ADMIN", "OPS")).Route("/screens", func(sc chi.Router) {
				sc.Post("/", app.handleOpenScreen)
				sc.Get("/{sid}", app.handleGetScreen)
				sc.Delete("/{sid}", app.handleDiscardScreen)
				sc.Post("/{sid}/region", app.handleSelectRegion)
				sc.Post("/{sid}/subregion", app.handleSelectSubRegion)
				sc.Post("/{sid}/name", app.handleSetName)
				sc.Post("/{sid}/submit", app.handleSubmit)
			})

			pr.With(app.requireRole("ADMIN", "OPS")).Route("/depots", func(dp chi.Router) {
				dp.Get("/", app.handleDepotDetail)
				dp.Get("/{id}", app.handleDepotDetail)
			})

			pr.With(app.requireRole("ADMIN", "OPS", "EXEC")).Route("/products", func(pd chi.Router) {
				pd.Get("/", app.handleProductDetail)
				pd.Get("/{id}", app.handleProductDetail)
			})
		})
	})

	return r
}

// ---------- helpers ----------

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	var e apiError
	e.Error.Code = code
	e.Error.Message = message
	writeJSON(w, status, e)
}

// decodeBody accepts JSON or a url-encoded form into dst.
func (a *App) decodeBody(r *http.Request, dst any) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseForm(); err != nil {
			return err
		}
		return a.forms.Decode(dst, r.PostForm)
	default:
		if r.Body == nil || r.ContentLength == 0 {
			return nil
		}
		return json.NewDecoder(r.Body).Decode(dst)
	}
}

func requestLogger(l *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			entry := l.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"remote":     r.RemoteAddr,
			})
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), entry)))
			entry.WithFields(logrus.Fields{
				"status":   ww.Status(),
				"bytes":    ww.BytesWritten(),
				"duration": time.Since(start).String(),
			}).Info("request")
		})
	}
}

// ---------- auth ----------

type ctxKey string

const ctxUserKey ctxKey = "cementops_user"

func (a *App) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil || strings.TrimSpace(c.Value) == "" {
			writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
			return
		}
		sid, err := uuid.Parse(c.Value)
		if err != nil {
			writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid session")
			return
		}

		s, err := a.auth.Resolve(r.Context(), sid)
		switch {
		case errors.Is(err, db.ErrSessionExpired):
			writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "session expired")
			return
		case err != nil:
			writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "session not found")
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserKey, s.User)
		ctx = gateway.WithToken(ctx, s.APIToken)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *App) requireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := map[string]bool{}
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := r.Context().Value(ctxUserKey).(db.User)
			if !ok {
				writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
				return
			}
			if !allowed[u.Role] {
				writeAPIError(w, http.StatusForbidden, "FORBIDDEN", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := a.decodeBody(r, &body); err != nil {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body")
		return
	}
	body.Email = strings.TrimSpace(strings.ToLower(body.Email))
	if body.Email == "" || !strings.Contains(body.Email, "@") || strings.TrimSpace(body.Password) == "" {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "email and password required")
		return
	}

	s, err := a.auth.Login(r.Context(), body.Email, body.Password)
	if errors.Is(err, db.ErrInvalidCredentials) {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("login failed")
		writeAPIError(w, http.StatusInternalServerError, "INTERNAL", "could not create session")
		return
	}

	secure := a.cfg.CookieSecure
	if !secure {
		if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
			secure = true
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.ID.String(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		Expires:  s.ExpiresAt,
	})

	writeJSON(w, http.StatusOK, map[string]any{"user": s.User})
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sid, err := uuid.Parse(c.Value); err == nil {
			if err := a.auth.Logout(r.Context(), sid); err != nil {
				logging.FromContext(r.Context()).WithError(err).Warn("logout failed")
			}
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *App) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := r.Context().Value(ctxUserKey).(db.User)
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

// ---------- detail views ----------

func (a *App) handleDepotDetail(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.viewer.Depot(r.Context(), chi.URLParam(r, "id")))
}

func (a *App) handleProductDetail(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.viewer.Product(r.Context(), chi.URLParam(r, "id")))
}
