package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/taskory/taskory/internal/health"
	"github.com/taskory/taskory/internal/http/handler"
	"github.com/taskory/taskory/internal/http/middleware"
	"github.com/taskory/taskory/internal/http/response"
	"github.com/taskory/taskory/internal/service"
)

type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	TaskHandler       *handler.TaskHandler
	ProfileHandler    *handler.ProfileHandler
	TokenService      service.TokenServiceInterface
	CORSOrigins       []string
	AuthRateLimitRPM  int
	APIRateLimitRPM   int
	GlobalRateLimiter GlobalRateLimiterFunc
	AuthRateLimiter   AuthRateLimiterFunc
	Readiness         *health.ProbeRunner
	EnableOTelHTTP    bool
}

type GlobalRateLimiterFunc func(http.Handler) http.Handler
type AuthRateLimiterFunc func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	if dep.GlobalRateLimiter != nil {
		r.Use(dep.GlobalRateLimiter)
	} else {
		r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute, "api").Middleware())
	}

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute, "auth").Middleware()
	}
	requireAuth := middleware.AuthMiddleware(dep.TokenService)

	// MaxBytesReader layers compose to the smallest cap, so the standard
	// body limit is applied per route group and the avatar upload route
	// carries only its own larger cap.
	bodyCap := middleware.BodyLimit(1 << 20)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.With(authLimiter, bodyCap).Post("/register", dep.AuthHandler.Register)
			r.Get("/confirm", dep.AuthHandler.Confirm)
			r.Get("/confirm/{token}", dep.AuthHandler.Confirm)
			r.With(authLimiter, bodyCap).Post("/resend-confirmation", dep.AuthHandler.ResendConfirmation)
			r.With(authLimiter, bodyCap).Post("/login", dep.AuthHandler.Login)
			r.With(authLimiter, bodyCap).Post("/jwt/create", dep.AuthHandler.JWTCreate)
			r.With(authLimiter, bodyCap).Post("/jwt/refresh", dep.AuthHandler.JWTRefresh)
			r.With(bodyCap).Post("/jwt/verify", dep.AuthHandler.JWTVerify)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Group(func(r chi.Router) {
					r.Use(bodyCap)
					r.Post("/logout", dep.AuthHandler.Logout)
					r.With(authLimiter).Post("/change-password", dep.AuthHandler.ChangePassword)
					r.Get("/profile", dep.ProfileHandler.Get)
					r.Put("/profile", dep.ProfileHandler.Update)
					r.Patch("/profile", dep.ProfileHandler.Update)
					r.Delete("/profile/avatar", dep.ProfileHandler.RemoveAvatar)
				})
				r.With(middleware.BodyLimit(6 << 20)).Put("/profile/avatar", dep.ProfileHandler.UploadAvatar)
			})
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(bodyCap)
			r.Get("/", dep.TaskHandler.List)
			r.Post("/", dep.TaskHandler.Create)
			r.Get("/{id}", dep.TaskHandler.GetByID)
			r.Patch("/{id}", dep.TaskHandler.Update)
			r.Delete("/{id}", dep.TaskHandler.Delete)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
