package routes

import (
	"campus-events-api/handlers"
	"campus-events-api/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	User         *handlers.UserHandler
	Event        *handlers.EventHandler
	Registration *handlers.RegistrationHandler
	Notification *handlers.NotificationHandler
	Admin        *handlers.AdminHandler
	Dashboard    *handlers.DashboardHandler
	WebSocket    *handlers.WebSocketHandler
}

// SetupRoutes wires every handler into the router. Authentication gates the
// /me, /dashboard, /ws and write routes; the admin subtree additionally
// requires the admin role.
func SetupRoutes(router *chi.Mux, h Handlers, jwtSecret []byte, allowedOrigins []string, limiter *middleware.RateLimiter) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(limiter.Handler)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Get("/confirm-email", h.Auth.ConfirmEmail)
		r.Post("/forgot-password", h.Auth.ForgotPassword)
		r.Post("/reset-password", h.Auth.ResetPassword)
	})

	router.Route("/me", func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/", h.User.GetProfile)
		r.Patch("/", h.User.UpdateProfile)
		r.Post("/change-password", h.User.ChangePassword)
		r.Post("/request-organizer", h.User.RequestOrganizer)
		r.Get("/events", h.Event.ListRegistered)
		r.Get("/notifications", h.Notification.List)
		r.Post("/notifications/read-all", h.Notification.MarkAllRead)
		r.Post("/notifications/{notificationID}/read", h.Notification.MarkRead)
		r.Delete("/notifications/{notificationID}", h.Notification.Delete)
	})

	router.Route("/events", func(r chi.Router) {
		r.Get("/", h.Event.List)
		r.Get("/{eventID}", h.Event.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/{eventID}/register", h.Registration.Register)
			r.Delete("/{eventID}/register", h.Registration.Unregister)
			r.Get("/{eventID}/registration", h.Registration.GetOwn)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize("organizer", "admin"))

			r.Post("/", h.Event.Create)
			r.Put("/{eventID}", h.Event.Update)
			r.Post("/{eventID}/cancel", h.Event.Cancel)
			r.Delete("/{eventID}", h.Event.Delete)
			r.Post("/{eventID}/banner", h.Event.UploadBanner)
			r.Get("/{eventID}/attendees", h.Registration.ListAttendees)
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/dashboard", h.Dashboard.Summary)
		r.Get("/ws", h.WebSocket.ServeWs)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.Authorize("admin"))

		r.Get("/organizer-requests", h.Admin.ListOrganizerRequests)
		r.Get("/organizers", h.Admin.ListOrganizers)
		r.Post("/organizer-requests/{userID}/approve", h.Admin.ApproveOrganizer)
		r.Post("/organizer-requests/{userID}/deny", h.Admin.DenyOrganizerRequest)
		r.Post("/organizers/{userID}/revoke", h.Admin.RevokeOrganizer)
	})
}
