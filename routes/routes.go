package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SIMHADRI-1817/Smart-Clinic/handlers"
	"github.com/SIMHADRI-1817/Smart-Clinic/middleware"
	"github.com/SIMHADRI-1817/Smart-Clinic/models"
)

// SetupRoutes configura todas las rutas de la aplicación
func SetupRoutes(app *fiber.App, h *handlers.Handler) {
	// Middleware global
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(middleware.Metrics())
	app.Use(h.Audit.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Ruta de salud del sistema
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Smart Clinic API",
			"version": "1.0.0",
		})
	})

	// Métricas Prometheus
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Disponibilidad pública para el formulario de reserva
	app.Get("/api/doctor_availability", h.DoctorAvailability)

	// Grupo de API
	api := app.Group("/api/v1")

	// === RUTAS PÚBLICAS (Sin autenticación) ===
	auth := api.Group("/auth", middleware.CreateRateLimiter(middleware.AuthRateLimit))
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Post("/refresh", h.RefreshToken)
	auth.Post("/logout", middleware.AuthRequired(), h.Logout)

	// === RUTAS PROTEGIDAS (Requieren autenticación) ===
	protected := api.Group("/", middleware.AuthRequired())

	// --- MFA ---
	mfa := protected.Group("/auth/mfa")
	mfa.Post("/setup", h.MFASetup)
	mfa.Post("/verify", h.MFAVerify)

	// --- PERFIL Y DOCTORES ---
	protected.Get("/users/profile", h.Profile)
	protected.Get("/doctors", h.ListDoctors)

	// --- DISPONIBILIDAD ---
	protected.Get("/availability", h.DoctorAvailability)

	// --- CITAS ---
	appointments := protected.Group("/appointments")
	appointments.Post("/",
		middleware.RequireRole(models.RolePatient, models.RoleReception, models.RoleAdmin),
		h.BookAppointment)
	appointments.Get("/", h.ListAppointments)
	appointments.Get("/:id", h.GetAppointment)
	appointments.Put("/:id",
		middleware.RequireRole(models.RolePatient, models.RoleReception, models.RoleAdmin),
		h.EditAppointment)
	appointments.Put("/:id/checkin",
		middleware.RequireRole(models.RoleReception, models.RoleAdmin),
		h.CheckInAppointment)
	appointments.Delete("/:id",
		middleware.RequireRole(models.RoleReception, models.RoleAdmin),
		h.CancelAppointment)

	// --- REPORTES ---
	reports := protected.Group("/reports")
	reports.Get("/stats", middleware.RequireRole(models.RoleAdmin), h.GetStats)
	reports.Get("/appointments",
		middleware.RequireRole(models.RoleReception, models.RoleAdmin),
		h.ReceptionList)
	reports.Get("/export.csv",
		middleware.RequireRole(models.RoleAdmin),
		middleware.CreateRateLimiter(middleware.ExportRateLimit),
		h.ExportAppointmentsCSV)

	// --- AUDIT LOGS ---
	protected.Get("/logs", middleware.RequireRole(models.RoleAdmin), h.GetAuditLogs)
}
