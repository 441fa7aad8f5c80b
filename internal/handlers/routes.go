package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/middleware"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/realtime"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/jobs"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/session"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/storage"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/users"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	Logger   *slog.Logger
	Users    *users.Store
	Sessions *session.Issuer
	Jobs     *jobs.Manager
	Photos   storage.PhotoStorage
	Hub      *realtime.Hub
	Google   *GoogleOAuthHandler // nil keeps the Google routes unmounted

	CORSOrigins string
	UploadDir   string // served at /uploads when set
	AccessLog   bool
}

// NewApp builds the fiber app with middleware and every route mounted.
func NewApp(d Deps) *fiber.App {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(d.Logger),
		BodyLimit:    storage.MaxPhotoSize + 1<<20,
	})

	app.Use(recover.New())
	if d.AccessLog {
		app.Use(logger.New())
	}
	if d.CORSOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: d.CORSOrigins,
			AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, x-auth-token",
		}))
	}
	if d.UploadDir != "" {
		app.Static("/uploads", d.UploadDir)
	}

	authH := NewAuthHandler(d.Users, d.Sessions, d.Logger)
	jobH := NewJobHandler(d.Jobs, d.Photos, d.Logger)
	categoryH := NewCategoryHandler(d.Jobs, d.Logger)
	adminH := NewAdminHandler(d.Users, d.Logger)

	api := app.Group("/api")

	// public
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"success":   true,
			"message":   "HomeGuard Pro API is working!",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	api.Post("/auth/signup", authH.Signup)
	api.Post("/auth/login", authH.Login)
	api.Get("/categories", categoryH.GetCategories)
	if d.Google != nil {
		api.Get("/auth/google/start", d.Google.GoogleStart)
		api.Get("/auth/google/callback", d.Google.GoogleCallback)
	}

	// protected
	auth := middleware.RequireAuth(d.Sessions, d.Logger)

	api.Post("/auth/logout", auth, authH.Logout)
	api.Get("/auth/profile", auth, authH.GetProfile)
	api.Put("/auth/profile", auth, authH.UpdateProfile)

	jobsG := api.Group("/jobs", auth)
	jobsG.Get("/", jobH.List)
	jobsG.Get("/my-requests", middleware.RequireRoles(models.RoleClient, models.RoleAdmin), jobH.MyRequests)
	jobsG.Get("/my-jobs", middleware.RequireRoles(models.RoleTechnician, models.RoleAdmin), jobH.MyJobs)
	jobsG.Post("/", middleware.RequireRoles(models.RoleClient, models.RoleAdmin), jobH.Create)
	jobsG.Get("/:id", jobH.Get)
	jobsG.Post("/:id/accept", middleware.RequireRoles(models.RoleTechnician), jobH.Accept)
	jobsG.Put("/:id/status", jobH.UpdateStatus)
	jobsG.Post("/:id/photos", jobH.UploadPhoto)

	admin := api.Group("/admin", auth, middleware.RequireRoles(models.RoleAdmin))
	admin.Get("/users", adminH.ListUsers)
	admin.Put("/users/:id/role", adminH.SetRole)
	admin.Put("/users/:id/active", adminH.SetActive)

	if d.Hub != nil {
		wsH := NewWSHandler(d.Hub, d.Sessions, d.Logger)
		app.Get("/ws/jobs", wsH.Upgrade, wsH.Stream())
	}

	return app
}
