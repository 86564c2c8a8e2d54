package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/shkola-api/internal/config"
	"github.com/noah-isme/shkola-api/internal/handler"
	"github.com/noah-isme/shkola-api/internal/middleware"
	"github.com/noah-isme/shkola-api/internal/models"
	"github.com/noah-isme/shkola-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler        *handler.AuthHandler
	AdminHandler       *handler.AdminHandler
	TaskHandler        *handler.TaskHandler
	StudentTaskHandler *handler.StudentTaskHandler
	ReviewHandler      *handler.ReviewHandler
	AnalysisHandler    *handler.AnalysisHandler
	GradebookHandler   *handler.GradebookHandler
	AttendanceHandler  *handler.AttendanceHandler
	JWTMiddleware      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(app.Group("/api/auth"))
	}

	if deps.AdminHandler != nil {
		admin := app.Group("/api/admin", jwtMiddleware, middleware.RequireRole(models.RoleAdmin))
		deps.AdminHandler.Register(admin)
	}

	if deps.TaskHandler != nil {
		// Attachment reads come first so students reach downloads before
		// the teacher-only group claims the prefix.
		shared := app.Group("/api/tasks", jwtMiddleware)
		deps.TaskHandler.RegisterFileAccess(shared)

		teacher := app.Group("/api/tasks", jwtMiddleware, middleware.RequireRole(models.RoleTeacher, models.RoleAdmin))
		deps.TaskHandler.Register(teacher)
	}

	if deps.ReviewHandler != nil {
		review := app.Group("/api/submissions", jwtMiddleware, middleware.RequireRole(models.RoleTeacher, models.RoleAdmin))
		deps.ReviewHandler.Register(review)
	}

	if deps.AnalysisHandler != nil {
		ai := app.Group("/api/ai", jwtMiddleware, middleware.RequireRole(models.RoleTeacher, models.RoleAdmin))
		deps.AnalysisHandler.Register(ai)
	}

	if deps.GradebookHandler != nil {
		gradebook := app.Group("/api/classes", jwtMiddleware, middleware.RequireRole(models.RoleTeacher, models.RoleAdmin))
		deps.GradebookHandler.Register(gradebook)

		// Grade history authorization depends on who asks, so the route is
		// open to every authenticated role and decided in the service.
		grades := app.Group("/api/students", jwtMiddleware)
		deps.GradebookHandler.RegisterGrades(grades)
	}

	if deps.StudentTaskHandler != nil {
		student := app.Group("/api/students", jwtMiddleware, middleware.RequireRole(models.RoleStudent))
		deps.StudentTaskHandler.Register(student)
	}

	if deps.AttendanceHandler != nil {
		attendance := app.Group("/api/attendance", jwtMiddleware, middleware.RequireRole(models.RoleTeacher, models.RoleAdmin))
		deps.AttendanceHandler.Register(attendance)
	}
}
