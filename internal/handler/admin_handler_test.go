package handler_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/shkola-api/internal/config"
	"github.com/noah-isme/shkola-api/internal/handler"
	"github.com/noah-isme/shkola-api/internal/models"
	"github.com/noah-isme/shkola-api/internal/repository"
	"github.com/noah-isme/shkola-api/internal/router"
	"github.com/noah-isme/shkola-api/internal/service"
)

func setupAdminApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	admin := service.NewAdminService(repository.NewUserRepository(db), validate, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test"}, router.Dependencies{
		AdminHandler:  handler.NewAdminHandler(admin, nil, logger),
		JWTMiddleware: testAuth,
	})

	return app, db
}

func TestApproveTeacherOverHTTP(t *testing.T) {
	app, db := setupAdminApp(t)

	principal := models.User{FullName: "Director", Email: "director@school.local", HashedPassword: "x", Role: models.RoleAdmin}
	teacher := models.User{FullName: "Ivanova", Email: "ivanova@school.local", HashedPassword: "x", Role: models.RoleTeacher}
	require.NoError(t, db.Create(&principal).Error)
	require.NoError(t, db.Create(&teacher).Error)

	req := httptest.NewRequest("POST", fmt.Sprintf("/api/admin/teachers/%d/approve", teacher.ID), nil)
	resp, err := app.Test(asUser(req, principal))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stored models.User
	require.NoError(t, db.First(&stored, teacher.ID).Error)
	require.True(t, stored.IsVerified)
}

func TestApproveVerifiedTeacherReturnsBadRequest(t *testing.T) {
	app, db := setupAdminApp(t)

	principal := models.User{FullName: "Director", Email: "director@school.local", HashedPassword: "x", Role: models.RoleAdmin}
	teacher := models.User{FullName: "Ivanova", Email: "ivanova@school.local", HashedPassword: "x", Role: models.RoleTeacher, IsVerified: true}
	require.NoError(t, db.Create(&principal).Error)
	require.NoError(t, db.Create(&teacher).Error)

	req := httptest.NewRequest("POST", fmt.Sprintf("/api/admin/teachers/%d/approve", teacher.ID), nil)
	resp, err := app.Test(asUser(req, principal))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeBody(t, resp, &body)
	require.False(t, body.Success)
	require.Equal(t, "teacher already confirmed", body.Message)

	// The record stays verified either way.
	var stored models.User
	require.NoError(t, db.First(&stored, teacher.ID).Error)
	require.True(t, stored.IsVerified)
}

func TestApproveUnknownTeacherOverHTTP(t *testing.T) {
	app, db := setupAdminApp(t)

	principal := models.User{FullName: "Director", Email: "director@school.local", HashedPassword: "x", Role: models.RoleAdmin}
	require.NoError(t, db.Create(&principal).Error)

	req := httptest.NewRequest("POST", "/api/admin/teachers/999/approve", nil)
	resp, err := app.Test(asUser(req, principal))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
