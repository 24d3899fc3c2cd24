package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "classroom-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func teacherApp(secret string) *fiber.App {
	app := fiber.New()
	handlers := append(TeacherOnly(secret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("user_id"), "role": c.Locals("user_role")})
	})
	app.Post("/courses/:id/judge", handlers...)
	return app
}

func TestTeacherOnlyAcceptsTeacherToken(t *testing.T) {
	app := teacherApp(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{"sub": "12", "role": "teacher", "exp": time.Now().Add(time.Hour).Unix()})

	req := httptest.NewRequest(http.MethodPost, "/courses/1/judge", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestTeacherOnlyRejectsBadTokens(t *testing.T) {
	app := teacherApp(testSecret)

	cases := map[string]string{
		"missing":      "",
		"wrong scheme": "Basic abc",
		"wrong secret": "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": "1", "role": "teacher"}),
		"expired":      "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "1", "role": "teacher", "exp": time.Now().Add(-time.Hour).Unix()}),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/courses/1/judge", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestTeacherOnlyRejectsStudentRole(t *testing.T) {
	app := teacherApp(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{"sub": 3, "roles": []string{"student"}})

	req := httptest.NewRequest(http.MethodPost, "/courses/1/judge", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestTeacherOnlyWithoutSecretIsOpen(t *testing.T) {
	require.Nil(t, TeacherOnly(" "))

	resp, err := teacherApp("").Test(httptest.NewRequest(http.MethodPost, "/courses/1/judge", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestCorrelationIDPropagates(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(GetCorrelationID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "req-42", resp.Header.Get("X-Correlation-ID"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
}
