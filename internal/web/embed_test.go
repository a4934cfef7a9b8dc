package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticRoutes(t *testing.T) {
	require.True(t, HasEmbeddedFiles())

	e := echo.New()
	e.GET("/api/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	require.NoError(t, RegisterStaticRoutes(e))

	tests := []struct {
		path   string
		status int
		viewer bool
	}{
		{"/", http.StatusOK, true},
		{"/index.html", http.StatusOK, true},
		{"/sessions/abc", http.StatusOK, true},
		{"/api/health", http.StatusOK, false},
		{"/api/unknown", http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			if tt.viewer {
				assert.Contains(t, rec.Body.String(), "AGV Map View")
			}
		})
	}
}
