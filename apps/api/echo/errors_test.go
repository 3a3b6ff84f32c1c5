package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/kikundi/core"
	"github.com/trezcool/kikundi/tests"
)

func Test_appHTTPErrorHandler(t *testing.T) {
	conf := testutil.NewConfig()
	_, translator := testutil.NewValidator()
	handle := newAppHTTPErrorHandler(testutil.NewLogger(conf), translator)

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{name: "server error", err: errors.New("connection lost"), wantCode: http.StatusInternalServerError, wantBody: `{"error":"Internal Server Error"}`},
		{name: "validation error", err: core.NewValidationError(errors.New("lol")), wantCode: http.StatusBadRequest, wantBody: `{"error":"lol"}`},
		{name: "http error", err: errHttpForbidden, wantCode: http.StatusForbidden, wantBody: `{"error":"Teacher access required."}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ctx := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/api/students", nil), rec)

			handle(tt.err, ctx)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
