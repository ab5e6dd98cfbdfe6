package main

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"couponnet/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{errors.Validation("bad input"), http.StatusBadRequest},
		{errors.NotFound("missing"), http.StatusNotFound},
		{errors.StateConflict("already moved"), http.StatusConflict},
		{errors.InsufficientInventory("short"), http.StatusConflict},
		{errors.InvalidOperation("not redeemable"), http.StatusUnprocessableEntity},
		{errors.BelowMinimumBalance("too low"), http.StatusUnprocessableEntity},
		{errors.WindowClosed("closed"), http.StatusUnprocessableEntity},
		{errors.SponsorInvalid("broken chain"), http.StatusUnprocessableEntity},
		{errors.KYCRequired("verify first"), http.StatusForbidden},
		{errors.CooldownActive("one per window"), http.StatusTooManyRequests},
		{stderrors.New("database exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(errors.KindOf(tc.err).String(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			respondError(c, zap.NewNop(), tc.err)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	respondError(c, zap.NewNop(), stderrors.New("dsn=mongodb://secret"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestCallerIDRequiresHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/wallet", nil)

	_, ok := callerID(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/wallet", nil)
	c.Request.Header.Set("X-User-ID", "u1")

	id, ok := callerID(c)
	assert.True(t, ok)
	assert.Equal(t, "u1", id)
}
