package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "corpauth/pkg/domain-errors"
	"corpauth/pkg/requestcontext"
	"corpauth/pkg/testutil"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (v stubValidator) ValidateToken(string) (*JWTClaims, error) {
	return v.claims, v.err
}

func TestRequireAdmin(t *testing.T) {
	var seenActor, seenSubject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenActor = requestcontext.Actor(r.Context())
		seenSubject = GetSubject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("valid token sets the actor", func(t *testing.T) {
		h := RequireAdmin(stubValidator{claims: &JWTClaims{Subject: "ops", Role: "admin"}}, nil, discard)(next)
		rr := testutil.DoRequest(h, testutil.WithBearer(testutil.NewRequest(t, http.MethodGet, "/", ""), "tok"))

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "ops", seenActor)
		assert.Equal(t, "ops", seenSubject)
	})

	t.Run("wrong role is forbidden", func(t *testing.T) {
		h := RequireAdmin(stubValidator{err: dErrors.New(dErrors.CodeForbidden, "admin role required")}, nil, discard)(next)
		rr := testutil.DoRequest(h, testutil.WithBearer(testutil.NewRequest(t, http.MethodGet, "/", ""), "tok"))

		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, string(dErrors.CodeForbidden))
	})

	t.Run("non-bearer scheme is rejected", func(t *testing.T) {
		h := RequireAdmin(stubValidator{claims: &JWTClaims{Subject: "ops"}}, nil, discard)(next)
		req := testutil.NewRequest(t, http.MethodGet, "/", "")
		req.Header.Set("Authorization", "Basic b3BzOnB3")
		rr := testutil.DoRequest(h, req)

		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})
}

func TestRecovery(t *testing.T) {
	h := Recovery(discard)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/", ""))

	testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, string(dErrors.CodeInternal))
}

func TestRequestIDAssignsAndPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/", ""))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get("X-Request-ID"))

	req := testutil.NewRequest(t, http.MethodGet, "/", "")
	req.Header.Set("X-Request-ID", "given")
	testutil.DoRequest(h, req)
	assert.Equal(t, "given", seen)

	assert.Empty(t, requestcontext.RequestID(context.Background()))
}
