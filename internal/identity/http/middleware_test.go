package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fairmarket/identity/internal/identity/domain"
	"github.com/fairmarket/identity/internal/identity/service"
	"github.com/fairmarket/identity/internal/identity/store"
	"github.com/fairmarket/identity/internal/identity/store/drivers/sqlite"
	"github.com/fairmarket/identity/pkg/httpx"
	"github.com/fairmarket/identity/pkg/idx"
	"github.com/fairmarket/identity/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "fairmarket-test"

type gateFixture struct {
	signer *jwtx.EdDSASigner
	admins *service.AdminService
	store  store.Store
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()

	signer, err := jwtx.GenerateSigner("test-key")
	require.NoError(t, err)

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	return &gateFixture{
		signer: signer,
		admins: &service.AdminService{Store: st, Logger: slog.Default()},
		store:  st,
	}
}

func (f *gateFixture) seedAdmin(t *testing.T, role domain.Role, active bool) string {
	t.Helper()

	ctx := context.Background()
	id := idx.New().String()
	now := time.Now().UTC()
	err := f.store.Admins().CreateAdmin(ctx, domain.Administrator{
		ID:        id,
		Email:     id + "@example.com",
		Role:      role,
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return id
}

func (f *gateFixture) mintToken(t *testing.T, subject string) string {
	t.Helper()

	claims := jwtx.NewSessionClaims(subject, "sid", "a@b.c", "", "admin",
		time.Minute, testIssuer, time.Now())
	token, err := f.signer.Sign(claims)
	require.NoError(t, err)
	return token
}

func (f *gateFixture) handler(required domain.Role) (http.Handler, *string) {
	var gotSubject string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sub, ok := httpx.SubjectFromContext(r.Context()); ok {
			gotSubject = sub
		}
		w.WriteHeader(http.StatusOK)
	})
	verifier := jwtx.NewVerifier(testIssuer, f.signer)
	return RequireRole(verifier, f.admins, required)(inner), &gotSubject
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	t.Run("missing bearer is unauthorized", func(t *testing.T) {
		f := newGateFixture(t)
		h, _ := f.handler(domain.RoleModerator)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/admins", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		f := newGateFixture(t)
		h, _ := f.handler(domain.RoleModerator)

		req := httptest.NewRequest(http.MethodGet, "/v1/admins", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token is unauthorized", func(t *testing.T) {
		f := newGateFixture(t)
		id := f.seedAdmin(t, domain.RoleAdmin, true)
		h, _ := f.handler(domain.RoleModerator)

		claims := jwtx.NewSessionClaims(id, "sid", "a@b.c", "", "admin",
			-time.Minute, testIssuer, time.Now().Add(-time.Hour))
		token, err := f.signer.Sign(claims)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/v1/admins", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token without an admin record is forbidden", func(t *testing.T) {
		f := newGateFixture(t)
		h, _ := f.handler(domain.RoleModerator)

		req := httptest.NewRequest(http.MethodGet, "/v1/admins", nil)
		req.Header.Set("Authorization", "Bearer "+f.mintToken(t, idx.New().String()))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Body.String(), msgNotAdmin)
	})

	t.Run("inactive admin is forbidden", func(t *testing.T) {
		f := newGateFixture(t)
		id := f.seedAdmin(t, domain.RoleAdmin, false)
		h, _ := f.handler(domain.RoleModerator)

		req := httptest.NewRequest(http.MethodGet, "/v1/admins", nil)
		req.Header.Set("Authorization", "Bearer "+f.mintToken(t, id))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Body.String(), msgNotAdmin)
	})

	t.Run("insufficient rank is forbidden with its own message", func(t *testing.T) {
		f := newGateFixture(t)
		id := f.seedAdmin(t, domain.RoleModerator, true)
		h, _ := f.handler(domain.RoleSuperAdmin)

		req := httptest.NewRequest(http.MethodGet, "/v1/admins", nil)
		req.Header.Set("Authorization", "Bearer "+f.mintToken(t, id))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Body.String(), msgInsufficient)
		require.NotContains(t, rec.Body.String(), msgNotAdmin)
	})

	t.Run("sufficient rank passes and injects the subject", func(t *testing.T) {
		f := newGateFixture(t)
		id := f.seedAdmin(t, domain.RoleSuperAdmin, true)
		h, gotSubject := f.handler(domain.RoleAdmin)

		req := httptest.NewRequest(http.MethodGet, "/v1/admins", nil)
		req.Header.Set("Authorization", "Bearer "+f.mintToken(t, id))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, id, *gotSubject)
	})
}
