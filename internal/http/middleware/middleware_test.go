package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/ventas/internal/http/middleware"
	"github.com/MrJamesThe3rd/ventas/internal/idempotency"
)

var secret = []byte("s3cr3t")

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)

	return token
}

func TestAuth(t *testing.T) {
	valid := jwt.RegisteredClaims{
		Subject:   "cajero-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	expired := jwt.RegisteredClaims{
		Subject:   "cajero-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}

	type testCase struct {
		name       string
		header     func(t *testing.T) string
		wantStatus int
	}

	tests := []testCase{
		{
			name:       "Valid",
			header:     func(t *testing.T) string { return "Bearer " + sign(t, jwt.SigningMethodHS256, secret, valid) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "Missing",
			header:     func(*testing.T) string { return "" },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "WrongScheme",
			header:     func(*testing.T) string { return "Basic dXNlcjpwYXNz" },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "WrongSecret",
			header:     func(t *testing.T) string { return "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), valid) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "WrongAlgorithm",
			header:     func(t *testing.T) string { return "Bearer " + sign(t, jwt.SigningMethodHS512, secret, valid) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Expired",
			header:     func(t *testing.T) string { return "Bearer " + sign(t, jwt.SigningMethodHS256, secret, expired) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "NoExpiry",
			header: func(t *testing.T) string {
				return "Bearer " + sign(t, jwt.SigningMethodHS256, secret, jwt.RegisteredClaims{Subject: "x"})
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var subject string

			h := middleware.Auth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject = middleware.Subject(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/ventas", nil)
			if header := tt.header(t); header != "" {
				req.Header.Set("Authorization", header)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "cajero-1", subject)
			}
		})
	}
}

func TestIdempotency(t *testing.T) {
	type testCase struct {
		name       string
		method     string
		key        string
		status     int
		setupMock  func(m *idempotency.MockGuard)
		wantStatus int
		wantCalled bool
	}

	tests := []testCase{
		{
			name:   "FirstRequest",
			method: http.MethodPost,
			key:    "abc",
			status: http.StatusCreated,
			setupMock: func(m *idempotency.MockGuard) {
				m.EXPECT().Claim(gomock.Any(), "abc").Return(true, nil)
			},
			wantStatus: http.StatusCreated,
			wantCalled: true,
		},
		{
			name:   "Replay",
			method: http.MethodPost,
			key:    "abc",
			status: http.StatusCreated,
			setupMock: func(m *idempotency.MockGuard) {
				m.EXPECT().Claim(gomock.Any(), "abc").Return(false, nil)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:   "FailedRequestReleasesKey",
			method: http.MethodPost,
			key:    "abc",
			status: http.StatusBadRequest,
			setupMock: func(m *idempotency.MockGuard) {
				m.EXPECT().Claim(gomock.Any(), "abc").Return(true, nil)
				m.EXPECT().Release(gomock.Any(), "abc").Return(nil)
			},
			wantStatus: http.StatusBadRequest,
			wantCalled: true,
		},
		{
			name:   "GuardUnavailable",
			method: http.MethodPost,
			key:    "abc",
			status: http.StatusCreated,
			setupMock: func(m *idempotency.MockGuard) {
				m.EXPECT().Claim(gomock.Any(), "abc").Return(false, errors.New("dial tcp: connection refused"))
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "NoHeader",
			method:     http.MethodPost,
			status:     http.StatusCreated,
			setupMock:  func(m *idempotency.MockGuard) {},
			wantStatus: http.StatusCreated,
			wantCalled: true,
		},
		{
			name:       "NotPost",
			method:     http.MethodGet,
			key:        "abc",
			status:     http.StatusOK,
			setupMock:  func(m *idempotency.MockGuard) {},
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := idempotency.NewMockGuard(gomock.NewController(t))
			tt.setupMock(guard)

			called := false
			h := middleware.Idempotency(guard)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest(tt.method, "/ventas", nil)
			if tt.key != "" {
				req.Header.Set(middleware.IdempotencyHeader, tt.key)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
		})
	}
}

func TestIdempotency_PanicReleasesKey(t *testing.T) {
	guard := idempotency.NewMockGuard(gomock.NewController(t))
	guard.EXPECT().Claim(gomock.Any(), "abc").Return(true, nil)
	guard.EXPECT().Release(gomock.Any(), "abc").Return(nil)

	h := chimw.Recoverer(middleware.Idempotency(guard)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil map write")
	})))

	req := httptest.NewRequest(http.MethodPost, "/ventas", nil)
	req.Header.Set(middleware.IdempotencyHeader, "abc")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
