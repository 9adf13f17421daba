package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// MockBackend is a configurable fake of the analytics API for testing.
// It serves the auth endpoints plus a representative protected endpoint
// and a cacheable filter-option listing, tracking request counts so
// tests can assert on the 401-refresh-retry protocol.
type MockBackend struct {
	Server *httptest.Server

	// Token is the access token issued by login and accepted by
	// protected endpoints.
	Token string

	// User is the profile returned by login and the current-user
	// endpoint.
	User map[string]any

	// LoginStatus, when not 200, is returned by the login endpoint with
	// LoginBody.
	LoginStatus int
	LoginBody   map[string]any

	// RejectProtected makes protected endpoints return 401 until cleared.
	// RevalidationClears makes a successful current-user call clear it,
	// mimicking a backend whose rejection was transient.
	RejectProtected    bool
	RevalidationClears bool

	// CurrentUserStatus overrides the current-user endpoint status
	// (200 if zero).
	CurrentUserStatus int

	// RevalidateDelay slows the current-user endpoint down so concurrent
	// 401s can pile up behind one refresh.
	RevalidateDelay time.Duration

	// LogoutStatus overrides the logout endpoint status (200 if zero).
	LogoutStatus int

	mu               sync.Mutex
	loginCount       int
	currentUserCount int
	logoutCount      int
	protectedCount   int
	filterCount      int
}

// SetupMockBackend creates a mock analytics backend with a healthy
// default configuration: login succeeds, the issued token is accepted
// everywhere.
func SetupMockBackend(t *testing.T) *MockBackend {
	t.Helper()

	mock := &MockBackend{
		Token: "test-access-token",
		User: map[string]any{
			"id":         int64(1),
			"email":      "a@b.com",
			"name":       "A",
			"role":       "instructor",
			"campus":     "North",
			"department": "Science",
			"username":   "a.b",
		},
	}

	router := http.NewServeMux()

	router.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		mock.count(&mock.loginCount)

		if mock.LoginStatus != 0 && mock.LoginStatus != http.StatusOK {
			w.WriteHeader(mock.LoginStatus)
			WriteJSON(w, mock.LoginBody)
			return
		}

		body := mock.LoginBody
		if body == nil {
			body = map[string]any{
				"access_token": mock.Token,
				"user":         mock.User,
			}
		}
		WriteJSON(w, body)
	})

	router.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		mock.count(&mock.currentUserCount)

		if mock.RevalidateDelay > 0 {
			time.Sleep(mock.RevalidateDelay)
		}

		status := mock.CurrentUserStatus
		if status == 0 {
			status = http.StatusOK
		}

		if !mock.authorized(r) {
			status = http.StatusUnauthorized
		}

		if status != http.StatusOK {
			w.WriteHeader(status)
			WriteJSON(w, map[string]any{"detail": "authentication required"})
			return
		}

		if mock.RevalidationClears {
			mock.mu.Lock()
			mock.RejectProtected = false
			mock.mu.Unlock()
		}

		WriteJSON(w, mock.User)
	})

	router.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		mock.count(&mock.logoutCount)

		if mock.LogoutStatus != 0 {
			w.WriteHeader(mock.LogoutStatus)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	protected := func(payload func() any) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !mock.authorized(r) || mock.rejecting() {
				w.WriteHeader(http.StatusUnauthorized)
				WriteJSON(w, map[string]any{"detail": "authentication required"})
				return
			}
			WriteJSON(w, payload())
		}
	}

	router.HandleFunc("GET /dashboards/{role}", func(w http.ResponseWriter, r *http.Request) {
		mock.count(&mock.protectedCount)
		protected(func() any {
			return map[string]any{
				"student_count": 120,
				"course_count":  8,
				"average_grade": 71.5,
			}
		})(w, r)
	})

	router.HandleFunc("GET /filter-options/{kind}", func(w http.ResponseWriter, r *http.Request) {
		mock.count(&mock.filterCount)
		protected(func() any {
			return []map[string]any{
				{"value": "north", "label": "North Campus"},
				{"value": "south", "label": "South Campus"},
			}
		})(w, r)
	})

	mock.Server = httptest.NewServer(router)
	t.Cleanup(mock.Server.Close)

	return mock
}

func (m *MockBackend) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+m.Token
}

func (m *MockBackend) rejecting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RejectProtected
}

func (m *MockBackend) count(field *int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*field++
}

// LoginCount returns the number of login requests received.
func (m *MockBackend) LoginCount() int { return m.read(&m.loginCount) }

// CurrentUserCount returns the number of current-user requests received.
func (m *MockBackend) CurrentUserCount() int { return m.read(&m.currentUserCount) }

// LogoutCount returns the number of logout requests received.
func (m *MockBackend) LogoutCount() int { return m.read(&m.logoutCount) }

// ProtectedCount returns the number of dashboard requests received.
func (m *MockBackend) ProtectedCount() int { return m.read(&m.protectedCount) }

// FilterCount returns the number of filter-option requests received.
func (m *MockBackend) FilterCount() int { return m.read(&m.filterCount) }

func (m *MockBackend) read(field *int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *field
}

// URL returns the mock server's base URL.
func (m *MockBackend) URL() string {
	return m.Server.URL
}

// WriteJSON writes v to w as a JSON response.
func WriteJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
