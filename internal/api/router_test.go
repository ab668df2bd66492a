package api_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"sigs.k8s.io/yaml"

	specpkg "github.com/bandhub/bandhub/api"
	"github.com/bandhub/bandhub/internal/ai"
	"github.com/bandhub/bandhub/internal/api"
	"github.com/bandhub/bandhub/internal/api/handler"
	"github.com/bandhub/bandhub/internal/auth"
	"github.com/bandhub/bandhub/internal/collectible"
	"github.com/bandhub/bandhub/internal/course"
	"github.com/bandhub/bandhub/internal/quota"
	"github.com/bandhub/bandhub/internal/support"
	"github.com/bandhub/bandhub/internal/vault"
)

// openAPIDoc holds the part of the OpenAPI document the route check needs.
type openAPIDoc struct {
	Paths map[string]map[string]interface{} `json:"paths"`
}

// fixedUserRepo knows a single account.
type fixedUserRepo struct {
	user *auth.User
}

func (f *fixedUserRepo) Create(_ context.Context, _ *auth.User) error { return nil }
func (f *fixedUserRepo) GetByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	if f.user != nil && f.user.ID == id {
		return f.user, nil
	}
	return nil, auth.ErrUserNotFound
}
func (f *fixedUserRepo) GetByEmail(_ context.Context, _ string) (*auth.User, error) {
	return nil, auth.ErrUserNotFound
}
func (f *fixedUserRepo) List(_ context.Context) ([]auth.User, error) { return nil, nil }
func (f *fixedUserRepo) Update(_ context.Context, _ uuid.UUID, _ auth.UpdateFields) (*auth.User, error) {
	return nil, nil
}
func (f *fixedUserRepo) CountByRole(_ context.Context, _ string) (int, error) { return 0, nil }

type routerFixture struct {
	router  *chi.Mux
	authSvc *auth.Service
	fan     *auth.User
}

func newRouterFixture(t *testing.T, rateLimit float64, burst int) routerFixture {
	t.Helper()

	fan := &auth.User{ID: uuid.New(), Email: "fan@example.com", Name: "Fan", Role: auth.RoleFan}
	users := &fixedUserRepo{user: fan}
	authSvc := auth.NewService(users, bcrypt.MinCost, []byte("router-test-secret"), time.Hour)
	limiter := quota.NewMemoryLimiter(time.Now)

	ok := handler.PingFunc(func(context.Context) error { return nil })
	router := api.NewRouter(api.RouterDeps{
		DBPinger:           ok,
		Version:            "test",
		OpenAPISpec:        specpkg.OpenAPISpec,
		AuthService:        authSvc,
		UserRepo:           users,
		SessionCookie:      handler.CookieConfig{Name: "bandhub_session"},
		AuthRateLimit:      rateLimit,
		AuthRateBurst:      burst,
		CollectibleService: collectible.NewService(ai.Disabled{}, limiter, 5),
		CourseService:      course.NewService(ai.Disabled{}, limiter, 5),
		SupportService:     support.NewService(nil, ai.Disabled{}),
		VaultService:       vault.NewService(nil, nil, nil, "BHT", ""),
	})

	return routerFixture{router: router, authSvc: authSvc, fan: fan}
}

func (f routerFixture) do(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestOpenAPISpec_RoutesCoverAllPaths(t *testing.T) {
	t.Parallel()

	specJSON, err := yaml.YAMLToJSON(specpkg.OpenAPISpec)
	require.NoError(t, err, "embedded spec must convert to JSON")

	var spec openAPIDoc
	err = yaml.Unmarshal(specJSON, &spec)
	require.NoError(t, err, "spec JSON must unmarshal")

	specRoutes := extractSpecRoutes(t, spec)
	require.NotEmpty(t, specRoutes, "spec should define at least one route")

	chiRoutes := extractChiRoutes(t, newRouterFixture(t, 5, 10).router)
	require.NotEmpty(t, chiRoutes, "Chi router should have at least one route")

	for _, sr := range specRoutes {
		t.Run(fmt.Sprintf("spec_%s_%s_has_Chi_route", sr.method, sr.path), func(t *testing.T) {
			assert.Contains(t, chiRoutes, sr, "spec route %s %s not found in Chi router", sr.method, sr.path)
		})
	}

	for _, cr := range chiRoutes {
		t.Run(fmt.Sprintf("Chi_%s_%s_has_spec_path", cr.method, cr.path), func(t *testing.T) {
			assert.Contains(t, specRoutes, cr, "Chi route %s %s not found in OpenAPI spec", cr.method, cr.path)
		})
	}
}

func TestRouter_PublicEndpoints(t *testing.T) {
	t.Parallel()
	f := newRouterFixture(t, 5, 10)

	tests := []struct {
		name string
		path string
	}{
		{"health", "/health"},
		{"metrics", "/metrics"},
		{"openapi", "/openapi.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, tt.path, "")
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	t.Parallel()
	f := newRouterFixture(t, 5, 10)

	for _, path := range []string{"/bands", "/wallet", "/conversations", "/admin/stats", "/auth/me"} {
		w := f.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := f.do(t, http.MethodGet, "/bands", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_RoleGates(t *testing.T) {
	t.Parallel()
	f := newRouterFixture(t, 5, 10)

	token, err := f.authSvc.IssueToken(f.fan)
	require.NoError(t, err)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/admin/stats"},
		{http.MethodGet, "/admin/users"},
		{http.MethodGet, "/admin/withdrawals"},
		{http.MethodPost, "/admin/vaults/" + uuid.NewString() + "/distributions"},
		{http.MethodPost, "/bands"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := f.do(t, tt.method, tt.path, token)
			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}

func TestRouter_AuthEndpointsAreRateLimited(t *testing.T) {
	t.Parallel()
	f := newRouterFixture(t, 0.001, 1)

	body := `{"email":"nobody@example.com","password":"wrong-password"}`
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, send().Code)
	limited := send()
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	// logout is not limited
	w := f.do(t, http.MethodPost, "/auth/logout", "")
	assert.NotEqual(t, http.StatusTooManyRequests, w.Code)
}

type route struct {
	method string
	path   string
}

func extractSpecRoutes(t *testing.T, spec openAPIDoc) []route {
	t.Helper()
	var routes []route
	for path, methods := range spec.Paths {
		for method := range methods {
			if method == "parameters" {
				continue
			}
			routes = append(routes, route{
				method: strings.ToUpper(method),
				path:   path,
			})
		}
	}
	sortRoutes(routes)
	return routes
}

func extractChiRoutes(t *testing.T, r *chi.Mux) []route {
	t.Helper()
	var routes []route
	walkFunc := func(method, routePath string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		// Chi subroutes produce trailing slashes (/bands/) where OpenAPI uses /bands.
		normalized := strings.TrimRight(routePath, "/")
		if normalized == "" {
			normalized = "/"
		}
		routes = append(routes, route{method: method, path: normalized})
		return nil
	}
	require.NoError(t, chi.Walk(r, walkFunc), "chi.Walk should not error")

	sortRoutes(routes)
	return routes
}

func sortRoutes(routes []route) {
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].path == routes[j].path {
			return routes[i].method < routes[j].method
		}
		return routes[i].path < routes[j].path
	})
}
