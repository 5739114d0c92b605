package handlers_test

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Tsedenia-Nega/Appointment-management/internal/backend"
	"github.com/Tsedenia-Nega/Appointment-management/internal/handlers"
	"github.com/Tsedenia-Nega/Appointment-management/internal/identity"
	"github.com/Tsedenia-Nega/Appointment-management/internal/middleware"
	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"github.com/Tsedenia-Nega/Appointment-management/internal/security"
	"github.com/Tsedenia-Nega/Appointment-management/internal/server"
	"github.com/Tsedenia-Nega/Appointment-management/internal/ws"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// recorded is one request seen by the fake API.
type recorded struct {
	Method string
	Path   string
	Auth   string
	Body   string
}

// fakeAPI stands in for the visitor API. Unknown routes answer 404.
type fakeAPI struct {
	mu       sync.Mutex
	requests []recorded
	routes   map[string]http.HandlerFunc
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: string(body)})
	h, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if ok {
		h(w, r)
		return
	}
	http.NotFound(w, r)
}

func (f *fakeAPI) handle(route string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[route] = h
}

// hits returns the recorded requests for "METHOD path".
func (f *fakeAPI) hits(route string) []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recorded
	for _, r := range f.requests {
		if r.Method+" "+r.Path == route {
			out = append(out, r)
		}
	}
	return out
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

// dropConnection closes the connection without answering, as an unreachable
// API would.
func dropConnection(w http.ResponseWriter, r *http.Request) {
	conn, _, err := w.(http.Hijacker).Hijack()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = conn.Close()
}

// env is a full portal wired to a fake API.
type env struct {
	t       *testing.T
	app     *fiber.App
	api     *fakeAPI
	cookies map[string]string
}

func newEnv(t *testing.T, routes map[string]http.HandlerFunc) *env {
	t.Helper()
	return newEnvConfig(t, routes, nil)
}

// newEnvConfig is newEnv with tune applied to the security settings.
func newEnvConfig(t *testing.T, routes map[string]http.HandlerFunc, tune func(*security.SecurityConfig)) *env {
	t.Helper()
	if routes == nil {
		routes = map[string]http.HandlerFunc{}
	}
	api := &fakeAPI{routes: routes}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	logger := security.NewLoggerTo(io.Discard)
	secCfg := security.DefaultSecurityConfig()
	secCfg.SessionSecure = false
	if tune != nil {
		tune(secCfg)
	}

	guard := middleware.NewSecurityMiddleware(logger, secCfg)
	t.Cleanup(guard.Stop)

	store := server.NewStore(secCfg, nil)
	hub := ws.NewHub(logger)
	provider := identity.NewProvider(store, identity.WithNotifier(hub))
	client := backend.New(srv.URL, backend.WithHTTPClient(srv.Client()), backend.WithRoleRetry(1, time.Millisecond))

	h := handlers.New(handlers.Deps{
		API:      client,
		Identity: provider,
		Logger:   logger,
		Security: guard,
		Config:   secCfg,
	})

	app := server.New(server.Options{
		Security: secCfg,
		Logger:   logger,
		Store:    store,
		Guard:    guard,
		Identity: provider,
		Handler:  h,
		Hub:      hub,
	})

	return &env{t: t, app: app, api: api, cookies: map[string]string{}}
}

// do sends req with the stored cookies and keeps the ones the response sets.
func (e *env) do(req *http.Request) (*http.Response, string) {
	e.t.Helper()
	for name, value := range e.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)

	for _, c := range resp.Cookies() {
		if c.Value == "" || (!c.Expires.IsZero() && c.Expires.Before(time.Now())) {
			delete(e.cookies, c.Name)
			continue
		}
		e.cookies[c.Name] = c.Value
	}

	body, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp, string(body)
}

func (e *env) get(path string) (*http.Response, string) {
	e.t.Helper()
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// csrf loads page and returns the CSRF token rendered into its forms.
func (e *env) csrf(page string) string {
	e.t.Helper()
	resp, body := e.get(page)
	require.Equal(e.t, http.StatusOK, resp.StatusCode, "GET %s", page)
	m := csrfPattern.FindStringSubmatch(body)
	require.Len(e.t, m, 2, "no csrf token on %s", page)
	return html.UnescapeString(m[1])
}

// post submits form from page, adding the page's CSRF token.
func (e *env) post(page, path string, form url.Values) (*http.Response, string) {
	e.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", e.csrf(page))

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

var hiddenPattern = regexp.MustCompile(`<input type="hidden" name="([^"]+)" value="([^"]*)">`)

// submit posts form the way a browser would from page: the page's hidden
// fields are sent along unless form sets them.
func (e *env) submit(page, path string, form url.Values) (*http.Response, string) {
	e.t.Helper()
	resp, body := e.get(page)
	require.Equal(e.t, http.StatusOK, resp.StatusCode, "GET %s", page)

	if form == nil {
		form = url.Values{}
	}
	for _, m := range hiddenPattern.FindAllStringSubmatch(body, -1) {
		if _, set := form[m[1]]; !set {
			form.Set(m[1], html.UnescapeString(m[2]))
		}
	}

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

// login signs in as a user whose role holds perms.
func (e *env) login(perms ...models.Permission) {
	e.t.Helper()
	keys := make([]map[string]string, len(perms))
	for i, p := range perms {
		keys[i] = map[string]string{"key": string(p)}
	}
	encoded, err := json.Marshal(keys)
	require.NoError(e.t, err)

	e.api.handle("POST /auth/login", reply(http.StatusOK, fmt.Sprintf(
		`{"access_token":"tok-1","user":{"id":7,"firstName":"Abebe","lastName":"Kebede","email":"abebe@example.com",
		"role":{"id":"3","name":"FRONT_DESK","permissions":%s}}}`, encoded)))

	resp, _ := e.post("/login", "/login", url.Values{
		"email":    {"abebe@example.com"},
		"password": {"secret"},
	})
	require.Equal(e.t, http.StatusFound, resp.StatusCode)
}

// validAppointment is a create form that passes validation.
func validAppointment() url.Values {
	return url.Values{
		"firstName":       {"Sara"},
		"lastName":        {"Alemu"},
		"email":           {"sara@example.com"},
		"phone":           {"0911000000"},
		"plateNum":        {"aa-123"},
		"appointmentDate": {"2025-03-01"},
		"fromHour":        {"01"},
		"fromMinute":      {"30"},
		"fromPeriod":      {"PM"},
		"toHour":          {"02"},
		"toMinute":        {"00"},
		"toPeriod":        {"PM"},
		"purpose":         {"Meeting"},
	}
}
