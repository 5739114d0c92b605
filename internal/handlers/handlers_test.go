// Package handlers_test exercises the portal pages end to end: a real fiber
// application, real sessions and a fake visitor API.
package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"github.com/Tsedenia-Nega/Appointment-management/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLogin_RedirectsToDashboard verifies login lands on the dashboard and
// the token is used for later page loads.
func TestLogin_RedirectsToDashboard(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /requests/dashboard": reply(http.StatusOK, `{"total":4,"pending":1,"approved":3}`),
	})

	e.api.handle("POST /auth/login", reply(http.StatusOK,
		`{"access_token":"tok-1","user":{"id":7,"email":"abebe@example.com","role":{"name":"FRONT_DESK","permissions":[{"key":"view_dashboard"}]}}}`))

	resp, _ := e.post("/login", "/login", url.Values{"email": {"abebe@example.com"}, "password": {"secret"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	login := e.api.hits("POST /auth/login")
	require.Len(t, login, 1)
	assert.Empty(t, login[0].Auth)
	assert.JSONEq(t, `{"email":"abebe@example.com","password":"secret"}`, login[0].Body)

	resp, body := e.get("/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Dashboard")
	assert.Contains(t, body, "<strong>4</strong>")

	calls := e.api.hits("GET /requests/dashboard")
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer tok-1", calls[0].Auth)
}

// TestLogin_LandingFollowsPermissions verifies a gate-only role lands on check-in.
func TestLogin_LandingFollowsPermissions(t *testing.T) {
	e := newEnv(t, nil)
	e.api.handle("POST /auth/login", reply(http.StatusOK,
		`{"access_token":"tok-1","user":{"id":7,"email":"g@example.com","role":{"name":"SECURITY","permissions":[{"key":"check_in"}]}}}`))

	resp, _ := e.post("/login", "/login", url.Values{"email": {"g@example.com"}, "password": {"secret"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/checkin", resp.Header.Get("Location"))
}

// TestLogin_RejectedCredentials verifies the API message is shown on the form.
func TestLogin_RejectedCredentials(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"POST /auth/login": reply(http.StatusUnauthorized, `{"message":"Invalid credentials"}`),
	})

	resp, body := e.post("/login", "/login", url.Values{"email": {"abebe@example.com"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Invalid credentials")
	assert.Contains(t, body, `value="abebe@example.com"`)
}

// TestLogin_OutageDoesNotLockAccount verifies an unreachable or failing API
// does not count towards the account lockout.
func TestLogin_OutageDoesNotLockAccount(t *testing.T) {
	e := newEnvConfig(t, nil, func(cfg *security.SecurityConfig) {
		cfg.AccountLockoutThreshold = 2
		cfg.LoginRateLimit = 100
	})
	creds := func() url.Values {
		return url.Values{"email": {"abebe@example.com"}, "password": {"secret"}}
	}

	e.api.handle("POST /auth/login", dropConnection)
	resp, body := e.post("/login", "/login", creds())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Could not reach the server. Please try again.")

	e.api.handle("POST /auth/login", reply(http.StatusServiceUnavailable, `{"message":"Service unavailable"}`))
	_, body = e.post("/login", "/login", creds())
	assert.Contains(t, body, "Service unavailable")

	e.api.handle("POST /auth/login", reply(http.StatusOK,
		`{"access_token":"tok-1","user":{"id":7,"email":"abebe@example.com","role":{"name":"FRONT_DESK","permissions":[{"key":"view_dashboard"}]}}}`))
	resp, body = e.post("/login", "/login", creds())
	assert.NotContains(t, body, "Account is locked")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	assert.Len(t, e.api.hits("POST /auth/login"), 3)
}

// TestLogin_RejectedCredentialsLockAccount verifies refused passwords lock
// the email, whatever its case, without a further API call.
func TestLogin_RejectedCredentialsLockAccount(t *testing.T) {
	e := newEnvConfig(t, map[string]http.HandlerFunc{
		"POST /auth/login": reply(http.StatusUnauthorized, `{"message":"Invalid credentials"}`),
	}, func(cfg *security.SecurityConfig) {
		cfg.AccountLockoutThreshold = 2
		cfg.LoginRateLimit = 100
	})

	e.post("/login", "/login", url.Values{"email": {"abebe@example.com"}, "password": {"wrong"}})
	e.post("/login", "/login", url.Values{"email": {"Abebe@Example.com"}, "password": {"wrong"}})

	_, body := e.post("/login", "/login", url.Values{"email": {"abebe@example.com"}, "password": {"secret"}})
	assert.Contains(t, body, "Account is locked due to too many failed attempts.")
	assert.Len(t, e.api.hits("POST /auth/login"), 2)
}

// TestLogin_InvalidFormSkipsBackend verifies validation happens before any call.
func TestLogin_InvalidFormSkipsBackend(t *testing.T) {
	e := newEnv(t, nil)

	resp, body := e.post("/login", "/login", url.Values{"email": {"not-an-email"}, "password": {"x"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Please enter a valid email address.")
	assert.Empty(t, e.api.hits("POST /auth/login"))
}

// TestCSRF_MissingTokenRejected verifies form posts need the session token.
func TestCSRF_MissingTokenRejected(t *testing.T) {
	e := newEnv(t, nil)
	e.get("/login")

	req, _ := http.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, _ := e.do(req)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, e.api.hits("POST /auth/login"))
}

// TestGuard_AnonymousRedirectsToLogin verifies guarded pages need a session.
func TestGuard_AnonymousRedirectsToLogin(t *testing.T) {
	e := newEnv(t, nil)

	for _, path := range []string{"/dashboard", "/pending", "/checkin", "/roles", "/profile"} {
		resp, _ := e.get(path)
		assert.Equal(t, http.StatusFound, resp.StatusCode, path)
		assert.Equal(t, "/login", resp.Header.Get("Location"), path)
	}
}

// TestGuard_MissingPermissionShowsInlineMessage verifies a signed-in user
// without the page permission sees the message, with no redirect and no
// data fetch.
func TestGuard_MissingPermissionShowsInlineMessage(t *testing.T) {
	e := newEnv(t, nil)
	e.login(models.PermCheckIn)

	resp, body := e.get("/pending")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body, "permission to view this page")
	assert.Empty(t, e.api.hits("GET /requests/pending"))

	// check_in does not imply check_out.
	resp, _ = e.get("/security")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// TestNav_ShowsOnlyPermittedEntries verifies the top bar follows the role.
func TestNav_ShowsOnlyPermittedEntries(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /requests/approved":   reply(http.StatusOK, `[]`),
		"GET /requests/reassigned": reply(http.StatusOK, `[]`),
	})
	e.login(models.PermCheckIn)

	_, body := e.get("/checkin")
	assert.Contains(t, body, `href="/checkin"`)
	assert.NotContains(t, body, `href="/security"`)
	assert.NotContains(t, body, `href="/roles"`)
}

// TestCreateAppointment_EqualTimesNoCall verifies a zero-length window is
// reported and never sent.
func TestCreateAppointment_EqualTimesNoCall(t *testing.T) {
	e := newEnv(t, nil)
	e.login(models.PermCreateAppointment)

	form := validAppointment()
	form.Set("fromHour", "09")
	form.Set("fromMinute", "00")
	form.Set("fromPeriod", "AM")
	form.Set("toHour", "09")
	form.Set("toMinute", "00")
	form.Set("toPeriod", "AM")

	resp, body := e.post("/create", "/create", form)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "End time must be after start time.")
	assert.Contains(t, body, `value="Sara"`, "entered values are kept")
	assert.Empty(t, e.api.hits("POST /requests"))
}

// TestCreateAppointment_SendsConvertedTimes verifies the 12-hour pickers
// reach the API as 24-hour values.
func TestCreateAppointment_SendsConvertedTimes(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"POST /requests":    reply(http.StatusCreated, `{"id":12}`),
		"GET /requests/all": reply(http.StatusOK, `[]`),
	})
	e.login(models.PermCreateAppointment, models.PermViewAppointment)

	resp, _ := e.post("/create", "/create", validAppointment())
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/view", resp.Header.Get("Location"))

	calls := e.api.hits("POST /requests")
	require.Len(t, calls, 1)
	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(calls[0].Body), &sent))
	assert.Equal(t, "13:30", sent["timeFrom"])
	assert.Equal(t, "14:00", sent["timeTo"])
	assert.Equal(t, "AA-123", sent["plateNum"])
	assert.Equal(t, "Sara", sent["firstName"])

	_, body := e.get("/view")
	assert.Contains(t, body, "Appointment created successfully!")
}

// TestCreateAppointment_BackendMessageShown verifies API validation text reaches the form.
func TestCreateAppointment_BackendMessageShown(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"POST /requests": reply(http.StatusBadRequest, `{"message":["email must be an email","phone is too short"]}`),
	})
	e.login(models.PermCreateAppointment)

	resp, body := e.post("/create", "/create", validAppointment())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "email must be an email phone is too short")
}

// TestAppointments_FilterAndPaginate verifies the list filters before paging.
func TestAppointments_FilterAndPaginate(t *testing.T) {
	list := make([]map[string]any, 0, 10)
	for i := 1; i <= 10; i++ {
		list = append(list, map[string]any{
			"id": i, "firstName": "Visitor", "lastName": string(rune('A' + i - 1)),
			"email": "v@example.com", "appointmentDate": "2025-03-01",
			"timeFrom": "09:00", "timeTo": "10:00", "status": "pending",
		})
	}
	list[9]["status"] = "approved"
	encoded, err := json.Marshal(list)
	require.NoError(t, err)

	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /requests/all": reply(http.StatusOK, string(encoded)),
	})
	e.login(models.PermViewAppointment)

	_, body := e.get("/view")
	assert.Contains(t, body, "Visitor H")
	assert.NotContains(t, body, "Visitor I")
	assert.Contains(t, body, `href="/view?page=2"`)

	_, body = e.get("/view?page=2")
	assert.Contains(t, body, "Visitor J")
	assert.NotContains(t, body, "Visitor A<")

	_, body = e.get("/view?status=approved")
	assert.Contains(t, body, "Visitor J")
	assert.NotContains(t, body, "Visitor B")
}

// TestIntegrity_DuplicateGoldNotSaved verifies a second Gold tier is refused
// from the listing the form was rendered with, with no further API call.
func TestIntegrity_DuplicateGoldNotSaved(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /integrity-settings": reply(http.StatusOK, `[{"id":1,"name":"Gold","visits":5,"period":"month"}]`),
	})
	e.login(models.PermManageIntegrity)

	resp, body := e.submit("/integrity/new", "/integrity", url.Values{
		"name":   {"Gold"},
		"visits": {"3"},
		"period": {"month"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "already exists")
	assert.Empty(t, e.api.hits("POST /integrity-settings"))
	assert.Len(t, e.api.hits("GET /integrity-settings"), 1, "only the form page lists categories")
}

// TestIntegrity_DuplicateWithoutListingField verifies a post that carries no
// listing is checked against a fetched one.
func TestIntegrity_DuplicateWithoutListingField(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /integrity-settings": reply(http.StatusOK, `[{"id":1,"name":"Gold","visits":5,"period":"month"}]`),
	})
	e.login(models.PermManageIntegrity)

	_, body := e.post("/integrity/new", "/integrity", url.Values{
		"name": {"Gold"}, "visits": {"3"}, "period": {"month"},
	})
	assert.Contains(t, body, "already exists")
	assert.Empty(t, e.api.hits("POST /integrity-settings"))
	assert.Len(t, e.api.hits("GET /integrity-settings"), 2)
}

// TestIntegrity_EditKeepsOwnName verifies an edit may keep the category's name.
func TestIntegrity_EditKeepsOwnName(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /integrity-settings":     reply(http.StatusOK, `[{"id":1,"name":"Gold","visits":5,"period":"month"},{"id":2,"name":"Silver","visits":2,"period":"year"}]`),
		"PATCH /integrity-settings/1": reply(http.StatusOK, `{}`),
	})
	e.login(models.PermManageIntegrity)

	resp, _ := e.submit("/integrity/1/edit", "/integrity/1", url.Values{
		"name": {"Gold"}, "visits": {"8"}, "period": {"month"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Len(t, e.api.hits("PATCH /integrity-settings/1"), 1)
	assert.Len(t, e.api.hits("GET /integrity-settings"), 1)

	_, body := e.submit("/integrity/1/edit", "/integrity/1", url.Values{
		"name": {"Silver"}, "visits": {"8"}, "period": {"month"},
	})
	assert.Contains(t, body, "already exists")
	assert.Len(t, e.api.hits("PATCH /integrity-settings/1"), 1)
}

// TestIntegrity_NegativeVisitsRejected verifies the visit count is checked locally.
func TestIntegrity_NegativeVisitsRejected(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /integrity-settings": reply(http.StatusOK, `[]`),
	})
	e.login(models.PermManageIntegrity)

	_, body := e.submit("/integrity/new", "/integrity", url.Values{
		"name": {"Silver"}, "visits": {"-2"}, "period": {"year"},
	})
	assert.Contains(t, body, "Visits cannot be negative.")
	assert.Empty(t, e.api.hits("POST /integrity-settings"))
	assert.Len(t, e.api.hits("GET /integrity-settings"), 1)
}

// TestIntegrity_CreatesTier verifies a unique tier is posted.
func TestIntegrity_CreatesTier(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /integrity-settings":  reply(http.StatusOK, `[{"id":1,"name":"Gold","visits":5,"period":"month"}]`),
		"POST /integrity-settings": reply(http.StatusCreated, `{}`),
	})
	e.login(models.PermManageIntegrity)

	resp, _ := e.submit("/integrity/new", "/integrity", url.Values{
		"name": {"Silver"}, "visits": {"2"}, "period": {"year"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	calls := e.api.hits("POST /integrity-settings")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"name":"Silver","visits":2,"period":"year"}`, calls[0].Body)
	assert.Len(t, e.api.hits("GET /integrity-settings"), 1)
}

// TestCheckOut_RefusedBeforeSecurityPass verifies checkout is not sent until
// security passed, and the reason is flashed.
func TestCheckOut_RefusedBeforeSecurityPass(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /checkinout/5":        reply(http.StatusOK, `{"checkedIn":true,"securityPassed":false}`),
		"GET /requests/approved":   reply(http.StatusOK, `[]`),
		"GET /requests/reassigned": reply(http.StatusOK, `[]`),
	})
	e.login(models.PermCheckOut)

	resp, _ := e.post("/security", "/security/5/checkout", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/security", resp.Header.Get("Location"))
	assert.Empty(t, e.api.hits("POST /checkinout/5/checkout"))

	_, body := e.get("/security")
	assert.Contains(t, body, "Security check must be passed before checkout.")
}

// TestSecurity_WorklistGatesCheckout verifies the checkout button state.
func TestSecurity_WorklistGatesCheckout(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /requests/approved": reply(http.StatusOK,
			`[{"id":5,"firstName":"Sara","lastName":"Alemu","status":"approved","appointmentDate":"2025-03-01","timeFrom":"09:00","timeTo":"10:00"}]`),
		"GET /requests/reassigned": reply(http.StatusInternalServerError, `{}`),
		"GET /checkinout/5":        reply(http.StatusOK, `{"checkedIn":true,"securityPassed":false}`),
	})
	e.login(models.PermCheckOut)

	resp, body := e.get("/security")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Sara Alemu")
	assert.Contains(t, body, `action="/security/5/pass"`)
	assert.Regexp(t, `action="/security/5/checkout"[\s\S]*?disabled`, body)
}

// TestCheckIn_Records verifies a check-in is posted after a fresh status read.
func TestCheckIn_Records(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /checkinout/5":          reply(http.StatusOK, `{}`),
		"POST /checkinout/5/checkin": reply(http.StatusOK, `{}`),
		"GET /requests/approved":     reply(http.StatusOK, `[]`),
		"GET /requests/reassigned":   reply(http.StatusOK, `[]`),
	})
	e.login(models.PermCheckIn)

	resp, _ := e.post("/checkin", "/checkin/5", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	calls := e.api.hits("POST /checkinout/5/checkin")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"checkedIn":true}`, calls[0].Body)
}

// TestCheckIn_NestedCustomerNamesShown verifies visitors sent under a nested
// customer object are named on the worklist and found by name search.
func TestCheckIn_NestedCustomerNamesShown(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /requests/approved": reply(http.StatusOK, `[
			{"id":7,"customer":{"firstName":"Tigist","lastName":"Bekele"},"status":"Approved","appointmentDate":"2025-03-01","timeFrom":"09:00","timeTo":"10:00"},
			{"id":8,"customer":{"firstName":"Lulit","lastName":"Haile"},"status":"Approved","appointmentDate":"2025-03-01","timeFrom":"11:00","timeTo":"12:00"}]`),
		"GET /requests/reassigned": reply(http.StatusOK, `[]`),
		"GET /checkinout/7":        reply(http.StatusOK, `{}`),
		"GET /checkinout/8":        reply(http.StatusOK, `{}`),
	})
	e.login(models.PermCheckIn)

	resp, body := e.get("/checkin")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Tigist Bekele")
	assert.Contains(t, body, "Lulit Haile")

	resp, body = e.get("/checkin?q=bekele")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Tigist Bekele")
	assert.NotContains(t, body, "Lulit Haile")
}

// TestBackendUnauthorized_EndsSession verifies a 401 on a page fetch signs
// the user out.
func TestBackendUnauthorized_EndsSession(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /requests/dashboard": reply(http.StatusUnauthorized, `{"message":"Unauthorized"}`),
	})
	e.login(models.PermViewDashboard)

	resp, _ := e.get("/dashboard")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login?expired=1", resp.Header.Get("Location"))

	resp, _ = e.get("/dashboard")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	_, body := e.get("/login?expired=1")
	assert.Contains(t, body, "Your session has expired. Please log in again.")
}

// TestLogout_EndsSession verifies logout clears the identity.
func TestLogout_EndsSession(t *testing.T) {
	e := newEnv(t, nil)
	e.login(models.PermViewAppointment)

	resp, _ := e.post("/profile", "/logout", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, _ = e.get("/view")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

// TestApprove_SendsMaterials verifies the approve dialog payload.
func TestApprove_SendsMaterials(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /requests/pending":     reply(http.StatusOK, `[]`),
		"POST /approvals/9/approve": reply(http.StatusOK, `{}`),
	})
	e.login(models.PermApproveRequest)

	resp, _ := e.post("/pending", "/pending/9/approve", url.Values{
		"allowedMaterials":   {"Computer", "Camera", "Sword"},
		"inspectionRequired": {"true"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	calls := e.api.hits("POST /approvals/9/approve")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"allowedMaterials":["Computer","Camera"],"inspectionRequired":true}`, calls[0].Body)

	_, body := e.get("/pending")
	assert.Contains(t, body, "Request approved.")
}

// TestReassign_InvalidWindowNotSent verifies the reassign window is validated.
func TestReassign_InvalidWindowNotSent(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /requests/9": reply(http.StatusOK, `{"id":9,"firstName":"Sara","lastName":"Alemu","appointmentDate":"2025-03-01","timeFrom":"09:00","timeTo":"10:00"}`),
	})
	e.login(models.PermApproveRequest)

	resp, body := e.post("/pending/9/reassign", "/pending/9/reassign", url.Values{
		"reassignedDate": {"2025-03-04"},
		"fromHour":       {"03"},
		"fromMinute":     {"00"},
		"fromPeriod":     {"PM"},
		"toHour":         {"02"},
		"toMinute":       {"00"},
		"toPeriod":       {"PM"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "End time must be after start time.")
	assert.Empty(t, e.api.hits("POST /approvals/9/reassign"))
}

// TestRoles_SaveSendsDiff verifies grants and revokes follow the checkboxes
// and the CEO role stays hidden.
func TestRoles_SaveSendsDiff(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /roles": reply(http.StatusOK,
			`[{"name":"CEO","permissions":[]},{"name":"FRONT_DESK","permissions":[{"key":"check_in"}]}]`),
		"POST /auth/roles/grant-multiple/FRONT_DESK":  reply(http.StatusOK, `{}`),
		"POST /auth/roles/revoke-multiple/FRONT_DESK": reply(http.StatusOK, `{}`),
	})
	e.login(models.PermManageRoles)

	_, body := e.get("/roles")
	assert.Contains(t, body, "Front Desk")
	assert.NotContains(t, body, `href="/roles/CEO"`)

	resp, _ := e.post("/roles/FRONT_DESK", "/roles/FRONT_DESK", url.Values{
		"permissions": {"view_dashboard"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	grant := e.api.hits("POST /auth/roles/grant-multiple/FRONT_DESK")
	require.Len(t, grant, 1)
	assert.JSONEq(t, `{"permissionKeys":["view_dashboard"]}`, grant[0].Body)

	revoke := e.api.hits("POST /auth/roles/revoke-multiple/FRONT_DESK")
	require.Len(t, revoke, 1)
	assert.JSONEq(t, `{"permissionKeys":["check_in"]}`, revoke[0].Body)
}

// TestSignup_FallbackRoles verifies the default roles are offered and flagged
// when the role list cannot be loaded.
func TestSignup_FallbackRoles(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /auth/roles": reply(http.StatusInternalServerError, `{}`),
	})
	e.login(models.PermManageRoles)

	resp, body := e.get("/signup")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "default role list")
	assert.Contains(t, body, `value="SECURITY"`)
	assert.NotContains(t, body, `value="CEO"`)
}

// TestProfile_UpdateRefreshesName verifies the top bar shows the saved name.
func TestProfile_UpdateRefreshesName(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"GET /users":         reply(http.StatusOK, `[{"id":7,"firstName":"Abebe","lastName":"Kebede","email":"ABEBE@example.com"}]`),
		"PUT /users/profile": reply(http.StatusOK, `{"id":7,"firstName":"Abebech","lastName":"Kebede","email":"abebe@example.com"}`),
	})
	e.login()

	resp, body := e.get("/profile")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `value="Kebede"`)

	resp, _ = e.post("/profile", "/profile", url.Values{
		"firstName": {"Abebech"},
		"lastName":  {"Kebede"},
		"email":     {"abebe@example.com"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	_, body = e.get("/profile")
	assert.Contains(t, body, "Abebech Kebede")
	assert.Contains(t, body, "Profile updated successfully!")
}

// TestResetPassword_MismatchNotSent verifies the password pair is checked locally.
func TestResetPassword_MismatchNotSent(t *testing.T) {
	e := newEnv(t, nil)

	_, body := e.post("/reset-password/abc", "/reset-password/abc", url.Values{
		"password": {"secret1"}, "confirmPassword": {"secret2"},
	})
	assert.Contains(t, body, "Passwords do not match.")
	assert.Empty(t, e.api.hits("POST /auth/reset-password/abc"))
}

// TestResetPassword_Success verifies the user is sent to log in.
func TestResetPassword_Success(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"POST /auth/reset-password/abc": reply(http.StatusOK, `{}`),
	})

	resp, _ := e.post("/reset-password/abc", "/reset-password/abc", url.Values{
		"password": {"secret1"}, "confirmPassword": {"secret1"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login?reset=1", resp.Header.Get("Location"))
}

// TestForgotPassword_ShowsBackendMessage verifies the confirmation text.
func TestForgotPassword_ShowsBackendMessage(t *testing.T) {
	e := newEnv(t, map[string]http.HandlerFunc{
		"POST /auth/forgot-password": reply(http.StatusOK, `{"message":"Reset link sent."}`),
	})

	_, body := e.post("/forgot-password", "/forgot-password", url.Values{"email": {"a@example.com"}})
	assert.Contains(t, body, "Reset link sent.")
}

// TestHealth_WithoutDatabase verifies the health check without persisted sessions.
func TestHealth_WithoutDatabase(t *testing.T) {
	e := newEnv(t, nil)

	resp, body := e.get("/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","database":"n/a"}`, body)
}
