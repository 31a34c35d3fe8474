package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inkwell-hq/inkwell/internal/app"
	"github.com/inkwell-hq/inkwell/internal/audit"
	"github.com/inkwell-hq/inkwell/internal/bans"
	"github.com/inkwell-hq/inkwell/internal/config"
	"github.com/inkwell-hq/inkwell/internal/db"
	"github.com/inkwell-hq/inkwell/internal/models"
)

func newTestApp(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if errOpen != nil {
		t.Fatalf("open test db: %v", errOpen)
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("unwrap test db: %v", errDB)
	}
	sqlDB.SetMaxOpenConns(1)
	if _, errPragma := sqlDB.Exec("PRAGMA foreign_keys=ON"); errPragma != nil {
		t.Fatalf("enable foreign keys: %v", errPragma)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate test db: %v", errMigrate)
	}

	cfg := config.Config{
		Session: config.SessionConfig{
			Secret:      "test-secret",
			CookieName:  "inkwell_session",
			ExpiryHours: 1,
		},
	}
	store := bans.NewStore(conn, nil)
	recorder := audit.NewRecorder(conn)
	return app.NewEngine(conn, cfg, store, recorder), conn
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal request body: %v", errMarshal)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "127.0.0.1:1234"
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode response body %q: %v", rec.Body.String(), errDecode)
	}
	return out
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var out []map[string]any
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode response list %q: %v", rec.Body.String(), errDecode)
	}
	return out
}

// bootstrapAdmin runs the one-time setup and returns the admin session.
func bootstrapAdmin(t *testing.T, engine *gin.Engine) []*http.Cookie {
	t.Helper()
	rec := doJSON(t, engine, http.MethodPost, "/api/admin/setup/", gin.H{
		"username": "root",
		"password": "rootpw123456",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("setup: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected session cookie on setup response")
	}
	return cookies
}

func TestStatusReportsUnconfiguredInitially(t *testing.T) {
	engine, _ := newTestApp(t)

	rec := doJSON(t, engine, http.MethodGet, "/api/admin/status/", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if configured := decodeBody(t, rec)["configured"]; configured != false {
		t.Fatalf("expected configured=false, got %v", configured)
	}
}

func TestSetupConfiguresExactlyOnce(t *testing.T) {
	engine, conn := newTestApp(t)

	bootstrapAdmin(t, engine)

	rec := doJSON(t, engine, http.MethodGet, "/api/admin/status/", nil, nil)
	if configured := decodeBody(t, rec)["configured"]; configured != true {
		t.Fatalf("expected configured=true after setup, got %v", configured)
	}

	second := doJSON(t, engine, http.MethodPost, "/api/admin/setup/", gin.H{
		"username": "root2",
		"password": "rootpw123456",
	}, nil)
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409 on repeated setup, got %d: %s", second.Code, second.Body.String())
	}

	var admins int64
	if err := conn.Model(&models.User{}).
		Where("is_staff = ? AND is_superuser = ?", true, true).
		Count(&admins).Error; err != nil {
		t.Fatalf("count admins: %v", err)
	}
	if admins != 1 {
		t.Fatalf("expected exactly one staff superuser, got %d", admins)
	}
}

func TestSetupConcurrentCallsOnlyOneSucceeds(t *testing.T) {
	engine, conn := newTestApp(t)

	// Both bodies are pre-marshaled so the goroutines touch no test helpers.
	bodies := make([][]byte, 0, 2)
	for _, username := range []string{"root", "root2"} {
		data, errMarshal := json.Marshal(gin.H{
			"username": username,
			"password": "rootpw123456",
		})
		if errMarshal != nil {
			t.Fatalf("marshal setup body: %v", errMarshal)
		}
		bodies = append(bodies, data)
	}

	start := make(chan struct{})
	codes := make(chan int, len(bodies))
	var wg sync.WaitGroup
	for _, body := range bodies {
		wg.Add(1)
		go func(body []byte) {
			defer wg.Done()
			<-start
			req := httptest.NewRequest(http.MethodPost, "/api/admin/setup/", bytes.NewReader(body))
			req.RemoteAddr = "127.0.0.1:1234"
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)
			codes <- rec.Code
		}(body)
	}
	close(start)
	wg.Wait()
	close(codes)

	counts := map[int]int{}
	for code := range codes {
		counts[code]++
	}
	if counts[http.StatusCreated] != 1 || counts[http.StatusConflict] != 1 {
		t.Fatalf("expected one 201 and one 409, got %v", counts)
	}

	var admins int64
	if err := conn.Model(&models.User{}).
		Where("is_staff = ? AND is_superuser = ?", true, true).
		Count(&admins).Error; err != nil {
		t.Fatalf("count admins: %v", err)
	}
	if admins != 1 {
		t.Fatalf("expected exactly one staff superuser, got %d", admins)
	}

	var setup models.AdminSetup
	if err := conn.First(&setup, models.AdminSetupID).Error; err != nil {
		t.Fatalf("load setup row: %v", err)
	}
	if !setup.Configured {
		t.Fatal("expected setup row configured after the race")
	}
}

func TestSetupRejectsShortPassword(t *testing.T) {
	engine, _ := newTestApp(t)

	rec := doJSON(t, engine, http.MethodPost, "/api/admin/setup/", gin.H{
		"username": "root",
		"password": "short",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSetupRejectsTakenUsername(t *testing.T) {
	engine, _ := newTestApp(t)

	reg := doJSON(t, engine, http.MethodPost, "/api/auth/register/", gin.H{
		"username": "root",
		"password": "pw12345678",
	}, nil)
	if reg.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", reg.Code)
	}

	rec := doJSON(t, engine, http.MethodPost, "/api/admin/setup/", gin.H{
		"username": "root",
		"password": "rootpw123456",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for taken username, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminLoginRejectsNonStaffUser(t *testing.T) {
	engine, _ := newTestApp(t)

	reg := doJSON(t, engine, http.MethodPost, "/api/auth/register/", gin.H{
		"username": "alice",
		"password": "pw12345678",
	}, nil)
	if reg.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", reg.Code)
	}

	blogLogin := doJSON(t, engine, http.MethodPost, "/api/auth/login/", gin.H{
		"username": "alice",
		"password": "pw12345678",
	}, nil)
	if blogLogin.Code != http.StatusOK {
		t.Fatalf("blog login: expected 200, got %d", blogLogin.Code)
	}

	adminLogin := doJSON(t, engine, http.MethodPost, "/api/admin/login/", gin.H{
		"username": "alice",
		"password": "pw12345678",
	}, nil)
	if adminLogin.Code != http.StatusUnauthorized {
		t.Fatalf("admin login: expected 401 for non-staff, got %d: %s", adminLogin.Code, adminLogin.Body.String())
	}
}

func TestAdminLoginAcceptsStaffUser(t *testing.T) {
	engine, _ := newTestApp(t)

	bootstrapAdmin(t, engine)

	rec := doJSON(t, engine, http.MethodPost, "/api/admin/login/", gin.H{
		"username": "root",
		"password": "rootpw123456",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["username"]; got != "root" {
		t.Fatalf("expected username root, got %v", got)
	}
}

func TestStaffRoutesRejectAnonymousAndNonStaff(t *testing.T) {
	engine, _ := newTestApp(t)

	anonymous := doJSON(t, engine, http.MethodGet, "/api/admin/users/", nil, nil)
	if anonymous.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", anonymous.Code)
	}

	reg := doJSON(t, engine, http.MethodPost, "/api/auth/register/", gin.H{
		"username": "alice",
		"password": "pw12345678",
	}, nil)
	if reg.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", reg.Code)
	}
	login := doJSON(t, engine, http.MethodPost, "/api/auth/login/", gin.H{
		"username": "alice",
		"password": "pw12345678",
	}, nil)
	if login.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", login.Code)
	}

	nonStaff := doJSON(t, engine, http.MethodGet, "/api/admin/users/", nil, login.Result().Cookies())
	if nonStaff.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-staff session, got %d: %s", nonStaff.Code, nonStaff.Body.String())
	}
}

func TestUserManagementLifecycle(t *testing.T) {
	engine, conn := newTestApp(t)
	session := bootstrapAdmin(t, engine)

	created := doJSON(t, engine, http.MethodPost, "/api/admin/users/", gin.H{
		"username": "carol",
		"password": "pw12345678",
		"email":    "carol@example.com",
	}, session)
	if created.Code != http.StatusCreated {
		t.Fatalf("create user: expected 201, got %d: %s", created.Code, created.Body.String())
	}
	userID := strconv.FormatUint(uint64(decodeBody(t, created)["id"].(float64)), 10)

	duplicate := doJSON(t, engine, http.MethodPost, "/api/admin/users/", gin.H{
		"username": "carol",
		"password": "pw12345678",
	}, session)
	if duplicate.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate user, got %d", duplicate.Code)
	}

	list := doJSON(t, engine, http.MethodGet, "/api/admin/users/", nil, session)
	if users := decodeList(t, list); len(users) != 1 || users[0]["username"] != "carol" {
		t.Fatalf("expected carol in user list without the superuser, got %v", users)
	}

	ban := doJSON(t, engine, http.MethodPost, "/api/admin/users/"+userID+"/ban/", nil, session)
	if ban.Code != http.StatusOK || decodeBody(t, ban)["is_active"] != false {
		t.Fatalf("expected ban to deactivate, got %d: %s", ban.Code, ban.Body.String())
	}
	var user models.User
	if err := conn.Where("username = ?", "carol").First(&user).Error; err != nil {
		t.Fatalf("load carol: %v", err)
	}
	if user.IsActive {
		t.Fatal("expected carol deactivated after ban")
	}

	unban := doJSON(t, engine, http.MethodPost, "/api/admin/users/"+userID+"/unban/", nil, session)
	if unban.Code != http.StatusOK || decodeBody(t, unban)["is_active"] != true {
		t.Fatalf("expected unban to reactivate, got %d: %s", unban.Code, unban.Body.String())
	}

	update := doJSON(t, engine, http.MethodPut, "/api/admin/users/"+userID+"/", gin.H{
		"email": "new@example.com",
	}, session)
	if update.Code != http.StatusOK || decodeBody(t, update)["email"] != "new@example.com" {
		t.Fatalf("expected email update, got %d: %s", update.Code, update.Body.String())
	}

	deleted := doJSON(t, engine, http.MethodDelete, "/api/admin/users/"+userID+"/", nil, session)
	if deleted.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on delete, got %d", deleted.Code)
	}
	var count int64
	if err := conn.Model(&models.User{}).Where("username = ?", "carol").Count(&count).Error; err != nil {
		t.Fatalf("count carol: %v", err)
	}
	if count != 0 {
		t.Fatal("expected carol removed")
	}
}

func TestSuperuserCannotBeModified(t *testing.T) {
	engine, conn := newTestApp(t)
	session := bootstrapAdmin(t, engine)

	var admin models.User
	if err := conn.Where("username = ?", "root").First(&admin).Error; err != nil {
		t.Fatalf("load admin: %v", err)
	}
	adminID := strconv.FormatUint(admin.ID, 10)

	for _, attempt := range []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPut, "/api/admin/users/" + adminID + "/", gin.H{"is_active": false}},
		{http.MethodDelete, "/api/admin/users/" + adminID + "/", nil},
		{http.MethodPost, "/api/admin/users/" + adminID + "/ban/", nil},
	} {
		rec := doJSON(t, engine, attempt.method, attempt.path, attempt.body, session)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s %s: expected 400 for superuser, got %d: %s", attempt.method, attempt.path, rec.Code, rec.Body.String())
		}
	}

	if err := conn.Where("username = ?", "root").First(&admin).Error; err != nil {
		t.Fatalf("reload admin: %v", err)
	}
	if !admin.IsActive || !admin.IsStaff || !admin.IsSuperuser {
		t.Fatalf("expected superuser untouched, got %+v", admin)
	}
}

func TestUserDeletionKeepsAuditRows(t *testing.T) {
	engine, conn := newTestApp(t)
	session := bootstrapAdmin(t, engine)

	created := doJSON(t, engine, http.MethodPost, "/api/admin/users/", gin.H{
		"username": "carol",
		"password": "pw12345678",
	}, session)
	if created.Code != http.StatusCreated {
		t.Fatalf("create user: expected 201, got %d", created.Code)
	}
	carolID := uint64(decodeBody(t, created)["id"].(float64))

	row := models.AuditLog{UserID: &carolID, IPAddress: "127.0.0.1", Path: "/api/auth/login/", Method: "POST", Action: audit.ActionLogin}
	if err := conn.Create(&row).Error; err != nil {
		t.Fatalf("seed audit row: %v", err)
	}

	userPath := "/api/admin/users/" + strconv.FormatUint(carolID, 10) + "/"
	if rec := doJSON(t, engine, http.MethodDelete, userPath, nil, session); rec.Code != http.StatusNoContent {
		t.Fatalf("delete user: expected 204, got %d", rec.Code)
	}

	var kept models.AuditLog
	if err := conn.First(&kept, row.ID).Error; err != nil {
		t.Fatalf("expected audit row to survive user deletion: %v", err)
	}
	if kept.UserID != nil {
		t.Fatalf("expected user reference nulled out, got %v", *kept.UserID)
	}
}

func seedAuditRows(t *testing.T, conn *gorm.DB, n int) {
	t.Helper()
	rows := make([]models.AuditLog, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, models.AuditLog{
			IPAddress: "203.0.113.1",
			Path:      "/api/auth/login/",
			Method:    "POST",
			Action:    audit.ActionLogin,
		})
	}
	if err := conn.CreateInBatches(rows, 100).Error; err != nil {
		t.Fatalf("seed audit rows: %v", err)
	}
}

func TestAuditLogLimitClamped(t *testing.T) {
	engine, conn := newTestApp(t)
	session := bootstrapAdmin(t, engine)

	seedAuditRows(t, conn, 600)

	rec := doJSON(t, engine, http.MethodGet, "/api/admin/audit/?limit=10000", nil, session)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rows := decodeList(t, rec); len(rows) != 500 {
		t.Fatalf("expected limit clamped to 500 rows, got %d", len(rows))
	}
}

func TestAuditLogLimitDefaultsOnBadInput(t *testing.T) {
	engine, conn := newTestApp(t)
	session := bootstrapAdmin(t, engine)

	seedAuditRows(t, conn, 150)

	for _, query := range []string{"?limit=abc", "?limit=-5", ""} {
		rec := doJSON(t, engine, http.MethodGet, "/api/admin/audit/"+query, nil, session)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if rows := decodeList(t, rec); len(rows) != 100 {
			t.Fatalf("query %q: expected default 100 rows, got %d", query, len(rows))
		}
	}
}

func TestTrafficLogTruncatesUserAgentForDisplay(t *testing.T) {
	engine, conn := newTestApp(t)
	session := bootstrapAdmin(t, engine)

	row := models.TrafficLog{
		IPAddress:  "203.0.113.1",
		Path:       "/api/posts/",
		Method:     "GET",
		StatusCode: 200,
		UserAgent:  strings.Repeat("x", 500),
	}
	if err := conn.Create(&row).Error; err != nil {
		t.Fatalf("seed traffic row: %v", err)
	}

	rec := doJSON(t, engine, http.MethodGet, "/api/admin/traffic/", nil, session)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rows := decodeList(t, rec)
	found := false
	for _, item := range rows {
		if item["path"] == "/api/posts/" {
			found = true
			agent, _ := item["user_agent"].(string)
			if len(agent) != 83 || !strings.HasSuffix(agent, "...") {
				t.Fatalf("expected display-truncated user agent, got %q", agent)
			}
		}
	}
	if !found {
		t.Fatalf("expected seeded traffic row in response, got %v", rows)
	}
}

func TestAttacksListsUnauthorizedAttempts(t *testing.T) {
	engine, _ := newTestApp(t)
	session := bootstrapAdmin(t, engine)

	if rec := doJSON(t, engine, http.MethodGet, "/api/my-posts/", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 probe, got %d", rec.Code)
	}

	rec := doJSON(t, engine, http.MethodGet, "/api/admin/attacks/", nil, session)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rows := decodeList(t, rec)
	if len(rows) != 1 || rows[0]["path"] != "/api/my-posts/" {
		t.Fatalf("expected one attack row for the probe, got %v", rows)
	}
}

func TestBannedIPLifecycle(t *testing.T) {
	engine, _ := newTestApp(t)
	session := bootstrapAdmin(t, engine)

	created := doJSON(t, engine, http.MethodPost, "/api/admin/banned-ips/", gin.H{
		"ip_address": "203.0.113.9",
		"reason":     "abuse",
	}, session)
	if created.Code != http.StatusCreated {
		t.Fatalf("ban: expected 201, got %d: %s", created.Code, created.Body.String())
	}
	banID := strconv.FormatUint(uint64(decodeBody(t, created)["id"].(float64)), 10)

	duplicate := doJSON(t, engine, http.MethodPost, "/api/admin/banned-ips/", gin.H{
		"ip_address": "203.0.113.9",
	}, session)
	if duplicate.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate ban, got %d", duplicate.Code)
	}

	missing := doJSON(t, engine, http.MethodPost, "/api/admin/banned-ips/", gin.H{
		"ip_address": "  ",
	}, session)
	if missing.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank address, got %d", missing.Code)
	}

	list := doJSON(t, engine, http.MethodGet, "/api/admin/banned-ips/", nil, session)
	if rows := decodeList(t, list); len(rows) != 1 || rows[0]["ip_address"] != "203.0.113.9" {
		t.Fatalf("expected one ban row, got %v", rows)
	}

	deleted := doJSON(t, engine, http.MethodDelete, "/api/admin/banned-ips/"+banID+"/", nil, session)
	if deleted.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on unban, got %d", deleted.Code)
	}

	again := doJSON(t, engine, http.MethodDelete, "/api/admin/banned-ips/"+banID+"/", nil, session)
	if again.Code != http.StatusNotFound {
		t.Fatalf("expected 404 unbanning twice, got %d", again.Code)
	}
}

func TestBannedIPBlocksSubsequentRequests(t *testing.T) {
	engine, _ := newTestApp(t)
	session := bootstrapAdmin(t, engine)

	created := doJSON(t, engine, http.MethodPost, "/api/admin/banned-ips/", gin.H{
		"ip_address": "203.0.113.9",
	}, session)
	if created.Code != http.StatusCreated {
		t.Fatalf("ban: expected 201, got %d", created.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/posts/", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 from banned address, got %d", rec.Code)
	}
}
