package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	app "github.com/clubhouse-sports/clubhouse/internal/app"
	"github.com/clubhouse-sports/clubhouse/internal/app/blob"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/user"
	"github.com/clubhouse-sports/clubhouse/internal/app/events"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/auth"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage/memory"
	"github.com/clubhouse-sports/clubhouse/internal/middleware"
	"github.com/clubhouse-sports/clubhouse/pkg/logger"
	"github.com/clubhouse-sports/clubhouse/pkg/testutil"
	"github.com/gorilla/websocket"
)

const (
	adminPhone = "5550109999"
	adminMPIN  = "2580"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

type testServer struct {
	app     *app.Application
	handler http.Handler
	inbox   *testutil.Inbox
	audit   *AuditLog
}

func quiet() *logger.Logger { return logger.New(logger.LoggingConfig{Output: "discard"}) }

func newTestServer(t *testing.T, mutate func(*app.Options, *Config)) *testServer {
	t.Helper()
	blobs, err := blob.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	inbox := testutil.NewInbox()
	store := memory.New()
	opts := app.Options{
		Auth:     auth.Config{Secret: []byte("handler-test-secret"), BcryptCost: 4},
		Notifier: inbox,
		Blobs:    blobs,
	}
	cfg := Config{
		Log:     quiet(),
		Limiter: middleware.NewRateLimiter(1000, 1000, quiet()),
		Audit:   NewAuditLog(100, nil, quiet()),
	}
	if mutate != nil {
		mutate(&opts, &cfg)
	}

	application, err := app.New(app.Stores{
		Users: store, Sessions: store, Applications: store, Trials: store,
		Coaches: store, Teams: store, Documents: store,
	}, opts, quiet())
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("start application: %v", err)
	}
	t.Cleanup(func() { _ = application.Stop(context.Background()) })

	hash, err := application.Auth.HashMPIN(adminMPIN)
	if err != nil {
		t.Fatalf("hash mpin: %v", err)
	}
	if _, err := store.CreateUser(context.Background(), user.User{
		Phone: adminPhone, FullName: "Club Admin", Role: user.RoleAdmin, Status: user.StatusActive, MPINHash: hash,
	}); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	return &testServer{app: application, handler: NewHandler(application, cfg), inbox: inbox, audit: cfg.Audit}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(marshal(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	return resp
}

func (s *testServer) expect(t *testing.T, status int, method, path, token string, body any) map[string]any {
	t.Helper()
	resp := s.do(t, method, path, token, body)
	if resp.Code != status {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, status, resp.Code, resp.Body.String())
	}
	out := map[string]any{}
	if resp.Body.Len() > 0 {
		if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: unmarshal: %v", method, path, err)
		}
	}
	return out
}

func (s *testServer) login(t *testing.T, phone, mpin string) string {
	t.Helper()
	out := s.expect(t, http.StatusOK, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"phone": phone, "mpin": mpin})
	return out["token"].(string)
}

// activate verifies an invited phone and sets its MPIN, returning an access token.
func (s *testServer) activate(t *testing.T, phone, mpin string) string {
	t.Helper()
	setup := s.expect(t, http.StatusOK, http.MethodPost, "/api/v1/auth/verify", "", map[string]any{
		"phone": phone, "code": s.inbox.CodeFor(t, phone),
	})
	out := s.expect(t, http.StatusOK, http.MethodPost, "/api/v1/auth/mpin/setup", "", map[string]any{
		"setup_token": setup["setup_token"], "mpin": mpin,
	})
	return out["token"].(string)
}

func marshal(v any) []byte {
	buf, _ := json.Marshal(v)
	return buf
}

func TestHealthReadyMetrics(t *testing.T) {
	srv := newTestServer(t, func(_ *app.Options, cfg *Config) {
		cfg.Ready = func(context.Context) error { return errors.New("db down") }
	})

	srv.expect(t, http.StatusOK, http.MethodGet, "/healthz", "", nil)
	srv.expect(t, http.StatusServiceUnavailable, http.MethodGet, "/readyz", "", nil)

	resp := srv.do(t, http.MethodGet, "/metrics", "", nil)
	if resp.Code != http.StatusOK || resp.Body.Len() == 0 {
		t.Fatalf("expected metrics output, got %d", resp.Code)
	}

	out := srv.expect(t, http.StatusNotFound, http.MethodGet, "/api/v1/nothing-here", "", nil)
	if out["error"] == nil {
		t.Fatalf("expected error envelope, got %v", out)
	}
}

func TestHandlerAuthRequired(t *testing.T) {
	srv := newTestServer(t, nil)

	srv.expect(t, http.StatusUnauthorized, http.MethodGet, "/api/v1/auth/me", "", nil)
	srv.expect(t, http.StatusUnauthorized, http.MethodGet, "/api/v1/applications", "not-a-token", nil)

	srv.expect(t, http.StatusCreated, http.MethodPost, "/api/v1/auth/signup", "", map[string]any{
		"phone": "5550100001", "full_name": "Sam Player",
	})
	player := srv.activate(t, "5550100001", "1357")

	srv.expect(t, http.StatusForbidden, http.MethodGet, "/api/v1/admin/stats", player, nil)
	srv.expect(t, http.StatusForbidden, http.MethodGet, "/api/v1/events", player, nil)

	srv.expect(t, http.StatusNoContent, http.MethodPost, "/api/v1/auth/logout", player, nil)
	srv.expect(t, http.StatusUnauthorized, http.MethodGet, "/api/v1/auth/me", player, nil)
}

func TestSignupFlow(t *testing.T) {
	srv := newTestServer(t, nil)

	created := srv.expect(t, http.StatusCreated, http.MethodPost, "/api/v1/auth/signup", "", map[string]any{
		"phone": "555-010-0002", "full_name": "Jo Keeper",
	})
	if created["status"] != string(user.StatusInvited) {
		t.Fatalf("expected INVITED, got %v", created["status"])
	}
	srv.expect(t, http.StatusOK, http.MethodPost, "/api/v1/auth/signup", "", map[string]any{
		"phone": "5550100002", "full_name": "Jo Keeper",
	})
	srv.expect(t, http.StatusAccepted, http.MethodPost, "/api/v1/auth/resend", "", map[string]any{"phone": "5550109876"})
	srv.expect(t, http.StatusBadRequest, http.MethodPost, "/api/v1/auth/signup", "", map[string]any{"phone": "12", "full_name": "x"})

	token := srv.activate(t, "5550100002", "4826")
	me := srv.expect(t, http.StatusOK, http.MethodGet, "/api/v1/auth/me", token, nil)
	if me["status"] != string(user.StatusActive) || me["role"] != string(user.RolePlayer) {
		t.Fatalf("unexpected account: %v", me)
	}

	srv.expect(t, http.StatusNoContent, http.MethodPost, "/api/v1/auth/mpin/change", token, map[string]any{
		"current_mpin": "4826", "new_mpin": "7391",
	})
	srv.login(t, "5550100002", "7391")

	srv.expect(t, http.StatusAccepted, http.MethodPost, "/api/v1/auth/mpin/forgot", "", map[string]any{"phone": "5550100002"})
	srv.expect(t, http.StatusNoContent, http.MethodPost, "/api/v1/auth/mpin/reset", "", map[string]any{
		"phone": "5550100002", "code": srv.inbox.CodeFor(t, "5550100002"), "new_mpin": "6150",
	})
	srv.expect(t, http.StatusUnauthorized, http.MethodGet, "/api/v1/auth/me", token, nil)
	srv.login(t, "5550100002", "6150")
}

func TestLoginLockout(t *testing.T) {
	srv := newTestServer(t, nil)
	for i := 0; i < 4; i++ {
		srv.expect(t, http.StatusUnauthorized, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"phone": adminPhone, "mpin": "9999"})
	}
	out := srv.expect(t, http.StatusLocked, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"phone": adminPhone, "mpin": "9999"})
	if out["error"].(map[string]any)["code"] != "ACCOUNT_LOCKED" {
		t.Fatalf("expected ACCOUNT_LOCKED, got %v", out)
	}
	srv.expect(t, http.StatusLocked, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"phone": adminPhone, "mpin": adminMPIN})
}

func TestLoginRateLimited(t *testing.T) {
	srv := newTestServer(t, func(_ *app.Options, cfg *Config) {
		cfg.Limiter = middleware.NewRateLimiter(1, 2, quiet())
	})
	body := map[string]any{"phone": "5550100404", "mpin": "1234"}
	srv.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
	srv.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
	resp := srv.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if resp.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestApplicationTrialRosterJourney(t *testing.T) {
	srv := newTestServer(t, nil)
	admin := srv.login(t, adminPhone, adminMPIN)

	srv.expect(t, http.StatusCreated, http.MethodPost, "/api/v1/auth/signup", "", map[string]any{
		"phone": "5550100010", "full_name": "Alex Morgan",
	})
	player := srv.activate(t, "5550100010", "3691")

	app := srv.expect(t, http.StatusCreated, http.MethodPost, "/api/v1/applications", player, map[string]any{
		"first_name": "Alex", "last_name": "Morgan", "date_of_birth": "2001-03-14", "position": "Forward",
	})
	appID := app["id"].(string)
	if app["status"] != "DRAFT" {
		t.Fatalf("expected DRAFT, got %v", app["status"])
	}
	srv.expect(t, http.StatusConflict, http.MethodPost, "/api/v1/applications", player, map[string]any{"first_name": "Again"})
	srv.expect(t, http.StatusOK, http.MethodPatch, "/api/v1/applications/"+appID, player, map[string]any{"dominant_foot": "LEFT"})
	srv.expect(t, http.StatusOK, http.MethodPost, "/api/v1/applications/"+appID+"/submit", player, nil)
	srv.expect(t, http.StatusConflict, http.MethodPatch, "/api/v1/applications/"+appID, player, map[string]any{"notes": "late"})
	srv.expect(t, http.StatusForbidden, http.MethodPost, "/api/v1/applications/"+appID+"/review", player, nil)

	coach := srv.expect(t, http.StatusCreated, http.MethodPost, "/api/v1/admin/coaches", admin, map[string]any{
		"full_name": "Pat Coach", "phone": "5550100020", "specialty": "Forwards",
	})
	coachID := coach["id"].(string)
	coachToken := srv.activate(t, "5550100020", "8024")

	scheduled := srv.expect(t, http.StatusCreated, http.MethodPost, "/api/v1/trials", admin, map[string]any{
		"application_id": appID,
		"coach_id":       coachID,
		"scheduled_at":   time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
		"location":       "Pitch 1",
	})
	trialID := scheduled["id"].(string)

	reviewing := srv.expect(t, http.StatusOK, http.MethodGet, "/api/v1/applications/"+appID, coachToken, nil)
	if reviewing["status"] != "UNDER_REVIEW" {
		t.Fatalf("expected UNDER_REVIEW, got %v", reviewing["status"])
	}
	mine := srv.expect(t, http.StatusOK, http.MethodGet, "/api/v1/trials", coachToken, nil)
	if mine["total"].(float64) != 1 {
		t.Fatalf("expected coach to see 1 trial, got %v", mine["total"])
	}

	srv.expect(t, http.StatusForbidden, http.MethodPost, "/api/v1/trials/"+trialID+"/complete", player, map[string]any{"outcome": "RECOMMENDED"})
	srv.expect(t, http.StatusOK, http.MethodPost, "/api/v1/trials/"+trialID+"/complete", coachToken, map[string]any{
		"outcome": "RECOMMENDED", "scores": map[string]int{"finishing": 8, "pace": 7}, "notes": "sharp",
	})
	approved := srv.expect(t, http.StatusOK, http.MethodGet, "/api/v1/applications/"+appID, player, nil)
	if approved["status"] != "APPROVED" {
		t.Fatalf("expected APPROVED, got %v", approved["status"])
	}

	history := srv.expect(t, http.StatusOK, http.MethodGet, "/api/v1/applications/"+appID+"/history", admin, nil)
	if n := len(history["items"].([]any)); n != 4 {
		t.Fatalf("expected 4 history events, got %d", n)
	}

	team := srv.expect(t, http.StatusCreated, http.MethodPost, "/api/v1/admin/teams", admin, map[string]any{
		"name": "U23 Falcons", "age_group": "U23", "head_coach_id": coachID,
	})
	teamID := team["id"].(string)
	srv.expect(t, http.StatusCreated, http.MethodPost, "/api/v1/admin/teams/"+teamID+"/roster", admin, map[string]any{
		"application_id": appID, "jersey_number": 9,
	})
	roster := srv.expect(t, http.StatusOK, http.MethodGet, "/api/v1/teams/"+teamID+"/roster", player, nil)
	if n := len(roster["items"].([]any)); n != 1 {
		t.Fatalf("expected 1 roster entry, got %d", n)
	}
	srv.expect(t, http.StatusConflict, http.MethodDelete, "/api/v1/admin/teams/"+teamID, admin, nil)
	srv.expect(t, http.StatusConflict, http.MethodPost, "/api/v1/admin/coaches/"+coachID+"/deactivate", admin, nil)
	srv.expect(t, http.StatusNoContent, http.MethodDelete, "/api/v1/admin/teams/"+teamID+"/roster/"+appID, admin, nil)

	stats := srv.expect(t, http.StatusOK, http.MethodGet, "/api/v1/admin/stats", admin, nil)
	byStatus := stats["applications_by_status"].(map[string]any)
	if byStatus["APPROVED"].(float64) != 1 {
		t.Fatalf("expected 1 approved application, got %v", byStatus)
	}

	audit := srv.expect(t, http.StatusOK, http.MethodGet, "/api/v1/admin/audit?limit=3", admin, nil)
	entries := audit["items"].([]any)
	if len(entries) != 3 {
		t.Fatalf("expected 3 audit entries, got %d", len(entries))
	}
	latest := entries[0].(map[string]any)
	if latest["route"] != "/api/v1/admin/teams/{id}/roster/{application_id}" || latest["method"] != http.MethodDelete {
		t.Fatalf("unexpected latest audit entry: %v", latest)
	}
}

func TestApplicationListPagination(t *testing.T) {
	srv := newTestServer(t, nil)
	admin := srv.login(t, adminPhone, adminMPIN)

	var ids []string
	for i := 0; i < 3; i++ {
		player := srv.expect(t, http.StatusCreated, http.MethodPost, "/api/v1/admin/users", admin, map[string]any{
			"phone": fmt.Sprintf("555020000%d", i), "full_name": fmt.Sprintf("Player %d", i), "role": "PLAYER",
		})
		created := srv.expect(t, http.StatusCreated, http.MethodPost, "/api/v1/applications", admin, map[string]any{
			"applicant_id": player["id"], "first_name": fmt.Sprintf("Player%d", i), "last_name": "Lee",
		})
		ids = append(ids, created["id"].(string))
	}

	itemIDs := func(page map[string]any) []string {
		var out []string
		for _, item := range page["items"].([]any) {
			out = append(out, item.(map[string]any)["id"].(string))
		}
		return out
	}

	cases := []struct {
		query         string
		limit, offset float64
		want          []string
	}{
		{"limit=2", 2, 0, []string{ids[2], ids[1]}},
		{"limit=2&offset=2", 2, 2, []string{ids[0]}},
		{"limit=500&offset=-5", 100, 0, []string{ids[2], ids[1], ids[0]}},
		{"offset=10", 20, 10, nil},
	}
	for _, tc := range cases {
		page := srv.expect(t, http.StatusOK, http.MethodGet, "/api/v1/applications?"+tc.query, admin, nil)
		if page["total"].(float64) != 3 || page["limit"].(float64) != tc.limit || page["offset"].(float64) != tc.offset {
			t.Fatalf("%s: unexpected window %v", tc.query, page)
		}
		if page["items"] == nil {
			t.Fatalf("%s: items must be an empty list, not null", tc.query)
		}
		if got := itemIDs(page); fmt.Sprint(got) != fmt.Sprint(tc.want) {
			t.Fatalf("%s: expected newest first %v, got %v", tc.query, tc.want, got)
		}
	}
}

func TestAdminUserManagement(t *testing.T) {
	srv := newTestServer(t, nil)
	admin := srv.login(t, adminPhone, adminMPIN)

	invited := srv.expect(t, http.StatusCreated, http.MethodPost, "/api/v1/admin/users", admin, map[string]any{
		"phone": "5550100030", "full_name": "New Admin", "role": "ADMIN",
	})
	id := invited["id"].(string)

	page := srv.expect(t, http.StatusOK, http.MethodGet, "/api/v1/admin/users?role=ADMIN&limit=1", admin, nil)
	if page["total"].(float64) != 2 || page["limit"].(float64) != 1 || len(page["items"].([]any)) != 1 {
		t.Fatalf("unexpected page: %v", page)
	}
	srv.expect(t, http.StatusBadRequest, http.MethodGet, "/api/v1/admin/users?limit=abc", admin, nil)

	srv.expect(t, http.StatusOK, http.MethodPatch, "/api/v1/admin/users/"+id, admin, map[string]any{"full_name": "Renamed"})
	suspended := srv.expect(t, http.StatusOK, http.MethodPost, "/api/v1/admin/users/"+id+"/suspend", admin, nil)
	if suspended["status"] != "SUSPENDED" {
		t.Fatalf("expected SUSPENDED, got %v", suspended["status"])
	}
	srv.expect(t, http.StatusConflict, http.MethodPost, "/api/v1/admin/users/"+id+"/activate", admin, nil)

	system := srv.expect(t, http.StatusOK, http.MethodGet, "/api/v1/admin/system", admin, nil)
	if system["go_version"] == "" || system["services"] == nil {
		t.Fatalf("unexpected system info: %v", system)
	}
}

func TestDocumentUploadAndDownload(t *testing.T) {
	srv := newTestServer(t, func(opts *app.Options, _ *Config) { opts.MaxUploadBytes = 1024 })

	srv.expect(t, http.StatusCreated, http.MethodPost, "/api/v1/auth/signup", "", map[string]any{
		"phone": "5550100040", "full_name": "Dana Player",
	})
	player := srv.activate(t, "5550100040", "5173")
	app := srv.expect(t, http.StatusCreated, http.MethodPost, "/api/v1/applications", player, map[string]any{"first_name": "Dana"})
	appID := app["id"].(string)

	resp := srv.upload(t, player, appID, "PHOTO", "face.png", pngBytes)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 upload, got %d: %s", resp.Code, resp.Body.String())
	}
	var doc map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal document: %v", err)
	}
	if doc["content_type"] != "image/png" {
		t.Fatalf("expected image/png, got %v", doc["content_type"])
	}

	content := srv.do(t, http.MethodGet, "/api/v1/documents/"+doc["id"].(string)+"/content", player, nil)
	if content.Code != http.StatusOK || !bytes.Equal(content.Body.Bytes(), pngBytes) {
		t.Fatalf("unexpected content response %d", content.Code)
	}
	if !strings.Contains(content.Header().Get("Content-Disposition"), "face.png") {
		t.Fatalf("expected filename in disposition, got %q", content.Header().Get("Content-Disposition"))
	}

	if resp := srv.upload(t, player, appID, "PHOTO", "notes.txt", []byte("plain text here")); resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", resp.Code)
	}
	big := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{1}, 2048)...)
	if resp := srv.upload(t, player, appID, "PHOTO", "big.png", big); resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.Code)
	}

	list := srv.expect(t, http.StatusOK, http.MethodGet, "/api/v1/applications/"+appID+"/documents", player, nil)
	if n := len(list["items"].([]any)); n != 1 {
		t.Fatalf("expected 1 document, got %d", n)
	}
	srv.expect(t, http.StatusNoContent, http.MethodDelete, "/api/v1/documents/"+doc["id"].(string), player, nil)
}

func (s *testServer) upload(t *testing.T, token, appID, kind, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("kind", kind); err != nil {
		t.Fatalf("write kind: %v", err)
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/applications/"+appID+"/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	return resp
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, func(_ *app.Options, cfg *Config) { cfg.CORSOrigins = []string{"https://club.example"} })

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "https://club.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	srv.handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", resp.Code)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "https://club.example" {
		t.Fatalf("expected allowed origin header")
	}
}

func TestEventStream(t *testing.T) {
	srv := newTestServer(t, nil)
	admin := srv.login(t, adminPhone, adminMPIN)

	server := httptest.NewServer(srv.handler)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/events?access_token=" + admin
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial events: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.app.Events.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("stream never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	srv.expect(t, http.StatusCreated, http.MethodPost, "/api/v1/admin/users", admin, map[string]any{
		"phone": "5550100050", "full_name": "Someone", "role": "PLAYER",
	})
	srv.expect(t, http.StatusCreated, http.MethodPost, "/api/v1/auth/signup", "", map[string]any{
		"phone": "5550100051", "full_name": "Other",
	})
	srv.activate(t, "5550100051", "2468")

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt events.Event
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if evt.Type != events.TypeUserTransition {
		t.Fatalf("expected %s, got %s", events.TypeUserTransition, evt.Type)
	}
	if fmt.Sprint(evt.Data["to"]) != string(user.StatusVerified) {
		t.Fatalf("expected transition to VERIFIED, got %v", evt.Data)
	}
}
