package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/p-n-ai/course-player/internal/course"
	"github.com/p-n-ai/course-player/internal/platform/config"
	"github.com/p-n-ai/course-player/internal/registration"
	"github.com/p-n-ai/course-player/internal/runtime"
	"github.com/p-n-ai/course-player/internal/server"
)

// catalog is a fixed set of courses.
type catalog map[string]*course.Course

func (c catalog) GetCourse(id string) (*course.Course, bool) {
	got, ok := c[id]
	return got, ok
}

func (c catalog) AllCourses() []*course.Course {
	out := make([]*course.Course, 0, len(c))
	for _, v := range c {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// basics: module 0 is a content slide and a quiz (answer 1), module 1 a
// single content slide.
func basics() *course.Course {
	return &course.Course{
		ID:           "basics",
		Title:        "Basics",
		PassingScore: 80,
		Modules: []course.Module{
			{Title: "Intro", Slides: []course.Slide{
				&course.ContentSlide{Body: "hello"},
				&course.QuizSlide{Question: "q", Options: []string{"a", "b"}, CorrectAnswer: 1},
			}},
			{Title: "Wrap up", Slides: []course.Slide{
				&course.ContentSlide{Body: "bye"},
			}},
		},
	}
}

type testServer struct {
	*httptest.Server
	regs     *registration.MemoryStore
	sessions *server.Manager
	tokens   *server.Tokens

	mu    sync.Mutex
	hosts map[string]*runtime.MemoryHost
}

// hosted serves one MemoryHost per registration at /lms/runtime.
func (ts *testServer) hosted(_ context.Context, registrationID string) (runtime.API, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	h, ok := ts.hosts[registrationID]
	if !ok {
		h = runtime.NewMemoryHost(nil)
		ts.hosts[registrationID] = h
	}
	return h, nil
}

func (ts *testServer) host(registrationID string) *runtime.MemoryHost {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.hosts[registrationID]
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	courses := catalog{"basics": basics()}
	regs := registration.NewMemoryStore()
	runtimes, err := server.NewRuntimes(config.RuntimeConfig{Host: config.HostNone, Local: config.LocalMemory}, server.RuntimeDeps{})
	if err != nil {
		t.Fatalf("NewRuntimes() error = %v", err)
	}
	sessions := server.NewManager(server.ManagerConfig{
		Courses:       courses,
		Registrations: regs,
		Runtimes:      runtimes,
	})
	ts := &testServer{
		regs:     regs,
		sessions: sessions,
		tokens:   server.NewTokens("test-secret", time.Hour),
		hosts:    make(map[string]*runtime.MemoryHost),
	}
	srv := server.New(server.Config{
		Sessions:      sessions,
		Courses:       courses,
		Registrations: regs,
		Tokens:        ts.tokens,
		CORSOrigins:   []string{"*"},
		HostedRuntime: ts.hosted,
	})
	ts.Server = httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, rdr)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, out
}

type viewJSON struct {
	Module    int    `json:"module"`
	Slide     int    `json:"slide"`
	Kind      string `json:"kind"`
	NextLabel string `json:"nextLabel"`
	Progress  int    `json:"progress"`
	Completed bool   `json:"completed"`
	Outcome   *struct {
		Score  int  `json:"score"`
		Passed bool `json:"passed"`
	} `json:"outcome"`
}

type launchJSON struct {
	RegistrationID string   `json:"registrationId"`
	Token          string   `json:"token"`
	Created        bool     `json:"created"`
	View           viewJSON `json:"view"`
}

type moveJSON struct {
	View  viewJSON `json:"view"`
	Moved bool     `json:"moved"`
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return v
}

func (ts *testServer) launch(t *testing.T, learner string) launchJSON {
	t.Helper()
	code, body := ts.do(t, http.MethodPost, "/api/launch", "", map[string]string{"learnerId": learner, "courseId": "basics"})
	if code != http.StatusOK {
		t.Fatalf("launch status = %d, body %s", code, body)
	}
	return decode[launchJSON](t, body)
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "healthz returns 200", path: "/healthz", wantStatus: http.StatusOK, wantBody: "{\"status\":\"ok\"}\n"},
		{name: "readyz returns 200", path: "/readyz", wantStatus: http.StatusOK, wantBody: "{\"status\":\"ready\"}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := ts.do(t, http.MethodGet, tt.path, "", nil)
			if code != tt.wantStatus {
				t.Errorf("status = %d, want %d", code, tt.wantStatus)
			}
			if string(body) != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestReadyzReportsFailingDependency(t *testing.T) {
	srv := server.New(server.Config{
		Tokens: server.NewTokens("s", time.Hour),
		ReadyChecks: map[string]func(context.Context) error{
			"database": func(context.Context) error { return context.DeadlineExceeded },
		},
	})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestCourses(t *testing.T) {
	ts := newTestServer(t)

	code, body := ts.do(t, http.MethodGet, "/api/courses", "", nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	list := decode[[]server.CourseSummary](t, body)
	if len(list) != 1 || list[0].ID != "basics" || list[0].SlideCount != 3 || list[0].QuizCount != 1 {
		t.Errorf("courses = %+v", list)
	}

	code, _ = ts.do(t, http.MethodGet, "/api/courses/basics", "", nil)
	if code != http.StatusOK {
		t.Errorf("GET basics status = %d", code)
	}
	code, _ = ts.do(t, http.MethodGet, "/api/courses/missing", "", nil)
	if code != http.StatusNotFound {
		t.Errorf("GET missing status = %d, want 404", code)
	}
}

func TestLaunchValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{name: "not json", body: "nope", want: http.StatusBadRequest},
		{name: "missing learner", body: map[string]string{"courseId": "basics"}, want: http.StatusBadRequest},
		{name: "missing course", body: map[string]string{"learnerId": "a"}, want: http.StatusBadRequest},
		{name: "unknown course", body: map[string]string{"learnerId": "a", "courseId": "nope"}, want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := ts.do(t, http.MethodPost, "/api/launch", "", tt.body)
			if code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", code, tt.want, body)
			}
		})
	}
}

func TestLaunchResumesActiveRegistration(t *testing.T) {
	ts := newTestServer(t)

	first := ts.launch(t, "alice")
	if !first.Created {
		t.Error("first launch Created = false")
	}
	code, _ := ts.do(t, http.MethodPost, "/api/session/advance", first.Token, nil)
	if code != http.StatusOK {
		t.Fatalf("advance status = %d", code)
	}

	second := ts.launch(t, "alice")
	if second.Created || second.RegistrationID != first.RegistrationID {
		t.Errorf("second launch = %+v, want same registration", second)
	}
	if second.View.Slide != 1 {
		t.Errorf("resumed slide = %d, want 1", second.View.Slide)
	}
}

func TestSessionRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	other := server.NewTokens("other-secret", time.Hour)
	forged, err := other.Issue(&registration.Registration{ID: "r", LearnerID: "x"})
	if err != nil {
		t.Fatal(err)
	}

	for _, token := range []string{"", "garbage", forged} {
		code, _ := ts.do(t, http.MethodGet, "/api/session", token, nil)
		if code != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", token, code)
		}
	}
}

func TestSessionUnknownRegistration(t *testing.T) {
	ts := newTestServer(t)
	token, err := ts.tokens.Issue(&registration.Registration{ID: "missing", LearnerID: "x"})
	if err != nil {
		t.Fatal(err)
	}
	code, _ := ts.do(t, http.MethodGet, "/api/session", token, nil)
	if code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
}

func TestSessionPlaythrough(t *testing.T) {
	ts := newTestServer(t)
	l := ts.launch(t, "bob")
	tok := l.Token

	code, body := ts.do(t, http.MethodPost, "/api/session/certificate", tok, nil)
	if code != http.StatusMethodNotAllowed {
		t.Errorf("POST certificate status = %d, want 405 (%s)", code, body)
	}
	code, _ = ts.do(t, http.MethodGet, "/api/session/certificate", tok, nil)
	if code != http.StatusNotFound {
		t.Errorf("certificate before completion status = %d, want 404", code)
	}

	code, body = ts.do(t, http.MethodPost, "/api/session/jump", tok, map[string]int{"module": 1})
	if code != http.StatusOK || decode[moveJSON](t, body).Moved {
		t.Errorf("jump to locked module: status %d body %s", code, body)
	}
	code, _ = ts.do(t, http.MethodPost, "/api/session/jump", tok, map[string]string{})
	if code != http.StatusBadRequest {
		t.Errorf("jump without module status = %d, want 400", code)
	}

	ts.do(t, http.MethodPost, "/api/session/advance", tok, nil)
	code, body = ts.do(t, http.MethodPost, "/api/session/answer", tok, map[string]int{"option": 1})
	if code != http.StatusOK {
		t.Fatalf("answer status = %d", code)
	}
	ans := decode[struct {
		Result struct {
			Accepted bool `json:"accepted"`
			Correct  bool `json:"correct"`
		} `json:"result"`
	}](t, body)
	if !ans.Result.Accepted || !ans.Result.Correct {
		t.Errorf("answer result = %+v", ans.Result)
	}

	code, body = ts.do(t, http.MethodPost, "/api/session/simulation", tok, map[string]int{"choice": 0})
	if code != http.StatusOK {
		t.Errorf("simulation on quiz slide status = %d", code)
	}
	if bytes.Contains(body, []byte(`"accepted":true`)) {
		t.Errorf("simulation choice on a quiz slide accepted: %s", body)
	}

	_, body = ts.do(t, http.MethodPost, "/api/session/advance", tok, nil)
	mv := decode[moveJSON](t, body)
	if mv.View.Module != 1 || mv.View.NextLabel != "complete_course" {
		t.Errorf("after module 0 view = %+v", mv.View)
	}

	_, body = ts.do(t, http.MethodPost, "/api/session/advance", tok, nil)
	mv = decode[moveJSON](t, body)
	if !mv.Moved || !mv.View.Completed || mv.View.Outcome == nil || mv.View.Outcome.Score != 100 || !mv.View.Outcome.Passed {
		t.Errorf("completion view = %+v", mv.View)
	}

	code, body = ts.do(t, http.MethodGet, "/api/session/certificate", tok, nil)
	if code != http.StatusOK {
		t.Fatalf("certificate status = %d", code)
	}
	cert := decode[struct {
		Certificate struct {
			CourseID string `json:"courseId"`
			Score    int    `json:"score"`
		} `json:"certificate"`
		Lines []string `json:"lines"`
	}](t, body)
	if cert.Certificate.CourseID != "basics" || cert.Certificate.Score != 100 || len(cert.Lines) == 0 {
		t.Errorf("certificate = %+v", cert)
	}

	_, body = ts.do(t, http.MethodPost, "/api/session/restart", tok, map[string]bool{"clearCompletedModules": true})
	v := decode[viewJSON](t, body)
	if v.Module != 0 || v.Slide != 0 || v.Completed || v.Progress != 0 {
		t.Errorf("after restart view = %+v", v)
	}
}

func TestSessionClose(t *testing.T) {
	ts := newTestServer(t)
	l := ts.launch(t, "carol")

	code, _ := ts.do(t, http.MethodPost, "/api/session/close", l.Token, nil)
	if code != http.StatusOK {
		t.Fatalf("close status = %d", code)
	}
	if ts.sessions.Len() != 0 {
		t.Errorf("open sessions = %d, want 0", ts.sessions.Len())
	}
	reg, err := ts.regs.Get(l.RegistrationID)
	if err != nil || reg.Active() {
		t.Errorf("registration after close = %+v, %v", reg, err)
	}

	code, _ = ts.do(t, http.MethodGet, "/api/session", l.Token, nil)
	if code != http.StatusGone {
		t.Errorf("session after close status = %d, want 410", code)
	}

	next := ts.launch(t, "carol")
	if !next.Created || next.RegistrationID == l.RegistrationID {
		t.Errorf("relaunch after close = %+v, want a new registration", next)
	}
}

func TestHostedRuntimeRequiresLaunchToken(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	reg, _, err := registration.Launch(ts.regs, "alice", "basics")
	if err != nil {
		t.Fatal(err)
	}
	other, _, err := registration.Launch(ts.regs, "bob", "basics")
	if err != nil {
		t.Fatal(err)
	}
	token, err := ts.tokens.Issue(reg)
	if err != nil {
		t.Fatal(err)
	}
	otherToken, err := ts.tokens.Issue(other)
	if err != nil {
		t.Fatal(err)
	}

	endpoint := "ws" + strings.TrimPrefix(ts.URL, "http") + "/lms/runtime?registration=" + reg.ID
	tests := []struct {
		name   string
		url    string
		status int
	}{
		{"no token", endpoint, http.StatusUnauthorized},
		{"malformed token", endpoint + "&token=not-a-jwt", http.StatusUnauthorized},
		{"token for another registration", endpoint + "&token=" + otherToken, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := websocket.Dial(ctx, tt.url, nil)
			if err == nil {
				conn.CloseNow()
				t.Fatal("Dial() succeeded")
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Errorf("Dial() response = %v, want status %d", resp, tt.status)
			}
		})
	}
	if ts.host(reg.ID) != nil {
		t.Fatal("rejected connection reached the runtime data model")
	}

	host, err := runtime.DialWebSocketHost(ctx, endpoint+"&token="+token)
	if err != nil {
		t.Fatalf("DialWebSocketHost() error = %v", err)
	}
	defer host.Close()
	if !host.Initialize() {
		t.Fatal("Initialize() = false")
	}
	if !host.SetValue(runtime.ElementLessonLocation, "1:0") || !host.Commit() {
		t.Fatal("write over authorized connection failed")
	}
	if got := ts.host(reg.ID).Value(runtime.ElementLessonLocation); got != "1:0" {
		t.Errorf("hosted bookmark = %q, want 1:0", got)
	}

	conn, _, err := websocket.Dial(ctx, endpoint, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": {"Bearer " + token}},
	})
	if err != nil {
		t.Fatalf("Dial() with bearer header error = %v", err)
	}
	conn.CloseNow()
}
