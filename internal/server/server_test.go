package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"calllab/internal/db"
	"calllab/internal/domain"
	"calllab/internal/migrate"
	"calllab/internal/repo"
)

const testSecret = "test-secret"

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Close() { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.OpenLocal(filepath.Join(dir, "calllab.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn.DB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	r := repo.Repo{DB: conn}
	if _, err := r.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := r.InsertConversation(context.Background(), domain.Conversation{
		ID:        "conv_00001",
		Content:   "User: hello\nAgent: hi",
		ModelName: "gemma-1.1-2b-it",
	}); err != nil {
		t.Fatalf("insert conversation: %v", err)
	}

	handler, err := New(Config{Repo: r, BasePath: "/v0", Auth: AuthConfig{JWTSecret: testSecret}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.Close)
	return ts
}

func mintToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "dashboard",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func get(t *testing.T, srv *testServer, path, token string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := srv.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func TestHealthNoAuth(t *testing.T) {
	srv := newTestServer(t)
	res, data := get(t, srv, "/v0/health", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	srv := newTestServer(t)
	res, _ := get(t, srv, "/v0/status", "")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.StatusCode)
	}
	res, _ = get(t, srv, "/v0/status", "not-a-jwt")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d, want 401", res.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t)
	res, data := get(t, srv, "/v0/status", mintToken(t))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var summary domain.StatusSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if summary.OnlineNodes != 1 {
		t.Fatalf("online nodes = %d, want the seeded master", summary.OnlineNodes)
	}
	if summary.TotalConversations != 1 {
		t.Fatalf("conversations = %d, want 1", summary.TotalConversations)
	}
}

func TestConversationEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := mintToken(t)

	res, data := get(t, srv, "/v0/conversations/conv_00001", token)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var c domain.Conversation
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.ModelName != "gemma-1.1-2b-it" {
		t.Fatalf("model = %q", c.ModelName)
	}

	res, data = get(t, srv, "/v0/conversations/missing", token)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("missing conversation status = %d: %s", res.StatusCode, string(data))
	}
}

func TestNodesEndpoint(t *testing.T) {
	srv := newTestServer(t)
	res, data := get(t, srv, "/v0/nodes", mintToken(t))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var nodes []domain.Node
	if err := json.Unmarshal(data, &nodes); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(nodes) != 1 || nodes[0].NodeType != "master" {
		t.Fatalf("nodes = %+v", nodes)
	}
}
