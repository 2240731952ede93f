package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"socialhub/internal/config"
	"socialhub/internal/store"
	"socialhub/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const (
	testBaseURL        = "http://api.test"
	testEventuallyWait = 2 * time.Second
	testPollInterval   = 10 * time.Millisecond
	testPassword       = "correct-horse"
	testJWTSecret      = "test-secret-key-12345678901234567890123456789012"
)

var (
	pngBytes = testutil.PNG
	mp4Bytes = testutil.MP4
)

type testServer struct {
	srv *Server
	app *fiber.App
	cfg *config.Config
	mr  *miniredis.Miniredis
}

func testServerConfig(t *testing.T) *config.Config {
	return &config.Config{
		Env:               "test",
		Port:              "0",
		BaseURL:           testBaseURL,
		AllowedOrigins:    "http://localhost:5173",
		JWTSecret:         testJWTSecret,
		JWTIssuer:         "socialhub",
		JWTAudience:       "socialhub-api",
		JWTTTLHours:       1,
		StoreDriver:       config.StoreMemory,
		UploadDir:         t.TempDir(),
		MaxPhotoBytes:     1024,
		MaxMediaBytes:     4096,
		DispatchWorkers:   2,
		DispatchQueueSize: 64,
		RateLimitDisabled: true,
	}
}

// newTestServer builds a server over the memory store. withRedis adds a
// miniredis instance for revocation, tickets and pub/sub.
func newTestServer(t *testing.T, withRedis bool) *testServer {
	t.Helper()
	cfg := testServerConfig(t)

	ts := &testServer{cfg: cfg}
	var rdb *redis.Client
	if withRedis {
		ts.mr, rdb = testutil.NewRedis(t)
	}

	srv, err := NewServerWithDeps(cfg, store.NewMemory(), rdb)
	require.NoError(t, err)
	ts.srv = srv
	ts.app = srv.App()
	srv.StartBackground()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return ts
}

type formFile struct {
	field, name, contentType string
	content                  []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

// do runs a request through the app and returns the status and body.
func (ts *testServer) do(t *testing.T, req *http.Request, token string) (int, []byte) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func (ts *testServer) doJSON(t *testing.T, method, path, token string, payload any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return ts.do(t, req, token)
}

func (ts *testServer) registerRequest(t *testing.T, email, name string, photo *formFile) (int, []byte) {
	t.Helper()
	fields := map[string]string{
		"email":      email,
		"password":   testPassword,
		"name":       name,
		"birth_date": "1990-01-01",
		"gender":     "female",
	}
	var files []formFile
	if photo != nil {
		files = append(files, *photo)
	}
	body, ct := multipartBody(t, fields, files...)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	req.Header.Set("Content-Type", ct)
	return ts.do(t, req, "")
}

// register creates an account and returns its id and token.
func (ts *testServer) register(t *testing.T, email, name string) (string, string) {
	t.Helper()
	status, body := ts.registerRequest(t, email, name,
		&formFile{field: "photo", name: "me.png", content: pngBytes})
	require.Equal(t, http.StatusCreated, status, string(body))
	return gjson.GetBytes(body, "user.id").String(), gjson.GetBytes(body, "token").String()
}

func (ts *testServer) createPost(t *testing.T, token, description string) string {
	t.Helper()
	body, ct := multipartBody(t, map[string]string{"description": description},
		formFile{field: "media", name: "clip.png", content: pngBytes})
	req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	req.Header.Set("Content-Type", ct)
	status, resp := ts.do(t, req, token)
	require.Equal(t, http.StatusCreated, status, string(resp))
	return gjson.GetBytes(resp, "id").String()
}

func (ts *testServer) unreadCount(t *testing.T, token string) int64 {
	t.Helper()
	status, body := ts.doJSON(t, http.MethodGet, "/api/notifications/unread-count", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	return gjson.GetBytes(body, "unread").Int()
}
