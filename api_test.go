package inkpost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/eringen/inkpost/model"
	"github.com/eringen/inkpost/objectstore"
	"github.com/eringen/inkpost/store/sqlite"
)

type fakeUploader struct {
	mu      sync.Mutex
	objects []objectstore.Object
	err     error
}

func (f *fakeUploader) Upload(ctx context.Context, obj objectstore.Object) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.objects = append(f.objects, obj)
	return "https://cdn.test/" + obj.Key, nil
}

func setupTestApp(t *testing.T, up objectstore.Uploader, mutate ...func(*Config)) (*App, *sqlite.Store) {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "blog.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	cfg := Config{
		Secret:     "test-secret",
		BcryptCost: bcrypt.MinCost,
		LogLevel:   "off",
		SiteURL:    "http://blog.test",
		SiteName:   "Test Blog",
	}
	for _, m := range mutate {
		m(&cfg)
	}
	a := New(cfg, WithStore(s), WithUploader(up))
	if err := a.Setup(context.Background()); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, s
}

func serve(a *App, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type filePart struct {
	name, contentType string
	data              []byte
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, file *filePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if file != nil {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, file.name)}
		h["Content-Type"] = []string{file.contentType}
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		part.Write(file.data)
	}
	w.Close()
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func tokenCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	t.Fatalf("no token cookie in response (status %d, body %s)", rec.Code, rec.Body.String())
	return nil
}

// signup registers and logs in username, returning the session cookie.
func signup(t *testing.T, a *App, username, password string) *http.Cookie {
	t.Helper()
	rec := serve(a, jsonRequest(http.MethodPost, "/register", credentials{username, password}))
	if rec.Code != http.StatusOK {
		t.Fatalf("register %s: status %d, body %s", username, rec.Code, rec.Body.String())
	}
	rec = serve(a, jsonRequest(http.MethodPost, "/login", credentials{username, password}))
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d, body %s", username, rec.Code, rec.Body.String())
	}
	return tokenCookieFrom(t, rec)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func TestSetupRequiresSecret(t *testing.T) {
	a := New(Config{}, WithUploader(&fakeUploader{}))
	if err := a.Setup(context.Background()); err == nil {
		t.Fatal("expected an error without a secret")
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	a, _ := setupTestApp(t, &fakeUploader{})

	rec := serve(a, jsonRequest(http.MethodPost, "/register", credentials{"alice", "pw1"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("first register: status %d", rec.Code)
	}
	u := decode[map[string]any](t, rec)
	if u["username"] != "alice" || u["id"] == "" {
		t.Errorf("register response = %v", u)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("register response leaks the password hash: %s", rec.Body.String())
	}

	rec = serve(a, jsonRequest(http.MethodPost, "/register", credentials{"alice", "pw2"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("second register: status %d, want 400", rec.Code)
	}
}

func TestLoginAndProfile(t *testing.T) {
	a, _ := setupTestApp(t, &fakeUploader{})
	cookie := signup(t, a, "alice", "pw1")

	if !cookie.HttpOnly {
		t.Error("token cookie should be HttpOnly")
	}

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/profile", nil), cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile: status %d, body %s", rec.Code, rec.Body.String())
	}
	id := decode[model.Identity](t, rec)
	if id.Username != "alice" || id.ID == "" {
		t.Errorf("profile = %+v", id)
	}

	rec = serve(a, jsonRequest(http.MethodPost, "/login", credentials{"alice", "wrong"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("wrong password: status %d, want 400", rec.Code)
	}
	if msg := decode[map[string]string](t, rec)["message"]; msg != "wrong credentials" {
		t.Errorf("wrong password message = %q", msg)
	}
	rec = serve(a, jsonRequest(http.MethodPost, "/login", credentials{"nobody", "pw1"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown user: status %d, want 400", rec.Code)
	}
}

func TestProfileRejectsMissingOrInvalidToken(t *testing.T) {
	a, _ := setupTestApp(t, &fakeUploader{})

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/profile", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token: status %d, want 401", rec.Code)
	}
	if msg := decode[map[string]string](t, rec)["message"]; msg != "JWT token is missing" {
		t.Errorf("missing token message = %q", msg)
	}

	rec = serve(a, httptest.NewRequest(http.MethodGet, "/profile", nil), &http.Cookie{Name: "token", Value: "garbage"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("invalid token: status %d, want 401", rec.Code)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	a, _ := setupTestApp(t, &fakeUploader{})
	rec := serve(a, httptest.NewRequest(http.MethodPost, "/logout", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: status %d", rec.Code)
	}
	c := tokenCookieFrom(t, rec)
	if c.Value != "" || c.MaxAge >= 0 {
		t.Errorf("cookie not cleared: %+v", c)
	}
}

func TestCreateAndGetPostWithoutFile(t *testing.T) {
	a, _ := setupTestApp(t, &fakeUploader{})
	cookie := signup(t, a, "alice", "pw1")

	rec := serve(a, multipartRequest(t, http.MethodPost, "/post", map[string]string{"title": "t"}, nil), cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}
	created := decode[model.Post](t, rec)
	if created.Image != "" {
		t.Errorf("image = %q, want empty", created.Image)
	}
	if created.Author.Username != "alice" {
		t.Errorf("author = %+v", created.Author)
	}

	rec = serve(a, httptest.NewRequest(http.MethodGet, "/post/"+created.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	got := decode[model.Post](t, rec)
	if got.ID != created.ID || got.Title != "t" || got.Author.Username != "alice" {
		t.Errorf("get = %+v, want %+v", got, created)
	}
}

func TestCreatePostRequiresAuth(t *testing.T) {
	a, _ := setupTestApp(t, &fakeUploader{})
	rec := serve(a, multipartRequest(t, http.MethodPost, "/post", map[string]string{"title": "t"}, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status %d, want 401", rec.Code)
	}
}

func TestCreatePostUploadsFile(t *testing.T) {
	up := &fakeUploader{}
	a, _ := setupTestApp(t, up)
	cookie := signup(t, a, "alice", "pw1")

	file := &filePart{name: "Cover Photo.txt", contentType: "text/plain", data: []byte("not an image")}
	rec := serve(a, multipartRequest(t, http.MethodPost, "/post", map[string]string{
		"title": "With image", "summary": "s", "content": "<p>c</p>",
	}, file), cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}
	post := decode[model.Post](t, rec)

	if len(up.objects) != 1 {
		t.Fatalf("uploads = %d, want 1", len(up.objects))
	}
	obj := up.objects[0]
	if !strings.HasSuffix(obj.Key, "-cover-photo.txt") {
		t.Errorf("key = %q", obj.Key)
	}
	if obj.ContentType != "text/plain" || string(obj.Body) != "not an image" {
		t.Errorf("object = %q %q", obj.ContentType, obj.Body)
	}
	if post.Image != "https://cdn.test/"+obj.Key {
		t.Errorf("image = %q", post.Image)
	}
}

func TestCreatePostUploadFailure(t *testing.T) {
	a, s := setupTestApp(t, &fakeUploader{err: errors.New("bucket unavailable")})
	cookie := signup(t, a, "alice", "pw1")

	file := &filePart{name: "a.txt", contentType: "text/plain", data: []byte("x")}
	rec := serve(a, multipartRequest(t, http.MethodPost, "/post", map[string]string{"title": "t"}, file), cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	posts, err := s.ListPosts(context.Background(), 20)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("post persisted despite failed upload: %+v", posts)
	}
}

func TestCreatePostRejectsLargeFile(t *testing.T) {
	up := &fakeUploader{}
	a, _ := setupTestApp(t, up, func(c *Config) { c.MaxUploadBytes = 8 })
	cookie := signup(t, a, "alice", "pw1")

	file := &filePart{name: "big.bin", contentType: "application/octet-stream", data: bytes.Repeat([]byte("x"), 64)}
	rec := serve(a, multipartRequest(t, http.MethodPost, "/post", map[string]string{"title": "t"}, file), cookie)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rec.Code)
	}
	if len(up.objects) != 0 {
		t.Errorf("oversized file was uploaded")
	}
}

func TestCreatePostRejectsHugeImageDimensions(t *testing.T) {
	up := &fakeUploader{}
	a, s := setupTestApp(t, up)
	cookie := signup(t, a, "alice", "pw1")

	file := &filePart{name: "tall.png", contentType: "image/png", data: pngDeclaring(t, 1300, 60000)}
	rec := serve(a, multipartRequest(t, http.MethodPost, "/post", map[string]string{"title": "t"}, file), cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	if msg := decode[map[string]string](t, rec)["message"]; !strings.Contains(msg, "image too large") {
		t.Errorf("message = %q", msg)
	}
	if len(up.objects) != 0 {
		t.Errorf("oversized image was uploaded")
	}
	posts, err := s.ListPosts(context.Background(), 20)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("post persisted despite rejected image: %+v", posts)
	}
}

func TestUpdatePostByAuthor(t *testing.T) {
	up := &fakeUploader{}
	a, _ := setupTestApp(t, up)
	cookie := signup(t, a, "alice", "pw1")

	rec := serve(a, multipartRequest(t, http.MethodPost, "/post", map[string]string{
		"title": "Old", "summary": "keep me", "content": "old body",
	}, &filePart{name: "a.txt", contentType: "text/plain", data: []byte("a")}), cookie)
	created := decode[model.Post](t, rec)

	rec = serve(a, multipartRequest(t, http.MethodPut, "/post", map[string]string{
		"id": created.ID, "title": "New", "content": "new body",
	}, nil), cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decode[model.Post](t, rec)
	if updated.Title != "New" || updated.Content != "new body" {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Summary != "keep me" {
		t.Errorf("summary = %q, omitted fields should be kept", updated.Summary)
	}
	if updated.Image != created.Image {
		t.Errorf("image = %q, want unchanged %q", updated.Image, created.Image)
	}

	rec = serve(a, multipartRequest(t, http.MethodPut, "/post", map[string]string{"id": created.ID},
		&filePart{name: "b.txt", contentType: "text/plain", data: []byte("b")}), cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("re-upload: status %d, body %s", rec.Code, rec.Body.String())
	}
	if img := decode[model.Post](t, rec).Image; img == created.Image || !strings.HasSuffix(img, "-b.txt") {
		t.Errorf("image after re-upload = %q", img)
	}
}

func TestUpdatePostByOtherUserRejected(t *testing.T) {
	a, _ := setupTestApp(t, &fakeUploader{})
	alice := signup(t, a, "alice", "pw1")
	bob := signup(t, a, "bob", "pw2")

	rec := serve(a, multipartRequest(t, http.MethodPost, "/post", map[string]string{"title": "mine"}, nil), alice)
	created := decode[model.Post](t, rec)

	rec = serve(a, multipartRequest(t, http.MethodPut, "/post", map[string]string{"id": created.ID, "title": "hijacked"}, nil), bob)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	if msg := decode[map[string]string](t, rec)["message"]; msg != "you are not the author" {
		t.Errorf("message = %q", msg)
	}

	rec = serve(a, httptest.NewRequest(http.MethodGet, "/post/"+created.ID, nil))
	if got := decode[model.Post](t, rec); got.Title != "mine" {
		t.Errorf("title = %q, post was modified", got.Title)
	}
}

func TestUpdatePostUploadFailureKeepsPost(t *testing.T) {
	up := &fakeUploader{}
	a, _ := setupTestApp(t, up)
	cookie := signup(t, a, "alice", "pw1")

	rec := serve(a, multipartRequest(t, http.MethodPost, "/post", map[string]string{"title": "t"},
		&filePart{name: "a.txt", contentType: "text/plain", data: []byte("a")}), cookie)
	created := decode[model.Post](t, rec)

	up.mu.Lock()
	up.err = errors.New("quota exceeded")
	up.mu.Unlock()

	rec = serve(a, multipartRequest(t, http.MethodPut, "/post", map[string]string{"id": created.ID, "title": "changed"},
		&filePart{name: "b.txt", contentType: "text/plain", data: []byte("b")}), cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}

	rec = serve(a, httptest.NewRequest(http.MethodGet, "/post/"+created.ID, nil))
	got := decode[model.Post](t, rec)
	if got.Title != "t" || got.Image != created.Image {
		t.Errorf("post changed after failed upload: %+v", got)
	}
}

func TestUpdateMissingPost(t *testing.T) {
	a, _ := setupTestApp(t, &fakeUploader{})
	cookie := signup(t, a, "alice", "pw1")

	rec := serve(a, multipartRequest(t, http.MethodPut, "/post", map[string]string{"id": "nope", "title": "x"}, nil), cookie)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status %d, want 404", rec.Code)
	}
	rec = serve(a, multipartRequest(t, http.MethodPut, "/post", map[string]string{"title": "x"}, nil), cookie)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing id: status %d, want 400", rec.Code)
	}
}

func TestGetPostNotFound(t *testing.T) {
	a, _ := setupTestApp(t, &fakeUploader{})
	rec := serve(a, httptest.NewRequest(http.MethodGet, "/post/does-not-exist", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status %d, want 404", rec.Code)
	}
}

func TestListPostsNewestFirstLimited(t *testing.T) {
	a, s := setupTestApp(t, &fakeUploader{})
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	for i := 0; i < 25; i++ {
		if _, err := s.CreatePost(ctx, u.ID, model.PostFields{Title: fmt.Sprintf("post %d", i)}); err != nil {
			t.Fatalf("CreatePost failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/post", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	posts := decode[[]model.Post](t, rec)
	if len(posts) != 20 {
		t.Fatalf("count = %d, want 20", len(posts))
	}
	if posts[0].Title != "post 24" || posts[19].Title != "post 5" {
		t.Errorf("order: first %q last %q", posts[0].Title, posts[19].Title)
	}
	for _, p := range posts {
		if p.Author.Username != "alice" {
			t.Errorf("author not resolved on %q", p.Title)
		}
	}
}

func TestListPostsEmptyIsArray(t *testing.T) {
	a, _ := setupTestApp(t, &fakeUploader{})
	rec := serve(a, httptest.NewRequest(http.MethodGet, "/post", nil))
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %s, want []", body)
	}
}

func TestFeed(t *testing.T) {
	a, _ := setupTestApp(t, &fakeUploader{})
	cookie := signup(t, a, "alice", "pw1")
	rec := serve(a, multipartRequest(t, http.MethodPost, "/post", map[string]string{"title": "Feed me", "summary": "sum"}, nil), cookie)
	created := decode[model.Post](t, rec)

	rec = serve(a, httptest.NewRequest(http.MethodGet, "/feed.xml", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"<title>Test Blog</title>", "<title>Feed me</title>", "http://blog.test/post/" + created.ID + "/"} {
		if !strings.Contains(body, want) {
			t.Errorf("feed missing %q:\n%s", want, body)
		}
	}
}

func TestHealth(t *testing.T) {
	a, _ := setupTestApp(t, &fakeUploader{})
	rec := serve(a, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status %d", rec.Code)
	}
}

func TestCORSAllowsCredentialedOrigin(t *testing.T) {
	a, _ := setupTestApp(t, &fakeUploader{})
	req := httptest.NewRequest(http.MethodGet, "/post", nil)
	req.Header.Set("Origin", "http://blog.test")
	rec := serve(a, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://blog.test" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q", got)
	}
}

func TestCrossOriginWritesRejected(t *testing.T) {
	a, s := setupTestApp(t, &fakeUploader{})
	cookie := signup(t, a, "alice", "pw1")

	req := multipartRequest(t, http.MethodPost, "/post", map[string]string{"title": "forged"}, nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := serve(a, req, cookie)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign origin: status %d, want 403", rec.Code)
	}

	req = multipartRequest(t, http.MethodPut, "/post", map[string]string{"id": "x", "title": "forged"}, nil)
	req.Header.Set("Referer", "https://evil.example/page")
	if rec := serve(a, req, cookie); rec.Code != http.StatusForbidden {
		t.Errorf("foreign referer: status %d, want 403", rec.Code)
	}

	req = jsonRequest(http.MethodPost, "/login", credentials{"alice", "pw1"})
	req.Header.Set("Origin", "null")
	if rec := serve(a, req); rec.Code != http.StatusForbidden {
		t.Errorf("opaque origin login: status %d, want 403", rec.Code)
	}

	posts, err := s.ListPosts(context.Background(), 20)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("forged post persisted: %+v", posts)
	}
}

func TestAllowedOriginWritesPass(t *testing.T) {
	a, _ := setupTestApp(t, &fakeUploader{})
	cookie := signup(t, a, "alice", "pw1")

	req := multipartRequest(t, http.MethodPost, "/post", map[string]string{"title": "ok"}, nil)
	req.Header.Set("Origin", "http://blog.test")
	if rec := serve(a, req, cookie); rec.Code != http.StatusOK {
		t.Errorf("site origin: status %d, want 200", rec.Code)
	}

	req = multipartRequest(t, http.MethodPost, "/post", map[string]string{"title": "ok too"}, nil)
	req.Header.Set("Referer", "http://BLOG.test/editor")
	if rec := serve(a, req, cookie); rec.Code != http.StatusOK {
		t.Errorf("site referer: status %d, want 200", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	a, _ := setupTestApp(t, &fakeUploader{})
	if rec := serve(a, jsonRequest(http.MethodPost, "/register", credentials{"alice", "pw1"})); rec.Code != http.StatusOK {
		t.Fatalf("register: status %d", rec.Code)
	}

	for i := 0; i < 5; i++ {
		rec := serve(a, jsonRequest(http.MethodPost, "/login", credentials{"alice", "wrong"}))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("attempt %d: status %d, want 400", i+1, rec.Code)
		}
	}
	// Correct credentials are refused too once the budget is spent.
	rec := serve(a, jsonRequest(http.MethodPost, "/login", credentials{"alice", "pw1"}))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("6th attempt: status %d, want 429", rec.Code)
	}

	// Another client address keeps its own budget.
	req := jsonRequest(http.MethodPost, "/login", credentials{"alice", "pw1"})
	req.RemoteAddr = "198.51.100.7:4321"
	if rec := serve(a, req); rec.Code != http.StatusOK {
		t.Errorf("other ip: status %d, want 200", rec.Code)
	}
}

func TestRegisterFailuresShareLoginBudget(t *testing.T) {
	a, _ := setupTestApp(t, &fakeUploader{})
	if rec := serve(a, jsonRequest(http.MethodPost, "/register", credentials{"alice", "pw1"})); rec.Code != http.StatusOK {
		t.Fatalf("register: status %d", rec.Code)
	}

	for i := 0; i < 3; i++ {
		rec := serve(a, jsonRequest(http.MethodPost, "/register", credentials{"alice", "pw2"}))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("duplicate register %d: status %d, want 400", i+1, rec.Code)
		}
	}
	for i := 0; i < 2; i++ {
		rec := serve(a, jsonRequest(http.MethodPost, "/login", credentials{"alice", "wrong"}))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("failed login %d: status %d, want 400", i+1, rec.Code)
		}
	}

	if rec := serve(a, jsonRequest(http.MethodPost, "/login", credentials{"alice", "pw1"})); rec.Code != http.StatusTooManyRequests {
		t.Errorf("login after shared failures: status %d, want 429", rec.Code)
	}
	if rec := serve(a, jsonRequest(http.MethodPost, "/register", credentials{"bob", "pw1"})); rec.Code != http.StatusTooManyRequests {
		t.Errorf("register after shared failures: status %d, want 429", rec.Code)
	}
}
