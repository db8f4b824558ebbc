package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fast returns a client pointed at srv with millisecond retry timing.
func fast(srv *httptest.Server, store TokenStore) *Client {
	return New(Config{
		BaseURL:    srv.URL,
		UploadURL:  srv.URL + "/upload",
		Store:      store,
		HTTPClient: srv.Client(),
		Timeout:    2 * time.Second,
		RetryDelay: 5 * time.Millisecond,
	})
}

func TestLoginStoresTokenAndAuthHeader(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			w.Write([]byte(`{"data":{"token":"tok-123","id":1,"username":"admin","email":"a@b.c","fullName":"Admin","role":"ADMIN"}}`))
		case "/phones":
			gotAuth.Store(r.Header.Get("Authorization"))
			w.Write([]byte(`{"data":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	store := &MemTokenStore{}
	c := fast(srv, store)

	res, err := c.Login(context.Background(), "admin", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if res.Token != "tok-123" || res.Role != "ADMIN" {
		t.Fatalf("unexpected auth result: %+v", res)
	}
	if tok, _ := store.Load(); tok != "tok-123" {
		t.Fatalf("token not persisted, store has %q", tok)
	}

	if _, err := c.GetPhones(context.Background()); err != nil {
		t.Fatal(err)
	}
	if gotAuth.Load() != "Bearer tok-123" {
		t.Fatalf("auth header not attached, got %q", gotAuth.Load())
	}
}

func TestTokenLazyLoadFromStore(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	store := &MemTokenStore{}
	if err := store.Save("persisted-tok"); err != nil {
		t.Fatal(err)
	}
	c := fast(srv, store)
	if _, err := c.GetPhones(context.Background()); err != nil {
		t.Fatal(err)
	}
	if gotAuth.Load() != "Bearer persisted-tok" {
		t.Fatalf("persisted token not used, got %q", gotAuth.Load())
	}
}

func TestEnvelopeUnwrap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/phones/1":
			w.Write([]byte(`{"data":{"id":1,"name":"Nova","brand":"TechPhone","model":"S23","images":["/a.png"]}}`))
		case "/phones/2":
			// Bare payload, no envelope.
			w.Write([]byte(`{"id":2,"name":"Apex","brand":"EliteMobile","model":"15","images":["/b.png"]}`))
		}
	}))
	defer srv.Close()
	c := fast(srv, nil)

	p, err := c.GetPhone(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != 1 || p.Name != "Nova" {
		t.Fatalf("envelope not unwrapped: %+v", p)
	}

	p, err = c.GetPhone(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != 2 || p.Name != "Apex" {
		t.Fatalf("bare payload mangled: %+v", p)
	}
}

func TestUnauthorizedClearsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := &MemTokenStore{}
	store.Save("stale-tok")
	c := fast(srv, store)

	_, err := c.GetInquiries(context.Background())
	if KindOf(err) != KindAuth {
		t.Fatalf("want auth error, got %v", err)
	}
	if tok, _ := store.Load(); tok != "" {
		t.Fatalf("token not cleared on 401, store has %q", tok)
	}
	if c.Authenticated() {
		t.Fatal("client still reports authenticated after 401")
	}
}

func TestServerErrorRetriedThenSurfaced(t *testing.T) {
	for _, status := range []int{500, 502, 503} {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(status)
		}))

		c := fast(srv, nil)
		start := time.Now()
		_, err := c.GetPhones(context.Background())
		elapsed := time.Since(start)
		srv.Close()

		if KindOf(err) != KindServer {
			t.Fatalf("status %d: want server error, got %v", status, err)
		}
		if got := calls.Load(); got != 4 {
			t.Fatalf("status %d: want 4 attempts (1 + 3 retries), got %d", status, got)
		}
		// Backoff is 1x + 2x + 3x the base delay.
		if elapsed < 6*5*time.Millisecond {
			t.Fatalf("status %d: retries returned too fast (%v), backoff not applied", status, elapsed)
		}
	}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data":[{"id":1,"name":"Nova","brand":"T","model":"S","images":["/a.png"]}]}`))
	}))
	defer srv.Close()

	c := fast(srv, nil)
	phones, err := c.GetPhones(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(phones) != 1 || phones[0].Name != "Nova" {
		t.Fatalf("unexpected result after retry: %+v", phones)
	}
	if calls.Load() != 3 {
		t.Fatalf("want success on attempt 3, got %d calls", calls.Load())
	}
}

func TestCreatePhonePreflightValidation(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	c := fast(srv, nil)

	_, err := c.CreatePhone(context.Background(), Phone{Name: "NoImages", Condition: CondGood})
	if KindOf(err) != KindValidation {
		t.Fatalf("want validation error for missing images, got %v", err)
	}
	_, err = c.CreatePhone(context.Background(), Phone{Name: "NoCondition", Images: []string{"/a.png"}})
	if KindOf(err) != KindValidation {
		t.Fatalf("want validation error for missing condition, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("pre-flight failures must not reach the network, saw %d calls", calls.Load())
	}
}

func TestCreatePhoneDefaultsFlags(t *testing.T) {
	var body atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body.Store(string(b))
		w.Write([]byte(`{"data":{"id":7,"name":"Nova","brand":"T","model":"S","images":["/a.png"]}}`))
	}))
	defer srv.Close()
	c := fast(srv, nil)

	p, err := c.CreatePhone(context.Background(), Phone{
		Name: "Nova", Brand: "T", Model: "S",
		Condition: CondBrandNew, Images: []string{"/a.png"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != 7 {
		t.Fatalf("create result not decoded: %+v", p)
	}
	sent, _ := body.Load().(string)
	for _, want := range []string{`"isFeatured":false`, `"isAvailable":true`} {
		if !strings.Contains(sent, want) {
			t.Fatalf("default flag %s missing from request body: %s", want, sent)
		}
	}
}

func TestValidationErrorMessageFromFieldList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`[{"field":"name","defaultMessage":"must not be blank"}]`))
	}))
	defer srv.Close()
	c := fast(srv, nil)

	_, err := c.CreatePhone(context.Background(), Phone{
		Name: "x", Condition: CondGood, Images: []string{"/a.png"},
	})
	if KindOf(err) != KindValidation {
		t.Fatalf("want validation error, got %v", err)
	}
	if err.Error() != "Validation Error: name: must not be blank" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestTimeoutNotRetried(t *testing.T) {
	var calls atomic.Int32
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := New(Config{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Timeout:    30 * time.Millisecond,
		RetryDelay: time.Millisecond,
	})
	_, err := c.GetPhones(context.Background())
	if KindOf(err) != KindTimeout {
		t.Fatalf("want timeout error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("timeouts must not be retried, saw %d calls", calls.Load())
	}
}

func TestInvalidJSONNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`<html>definitely not json</html>`))
	}))
	defer srv.Close()
	c := fast(srv, nil)

	_, err := c.GetPhones(context.Background())
	if KindOf(err) != KindProtocol {
		t.Fatalf("want protocol error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("protocol errors must not be retried, saw %d calls", calls.Load())
	}
}

func TestConnectivityError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := New(Config{
		BaseURL:    srv.URL,
		MaxRetries: -1, // no retries, keep the test quick
		Timeout:    time.Second,
	})
	_, err := c.GetPhones(context.Background())
	var ae *Error
	if !errors.As(err, &ae) || ae.Kind != KindConnectivity {
		t.Fatalf("want connectivity error, got %v", err)
	}
	if !ae.Retryable {
		t.Fatal("connectivity errors should be retryable")
	}
}

func TestConcurrentCallsIndependent(t *testing.T) {
	var failing atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("keyword") == "flaky" && failing.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()
	c := fast(srv, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = c.SearchPhones(context.Background(), "flaky")
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = c.GetPhones(context.Background())
	}()
	wg.Wait()

	if errs[0] != nil {
		t.Fatalf("flaky call should recover via retry: %v", errs[0])
	}
	if errs[1] != nil {
		t.Fatalf("healthy call should be unaffected: %v", errs[1])
	}
}

func TestUploadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload" {
			http.NotFound(w, r)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"file too large"}`))
			return
		}
		f.Close()
		if hdr.Filename == "huge.png" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"file too large"}`))
			return
		}
		w.Write([]byte(`{"url":"/media/uploads/abc.png"}`))
	}))
	defer srv.Close()
	c := fast(srv, nil)

	url, err := c.UploadImage(context.Background(), "ok.png", strings.NewReader("fake-bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if url != "/media/uploads/abc.png" {
		t.Fatalf("unexpected url %q", url)
	}

	_, err = c.UploadImage(context.Background(), "huge.png", strings.NewReader("fake-bytes"))
	if KindOf(err) != KindUpload || err.Error() != "file too large" {
		t.Fatalf("want upload error with server message, got %v", err)
	}
}

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	s := &FileTokenStore{Path: path}

	if tok, err := s.Load(); err != nil || tok != "" {
		t.Fatalf("fresh store should be empty, got %q %v", tok, err)
	}
	if err := s.Save("tok-xyz"); err != nil {
		t.Fatal(err)
	}
	if tok, _ := s.Load(); tok != "tok-xyz" {
		t.Fatalf("roundtrip failed, got %q", tok)
	}
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if tok, _ := s.Load(); tok != "" {
		t.Fatalf("clear failed, got %q", tok)
	}
	// Clearing twice is fine.
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
}
