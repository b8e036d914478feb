package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shannon/internal/backend"
	"shannon/internal/generation"
)

type stubGenerator struct {
	got  generation.Request
	resp generation.Response
	err  error
}

func (s *stubGenerator) Generate(ctx context.Context, req generation.Request) (generation.Response, error) {
	s.got = req
	return s.resp, s.err
}

func newTestServer(t *testing.T, gen generation.Generator, opts Options) http.Handler {
	t.Helper()
	s, err := New(gen, opts)
	require.NoError(t, err)
	return s.Routes()
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, generation.Path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresGenerator(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)
}

func TestGenerate_OK(t *testing.T) {
	gen := &stubGenerator{resp: generation.Response{Sentences: []string{"a b", "c d"}}}
	h := newTestServer(t, gen, Options{})

	rec := post(h, `{"strength":3,"num_sentences":2,"fileContent":"x y z"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var resp generation.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"a b", "c d"}, resp.Sentences)
	assert.Equal(t, generation.Request{Strength: 3, NumSentences: 2, FileContent: "x y z"}, gen.got)
}

func TestGenerate_NilSentencesEncodeAsEmptyArray(t *testing.T) {
	h := newTestServer(t, &stubGenerator{}, Options{})
	rec := post(h, `{"strength":1,"num_sentences":1,"fileContent":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sentences":[]}`, rec.Body.String())
}

func TestGenerate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"bad json", `{"strength":`, http.StatusBadRequest},
		{"strength too low", `{"strength":0,"num_sentences":1}`, http.StatusBadRequest},
		{"strength too high", `{"strength":5,"num_sentences":1}`, http.StatusBadRequest},
		{"count too low", `{"strength":2,"num_sentences":0}`, http.StatusBadRequest},
		{"count too high", `{"strength":2,"num_sentences":11}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &stubGenerator{}, Options{})
			rec := post(h, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestGenerate_BodyTooLarge(t *testing.T) {
	h := newTestServer(t, &stubGenerator{}, Options{MaxBodyBytes: 64})
	body := `{"strength":2,"num_sentences":1,"fileContent":"` + strings.Repeat("x", 200) + `"}`
	rec := post(h, body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGenerate_GeneratorError(t *testing.T) {
	h := newTestServer(t, &stubGenerator{err: errors.New("boom")}, Options{})
	rec := post(h, `{"strength":2,"num_sentences":1,"fileContent":"a"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "boom")
}

func TestGenerate_MethodNotAllowed(t *testing.T) {
	h := newTestServer(t, &stubGenerator{}, Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, generation.Path, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Allow"))
}

func TestPreflight(t *testing.T) {
	h := newTestServer(t, &stubGenerator{}, Options{AllowOrigin: "http://localhost:3000"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, generation.Path, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, &stubGenerator{}, Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// The HTTP client and the server agree on the wire contract end to end.
func TestClientAgainstNGramServer(t *testing.T) {
	gen := backend.NewNGram(backend.NGramOptions{MaxConcurrent: 1, Workers: 2})
	ts := httptest.NewServer(newTestServer(t, gen, Options{}))
	defer ts.Close()

	client := generation.NewClient(ts.URL, 5*time.Second)
	resp, err := client.Generate(context.Background(), generation.Request{
		Strength:     2,
		NumSentences: 4,
		FileContent:  "one two three\none two three\n",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one two three", "one two three", "one two three", "one two three"}, resp.Sentences)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s, err := New(&stubGenerator{}, Options{MaxConnections: 4})
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRequestID(t *testing.T) {
	h := newTestServer(t, &stubGenerator{}, Options{})

	rec := post(h, `{"strength":1,"num_sentences":1,"fileContent":"a"}`)
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36, "generated uuid")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "caller-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "caller-id", rec.Header().Get("X-Request-ID"))
}
