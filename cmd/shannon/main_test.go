package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shannon/internal/config"
	"shannon/internal/generation"
	"shannon/internal/notify"
	"shannon/internal/usage"
)

// execute runs the root command with fresh flag state and an isolated config.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	for _, k := range []string{"SHANNON_ENDPOINT", "SHANNON_ADDR", "SHANNON_FAILURE_POLICY", "OPENAI_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(k, "")
	}
	configPath, endpoint, verbose = "", "", false
	genStrength, genSentences, genLocal, genPlain, genWidth = 1, 1, false, false, 80
	usageReset = false

	if !containsFlag(args, "--config") {
		args = append(args, "--config", filepath.Join(t.TempDir(), "config.yaml"))
	}
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func containsFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag || strings.HasPrefix(a, flag+"=") {
			return true
		}
	}
	return false
}

func writeCorpus(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestGenerate_Local(t *testing.T) {
	corpus := writeCorpus(t, "corpus.txt", "the quick brown fox\nthe quick brown fox\n")
	out, _, err := execute(t, "generate", corpus, "--local", "--plain", "-s", "2", "-n", "3")
	require.NoError(t, err)
	assert.Equal(t, "the quick brown fox\nthe quick brown fox\nthe quick brown fox\n", out)
}

func TestGenerate_Styled(t *testing.T) {
	corpus := writeCorpus(t, "corpus.txt", "a b c\na b c\n")
	out, _, err := execute(t, "generate", corpus, "--local", "-s", "3", "-n", "2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Generated Sentences:\n"))
	assert.Equal(t, 2, strings.Count(out, "a b c"))
}

func TestGenerate_AgainstEndpoint(t *testing.T) {
	var got generation.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, generation.Path, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(generation.Response{Sentences: []string{"second", "first"}})
	}))
	defer ts.Close()

	corpus := writeCorpus(t, "in.txt", "hello there")
	out, _, err := execute(t, "generate", corpus, "--endpoint", ts.URL, "--plain", "-s", "4", "-n", "7")
	require.NoError(t, err)
	assert.Equal(t, "second\nfirst\n", out, "response order is preserved")
	assert.Equal(t, generation.Request{Strength: 4, NumSentences: 7, FileContent: "hello there"}, got)
}

func TestGenerate_EndpointFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	corpus := writeCorpus(t, "in.txt", "hello there")
	_, stderr, err := execute(t, "generate", corpus, "--endpoint", ts.URL)
	require.Error(t, err)
	assert.Contains(t, stderr, "Error generating sentences")
}

func TestGenerate_RejectsWrongType(t *testing.T) {
	data := writeCorpus(t, "data.csv", "a,b")
	_, stderr, err := execute(t, "generate", data, "--local")
	require.Error(t, err)
	assert.Contains(t, stderr, "Error uploading file: data.csv: File type must be .txt")
}

func TestGenerate_FlagBounds(t *testing.T) {
	corpus := writeCorpus(t, "corpus.txt", "a b")
	_, _, err := execute(t, "generate", corpus, "-s", "5")
	assert.ErrorContains(t, err, "--strength")
	_, _, err = execute(t, "generate", corpus, "-n", "0")
	assert.ErrorContains(t, err, "--sentences")
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shannon.yaml")

	out, _, err := execute(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	require.FileExists(t, path)

	_, _, err = execute(t, "config", "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	t.Setenv("OPENAI_API_KEY", "sk-secret")
	configPath = ""
	rootCmd.SetArgs([]string{"config", "show", "--config", path})
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "backend: ngram")
	assert.NotContains(t, buf.String(), "sk-secret")
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("client:\n  failure_policy: explode\n"), 0644))
	_, _, err := execute(t, "config", "show", "--config", path)
	assert.ErrorContains(t, err, "failure_policy")
}

func TestCLISink(t *testing.T) {
	logger = zap.NewNop()
	var buf bytes.Buffer
	sink := cliSink(&buf)
	sink.Notify(notify.KindSuccess, "File uploaded: a.txt", "")
	sink.Notify(notify.KindError, "Error training model", "Please upload a .txt file")
	sink.Notify(notify.KindError, "bare", "")
	assert.Equal(t, "Error training model: Please upload a .txt file\nbare\n", buf.String())
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf, usage.AggregatedStats{
		Requests: 2,
		Total:    usage.TokenCounts{Input: 30, Output: 10, Total: 40},
		ByBackend: map[string]usage.TokenCounts{
			"openai": {Input: 30, Output: 10, Total: 40},
		},
		ByStrength: map[string]usage.TokenCounts{
			"3": {Input: 10, Output: 5, Total: 15},
			"1": {Input: 20, Output: 5, Total: 25},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "requests: 2\n")
	assert.Contains(t, out, "tokens:   40 (in 30, out 10)")
	assert.Contains(t, out, "by backend:")
	assert.NotContains(t, out, "by model:")
	assert.Less(t, strings.Index(out, "  1 "), strings.Index(out, "  3 "), "keys are sorted")
}

func TestWithUsage_SkipsNGram(t *testing.T) {
	logger = zap.NewNop()
	cfg = &config.Config{Server: config.ServerConfig{Backend: "ngram"}}
	ctx, flush := withUsage(context.Background())
	defer flush()
	assert.Nil(t, usage.FromContext(ctx))
}
