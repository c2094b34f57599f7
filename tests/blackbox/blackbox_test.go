//go:build integration

package blackbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"modelconsole/internal/inference"
)

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func projectRootFromThisFile(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/tests/blackbox/blackbox_test.go
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

var (
	buildOnce sync.Once
	binPath   string
	buildErr  error
)

func buildBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("builds the binary; skipped in -short mode")
	}
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "modelconsole-bin")
		if err != nil {
			buildErr = err
			return
		}
		binPath = filepath.Join(dir, "modelconsole")
		cmd := exec.Command("go", "build", "-o", binPath, "./cmd/modelconsole")
		cmd.Dir = projectRootFromThisFile(t)
		cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
		if out, err := cmd.CombinedOutput(); err != nil {
			buildErr = fmt.Errorf("go build failed: %v\n%s", err, out)
		}
	})
	if buildErr != nil {
		t.Fatal(buildErr)
	}
	return binPath
}

// fakeDaemon knows llama3 only. With brokenStream set, streaming generate
// calls end without the done line while blocking calls still succeed.
func fakeDaemon(t *testing.T, brokenStream bool) (host string, port int) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"models":[{"name":"llama3:latest","size":4661224676,"digest":"sha256:365c0bd3c000a25d28ddbf732fe1c6add414de7275464c4e4d1c3b5fcb5d8ad1","modified_at":"2024-05-01T10:00:00Z"}]}`)
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model  string `json:"model"`
			Stream *bool  `json:"stream"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !strings.HasPrefix(req.Model, "llama3") {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, `{"error":"model '%s' not found, try pulling it first"}`, req.Model)
			return
		}
		if req.Stream != nil && *req.Stream {
			w.Header().Set("Content-Type", "application/x-ndjson")
			_, _ = io.WriteString(w, `{"model":"llama3","response":"hi","done":false}`+"\n")
			if brokenStream {
				return
			}
			_, _ = io.WriteString(w, `{"model":"llama3","response":" there","done":false}`+"\n")
			_, _ = io.WriteString(w, `{"model":"llama3","response":"","done":true}`+"\n")
			return
		}
		_, _ = io.WriteString(w, `{"model":"llama3","response":"hi there","done":true}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	u, _ := url.Parse(srv.URL)
	h, p, _ := net.SplitHostPort(u.Host)
	fmt.Sscanf(p, "%d", &port)
	return h, port
}

// env isolates state files and disables auto-start for the binary and any
// fallback child it spawns.
func env(t *testing.T) []string {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfg, []byte("disable_auto_start: true\nprobe_attempts: 1\nprobe_interval_seconds: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return append(os.Environ(),
		"MODELCONSOLE_CONFIG="+cfg,
		"MODELCONSOLE_STATS_FILE="+filepath.Join(dir, "stats.json"),
		"MODELCONSOLE_SETTINGS_FILE="+filepath.Join(dir, "settings.json"),
		"MODELCONSOLE_LOG_FORMAT=json",
	)
}

type serverProc struct {
	base string
}

func startServer(t *testing.T, bin, host string, daemonPort int) *serverProc {
	t.Helper()
	port := findFreePort(t)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	cmd := exec.Command(bin, "serve",
		"--addr", fmt.Sprintf("127.0.0.1:%d", port),
		"--host", host,
		"--port", fmt.Sprint(daemonPort),
	)
	cmd.Env = env(t)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() { _ = cmd.Process.Kill(); _ = cmd.Wait() })
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not become healthy in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
	return &serverProc{base: base}
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func postJSON(t *testing.T, url string, payload string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, strings.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func TestBlackbox_ServeFlow(t *testing.T) {
	bin := buildBinary(t)
	host, dport := fakeDaemon(t, false)
	sp := startServer(t, bin, host, dport)

	resp, body := get(t, sp.base+"/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/readyz %d %s", resp.StatusCode, body)
	}

	resp, body = get(t, sp.base+"/api/models")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/api/models %d %s", resp.StatusCode, body)
	}
	var models struct {
		Models []struct {
			Name    string `json:"name"`
			Default bool   `json:"default"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &models); err != nil || len(models.Models) != 1 || !models.Models[0].Default {
		t.Fatalf("/api/models body=%s err=%v", body, err)
	}

	for _, stream := range []string{"false", "true"} {
		resp, body = postJSON(t, sp.base+"/api/test-model", `{"prompt":"hello","stream":`+stream+`}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("/api/test-model stream=%s: %d %s", stream, resp.StatusCode, body)
		}
		var out struct {
			Response  string `json:"response"`
			Tokens    int    `json:"tokens"`
			Transport string `json:"transport"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if out.Response != "hi there" || out.Tokens != 2 || out.Transport != "api" {
			t.Fatalf("stream=%s unexpected answer %s", stream, body)
		}
	}

	resp, body = get(t, sp.base+"/api/stats/inference-history")
	var hist struct {
		History []json.RawMessage `json:"history"`
	}
	if err := json.Unmarshal(body, &hist); err != nil || len(hist.History) != 2 {
		t.Fatalf("history %d %s", resp.StatusCode, body)
	}

	resp, body = postJSON(t, sp.base+"/api/test-model", `{"model":"ghost","prompt":"hi"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d, body=%s", resp.StatusCode, body)
	}
}

func TestBlackbox_BrokenStreamFallsBackToCLI(t *testing.T) {
	bin := buildBinary(t)
	host, dport := fakeDaemon(t, true)
	sp := startServer(t, bin, host, dport)

	resp, body := postJSON(t, sp.base+"/api/test-model", `{"model":"llama3","prompt":"hello","stream":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/api/test-model %d %s", resp.StatusCode, body)
	}
	var out struct {
		Response  string `json:"response"`
		Transport string `json:"transport"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Response != "hi there" || out.Transport != "cli" {
		t.Fatalf("unexpected answer %s", body)
	}
}

func TestBlackbox_RunOutputParses(t *testing.T) {
	bin := buildBinary(t)
	host, dport := fakeDaemon(t, false)
	for _, streamFlag := range []string{"--no-stream", ""} {
		args := []string{"run", "--host", host, "--port", fmt.Sprint(dport), "--model", "llama3"}
		if streamFlag != "" {
			args = append(args, streamFlag)
		}
		args = append(args, "--", "hello")
		cmd := exec.Command(bin, args...)
		cmd.Env = env(t)
		var stdout, stderr bytes.Buffer
		cmd.Stdout, cmd.Stderr = &stdout, &stderr
		if err := cmd.Run(); err != nil {
			t.Fatalf("run %v: %v\n%s", args, err, stderr.String())
		}
		text, marked := inference.ParseGeneratedText(stdout.String())
		if !marked || text != "hi there" {
			t.Fatalf("run %v: parsed %q marked=%v from %q", args, text, marked, stdout.String())
		}
	}
}

func TestBlackbox_RunMissingModelExitsNonZero(t *testing.T) {
	bin := buildBinary(t)
	host, dport := fakeDaemon(t, false)
	cmd := exec.Command(bin, "run", "--host", host, "--port", fmt.Sprint(dport), "--no-fallback", "--model", "ghost", "--", "hi")
	cmd.Env = env(t)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected a non-zero exit")
	}
	if !strings.Contains(stderr.String(), "not found") {
		t.Fatalf("stderr=%q", stderr.String())
	}
}
