package inference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// GeneratedTextMarker precedes the generated text in the fallback program's output.
const GeneratedTextMarker = "Generated text:"

// CLIConfig configures the command-line fallback.
type CLIConfig struct {
	// Bin is the program to run. Empty means this executable's own "run" command.
	Bin string
	// Args go before the per-request flags. Ignored when Bin is empty.
	Args       []string
	DaemonHost string
	DaemonPort int
	// ConfigFile is handed to the default child so it runs with the same settings.
	ConfigFile string
	Logger     zerolog.Logger
}

// CLITransport runs a command-line client and parses its captured stdout.
// It never streams.
type CLITransport struct {
	bin        string
	args       []string
	daemonAddr string
	log        zerolog.Logger
}

// NewCLITransport resolves the fallback program.
func NewCLITransport(cfg CLIConfig) (*CLITransport, error) {
	host := cfg.DaemonHost
	if host == "" {
		host = "localhost"
	}
	port := cfg.DaemonPort
	if port <= 0 {
		port = 11434
	}
	t := &CLITransport{
		bin:        cfg.Bin,
		args:       append([]string(nil), cfg.Args...),
		daemonAddr: net.JoinHostPort(host, strconv.Itoa(port)),
		log:        cfg.Logger,
	}
	if t.bin == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve fallback executable: %w", err)
		}
		t.bin = exe
		// the parent already ensured the daemon; the child never starts one
		t.args = []string{"run", "--no-stream", "--no-fallback", "--no-stats", "--no-auto-start"}
		if cfg.ConfigFile != "" {
			t.args = append(t.args, "--config", cfg.ConfigFile)
		}
		t.args = append(t.args, "--host", host, "--port", strconv.Itoa(port))
	}
	return t, nil
}

func (t *CLITransport) Name() string { return "cli" }

// Execute runs the fallback program once. progress is ignored.
func (t *CLITransport) Execute(ctx context.Context, req Request, _ ProgressFunc) (Result, error) {
	args := append(append([]string(nil), t.args...),
		"--model", req.Model,
		"--temperature", strconv.FormatFloat(req.Temperature, 'f', -1, 64),
		"--max-tokens", strconv.Itoa(req.MaxTokens),
		"--", req.Prompt,
	)
	cmd := exec.CommandContext(ctx, t.bin, args...)
	cmd.WaitDelay = 2 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	t.log.Debug().Str("bin", t.bin).Str("model", req.Model).Msg("running fallback")
	err := cmd.Run()
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	if err != nil {
		return Result{}, t.classify(req.Model, err, stdout.String(), stderr.String())
	}
	text, marked := ParseGeneratedText(stdout.String())
	if !marked {
		t.log.Warn().Str("model", req.Model).Int("bytes", stdout.Len()).Msg("fallback output has no generated-text marker; using full output")
	}
	return Result{
		Text:               text,
		TokenCountEstimate: EstimateTokens(text),
		ElapsedSeconds:     time.Since(start).Seconds(),
		Model:              req.Model,
		Transport:          t.Name(),
	}, nil
}

func (t *CLITransport) classify(model string, runErr error, stdout, stderr string) error {
	combined := strings.ToLower(stderr + "\n" + stdout)
	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		// could not start at all
		return transportFailure(model, fmt.Errorf("fallback %s: %w", t.bin, runErr))
	}
	switch {
	case strings.Contains(combined, "not found"):
		return notFound(model, fmt.Errorf("fallback exited %d: %s", exitErr.ExitCode(), tail(stderr)))
	case strings.Contains(combined, "connection refused"), strings.Contains(combined, strings.ToLower(t.daemonAddr)):
		return unavailable(model, t.daemonAddr, fmt.Errorf("fallback exited %d: %s", exitErr.ExitCode(), tail(stderr)))
	default:
		return transportFailure(model, fmt.Errorf("fallback exited %d: %s", exitErr.ExitCode(), tail(stderr)))
	}
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 512 {
		return "..." + s[len(s)-512:]
	}
	return s
}

// noiseLine matches log and progress lines the fallback program may mix into
// its output: plain level prefixes, zerolog console lines with an optional
// timestamp, "<time> - <name> - LEVEL - " lines and token progress lines.
var noiseLine = regexp.MustCompile(`^\s*(?:` +
	`(?:(?:\d{4}-\d{2}-\d{2}[T ]\S+|\d{1,2}:\d{2}(?::\d{2})?(?:[AP]M)?)\s+)?(?:INFO|DEBUG|WARN(?:ING)?|ERROR)(?::|\s)` +
	`|(?:(?:\d{4}-\d{2}-\d{2}[T ]\S+|\d{1,2}:\d{2}(?::\d{2})?(?:[AP]M)?)\s+)?(?:DBG|INF|WRN|ERR)\s` +
	`|\S.*\s-\s\S+\s-\s(?:INFO|DEBUG|WARNING|ERROR)\s-\s` +
	`|Generating token \d+` +
	`)`)

// ParseGeneratedText extracts the generated text from fallback output. When a
// line starting with GeneratedTextMarker exists, everything after it is
// returned verbatim and marked is true; only the lines before the marker are
// checked for log noise. Without a marker, known log lines are dropped and
// the rest is returned with marked false.
func ParseGeneratedText(out string) (text string, marked bool) {
	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	for i, l := range lines {
		if noiseLine.MatchString(l) {
			continue
		}
		trimmed := strings.TrimSpace(l)
		if !strings.HasPrefix(trimmed, GeneratedTextMarker) {
			continue
		}
		body := lines[i+1:]
		if rest := strings.TrimSpace(strings.TrimPrefix(trimmed, GeneratedTextMarker)); rest != "" {
			body = append([]string{rest}, body...)
		}
		return strings.TrimSpace(strings.Join(body, "\n")), true
	}
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		if !noiseLine.MatchString(l) {
			kept = append(kept, l)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n")), false
}
