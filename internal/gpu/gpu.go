// Package gpu reads GPU utilisation and memory from nvidia-smi.
package gpu

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"modelconsole/internal/guard"
	"modelconsole/pkg/types"
)

// DefaultTimeout bounds one query.
const DefaultTimeout = 5 * time.Second

var queryArgs = []string{
	"--query-gpu=index,name,utilization.gpu,memory.used,memory.total",
	"--format=csv,noheader,nounits",
}

// Querier runs the query tool. The zero value uses nvidia-smi from PATH.
type Querier struct {
	Bin     string // default "nvidia-smi"
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Query lists the visible GPUs. A missing tool, a non-zero exit and an
// expired deadline are all errors; callers treat them as "no GPU data".
func (q Querier) Query(ctx context.Context) ([]types.GPU, error) {
	bin := q.Bin
	if bin == "" {
		bin = "nvidia-smi"
	}
	timeout := q.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	out, err := guard.RunWithDeadline(ctx, timeout, func(ctx context.Context) (string, error) {
		cmd := exec.CommandContext(ctx, bin, queryArgs...)
		cmd.WaitDelay = time.Second
		var stdout, stderr bytes.Buffer
		cmd.Stdout, cmd.Stderr = &stdout, &stderr
		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return "", fmt.Errorf("%s: %w: %s", bin, err, msg)
			}
			return "", fmt.Errorf("%s: %w", bin, err)
		}
		return stdout.String(), nil
	})
	if err != nil {
		q.Logger.Debug().Err(err).Str("bin", bin).Msg("gpu query failed")
		return nil, fmt.Errorf("query gpus: %w", err)
	}
	return Parse(out), nil
}

// Parse reads csv,noheader,nounits rows. Rows with fewer than five fields
// are skipped.
func Parse(out string) []types.GPU {
	var gpus []types.GPU
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 5 {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		gpus = append(gpus, types.GPU{
			Index:       parts[0],
			Name:        parts[1],
			Utilization: parts[2],
			MemoryUsed:  parts[3],
			MemoryTotal: parts[4],
		})
	}
	return gpus
}
