package shell

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_CapturesOutputAndCode(t *testing.T) {
	res, err := Runner{}.Run(context.Background(), `echo out; echo err >&2; exit 3`, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 3, res.ReturnCode)
	assert.False(t, res.TimedOut)
}

func TestRun_TimeoutReturns124(t *testing.T) {
	start := time.Now()
	res, err := Runner{}.Run(context.Background(), `sleep 5`, 200*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, TimeoutCode, res.ReturnCode)
	assert.True(t, res.TimedOut)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRunInteractive_FeedsInput(t *testing.T) {
	res, err := Runner{}.RunInteractive(context.Background(), `read line; echo "got $line"`, "hello", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "got hello\n", res.Stdout)
	assert.Zero(t, res.ReturnCode)
}

func TestRun_EmptyCommand(t *testing.T) {
	_, err := Runner{}.Run(context.Background(), "   ", time.Second)
	assert.ErrorIs(t, err, ErrEmptyCommand)
}
