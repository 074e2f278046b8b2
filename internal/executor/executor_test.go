package executor

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemExecutor_Execute(t *testing.T) {
	e := NewSystemExecutor(0)
	ctx := context.Background()

	t.Run("echo command", func(t *testing.T) {
		out, err := e.Execute(ctx, "echo", "hello")
		require.NoError(t, err)
		assert.Equal(t, "hello\n", out.Stdout)
		assert.Empty(t, out.Stderr)
		assert.Zero(t, out.ExitCode)
	})

	t.Run("separate streams and exit code", func(t *testing.T) {
		out, err := e.Execute(ctx, "sh", "-c", "echo out; echo err >&2; exit 3")
		require.Error(t, err)

		var exitErr *exec.ExitError
		assert.True(t, errors.As(err, &exitErr))
		assert.Equal(t, "out\n", out.Stdout)
		assert.Equal(t, "err\n", out.Stderr)
		assert.Equal(t, 3, out.ExitCode)
	})

	t.Run("nonexistent command", func(t *testing.T) {
		out, err := e.Execute(ctx, "nonexistent-command-xyz-12345")
		assert.Error(t, err)
		assert.Nil(t, out)
	})

	t.Run("killed at deadline", func(t *testing.T) {
		tctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		out, err := e.Execute(tctx, "sleep", "5")
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.NotNil(t, out)
		assert.Less(t, time.Since(start), 4*time.Second)
	})
}

func TestSystemExecutor_OutputCap(t *testing.T) {
	e := NewSystemExecutor(16)

	out, err := e.Execute(context.Background(), "sh", "-c", "printf '%0100d' 0")
	require.NoError(t, err)
	assert.True(t, out.Truncated)
	assert.True(t, strings.HasSuffix(out.Stdout, TruncationMarker))
	assert.Equal(t, 16+len(TruncationMarker), len(out.Stdout))
}

func TestCappedBuffer(t *testing.T) {
	b := newCappedBuffer(5)

	n, err := b.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, b.Truncated())

	n, err = b.Write([]byte("defgh"))
	require.NoError(t, err)
	assert.Equal(t, 5, n, "writes always report full length")
	assert.True(t, b.Truncated())

	_, _ = b.Write([]byte("more"))
	assert.Equal(t, "abcde"+TruncationMarker, b.String())
}

func TestSystemExecutor_LookPath(t *testing.T) {
	e := NewSystemExecutor(0)

	path, err := e.LookPath("sh")
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	_, err = e.LookPath("nonexistent-command-xyz-12345")
	assert.Error(t, err)
}

func TestMockExecutor_Execute(t *testing.T) {
	t.Run("default behavior", func(t *testing.T) {
		mock := &MockExecutor{}
		out, err := mock.Execute(context.Background(), "ssh", "-p", "22")
		require.NoError(t, err)
		assert.Empty(t, out.Stdout)

		require.Equal(t, 1, mock.CallCount())
		call, ok := mock.LastCall()
		require.True(t, ok)
		assert.Equal(t, "ssh", call.Name)
		assert.Equal(t, []string{"-p", "22"}, call.Args)
	})

	t.Run("custom function", func(t *testing.T) {
		mock := &MockExecutor{
			ExecuteFunc: func(ctx context.Context, name string, args ...string) (*Output, error) {
				return &Output{Stdout: "mocked output"}, nil
			},
		}
		out, err := mock.Execute(context.Background(), "test")
		require.NoError(t, err)
		assert.Equal(t, "mocked output", out.Stdout)
	})

	t.Run("error case", func(t *testing.T) {
		mock := &MockExecutor{
			ExecuteFunc: func(ctx context.Context, name string, args ...string) (*Output, error) {
				return &Output{Stderr: "error output", ExitCode: 1}, errors.New("mock error")
			},
		}
		out, err := mock.Execute(context.Background(), "test")
		assert.Error(t, err)
		assert.Equal(t, "error output", out.Stderr)
	})

	t.Run("no calls", func(t *testing.T) {
		_, ok := (&MockExecutor{}).LastCall()
		assert.False(t, ok)
	})
}

func TestMockExecutor_LookPath(t *testing.T) {
	mock := &MockExecutor{}
	path, err := mock.LookPath("ssh")
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/ssh", path)

	mock.LookPathFunc = func(file string) (string, error) {
		return "", errors.New("not found")
	}
	_, err = mock.LookPath("ssh")
	assert.Error(t, err)
}
