package process

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const helperEnv = "CLASSPARSE_PROCESS_HELPER"

// TestMain turns the test binary into a child process when helperEnv is set.
func TestMain(m *testing.M) {
	switch os.Getenv(helperEnv) {
	case "":
		os.Exit(m.Run())
	case "echo":
		conn := Stdio()
		for {
			line, err := conn.Receive()
			if err != nil {
				os.Exit(0)
			}
			if err := conn.Send("ack: " + line); err != nil {
				os.Exit(2)
			}
		}
	case "json":
		conn := Stdio()
		var req struct{ N int }
		for conn.ReceiveJSON(&req) == nil {
			conn.SendJSON(map[string]int{"Double": req.N * 2})
		}
		os.Exit(0)
	case "exit3":
		os.Exit(3)
	case "sleep":
		time.Sleep(time.Minute)
		os.Exit(0)
	}
	os.Exit(1)
}

func spawnHelper(t *testing.T, ctx context.Context, mode string, logger *zap.Logger) *Process {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)
	p, err := Options{Logger: logger, Env: []string{helperEnv + "=" + mode}}.Spawn(ctx, exe)
	require.NoError(t, err)
	return p
}

func TestSpawnEcho(t *testing.T) {
	defer leaktest.Check(t)()

	core, logs := observer.New(zap.InfoLevel)
	p := spawnHelper(t, context.Background(), "echo", zap.New(core))
	assert.Positive(t, p.Pid())
	assert.Equal(t, -1, p.ExitCode())

	for _, msg := range []string{"Hello from parent via IPC!", "", "third"} {
		require.NoError(t, p.Conn().Send(msg))
		reply, err := p.Conn().Receive()
		require.NoError(t, err)
		assert.Equal(t, "ack: "+msg, reply)
	}

	require.NoError(t, p.Wait())
	assert.Equal(t, 0, p.ExitCode())
	require.NoError(t, p.Wait())

	entries := logs.FilterField(zap.Int("pid", p.Pid())).All()
	require.Len(t, entries, 2)
	assert.Equal(t, "spawned child process", entries[0].Message)
	assert.Equal(t, "child process exited", entries[1].Message)
}

func TestSpawnJSON(t *testing.T) {
	defer leaktest.Check(t)()

	p := spawnHelper(t, context.Background(), "json", nil)
	for n := 1; n <= 3; n++ {
		require.NoError(t, p.Conn().SendJSON(map[string]int{"N": n}))
		var reply struct{ Double int }
		require.NoError(t, p.Conn().ReceiveJSON(&reply))
		assert.Equal(t, 2*n, reply.Double)
	}
	require.NoError(t, p.Wait())
}

func TestSpawnExitCode(t *testing.T) {
	p := spawnHelper(t, context.Background(), "exit3", nil)

	_, err := p.Conn().Receive()
	assert.ErrorIs(t, err, io.EOF)

	err = p.Wait()
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, p.ExitCode())
}

func TestSpawnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := spawnHelper(t, ctx, "sleep", nil)
	cancel()
	assert.Error(t, p.Wait())
	assert.Equal(t, -1, p.ExitCode())
}

func TestSpawnMissingBinary(t *testing.T) {
	_, err := Spawn(context.Background(), "/nonexistent/classparse-helper")
	assert.Error(t, err)
}

type closeBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closeBuffer) Close() error {
	b.closed = true
	return nil
}

func TestConn(t *testing.T) {
	t.Run("send appends newline", func(t *testing.T) {
		var out closeBuffer
		c := NewConn(strings.NewReader(""), &out)
		require.NoError(t, c.Send("one"))
		require.NoError(t, c.Send("two"))
		assert.Equal(t, "one\ntwo\n", out.String())
		require.NoError(t, c.Close())
		assert.True(t, out.closed)
	})

	t.Run("rejects embedded newline", func(t *testing.T) {
		var out closeBuffer
		c := NewConn(strings.NewReader(""), &out)
		assert.ErrorIs(t, c.Send("a\nb"), ErrNewline)
		assert.Zero(t, out.Len())
	})

	t.Run("receive", func(t *testing.T) {
		c := NewConn(strings.NewReader("first\nsecond\nlast"), &closeBuffer{})
		for _, want := range []string{"first", "second", "last"} {
			got, err := c.Receive()
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
		_, err := c.Receive()
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("bad json", func(t *testing.T) {
		c := NewConn(strings.NewReader("{not json\n"), &closeBuffer{})
		var v map[string]any
		assert.Error(t, c.ReceiveJSON(&v))
	})
}
