package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/plenumhq/plenum/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records invocations and plays back scripted results.
type fakeRunner struct {
	calls  [][]string
	output []byte
	err    error
	onRun  func(name string, args []string)
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.onRun != nil {
		f.onRun(name, args)
	}
	return f.output, f.err
}

func newTestTool(t *testing.T, runner *fakeRunner) *Tool {
	t.Helper()
	tool := NewTool(WithWorkDir(t.TempDir()))
	tool.run = runner.run
	return tool
}

func TestAcquire(t *testing.T) {
	ctx := context.Background()

	t.Run("downloads through yt-dlp", func(t *testing.T) {
		runner := &fakeRunner{}
		runner.onRun = func(name string, args []string) {
			// yt-dlp writes the output file as a side effect
			require.NoError(t, os.WriteFile(args[len(args)-2], []byte("audio"), 0o644))
		}
		tool := newTestTool(t, runner)

		path, err := tool.Acquire(ctx, "https://e.org/s1", "abc123")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(tool.workDir, "abc123.mp3"), path)

		require.Len(t, runner.calls, 1)
		call := runner.calls[0]
		assert.Equal(t, "yt-dlp", call[0])
		assert.Contains(t, call, "--extract-audio")
		assert.Contains(t, call, "https://e.org/s1")
	})

	t.Run("reuses existing download", func(t *testing.T) {
		runner := &fakeRunner{}
		tool := newTestTool(t, runner)

		existing := filepath.Join(tool.workDir, "abc123.mp3")
		require.NoError(t, os.WriteFile(existing, []byte("audio"), 0o644))

		path, err := tool.Acquire(ctx, "https://e.org/s1", "abc123")
		require.NoError(t, err)
		assert.Equal(t, existing, path)
		assert.Empty(t, runner.calls)
	})

	t.Run("download failure is transient", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("exit status 1"), output: []byte("timeout")}
		tool := newTestTool(t, runner)

		_, err := tool.Acquire(ctx, "https://e.org/s1", "abc123")
		require.Error(t, err)
		assert.True(t, core.IsTransient(err))
		assert.Contains(t, err.Error(), "timeout")
	})

	t.Run("missing output file is fatal", func(t *testing.T) {
		runner := &fakeRunner{}
		tool := newTestTool(t, runner)

		_, err := tool.Acquire(ctx, "https://e.org/s1", "abc123")
		require.Error(t, err)
		assert.Equal(t, core.FaultFatal, core.KindOf(err))
	})
}

func TestResolveMetadata(t *testing.T) {
	ctx := context.Background()

	t.Run("parses yt-dlp dump", func(t *testing.T) {
		runner := &fakeRunner{output: []byte(`{"title":"General Debate","upload_date":"20240917","duration":5400.0,"language":"en"}`)}
		tool := newTestTool(t, runner)

		meta, err := tool.ResolveMetadata(ctx, "https://e.org/s1")
		require.NoError(t, err)

		assert.Equal(t, "General Debate", meta.Title)
		assert.Equal(t, 2024, meta.Date.Year())
		assert.Equal(t, 5400.0, meta.Duration)
		assert.Equal(t, []string{"en"}, meta.Languages)

		require.Len(t, runner.calls, 1)
		assert.Contains(t, runner.calls[0], "--skip-download")
	})

	t.Run("tolerates missing optional fields", func(t *testing.T) {
		runner := &fakeRunner{output: []byte(`{"title":"Untitled"}`)}
		tool := newTestTool(t, runner)

		meta, err := tool.ResolveMetadata(ctx, "https://e.org/s1")
		require.NoError(t, err)
		assert.True(t, meta.Date.IsZero())
		assert.Empty(t, meta.Languages)
	})

	t.Run("tool failure is transient", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("exit status 1"), output: []byte("403")}
		tool := newTestTool(t, runner)

		_, err := tool.ResolveMetadata(ctx, "https://e.org/s1")
		require.Error(t, err)
		assert.True(t, core.IsTransient(err))
	})

	t.Run("garbage JSON is fatal", func(t *testing.T) {
		runner := &fakeRunner{output: []byte("not json")}
		tool := newTestTool(t, runner)

		_, err := tool.ResolveMetadata(ctx, "https://e.org/s1")
		require.Error(t, err)
		assert.Equal(t, core.FaultFatal, core.KindOf(err))
	})
}

func TestProbeDuration(t *testing.T) {
	ctx := context.Background()

	t.Run("parses seconds", func(t *testing.T) {
		runner := &fakeRunner{output: []byte("2700.532000\n")}
		tool := newTestTool(t, runner)

		duration, err := tool.ProbeDuration(ctx, "/tmp/a.mp3")
		require.NoError(t, err)
		assert.InDelta(t, 2700.532, duration, 0.001)

		require.Len(t, runner.calls, 1)
		assert.Equal(t, "ffprobe", runner.calls[0][0])
	})

	t.Run("rejects garbage output", func(t *testing.T) {
		runner := &fakeRunner{output: []byte("N/A")}
		tool := newTestTool(t, runner)

		_, err := tool.ProbeDuration(ctx, "/tmp/a.mp3")
		assert.Error(t, err)
	})

	t.Run("wraps tool failure with output", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("exit status 1"), output: []byte("no such file")}
		tool := newTestTool(t, runner)

		_, err := tool.ProbeDuration(ctx, "/tmp/a.mp3")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no such file")
	})
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts decodable audio", func(t *testing.T) {
		runner := &fakeRunner{output: []byte("120.5\n")}
		tool := newTestTool(t, runner)

		path := filepath.Join(t.TempDir(), "a.mp3")
		require.NoError(t, os.WriteFile(path, []byte("audio"), 0o644))

		assert.NoError(t, tool.Validate(ctx, path))
	})

	t.Run("missing file is fatal", func(t *testing.T) {
		tool := newTestTool(t, &fakeRunner{})

		err := tool.Validate(ctx, filepath.Join(t.TempDir(), "nope.mp3"))
		require.Error(t, err)
		assert.Equal(t, core.FaultFatal, core.KindOf(err))
	})

	t.Run("empty file rejected", func(t *testing.T) {
		tool := newTestTool(t, &fakeRunner{})

		path := filepath.Join(t.TempDir(), "empty.mp3")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		err := tool.Validate(ctx, path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})

	t.Run("undecodable file rejected", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("exit status 1"), output: []byte("invalid data")}
		tool := newTestTool(t, runner)

		path := filepath.Join(t.TempDir(), "junk.mp3")
		require.NoError(t, os.WriteFile(path, []byte("junk"), 0o644))

		err := tool.Validate(ctx, path)
		require.Error(t, err)
		assert.Equal(t, core.FaultFatal, core.KindOf(err))
	})
}

func TestExtractWindow(t *testing.T) {
	ctx := context.Background()

	t.Run("builds ffmpeg args", func(t *testing.T) {
		runner := &fakeRunner{}
		tool := newTestTool(t, runner)

		err := tool.ExtractWindow(ctx, "/tmp/a.mp3", 600, 600, "/tmp/chunk1.mp3")
		require.NoError(t, err)

		require.Len(t, runner.calls, 1)
		call := runner.calls[0]
		assert.Equal(t, "ffmpeg", call[0])
		assert.Contains(t, call, "-ss")
		assert.Contains(t, call, "600.000")
		assert.Contains(t, call, "/tmp/chunk1.mp3")
	})

	t.Run("rejects non-positive duration", func(t *testing.T) {
		tool := newTestTool(t, &fakeRunner{})

		assert.Error(t, tool.ExtractWindow(ctx, "/tmp/a.mp3", 0, 0, "/tmp/out.mp3"))
	})
}

func TestRemove(t *testing.T) {
	tool := newTestTool(t, &fakeRunner{})

	path := filepath.Join(t.TempDir(), "gone.mp3")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	require.NoError(t, tool.Remove(path))
	require.NoError(t, tool.Remove(path)) // already gone is fine
}
