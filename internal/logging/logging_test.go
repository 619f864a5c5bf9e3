package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetLoggingState() {
	Shutdown()

	mu.Lock()
	defer mu.Unlock()

	baseWriter = os.Stderr
	baseLogger = zerolog.New(baseWriter).With().Timestamp().Logger()
	log.Logger = baseLogger
	zerolog.TimeFieldFormat = defaultTimeFmt
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	nowFn = time.Now
}

func readJSONLine(t *testing.T, line string) map[string]interface{} {
	t.Helper()

	line = strings.TrimSpace(line)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	if line == "" {
		t.Fatalf("expected log output, got empty string")
	}

	var event map[string]interface{}
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		t.Fatalf("failed to unmarshal log line %q: %v", line, err)
	}
	return event
}

func TestInitJSONFormatSetsLevelAndComponent(t *testing.T) {
	t.Cleanup(resetLoggingState)

	var buf bytes.Buffer
	Init(Config{
		Format:    "json",
		Level:     "debug",
		Component: "gnews",
		Console:   &buf,
	})

	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Fatalf("expected global level debug, got %s", zerolog.GlobalLevel())
	}

	log.Debug().Msg("hello")
	event := readJSONLine(t, buf.String())
	assert.Equal(t, "gnews", event["component"])
	assert.Equal(t, "hello", event["message"])
	assert.Equal(t, "debug", event["level"])
}

func TestInitConsoleFormatUsesConsoleWriter(t *testing.T) {
	t.Cleanup(resetLoggingState)

	var buf bytes.Buffer
	Init(Config{Format: "console", Level: "info", Console: &buf})

	mu.RLock()
	_, ok := baseWriter.(zerolog.ConsoleWriter)
	mu.RUnlock()
	if !ok {
		t.Fatalf("expected console writer, got %#v", baseWriter)
	}
}

func TestInitAutoFormatWithNonTerminal(t *testing.T) {
	t.Cleanup(resetLoggingState)

	var buf bytes.Buffer
	Init(Config{Format: "auto", Console: &buf})

	mu.RLock()
	defer mu.RUnlock()
	if baseWriter != &buf {
		t.Fatalf("expected raw writer for non-terminal output, got %#v", baseWriter)
	}
}

func TestInitWritesToFile(t *testing.T) {
	t.Cleanup(resetLoggingState)

	path := filepath.Join(t.TempDir(), "logs", DefaultFilePath)
	var buf bytes.Buffer
	Init(Config{Format: "json", Level: "info", FilePath: path, Console: &buf})

	log.Info().Str("profile", "temp").Msg("Profile added")
	Shutdown()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	event := readJSONLine(t, string(data))
	assert.Equal(t, "temp", event["profile"])
	assert.Equal(t, "Profile added", event["message"])
	assert.Contains(t, buf.String(), "Profile added")
}

func TestInitAppendsToExistingFile(t *testing.T) {
	t.Cleanup(resetLoggingState)

	path := filepath.Join(t.TempDir(), DefaultFilePath)
	require.NoError(t, os.WriteFile(path, []byte("{\"message\":\"earlier\"}\n"), 0o644))

	Init(Config{Format: "json", FilePath: path, Console: &bytes.Buffer{}})
	log.Info().Msg("later")
	Shutdown()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "earlier")
	assert.Contains(t, lines[1], "later")
}

func TestInitSkipsUnusableFile(t *testing.T) {
	t.Cleanup(resetLoggingState)

	dir := t.TempDir()
	var buf bytes.Buffer
	Init(Config{Format: "json", FilePath: dir, Console: &buf})

	log.Info().Msg("still logged")
	assert.Contains(t, buf.String(), "still logged")
}

func TestRollingFileWriterRotates(t *testing.T) {
	t.Cleanup(resetLoggingState)
	nowFn = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	path := filepath.Join(t.TempDir(), DefaultFilePath)
	w, err := newRollingFileWriter(Config{FilePath: path, MaxSizeMB: 1})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	chunk := bytes.Repeat([]byte("x"), int(bytesPerMB)-10)
	_, err = w.Write(chunk)
	require.NoError(t, err)
	_, err = w.Write([]byte("overflow line\n"))
	require.NoError(t, err)

	rotated := path + ".20240501-120000"
	info, err := os.Stat(rotated)
	require.NoError(t, err)
	assert.Equal(t, int64(len(chunk)), info.Size())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "overflow line\n", string(data))
}

func TestRollingFileWriterRefusesSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.log")
	require.NoError(t, os.WriteFile(target, nil, 0o644))
	link := filepath.Join(dir, "link.log")
	require.NoError(t, os.Symlink(target, link))

	_, err := newRollingFileWriter(Config{FilePath: link})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symlink")
}

func TestCompressAndRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "google_news.log.20240501-120000")
	require.NoError(t, os.WriteFile(path, []byte("rotated"), 0o644))

	compressAndRemove(path)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(path + ".gz")
	assert.NoError(t, err)
}

func TestCleanupOldFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFilePath)
	old := path + ".20200101-000000"
	fresh := path + ".20990101-000000"
	require.NoError(t, os.WriteFile(old, nil, 0o644))
	require.NoError(t, os.WriteFile(fresh, nil, 0o644))
	longAgo := time.Now().Add(-90 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(old, longAgo, longAgo))

	w := &rollingFileWriter{path: path, maxAge: normalizeMaxAge(30)}
	w.cleanupOldFiles()

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestRunIDContextHelpers(t *testing.T) {
	t.Cleanup(resetLoggingState)

	var buf bytes.Buffer
	Init(Config{Format: "json", Console: &buf})

	ctx, id := WithRunID(context.Background(), "  ")
	require.NotEmpty(t, id)
	assert.Equal(t, id, RunID(ctx))

	logger := FromContext(ctx)
	logger.Info().Msg("with run")
	event := readJSONLine(t, buf.String())
	assert.Equal(t, id, event["run_id"])

	ctx, id = WithRunID(nil, "fixed") //nolint:staticcheck
	assert.Equal(t, "fixed", id)
	assert.Equal(t, "fixed", RunID(ctx))
	assert.Equal(t, "", RunID(context.Background()))
}

func TestFromContextWithoutRunID(t *testing.T) {
	t.Cleanup(resetLoggingState)

	var buf bytes.Buffer
	Init(Config{Format: "json", Console: &buf})

	logger := FromContext(context.Background())
	logger.Info().Msg("no-run")

	event := readJSONLine(t, buf.String())
	if _, ok := event["run_id"]; ok {
		t.Fatalf("did not expect run_id, got %v", event["run_id"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"DEBUG":   zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for input, want := range tests {
		assert.Equal(t, want, parseLevel(input), "level %q", input)
	}
	assert.True(t, ValidLevel("Warn"))
	assert.False(t, ValidLevel("loud"))
	assert.True(t, ValidFormat("console"))
	assert.False(t, ValidFormat("xml"))
}

func TestIsLevelEnabled(t *testing.T) {
	t.Cleanup(resetLoggingState)

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if !IsLevelEnabled(zerolog.WarnLevel) {
		t.Fatal("expected warn level to be enabled")
	}
	if IsLevelEnabled(zerolog.DebugLevel) {
		t.Fatal("expected debug level to be disabled")
	}
}

func TestShutdownDetachesFile(t *testing.T) {
	t.Cleanup(resetLoggingState)

	path := filepath.Join(t.TempDir(), DefaultFilePath)
	var buf bytes.Buffer
	Init(Config{Format: "json", FilePath: path, Console: &buf})
	log.Info().Msg("before shutdown")
	Shutdown()

	log.Info().Msg("after shutdown")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "before shutdown")
	assert.NotContains(t, string(data), "after shutdown")
	assert.Contains(t, buf.String(), "after shutdown")
}
