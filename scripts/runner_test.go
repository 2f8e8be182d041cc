package scripts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeInterpreter = `#!/bin/sh
script=$(basename "$1")
shift
if [ "$FAKE_MODE" = "error" ]; then
  echo '{"error":"model exploded"}'
  exit 0
fi
if [ "$FAKE_MODE" = "crash" ]; then
  echo "segfault" >&2
  exit 3
fi
case "$script" in
  transcribe.py)
    for a in "$@"; do
      case "$a" in
        --output_dir=*) dir="${a#--output_dir=}" ;;
      esac
    done
    printf '1\n00:00:00,000 --> 00:00:01,000\nhi\n' > "$dir/out.srt"
    echo '{}'
    ;;
  summarize.py)
    input=$(cat)
    echo "{\"summary_text\":\"</text>$input</notes>\"}"
    ;;
  detect_language.py)
    cat > /dev/null
    echo '{"label":"French","score":0.93}'
    ;;
esac
`

func newTestRunner(t *testing.T, env ...string) *ScriptRunner {
	t.Helper()
	dir := t.TempDir()
	scriptsDir := filepath.Join(dir, "scripts")
	require.NoError(t, os.MkdirAll(scriptsDir, 0755))
	for _, name := range []string{transcribeScript, summarizeScript, detectScript} {
		require.NoError(t, os.WriteFile(filepath.Join(scriptsDir, name), nil, 0644))
	}

	interpreter := filepath.Join(dir, "python")
	require.NoError(t, os.WriteFile(interpreter, []byte(fakeInterpreter), 0755))

	runner, err := NewScriptRunner(Config{
		PythonPath:   interpreter,
		ScriptsPath:  scriptsDir,
		Device:       "cpu",
		BatchSize:    16,
		SummaryModel: "notetaker",
		Environment:  env,
	})
	require.NoError(t, err)
	return runner
}

func TestNewScriptRunnerMissingScripts(t *testing.T) {
	_, err := NewScriptRunner(Config{PythonPath: "python3", ScriptsPath: t.TempDir()})
	assert.Error(t, err)

	_, err = NewScriptRunner(Config{PythonPath: "python3", ScriptsPath: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)

	_, err = NewScriptRunner(Config{ScriptsPath: t.TempDir()})
	assert.Error(t, err)
}

func TestTranscribe(t *testing.T) {
	runner := newTestRunner(t)
	out := t.TempDir()

	path, err := runner.Transcribe(context.Background(), "/tmp/input.mp4", out, "large-v3")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, TranscriptFile), path)
	assert.FileExists(t, path)
}

func TestSummarize(t *testing.T) {
	runner := newTestRunner(t)

	raw, err := runner.Summarize(context.Background(), "notes")
	require.NoError(t, err)
	assert.Equal(t, "</text>notes</notes>", raw)
}

func TestDetectLanguage(t *testing.T) {
	runner := newTestRunner(t)

	label, err := runner.DetectLanguage(context.Background(), "bonjour tout le monde")
	require.NoError(t, err)
	assert.Equal(t, "French", label)
}

func TestScriptReportedError(t *testing.T) {
	runner := newTestRunner(t, "FAKE_MODE=error")

	_, err := runner.Summarize(context.Background(), "x")
	require.Error(t, err)
	var scriptErr *ScriptError
	require.ErrorAs(t, err, &scriptErr)
	assert.Equal(t, summarizeScript, scriptErr.Script)
	assert.Contains(t, err.Error(), "model exploded")
}

func TestScriptCrash(t *testing.T) {
	runner := newTestRunner(t, "FAKE_MODE=crash")

	_, err := runner.Transcribe(context.Background(), "in.wav", t.TempDir(), "tiny")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segfault")
}

func TestBuildCommandArgs(t *testing.T) {
	r := &ScriptRunner{config: Config{PythonPath: "/usr/bin/uv", ScriptsPath: "/srv/scripts"}}

	args := r.buildCommandArgs(transcribeScript, []string{"https://example.com/a.mp3"}, map[string]string{
		"model":  "large-v3",
		"device": "",
		"batch":  "16",
	})
	assert.Equal(t, []string{
		"run",
		"/srv/scripts/transcribe.py",
		"https://example.com/a.mp3",
		"--batch=16",
		"--model=large-v3",
		"--json",
	}, args)

	r.config.PythonPath = "python3"
	args = r.buildCommandArgs(detectScript, nil, nil)
	assert.Equal(t, []string{"/srv/scripts/detect_language.py", "--json"}, args)
}
