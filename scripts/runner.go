package scripts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// ScriptRunner runs the model scripts (transcription, summarization and
// language classification) as subprocesses that print one JSON object.
type ScriptRunner struct {
	config Config
	logger *logrus.Logger
}

func NewScriptRunner(cfg Config) (*ScriptRunner, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &ScriptRunner{
		config: cfg,
		logger: logrus.StandardLogger(),
	}, nil
}

func validateConfig(cfg Config) error {
	if cfg.PythonPath == "" {
		return fmt.Errorf("python path is required")
	}
	if cfg.ScriptsPath == "" {
		return fmt.Errorf("scripts path is required")
	}

	if _, err := os.Stat(cfg.ScriptsPath); os.IsNotExist(err) {
		return fmt.Errorf("scripts directory does not exist: %s", cfg.ScriptsPath)
	}

	for _, script := range []string{transcribeScript, summarizeScript, detectScript} {
		scriptPath := filepath.Join(cfg.ScriptsPath, script)
		if _, err := os.Stat(scriptPath); os.IsNotExist(err) {
			return fmt.Errorf("required script not found: %s", scriptPath)
		}
	}
	return nil
}

// Transcribe runs speech-to-text on input (a local file or a URL) and
// returns the path of the subtitle file written into outputDir.
func (r *ScriptRunner) Transcribe(ctx context.Context, input, outputDir, model string) (string, error) {
	const op = "ScriptRunner.Transcribe"

	args := map[string]string{
		"output_dir": outputDir,
		"model":      model,
		"device":     r.config.Device,
	}
	if r.config.BatchSize > 0 {
		args["batch_size"] = strconv.Itoa(r.config.BatchSize)
	}

	var result TranscriptionResult
	if err := r.run(ctx, transcribeScript, []string{input}, args, nil, &result); err != nil {
		return "", err
	}
	if result.Error != "" {
		return "", newScriptError(op, transcribeScript, nil, result.Error)
	}

	if result.SRTPath == "" {
		return filepath.Join(outputDir, TranscriptFile), nil
	}
	return result.SRTPath, nil
}

// Summarize sends prompt to the summarization model and returns its raw
// output, sentinels included. The prompt goes over stdin.
func (r *ScriptRunner) Summarize(ctx context.Context, prompt string) (string, error) {
	const op = "ScriptRunner.Summarize"

	args := map[string]string{
		"model": r.config.SummaryModel,
	}

	var result SummaryResult
	if err := r.run(ctx, summarizeScript, nil, args, strings.NewReader(prompt), &result); err != nil {
		return "", err
	}
	if result.Error != "" {
		return "", newScriptError(op, summarizeScript, nil, result.Error)
	}
	return result.Summary, nil
}

// DetectLanguage classifies text and returns the classifier label.
func (r *ScriptRunner) DetectLanguage(ctx context.Context, text string) (string, error) {
	const op = "ScriptRunner.DetectLanguage"

	var result DetectionResult
	if err := r.run(ctx, detectScript, nil, nil, strings.NewReader(text), &result); err != nil {
		return "", err
	}
	if result.Error != "" {
		return "", newScriptError(op, detectScript, nil, result.Error)
	}

	r.logger.WithFields(logrus.Fields{
		"label": result.Label,
		"score": result.Score,
	}).Debug("Language classified")

	return result.Label, nil
}

func (r *ScriptRunner) run(
	ctx context.Context,
	scriptName string,
	positional []string,
	args map[string]string,
	stdin io.Reader,
	out interface{},
) error {
	const op = "ScriptRunner.run"

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	cmdArgs := r.buildCommandArgs(scriptName, positional, args)
	logger := r.logger.WithFields(logrus.Fields{
		"script": scriptName,
		"args":   cmdArgs,
	})
	logger.Debug("Executing script")

	cmd := exec.CommandContext(ctx, r.config.PythonPath, cmdArgs...)
	cmd.Dir = r.config.ScriptsPath
	cmd.Env = append(os.Environ(), r.config.Environment...)
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrOutput := strings.TrimSpace(stderr.String())
		logger.WithFields(logrus.Fields{
			"error":  err,
			"stderr": stderrOutput,
		}).Error("Script execution failed")
		return newScriptError(op, scriptName, err, fmt.Sprintf("script execution failed (stderr: %s)", stderrOutput))
	}

	if err := json.Unmarshal(stdout.Bytes(), out); err != nil {
		logger.WithField("output", stdout.String()).Error("Invalid JSON output")
		return newScriptError(op, scriptName, err, "invalid JSON output")
	}
	return nil
}

func (r *ScriptRunner) buildCommandArgs(scriptName string, positional []string, args map[string]string) []string {
	var cmdArgs []string
	if filepath.Base(r.config.PythonPath) == "uv" {
		cmdArgs = append(cmdArgs, "run")
	}
	cmdArgs = append(cmdArgs, filepath.Join(r.config.ScriptsPath, scriptName))
	cmdArgs = append(cmdArgs, positional...)

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := args[k]; v != "" {
			cmdArgs = append(cmdArgs, fmt.Sprintf("--%s=%s", k, v))
		}
	}
	return append(cmdArgs, "--json")
}
