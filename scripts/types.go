package scripts

import "time"

const (
	transcribeScript = "transcribe.py"
	summarizeScript  = "summarize.py"
	detectScript     = "detect_language.py"

	// TranscriptFile is the subtitle file the transcription script leaves in
	// the output directory.
	TranscriptFile = "out.srt"
)

// Config holds the configuration for the ScriptRunner
type Config struct {
	PythonPath   string
	ScriptsPath  string
	Device       string
	BatchSize    int
	SummaryModel string
	Timeout      time.Duration
	Environment  []string
}

// TranscriptionResult is printed by transcribe.py
type TranscriptionResult struct {
	SRTPath  string  `json:"srt_path"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// SummaryResult is printed by summarize.py
type SummaryResult struct {
	Summary   string `json:"summary_text"`
	ModelName string `json:"model_name,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DetectionResult is printed by detect_language.py
type DetectionResult struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Error string  `json:"error,omitempty"`
}
