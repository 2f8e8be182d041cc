package models

// TranscriptEntry is one timed subtitle block.
type TranscriptEntry struct {
	Start string
	End   string
	Text  string
}

// Chunk is a run of consecutive entries collapsed into one subtitle block.
type Chunk struct {
	Timestamp string
	Text      string
}
