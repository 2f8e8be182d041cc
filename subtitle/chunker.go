// Package subtitle parses SRT transcripts and groups their entries into
// larger subtitle blocks.
package subtitle

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/nijaru/skryba/errors"
	"github.com/nijaru/skryba/models"
)

const timeSeparator = "-->"

var blockSeparator = regexp.MustCompile(`\r?\n\s*\r?\n`)

// ParseFile reads the whole subtitle file at path and parses it.
func ParseFile(path string) ([]models.TranscriptEntry, error) {
	const op = "subtitle.ParseFile"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IOFailure(op, err, fmt.Sprintf("failed to read subtitle file %s", path))
	}
	return Parse(string(data)), nil
}

// Parse splits content into blank-line separated blocks. The second line of
// a block holds "start --> end" and the remaining non-blank lines are text.
// Blocks with fewer than two lines are skipped.
func Parse(content string) []models.TranscriptEntry {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	var entries []models.TranscriptEntry
	for _, block := range blockSeparator.Split(content, -1) {
		lines := splitLines(block)
		if len(lines) < 2 {
			continue
		}

		var entry models.TranscriptEntry
		ts := strings.TrimSpace(lines[1])
		if start, end, ok := strings.Cut(ts, timeSeparator); ok {
			entry.Start = strings.TrimSpace(start)
			entry.End = strings.TrimSpace(end)
		}

		var text []string
		for _, line := range lines[2:] {
			if strings.TrimSpace(line) == "" {
				continue
			}
			text = append(text, strings.TrimRightFunc(line, unicode.IsSpace))
		}
		entry.Text = strings.TrimSpace(strings.Join(text, "\n"))

		entries = append(entries, entry)
	}
	return entries
}

func splitLines(block string) []string {
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// Group collapses entries into consecutive windows of size entries; the last
// window may be shorter. Order is preserved.
func Group(entries []models.TranscriptEntry, size int) ([]models.Chunk, error) {
	const op = "subtitle.Group"

	if size <= 0 {
		return nil, errors.InvalidInput(op, nil, fmt.Sprintf("group size must be positive, got %d", size))
	}

	chunks := make([]models.Chunk, 0, (len(entries)+size-1)/size)
	for i := 0; i < len(entries); i += size {
		end := min(i+size, len(entries))
		group := entries[i:end]

		texts := make([]string, 0, len(group))
		for _, e := range group {
			if e.Text != "" {
				texts = append(texts, e.Text)
			}
		}

		timestamp := group[0].Start + " " + timeSeparator + " " + group[len(group)-1].End
		chunks = append(chunks, models.Chunk{
			Timestamp: strings.TrimSpace(timestamp),
			Text:      strings.Join(texts, " "),
		})
	}
	return chunks, nil
}

// GroupFile parses path and groups its entries.
func GroupFile(path string, size int) ([]models.Chunk, error) {
	if size <= 0 {
		return Group(nil, size)
	}
	entries, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return Group(entries, size)
}

// WriteGrouped writes chunks as a numbered SRT file.
func WriteGrouped(path string, chunks []models.Chunk) error {
	const op = "subtitle.WriteGrouped"

	file, err := os.Create(path)
	if err != nil {
		return errors.IOFailure(op, err, "failed to create grouped subtitle file")
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for i, chunk := range chunks {
		fmt.Fprintf(writer, "%d\n%s\n%s\n\n", i+1, chunk.Timestamp, chunk.Text)
	}

	if err := writer.Flush(); err != nil {
		return errors.IOFailure(op, err, "failed to write grouped subtitle file")
	}
	if err := file.Close(); err != nil {
		return errors.IOFailure(op, err, "failed to close grouped subtitle file")
	}
	return nil
}
