package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nijaru/skryba/errors"
	"github.com/nijaru/skryba/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `1
00:00:00,000 --> 00:00:02,500
Hello there.

2
00:00:02,500 --> 00:00:05,000
This is a test   
with two lines.

3
00:00:05,000 --> 00:00:07,000

4
00:00:07,000 --> 00:00:09,000
Goodbye.
`

func TestParse(t *testing.T) {
	entries := Parse(sample)
	require.Len(t, entries, 4)

	assert.Equal(t, models.TranscriptEntry{Start: "00:00:00,000", End: "00:00:02,500", Text: "Hello there."}, entries[0])
	assert.Equal(t, "This is a test\nwith two lines.", entries[1].Text)
	assert.Equal(t, "", entries[2].Text)
	assert.Equal(t, "00:00:09,000", entries[3].End)
}

func TestParseCRLF(t *testing.T) {
	content := strings.ReplaceAll(sample, "\n", "\r\n")
	entries := Parse(content)
	require.Len(t, entries, 4)
	assert.Equal(t, "00:00:02,500", entries[0].End)
	assert.Equal(t, "This is a test\nwith two lines.", entries[1].Text)
}

func TestParseSkipsShortBlocks(t *testing.T) {
	content := "1\n\n2\n00:00:01,000 --> 00:00:02,000\nkept\n\njunk"
	entries := Parse(content)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Text)
}

func TestParseMissingArrow(t *testing.T) {
	entries := Parse("1\nnot a timestamp\ntext")
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Start)
	assert.Empty(t, entries[0].End)
	assert.Equal(t, "text", entries[0].Text)
}

func TestParseEmpty(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("  \n\n  "))
}

func TestGroupInvalidSize(t *testing.T) {
	entries := Parse(sample)
	for _, size := range []int{0, -1, -20} {
		_, err := Group(entries, size)
		require.Error(t, err)
		assert.True(t, errors.IsInvalidInput(err))
	}
}

func makeEntries(n int) []models.TranscriptEntry {
	entries := make([]models.TranscriptEntry, n)
	for i := range entries {
		entries[i] = models.TranscriptEntry{
			Start: fmt.Sprintf("s%d", i),
			End:   fmt.Sprintf("e%d", i),
			Text:  fmt.Sprintf("t%d", i),
		}
	}
	return entries
}

func TestGroupCountAndCoverage(t *testing.T) {
	for n := 0; n <= 25; n++ {
		for g := 1; g <= 7; g++ {
			entries := makeEntries(n)
			chunks, err := Group(entries, g)
			require.NoError(t, err)

			want := (n + g - 1) / g
			require.Len(t, chunks, want, "n=%d g=%d", n, g)

			var covered []string
			for i, c := range chunks {
				lo := i * g
				hi := min(lo+g, n)
				assert.Equal(t, fmt.Sprintf("s%d --> e%d", lo, hi-1), c.Timestamp)

				var texts []string
				for _, e := range entries[lo:hi] {
					texts = append(texts, e.Text)
				}
				assert.Equal(t, strings.Join(texts, " "), c.Text)
				covered = append(covered, strings.Fields(c.Text)...)
			}

			var all []string
			for _, e := range entries {
				all = append(all, e.Text)
			}
			assert.Equal(t, all, append([]string(nil), covered...), "n=%d g=%d", n, g)
		}
	}
}

func TestGroupSkipsEmptyText(t *testing.T) {
	chunks, err := Group(Parse(sample), 20)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "00:00:00,000 --> 00:00:09,000", chunks[0].Timestamp)
	assert.Equal(t, "Hello there. This is a test\nwith two lines. Goodbye.", chunks[0].Text)
}

func TestGroupFileAndWriteGrouped(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "out.srt")
	require.NoError(t, os.WriteFile(src, []byte(sample), 0644))

	chunks, err := GroupFile(src, 2)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	dst := filepath.Join(dir, "out_grouped.srt")
	require.NoError(t, WriteGrouped(dst, chunks))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	want := "1\n00:00:00,000 --> 00:00:05,000\nHello there. This is a test\nwith two lines.\n\n" +
		"2\n00:00:05,000 --> 00:00:09,000\nGoodbye.\n\n"
	assert.Equal(t, want, string(data))
}

func TestGroupFileMissing(t *testing.T) {
	_, err := GroupFile(filepath.Join(t.TempDir(), "missing.srt"), 20)
	require.Error(t, err)
	assert.Equal(t, errors.KindIOFailure, errors.KindOf(err))
}
