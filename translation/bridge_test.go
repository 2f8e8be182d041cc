package translation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nijaru/skryba/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordModel tokenizes by words and "translates" a window by tagging each
// word with the source and target languages.
type wordModel struct {
	mu      sync.Mutex
	src     string
	vocab   map[string]int
	words   []string
	srcOf   map[int]string
	encodes int32
	windows [][]int
	failOn  string
}

func newWordModel() *wordModel {
	return &wordModel{vocab: map[string]int{}, srcOf: map[int]string{}}
}

func (m *wordModel) SetSourceLanguage(lang string) { m.src = lang }

func (m *wordModel) Encode(_ context.Context, text string) ([]int, error) {
	atomic.AddInt32(&m.encodes, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int
	for _, w := range strings.Fields(text) {
		id, ok := m.vocab[w]
		if !ok {
			id = len(m.words)
			m.vocab[w] = id
			m.words = append(m.words, w)
		}
		m.srcOf[id] = m.src
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *wordModel) Generate(_ context.Context, tokens []int, tgt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = append(m.windows, tokens)
	out := make([]string, len(tokens))
	for i, id := range tokens {
		if m.words[id] == m.failOn {
			return "", fmt.Errorf("cannot translate %q", m.failOn)
		}
		out[i] = strings.ToUpper(m.words[id])
	}
	return strings.Join(out, " "), nil
}

func TestTranslateSingleWindow(t *testing.T) {
	m := newWordModel()
	b := NewBridge(m, m, 10)

	out, err := b.Translate(context.Background(), "hello big world", "fr_XX", "en_XX")
	require.NoError(t, err)
	assert.Equal(t, "HELLO BIG WORLD", out)
	assert.Len(t, m.windows, 1)
}

func TestTranslateSplitsWindows(t *testing.T) {
	m := newWordModel()
	b := NewBridge(m, m, 2)

	out, err := b.Translate(context.Background(), "a b c d e", "fr_XX", "en_XX")
	require.NoError(t, err)
	assert.Equal(t, "A B C D E", out)
	require.Len(t, m.windows, 3)
	assert.Len(t, m.windows[0], 2)
	assert.Len(t, m.windows[1], 2)
	assert.Len(t, m.windows[2], 1)
}

func TestTranslateEmpty(t *testing.T) {
	m := newWordModel()
	b := NewBridge(m, m, 0)

	out, err := b.Translate(context.Background(), "   ", "fr_XX", "en_XX")
	require.NoError(t, err)
	assert.Equal(t, "   ", out)
	assert.Equal(t, int32(0), m.encodes)
	assert.Equal(t, DefaultWindowSize, b.windowSize)
}

func TestTranslateFailure(t *testing.T) {
	m := newWordModel()
	m.failOn = "boom"
	b := NewBridge(m, m, 1)

	_, err := b.Translate(context.Background(), "ok boom", "fr_XX", "en_XX")
	require.Error(t, err)
	assert.Equal(t, errors.KindTranslationFailure, errors.KindOf(err))
}

func TestTranslateAll(t *testing.T) {
	m := newWordModel()
	b := NewBridge(m, m, 8)

	out, err := b.TranslateAll(context.Background(), []string{"one", "two three", ""}, "de_DE", "en_XX")
	require.NoError(t, err)
	assert.Equal(t, []string{"ONE", "TWO THREE", ""}, out)
}

func TestTranslateLines(t *testing.T) {
	m := newWordModel()
	b := NewBridge(m, m, 8)

	in := "# title\n\n** key ** point\n  \nlast"
	out, err := b.TranslateLines(context.Background(), in, "en_XX", "pl_PL")
	require.NoError(t, err)
	assert.Equal(t, "# TITLE\n\n**KEY**POINT\n\nLAST", out)
	assert.Equal(t, int32(3), m.encodes)
}

func TestFixBold(t *testing.T) {
	assert.Equal(t, "**bold**", FixBold("** bold **"))
	assert.Equal(t, "**bold**", FixBold("**bold**"))
	assert.Equal(t, "a**b**", FixBold("a  ** b **"))
	assert.Equal(t, "x\n\n**y**", FixBold("x\n\n** y **"))
}

// racyTokenizer counts Encode calls that observe a source language other
// than the one set for the same text.
type racyTokenizer struct {
	src string
	bad int32
}

func (r *racyTokenizer) SetSourceLanguage(lang string) { r.src = lang }

func (r *racyTokenizer) Encode(_ context.Context, text string) ([]int, error) {
	if r.src != text {
		atomic.AddInt32(&r.bad, 1)
	}
	return []int{len(text)}, nil
}

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, tokens []int, tgt string) (string, error) {
	return tgt, nil
}

func TestTranslateConcurrentSourceLanguage(t *testing.T) {
	tok := &racyTokenizer{}
	b := NewBridge(tok, echoGenerator{}, 4)

	langs := []string{"fr_XX", "de_DE", "pl_PL", "ru_RU"}
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(lang string) {
			defer wg.Done()
			// text equals the source language so Encode can check it
			_, err := b.Translate(context.Background(), lang, lang, "en_XX")
			assert.NoError(t, err)
		}(langs[i%len(langs)])
	}
	wg.Wait()

	assert.Equal(t, int32(0), atomic.LoadInt32(&tok.bad))
}

type plainTokenizer struct{}

func (plainTokenizer) SetSourceLanguage(string) {}

func (plainTokenizer) Encode(_ context.Context, text string) ([]int, error) {
	return []int{len(text)}, nil
}

// gatedGenerator parks generation for the "hold" target until release is
// closed.
type gatedGenerator struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gatedGenerator) Generate(_ context.Context, _ []int, tgt string) (string, error) {
	if tgt == "hold" {
		close(g.entered)
		<-g.release
	}
	return tgt, nil
}

func TestTranslateGenerationDoesNotHoldTokenizer(t *testing.T) {
	gen := &gatedGenerator{entered: make(chan struct{}), release: make(chan struct{})}
	b := NewBridge(plainTokenizer{}, gen, 4)
	ctx := context.Background()

	first := make(chan error, 1)
	go func() {
		_, err := b.Translate(ctx, "first", "fr_XX", "hold")
		first <- err
	}()
	<-gen.entered

	second := make(chan error, 1)
	go func() {
		_, err := b.Translate(ctx, "second", "de_DE", "en_XX")
		second <- err
	}()

	select {
	case err := <-second:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Error("translation waited for another caller's generation")
	}

	close(gen.release)
	assert.NoError(t, <-first)
}
