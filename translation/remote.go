package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// RemoteModel talks to a translation model server exposing /tokenize and
// /generate. It implements both Tokenizer and Generator. Like the model it
// fronts, it holds the source language between SetSourceLanguage and Encode,
// so it must only be shared through a Bridge.
type RemoteModel struct {
	baseURL    string
	httpClient *http.Client
	srcLang    string
}

type tokenizeRequest struct {
	Text    string `json:"text"`
	SrcLang string `json:"src_lang"`
}

type tokenizeResponse struct {
	InputIDs []int  `json:"input_ids"`
	Error    string `json:"error,omitempty"`
}

type generateRequest struct {
	InputIDs []int  `json:"input_ids"`
	TgtLang  string `json:"tgt_lang"`
}

type generateResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// NewRemoteModel creates a client for the model server at baseURL. A zero
// timeout leaves requests unbounded.
func NewRemoteModel(baseURL string, timeout time.Duration) *RemoteModel {
	return &RemoteModel{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (m *RemoteModel) SetSourceLanguage(lang string) {
	m.srcLang = lang
}

func (m *RemoteModel) Encode(ctx context.Context, text string) ([]int, error) {
	var resp tokenizeResponse
	if err := m.post(ctx, "/tokenize", tokenizeRequest{Text: text, SrcLang: m.srcLang}, &resp); err != nil {
		return nil, errors.Wrap(err, "tokenize")
	}
	if resp.Error != "" {
		return nil, errors.Errorf("tokenize: %s", resp.Error)
	}
	return resp.InputIDs, nil
}

func (m *RemoteModel) Generate(ctx context.Context, tokens []int, targetLang string) (string, error) {
	var resp generateResponse
	if err := m.post(ctx, "/generate", generateRequest{InputIDs: tokens, TgtLang: targetLang}, &resp); err != nil {
		return "", errors.Wrap(err, "generate")
	}
	if resp.Error != "" {
		return "", errors.Errorf("generate: %s", resp.Error)
	}
	return resp.Text, nil
}

func (m *RemoteModel) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to make request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("model server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}
