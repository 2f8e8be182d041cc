// Package gateway forwards public requests to the scribe service and
// streams the responses back unchanged.
package gateway

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nijaru/skryba/middleware"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// maxErrorBody bounds how much of an upstream error body is relayed.
const maxErrorBody = 1 << 20

var forwardedHeaders = []string{"Content-Type", "Accept", middleware.RequestIDHeader}

type Forwarder struct {
	upstream *url.URL
	client   *http.Client
}

// NewForwarder targets the scribe service at upstream. Transcription can
// take arbitrarily long, so the client has no timeout.
func NewForwarder(upstream string) (*Forwarder, error) {
	u, err := url.Parse(upstream)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "invalid scribe service URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, pkgerrors.Errorf("scribe service URL %q must be absolute", upstream)
	}

	return &Forwarder{
		upstream: u,
		client:   &http.Client{},
	}, nil
}

func (f *Forwarder) target(r *http.Request) string {
	u := *f.upstream
	u.Path = strings.TrimRight(u.Path, "/") + r.URL.Path
	u.RawPath = ""
	u.RawQuery = r.URL.RawQuery
	return u.String()
}

func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context()).WithField("upstream", f.upstream.Host)

	req, err := http.NewRequestWithContext(r.Context(), r.Method, f.target(r), r.Body)
	if err != nil {
		logger.WithError(err).Error("Failed to build upstream request")
		respondJSON(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	req.ContentLength = r.ContentLength
	for _, h := range forwardedHeaders {
		if v := r.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}
	if id := middleware.GetRequestID(r.Context()); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		logger.WithError(err).Error("Scribe service unreachable")
		respondJSON(w, r, http.StatusBadGateway, "Scribe service unavailable")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(body),
		}).Warn("Scribe service returned an error")

		copyHeader(w, resp, "Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(resp.StatusCode)
		w.Write(body)
		return
	}

	copyHeader(w, resp, "Content-Type", "application/octet-stream")
	copyHeader(w, resp, "Content-Disposition", "")
	copyHeader(w, resp, "Content-Length", "")
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.WithError(err).Warn("Failed to relay scribe response")
	}
}

func copyHeader(w http.ResponseWriter, resp *http.Response, key, fallback string) {
	v := resp.Header.Get(key)
	if v == "" {
		v = fallback
	}
	if v != "" {
		w.Header().Set(key, v)
	}
}

// Routes registers the public scribe routes on a new mux.
func Routes(f *Forwarder) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("POST /scribe-file/{model}", f)
	mux.Handle("POST /scribe-file/{model}/.zip", f)
	mux.Handle("POST /scribe-url/{model}/.zip", f)
	mux.Handle("GET /jobs/{id}", f)
	mux.Handle("GET /jobs/{id}/.zip", f)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}
