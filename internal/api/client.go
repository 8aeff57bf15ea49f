// Package api talks to the sentence backend: the title catalog, sentences by
// title, answer checking and the per-title audio clips.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"nounfill-go/internal/catalog"
	"nounfill-go/internal/config"
	"nounfill-go/internal/session"
)

const (
	endpointTitles   = "/all-titles"
	endpointSentence = "/get-sentence-by-title"
	endpointCheck    = "/check-answers"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d %s", e.Endpoint, e.Code, http.StatusText(e.Code))
}

type titlesResponse struct {
	Titles           []catalog.Record    `json:"titles"`
	CambridgeGroups  []string            `json:"cambridge_groups"`
	TestsByCambridge map[string][]string `json:"tests_by_cambridge"`
}

type sentenceResponse struct {
	Sentence  string `json:"sentence"`
	NounCount int    `json:"noun_count"`
	Title     string `json:"title"`
}

type checkRequest struct {
	Sentence string   `json:"sentence"`
	Answers  []string `json:"answers"`
}

type checkResponse struct {
	IsCorrect    bool     `json:"is_correct"`
	CorrectNouns []string `json:"correct_nouns"`
}

// Client is safe for concurrent use.
type Client struct {
	base       *url.URL
	apiPath    string
	audioPath  string
	httpClient *http.Client
	log        logrus.FieldLogger
}

func NewClient(cfg config.Backend, log logrus.FieldLogger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base:       base,
		apiPath:    cleanPrefix(cfg.APIPath),
		audioPath:  cleanPrefix(cfg.AudioPath),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}, nil
}

func cleanPrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + c.apiPath + path
	u.RawQuery = query.Encode()
	return u.String()
}

// AudioURL addresses a title's clip as <base>/audio/<title>.mp3.
func (c *Client) AudioURL(title string) string {
	u := *c.base
	u.Path = c.base.Path + c.audioPath + "/" + title + ".mp3"
	return u.String()
}

// Catalog fetches every title with its grouping metadata.
func (c *Client) Catalog(ctx context.Context) (*catalog.Index, error) {
	var resp titlesResponse
	if err := c.do(ctx, http.MethodGet, endpointTitles, c.endpoint(endpointTitles, nil), nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch titles: %w", err)
	}
	ix := catalog.NewIndex(resp.Titles, resp.CambridgeGroups, resp.TestsByCambridge)
	c.log.WithField("titles", ix.Len()).Info("catalog loaded")
	return ix, nil
}

// Sentence fetches the text and noun count of one title.
func (c *Client) Sentence(ctx context.Context, title string) (session.Sentence, error) {
	var resp sentenceResponse
	u := c.endpoint(endpointSentence, url.Values{"title": {title}})
	if err := c.do(ctx, http.MethodGet, endpointSentence, u, nil, &resp); err != nil {
		return session.Sentence{}, fmt.Errorf("fetch sentence %q: %w", title, err)
	}
	return session.Sentence{Title: resp.Title, Text: resp.Sentence, NounCount: resp.NounCount}, nil
}

// Check sends the answers for a sentence and returns the verdict.
func (c *Client) Check(ctx context.Context, sentence string, answers []string) (session.Verdict, error) {
	if answers == nil {
		answers = []string{}
	}
	body, err := json.Marshal(checkRequest{Sentence: sentence, Answers: answers})
	if err != nil {
		return session.Verdict{}, fmt.Errorf("encode answers: %w", err)
	}
	var resp checkResponse
	if err := c.do(ctx, http.MethodPost, endpointCheck, c.endpoint(endpointCheck, nil), body, &resp); err != nil {
		return session.Verdict{}, fmt.Errorf("check answers: %w", err)
	}
	return session.Verdict{IsCorrect: resp.IsCorrect, CorrectNouns: resp.CorrectNouns}, nil
}

// FetchAudio streams a title's clip into w.
func (c *Client) FetchAudio(ctx context.Context, title string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.AudioURL(title), nil)
	if err != nil {
		return fmt.Errorf("build audio request: %w", err)
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch audio %q: %w", title, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &StatusError{Endpoint: "audio", Code: res.StatusCode}
	}
	if _, err := io.Copy(w, res.Body); err != nil {
		return fmt.Errorf("read audio %q: %w", title, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, name, target string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	entry := c.log.WithFields(logrus.Fields{
		"endpoint":   name,
		"method":     method,
		"request_id": requestID,
	})
	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		entry.WithError(err).Warn("request failed")
		return err
	}
	defer res.Body.Close()
	entry = entry.WithFields(logrus.Fields{
		"status":   res.StatusCode,
		"duration": time.Since(start),
	})

	if res.StatusCode < 200 || res.StatusCode > 299 {
		entry.Warn("unexpected response status")
		return &StatusError{Endpoint: name, Code: res.StatusCode}
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		entry.WithError(err).Warn("decode response failed")
		return fmt.Errorf("decode %s response: %w", name, err)
	}
	entry.Debug("request completed")
	return nil
}
