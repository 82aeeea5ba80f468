// Package genclient calls the Gemini API to turn an assembled prompt (and an
// optional reference PDF) into a proposal draft.
package genclient

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	genai "google.golang.org/genai"

	"grantdraft/internal/credential"
	"grantdraft/internal/ingest"
	"grantdraft/internal/proposal"
)

const (
	Model                  = "gemini-2.5-flash"
	Temperature    float32 = 0.7
	ThinkingBudget int32   = 4096

	// FallbackText replaces an empty model answer so callers never see "".
	FallbackText = "생성된 내용이 없습니다."

	defaultClientCacheSize = 16
)

var (
	// ErrCredentialMissing is a precondition failure: no request was built.
	ErrCredentialMissing = errors.New("genclient: credential is missing")
	// ErrGenerationFailed wraps every transport, auth and API error.
	ErrGenerationFailed = errors.New("genclient: generation failed")
)

// Generator produces a markdown draft from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, cred credential.Credential, file *proposal.AttachedFile) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string, cred credential.Credential, file *proposal.AttachedFile) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, cred credential.Credential, file *proposal.AttachedFile) (string, error) {
	return f(ctx, prompt, cred, file)
}

// Options configures GeminiClient. Zero values use the SDK defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Timeout bounds one call; zero means no deadline beyond the caller's.
	Timeout   time.Duration
	CacheSize int
}

// GeminiClient is a thin wrapper around the official genai client. SDK
// clients are built per credential and kept in a small LRU so a key change
// takes effect on the next call.
type GeminiClient struct {
	opts    Options
	mu      sync.Mutex
	clients *lru.Cache[string, *genai.Client]
}

func NewGeminiClient(opts Options) (*GeminiClient, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = defaultClientCacheSize
	}
	cache, err := lru.New[string, *genai.Client](size)
	if err != nil {
		return nil, err
	}
	return &GeminiClient{opts: opts, clients: cache}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + Model }

// Generate sends the prompt as the first part and the attachment, if any, as
// an inline second part.
func (g *GeminiClient) Generate(ctx context.Context, prompt string, cred credential.Credential, file *proposal.AttachedFile) (string, error) {
	if cred.Empty() {
		return "", ErrCredentialMissing
	}
	contents, err := BuildContents(prompt, file)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	cli, err := g.client(ctx, cred)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	resp, err := cli.Models.GenerateContent(ctx, Model, contents, GenerationConfig())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	text := ExtractText(resp)
	if strings.TrimSpace(text) == "" {
		return FallbackText, nil
	}
	return text, nil
}

func (g *GeminiClient) client(ctx context.Context, cred credential.Credential) (*genai.Client, error) {
	sum := sha256.Sum256([]byte(cred.Secret()))
	key := string(sum[:])

	g.mu.Lock()
	defer g.mu.Unlock()
	if cli, ok := g.clients.Get(key); ok {
		return cli, nil
	}
	cfg := &genai.ClientConfig{
		APIKey:     cred.Secret(),
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.opts.HTTPClient,
	}
	if g.opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.opts.BaseURL}
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	g.clients.Add(key, cli)
	return cli, nil
}

// BuildContents lays out the request: text first, then the optional inline
// document.
func BuildContents(prompt string, file *proposal.AttachedFile) ([]*genai.Content, error) {
	parts := []*genai.Part{{Text: prompt}}
	if file != nil {
		data, err := ingest.Decode(file)
		if err != nil {
			return nil, fmt.Errorf("decode attachment %q: %w", file.Name, err)
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: file.MimeType, Data: data},
		})
	}
	return []*genai.Content{{Role: "user", Parts: parts}}, nil
}

// GenerationConfig returns the fixed sampling parameters.
func GenerationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature: genai.Ptr(Temperature),
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(ThinkingBudget),
		},
	}
}

// ExtractText joins the visible text parts of the first candidate. Thought
// summaries are skipped.
func ExtractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		if p == nil || p.Thought || p.Text == "" {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// IsAuthError reports whether err looks like a rejected or unauthorized API
// key, which callers answer by asking for a new credential.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCredentialMissing) {
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return isAuthAPIError(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return isAuthAPIError(*apiErrPtr)
	}
	return mentionsInvalidKey(err.Error())
}

func isAuthAPIError(e genai.APIError) bool {
	switch e.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	switch strings.ToUpper(e.Status) {
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return true
	}
	return mentionsInvalidKey(e.Message) || mentionsInvalidKey(fmt.Sprint(e.Details))
}

func mentionsInvalidKey(s string) bool {
	return strings.Contains(s, "API_KEY_INVALID") || strings.Contains(strings.ToLower(s), "api key not valid")
}
