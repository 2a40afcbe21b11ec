package llmclient

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"legal-rag/config"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// Embedding request/response mirror llama.cpp's expected schema
type embeddingRequest struct {
	Content string `json:"content"`
}

type embeddingResponse []struct {
	Embedding [][]float32 `json:"embedding"`
}

// EmbeddingClient maps text to fixed-dimension vectors. Repeated content is
// served out of an LRU keyed by content hash, which matters during
// ingestion where overlapping chunks share sentences.
type EmbeddingClient struct {
	cfg        *config.Config
	httpClient *http.Client
	cache      *lru.Cache
	logger     *zap.Logger
}

func NewEmbeddingClient(cfg *config.Config, logger *zap.Logger) (*EmbeddingClient, error) {
	size := cfg.EmbeddingCacheSize
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &EmbeddingClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.LLMRequestTimeout},
		cache:      cache,
		logger:     logger,
	}, nil
}

// Dimension is the vector length this client is configured for.
func (e *EmbeddingClient) Dimension() int {
	return e.cfg.EmbeddingDimension
}

// Encode embeds each text in order. All vectors share the configured
// dimension; a server returning anything else is an error.
func (e *EmbeddingClient) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.embedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// VerifyDimension embeds a probe string and checks the result against the
// configured dimension. Called once at startup; a mismatch is fatal.
func (e *EmbeddingClient) VerifyDimension(ctx context.Context) error {
	vec, err := e.embedOne(ctx, "dimension probe")
	if err != nil {
		return fmt.Errorf("probe embedding server: %w", err)
	}
	if len(vec) != e.cfg.EmbeddingDimension {
		return fmt.Errorf("embedding server returned dimension %d, index configured for %d",
			len(vec), e.cfg.EmbeddingDimension)
	}
	return nil
}

func (e *EmbeddingClient) embedOne(ctx context.Context, text string) ([]float32, error) {
	key := hashContent(text)
	if cached, ok := e.cache.Get(key); ok {
		if vec, ok := cached.([]float32); ok {
			return vec, nil
		}
	}

	reqBody := embeddingRequest{Content: text}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/embeddings", strings.TrimRight(e.cfg.EmbeddingLLMHost, "/"))
	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, fmt.Errorf("create embedding request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		r, err := e.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if r.StatusCode == http.StatusServiceUnavailable {
			io.Copy(io.Discard, r.Body)
			r.Body.Close()
			e.logger.Warn("Embedding model loading, retrying")
			e.backoffSleep(attempt)
			continue
		}

		resp = r
		break
	}
	if resp == nil {
		return nil, fmt.Errorf("no response from embedding server: %w", lastErr)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding server status %s: %s", resp.Status, string(bodyBytes))
	}

	var er embeddingResponse
	if err := json.Unmarshal(bodyBytes, &er); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(er) == 0 || len(er[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedding response was empty")
	}
	vec := er[0].Embedding[0]
	e.cache.Add(key, vec)
	return vec, nil
}

func (e *EmbeddingClient) backoffSleep(attempt int) {
	c := &Client{cfg: e.cfg, logger: e.logger}
	c.backoffSleep(attempt)
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
