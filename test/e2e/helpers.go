//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sourcebook-ai/sourcebook/internal/api/handlers"
	"github.com/sourcebook-ai/sourcebook/internal/repository"
	"github.com/sourcebook-ai/sourcebook/internal/server"
	"github.com/sourcebook-ai/sourcebook/internal/service"
	"github.com/sourcebook-ai/sourcebook/internal/testutil"
	"github.com/sourcebook-ai/sourcebook/internal/vectorstore"
)

// E2ETestEnv wires real Postgres-backed repositories and the real HTTP
// stack against deterministic fakes for the model and acquisition
// edges, so a full ingest-then-query round trip runs without network
// access or API keys.
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	Pool       *pgxpool.Pool
	Server     *httptest.Server
	HTTPClient *http.Client

	Resolver  *fakeResolver
	Completer *fakeCompleter
	Index     *vectorstore.Store
}

// SetupE2EEnv builds the full environment: container, migrated pool,
// in-memory vector index and an httptest server running the real
// router.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	sourceRepo := repository.NewSourceRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)

	index := vectorstore.NewInMemory(vectorstore.DefaultCollection)
	embedder := &bagOfWordsEmbedder{}
	completer := &fakeCompleter{answer: "I don't know."}
	resolver := &fakeResolver{pages: map[string]string{}}

	ingestSvc := service.NewIngestService(
		sourceRepo,
		resolver,
		wordTokenizer{},
		embedder,
		index,
		nil,
		service.IngestConfig{Chunk: service.DefaultChunkConfig()},
	)
	querySvc := service.NewQueryService(messageRepo, sourceRepo, embedder, completer, index)

	router := server.NewRouter(server.RouterConfig{
		IngestHandler:   handlers.NewIngestHandler(ingestSvc),
		QueryHandler:    handlers.NewQueryHandler(querySvc),
		SourcesHandler:  handlers.NewSourcesHandler(sourceRepo),
		MessagesHandler: handlers.NewMessagesHandler(messageRepo),
	})
	srv := httptest.NewServer(router)

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		Server:     srv,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Resolver:   resolver,
		Completer:  completer,
		Index:      index,
	}
}

// Cleanup releases all resources.
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// HTTPResponse carries the raw body so callers can decode either the
// envelope shape or the bare-array list shape.
type HTTPResponse struct {
	StatusCode int
	Body       []byte
}

// Get performs a GET request against the test server.
func (e *E2ETestEnv) Get(path string) *HTTPResponse {
	e.T.Helper()
	return e.doRequest(http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body.
func (e *E2ETestEnv) Post(path string, body interface{}) *HTTPResponse {
	e.T.Helper()
	return e.doRequest(http.MethodPost, path, body)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) *HTTPResponse {
	e.T.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.T.Fatalf("failed to marshal body: %v", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.Server.URL+path, reqBody)
	if err != nil {
		e.T.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("failed to read response body: %v", err)
	}

	return &HTTPResponse{StatusCode: resp.StatusCode, Body: respBody}
}

// DecodeData unpacks the {"success":true,"data":...} envelope into out.
func (e *E2ETestEnv) DecodeData(resp *HTTPResponse, out interface{}) {
	e.T.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		e.T.Fatalf("failed to decode envelope: %v\nbody: %s", err, resp.Body)
	}
	if !envelope.Success {
		e.T.Fatalf("expected success envelope, got: %s", resp.Body)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		e.T.Fatalf("failed to decode data: %v\nbody: %s", err, resp.Body)
	}
}

// wordTokenizer assigns each whitespace-separated word a stable id, so
// chunk windows rejoin into readable text.
type wordTokenizer struct{}

var wordVocab = struct {
	byWord map[string]int
	byID   []string
}{byWord: map[string]int{}}

func (wordTokenizer) Encode(text string) []int {
	words := strings.Fields(text)
	ids := make([]int, 0, len(words))
	for _, w := range words {
		id, ok := wordVocab.byWord[w]
		if !ok {
			id = len(wordVocab.byID)
			wordVocab.byWord[w] = id
			wordVocab.byID = append(wordVocab.byID, w)
		}
		ids = append(ids, id)
	}
	return ids
}

func (wordTokenizer) Decode(tokens []int) string {
	words := make([]string, len(tokens))
	for i, id := range tokens {
		words[i] = wordVocab.byID[id]
	}
	return strings.Join(words, " ")
}

const embeddingDim = 64

// bagOfWordsEmbedder maps text to a normalized hashed bag-of-words
// vector. Texts sharing words land close together, which is enough
// signal for retrieval ranking in these tests.
type bagOfWordsEmbedder struct{}

func embedText(text string) []float32 {
	vec := make([]float32, embeddingDim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:\"'")
		if w == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%embeddingDim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func (bagOfWordsEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return embedText(text), nil
}

func (bagOfWordsEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = embedText(t)
	}
	return out, nil
}

// fakeCompleter records the last prompt and answers from the sources
// block: if any source line contains a token of the question beyond
// stop words it returns that line, otherwise the refusal answer.
type fakeCompleter struct {
	answer          string
	LastInstruction string
	LastPrompt      string
}

func (c *fakeCompleter) GenerateAnswer(ctx context.Context, instruction, prompt string) (string, error) {
	c.LastInstruction = instruction
	c.LastPrompt = prompt

	if strings.Contains(prompt, "Sources:\n\n") || !strings.Contains(prompt, "SOURCE ") {
		return c.answer, nil
	}

	// Echo the first source body line as the grounded answer.
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "SOURCE ") || strings.HasPrefix(line, "Question:") || line == "Sources:" {
			continue
		}
		return line, nil
	}
	return c.answer, nil
}

// fakeResolver serves registered pages and fails for everything else,
// standing in for the whole acquisition chain.
type fakeResolver struct {
	pages map[string]string
}

func (r *fakeResolver) Register(url, text string) {
	r.pages[url] = text
}

func (r *fakeResolver) Resolve(ctx context.Context, url string) (string, error) {
	text, ok := r.pages[url]
	if !ok {
		return "", fmt.Errorf("no strategy could fetch %s", url)
	}
	return text, nil
}
