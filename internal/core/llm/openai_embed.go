package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"

	"github.com/markdave123-py/askflow/internal/core"
)

const (
	DefaultOpenAIModel      = "text-embedding-3-small"
	DefaultEmbeddingDim     = 1536
	DefaultAzureAPIVersion  = "2023-05-15"
	maxOpenAIBatch          = 2048
	ProviderNameOpenAI      = "openai"
	ProviderNameAzureOpenAI = "azure"
)

var errNoInput = errors.New("no texts provided")

// OpenAIEmbedder calls the embeddings endpoint of OpenAI or an Azure OpenAI deployment.
type OpenAIEmbedder struct {
	client         openai.Client
	name           string
	model          string
	dimension      int
	sendDimensions bool
}

type embedderOptions struct {
	model      string
	dimension  int
	maxRetries int
	timeout    time.Duration
	baseURL    string
}

// EmbedderOption overrides an embedder default.
type EmbedderOption func(*embedderOptions)

func WithEmbeddingModel(model string) EmbedderOption {
	return func(o *embedderOptions) {
		if model != "" {
			o.model = model
		}
	}
}

func WithEmbeddingDimension(dimension int) EmbedderOption {
	return func(o *embedderOptions) {
		if dimension > 0 {
			o.dimension = dimension
		}
	}
}

// WithMaxRetries sets how often the client retries 429 and 5xx responses.
func WithMaxRetries(n int) EmbedderOption {
	return func(o *embedderOptions) { o.maxRetries = n }
}

func WithRequestTimeout(d time.Duration) EmbedderOption {
	return func(o *embedderOptions) { o.timeout = d }
}

// WithBaseURL points the OpenAI client at a compatible server.
func WithBaseURL(url string) EmbedderOption {
	return func(o *embedderOptions) { o.baseURL = url }
}

func defaultEmbedderOptions() embedderOptions {
	return embedderOptions{
		model:      DefaultOpenAIModel,
		dimension:  DefaultEmbeddingDim,
		maxRetries: 2,
	}
}

func (o embedderOptions) requestOptions() []option.RequestOption {
	ro := []option.RequestOption{option.WithMaxRetries(o.maxRetries)}
	if o.timeout > 0 {
		ro = append(ro, option.WithRequestTimeout(o.timeout))
	}
	return ro
}

// NewOpenAIEmbedder builds an embedder for api.openai.com.
func NewOpenAIEmbedder(apiKey string, opts ...EmbedderOption) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	o := defaultEmbedderOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ro := append([]option.RequestOption{option.WithAPIKey(apiKey)}, o.requestOptions()...)
	if o.baseURL != "" {
		ro = append(ro, option.WithBaseURL(o.baseURL))
	}

	return &OpenAIEmbedder{
		client:    openai.NewClient(ro...),
		name:      ProviderNameOpenAI,
		model:     o.model,
		dimension: o.dimension,
		// Only the text-embedding-3 family accepts a dimensions parameter.
		sendDimensions: strings.HasPrefix(o.model, "text-embedding-3"),
	}, nil
}

// NewAzureEmbedder builds an embedder for an Azure OpenAI resource.
// The deployment name is sent as the model and routed by the azure middleware.
func NewAzureEmbedder(endpoint, apiKey, apiVersion, deployment string, opts ...EmbedderOption) (*OpenAIEmbedder, error) {
	switch {
	case endpoint == "":
		return nil, errors.New("azure: endpoint is required")
	case apiKey == "":
		return nil, errors.New("azure: api key is required")
	case deployment == "":
		return nil, errors.New("azure: deployment is required")
	}
	if apiVersion == "" {
		apiVersion = DefaultAzureAPIVersion
	}

	o := defaultEmbedderOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ro := append([]option.RequestOption{
		azure.WithEndpoint(endpoint, apiVersion),
		azure.WithAPIKey(apiKey),
	}, o.requestOptions()...)

	return &OpenAIEmbedder{
		client:    openai.NewClient(ro...),
		name:      ProviderNameAzureOpenAI,
		model:     deployment,
		dimension: o.dimension,
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedTexts sends texts in one request and returns vectors in input order.
// Line breaks are replaced by spaces first; blank inputs are rejected without a request.
func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, e.fail(errNoInput)
	}
	if len(texts) > maxOpenAIBatch {
		return nil, e.fail(fmt.Errorf("batch of %d exceeds maximum of %d", len(texts), maxOpenAIBatch))
	}

	inputs, err := normalizeInputs(texts)
	if err != nil {
		return nil, e.fail(err)
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
	}
	if len(inputs) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{OfString: openai.String(inputs[0])}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs}
	}
	if e.sendDimensions && e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, e.fail(err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, e.fail(fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(inputs)))
	}

	out := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, e.fail(fmt.Errorf("embedding index %d out of range", d.Index))
		}
		vec := make([]float32, len(d.Embedding))
		for k, v := range d.Embedding {
			vec[k] = float32(v)
		}
		out[d.Index] = vec
	}
	for k := range out {
		if out[k] == nil {
			return nil, e.fail(fmt.Errorf("missing embedding for input %d", k))
		}
	}
	return out, nil
}

func (e *OpenAIEmbedder) fail(err error) error {
	return &core.EmbeddingError{Provider: e.name, ChunkIndex: -1, Err: err}
}

func (e *OpenAIEmbedder) Dimension() int { return e.dimension }
func (e *OpenAIEmbedder) Name() string   { return e.name }

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func normalizeInput(text string) string {
	return lineBreaks.Replace(text)
}

// normalizeInputs normalizes every text and fails on the first one that is blank.
func normalizeInputs(texts []string) ([]string, error) {
	out := make([]string, len(texts))
	for k, t := range texts {
		out[k] = normalizeInput(t)
		if strings.TrimSpace(out[k]) == "" {
			return nil, fmt.Errorf("input %d: %w", k, errNoInput)
		}
	}
	return out, nil
}

var _ core.EmbeddingProvider = (*OpenAIEmbedder)(nil)
