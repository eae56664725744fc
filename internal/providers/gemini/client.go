package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chronobooth/internal/infra"
)

const (
	DefaultBaseURL        = "https://generativelanguage.googleapis.com/v1beta"
	DefaultImageModel     = "gemini-2.5-flash-image"
	DefaultVideoModel     = "veo-3.1-fast-generate-preview"
	DefaultPollInterval   = 5 * time.Second
	DefaultMaxPolls       = 60
	defaultVideoAspect    = "9:16"
	defaultVideoQuality   = "720p"
	defaultRequestTimeout = 120 * time.Second
)

var (
	// ErrNoImage is returned when a response carries no image part.
	ErrNoImage = errors.New("gemini: no image generated")
	// ErrNoVideo is returned when a finished operation has no video URI.
	ErrNoVideo = errors.New("gemini: video generation completed without a video")
	// ErrPollExhausted is returned when the operation is still running after
	// the configured number of polls.
	ErrPollExhausted = errors.New("gemini: video operation did not finish in time")
)

// Options controls how the REST client is configured.
type Options struct {
	APIKey       string
	VideoAPIKey  string
	BaseURL      string
	ImageModel   string
	VideoModel   string
	PollInterval time.Duration
	MaxPolls     int
	HTTPClient   *http.Client
	Logger       *infra.Logger
}

// Client calls the generateContent and predictLongRunning endpoints directly
// for the image and video models.
type Client struct {
	apiKey       string
	videoKey     string
	baseURL      string
	imageModel   string
	videoModel   string
	pollInterval time.Duration
	maxPolls     int
	httpClient   *http.Client
	logger       *infra.Logger
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	FileData   *geminiFileData   `json:"fileData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type geminiGenerationConfig struct {
	CandidateCount     int      `json:"candidateCount,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

type veoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type veoInstance struct {
	Prompt string    `json:"prompt"`
	Image  *veoImage `json:"image,omitempty"`
}

type veoParameters struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	SampleCount int    `json:"sampleCount,omitempty"`
}

type veoRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParameters `json:"parameters"`
}

type veoOperation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClient constructs a client with sane defaults. Callers may provide a nil
// HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	maxPolls := opts.MaxPolls
	if maxPolls <= 0 {
		maxPolls = DefaultMaxPolls
	}

	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		videoKey:     strings.TrimSpace(opts.VideoAPIKey),
		baseURL:      baseURL,
		imageModel:   coalesce(opts.ImageModel, DefaultImageModel),
		videoModel:   coalesce(opts.VideoModel, DefaultVideoModel),
		pollInterval: interval,
		maxPolls:     maxPolls,
		httpClient:   client,
		logger:       logger,
	}, nil
}

// VideoKeyAvailable reports whether a billable key for the video model is set.
func (c *Client) VideoKeyAvailable() bool {
	return c.videoKey != ""
}

// RenderScene places the subject of framed into the scene described by
// directive.
func (c *Client) RenderScene(ctx context.Context, framed []byte, directive string) ([]byte, string, error) {
	return c.generateImage(ctx, framed, "image/jpeg", buildRenderPrompt(directive))
}

// ApplyEdit applies a free-text instruction to a previous result.
func (c *Client) ApplyEdit(ctx context.Context, img []byte, mime, instruction string) ([]byte, string, error) {
	return c.generateImage(ctx, img, coalesce(mime, "image/jpeg"), buildEditPrompt(instruction))
}

func (c *Client) generateImage(ctx context.Context, img []byte, mime, prompt string) ([]byte, string, error) {
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{InlineData: &geminiInlineData{MimeType: mime, Data: base64.StdEncoding.EncodeToString(img)}},
				{Text: prompt},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	}

	var response geminiGenerateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", c.imageModel)
	if err := c.invokeGemini(ctx, http.MethodPost, path, c.apiKey, payload, &response); err != nil {
		return nil, "", err
	}

	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, "", fmt.Errorf("decode inline data: %w", err)
			}
			c.logger.Debug().
				Str("model", c.imageModel).
				Int("bytes", len(data)).
				Msg("gemini: received image part")
			return data, coalesce(part.InlineData.MimeType, "image/png"), nil
		}
	}
	return nil, "", ErrNoImage
}

// AnimateScene starts a video generation seeded by img and polls the
// long-running operation until it finishes, the poll budget runs out or ctx
// is cancelled.
func (c *Client) AnimateScene(ctx context.Context, img []byte, mime, directive string) ([]byte, string, error) {
	if c.videoKey == "" {
		return nil, "", errors.New("gemini: video api key not configured")
	}
	payload := veoRequest{
		Instances: []veoInstance{{
			Prompt: buildVideoPrompt(directive),
			Image: &veoImage{
				BytesBase64Encoded: base64.StdEncoding.EncodeToString(img),
				MimeType:           coalesce(mime, "image/jpeg"),
			},
		}},
		Parameters: veoParameters{AspectRatio: defaultVideoAspect, Resolution: defaultVideoQuality, SampleCount: 1},
	}

	var op veoOperation
	path := fmt.Sprintf("/models/%s:predictLongRunning", c.videoModel)
	if err := c.invokeGemini(ctx, http.MethodPost, path, c.videoKey, payload, &op); err != nil {
		return nil, "", err
	}
	if op.Name == "" && !op.Done {
		return nil, "", errors.New("gemini: operation name missing")
	}

	for polls := 0; !op.Done; polls++ {
		if polls >= c.maxPolls {
			return nil, "", ErrPollExhausted
		}
		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, "", ctx.Err()
		case <-timer.C:
		}
		name := op.Name
		op = veoOperation{}
		if err := c.invokeGemini(ctx, http.MethodGet, "/"+strings.TrimLeft(name, "/"), c.videoKey, nil, &op); err != nil {
			return nil, "", err
		}
		if op.Name == "" {
			op.Name = name
		}
		c.logger.Debug().
			Str("operation", name).
			Int("poll", polls+1).
			Bool("done", op.Done).
			Msg("gemini: polled video operation")
	}

	if op.Error != nil && op.Error.Message != "" {
		return nil, "", fmt.Errorf("gemini: video operation failed: %s", op.Error.Message)
	}
	if op.Response == nil || len(op.Response.GenerateVideoResponse.GeneratedSamples) == 0 {
		return nil, "", ErrNoVideo
	}
	uri := op.Response.GenerateVideoResponse.GeneratedSamples[0].Video.URI
	if uri == "" {
		return nil, "", ErrNoVideo
	}
	data, contentType, err := c.downloadFile(ctx, uri, c.videoKey)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", ErrNoVideo
	}
	return data, coalesce(contentType, "video/mp4"), nil
}

func (c *Client) invokeGemini(ctx context.Context, method, path, key string, payload any, out any) error {
	endpoint := strings.TrimRight(c.baseURL, "/") + path
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	if key != "" {
		q.Set("key", key)
	}
	req.URL.RawQuery = q.Encode()
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func (c *Client) downloadFile(ctx context.Context, uri, key string) ([]byte, string, error) {
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	if key != "" {
		q := req.URL.Query()
		q.Set("key", key)
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("download file status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	return blob, resp.Header.Get("Content-Type"), nil
}
