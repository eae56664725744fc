package gemini

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronobooth/internal/domain"
)

type fakeText struct {
	reply string
	err   error
	model string
	parts []genai.Part
}

func (f *fakeText) GenerateText(_ context.Context, model string, parts ...genai.Part) (string, error) {
	f.model = model
	f.parts = parts
	return f.reply, f.err
}

func TestInventScenarioParsesFencedJSON(t *testing.T) {
	text := &fakeText{reply: "```json\n{\"name\":\"Pompeii\",\"description\":\"79 AD\",\"promptSuffix\":\"fleeing ash\"}\n```"}
	w := NewWriter(text, "", "")
	title, desc, directive, err := w.InventScenario(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Pompeii", title)
	assert.Equal(t, "79 AD", desc)
	assert.Equal(t, "fleeing ash", directive)
	assert.Equal(t, DefaultTextModel, text.model)
}

func TestInventScenarioRejectsMalformed(t *testing.T) {
	tests := map[string]*fakeText{
		"not json":         {reply: "a pirate ship, probably"},
		"missing suffix":   {reply: `{"name":"x","description":"y"}`},
		"transport error":  {err: errors.New("unavailable")},
		"empty completion": {reply: ""},
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, _, err := NewWriter(text, "", "").InventScenario(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestDescribeSceneSendsImage(t *testing.T) {
	text := &fakeText{reply: "Victorian, accurate."}
	w := NewWriter(text, "", "analysis-model")
	got, err := w.DescribeScene(context.Background(), []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "Victorian, accurate.", got)
	assert.Equal(t, "analysis-model", text.model)
	require.Len(t, text.parts, 2)
	blob, ok := text.parts[0].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", blob.MIMEType)

	text.reply = "  "
	got, err = w.DescribeScene(context.Background(), []byte("jpeg"), "")
	require.NoError(t, err)
	assert.Equal(t, emptyAnalysis, got)
}

func TestSyntheticGateway(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 90, 120))
	for i := range src.Pix {
		src.Pix[i] = 200
	}
	src.Set(0, 0, color.Black)
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, src, nil))

	s := NewSynthetic()
	ctx := context.Background()

	a, err := s.RenderSceneWithSubject(ctx, buf.Bytes(), "on a ship")
	require.NoError(t, err)
	b, err := s.RenderSceneWithSubject(ctx, buf.Bytes(), "on a ship")
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(a.Data))
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.Width)

	edited, err := s.ApplyEdit(ctx, a, "add rain")
	require.NoError(t, err)
	assert.NotEqual(t, a.Data, edited.Data)

	video, err := s.AnimateScene(ctx, edited, "on a ship")
	require.NoError(t, err)
	assert.Equal(t, "image/gif", video.MIME)
	anim, err := gif.DecodeAll(bytes.NewReader(video.Data))
	require.NoError(t, err)
	assert.Len(t, anim.Image, syntheticVideoFrames)
	assert.Equal(t, syntheticVideoWidth, anim.Config.Width)

	first, err := s.InventScenario(ctx)
	require.NoError(t, err)
	second, err := s.InventScenario(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.Title, second.Title)

	_, err = s.RenderSceneWithSubject(ctx, []byte("garbage"), "x")
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
}

func TestGatewayWrapsProviderFailure(t *testing.T) {
	g := NewGatewayFrom(nil, NewWriter(&fakeText{err: errors.New("down")}, "", ""))
	_, err := g.InventScenario(context.Background())
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
	_, err = g.DescribeScene(context.Background(), &domain.Media{Data: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
}
