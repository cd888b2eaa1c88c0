package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchbot/researchbot/internal/adapters/driven/resilience"
	"github.com/researchbot/researchbot/internal/core/domain"
)

type fakeAPI struct {
	batches [][]string
	err     error
	short   bool
	infoErr error
	closed  bool
}

func (f *fakeAPI) embedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.batches = append(f.batches, texts)
	if f.err != nil {
		return nil, f.err
	}
	n := len(texts)
	if f.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

func (f *fakeAPI) info(context.Context) error { return f.infoErr }

func (f *fakeAPI) close() error {
	f.closed = true
	return nil
}

func newTestService(api embedAPI) *EmbeddingService {
	return newEmbeddingService(api, Config{RequestsPerMinute: 60000})
}

func TestNewEmbeddingService_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingService(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestDefaults(t *testing.T) {
	svc := newTestService(&fakeAPI{})
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
}

func TestEmbedBatch_SplitsLargeInputs(t *testing.T) {
	api := &fakeAPI{}
	svc := newTestService(api)

	texts := make([]string, 250)
	for i := range texts {
		texts[i] = "text"
	}

	vectors, err := svc.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vectors, 250)
	require.Len(t, api.batches, 3)
	assert.Len(t, api.batches[0], 100)
	assert.Len(t, api.batches[2], 50)
}

func TestEmbed(t *testing.T) {
	svc := newTestService(&fakeAPI{})
	v, err := svc.Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 1}, v)
}

func TestEmbedBatch_Errors(t *testing.T) {
	cause := errors.New("quota exceeded")

	_, err := newTestService(&fakeAPI{err: cause}).EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, cause)

	_, err = newTestService(&fakeAPI{short: true}).EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorContains(t, err, "got 1 embeddings for 2 inputs")
}

func TestEmbedBatch_BreakerOpens(t *testing.T) {
	api := &fakeAPI{err: errors.New("503")}
	svc := newTestService(api)

	for range 3 {
		_, _ = svc.Embed(context.Background(), "a")
	}
	_, err := svc.Embed(context.Background(), "a")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Len(t, api.batches, 3)
}

func TestPingAndClose(t *testing.T) {
	api := &fakeAPI{infoErr: errors.New("permission denied")}
	svc := newTestService(api)

	assert.ErrorContains(t, svc.Ping(context.Background()), "permission denied")
	require.NoError(t, svc.Close())
	assert.True(t, api.closed)
}
