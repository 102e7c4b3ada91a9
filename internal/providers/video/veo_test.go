package video

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediagen/internal/domain"
	"mediagen/internal/providers/genai"
)

const opName = "models/veo-3.0-generate-preview/operations/op-42"

type fakeOperations struct {
	mu sync.Mutex

	start    *genai.Operation
	startErr error
	polls    []*genai.Operation
	pollErr  error
	media    []byte
	fetchErr error
	body     io.ReadCloser

	polled    []string
	fetched   []string
	pollsSeen int
}

func (f *fakeOperations) StartVideo(ctx context.Context, prompt string) (*genai.Operation, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.start, nil
}

func (f *fakeOperations) GetOperation(ctx context.Context, name string) (*genai.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polled = append(f.polled, name)
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	if len(f.fetched) > 0 {
		panic("poll after fetch")
	}
	idx := f.pollsSeen
	f.pollsSeen++
	if idx >= len(f.polls) {
		return &genai.Operation{Name: name}, nil
	}
	return f.polls[idx], nil
}

func (f *fakeOperations) Download(ctx context.Context, uri string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, uri)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.body != nil {
		return f.body, nil
	}
	return io.NopCloser(bytes.NewReader(f.media)), nil
}

func running() *genai.Operation {
	return &genai.Operation{Name: opName}
}

func finished(uri string) *genai.Operation {
	op := &genai.Operation{Name: opName, Done: true, Response: &genai.VideoResponse{}}
	sample := genai.GeneratedSample{}
	sample.Video.URI = uri
	op.Response.GenerateVideoResponse.GeneratedSamples = []genai.GeneratedSample{sample}
	return op
}

func fastPolicy() PollPolicy {
	return PollPolicy{Interval: time.Millisecond, Multiplier: 1, MaxWait: time.Minute}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }
func (failingReader) Close() error { return nil }

type clientTimeout struct{}

func (clientTimeout) Error() string { return "net/http: request canceled (Client.Timeout exceeded while reading body)" }
func (clientTimeout) Timeout() bool { return true }
func (clientTimeout) Temporary() bool { return true }

type timeoutReader struct{}

func (timeoutReader) Read([]byte) (int, error) { return 0, clientTimeout{} }
func (timeoutReader) Close() error { return nil }

func TestVeoGenerateSuccess(t *testing.T) {
	media := []byte{0x00, 0x01, 0xfe, 0xff, 'm', 'p', '4'}
	fake := &fakeOperations{
		start: running(),
		polls: []*genai.Operation{running(), running(), finished("https://files.example.com/v.mp4")},
		media: media,
	}

	res, err := NewVeo(fake, fastPolicy()).Generate(context.Background(), "waves at dusk")
	require.NoError(t, err)

	assert.Equal(t, []string{opName, opName, opName}, fake.polled)
	assert.Equal(t, []string{"https://files.example.com/v.mp4"}, fake.fetched)
	assert.Equal(t, domain.ModalityVideo, res.MediaKind)
	assert.Equal(t, "video/mp4", res.MIMEType)

	decoded, err := base64.StdEncoding.DecodeString(res.EncodedPayload)
	require.NoError(t, err)
	assert.Equal(t, media, decoded)
}

func TestVeoStartAlreadyDone(t *testing.T) {
	fake := &fakeOperations{start: finished("https://files.example.com/v.mp4"), media: []byte("abc")}

	res, err := NewVeo(fake, fastPolicy()).Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, fake.polled)
	assert.Equal(t, "YWJj", res.EncodedPayload)
}

func TestVeoEmbeddedErrorSkipsFetch(t *testing.T) {
	failed := &genai.Operation{Name: opName, Done: true, Error: []byte(`{"code":3,"message":"unsafe prompt"}`)}
	fake := &fakeOperations{start: running(), polls: []*genai.Operation{running(), failed}}

	_, err := NewVeo(fake, fastPolicy()).Generate(context.Background(), "x")
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindUpstreamJob, de.Kind)
	assert.Equal(t, domain.StagePoll, de.Stage)
	assert.Equal(t, domain.CodeVideoJobFailed, de.Code)
	assert.JSONEq(t, `{"code":3,"message":"unsafe prompt"}`, string(de.Detail))
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus())
	assert.Empty(t, fake.fetched)
	assert.Len(t, fake.polled, 2)
}

func TestVeoDoneWithoutVideo(t *testing.T) {
	fake := &fakeOperations{start: running(), polls: []*genai.Operation{{Name: opName, Done: true}}}

	_, err := NewVeo(fake, fastPolicy()).Generate(context.Background(), "x")
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindUpstreamShape, de.Kind)
	assert.Equal(t, domain.StageFetch, de.Stage)
	assert.Equal(t, domain.CodeVideoUnavailable, de.Code)
	assert.Empty(t, fake.fetched)
}

func TestVeoStartFailures(t *testing.T) {
	t.Run("http rejection", func(t *testing.T) {
		fake := &fakeOperations{startErr: &genai.StatusError{Op: "start video", StatusCode: http.StatusBadRequest, Body: []byte(`{"error":{"message":"bad prompt"}}`)}}
		_, err := NewVeo(fake, fastPolicy()).Generate(context.Background(), "x")
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, domain.StageDispatchStart, de.Stage)
		assert.Equal(t, domain.CodeVideoStartFailed, de.Code)
		assert.Equal(t, http.StatusBadRequest, de.HTTPStatus())
		assert.JSONEq(t, `{"error":{"message":"bad prompt"}}`, string(de.Detail))
		assert.Empty(t, fake.polled)
	})

	t.Run("missing operation name", func(t *testing.T) {
		fake := &fakeOperations{start: &genai.Operation{}}
		_, err := NewVeo(fake, fastPolicy()).Generate(context.Background(), "x")
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, domain.KindUpstreamShape, de.Kind)
		assert.Equal(t, domain.StageDispatchStart, de.Stage)
		assert.Empty(t, fake.polled)
	})
}

func TestVeoPollFailure(t *testing.T) {
	fake := &fakeOperations{
		start:   running(),
		pollErr: &genai.StatusError{Op: "get operation", StatusCode: http.StatusNotFound, Body: []byte("not found")},
	}

	_, err := NewVeo(fake, fastPolicy()).Generate(context.Background(), "x")
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindUpstreamTransport, de.Kind)
	assert.Equal(t, domain.StagePoll, de.Stage)
	assert.Equal(t, domain.CodeVideoPollFailed, de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus())
	assert.JSONEq(t, `"not found"`, string(de.Detail))
	assert.Len(t, fake.polled, 1)
	assert.Empty(t, fake.fetched)
}

func TestVeoFetchFailures(t *testing.T) {
	t.Run("download rejected", func(t *testing.T) {
		fake := &fakeOperations{
			start:    finished("https://files.example.com/v.mp4"),
			fetchErr: &genai.StatusError{Op: "download", StatusCode: http.StatusForbidden},
		}
		_, err := NewVeo(fake, fastPolicy()).Generate(context.Background(), "x")
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, domain.StageFetch, de.Stage)
		assert.Equal(t, domain.CodeVideoFetchFailed, de.Code)
		assert.Equal(t, http.StatusForbidden, de.HTTPStatus())
	})

	t.Run("stream breaks while encoding", func(t *testing.T) {
		fake := &fakeOperations{start: finished("https://files.example.com/v.mp4"), body: failingReader{}}
		_, err := NewVeo(fake, fastPolicy()).Generate(context.Background(), "x")
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, domain.StageEncode, de.Stage)
		assert.Equal(t, domain.CodeVideoEncodeFailed, de.Code)
		assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus())
	})

	t.Run("client timeout while reading body", func(t *testing.T) {
		fake := &fakeOperations{start: finished("https://files.example.com/v.mp4"), body: timeoutReader{}}
		_, err := NewVeo(fake, fastPolicy()).Generate(context.Background(), "x")
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, domain.KindTimeout, de.Kind)
		assert.Equal(t, domain.StageEncode, de.Stage)
		assert.Equal(t, domain.CodeUpstreamTimeout, de.Code)
		assert.Equal(t, http.StatusGatewayTimeout, de.HTTPStatus())
	})
}

func TestVeoMaxWaitExceeded(t *testing.T) {
	fake := &fakeOperations{start: running()}
	policy := PollPolicy{Interval: 5 * time.Millisecond, Multiplier: 1, MaxWait: 30 * time.Millisecond}

	_, err := NewVeo(fake, policy).Generate(context.Background(), "x")
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindTimeout, de.Kind)
	assert.Equal(t, domain.StagePoll, de.Stage)
	assert.Equal(t, domain.CodeVideoTimeout, de.Code)
	assert.Equal(t, http.StatusGatewayTimeout, de.HTTPStatus())
	assert.NotEmpty(t, fake.polled)
	assert.Empty(t, fake.fetched)
}

func TestVeoCancelledWhileWaiting(t *testing.T) {
	fake := &fakeOperations{start: running()}
	policy := PollPolicy{Interval: time.Hour, Multiplier: 1}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)
	go func() {
		_, err := NewVeo(fake, policy).Generate(ctx, "x")
		done <- err
	}()

	select {
	case err := <-done:
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, domain.KindCancelled, de.Kind)
		assert.Equal(t, domain.StagePoll, de.Stage)
		assert.Equal(t, domain.StatusClientClosedRequest, de.HTTPStatus())
	case <-time.After(5 * time.Second):
		t.Fatal("Generate did not observe cancellation")
	}
	assert.Empty(t, fake.polled)
}

func TestJobIgnoresReportsAfterTerminal(t *testing.T) {
	job := newJob(opName, time.Now())
	job.observe(finished("https://files.example.com/a.mp4"))
	require.Equal(t, JobDone, job.State)

	job.observe(&genai.Operation{Name: opName, Done: true, Error: []byte(`{"message":"late"}`)})
	assert.Equal(t, JobDone, job.State)
	assert.Equal(t, "https://files.example.com/a.mp4", job.ArtifactURI)

	failed := newJob(opName, time.Now())
	first := failed.fail(&domain.Error{Kind: domain.KindTimeout})
	second := failed.fail(&domain.Error{Kind: domain.KindInternal})
	assert.Same(t, first, second)
	assert.Equal(t, JobFailed, failed.State)
}
