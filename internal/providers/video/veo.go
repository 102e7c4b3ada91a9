package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"mediagen/internal/codec"
	"mediagen/internal/domain"
	"mediagen/internal/providers/genai"
)

var errNoHandle = errors.New("video: start response has no operation name")

// OperationClient is the slice of the Gemini client used for long-running
// video generation.
type OperationClient interface {
	StartVideo(ctx context.Context, prompt string) (*genai.Operation, error)
	GetOperation(ctx context.Context, name string) (*genai.Operation, error)
	Download(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Veo runs the start, poll, fetch and encode sequence for a video request.
type Veo struct {
	client OperationClient
	policy PollPolicy
}

// NewVeo wires the orchestrator. Zero fields in policy fall back to
// DefaultPollPolicy values.
func NewVeo(client OperationClient, policy PollPolicy) *Veo {
	return &Veo{client: client, policy: policy.normalized()}
}

// Generate blocks until the upstream job finishes, fails, exceeds the poll
// budget, or ctx is cancelled.
func (v *Veo) Generate(ctx context.Context, prompt string) (*domain.GenerationResult, error) {
	job, err := v.start(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if err := v.await(ctx, job); err != nil {
		return nil, err
	}
	return v.fetch(ctx, job)
}

func (v *Veo) start(ctx context.Context, prompt string) (*Job, error) {
	op, err := v.client.StartVideo(ctx, prompt)
	if err != nil {
		return nil, genai.Classify(ctx, err, domain.StageDispatchStart, domain.CodeVideoStartFailed)
	}
	if strings.TrimSpace(op.Name) == "" {
		return nil, &domain.Error{
			Kind:  domain.KindUpstreamShape,
			Stage: domain.StageDispatchStart,
			Code:  domain.CodeVideoStartFailed,
			Err:   errNoHandle,
		}
	}
	zerolog.Ctx(ctx).Info().Str("operation", op.Name).Msg("video: generation started")

	job := newJob(op.Name, time.Now())
	job.observe(op)
	return job, nil
}

// await polls the job with the same handle until it leaves Running. Nothing
// is fetched while the job is running.
func (v *Veo) await(ctx context.Context, job *Job) error {
	log := zerolog.Ctx(ctx)
	schedule := v.policy.schedule()

	for !job.Terminal() {
		wait := schedule.NextBackOff()
		if wait == backoff.Stop {
			return job.fail(&domain.Error{
				Kind:  domain.KindTimeout,
				Stage: domain.StagePoll,
				Code:  domain.CodeVideoTimeout,
				Err:   fmt.Errorf("video: operation %s still running after %s", job.Handle, time.Since(job.StartedAt).Round(time.Second)),
			})
		}

		log.Info().
			Str("operation", job.Handle).
			Int("attempt", job.Polls+1).
			Dur("wait", wait).
			Dur("elapsed", time.Since(job.StartedAt)).
			Msg("video: waiting for generation to finish")

		if err := sleep(ctx, wait); err != nil {
			return job.fail(genai.Classify(ctx, err, domain.StagePoll, domain.CodeVideoPollFailed))
		}

		op, err := v.client.GetOperation(ctx, job.Handle)
		job.Polls++
		if err != nil {
			return job.fail(genai.Classify(ctx, err, domain.StagePoll, domain.CodeVideoPollFailed))
		}
		job.observe(op)
	}

	if job.State == JobFailed {
		log.Error().
			Err(job.Failure).
			Str("operation", job.Handle).
			Int("polls", job.Polls).
			RawJSON("detail", rawOrNull(job.Failure.Detail)).
			Msg("video: generation failed")
		return job.Failure
	}
	log.Info().
		Str("operation", job.Handle).
		Int("polls", job.Polls).
		Dur("elapsed", time.Since(job.StartedAt)).
		Msg("video: generation finished")
	return nil
}

func (v *Veo) fetch(ctx context.Context, job *Job) (*domain.GenerationResult, error) {
	body, err := v.client.Download(ctx, job.ArtifactURI)
	if err != nil {
		return nil, genai.Classify(ctx, err, domain.StageFetch, domain.CodeVideoFetchFailed)
	}
	defer body.Close()

	encoded, err := codec.Base64Reader(body)
	if err != nil {
		return nil, genai.Classify(ctx, err, domain.StageEncode, domain.CodeVideoEncodeFailed)
	}

	return &domain.GenerationResult{
		EncodedPayload: encoded,
		MediaKind:      domain.ModalityVideo,
		MIMEType:       "video/mp4",
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func rawOrNull(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
