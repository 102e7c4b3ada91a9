package video

import (
	"errors"
	"fmt"
	"time"

	"mediagen/internal/domain"
	"mediagen/internal/providers/genai"
)

// JobState is the lifecycle position of a video generation job.
type JobState string

const (
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

var errNoVideo = errors.New("video: finished operation has no generated video")

// Job tracks one long-running upstream operation. It belongs to a single
// request and is discarded with it. Once Done or Failed it no longer changes.
type Job struct {
	Handle      string
	State       JobState
	ArtifactURI string
	Failure     *domain.Error
	Polls       int
	StartedAt   time.Time
}

func newJob(handle string, now time.Time) *Job {
	return &Job{Handle: handle, State: JobRunning, StartedAt: now}
}

// Terminal reports whether the job reached Done or Failed.
func (j *Job) Terminal() bool {
	return j.State == JobDone || j.State == JobFailed
}

// observe applies a status report to a running job.
func (j *Job) observe(op *genai.Operation) {
	if j.Terminal() || op == nil || !op.Done {
		return
	}
	if op.Failed() {
		j.fail(&domain.Error{
			Kind:   domain.KindUpstreamJob,
			Stage:  domain.StagePoll,
			Code:   domain.CodeVideoJobFailed,
			Detail: op.Error,
			Err:    fmt.Errorf("video: operation %s failed: %s", j.Handle, op.ErrorMessage()),
		})
		return
	}
	uri := op.VideoURI()
	if uri == "" {
		j.fail(&domain.Error{
			Kind:  domain.KindUpstreamShape,
			Stage: domain.StageFetch,
			Code:  domain.CodeVideoUnavailable,
			Err:   errNoVideo,
		})
		return
	}
	j.State = JobDone
	j.ArtifactURI = uri
}

// fail moves a running job to Failed and returns the failure to report. A job
// that already failed keeps its first failure.
func (j *Job) fail(e *domain.Error) *domain.Error {
	if j.State == JobFailed {
		return j.Failure
	}
	j.State = JobFailed
	j.Failure = e
	return e
}
