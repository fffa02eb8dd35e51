package pipeline

// JobKind names a pipeline stage.
type JobKind string

const (
	JobClassify   JobKind = "classify"
	JobExtract    JobKind = "extract"
	JobTheme      JobKind = "theme"
	JobSynthesize JobKind = "synthesize"
	JobIndex      JobKind = "index"
)

// Retryable reports whether failed jobs of this kind may be retried.
// Classification fails closed and is never retried.
func (k JobKind) Retryable() bool {
	switch k {
	case JobExtract, JobTheme, JobSynthesize, JobIndex:
		return true
	}
	return false
}

// Job is a unit of work for the pipeline.
type Job struct {
	Kind           JobKind
	StoryID        string
	ContributionID string

	// Force bypasses short-circuits (theme refresh).
	Force bool
}

// attrs returns the job's identifying log attributes.
func (j Job) attrs() []any {
	attrs := []any{"job", string(j.Kind)}
	if j.StoryID != "" {
		attrs = append(attrs, "story_id", j.StoryID)
	}
	if j.ContributionID != "" {
		attrs = append(attrs, "contribution_id", j.ContributionID)
	}
	return attrs
}
