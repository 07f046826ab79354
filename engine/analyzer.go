package engine

import "context"

// Analyzer scores one stored resume against a job description and returns
// the verdict as JSON. Implementations fetch the file themselves using the
// object store reference recorded on the item.
//
// A returned *AnalyzerError controls retry behavior: transient errors are
// retried with backoff until the item's retry budget runs out, permanent
// ones fail the item on the spot. Any other error is treated as permanent.
type Analyzer interface {
	Analyze(ctx context.Context, fileref string, jd string) (JSONstr, error)
}
