// Package anthropic adapts the Anthropic Messages API to the engine's
// Analyzer interface. One Analyze call fetches the stored resume from the
// object store, sends a single Messages request carrying the job
// description and the resume text, and returns the model's JSON verdict.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/remiges-tech/sift/engine"
	"github.com/remiges-tech/sift/engine/objstore"
)

const (
	// DefaultModel is used when NewAnalyzer is given an empty model name.
	DefaultModel = "claude-sonnet-4-0"

	maxTokens = 1024

	// maxResumeBytes caps how much of a stored file is sent to the model.
	// Oversized resumes are truncated, not failed.
	maxResumeBytes = 128 * 1024

	// requestTimeout bounds one Messages call. It must stay comfortably
	// below the engine's item lease so a slow call fails while the worker
	// still holds the lease.
	requestTimeout = 60 * time.Second
)

const systemPrompt = `You are a resume screening assistant. You will be given a job description and one candidate resume. Evaluate how well the candidate fits the role.

Respond with only a JSON object, no prose and no markdown, in exactly this shape:
{"verdict": "advance" or "reject", "score": <integer 0-100>, "strengths": [<strings>], "gaps": [<strings>], "summary": "<one paragraph>"}`

// verdict is the reply schema the system prompt demands. Score is a pointer
// so an absent field is distinguishable from a zero score.
type verdict struct {
	Verdict   string   `json:"verdict"`
	Score     *int     `json:"score"`
	Strengths []string `json:"strengths"`
	Gaps      []string `json:"gaps"`
	Summary   string   `json:"summary"`
}

// Analyzer implements engine.Analyzer on the Anthropic Messages API.
type Analyzer struct {
	client sdk.Client
	store  objstore.ObjectStore
	bucket string
	model  sdk.Model
}

// NewAnalyzer wires an Anthropic client to the object store holding the
// resume files. The engine schedules retries itself, so build the client
// with option.WithMaxRetries(0) to keep retry policy in one place.
func NewAnalyzer(client sdk.Client, store objstore.ObjectStore, bucket string, model string) *Analyzer {
	if model == "" {
		model = DefaultModel
	}
	return &Analyzer{
		client: client,
		store:  store,
		bucket: bucket,
		model:  sdk.Model(model),
	}
}

// Analyze fetches the resume at fileref, asks the model to screen it
// against the job description and returns the verdict JSON. Errors are
// returned as *engine.AnalyzerError so the engine can tell transient
// failures from permanent ones.
func (a *Analyzer) Analyze(ctx context.Context, fileref string, jd string) (engine.JSONstr, error) {
	resume, err := a.fetchResume(ctx, fileref)
	if err != nil {
		return engine.JSONstr{}, &engine.AnalyzerError{
			Code:      engine.ErrCodeUpstream,
			Message:   fmt.Sprintf("failed to read %s from object store: %v", fileref, err),
			Transient: true,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	userContent := fmt.Sprintf("Job description:\n%s\n\nResume:\n%s", jd, resume)
	message, err := a.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     a.model,
		MaxTokens: maxTokens,
		System:    []sdk.TextBlockParam{{Text: systemPrompt}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(userContent)),
		},
		Temperature: sdk.Float(0),
	})
	if err != nil {
		return engine.JSONstr{}, classifyAPIError(err)
	}

	reply := collectText(message)
	if err := validateVerdict(reply); err != nil {
		return engine.JSONstr{}, err
	}
	res, err := engine.NewJSONstr(reply)
	if err != nil {
		return engine.JSONstr{}, &engine.AnalyzerError{
			Code:      engine.ErrCodeSchemaValidation,
			Message:   fmt.Sprintf("model reply is not valid JSON: %v", err),
			Transient: false,
		}
	}
	return res, nil
}

// fetchResume reads at most maxResumeBytes of the stored file and returns
// it as UTF-8 text.
func (a *Analyzer) fetchResume(ctx context.Context, fileref string) (string, error) {
	rc, err := a.store.Get(ctx, a.bucket, fileref)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, maxResumeBytes+1))
	if err != nil {
		return "", err
	}
	if len(raw) > maxResumeBytes {
		raw = raw[:maxResumeBytes]
	}
	return strings.ToValidUTF8(string(raw), "�"), nil
}

// collectText concatenates the text blocks of the reply and strips an
// optional markdown code fence around the JSON.
func collectText(message *sdk.Message) string {
	var sb strings.Builder
	for _, block := range message.Content {
		if text, ok := block.AsAny().(sdk.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	reply := strings.TrimSpace(sb.String())
	if strings.HasPrefix(reply, "```") {
		if _, rest, ok := strings.Cut(reply, "\n"); ok {
			reply = rest
		}
		reply = strings.TrimSuffix(strings.TrimSpace(reply), "```")
		reply = strings.TrimSpace(reply)
	}
	return reply
}

// validateVerdict checks the reply against the schema the system prompt
// demands. Anything off is a permanent failure, retrying the same resume
// against the same prompt will not fix a model that ignored the schema.
func validateVerdict(reply string) error {
	schemaErr := func(details string) error {
		return &engine.AnalyzerError{
			Code:      engine.ErrCodeSchemaValidation,
			Message:   details,
			Transient: false,
		}
	}
	if reply == "" {
		return schemaErr("model reply contains no text")
	}
	var v verdict
	if err := json.Unmarshal([]byte(reply), &v); err != nil {
		return schemaErr(fmt.Sprintf("model reply is not valid JSON: %v", err))
	}
	if v.Verdict != "advance" && v.Verdict != "reject" {
		return schemaErr(fmt.Sprintf("verdict must be advance or reject, got %q", v.Verdict))
	}
	if v.Score == nil || *v.Score < 0 || *v.Score > 100 {
		return schemaErr("score must be an integer between 0 and 100")
	}
	return nil
}

// classifyAPIError maps SDK failures to the engine's retry classes. Rate
// limits, overload and server errors are worth retrying; the rest of the
// 4xx range means the request itself is bad and a retry would repeat it.
func classifyAPIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &engine.AnalyzerError{
			Code:      engine.ErrCodeTimeout,
			Message:   "analyzer call timed out",
			Transient: true,
		}
	}

	var apierr *sdk.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 408:
			return &engine.AnalyzerError{
				Code:      engine.ErrCodeTimeout,
				Message:   fmt.Sprintf("analyzer request timed out: %v", err),
				Transient: true,
			}
		case apierr.StatusCode == 429:
			return &engine.AnalyzerError{
				Code:      engine.ErrCodeRateLimited,
				Message:   fmt.Sprintf("analyzer rate limited: %v", err),
				Transient: true,
			}
		case apierr.StatusCode >= 500:
			return &engine.AnalyzerError{
				Code:      engine.ErrCodeUpstream,
				Message:   fmt.Sprintf("analyzer unavailable: %v", err),
				Transient: true,
			}
		default:
			return &engine.AnalyzerError{
				Code:      engine.ErrCodeAnalyzer,
				Message:   fmt.Sprintf("analyzer rejected the request: %v", err),
				Transient: false,
			}
		}
	}

	// No HTTP status at all means the request never got through.
	return &engine.AnalyzerError{
		Code:      engine.ErrCodeUpstream,
		Message:   fmt.Sprintf("analyzer unreachable: %v", err),
		Transient: true,
	}
}
