// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/medai-miner/internal/llm"
	"github.com/pdiddy/medai-miner/internal/ratelimit"
	"github.com/pdiddy/medai-miner/internal/textnorm"
	"github.com/pdiddy/medai-miner/pkg/types"
)

const (
	// DefaultBatchSize is the number of records per request when the
	// caller passes a non-positive size.
	DefaultBatchSize = 50

	defaultMaxTokens        = 4096
	defaultDescriptionChars = 400
)

// batchPromptTmpl lists every record of a batch and fixes the reply format
// to one "<id> KEEP|REMOVE" line per record.
var batchPromptTmpl = template.Must(template.New("classify").Parse(`You are curating a directory of medical AI models and research papers. For each entry below decide whether it belongs in the directory.

KEEP an entry when it describes a machine-learning model, method, or evaluation applied to a medical, clinical, or biomedical problem.
REMOVE an entry when it is a tutorial, demo, course exercise, test upload, placeholder, or has no medical or biomedical application.

Entries:
{{range .Entries}}
id: {{.ID}}
name: {{.Name}}
{{- if .Description}}
description: {{.Description}}
{{- end}}
{{- if .Architecture}}
architecture: {{.Architecture}}
{{- end}}
{{- if .Specialty}}
specialty: {{.Specialty}}
{{- end}}
code links: {{.CodeLinks}}
{{end}}
Respond with exactly one line per entry, in the order listed: the id, a space, then KEEP or REMOVE. Do not add any other text.
`))

type promptEntry struct {
	ID           string
	Name         string
	Description  string
	Architecture string
	Specialty    string
	CodeLinks    int
}

// Classifier sends batches of records to a language model and parses its
// KEEP/REMOVE answers.
type Classifier struct {
	completer llm.Completer
	limiter   ratelimit.Limiter
	model     string
	maxTokens int
	descChars int

	// Retries is the number of times a batch is resent after a transient
	// failure before the batch fails.
	Retries int
}

// NewClassifier returns a Classifier that waits on limiter before each
// batch request. A nil limiter does not wait.
func NewClassifier(c llm.Completer, limiter ratelimit.Limiter, cfg types.ClassifyConfig) *Classifier {
	if limiter == nil {
		limiter = ratelimit.None
	}
	cl := &Classifier{
		completer: c,
		limiter:   limiter,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		descChars: cfg.DescriptionChars,
	}
	if cl.maxTokens <= 0 {
		cl.maxTokens = defaultMaxTokens
	}
	if cl.descChars <= 0 {
		cl.descChars = defaultDescriptionChars
	}
	return cl
}

// Decisions aggregates classification outcomes. Ids appear in prompt order
// within a batch and in batch order across batches.
type Decisions struct {
	KeepIDs   []string
	RemoveIDs []string
	// Undecided lists ids the model gave no parseable answer for. They stay
	// unclassified.
	Undecided []string
}

func (d *Decisions) add(b BatchResult) {
	d.KeepIDs = append(d.KeepIDs, b.KeepIDs...)
	d.RemoveIDs = append(d.RemoveIDs, b.RemoveIDs...)
	d.Undecided = append(d.Undecided, b.Undecided...)
}

// BatchResult holds the decisions for one batch.
type BatchResult struct {
	// Index is the zero-based position of the batch in the input.
	Index int
	Size  int
	Decisions
}

// BatchError reports the batch whose request failed. Decisions from earlier
// batches are unaffected.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// ClassifyBatch classifies records in batches of batchSize (DefaultBatchSize
// when batchSize <= 0). If a batch fails the decisions gathered so far are
// returned together with a *BatchError.
func (c *Classifier) ClassifyBatch(ctx context.Context, records []types.Record, batchSize int) (Decisions, error) {
	var all Decisions
	err := c.Stream(ctx, records, batchSize, func(b BatchResult) error {
		all.add(b)
		return nil
	})
	return all, err
}

// Stream classifies records batch by batch and calls fn after each batch so
// the caller can persist decisions as they arrive. Batches are sent one at
// a time. Cancellation is observed between batches; a request already sent
// is allowed to finish. An error from fn stops the stream and is returned
// unchanged.
func (c *Classifier) Stream(ctx context.Context, records []types.Record, batchSize int, fn func(BatchResult) error) error {
	return c.stream(ctx, records, batchSize, 0, fn)
}

func (c *Classifier) stream(ctx context.Context, records []types.Record, batchSize, firstIndex int, fn func(BatchResult) error) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	index := firstIndex
	for start := 0; start < len(records); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		batch := records[start:min(start+batchSize, len(records))]
		res, err := c.classifyOne(ctx, index, batch)
		if err != nil {
			return &BatchError{Index: index, Err: err}
		}
		if err := fn(res); err != nil {
			return err
		}
		index++
	}
	return nil
}

// classifyOne sends a single batch. The request runs on a context detached
// from cancellation so an interrupted run still records the batch in flight.
func (c *Classifier) classifyOne(ctx context.Context, index int, batch []types.Record) (BatchResult, error) {
	prompt, err := c.renderPrompt(batch)
	if err != nil {
		return BatchResult{}, fmt.Errorf("rendering prompt: %w", err)
	}

	req := llm.Request{Kind: "classify", Prompt: prompt, MaxTokens: c.maxTokens, Model: c.model}
	callCtx := context.WithoutCancel(ctx)

	var text string
	err = llm.Retry(ctx, c.Retries, func(context.Context) error {
		resp, err := c.completer.Complete(callCtx, req)
		if err != nil {
			return err
		}
		text = resp.Text
		return nil
	})
	switch {
	case llm.IsEmpty(err):
		zap.L().Warn("classify: empty response, batch left undecided",
			zap.Int("batch", index), zap.Int("size", len(batch)))
		text = ""
	case err != nil:
		return BatchResult{}, err
	}

	res := BatchResult{Index: index, Size: len(batch)}
	res.Decisions = parseDecisions(text, batch)
	return res, nil
}

func (c *Classifier) renderPrompt(batch []types.Record) (string, error) {
	entries := make([]promptEntry, len(batch))
	for i, r := range batch {
		entries[i] = promptEntry{
			ID:           r.ID,
			Name:         textnorm.Normalize(r.Title),
			Description:  truncate(textnorm.Normalize(r.AbstractText), c.descChars),
			Architecture: r.Architecture,
			Specialty:    string(r.Specialty),
			CodeLinks:    len(r.CodeLinks),
		}
	}

	var buf bytes.Buffer
	if err := batchPromptTmpl.Execute(&buf, struct{ Entries []promptEntry }{entries}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// decisionLineRe builds the line pattern for one batch. Only the batch's own
// ids can match; longer ids are tried first so a prefix id never captures
// a longer one.
func decisionLineRe(batch []types.Record) *regexp.Regexp {
	ids := make([]string, len(batch))
	for i, r := range batch {
		ids[i] = r.ID
	}
	sort.SliceStable(ids, func(i, j int) bool { return len(ids[i]) > len(ids[j]) })
	for i, id := range ids {
		ids[i] = regexp.QuoteMeta(id)
	}
	return regexp.MustCompile(`(?i)^\s*(?:[-*]\s*)?(?:\d+[.)]\s*)?` + "`?" + `(` + strings.Join(ids, "|") + `)` + "`?" + `:?\s+(KEEP|REMOVE)\b`)
}

// parseDecisions reads the model's reply line by line. Lines that do not
// match are skipped, the first answer for an id wins, and ids with no
// answer are returned as undecided. Output follows batch order.
func parseDecisions(text string, batch []types.Record) Decisions {
	var d Decisions
	if len(batch) == 0 {
		return d
	}

	exact := make(map[string]bool, len(batch))
	folded := make(map[string][]string, len(batch))
	for _, r := range batch {
		if exact[r.ID] {
			continue
		}
		exact[r.ID] = true
		key := strings.ToLower(r.ID)
		folded[key] = append(folded[key], r.ID)
	}

	re := decisionLineRe(batch)
	answers := make(map[string]types.Classification, len(batch))
	for _, line := range strings.Split(text, "\n") {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id, ok := resolveID(m[1], exact, folded)
		if !ok {
			continue
		}
		if _, seen := answers[id]; seen {
			continue
		}
		if strings.EqualFold(m[2], "KEEP") {
			answers[id] = types.ClassKeep
		} else {
			answers[id] = types.ClassRemove
		}
	}

	seen := make(map[string]bool, len(batch))
	for _, r := range batch {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		switch answers[r.ID] {
		case types.ClassKeep:
			d.KeepIDs = append(d.KeepIDs, r.ID)
		case types.ClassRemove:
			d.RemoveIDs = append(d.RemoveIDs, r.ID)
		default:
			d.Undecided = append(d.Undecided, r.ID)
		}
	}
	return d
}

// resolveID maps an id as written by the model to a batch id. An exact match
// wins; a case-insensitive match is used only when it names a single record,
// since ids that differ only in case are distinct records.
func resolveID(written string, exact map[string]bool, folded map[string][]string) (string, bool) {
	if exact[written] {
		return written, true
	}
	if cands := folded[strings.ToLower(written)]; len(cands) == 1 {
		return cands[0], true
	}
	return "", false
}

// truncate returns s cut to at most maxLen runes.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return strings.TrimSpace(string(r[:maxLen])) + "..."
}
