// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metadata asks a language model for the structured metadata of a
// single record (dataset, methodology, validation, results) and turns its
// JSON reply into a validated types.StructuredMetadata.
package metadata

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/pdiddy/medai-miner/internal/llm"
	"github.com/pdiddy/medai-miner/internal/textnorm"
	"github.com/pdiddy/medai-miner/pkg/types"
)

const defaultMaxTokens = 2048

//go:embed schema.json
var schemaJSON string

var metadataSchema = jsonschema.MustCompileString("structured-metadata.schema.json", schemaJSON)

// ErrUnparseable is matched by every ParseError.
var ErrUnparseable = errors.New("unparseable metadata response")

// ParseError reports a reply that could not be turned into metadata. It is
// a soft failure for one record.
type ParseError struct {
	Reason string
	// Raw is the reply text after fence stripping.
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", ErrUnparseable, e.Reason, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrUnparseable, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrUnparseable) true for any ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrUnparseable }

var extractionPromptTmpl = template.Must(template.New("metadata").Parse(`You extract structured metadata about a medical AI model or study from its name and description.

Name: {{.Name}}
Description: {{.Description}}

Respond with a single JSON object and nothing else. Use this shape and omit every field the text does not state; do not guess.
{
  "dataset": {"name": string, "modality": string, "sample_size": integer, "source": string, "public": boolean},
  "methodology": {"architecture": string, "task": string, "approach": string},
  "validation": {"type": "internal" | "external" | "prospective", "sites": integer},
  "results": {"sensitivity": number, "specificity": number, "accuracy": number, "auc": number, "f1": number, "ppv": number, "npv": number}
}
Report results as decimals between 0 and 1. When several values are reported for one result, give an object mapping each setting to its value.
`))

// Extractor requests and parses structured metadata for one record at a time.
type Extractor struct {
	completer llm.Completer
	model     string
	maxTokens int
}

// NewExtractor returns an Extractor that sends requests through c.
func NewExtractor(c llm.Completer, cfg types.MetadataConfig) *Extractor {
	ex := &Extractor{completer: c, model: cfg.Model, maxTokens: cfg.MaxTokens}
	if ex.maxTokens <= 0 {
		ex.maxTokens = defaultMaxTokens
	}
	return ex
}

// Extract returns the structured metadata for rec. API failures come back
// as *llm.APIError; a reply that cannot be used comes back as *ParseError.
// The request is not interrupted by cancellation of ctx once sent.
func (x *Extractor) Extract(ctx context.Context, rec types.Record) (*types.StructuredMetadata, error) {
	prompt, err := renderPrompt(rec)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	resp, err := x.completer.Complete(context.WithoutCancel(ctx), llm.Request{
		Kind:      "metadata",
		Prompt:    prompt,
		MaxTokens: x.maxTokens,
		Model:     x.model,
	})
	if err != nil {
		return nil, err
	}
	return Parse(resp.Text)
}

func renderPrompt(rec types.Record) (string, error) {
	var buf bytes.Buffer
	err := extractionPromptTmpl.Execute(&buf, struct{ Name, Description string }{
		Name:        textnorm.Normalize(rec.Title),
		Description: textnorm.Normalize(rec.AbstractText),
	})
	return buf.String(), err
}

// Parse turns a model reply into validated metadata: code fences are
// stripped, the JSON is decoded and coerced, then checked against the
// embedded schema.
func Parse(text string) (*types.StructuredMetadata, error) {
	body := StripFences(text)
	if body == "" {
		return nil, &ParseError{Reason: "empty reply"}
	}

	doc, err := decodeObject(body)
	if err != nil {
		return nil, &ParseError{Reason: "invalid JSON", Raw: body, Err: err}
	}

	if dropped := sanitize(doc); len(dropped) > 0 {
		zap.L().Debug("metadata: dropped fields", zap.Strings("fields", dropped))
	}
	doc["version"] = types.MetadataVersion

	if err := metadataSchema.Validate(toSchemaValue(doc)); err != nil {
		return nil, &ParseError{Reason: "schema mismatch", Raw: body, Err: err}
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return nil, &ParseError{Reason: "re-encode", Raw: body, Err: err}
	}
	var md types.StructuredMetadata
	if err := json.Unmarshal(b, &md); err != nil {
		return nil, &ParseError{Reason: "decode", Raw: body, Err: err}
	}
	if md.Dataset == nil && md.Methodology == nil && md.Validation == nil && md.Results == nil {
		return nil, &ParseError{Reason: "no metadata fields", Raw: body}
	}
	return &md, nil
}

// StripFences removes a surrounding Markdown code fence (``` or ```json)
// and trims the result.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = s[3:]
		line, rest, found := strings.Cut(s, "\n")
		info := strings.TrimSpace(line)
		if !strings.HasPrefix(info, "{") && !strings.HasPrefix(info, "[") {
			if found {
				s = rest
			} else {
				s = strings.TrimLeft(info, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
			}
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// decodeObject decodes body as a JSON object. When the model wrapped the
// object in prose, the outermost braces are tried as a fallback.
func decodeObject(body string) (map[string]any, error) {
	var doc map[string]any
	err := json.Unmarshal([]byte(body), &doc)
	if err == nil {
		if doc == nil {
			return nil, errors.New("reply is null")
		}
		return doc, nil
	}

	start, end := strings.Index(body, "{"), strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return nil, err
	}
	var inner map[string]any
	if json.Unmarshal([]byte(body[start:end+1]), &inner) != nil || inner == nil {
		return nil, err
	}
	return inner, nil
}

// toSchemaValue converts Go ints produced by sanitize into float64 so the
// validator sees the same types json.Unmarshal would produce.
func toSchemaValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = toSchemaValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = toSchemaValue(e)
		}
		return out
	case int:
		return float64(t)
	}
	return v
}
