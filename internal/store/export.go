// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/medai-miner/pkg/types"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Lister lists records; every Store is a Lister.
type Lister interface {
	ListRecords(ctx context.Context, f Filter) ([]types.Record, error)
}

// Export writes the records matching f to w as a YAML or JSON list.
func Export(ctx context.Context, st Lister, f Filter, format string, w io.Writer) (int, error) {
	records, err := st.ListRecords(ctx, f)
	if err != nil {
		return 0, eris.Wrap(err, "querying for export")
	}
	if records == nil {
		records = []types.Record{}
	}

	switch format {
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return 0, eris.Wrap(err, "marshaling YAML")
		}
		if err := enc.Close(); err != nil {
			return 0, eris.Wrap(err, "marshaling YAML")
		}
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return 0, eris.Wrap(err, "marshaling JSON")
		}
	default:
		return 0, eris.Errorf("unknown export format %q", format)
	}
	return len(records), nil
}
