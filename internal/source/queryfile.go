// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.yaml.in/yaml/v3"
)

// QueryFile is the on-disk list of harvest queries, so a standing set of
// searches can be rerun without retyping them.
//
//	queries:
//	  - free_text: deep learning chest radiograph
//	    date_from: 2023-01-01
//	  - keywords: [transformer, pathology]
type QueryFile struct {
	Queries []QueryParams `yaml:"queries"`
}

// QueryParams stores one query in a serializable form.
type QueryParams struct {
	FreeText string   `yaml:"free_text,omitempty"`
	Keywords []string `yaml:"keywords,omitempty"`
	DateFrom string   `yaml:"date_from,omitempty"`
	DateTo   string   `yaml:"date_to,omitempty"`
}

const dateFmt = "2006-01-02"

// ReadQueryFile loads and converts every query in the file at path.
func ReadQueryFile(path string) ([]Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "reading query file")
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, eris.Wrap(err, "parsing query file")
	}
	if len(qf.Queries) == 0 {
		return nil, eris.Errorf("query file %s has no queries", path)
	}

	queries := make([]Query, 0, len(qf.Queries))
	for i, p := range qf.Queries {
		q, err := p.ToQuery()
		if err != nil {
			return nil, eris.Wrapf(err, "query %d", i+1)
		}
		if q.IsEmpty() {
			return nil, eris.Errorf("query %d has no search terms", i+1)
		}
		queries = append(queries, q)
	}
	return queries, nil
}

// WriteQueryFile saves queries to path.
func WriteQueryFile(path string, queries []Query) error {
	qf := QueryFile{Queries: make([]QueryParams, 0, len(queries))}
	for _, q := range queries {
		p := QueryParams{FreeText: q.FreeText, Keywords: q.Keywords}
		if !q.DateFrom.IsZero() {
			p.DateFrom = q.DateFrom.Format(dateFmt)
		}
		if !q.DateTo.IsZero() {
			p.DateTo = q.DateTo.Format(dateFmt)
		}
		qf.Queries = append(qf.Queries, p)
	}
	data, err := yaml.Marshal(&qf)
	if err != nil {
		return eris.Wrap(err, "marshaling query file")
	}
	return os.WriteFile(path, data, 0o644)
}

// ToQuery converts stored parameters into a Query.
func (p QueryParams) ToQuery() (Query, error) {
	q := Query{FreeText: p.FreeText, Keywords: p.Keywords}
	var err error
	if q.DateFrom, err = ParseDate(p.DateFrom); err != nil {
		return q, eris.Wrapf(err, "invalid date_from %q", p.DateFrom)
	}
	if q.DateTo, err = ParseDate(p.DateTo); err != nil {
		return q, eris.Wrapf(err, "invalid date_to %q", p.DateTo)
	}
	return q, nil
}

// ParseDate parses a YYYY-MM-DD date; the empty string is the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateFmt, s)
}
