//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Pipeline runs the CLI stages in order against the configured store.
type Pipeline mg.Namespace

func miner(args ...string) error {
	return sh.RunV(filepath.Join(binDir, binName), args...)
}

// Harvest runs every query in queries/default.yaml, creating the starter
// file first if it is missing.
func (Pipeline) Harvest() error {
	mg.SerialDeps(Init, Build)
	return miner("harvest", "--queries", filepath.Join("queries", "default.yaml"))
}

// Enrich derives heuristic fields for all records.
func (Pipeline) Enrich() error {
	mg.Deps(Build)
	return miner("enrich")
}

// Classify filters titles and classifies the remaining records.
func (Pipeline) Classify() error {
	mg.Deps(Build)
	return miner("classify")
}

// Metadata extracts structured metadata for records not yet enriched.
func (Pipeline) Metadata() error {
	mg.Deps(Build)
	return miner("metadata")
}

// All runs harvest, enrich, classify and metadata in sequence.
func (Pipeline) All() {
	mg.SerialDeps(Pipeline.Harvest, Pipeline.Enrich, Pipeline.Classify, Pipeline.Metadata)
}
