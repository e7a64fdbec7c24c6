// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/notestore/notestore/internal/localstorage"
	"github.com/notestore/notestore/internal/search"
	"github.com/notestore/notestore/internal/storageerrors"
	"github.com/notestore/notestore/internal/types"
	"github.com/notestore/notestore/internal/util/lazyerrors"
)

// outputFormats are supported report formats.
var outputFormats = []string{"yaml", "json"}

// report represents the command output.
type report struct {
	Account  string          `yaml:"account"            json:"account"`
	Path     string          `yaml:"path"               json:"path"`
	Version  int             `yaml:"version"            json:"version"`
	Counts   counts          `yaml:"counts"             json:"counts"`
	Searches []*searchReport `yaml:"searches,omitempty" json:"searches,omitempty"`
}

// counts represents numbers of stored entities.
type counts struct {
	Users           int `yaml:"users"            json:"users"`
	Notebooks       int `yaml:"notebooks"        json:"notebooks"`
	LinkedNotebooks int `yaml:"linked_notebooks" json:"linked_notebooks"`
	Notes           int `yaml:"notes"            json:"notes"`
	Tags            int `yaml:"tags"             json:"tags"`
	Resources       int `yaml:"resources"        json:"resources"`
	SavedSearches   int `yaml:"saved_searches"   json:"saved_searches"`
}

// searchReport represents results of a single search expression.
type searchReport struct {
	Query string        `yaml:"query"           json:"query"`
	Error string        `yaml:"error,omitempty" json:"error,omitempty"`
	Notes []*types.Note `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// reportParams represents parameters of [buildReport].
//
//nolint:vet // for readability
type reportParams struct {
	Account        *localstorage.Account
	Dir            string
	Queries        []string
	WithBinaryData bool
	Now            time.Time
	L              *zap.Logger
}

// buildReport collects the storage version, entity counts, and results of search expressions.
//
// Invalid expressions and unknown notebooks are reported in the search results;
// other errors are returned.
func buildReport(ctx context.Context, s localstorage.Storage, params *reportParams) (*report, error) {
	var r report

	if params.Account != nil {
		r.Account = params.Account.Name
		r.Path = params.Account.DatabasePath(params.Dir)
	}

	var err error
	if r.Version, err = s.Version(ctx); err != nil {
		return nil, lazyerrors.Error(err)
	}

	for _, c := range []struct {
		dst   *int
		count func(context.Context) (int, error)
	}{
		{&r.Counts.Users, s.CountUsers},
		{&r.Counts.Notebooks, s.CountNotebooks},
		{&r.Counts.LinkedNotebooks, s.CountLinkedNotebooks},
		{&r.Counts.Notes, s.CountNotes},
		{&r.Counts.Tags, s.CountTags},
		{&r.Counts.Resources, s.CountResources},
		{&r.Counts.SavedSearches, s.CountSavedSearches},
	} {
		if *c.dst, err = c.count(ctx); err != nil {
			return nil, lazyerrors.Error(err)
		}
	}

	for _, expr := range params.Queries {
		sr, err := runSearch(ctx, s, expr, params)
		if err != nil {
			return nil, err
		}

		r.Searches = append(r.Searches, sr)
	}

	return &r, nil
}

// runSearch parses and runs a single search expression.
func runSearch(ctx context.Context, s localstorage.Storage, expr string, params *reportParams) (*searchReport, error) {
	ctx, span := otel.Tracer("").Start(ctx, "search")
	defer span.End()

	span.SetAttributes(attribute.String("query", expr))

	sr := &searchReport{Query: expr}

	q, err := search.Parse(expr, params.Now)
	if err == nil {
		sr.Notes, err = s.FindNotesWithSearchQuery(ctx, q, &localstorage.FindNoteOptions{
			WithResourceBinaryData: params.WithBinaryData,
		})
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		if !storageerrors.ErrorCodeIs(err, storageerrors.ErrorCodeQueryCompilation, storageerrors.ErrorCodeNotFound) {
			return nil, lazyerrors.Error(err)
		}

		if params.L != nil {
			params.L.Warn("Search failed", zap.String("query", expr), zap.Error(err))
		}

		sr.Error = err.Error()

		return sr, nil
	}

	span.SetAttributes(attribute.Int("notes", len(sr.Notes)))

	return sr, nil
}

// writeReport writes the report in the given format.
func writeReport(w io.Writer, r *report, format string) error {
	switch format {
	case "yaml":
		e := yaml.NewEncoder(w)
		e.SetIndent(2)

		if err := e.Encode(r); err != nil {
			return lazyerrors.Error(err)
		}

		return e.Close()

	case "json":
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")

		return e.Encode(r)

	default:
		return fmt.Errorf("unexpected output format %q", format)
	}
}
