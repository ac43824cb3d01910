// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Package export writes and reads snapshots of objects as zstd-compressed
// JSON documents.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/toeirei/keyview/internal/object"
	"github.com/toeirei/keyview/internal/store"
)

// FormatVersion is the document version written by Write.
const FormatVersion = 1

// ErrVersion is returned by Read for documents of a newer format.
var ErrVersion = errors.New("unsupported export version")

// Document is the exported snapshot.
type Document struct {
	Version int            `json:"version"`
	Created time.Time      `json:"created"`
	Objects []store.Record `json:"objects"`
}

// Snapshot captures objs, ordered by id, at time now. Objects of one
// source sharing an id become a single merged record.
func Snapshot(objs []*object.Object, now time.Time) Document {
	doc := Document{Version: FormatVersion, Created: now.UTC()}
	recs := make([]store.Record, 0, len(objs))
	for _, o := range objs {
		recs = append(recs, store.RecordOf(o, now))
	}
	doc.Objects = store.Merge(recs)
	slices.SortFunc(doc.Objects, func(a, b store.Record) int {
		if c := strings.Compare(a.ID, b.ID); c != 0 {
			return c
		}
		return strings.Compare(a.Source, b.Source)
	})
	return doc
}

// Write encodes doc to w as zstd-compressed JSON.
func Write(w io.Writer, doc Document) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode export: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush export: %w", err)
	}
	return nil
}

// Read decodes a document written by Write.
func Read(r io.Reader) (Document, error) {
	var doc Document
	zr, err := zstd.NewReader(r)
	if err != nil {
		return doc, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()
	if err := json.NewDecoder(zr).Decode(&doc); err != nil {
		return doc, fmt.Errorf("decode export: %w", err)
	}
	if doc.Version > FormatVersion {
		return doc, fmt.Errorf("%w: %d", ErrVersion, doc.Version)
	}
	return doc, nil
}
