// Package output writes finished catalog snapshots to their destinations.
//
// Sinks only receive a snapshot; nothing they do feeds back into a build.
// Every sink failure wraps catalog.ErrOutputWrite.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/pricemerge/internal/catalog"
)

// DefaultDelimiter separates the supplier and product blocks in stream mode.
const DefaultDelimiter = "---END-SUPPLIERS---"

// Sink is a destination for a snapshot.
type Sink interface {
	Name() string
	Write(ctx context.Context, snap catalog.Snapshot) error
}

// Encode writes v as JSON followed by a newline.
func Encode(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// normalize replaces nil lists so they serialize as [] rather than null.
func normalize(snap catalog.Snapshot) catalog.Snapshot {
	if snap.Suppliers == nil {
		snap.Suppliers = []string{}
	}
	snap.Products = append([]catalog.Product{}, snap.Products...)
	for i := range snap.Products {
		if snap.Products[i].SupplierOffers == nil {
			snap.Products[i].SupplierOffers = []catalog.Offer{}
		}
	}
	return snap
}

func writeErr(sink string, err error) error {
	return fmt.Errorf("%w: %s: %v", catalog.ErrOutputWrite, sink, err)
}

// FileSink writes the snapshot as one JSON document {suppliers, products}.
// The file is replaced atomically; the parent directory must exist.
type FileSink struct {
	Path   string
	Pretty bool
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(_ context.Context, snap catalog.Snapshot) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return writeErr(s.Name(), err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Encode(tmp, normalize(snap), s.Pretty); err != nil {
		tmp.Close()
		return writeErr(s.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return writeErr(s.Name(), err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return writeErr(s.Name(), err)
	}
	return nil
}

// StreamSink writes the supplier list, a delimiter line and the product list
// to W, for consumption by a parent process reading stdout.
type StreamSink struct {
	W         io.Writer
	Delimiter string
	Pretty    bool
}

func (s *StreamSink) Name() string { return "stream" }

func (s *StreamSink) Write(_ context.Context, snap catalog.Snapshot) error {
	snap = normalize(snap)
	delim := s.Delimiter
	if delim == "" {
		delim = DefaultDelimiter
	}

	if err := Encode(s.W, snap.Suppliers, s.Pretty); err != nil {
		return writeErr(s.Name(), err)
	}
	if _, err := io.WriteString(s.W, delim+"\n"); err != nil {
		return writeErr(s.Name(), err)
	}
	if err := Encode(s.W, snap.Products, s.Pretty); err != nil {
		return writeErr(s.Name(), err)
	}
	return nil
}

// WriteAll writes snap to every sink in order and stops at the first error.
func WriteAll(ctx context.Context, snap catalog.Snapshot, sinks ...Sink) error {
	for _, s := range sinks {
		if err := s.Write(ctx, snap); err != nil {
			return err
		}
	}
	return nil
}
