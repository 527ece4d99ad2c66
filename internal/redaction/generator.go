// Package redaction serves pre-generated redacted derivatives recorded in the
// redaction source. Generating the derivative itself belongs to an external
// pipeline; this adapter only locates and verifies what it produced.
package redaction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"archgate/internal/access/ports"
	"archgate/internal/restriction"
	id "archgate/pkg/domain"
	"archgate/pkg/platform/sentinel"
	"archgate/pkg/requestcontext"
)

// ErrUnsafePath marks an artifact path that escapes the artifact root.
var ErrUnsafePath = errors.New("artifact path escapes artifact root")

// Generator implements ports.RedactionGenerator over a directory of artifacts.
type Generator struct {
	reader restriction.Reader[restriction.RedactionRecord]
	root   fs.StatFS
	logger *slog.Logger
}

type Option func(*Generator)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithFS replaces the artifact filesystem; tests pass fstest.MapFS.
func WithFS(fsys fs.StatFS) Option {
	return func(g *Generator) {
		g.root = fsys
	}
}

// New builds a generator rooted at artifactRoot.
func New(reader restriction.Reader[restriction.RedactionRecord], artifactRoot string, opts ...Option) (*Generator, error) {
	if reader == nil {
		return nil, fmt.Errorf("redaction reader is required")
	}
	g := &Generator{
		reader: reader,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if artifactRoot != "" {
		if fsys, ok := os.DirFS(artifactRoot).(fs.StatFS); ok {
			g.root = fsys
		}
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.root == nil {
		return nil, fmt.Errorf("artifact root is required")
	}
	return g, nil
}

var _ ports.RedactionGenerator = (*Generator)(nil)

// HasRedactions reports whether an active redaction record exists.
func (g *Generator) HasRedactions(ctx context.Context, objectID id.ObjectID) (bool, error) {
	rec, err := g.record(ctx, objectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return rec.HasRedaction, nil
}

// GetRedactedPdf returns the recorded derivative of objectID. originalPath is
// informational; the derivative path always comes from the redaction record.
func (g *Generator) GetRedactedPdf(ctx context.Context, objectID id.ObjectID, originalPath string) (ports.RedactedArtifact, error) {
	rec, err := g.record(ctx, objectID)
	if err != nil {
		return ports.RedactedArtifact{}, err
	}
	if rec.ArtifactPath == "" {
		return ports.RedactedArtifact{}, fmt.Errorf("object %s has no recorded artifact: %w", objectID, sentinel.ErrNotFound)
	}

	rel := filepath.ToSlash(filepath.Clean(rec.ArtifactPath))
	if !fs.ValidPath(rel) {
		g.logger.WarnContext(ctx, "redaction artifact path rejected",
			"object_id", objectID,
			"artifact_path", rec.ArtifactPath,
		)
		return ports.RedactedArtifact{}, fmt.Errorf("object %s: %w", objectID, ErrUnsafePath)
	}

	info, err := g.root.Stat(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ports.RedactedArtifact{}, fmt.Errorf("artifact %s for object %s: %w", rel, objectID, sentinel.ErrNotFound)
		}
		return ports.RedactedArtifact{}, fmt.Errorf("stat artifact %s: %w", rel, err)
	}
	if info.IsDir() {
		return ports.RedactedArtifact{}, fmt.Errorf("artifact %s is a directory: %w", rel, sentinel.ErrNotFound)
	}

	return ports.RedactedArtifact{
		Path: rel,
		Metadata: map[string]string{
			"object_id":     objectID.String(),
			"original_path": originalPath,
			"size_bytes":    strconv.FormatInt(info.Size(), 10),
			"modified_at":   info.ModTime().UTC().Format("2006-01-02T15:04:05Z07:00"),
		},
	}, nil
}

func (g *Generator) record(ctx context.Context, objectID id.ObjectID) (restriction.RedactionRecord, error) {
	records, err := g.reader.ReadActive(ctx, objectID, requestcontext.Now(ctx))
	if err != nil {
		return restriction.RedactionRecord{}, fmt.Errorf("read redaction records: %w", err)
	}
	for _, rec := range records {
		if rec.HasRedaction {
			return rec, nil
		}
	}
	return restriction.RedactionRecord{}, sentinel.ErrNotFound
}
