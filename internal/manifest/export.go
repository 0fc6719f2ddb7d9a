// SPDX-License-Identifier: MIT

package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	xlog "github.com/neggles/eagle3d/internal/log"
)

// Exporter writes manifest documents under a base directory, formatted per
// a Config. Writes are atomic so readers never observe a partial file.
type Exporter struct {
	dir    string
	cfg    Config
	logger zerolog.Logger
}

// NewExporter creates an exporter rooted at dir using the given formatting
// configuration.
func NewExporter(dir string, cfg Config) *Exporter {
	return &Exporter{
		dir:    dir,
		cfg:    cfg,
		logger: xlog.WithComponent("manifest"),
	}
}

// Dir returns the base directory manifests are written to.
func (e *Exporter) Dir() string { return e.dir }

// Export renders doc as JSON and writes it to rel (a slash-separated path
// under the base directory), applying the override rule matching rel. With
// no matching rule the document is written with plain indented encoding.
// It returns the absolute path written.
func (e *Exporter) Export(rel string, doc any) (string, error) {
	var (
		data []byte
		err  error
	)
	if opts, ok := e.cfg.Match(rel); ok {
		data, err = Marshal(opts, doc)
	} else {
		data, err = json.MarshalIndent(doc, "", indentStep)
		data = append(data, '\n')
	}
	if err != nil {
		return "", fmt.Errorf("manifest: render %s: %w", rel, err)
	}

	path := filepath.Join(e.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("manifest: create directory for %s: %w", rel, err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("manifest: write %s: %w", rel, err)
	}

	e.logger.Debug().
		Str(xlog.FieldPath, path).
		Int("bytes", len(data)).
		Msg("exported manifest")
	return path, nil
}
