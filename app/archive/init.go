package archive

import (
	"context"
	"fmt"

	"github.com/joefazee/optionsdesk/app/options"
	"github.com/joefazee/optionsdesk/internal/deps"
)

const ExporterKey = "archive.exporter"

// Init builds the exporter over the options repository. It returns nil when
// archiving is disabled; the caller runs the exporter.
func Init(ctx context.Context, c *deps.Container, cfg *Config) (*Exporter, error) {
	if cfg == nil {
		cfg = GetDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid archive configuration: %w", err)
	}
	if !cfg.Enabled {
		return nil, nil
	}

	store, err := deps.Repository[options.Repository](c, options.RepositoryKey)
	if err != nil {
		return nil, err
	}
	writer, err := NewS3Writer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	exporter := NewExporter(store, writer, cfg, c.Logger, c.Metrics)
	c.RegisterService(ExporterKey, exporter)
	return exporter, nil
}
