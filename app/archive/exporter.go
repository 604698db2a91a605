package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/joefazee/optionsdesk/internal/metrics"
	"github.com/joefazee/optionsdesk/models"
)

const contentType = "application/x-ndjson"

// Store is the slice of the options repository the exporter reads.
type Store interface {
	ListUnarchived(ctx context.Context, limit int) ([]models.Option, error)
	MarkArchived(ctx context.Context, ids []uint64, at time.Time) error
}

// Exporter writes settled options to blob storage as JSON lines and stamps
// them archived. Rows stay in the database.
type Exporter struct {
	store   Store
	writer  BlobWriter
	cfg     *Config
	logger  logger.Logger
	metrics *metrics.Registry
	now     func() time.Time
}

func NewExporter(store Store, writer BlobWriter, cfg *Config, log logger.Logger, m *metrics.Registry) *Exporter {
	if cfg == nil {
		cfg = GetDefaultConfig()
	}
	if log == nil {
		log = logger.NewNullLogger()
	}
	return &Exporter{
		store:   store,
		writer:  writer,
		cfg:     cfg,
		logger:  log,
		metrics: m,
		now:     time.Now,
	}
}

// ExportBatch exports up to BatchSize settled options as one object and
// returns how many it wrote. Options are only marked after the upload
// succeeds, so a failed run is retried in full.
func (e *Exporter) ExportBatch(ctx context.Context) (int, error) {
	options, err := e.store.ListUnarchived(ctx, e.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list settled options: %w", err)
	}
	if len(options) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	ids := make([]uint64, len(options))
	for i := range options {
		if err := enc.Encode(&options[i]); err != nil {
			return 0, fmt.Errorf("failed to encode option %d: %w", options[i].ID, err)
		}
		ids[i] = options[i].ID
	}

	at := e.now().UTC()
	key := e.objectKey(at, options[0].ID, options[len(options)-1].ID)
	if err := e.writer.Put(ctx, key, &buf, contentType); err != nil {
		return 0, err
	}
	if err := e.store.MarkArchived(ctx, ids, at); err != nil {
		return 0, fmt.Errorf("uploaded %s but failed to mark options archived: %w", key, err)
	}

	e.metrics.AddArchived(len(ids))
	e.logger.Info("archived settled options", map[string]interface{}{
		"key":   key,
		"count": len(ids),
	})
	return len(ids), nil
}

// ExportAll drains the backlog batch by batch.
func (e *Exporter) ExportAll(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := e.ExportBatch(ctx)
		total += n
		if err != nil || n < e.cfg.BatchSize {
			return total, err
		}
	}
}

func (e *Exporter) objectKey(at time.Time, first, last uint64) string {
	prefix := strings.Trim(e.cfg.Prefix, "/")
	key := fmt.Sprintf("%s/options-%d-%d-%d.jsonl", at.Format("2006/01/02"), first, last, at.Unix())
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// Run exports once immediately and then on every tick until ctx is done.
func (e *Exporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	e.export(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.export(ctx)
		}
	}
}

func (e *Exporter) export(ctx context.Context) {
	if _, err := e.ExportAll(ctx); err != nil && ctx.Err() == nil {
		e.logger.Error(err, map[string]interface{}{"action": "archive_settled"})
	}
}
