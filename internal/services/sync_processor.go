package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"khidma/internal/core"
	"khidma/internal/ports"
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for unsynced collections (default: 1m)
	PollInterval time.Duration

	// BatchSize is the max number of collections mirrored per cycle (default: 50)
	BatchSize int
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: time.Minute,
		BatchSize:    50,
	}
}

// SyncStore is the part of the store the sync processor needs.
type SyncStore interface {
	ListUnsynced(ctx context.Context, limit int) ([]core.Collection, error)
	MarkSynced(ctx context.Context, id string, at time.Time) error
	ListSponsors(ctx context.Context, activeOnly bool) ([]core.Sponsor, error)
	ListOperators(ctx context.Context) ([]core.Operator, error)
}

// SyncProcessor mirrors collections without synced_at to the spreadsheet.
type SyncProcessor struct {
	storage SyncStore
	sheets  ports.SheetWriter
	config  SyncProcessorConfig
	now     func() time.Time

	// batchMu serializes ProcessBatch between the poll loop and the
	// queue consumer so a row is never appended twice.
	batchMu sync.Mutex

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncProcessor creates a new sync processor
func NewSyncProcessor(storage SyncStore, sheetsWriter ports.SheetWriter, config SyncProcessorConfig) *SyncProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultSyncProcessorConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSyncProcessorConfig().BatchSize
	}
	return &SyncProcessor{
		storage: storage,
		sheets:  sheetsWriter,
		config:  config,
		now:     time.Now,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on startup
	p.runBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runBatch(ctx)
		}
	}
}

func (p *SyncProcessor) runBatch(ctx context.Context) {
	if _, err := p.ProcessBatch(ctx); err != nil {
		slog.ErrorContext(ctx, "Sync batch failed", "error", err)
	}
}

// ProcessBatch appends one batch of unsynced collections to the sheet and
// marks them synced. It returns how many rows were mirrored.
func (p *SyncProcessor) ProcessBatch(ctx context.Context) (int, error) {
	p.batchMu.Lock()
	defer p.batchMu.Unlock()

	cols, err := p.storage.ListUnsynced(ctx, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list unsynced: %w", err)
	}
	if len(cols) == 0 {
		return 0, nil
	}
	rows, err := p.SheetRows(ctx, cols)
	if err != nil {
		return 0, err
	}

	ref, err := p.sheets.AppendRows(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("append to sheets: %w", err)
	}

	at := p.now().UTC()
	synced := 0
	for _, c := range cols {
		if err := p.storage.MarkSynced(ctx, c.ID, at); err != nil {
			// the row is in the sheet; it will be appended again next cycle
			slog.WarnContext(ctx, "Failed to mark collection as synced",
				"collection_id", c.ID, "error", err)
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Synced collections to Google Sheets",
		"count", synced,
		"sheets_ref", ref)

	return synced, nil
}

// SheetRows resolves sponsor and operator names for the collections.
func (p *SyncProcessor) SheetRows(ctx context.Context, cols []core.Collection) ([]ports.SheetRow, error) {
	return sheetRows(ctx, p.storage, cols)
}

// nameSource is what sheetRows needs to resolve ids into names.
type nameSource interface {
	ListSponsors(ctx context.Context, activeOnly bool) ([]core.Sponsor, error)
	ListOperators(ctx context.Context) ([]core.Operator, error)
}

func sheetRows(ctx context.Context, src nameSource, cols []core.Collection) ([]ports.SheetRow, error) {
	sponsors, err := src.ListSponsors(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("load sponsors: %w", err)
	}
	ops, err := src.ListOperators(ctx)
	if err != nil {
		return nil, fmt.Errorf("load operators: %w", err)
	}
	sponsorNames := make(map[string]string, len(sponsors))
	for _, s := range sponsors {
		sponsorNames[s.ID] = s.Name
	}
	opNames := make(map[string]string, len(ops))
	for _, o := range ops {
		opNames[o.ID] = o.Name
	}

	rows := make([]ports.SheetRow, len(cols))
	for i, c := range cols {
		rows[i] = ports.SheetRow{
			CollectionID: c.ID,
			Month:        c.Month.String(),
			SponsorName:  sponsorNames[c.SponsorID],
			Amount:       c.Amount,
			Fixed:        c.Fixed,
			Extra:        c.Extra,
			Sadaqat:      c.Sadaqat,
			Method:       c.Method,
			ReceivedBy:   opNames[c.ReceivedBy],
			Notes:        c.Notes,
		}
	}
	return rows, nil
}
