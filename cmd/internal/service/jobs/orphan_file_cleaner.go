package jobs

import (
	"context"
	"time"

	"github.com/katarianikita2003/ClickNotes/cmd/internal/config"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/infrastructure/storage"

	"github.com/labstack/gommon/log"
)

const (
	DefaultCleanInterval = config.DefaultOrphanSweepInterval
	DefaultGracePeriod   = config.DefaultOrphanGracePeriod
)

type NoteFileIndex interface {
	FileKeys(ctx context.Context) ([]string, error)
}

// OrphanFileCleaner removes stored files that no note references. Files
// younger than the grace period are left alone, since an upload may still be
// between saving its file and saving its note.
type OrphanFileCleaner struct {
	notes    NoteFileIndex
	files    storage.FileStore
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
}

func NewOrphanFileCleaner(notes NoteFileIndex, files storage.FileStore, interval, grace time.Duration) *OrphanFileCleaner {
	if interval <= 0 {
		interval = DefaultCleanInterval
	}
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	return &OrphanFileCleaner{
		notes:    notes,
		files:    files,
		interval: interval,
		grace:    grace,
		now:      time.Now,
	}
}

func (o *OrphanFileCleaner) Start(ctx context.Context) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	log.Info("Orphan file cleaner cron started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping orphan file cleaner...")
			return
		case <-ticker.C:
			o.cleanup(ctx)
		}
	}
}

// cleanup returns how many files were removed.
func (o *OrphanFileCleaner) cleanup(ctx context.Context) int {
	objects, err := o.files.List(ctx)
	if err != nil {
		log.Errorf("Cleaner: failed to list stored files: %v", err)
		return 0
	}

	// Listing first means a note saved after this point always references
	// a file that is either in the set below or too young to be touched.
	keys, err := o.notes.FileKeys(ctx)
	if err != nil {
		log.Errorf("Cleaner: failed to fetch referenced files: %v", err)
		return 0
	}

	referenced := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		referenced[key] = struct{}{}
	}

	cutoff := o.now().Add(-o.grace)
	removed := 0
	for _, obj := range objects {
		if _, ok := referenced[obj.Key]; ok || obj.ModTime.After(cutoff) {
			continue
		}

		if err = o.files.Delete(ctx, obj.Key); err != nil {
			log.Errorf("Cleaner: failed to delete orphaned file %q: %v", obj.Key, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Infof("Cleaner: removed %d orphaned files", removed)
	}
	return removed
}
