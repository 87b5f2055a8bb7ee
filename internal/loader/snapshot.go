package loader

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ecommerce-dashboard/internal/models"
)

const snapshotVersion = "v2"

var snapshotNameReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "?", "_", "&", "_", "=", "_")

type snapshot struct {
	Source    string
	FetchedAt time.Time
	Records   []models.Record
}

func (l *Loader) snapshotPath(source string) string {
	return filepath.Join(l.snapshotDir, snapshotNameReplacer.Replace(source)+"_"+snapshotVersion+".gob")
}

func (l *Loader) writeSnapshot(source string, records []models.Record) error {
	if l.snapshotDir == "" || l.snapshotMaxAge <= 0 {
		return nil
	}
	if err := os.MkdirAll(l.snapshotDir, 0755); err != nil {
		return err
	}

	// Write to a temp file first so a crash never leaves a truncated snapshot.
	tmp, err := os.CreateTemp(l.snapshotDir, "snapshot-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	snap := snapshot{Source: source, FetchedAt: time.Now(), Records: records}
	if err := gob.NewEncoder(tmp).Encode(&snap); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), l.snapshotPath(source))
}

func (l *Loader) readSnapshot(source string) (*snapshot, error) {
	if l.snapshotDir == "" {
		return nil, os.ErrNotExist
	}
	file, err := os.Open(l.snapshotPath(source))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
