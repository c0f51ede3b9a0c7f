package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Snapshot file names under the data directory.
const (
	activitiesFile = "activities.json"
	segmentsFile   = "segments.json"
	recordsFile    = "records.json"
)

// Snapshots persists the three caches as whole-file JSON snapshots. Each
// save replaces the entire file via write-then-replace, so a crash mid-cycle
// leaves the previous snapshot intact. A missing or malformed file loads as
// an empty cache and is rebuilt from the API (never surfaced to the user).
type Snapshots struct {
	dir string
	log zerolog.Logger
}

// NewSnapshots creates a snapshot store rooted at dir.
func NewSnapshots(dir string, log zerolog.Logger) *Snapshots {
	return &Snapshots{dir: dir, log: log.With().Str("component", "cache").Logger()}
}

// LoadActivities reads the activity cache.
func (s *Snapshots) LoadActivities() []Activity {
	var activities []Activity
	s.load(activitiesFile, &activities)
	return activities
}

// SaveActivities replaces the activity cache snapshot.
func (s *Snapshots) SaveActivities(activities []Activity) error {
	return s.save(activitiesFile, activities)
}

// LoadSegments reads the segment cache.
func (s *Snapshots) LoadSegments() []Segment {
	var segments []Segment
	s.load(segmentsFile, &segments)
	return segments
}

// SaveSegments replaces the segment cache snapshot.
func (s *Snapshots) SaveSegments(segments []Segment) error {
	return s.save(segmentsFile, segments)
}

// LoadRecords reads the personal-best table. Always returns a usable table.
func (s *Snapshots) LoadRecords() RecordTable {
	records := make(RecordTable)
	s.load(recordsFile, &records)
	if records == nil {
		records = make(RecordTable)
	}
	return records
}

// SaveRecords replaces the record table snapshot.
func (s *Snapshots) SaveRecords(records RecordTable) error {
	return s.save(recordsFile, records)
}

func (s *Snapshots) load(name string, out any) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("file", name).Msg("cache file unreadable, starting empty")
		}
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.log.Warn().Err(err).Str("file", name).Msg("cache file malformed, starting empty")
	}
}

func (s *Snapshots) save(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, "."+name+"-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}
