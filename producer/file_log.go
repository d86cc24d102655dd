package producer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// fileLog is the durable append log backing the outbox. In
// steady state its contents track the in-memory queue exactly: Rewrite is
// called on every enqueue/dequeue so a crash never loses or duplicates a
// line relative to what the queue believes is outstanding.
type fileLog struct {
	path            string
	maxSizeBytes    int64
	retainedBackups int
	logger          *slog.Logger
}

func newFileLog(path string, maxFileSizeMB, retainedBackups int, logger *slog.Logger) *fileLog {
	if maxFileSizeMB <= 0 {
		maxFileSizeMB = 100
	}
	if retainedBackups <= 0 {
		retainedBackups = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &fileLog{
		path:            path,
		maxSizeBytes:    int64(maxFileSizeMB) * 1024 * 1024,
		retainedBackups: retainedBackups,
		logger:          logger,
	}
}

// Load replays outbox.log at startup: each line must
// parse as a JSON object, malformed lines are skipped and logged, and the
// file is rotated first if it exceeds twice the size threshold to bound
// memory while loading.
func (f *fileLog) Load() ([]json.RawMessage, error) {
	info, err := os.Stat(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if info.Size() > 2*f.maxSizeBytes {
		if err := f.rotate(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []json.RawMessage
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var probe map[string]any
		if err := json.Unmarshal([]byte(line), &probe); err != nil {
			f.logger.Warn("skipping malformed outbox line",
				"event", "producer_outbox_malformed_line",
				"module", "producer",
				"layer", "adapter",
				"error", err.Error(),
			)
			continue
		}
		entries = append(entries, json.RawMessage(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, os.Truncate(f.path, 0)
}

// Rewrite replaces outbox.log's contents with entries, rotating the
// previous file first if it would otherwise exceed max_file_size.
func (f *fileLog) Rewrite(entries []json.RawMessage) error {
	var buf strings.Builder
	for _, e := range entries {
		buf.Write(e)
		buf.WriteByte('\n')
	}
	if int64(buf.Len()) > f.maxSizeBytes {
		if err := f.rotate(); err != nil {
			return err
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(buf.String()), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *fileLog) rotate() error {
	if _, err := os.Stat(f.path); os.IsNotExist(err) {
		return nil
	}
	backup := fmt.Sprintf("%s.%d.log.bak", strings.TrimSuffix(f.path, filepath.Ext(f.path)), time.Now().UnixNano())
	if err := os.Rename(f.path, backup); err != nil {
		return err
	}
	return f.pruneBackups()
}

func (f *fileLog) pruneBackups() error {
	dir := filepath.Dir(f.path)
	base := strings.TrimSuffix(filepath.Base(f.path), filepath.Ext(f.path))
	matches, err := filepath.Glob(filepath.Join(dir, base+".*.log.bak"))
	if err != nil {
		return err
	}
	if len(matches) <= f.retainedBackups {
		return nil
	}
	sort.Strings(matches)
	stale := matches[:len(matches)-f.retainedBackups]
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return nil
}
