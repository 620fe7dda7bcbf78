package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/toastd/internal/model"
)

// SchemaVersion is the current persistence schema version.
const SchemaVersion = 1

// maxLineSize bounds a single JSONL record.
const maxLineSize = 1024 * 1024

// ErrPersistenceClosed is returned when operations are attempted on a closed persistence.
var ErrPersistenceClosed = errors.New("persistence is closed")

// Persistence defines the interface for history storage.
type Persistence interface {
	// Load reads all entries from storage.
	Load() ([]model.HistoryEntry, error)

	// Append adds an entry to storage.
	Append(e model.HistoryEntry) error

	// AppendBatch adds multiple entries efficiently.
	AppendBatch(es []model.HistoryEntry) error

	// Rewrite replaces the entire storage file (used after prune).
	Rewrite(es []model.HistoryEntry) error

	// Clear removes all stored entries.
	Clear() error

	// Close releases file handles and resources.
	Close() error
}

// schemaHeader is the first line of the JSONL file.
type schemaHeader struct {
	ToastdSchemaVersion int   `json:"toastd_schema_version"`
	CreatedAt           int64 `json:"created_at"`
}

// JSONLPersistence implements Persistence using a JSONL file. Several
// processes may share the file: Load always reads the current file from disk,
// and appends follow the path if another process replaced it.
type JSONLPersistence struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	closed bool
}

// NewJSONLPersistence creates a new JSONLPersistence.
// Creates the file if it doesn't exist.
func NewJSONLPersistence(path string) (*JSONLPersistence, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	p := &JSONLPersistence{path: path}
	if err := p.openLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

// Path returns the file backing this persistence.
func (p *JSONLPersistence) Path() string {
	return p.path
}

// openLocked opens the file for appending and writes a header if it is empty.
func (p *JSONLPersistence) openLocked() error {
	file, err := os.OpenFile(p.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", p.path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}

	p.file = file
	if info.Size() == 0 {
		if err := p.writeHeaderLocked(); err != nil {
			file.Close()
			p.file = nil
			return err
		}
	}
	return nil
}

// reopenIfReplacedLocked reopens the path when another process renamed or
// rewrote the file under us.
func (p *JSONLPersistence) reopenIfReplacedLocked() error {
	onDisk, err := os.Stat(p.path)
	if err == nil && p.file != nil {
		if open, err := p.file.Stat(); err == nil && os.SameFile(onDisk, open) {
			return nil
		}
	}
	if p.file != nil {
		p.file.Close()
		p.file = nil
	}
	return p.openLocked()
}

func (p *JSONLPersistence) writeHeaderLocked() error {
	header := schemaHeader{
		ToastdSchemaVersion: SchemaVersion,
		CreatedAt:           time.Now().Unix(),
	}

	data, err := json.Marshal(header)
	if err != nil {
		return err
	}

	_, err = p.file.Write(append(data, '\n'))
	return err
}

// Load reads all entries from the file. Malformed lines are skipped.
func (p *JSONLPersistence) Load() ([]model.HistoryEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPersistenceClosed
	}

	file, err := os.Open(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", p.path, err)
	}
	defer file.Close()

	return readEntries(file, true)
}

// readEntries parses a JSONL stream. With strict set, a header from a newer
// schema is an error.
func readEntries(r io.Reader, strict bool) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var header schemaHeader
		if json.Unmarshal(line, &header) == nil && header.ToastdSchemaVersion > 0 {
			if strict && header.ToastdSchemaVersion > SchemaVersion {
				return nil, fmt.Errorf("unsupported schema version %d (max: %d)",
					header.ToastdSchemaVersion, SchemaVersion)
			}
			continue
		}

		var e model.HistoryEntry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		if e.Validate() == nil {
			entries = append(entries, e)
		}
	}

	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("error reading file: %w", err)
	}
	return entries, nil
}

// Append adds an entry to storage.
func (p *JSONLPersistence) Append(e model.HistoryEntry) error {
	return p.AppendBatch([]model.HistoryEntry{e})
}

// AppendBatch adds multiple entries with a single sync.
func (p *JSONLPersistence) AppendBatch(es []model.HistoryEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPersistenceClosed
	}
	if err := p.reopenIfReplacedLocked(); err != nil {
		return err
	}

	if err := p.writeEntriesLocked(es); err != nil {
		return err
	}
	return p.file.Sync()
}

func (p *JSONLPersistence) writeEntriesLocked(es []model.HistoryEntry) error {
	w := bufio.NewWriter(p.file)
	for _, e := range es {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Rewrite replaces the file contents, keeping a .bak copy until the new file
// is synced.
func (p *JSONLPersistence) Rewrite(es []model.HistoryEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPersistenceClosed
	}

	backupPath, err := p.truncateLocked()
	if err != nil {
		return err
	}

	if err := p.writeEntriesLocked(es); err != nil {
		return err
	}
	if err := p.file.Sync(); err != nil {
		return err
	}

	os.Remove(backupPath)
	return nil
}

// Clear removes all stored entries. The previous file is kept as .bak.
func (p *JSONLPersistence) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPersistenceClosed
	}

	if _, err := p.truncateLocked(); err != nil {
		return err
	}
	return p.file.Sync()
}

// truncateLocked moves the current file to a backup and starts a fresh one
// containing only the header.
func (p *JSONLPersistence) truncateLocked() (string, error) {
	if p.file != nil {
		if err := p.file.Close(); err != nil {
			return "", err
		}
		p.file = nil
	}

	backupPath := p.path + ".bak"
	if err := os.Rename(p.path, backupPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}

	file, err := os.OpenFile(p.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0600)
	if err != nil {
		os.Rename(backupPath, p.path)
		return "", fmt.Errorf("failed to create new file: %w", err)
	}
	p.file = file

	if err := p.writeHeaderLocked(); err != nil {
		return "", err
	}
	return backupPath, nil
}

// Close releases file handles and resources.
func (p *JSONLPersistence) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.file != nil {
		err := p.file.Close()
		p.file = nil
		return err
	}
	return nil
}

// RecoverFromCorruption moves a damaged file aside and rewrites it with only
// the entries that still parse.
func RecoverFromCorruption(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	valid, _ := readEntries(file, false)
	file.Close()

	backupPath := path + ".corrupted." + time.Now().Format("20060102-150405")
	if err := os.Rename(path, backupPath); err != nil {
		return fmt.Errorf("failed to backup corrupted file: %w", err)
	}

	p, err := NewJSONLPersistence(path)
	if err != nil {
		return err
	}
	defer p.Close()

	return p.AppendBatch(valid)
}
