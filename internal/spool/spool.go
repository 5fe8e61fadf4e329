// Package spool implements the relay's durable fallback store as a
// directory of record files.
//
// Each spilled payload becomes one file named by a zero-padded sequence
// number, so lexical directory order equals insertion order and the oldest
// pending record is simply the first name. Appends go through a temp file
// and a rename, so a crash mid-write never leaves a truncated record
// visible. Reopening a directory resumes the sequence after the highest
// existing record.
package spool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hyp3rd/ewrap"
)

const (
	recordSuffix = ".rec"
	tempSuffix   = ".tmp"
	// sequenceDigits pads record names so lexical and numeric order agree.
	sequenceDigits = 20

	dirMode  = 0o700
	fileMode = 0o600
)

// Spool is a file-backed FIFO store for spilled telemetry payloads. All
// methods are safe for concurrent use, though the relay drives it from a
// single goroutine in practice.
type Spool struct {
	mu      sync.Mutex
	dir     string
	nextSeq uint64
	closed  bool
}

// Open creates or reopens a spool at the given directory, creating it if
// missing. Existing records are preserved and the sequence counter resumes
// after the highest record found.
func Open(dir string) (*Spool, error) {
	if dir == "" {
		return nil, ewrap.New("spool directory is required")
	}

	err := os.MkdirAll(dir, dirMode)
	if err != nil {
		return nil, ewrap.Wrapf(err, "creating spool directory").
			WithMetadata("dir", dir)
	}

	names, err := recordNames(dir)
	if err != nil {
		return nil, err
	}

	var nextSeq uint64

	if len(names) > 0 {
		last := names[len(names)-1]

		seq, err := parseSequence(last)
		if err != nil {
			return nil, ewrap.Wrap(err, "recovering spool sequence").
				WithMetadata("record", last)
		}

		nextSeq = seq + 1
	}

	return &Spool{
		dir:     dir,
		nextSeq: nextSeq,
	}, nil
}

// Append persists one payload as a new record and returns its identifier.
// The record is fsynced before it becomes visible under its final name.
func (s *Spool) Append(ctx context.Context, data []byte) (string, error) {
	err := ctx.Err()
	if err != nil {
		return "", ewrap.Wrap(err, "append cancelled")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrSpoolClosed
	}

	id := fmt.Sprintf("%0*d%s", sequenceDigits, s.nextSeq, recordSuffix)
	finalPath := filepath.Join(s.dir, id)
	tempPath := finalPath + tempSuffix

	err = writeRecord(tempPath, data)
	if err != nil {
		return "", err
	}

	err = os.Rename(tempPath, finalPath)
	if err != nil {
		removeErr := os.Remove(tempPath)
		if removeErr != nil && !os.IsNotExist(removeErr) {
			return "", ewrap.Wrapf(err, "publishing record").
				WithMetadata("path", finalPath).
				WithMetadata("cleanup_error", removeErr)
		}

		return "", ewrap.Wrapf(err, "publishing record").
			WithMetadata("path", finalPath)
	}

	s.nextSeq++

	return id, nil
}

// OldestPending returns the earliest record still in the spool. The boolean
// is false when the spool is empty.
func (s *Spool) OldestPending(ctx context.Context) (string, []byte, bool, error) {
	err := ctx.Err()
	if err != nil {
		return "", nil, false, ewrap.Wrap(err, "read cancelled")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", nil, false, ErrSpoolClosed
	}

	names, err := recordNames(s.dir)
	if err != nil {
		return "", nil, false, err
	}

	if len(names) == 0 {
		return "", nil, false, nil
	}

	id := names[0]

	data, err := os.ReadFile(filepath.Join(s.dir, id))
	if err != nil {
		return "", nil, false, ewrap.Wrapf(err, "reading record").
			WithMetadata("record", id)
	}

	return id, data, true, nil
}

// Delete removes a delivered record from the spool.
func (s *Spool) Delete(ctx context.Context, id string) error {
	err := ctx.Err()
	if err != nil {
		return ewrap.Wrap(err, "delete cancelled")
	}

	err = validateID(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSpoolClosed
	}

	err = os.Remove(filepath.Join(s.dir, id))
	if err != nil {
		return ewrap.Wrapf(err, "deleting record").
			WithMetadata("record", id)
	}

	return nil
}

// Pending returns the number of records awaiting delivery.
func (s *Spool) Pending() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSpoolClosed
	}

	names, err := recordNames(s.dir)
	if err != nil {
		return 0, err
	}

	return len(names), nil
}

// Close marks the spool as closed. Records on disk are left in place so a
// later Open can resume delivering them. Close is idempotent.
func (s *Spool) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

// recordNames lists the record files in dir in insertion order. os.ReadDir
// sorts by name, which matches sequence order because names are zero
// padded.
func recordNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ewrap.Wrapf(err, "listing spool directory").
			WithMetadata("dir", dir)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordSuffix) {
			continue
		}

		names = append(names, entry.Name())
	}

	return names, nil
}

// writeRecord writes data to path and fsyncs it before closing.
func writeRecord(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode)
	if err != nil {
		return ewrap.Wrapf(err, "creating record file").
			WithMetadata("path", path)
	}

	_, err = file.Write(data)
	if err == nil {
		err = file.Sync()
	}

	if err != nil {
		closeErr := file.Close()
		if closeErr != nil {
			return ewrap.Wrapf(err, "writing record file").
				WithMetadata("path", path).
				WithMetadata("close_error", closeErr)
		}

		return ewrap.Wrapf(err, "writing record file").
			WithMetadata("path", path)
	}

	err = file.Close()
	if err != nil {
		return ewrap.Wrapf(err, "closing record file").
			WithMetadata("path", path)
	}

	return nil
}

// validateID rejects identifiers that do not name a record in this spool's
// directory, including anything containing a path separator.
func validateID(id string) error {
	if id == "" || !strings.HasSuffix(id, recordSuffix) || filepath.Base(id) != id {
		return ewrap.Wrap(ErrInvalidRecordID, "validating record id").
			WithMetadata("id", id)
	}

	_, err := parseSequence(id)
	if err != nil {
		return ewrap.Wrap(ErrInvalidRecordID, "validating record id").
			WithMetadata("id", id)
	}

	return nil
}

// parseSequence extracts the numeric sequence from a record name.
func parseSequence(name string) (uint64, error) {
	digits := strings.TrimSuffix(name, recordSuffix)

	var seq uint64

	_, err := fmt.Sscanf(digits, "%d", &seq)
	if err != nil {
		return 0, ewrap.Wrapf(err, "parsing record sequence").
			WithMetadata("name", name)
	}

	return seq, nil
}
