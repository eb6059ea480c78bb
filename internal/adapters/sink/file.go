package sink

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/domain"
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/ports"
)

// File encodings.
const (
	FileFormatJSONL = "jsonl"
	FileFormatCSV   = "csv"
)

const csvFieldSep = "_"

// FileSink appends one record per write to a device-type-specific
// file. JSONL writes line-delimited objects; CSV flattens nested
// fields and writes a header only when a type's file is first created.
type FileSink struct {
	mu      sync.Mutex
	dir     string
	format  string
	handles map[domain.DeviceType]*os.File
	// CSV columns are fixed by the first record of each device type.
	headers map[domain.DeviceType][]string
}

func NewFileSink(dir, format string) (*FileSink, error) {
	switch format {
	case FileFormatJSONL, FileFormatCSV:
	default:
		return nil, fmt.Errorf("file sink: unknown format %q", format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file sink: create %s: %w", dir, err)
	}
	return &FileSink{
		dir:     dir,
		format:  format,
		handles: make(map[domain.DeviceType]*os.File),
		headers: make(map[domain.DeviceType][]string),
	}, nil
}

func (f *FileSink) Name() string { return "file" }

func (f *FileSink) Write(rec *domain.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.format {
	case FileFormatJSONL:
		return f.writeJSONL(rec)
	case FileFormatCSV:
		return f.writeCSV(rec)
	}
	return nil
}

func (f *FileSink) writeJSONL(rec *domain.Record) error {
	file, _, err := f.open(rec.DeviceType, "jsonl")
	if err != nil {
		return err
	}
	enc, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = file.Write(append(enc, '\n'))
	return err
}

func (f *FileSink) writeCSV(rec *domain.Record) error {
	file, created, err := f.open(rec.DeviceType, "csv")
	if err != nil {
		return err
	}

	keys, vals := rec.Flatten(csvFieldSep)
	w := csv.NewWriter(file)

	if created {
		f.headers[rec.DeviceType] = keys
		if err := w.Write(keys); err != nil {
			return err
		}
	} else if header := f.headers[rec.DeviceType]; header != nil {
		vals = alignRow(header, keys, vals)
	}

	if err := w.Write(vals); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// alignRow reorders values to the established header, substituting the
// unavailable placeholder for columns the record does not carry.
func alignRow(header, keys, vals []string) []string {
	byKey := make(map[string]string, len(keys))
	for i, k := range keys {
		byKey[k] = vals[i]
	}
	out := make([]string, len(header))
	for i, col := range header {
		if v, ok := byKey[col]; ok {
			out[i] = v
		} else {
			out[i] = domain.Unavailable
		}
	}
	return out
}

func (f *FileSink) open(dt domain.DeviceType, ext string) (*os.File, bool, error) {
	if file, ok := f.handles[dt]; ok {
		return file, false, nil
	}

	path := filepath.Join(f.dir, fmt.Sprintf("%s_data.%s", dt, ext))
	_, statErr := os.Stat(path)
	created := errors.Is(statErr, os.ErrNotExist)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("file sink: open %s: %w", path, err)
	}
	f.handles[dt] = file
	return file, created, nil
}

func (f *FileSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for dt, file := range f.handles {
		if err := file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s file: %w", dt, err))
		}
	}
	f.handles = make(map[domain.DeviceType]*os.File)
	return errors.Join(errs...)
}

var _ ports.Sink = (*FileSink)(nil)
