// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sim

import (
	"encoding/csv"
	"os"

	"grimm.is/flowsim/internal/errors"
)

// resultWriter writes rows to a CSV sink. Only the coordinator touches
// it, so no locking is needed.
type resultWriter struct {
	file   *os.File
	csv    *csv.Writer
	rows   int
	closed bool
}

func newResultWriter(path string) (*resultWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "create output file %s", path)
	}
	w := &resultWriter{file: f, csv: csv.NewWriter(f)}
	if err := w.csv.Write(Header); err != nil {
		f.Close()
		return nil, errors.Wrap(err, errors.KindInternal, "write CSV header")
	}
	return w, nil
}

func (w *resultWriter) Write(row Row) error {
	if err := w.csv.Write(row.Strings()); err != nil {
		return errors.Wrap(err, errors.KindInternal, "write CSV row")
	}
	w.rows++
	return nil
}

// Close is idempotent so it can back both the error paths (deferred) and
// the happy path (checked).
func (w *resultWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.csv.Flush()
	flushErr := w.csv.Error()
	closeErr := w.file.Close()
	if flushErr != nil {
		return errors.Wrap(flushErr, errors.KindInternal, "flush CSV output")
	}
	if closeErr != nil {
		return errors.Wrap(closeErr, errors.KindInternal, "close CSV output")
	}
	return nil
}
