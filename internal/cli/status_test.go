package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type cursorRow struct {
	id       string
	chain    string
	webhooks int64
	emails   int64
}

// fakeRows walks a fixed result set and can fail at a given row or at
// the end of iteration.
type fakeRows struct {
	rows    []cursorRow
	scanErr error
	iterErr error

	idx int
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.rows[r.idx-1]
	*dest[0].(*string) = row.id
	*dest[1].(*string) = row.chain
	*dest[2].(*int64) = row.webhooks
	*dest[3].(*int64) = row.emails
	return nil
}

func (r *fakeRows) Err() error {
	return r.iterErr
}

func TestWriteCursorTable(t *testing.T) {
	rows := &fakeRows{rows: []cursorRow{
		{id: "c-1", chain: "eth", webhooks: 3, emails: 1},
		{id: "c-2", chain: "flow", webhooks: 0, emails: 2},
	}}

	var out bytes.Buffer
	if err := writeCursorTable(&out, rows); err != nil {
		t.Fatalf("writeCursorTable() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{"CURSOR", "c-1", "eth", "c-2", "flow"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestWriteCursorTableScanError(t *testing.T) {
	rows := &fakeRows{
		rows:    []cursorRow{{id: "c-1", chain: "eth"}},
		scanErr: errors.New("invalid column type"),
	}

	var out bytes.Buffer
	err := writeCursorTable(&out, rows)
	if err == nil {
		t.Fatal("expected scan error to surface")
	}
	if !strings.Contains(err.Error(), "failed to scan cursor row") {
		t.Errorf("error = %v, want scan context", err)
	}
}

func TestWriteCursorTableIterationError(t *testing.T) {
	rows := &fakeRows{
		rows:    []cursorRow{{id: "c-1", chain: "eth"}},
		iterErr: errors.New("connection reset"),
	}

	var out bytes.Buffer
	err := writeCursorTable(&out, rows)
	if err == nil {
		t.Fatal("expected iteration error to surface")
	}
	if !strings.Contains(err.Error(), "failed to iterate cursor rows") {
		t.Errorf("error = %v, want iteration context", err)
	}
}
