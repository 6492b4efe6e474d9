package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

type memoryLedger struct {
	dump     string
	imported []byte
}

func (m *memoryLedger) String() string { return m.dump }

func (m *memoryLedger) Import(jsonData []byte) error {
	m.imported = jsonData
	return nil
}

func TestExportLedger(t *testing.T) {
	c := qt.New(t)
	out := &bytes.Buffer{}
	c.Assert(exportLedger(&memoryLedger{dump: `{"purchases":[]}`}, out), qt.IsNil)
	c.Assert(out.String(), qt.Equals, "{\"purchases\":[]}\n")
}

func TestImportLedger(t *testing.T) {
	c := qt.New(t)
	file := filepath.Join(c.TempDir(), "ledger.json")
	dump := []byte(`{"purchases":[{"sessionId":"cs_test_1","pixels":100}]}`)
	c.Assert(os.WriteFile(file, dump, 0o600), qt.IsNil)

	l := &memoryLedger{}
	c.Assert(importLedger(l, file), qt.IsNil)
	c.Assert(l.imported, qt.DeepEquals, dump)

	c.Assert(importLedger(l, filepath.Join(c.TempDir(), "missing.json")), qt.ErrorIs, os.ErrNotExist)
}
