package main

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func TestPrintResultEncodesHexAndLogs(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()

	if err := printResult(f, "call-1", 42, []byte("ok"), []string{"hello"}); err != nil {
		t.Fatalf("printResult: %v", err)
	}

	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var got callOutput
	if err := json.Unmarshal(bytes.TrimSpace(data), &got); err != nil {
		t.Fatalf("Unmarshal: %v\n%s", err, data)
	}
	if got.CallID != "call-1" || got.Height != 42 || got.Result != "6f6b" {
		t.Fatalf("got %+v", got)
	}
	if len(got.Logs) != 1 || got.Logs[0] != "hello" {
		t.Fatalf("got logs %v", got.Logs)
	}
}
