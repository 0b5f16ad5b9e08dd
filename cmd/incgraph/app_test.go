package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"incgraph/internal/changeset"
	"incgraph/internal/config"
	"incgraph/internal/logging"
)

func TestAppServesInitialRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.cpp"), []byte("#include \"b.h\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var console bytes.Buffer
	cfg := Config{
		Root:          root,
		Port:          0,
		RelayCapacity: 8,
		ScanWorkers:   2,
		TreeSize:      16,
		NoColor:       true,
	}
	instance, err := newApp(cfg, logging.Discard(), &console)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- instance.Serve(ctx)
	}()

	addr := instance.Addr()
	if strings.HasPrefix(addr, "[::]") || strings.HasPrefix(addr, "0.0.0.0") {
		addr = "127.0.0.1" + addr[strings.LastIndex(addr, ":"):]
	}
	url := "http://" + addr + "/api/files"

	var files []changeset.FileMetadata
	deadline := time.Now().Add(3 * time.Second)
	for len(files) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("initial batch never reached the file view")
		}
		resp, err := http.Get(url)
		if err == nil {
			var payload struct {
				Files []changeset.FileMetadata `json:"files"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&payload)
			resp.Body.Close()
			files = payload.Files
		}
		if len(files) == 0 {
			time.Sleep(20 * time.Millisecond)
		}
	}
	if len(files) != 1 || files[0].Key != filepath.ToSlash(filepath.Join(root, "a.cpp")) {
		t.Fatalf("unexpected files %+v", files)
	}
	if _, err := os.Stat(filepath.Join(root, config.FileName)); err != nil {
		t.Fatalf("expected sidecar created: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	if !strings.Contains(console.String(), "a.cpp") {
		t.Fatalf("expected console output for a.cpp, got %q", console.String())
	}
}
