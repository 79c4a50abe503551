package fileio_test

import (
	"bytes"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/gogpu/rhi/fileio"
)

// writeTempFile writes content to a temp file and returns its path.
func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

// TestReadAsync verifies a full read lands in the destination buffer
// and the callback sees success.
func TestReadAsync(t *testing.T) {
	l := fileio.Init(2)
	defer l.Shutdown()

	content := make([]byte, 4096)
	for i := range content {
		content[i] = byte(i)
	}
	path := writeTempFile(t, content)

	dest := make([]byte, 4096)
	var cbSuccess atomic.Bool
	id := l.ReadAsync(fileio.ReadRequest{
		FilePath: path,
		Dest:     dest,
		OnComplete: func(success bool, bytesRead int64) {
			cbSuccess.Store(success && bytesRead == 4096)
		},
	})

	if !l.WaitForRequest(id) {
		t.Fatal("request reported failure")
	}
	if !cbSuccess.Load() {
		t.Error("callback did not see success with full byte count")
	}
	if !bytes.Equal(dest, content) {
		t.Error("destination does not match file content")
	}
	if !l.IsComplete(id) {
		t.Error("IsComplete false after wait")
	}
}

// TestReadAtOffset verifies offset reads.
func TestReadAtOffset(t *testing.T) {
	l := fileio.Init(1)
	defer l.Shutdown()

	content := []byte("0123456789abcdef")
	path := writeTempFile(t, content)

	dest := make([]byte, 6)
	id := l.ReadAsync(fileio.ReadRequest{
		FilePath: path,
		Offset:   10,
		Size:     6,
		Dest:     dest,
	})
	if !l.WaitForRequest(id) {
		t.Fatal("offset read failed")
	}
	if string(dest) != "abcdef" {
		t.Errorf("dest = %q, want %q", dest, "abcdef")
	}
}

// TestReadFailure verifies a missing file marks the request failed with
// zero bytes and other requests keep completing.
func TestReadFailure(t *testing.T) {
	l := fileio.Init(2)
	defer l.Shutdown()

	var failedBytes atomic.Int64
	failedBytes.Store(-1)
	badID := l.ReadAsync(fileio.ReadRequest{
		FilePath: filepath.Join(t.TempDir(), "does-not-exist.bin"),
		Dest:     make([]byte, 16),
		OnComplete: func(success bool, bytesRead int64) {
			if !success {
				failedBytes.Store(bytesRead)
			}
		},
	})

	goodPath := writeTempFile(t, []byte("payload!"))
	goodDest := make([]byte, 8)
	goodID := l.ReadAsync(fileio.ReadRequest{FilePath: goodPath, Dest: goodDest})

	if l.WaitForRequest(badID) {
		t.Error("missing file reported success")
	}
	if failedBytes.Load() != 0 {
		t.Errorf("failed callback bytesRead = %d, want 0", failedBytes.Load())
	}
	if !l.WaitForRequest(goodID) {
		t.Error("good request failed alongside bad one")
	}
	if string(goodDest) != "payload!" {
		t.Errorf("good dest = %q", goodDest)
	}

	stats := l.GetStats()
	if stats.FailedRequests != 1 {
		t.Errorf("failed requests = %d, want 1", stats.FailedRequests)
	}
}

// TestWaitForAll verifies all outstanding requests complete.
func TestWaitForAll(t *testing.T) {
	l := fileio.Init(4)
	defer l.Shutdown()

	content := make([]byte, 1024)
	path := writeTempFile(t, content)

	const n = 32
	var completed atomic.Int64
	for i := 0; i < n; i++ {
		l.ReadAsync(fileio.ReadRequest{
			FilePath: path,
			Dest:     make([]byte, 1024),
			OnComplete: func(success bool, _ int64) {
				if success {
					completed.Add(1)
				}
			},
		})
	}
	l.WaitForAll()

	if completed.Load() != n {
		t.Errorf("completed = %d, want %d", completed.Load(), n)
	}
	stats := l.GetStats()
	if stats.CompletedRequests != n {
		t.Errorf("stats completed = %d, want %d", stats.CompletedRequests, n)
	}
	if stats.TotalBytesRead != n*1024 {
		t.Errorf("bytes read = %d, want %d", stats.TotalBytesRead, n*1024)
	}
}

// TestShortRead verifies reading past the end of the file fails rather
// than silently succeeding.
func TestShortRead(t *testing.T) {
	l := fileio.Init(1)
	defer l.Shutdown()

	path := writeTempFile(t, []byte("tiny"))
	id := l.ReadAsync(fileio.ReadRequest{
		FilePath: path,
		Dest:     make([]byte, 64),
	})
	if l.WaitForRequest(id) {
		t.Error("short read reported success")
	}
}
