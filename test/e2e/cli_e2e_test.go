//go:build e2e

// Package e2e contains end-to-end tests that build the real batchdigest
// binary and run it over temporary input files.
package e2e

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

var (
	buildOnce sync.Once
	binPath   string
	buildErr  error
	buildDir  string
)

// binary builds cmd/batchdigest once per test process.
func binary(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		buildDir, buildErr = os.MkdirTemp("", "batchdigest-e2e")
		if buildErr != nil {
			return
		}
		binPath = filepath.Join(buildDir, exeName("batchdigest"))
		build := exec.Command("go", "build", "-o", binPath, "batchdigest/cmd/batchdigest")
		build.Stdout = os.Stdout
		build.Stderr = os.Stderr
		buildErr = build.Run()
	})
	if buildErr != nil {
		t.Fatalf("failed to build batchdigest: %v", buildErr)
	}
	return binPath
}

func TestMain(m *testing.M) {
	code := m.Run()
	if buildDir != "" {
		_ = os.RemoveAll(buildDir)
	}
	os.Exit(code)
}

func exeName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

// run executes the binary with args and stdin, returning stdout and stderr.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command(binary(t), args...)
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func writeNumbers(t *testing.T, dir, name string, from, to int) string {
	t.Helper()
	var b strings.Builder
	for i := from; i < to; i++ {
		fmt.Fprintf(&b, "%d\n", i)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCLI_Histogram(t *testing.T) {
	dir := t.TempDir()
	writeNumbers(t, dir, "a.txt", 0, 50)
	writeNumbers(t, dir, "b.txt", 50, 100)

	for _, threads := range []string{"1", "4"} {
		t.Run("threads="+threads, func(t *testing.T) {
			out, stderr, err := run(t, "", "histogram", "--min", "0", "--max", "100", "--bins", "4",
				"--threads", threads, "--bundle-size", "7", filepath.Join(dir, "*.txt"))
			if err != nil {
				t.Fatalf("histogram failed: %v\n%s", err, stderr)
			}
			want := "[0]: 25\n[25]: 25\n[50]: 25\n[75]: 25\n"
			if out != want {
				t.Fatalf("histogram output:\n%s\nwant:\n%s", out, want)
			}
		})
	}
}

func TestCLI_CountStdin(t *testing.T) {
	out, stderr, err := run(t, "a\nb\nc\n", "count")
	if err != nil {
		t.Fatalf("count failed: %v\n%s", err, stderr)
	}
	if strings.TrimSpace(out) != "lines: 3" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestCLI_FreqGzip(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	fmt.Fprint(zw, "GET,/a\nPOST,/b\nGET,/c\nget,/d\n")
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "access.csv.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	out, stderr, err := run(t, "", "freq", "--field", "0", "--sep", ",", "--lower", "--top", "1", path)
	if err != nil {
		t.Fatalf("freq failed: %v\n%s", err, stderr)
	}
	if strings.TrimSpace(out) != "3 get" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestCLI_MissingFile(t *testing.T) {
	dir := t.TempDir()
	good := writeNumbers(t, dir, "good.txt", 0, 10)
	_, stderr, err := run(t, "", "count", good, filepath.Join(dir, "missing.txt"))
	if err == nil {
		t.Fatal("expected a non-zero exit for a missing file")
	}
	if !strings.Contains(stderr, "missing.txt") {
		t.Fatalf("stderr does not name the missing file:\n%s", stderr)
	}
}

func TestCLI_InvalidFlags(t *testing.T) {
	_, stderr, err := run(t, "", "count", "--threads", "0")
	if err == nil {
		t.Fatal("expected a non-zero exit for --threads 0")
	}
	if !strings.Contains(stderr, "Threads") {
		t.Fatalf("stderr does not name the invalid field:\n%s", stderr)
	}
}

func TestCLI_OutputAndSummary(t *testing.T) {
	dir := t.TempDir()
	in := writeNumbers(t, dir, "in.txt", 0, 20)
	outPath := filepath.Join(dir, "out.jsonl")

	out, stderr, err := run(t, "", "lengths", "--summary", "--output", outPath, in)
	if err != nil {
		t.Fatalf("lengths failed: %v\n%s", err, stderr)
	}
	if !strings.HasPrefix(out, "count: 20 min: 1 max: 2") {
		t.Fatalf("unexpected output %q", out)
	}
	if !strings.Contains(stderr, "Configured parameters") {
		t.Fatalf("summary missing from stderr:\n%s", stderr)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	var records int
	for sc.Scan() {
		var rec struct {
			Digest string `json:"digest"`
			State  struct {
				Count int64 `json:"count"`
			} `json:"state"`
		}
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("bad record %q: %v", sc.Text(), err)
		}
		if rec.Digest != "lengths" || rec.State.Count != 20 {
			t.Fatalf("unexpected record %q", sc.Text())
		}
		records++
	}
	if records != 1 {
		t.Fatalf("got %d records, want 1", records)
	}
}
