package e2e

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"
)

var (
	treefsBin string
	projRoot  string
	testEnv   *E2ETestEnvironment
)

func TestMain(m *testing.M) {
	if _, err := os.Stat("/dev/fuse"); err != nil {
		fmt.Println("skipping e2e tests: /dev/fuse not available")
		os.Exit(0)
	}

	// Build TreeFS binary once for all tests
	tmpBinDir, err := os.MkdirTemp("", "treefs-bin")
	if err != nil {
		panic(err)
	}

	treefsBin = filepath.Join(tmpBinDir, "treefs")

	// Determine project root
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		panic("cannot determine current file path")
	}
	projRoot = filepath.Join(filepath.Dir(thisFile), "..", "..")
	src := filepath.Join(projRoot, "cmd", "main.go")

	// Build with debug symbols
	cmd := exec.Command("go", "build", "-o", treefsBin, "-gcflags=all=-N -l", src)
	if out, err := cmd.CombinedOutput(); err != nil {
		panic(string(out))
	}

	// Create shared test environment
	testEnv, err = NewE2ETestEnvironment(treefsBin)
	if err != nil {
		panic(err)
	}

	// Run tests
	code := m.Run()
	testEnv.Close()
	_ = os.RemoveAll(tmpBinDir)
	os.Exit(code)
}

func TestE2EMountAndRead(t *testing.T) {
	tfs := testEnv.StartTreeFS(t, nil, `{"nodes": [
		{"type": "file", "path": "/docs/test.txt", "contents": "Hello, TreeFS!"}
	]}`)
	defer tfs.Stop()

	data, err := os.ReadFile(filepath.Join(tfs.MountDir, "docs", "test.txt"))
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if string(data) != "Hello, TreeFS!" {
		t.Fatalf("content mismatch: got %q", string(data))
	}

	entries, err := os.ReadDir(filepath.Join(tfs.MountDir, "docs"))
	if err != nil {
		t.Fatalf("failed to read directory: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "test.txt" {
		t.Fatalf("unexpected directory entries: %v", entries)
	}
}

func TestE2ELinks(t *testing.T) {
	tfs := testEnv.StartTreeFS(t, nil, `{"nodes": [
		{"type": "file", "path": "/data/v1.txt", "contents": "version one"},
		{"type": "link", "path": "/current", "target": "/data/v1.txt"}
	]}`)
	defer tfs.Stop()

	target, err := os.Readlink(filepath.Join(tfs.MountDir, "current"))
	if err != nil {
		t.Fatalf("failed to read link: %v", err)
	}
	if target != "data/v1.txt" {
		t.Fatalf("link target mismatch: got %q", target)
	}

	data, err := os.ReadFile(filepath.Join(tfs.MountDir, "current"))
	if err != nil {
		t.Fatalf("failed to read through link: %v", err)
	}
	if string(data) != "version one" {
		t.Fatalf("content mismatch: got %q", string(data))
	}
}

func TestE2EReadOnlyMount(t *testing.T) {
	tfs := testEnv.StartTreeFS(t, nil, `{"nodes": [
		{"type": "file", "path": "/f.txt", "contents": "x"}
	]}`)
	defer tfs.Stop()

	err := os.WriteFile(filepath.Join(tfs.MountDir, "f.txt"), []byte("y"), 0o644)
	if err == nil {
		t.Fatal("expected write to a read-only mount to fail")
	}
	err = os.Mkdir(filepath.Join(tfs.MountDir, "newdir"), 0o755)
	if err == nil {
		t.Fatal("expected mkdir on a read-only mount to fail")
	}
}

func TestE2EPermissions(t *testing.T) {
	tfs := testEnv.StartTreeFS(t, nil, `{"nodes": [
		{"type": "file", "path": "/public.txt", "contents": "open"},
		{"type": "dir", "path": "/private", "read": false, "write": false},
		{"type": "file", "path": "/private/key", "contents": "hidden"}
	]}`)
	defer tfs.Stop()

	_, err := os.ReadFile(filepath.Join(tfs.MountDir, "private", "key"))
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestE2EHTTPDevice(t *testing.T) {
	remote := NewTestFile("/simple-text").
		WithTextContent("Hello from HTTP").
		Build()

	tfs := testEnv.StartTreeFS(t, []*TestFileSpec{remote}, `{"nodes": [{
		"type": "device",
		"path": "/remote.txt",
		"device": "http",
		"config": {"url": "%s/simple-text"}
	}]}`)
	defer tfs.Stop()

	info, err := os.Stat(filepath.Join(tfs.MountDir, "remote.txt"))
	if err != nil {
		t.Fatalf("failed to stat device: %v", err)
	}
	if info.Size() != int64(len("Hello from HTTP")) {
		t.Fatalf("size mismatch: got %d", info.Size())
	}

	data, err := os.ReadFile(filepath.Join(tfs.MountDir, "remote.txt"))
	if err != nil {
		t.Fatalf("failed to read device: %v", err)
	}
	if string(data) != "Hello from HTTP" {
		t.Fatalf("content mismatch: got %q", string(data))
	}
}

func TestE2ERangeRequests(t *testing.T) {
	largeContent := strings.Repeat("ABCDEFGHIJ", 20000) // 200000 bytes

	largeFile := NewTestFile("/large-content").
		WithTextContent(largeContent).
		Build()

	tfs := testEnv.StartTreeFS(t, []*TestFileSpec{largeFile}, `{"nodes": [{
		"type": "device",
		"path": "/large.txt",
		"device": "http",
		"config": {"url": "%s/large-content"}
	}]}`)
	defer tfs.Stop()

	data, err := os.ReadFile(filepath.Join(tfs.MountDir, "large.txt"))
	if err != nil {
		t.Fatalf("failed to read large file: %v", err)
	}
	if string(data) != largeContent {
		t.Fatalf("large file content mismatch (got %d bytes)", len(data))
	}
}

// E2ETestEnvironment manages shared resources for all e2e tests
type E2ETestEnvironment struct {
	TreeFSBin string
	BaseDir   string
}

// TestFileSpec defines a remote file's content and behavior
type TestFileSpec struct {
	path      string
	content   []byte
	errorCode int // 0 = success, 404, 500, etc.
}

// TestFileBuilder provides a fluent API for creating test files
type TestFileBuilder struct {
	spec TestFileSpec
}

// TreeFSInstance represents a running TreeFS process for testing
type TreeFSInstance struct {
	cmd      *exec.Cmd
	MountDir string
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
	cleanup  func()
}

// NewTestFile creates a new test file builder with the given path
func NewTestFile(path string) *TestFileBuilder {
	return &TestFileBuilder{spec: TestFileSpec{path: path}}
}

// WithTextContent sets text content
func (b *TestFileBuilder) WithTextContent(content string) *TestFileBuilder {
	b.spec.content = []byte(content)
	return b
}

// WithError makes the file return an HTTP error status
func (b *TestFileBuilder) WithError(statusCode int) *TestFileBuilder {
	b.spec.errorCode = statusCode
	return b
}

// Build creates the final TestFileSpec
func (b *TestFileBuilder) Build() *TestFileSpec {
	return &b.spec
}

// NewE2ETestEnvironment creates a shared test environment
func NewE2ETestEnvironment(treefsBinary string) (*E2ETestEnvironment, error) {
	baseDir, err := os.MkdirTemp("", "treefs-e2e-tests")
	if err != nil {
		return nil, err
	}
	return &E2ETestEnvironment{TreeFSBin: treefsBinary, BaseDir: baseDir}, nil
}

// Close cleans up the test environment
func (env *E2ETestEnvironment) Close() {
	if env.BaseDir != "" {
		_ = os.RemoveAll(env.BaseDir) // Best effort cleanup
	}
}

// handleMockRequest serves a remote file, honoring single byte ranges
func handleMockRequest(w http.ResponseWriter, r *http.Request, file *TestFileSpec) {
	if file.errorCode != 0 {
		http.Error(w, fmt.Sprintf("Mock error %d", file.errorCode), file.errorCode)
		return
	}

	w.Header().Set("Accept-Ranges", "bytes")
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Length", strconv.Itoa(len(file.content)))
		w.WriteHeader(http.StatusOK)
		return
	}

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(file.content)
		return
	}

	parts := strings.Split(strings.TrimPrefix(rangeHeader, "bytes="), "-")
	if len(parts) != 2 {
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}
	start, err1 := strconv.ParseInt(parts[0], 10, 64)
	end, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil || start < 0 || start >= int64(len(file.content)) {
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}
	// Clamp end to content length
	if end >= int64(len(file.content)) {
		end = int64(len(file.content)) - 1
	}

	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(file.content)))
	w.WriteHeader(http.StatusPartialContent)
	_, _ = w.Write(file.content[start : end+1])
}

// StartTreeFS starts a TreeFS instance serving the given remote files. The
// node definitions template receives the remote server URL for every %s.
func (env *E2ETestEnvironment) StartTreeFS(t *testing.T, files []*TestFileSpec, nodesTemplate string) *TreeFSInstance {
	mux := http.NewServeMux()
	for _, file := range files {
		mux.HandleFunc(file.path, func(w http.ResponseWriter, r *http.Request) {
			handleMockRequest(w, r, file)
		})
	}
	remote := httptest.NewServer(mux)

	// Create test-specific directories
	testID := strings.ReplaceAll(t.Name(), "/", "_")
	mountDir := filepath.Join(env.BaseDir, fmt.Sprintf("mount-%s", testID))
	nodesDir := filepath.Join(env.BaseDir, fmt.Sprintf("nodes-%s", testID))

	if err := os.MkdirAll(mountDir, 0o755); err != nil {
		t.Fatalf("Failed to create mount dir: %v", err)
	}
	if err := os.MkdirAll(nodesDir, 0o755); err != nil {
		t.Fatalf("Failed to create nodes dir: %v", err)
	}

	nodes := nodesTemplate
	if strings.Contains(nodes, "%s") {
		nodes = strings.ReplaceAll(nodes, "%s", remote.URL)
	}
	nodesFile := filepath.Join(nodesDir, "nodes.json")
	if err := os.WriteFile(nodesFile, []byte(nodes), 0o644); err != nil {
		t.Fatalf("Failed to write nodes file: %v", err)
	}
	// The test process reads the mount as the acting user
	configFile := filepath.Join(nodesDir, "config.yaml")
	cfg := fmt.Sprintf("user: %d\nreadonly_root: false\n", os.Getuid())
	if err := os.WriteFile(configFile, []byte(cfg), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cmd := exec.Command(env.TreeFSBin, "--nodes", nodesFile, "--config", configFile, "-v", "4", mountDir)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start TreeFS: %v", err)
	}

	instance := &TreeFSInstance{
		cmd:      cmd,
		MountDir: mountDir,
		stdout:   &stdout,
		stderr:   &stderr,
		cleanup: func() {
			remote.Close()
			_ = os.RemoveAll(mountDir) // Best effort cleanup
			_ = os.RemoveAll(nodesDir) // Best effort cleanup
		},
	}

	if err := instance.WaitForMount(15 * time.Second); err != nil {
		stdoutLog, stderrLog := instance.GetLogs()
		instance.Stop()
		t.Fatalf("TreeFS mount failed: %v\nstdout:\n%s\nstderr:\n%s", err, stdoutLog, stderrLog)
	}

	return instance
}

// Stop gracefully stops the TreeFS instance
func (w *TreeFSInstance) Stop() {
	if w.cmd != nil && w.cmd.Process != nil {
		_ = w.cmd.Process.Signal(os.Interrupt) // Process may have already exited

		done := make(chan error, 1)
		go func() {
			done <- w.cmd.Wait()
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			_ = w.cmd.Process.Kill() // Process may have already exited
			<-done
		}
	}

	if w.cleanup != nil {
		w.cleanup()
	}
}

// WaitForMount waits until the mount lists at least one entry
func (w *TreeFSInstance) WaitForMount(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if files, err := os.ReadDir(w.MountDir); err == nil && len(files) > 0 {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("timeout waiting for TreeFS mount to be ready")
}

// GetLogs returns the stdout and stderr from the TreeFS process
func (w *TreeFSInstance) GetLogs() (stdout, stderr string) {
	return w.stdout.String(), w.stderr.String()
}
