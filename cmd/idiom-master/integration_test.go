package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/chirag6451/idiom-master/internal/tuitest"
)

// The PTY run spawns a real build of the binary, so it stays opt-in and
// plain `go test ./...` remains hermetic.
func requireE2E(t *testing.T) {
	t.Helper()
	if os.Getenv("IDIOM_MASTER_E2E") == "" {
		t.Skip("set IDIOM_MASTER_E2E=1 to run the PTY end-to-end test")
	}
}

func TestSignInReachesBrowseScreen(t *testing.T) {
	requireE2E(t)
	t.Parallel()

	cmdDir := moduleDir(t)
	binary := buildBinary(t, cmdDir)
	home := t.TempDir()
	cfgPath := writeTestConfig(t, home)

	rec, err := tuitest.Run(context.Background(), tuitest.Config{
		Command: []string{binary, "--no-alt-screen", "--config", cfgPath},
		Dir:     cmdDir,
		Env:     []string{"HOME=" + home},
		Width:   100,
		Height:  32,
		Steps: []tuitest.Step{
			{Delay: time.Second},
			{Input: tuitest.Type("Priya")},
			{Delay: 200 * time.Millisecond, Input: tuitest.KeyEnter},
			{Input: tuitest.Type("hunter2")},
			{Delay: 200 * time.Millisecond, Input: tuitest.KeyEnter},
			{Delay: time.Second},
			{Input: tuitest.KeyCtrlC},
		},
		Timeout:        20 * time.Second,
		AllowInterrupt: true,
	})
	if err != nil {
		t.Fatalf("run CLI: %v", err)
	}

	for _, want := range []string{"Sign In", "IDIOM MASTER", "Signed in as Priya"} {
		if !rec.Contains(want) {
			frame, _ := rec.FinalFrame()
			t.Fatalf("no frame contains %q; final frame:\n%s", want, frame.Plain)
		}
	}
}

func TestVersionCommandPrintsBuildInfo(t *testing.T) {
	requireE2E(t)
	t.Parallel()

	cmdDir := moduleDir(t)
	binary := buildBinary(t, cmdDir)

	out, err := exec.Command(binary, "version").CombinedOutput()
	if err != nil {
		t.Fatalf("version command: %v\n%s", err, out)
	}
	if got := string(out); !strings.Contains(got, "idiom-master") || !strings.Contains(got, "commit:") {
		t.Fatalf("unexpected version output:\n%s", got)
	}
}

// writeTestConfig pins the state dir inside the test's temp home and forces
// the ollama provider so construction never needs an API key or network.
func writeTestConfig(t *testing.T, home string) string {
	t.Helper()
	doc := fmt.Sprintf("state:\n  dir: %s\ngateway:\n  provider: ollama\n", filepath.Join(home, "state"))
	path := filepath.Join(home, "config.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func moduleDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	return filepath.Dir(file)
}

func buildBinary(t *testing.T, cmdDir string) string {
	t.Helper()
	tmp := t.TempDir()
	name := "idiom-master-integration"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	binPath := filepath.Join(tmp, name)
	cmd := exec.Command("go", "build", "-o", binPath, ".")
	cmd.Dir = cmdDir
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build CLI: %v\n%s", err, output)
	}
	return binPath
}
