package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	return out.String(), err
}

func TestNonExistingFile(t *testing.T) {
	stdout, err := runCLI(t, filepath.Join(t.TempDir(), "random"))
	if err == nil {
		t.Fatal("missing file accepted")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "does not exist") {
		t.Errorf("unexpected diagnostic: %v", err)
	}
	if stdout != "" {
		t.Errorf("stdout not empty: %q", stdout)
	}
}

func TestNotAFile(t *testing.T) {
	stdout, err := runCLI(t, t.TempDir())
	if err == nil {
		t.Fatal("directory accepted")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "is not a file") {
		t.Errorf("unexpected diagnostic: %v", err)
	}
	if stdout != "" {
		t.Errorf("stdout not empty: %q", stdout)
	}
}

func TestVersionCommand(t *testing.T) {
	stdout, err := runCLI(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout, "asdfvalidate ") {
		t.Errorf("unexpected output: %q", stdout)
	}
}
