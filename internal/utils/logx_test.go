package utils

import (
	"ip_forest/internal/dataType"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogxManagerWritesPerHost(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)
	SetDefaultManager(m)
	defer SetDefaultManager(nil)

	req := dataType.UserRequest{RemoteIP: "10.0.0.1", Host: "example.com", Uri: "/x"}
	LogInfo(req, "block", "IPBlockList")
	LogError(dataType.UserRequest{RemoteIP: "10.0.0.2"}, "oops", "CheckMain")
	m.Close()

	info, err := os.ReadFile(filepath.Join(base, "example.com", "info.log"))
	if err != nil {
		t.Fatalf("read info log: %v", err)
	}
	if !strings.Contains(string(info), "10.0.0.1") || !strings.Contains(string(info), "IPBlockList") {
		t.Errorf("Expected the request line in info.log, got %q", info)
	}

	errLog, err := os.ReadFile(filepath.Join(base, "default", "error.log"))
	if err != nil {
		t.Fatalf("read error log: %v", err)
	}
	if !strings.Contains(string(errLog), "oops") {
		t.Errorf("Expected the error in default/error.log, got %q", errLog)
	}
}

func TestLogWithoutManager(t *testing.T) {
	SetDefaultManager(nil)
	// must not panic
	LogInfo(dataType.UserRequest{}, "msg", "msg2")
	LogDebug(dataType.UserRequest{}, "msg", "msg2")
}
