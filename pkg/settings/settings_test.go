package settings

import (
	"testing"
)

func TestNewCliParams(t *testing.T) {
	p := NewCliParams()
	if p == nil {
		t.Fatal("NewCliParams returned nil")
	}
	if !p.ExitOnError {
		t.Error("CLI runs should exit on error by default")
	}
	if p.LogToFile() {
		t.Error("CLI runs log to stderr unless --log-file is set")
	}
	p.LogFile = "/tmp/fleetgrid.log"
	if !p.LogToFile() {
		t.Error("LogToFile should follow LogFile")
	}
}

func TestNilRunDoesNotLogToFile(t *testing.T) {
	var r *Run
	if r.LogToFile() {
		t.Error("nil Run should not log to file")
	}
}

func TestCliBinaryName(t *testing.T) {
	if CliBinaryName != "fleetgrid" {
		t.Errorf("CliBinaryName = %q", CliBinaryName)
	}
}
