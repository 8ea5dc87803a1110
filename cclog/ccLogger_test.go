// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package cclog

import (
	"bytes"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		logdate bool
		want    string
	}{
		{"info level no date", "info", false, "info"},
		{"debug level no date", "debug", false, "debug"},
		{"warn level no date", "warn", false, "warn"},
		{"error level no date", "err", false, "err"},
		{"info level with date", "info", true, "info"},
		{"invalid level", "invalid", false, "debug"}, // Should default to debug
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Init(tt.level, tt.logdate)
			got := Loglevel()
			if got != tt.want {
				t.Errorf("Loglevel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogLevelFiltering(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		expectDebug bool
		expectInfo  bool
		expectWarn  bool
		expectError bool
	}{
		{"debug shows all", "debug", true, true, true, true},
		{"info filters debug", "info", false, true, true, true},
		{"warn filters info and debug", "warn", false, false, true, true},
		{"err filters warn, info, debug", "err", false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var debugBuf, infoBuf, warnBuf, errBuf bytes.Buffer
			DebugWriter = &debugBuf
			InfoWriter = &infoBuf
			WarnWriter = &warnBuf
			ErrWriter = &errBuf

			Init(tt.level, false)

			debugIsDiscard := DebugWriter == io.Discard
			infoIsDiscard := InfoWriter == io.Discard
			warnIsDiscard := WarnWriter == io.Discard
			errIsDiscard := ErrWriter == io.Discard

			if debugIsDiscard == tt.expectDebug {
				t.Errorf("Debug: got discarded=%v, want active=%v", debugIsDiscard, tt.expectDebug)
			}
			if infoIsDiscard == tt.expectInfo {
				t.Errorf("Info: got discarded=%v, want active=%v", infoIsDiscard, tt.expectInfo)
			}
			if warnIsDiscard == tt.expectWarn {
				t.Errorf("Warn: got discarded=%v, want active=%v", warnIsDiscard, tt.expectWarn)
			}
			if errIsDiscard == tt.expectError {
				t.Errorf("Error: got discarded=%v, want active=%v", errIsDiscard, tt.expectError)
			}

			DebugWriter = os.Stderr
			InfoWriter = os.Stderr
			WarnWriter = os.Stderr
			ErrWriter = os.Stderr
		})
	}
}

func TestFormattedOutput(t *testing.T) {
	var buf bytes.Buffer

	DebugWriter = &buf
	InfoWriter = &buf
	WarnWriter = &buf
	ErrWriter = &buf

	Init("debug", false)

	t.Run("Debugf", func(t *testing.T) {
		buf.Reset()
		Debugf("formatted %s %d", "message", 42)
		if !strings.Contains(buf.String(), "formatted message 42") {
			t.Errorf("Debugf() output incorrect, got: %s", buf.String())
		}
		if !strings.Contains(buf.String(), "<7>") || !strings.Contains(buf.String(), "DEBUG") {
			t.Errorf("Debugf() missing systemd prefix, got: %s", buf.String())
		}
	})

	t.Run("Infof", func(t *testing.T) {
		buf.Reset()
		Infof("formatted %s %d", "message", 42)
		if !strings.Contains(buf.String(), "formatted message 42") {
			t.Errorf("Infof() output incorrect, got: %s", buf.String())
		}
		if !strings.Contains(buf.String(), "<6>") || !strings.Contains(buf.String(), "INFO") {
			t.Errorf("Infof() missing systemd prefix, got: %s", buf.String())
		}
	})

	t.Run("Warnf", func(t *testing.T) {
		buf.Reset()
		Warnf("formatted %s %d", "message", 42)
		if !strings.Contains(buf.String(), "formatted message 42") {
			t.Errorf("Warnf() output incorrect, got: %s", buf.String())
		}
		if !strings.Contains(buf.String(), "<4>") || !strings.Contains(buf.String(), "WARNING") {
			t.Errorf("Warnf() missing systemd prefix, got: %s", buf.String())
		}
	})

	t.Run("Errorf", func(t *testing.T) {
		buf.Reset()
		Errorf("formatted %s %d", "message", 42)
		if !strings.Contains(buf.String(), "formatted message 42") {
			t.Errorf("Errorf() output incorrect, got: %s", buf.String())
		}
		if !strings.Contains(buf.String(), "<3>") || !strings.Contains(buf.String(), "ERROR") {
			t.Errorf("Errorf() missing systemd prefix, got: %s", buf.String())
		}
	})

	DebugWriter = os.Stderr
	InfoWriter = os.Stderr
	WarnWriter = os.Stderr
	ErrWriter = os.Stderr
}

func TestConcurrentLogging(t *testing.T) {
	var buf bytes.Buffer
	InfoWriter = &buf

	Init("info", false)

	const goroutines = 10
	const messagesPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := range goroutines {
		go func(id int) {
			defer wg.Done()
			for j := range messagesPerGoroutine {
				Infof("goroutine %d message %d", id, j)
			}
		}(i)
	}

	wg.Wait()

	if buf.Len() == 0 {
		t.Error("No output from concurrent logging")
	}

	InfoWriter = os.Stderr
}

func TestEdgeCases(t *testing.T) {
	var buf bytes.Buffer
	InfoWriter = &buf

	Init("info", false)

	t.Run("EmptyFormatString", func(t *testing.T) {
		buf.Reset()
		Infof("")
		// Should not panic
	})

	t.Run("LargeMessage", func(t *testing.T) {
		buf.Reset()
		largeMsg := strings.Repeat("x", 10000)
		Infof("%s", largeMsg)
		if !strings.Contains(buf.String(), largeMsg) {
			t.Error("Large message not logged correctly")
		}
	})

	t.Run("SpecialCharacters", func(t *testing.T) {
		buf.Reset()
		Infof("message with\nnewlines\tand\ttabs")
		output := buf.String()
		if !strings.Contains(output, "newlines") || !strings.Contains(output, "tabs") {
			t.Errorf("Special characters not handled correctly, got: %s", output)
		}
	})

	InfoWriter = os.Stderr
}

func TestLoglevelGetter(t *testing.T) {
	levels := []string{"debug", "info", "warn", "err"}

	for _, lvl := range levels {
		Init(lvl, false)
		got := Loglevel()
		if got != lvl {
			t.Errorf("After Init(%q), Loglevel() = %q, want %q", lvl, got, lvl)
		}
	}
}
