package flag_test

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/pound-emu/pound/flag"
)

func TestParseSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		unit string
		want int
	}{
		{"1G", "", 1 << 30},
		{"256M", "", 256 << 20},
		{"4k", "", 4 << 10},
		{"1024", "", 1024},
		{"2", "m", 2 << 20},
	}

	for _, tc := range tests {
		got, err := flag.ParseSize(tc.in, tc.unit)
		if err != nil {
			t.Fatalf("ParseSize(%q, %q): %v", tc.in, tc.unit, err)
		}

		if got != tc.want {
			t.Fatalf("ParseSize(%q, %q) = %d, want %d", tc.in, tc.unit, got, tc.want)
		}
	}
}

func TestParseSizeRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := flag.ParseSize("notanumber", ""); err == nil {
		t.Fatal("ParseSize(garbage) succeeded, want error")
	}
}

func TestParseArgsDefaults(t *testing.T) {
	t.Parallel()

	got, err := flag.ParseArgs([]string{"pound"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}

	if got.MemSize != 256<<20 {
		t.Fatalf("MemSize = %d, want default 256M", got.MemSize)
	}

	if got.Target != "switch1" {
		t.Fatalf("Target = %q, want default switch1", got.Target)
	}

	if got.LogLevel != logrus.InfoLevel {
		t.Fatalf("LogLevel = %v, want info", got.LogLevel)
	}
}

func TestParseArgsOverrides(t *testing.T) {
	t.Parallel()

	got, err := flag.ParseArgs([]string{"pound", "-m", "2M", "-target", "switch1", "-log-level", "debug"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}

	if got.MemSize != 2<<20 {
		t.Fatalf("MemSize = %d, want 2M", got.MemSize)
	}

	if got.LogLevel != logrus.DebugLevel {
		t.Fatalf("LogLevel = %v, want debug", got.LogLevel)
	}
}

func TestParseArgsRejectsUnknownLogLevel(t *testing.T) {
	t.Parallel()

	if _, err := flag.ParseArgs([]string{"pound", "-log-level", "nope"}); err == nil {
		t.Fatal("ParseArgs with invalid log level succeeded, want error")
	}
}
