package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		level string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"verbose", logrus.InfoLevel},
	}

	for _, tc := range cases {
		if got := New(tc.level, "text").GetLevel(); got != tc.want {
			t.Errorf("New(%q) level = %v, want %v", tc.level, got, tc.want)
		}
	}
}

func TestNewJSONFormat(t *testing.T) {
	logger := New("info", "json")
	if _, ok := logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("formatter = %T, want *logrus.JSONFormatter", logger.Formatter)
	}
}

func TestNewTextFormat(t *testing.T) {
	logger := New("info", "text")
	if _, ok := logger.Formatter.(*logrus.TextFormatter); !ok {
		t.Errorf("formatter = %T, want *logrus.TextFormatter", logger.Formatter)
	}
}
