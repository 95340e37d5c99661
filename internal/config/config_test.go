package config

import (
	"testing"
	"time"
)

func TestString(t *testing.T) {
	t.Setenv("REEF_PORT", "9000")

	if got := String("REEF_PORT", "8080"); got != "9000" {
		t.Errorf("expected 9000, got %s", got)
	}
	if got := String("REEF_MISSING", "8080"); got != "8080" {
		t.Errorf("expected default 8080, got %s", got)
	}
}

func TestRequire(t *testing.T) {
	t.Setenv("REEF_SECRET", "")

	if _, err := Require("REEF_SECRET"); err == nil {
		t.Error("expected error for missing variable")
	}

	t.Setenv("REEF_SECRET", "s3cret")
	got, err := Require("REEF_SECRET")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "s3cret" {
		t.Errorf("expected s3cret, got %s", got)
	}
}

func TestIntAndDuration(t *testing.T) {
	t.Setenv("REEF_THRESHOLD", "3")
	t.Setenv("REEF_TTL", "90m")
	t.Setenv("REEF_BAD", "three")

	n, err := Int("REEF_THRESHOLD", 5)
	if err != nil || n != 3 {
		t.Errorf("expected 3, got %d (err %v)", n, err)
	}
	if _, err := Int("REEF_BAD", 5); err == nil {
		t.Error("expected parse error")
	}

	d, err := Duration("REEF_TTL", time.Hour)
	if err != nil || d != 90*time.Minute {
		t.Errorf("expected 90m, got %s (err %v)", d, err)
	}
}

func TestList(t *testing.T) {
	t.Setenv("REEF_BROKERS", "kafka-1:9092, kafka-2:9092,,")

	got := List("REEF_BROKERS")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Errorf("unexpected list: %v", got)
	}
}
