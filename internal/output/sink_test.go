package output

import (
	"context"
	"testing"
)

func TestLogSinkDeliver(t *testing.T) {
	s := NewLogSink(nil)
	if err := s.Deliver(context.Background(), "hello"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
}

func TestNewCommandSinkEmpty(t *testing.T) {
	if _, err := NewCommandSink("   ", nil); err == nil {
		t.Fatal("want error for empty command")
	}
}

func TestCommandSinkDeliver(t *testing.T) {
	s, err := NewCommandSink("cat", nil)
	if err != nil {
		t.Fatalf("NewCommandSink: %v", err)
	}
	if err := s.Deliver(context.Background(), "hello world"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
}

func TestCommandSinkMissingBinary(t *testing.T) {
	s, err := NewCommandSink("definitely-not-a-real-binary-xyz", nil)
	if err != nil {
		t.Fatalf("NewCommandSink: %v", err)
	}
	if err := s.Deliver(context.Background(), "x"); err == nil {
		t.Fatal("want error for missing binary")
	}
}
