package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"wanderbook/internal/shared"
)

func TestWarm_RequiresCredentials(t *testing.T) {
	cmd := warmCmd(shared.Config{WarmWorkers: 2})
	cmd.SetArgs([]string{"--destinations", "miami"})
	cmd.SetOut(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "BOOKING_API_KEY") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestWarm_FlagDefaults(t *testing.T) {
	cmd := warmCmd(shared.Config{WarmWorkers: 6})
	if got := cmd.Flags().Lookup("workers").DefValue; got != "6" {
		t.Fatalf("workers default %s", got)
	}
	if got := cmd.Flags().Lookup("nights").DefValue; got != "2" {
		t.Fatalf("nights default %s", got)
	}
	if !strings.Contains(cmd.Flags().Lookup("destinations").DefValue, "miami") {
		t.Fatalf("destinations default should list supported cities")
	}
}

func TestSweep_UnknownDriver(t *testing.T) {
	cmd := sweepCmd(shared.Config{StoreDriver: "sqlite"})
	cmd.SetArgs([]string{})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected error for unknown store driver")
	}
}
