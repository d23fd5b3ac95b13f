package solmate

import (
	"context"
	"errors"
	"testing"
)

func TestLocalClientWifis(t *testing.T) {
	t.Parallel()
	_, uri := startBackend(t)
	ctx := context.Background()

	client := NewLocalClient("test1", uri)
	if err := client.Quickstart(ctx, "password"); err != nil {
		t.Fatalf("Quickstart failed: %v", err)
	}
	defer client.Close()

	ssids, err := client.ListWifis(ctx)
	if err != nil {
		t.Fatalf("ListWifis failed: %v", err)
	}
	if len(ssids) == 0 {
		t.Fatalf("expected at least one SSID")
	}

	if err := client.ConnectToWifi(ctx, ssids[0], "secret"); err != nil {
		t.Fatalf("ConnectToWifi failed: %v", err)
	}
}

func TestLocalClientCheckOnline(t *testing.T) {
	t.Parallel()
	_, uri := startBackend(t)
	ctx := context.Background()

	client := NewLocalClient("test1", uri)
	if online, err := client.CheckOnline(ctx); err != nil || online {
		t.Fatalf("expected offline before connect, got %v, %v", online, err)
	}

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	if online, err := client.CheckOnline(ctx); err != nil || !online {
		t.Fatalf("expected online while connected, got %v, %v", online, err)
	}

	if _, err := client.ListWifis(ctx); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication before login, got %v", err)
	}
}
