package customer

import (
	"context"
	"testing"

	"github.com/erauner12/listsync/internal/db"
)

func TestStore_Integration(t *testing.T) {
	pool := db.OpenTest(t)
	ctx := context.Background()
	store := NewStore(pool)

	c := &Customer{ID: 7, Email: "jane@example.com", FirstName: "Jane", LastName: "Doe", Active: true, NewsletterStatus: "subscribed"}
	if err := store.Upsert(ctx, c); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := store.Get(ctx, 7)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || *got != *c {
		t.Errorf("Get() = %+v, want %+v", got, c)
	}

	missing, err := store.Get(ctx, 8)
	if err != nil || missing != nil {
		t.Errorf("Get() for unknown id = %+v, %v; want nil, nil", missing, err)
	}

	exported, err := store.WasExported(ctx, 7, "L1")
	if err != nil || exported {
		t.Fatalf("WasExported() before note = %v, %v", exported, err)
	}

	if err := store.SaveExportNote(ctx, ExportNote{CustomerID: 7, ListID: "L1", RemoteID: "abc", Fingerprint: "f00", Message: "Mailchimp Export [news]"}); err != nil {
		t.Fatalf("SaveExportNote() error = %v", err)
	}
	if err := store.SaveExportNote(ctx, ExportNote{CustomerID: 7, ListID: "L1", RemoteID: "abc", Message: "Mailchimp Deletion [news]"}); err != nil {
		t.Fatalf("SaveExportNote() without fingerprint error = %v", err)
	}

	exported, err = store.WasExported(ctx, 7, "L1")
	if err != nil || !exported {
		t.Errorf("WasExported() after note = %v, %v", exported, err)
	}
	if exported, _ := store.WasExported(ctx, 7, "L2"); exported {
		t.Error("notes must be scoped to their list")
	}

	status, err := store.RemoteStatus(ctx, 7, "L1")
	if err != nil || status != "" {
		t.Errorf("RemoteStatus() before update = %q, %v", status, err)
	}
	if err := store.UpdateRemoteStatus(ctx, 7, "L1", "subscribed"); err != nil {
		t.Fatalf("UpdateRemoteStatus() error = %v", err)
	}
	if err := store.UpdateRemoteStatus(ctx, 7, "L1", "unsubscribed"); err != nil {
		t.Fatalf("UpdateRemoteStatus() error = %v", err)
	}
	if status, _ := store.RemoteStatus(ctx, 7, "L1"); status != "unsubscribed" {
		t.Errorf("RemoteStatus() = %q, want unsubscribed", status)
	}
}
