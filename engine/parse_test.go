package engine

import (
	"errors"
	"testing"

	"github.com/conectabot/inbox/models"
	"github.com/conectabot/inbox/pkg"
)

func TestParseSnapshotKeepsBodyOrder(t *testing.T) {
	body := []byte(`{
		"5215550003": {"nombre": "Carla", "ultimoTexto": "hola", "updated_at": "2024-01-01T10:00:00Z", "status": "active"},
		"5215550001": {"nombre": "Ana", "ultimoTexto": "gracias", "updated_at": "2024-01-01T10:00:00Z", "status": "paused"},
		"5215550002": {"updated_at": "2024-01-01T09:00:00Z"}
	}`)

	entries, skipped, err := ParseSnapshot(body)
	if err != nil {
		t.Fatalf("ParseSnapshot: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("skipped = %v", skipped)
	}

	wantIDs := []string{"5215550003", "5215550001", "5215550002"}
	if len(entries) != len(wantIDs) {
		t.Fatalf("entries = %d, want %d", len(entries), len(wantIDs))
	}
	for i, id := range wantIDs {
		if entries[i].ID != id {
			t.Errorf("entries[%d].ID = %s, want %s", i, entries[i].ID, id)
		}
	}

	if entries[1].Status != models.StatusPaused {
		t.Errorf("status = %s, want paused", entries[1].Status)
	}
	if entries[2].DisplayName != "5215550002" {
		t.Errorf("display name defaults to id, got %q", entries[2].DisplayName)
	}
}

func TestParseSnapshotSkipsMalformedEntries(t *testing.T) {
	body := []byte(`{
		"A": {"nombre": "Ana", "updated_at": "t1"},
		"B": "not an object",
		"C": {"nombre": "Carla"},
		"D": {"nombre": ["x"], "updated_at": "t1"},
		"E": {"updated_at": 1704103200}
	}`)

	entries, skipped, err := ParseSnapshot(body)
	if err != nil {
		t.Fatalf("ParseSnapshot: %v", err)
	}

	if len(entries) != 2 || entries[0].ID != "A" || entries[1].ID != "E" {
		t.Fatalf("entries = %+v, want A and E", entries)
	}
	if entries[1].UpdatedAt != "1704103200" {
		t.Errorf("numeric token = %q", entries[1].UpdatedAt)
	}

	if len(skipped) != 3 {
		t.Fatalf("skipped = %v, want 3", skipped)
	}
	for _, e := range skipped {
		if !errors.Is(e, pkg.ErrMalformedEntry) {
			t.Errorf("skip error %v does not match ErrMalformedEntry", e)
		}
		var me *MalformedEntryError
		if !errors.As(e, &me) {
			t.Errorf("skip error %T is not *MalformedEntryError", e)
		}
	}
}

func TestParseSnapshotMalformedBody(t *testing.T) {
	for _, body := range []string{``, `[]`, `"x"`, `{"A": {"updated_at": "t1"}`} {
		t.Run(body, func(t *testing.T) {
			_, _, err := ParseSnapshot([]byte(body))
			if !errors.Is(err, pkg.ErrMalformedBody) {
				t.Errorf("err = %v, want ErrMalformedBody", err)
			}
		})
	}
}

func TestParseSnapshotEmptyObject(t *testing.T) {
	entries, skipped, err := ParseSnapshot([]byte(`{}`))
	if err != nil || len(entries) != 0 || len(skipped) != 0 {
		t.Errorf("got %v %v %v, want empty", entries, skipped, err)
	}
}

func TestParseMessages(t *testing.T) {
	body := []byte(`{"mensajes": [
		{"mensaje": "hola", "creado_en": "2024-01-02T10:00:00.000Z", "es_cliente": 1},
		{"mensaje": "buenas", "created_at": "2024-01-02T10:01:00.000Z", "es_cliente": false, "estado": "read"},
		{"mensaje": "ok", "creado_en": "", "timestamp": "2024-01-02T10:02:00.000Z", "es_cliente": "1", "estado": "entregado"},
		42,
		{"mensaje": "sin hora", "es_cliente": "0"}
	]}`)

	msgs, skipped, err := ParseMessages(body)
	if err != nil {
		t.Fatalf("ParseMessages: %v", err)
	}
	if len(skipped) != 1 {
		t.Errorf("skipped = %v, want 1", skipped)
	}
	if len(msgs) != 4 {
		t.Fatalf("messages = %d, want 4", len(msgs))
	}

	tests := []struct {
		text     string
		ts       string
		customer bool
		status   models.DeliveryStatus
	}{
		{"hola", "2024-01-02T10:00:00.000Z", true, ""},
		{"buenas", "2024-01-02T10:01:00.000Z", false, models.DeliveryRead},
		{"ok", "2024-01-02T10:02:00.000Z", true, models.DeliveryDelivered},
		{"sin hora", "", false, ""},
	}
	for i, tt := range tests {
		m := msgs[i]
		if m.Text != tt.text || m.RawTimestamp != tt.ts || m.IsFromCustomer != tt.customer || m.DeliveryStatus != tt.status {
			t.Errorf("msgs[%d] = %+v, want %+v", i, m, tt)
		}
	}
}

func TestParseMessagesBody(t *testing.T) {
	msgs, _, err := ParseMessages([]byte(`{"mensajes": null}`))
	if err != nil || len(msgs) != 0 {
		t.Errorf("null list: %v %v", msgs, err)
	}

	for _, body := range []string{`{}`, `[]`, `{"mensajes": "x"}`, `nope`} {
		if _, _, err := ParseMessages([]byte(body)); !errors.Is(err, pkg.ErrMalformedBody) {
			t.Errorf("ParseMessages(%s) err = %v, want ErrMalformedBody", body, err)
		}
	}
}
