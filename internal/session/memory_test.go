package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	rec, err := store.Create(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if rec.ID == uuid.Nil {
		t.Fatal("Create() returned nil session ID")
	}

	if err := store.Put(ctx, rec.ID, KeyPatientEmail, "pat@example.com"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.PutAll(ctx, rec.ID, map[string]string{
		KeyHeightIn: "70",
		KeyWeightLb: "160",
	}); err != nil {
		t.Fatalf("PutAll() error = %v", err)
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Values[KeyPatientEmail] != "pat@example.com" {
		t.Errorf("patient_email = %q", got.Values[KeyPatientEmail])
	}
	if got.Values[KeyHeightIn] != "70" || got.Values[KeyWeightLb] != "160" {
		t.Errorf("vitals not stored: %v", got.Values)
	}

	if err := store.Delete(ctx, rec.ID, KeyHeightIn); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, _ = store.Get(ctx, rec.ID)
	if _, ok := got.Values[KeyHeightIn]; ok {
		t.Error("height_in survived Delete()")
	}

	if err := store.Destroy(ctx, rec.ID); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if _, err := store.Get(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Destroy() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreEmptyValueRemovesKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec, _ := store.Create(ctx, time.Hour)

	if err := store.Put(ctx, rec.ID, KeyAudio, "data:audio/webm;base64,AAAA"); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, rec.ID, KeyAudio, ""); err != nil {
		t.Fatal(err)
	}
	got, _ := store.Get(ctx, rec.ID)
	if _, ok := got.Values[KeyAudio]; ok {
		t.Error("empty Put() should remove the key")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	current := time.Now()
	store.now = func() time.Time { return current }

	rec, _ := store.Create(ctx, time.Minute)
	if _, err := store.Get(ctx, rec.ID); err != nil {
		t.Fatalf("Get() before expiry error = %v", err)
	}

	current = current.Add(2 * time.Minute)
	if _, err := store.Get(ctx, rec.ID); !errors.Is(err, ErrExpired) {
		t.Errorf("Get() after expiry error = %v, want ErrExpired", err)
	}
	if err := store.Put(ctx, rec.ID, KeyBMI, "23"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Put() on swept session error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec, _ := store.Create(ctx, time.Hour)
	_ = store.Put(ctx, rec.ID, KeyDoctorName, "Dr. Lee")

	got, _ := store.Get(ctx, rec.ID)
	got.Values[KeyDoctorName] = "mutated"

	again, _ := store.Get(ctx, rec.ID)
	if again.Values[KeyDoctorName] != "Dr. Lee" {
		t.Error("Get() exposed internal map")
	}
}
