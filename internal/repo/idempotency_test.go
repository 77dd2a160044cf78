package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-admin-backend/internal/domain"
)

func TestCreateIdempotency_RoundTripAndDuplicate(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	ctx := context.Background()

	rec, err := CreateIdempotency(ctx, db, "acc1", "conv1", "key-1", "turn-1", 200, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ID == "" || rec.TurnID != "turn-1" || rec.Status != 200 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "acc1", "conv1", "key-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("GetIdempotency: %v", err)
	}
	if got.TurnID != "turn-1" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}

	// Same tuple again must map the unique violation to ErrDuplicate.
	if _, err := CreateIdempotency(ctx, db, "acc1", "conv1", "key-1", "turn-2", 200, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// Different key under the same conversation is a fresh record.
	if _, err := CreateIdempotency(ctx, db, "acc1", "conv1", "key-2", "turn-2", 200, time.Hour); err != nil {
		t.Fatalf("second key: %v", err)
	}
}

func TestGetIdempotency_ExpiredAndScoping(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "acc1", "conv1", "key-1", "t", 200, time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Lookup beyond the TTL window misses.
	if _, err := GetIdempotency(ctx, db, "acc1", "conv1", "key-1", time.Now().UTC().Add(2*time.Minute)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}

	// Wrong account or conversation misses.
	if _, err := GetIdempotency(ctx, db, "acc2", "conv1", "key-1", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign account, got %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "acc1", "", "key-1", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty conversation id, got %v", err)
	}
}

func TestPurgeExpiredIdempotency(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "a", "c", "live", "t", 200, time.Hour); err != nil {
		t.Fatalf("create live: %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, "a", "c", "dead", "t", 200, time.Millisecond); err != nil {
		t.Fatalf("create dead: %v", err)
	}

	n, err := PurgeExpiredIdempotency(ctx, db, time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("PurgeExpiredIdempotency: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d records; want 1", n)
	}
	if _, err := GetIdempotency(ctx, db, "a", "c", "live", time.Now().UTC()); err != nil {
		t.Fatalf("live record should survive: %v", err)
	}
}
