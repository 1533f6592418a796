package signing

import (
	"errors"
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	payload := map[string]string{
		"order_no": "ORD20240601120000abc",
		"amount":   "990",
		"status":   "success",
	}

	envelope := Sign(payload, "secret", now)
	if envelope.Nonce == "" || envelope.Signature == "" {
		t.Fatalf("incomplete envelope: %+v", envelope)
	}
	if envelope.Timestamp != now.Unix() {
		t.Fatalf("expected timestamp %d, got %d", now.Unix(), envelope.Timestamp)
	}

	err := Verify(payload, envelope.Nonce, envelope.Timestamp, envelope.Signature, "secret", CallbackWindow, now)
	if err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	payload := map[string]string{"order_no": "ORD1", "amount": "990"}

	envelope := Sign(payload, "secret", now)
	payload["amount"] = "1"

	err := Verify(payload, envelope.Nonce, envelope.Timestamp, envelope.Signature, "secret", CallbackWindow, now)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	payload := map[string]string{"order_no": "ORD1"}

	envelope := Sign(payload, "secret", now)

	err := Verify(payload, envelope.Nonce, envelope.Timestamp, envelope.Signature, "other", CallbackWindow, now)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsExpiredTimestamp(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	payload := map[string]string{"order_no": "ORD1"}

	envelope := Sign(payload, "secret", now)

	late := now.Add(CallbackWindow + time.Second)
	err := Verify(payload, envelope.Nonce, envelope.Timestamp, envelope.Signature, "secret", CallbackWindow, late)
	if !errors.Is(err, ErrSignatureExpired) {
		t.Fatalf("expected ErrSignatureExpired, got %v", err)
	}

	// Future-dated signatures are rejected symmetrically.
	early := now.Add(-CallbackWindow - time.Second)
	err = Verify(payload, envelope.Nonce, envelope.Timestamp, envelope.Signature, "secret", CallbackWindow, early)
	if !errors.Is(err, ErrSignatureExpired) {
		t.Fatalf("expected ErrSignatureExpired, got %v", err)
	}
}

func TestVerifyAcceptsAtWindowBoundary(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	payload := map[string]string{"order_no": "ORD1"}

	envelope := Sign(payload, "secret", now)

	boundary := now.Add(CallbackWindow)
	err := Verify(payload, envelope.Nonce, envelope.Timestamp, envelope.Signature, "secret", CallbackWindow, boundary)
	if err != nil {
		t.Fatalf("expected signature valid at boundary, got %v", err)
	}
}

func TestComputeExcludesSignKey(t *testing.T) {
	withSign := map[string]string{"order_no": "ORD1", "sign": "bogus"}
	withoutSign := map[string]string{"order_no": "ORD1"}

	a := Compute(withSign, "n", 100, "secret")
	b := Compute(withoutSign, "n", 100, "secret")
	if a != b {
		t.Fatal("expected sign key to be excluded from the canonical string")
	}
}

func TestComputeIsOrderIndependent(t *testing.T) {
	// Maps iterate in random order; the canonical string must not.
	payload := map[string]string{"b": "2", "a": "1", "c": "3"}
	first := Compute(payload, "n", 100, "secret")
	for i := 0; i < 10; i++ {
		if got := Compute(payload, "n", 100, "secret"); got != first {
			t.Fatalf("expected deterministic signature, got %s then %s", first, got)
		}
	}
}

func TestSignDoesNotMutatePayload(t *testing.T) {
	payload := map[string]string{"order_no": "ORD1"}
	Sign(payload, "secret", time.Now())
	if len(payload) != 1 {
		t.Fatalf("expected payload untouched, got %v", payload)
	}
}
