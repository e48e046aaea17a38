package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestStoreErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStoreError(FailureConnectivity, "document: ping", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected StoreError to unwrap to its cause")
	}
	if KindOf(err) != FailureConnectivity {
		t.Fatalf("KindOf = %v, want connectivity", KindOf(err))
	}

	wrapped := fmt.Errorf("health check: %w", err)
	if KindOf(wrapped) != FailureConnectivity {
		t.Fatal("expected kind to survive further wrapping")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if KindOf(errors.New("plain")) != FailureUnknown {
		t.Fatal("expected unclassified errors to report unknown")
	}
}

func TestIsAuthorizationFailure(t *testing.T) {
	err := NewStoreError(FailureAuthorization, "document: add like", ErrStoreDisabled)
	if !IsAuthorizationFailure(err) {
		t.Fatal("expected authorization failure")
	}
	if IsAuthorizationFailure(errors.New("nope")) {
		t.Fatal("plain error must not be an authorization failure")
	}
}

func TestIsConflict(t *testing.T) {
	for _, err := range []error{
		ErrAlreadyFollowing,
		ErrSelfFollow,
		ErrPrivateAccount,
		NewStoreError(FailureConflict, "relational: follow", errors.New("23505")),
	} {
		if !IsConflict(err) {
			t.Errorf("expected conflict for %v", err)
		}
	}
	if IsConflict(ErrUserNotFound) {
		t.Error("not-found must not be a conflict")
	}
}

func TestIsNotFoundError(t *testing.T) {
	for _, err := range []error{ErrUserNotFound, ErrListNotFound, ErrCommentNotFound} {
		if !IsNotFoundError(err) {
			t.Errorf("expected not-found for %v", err)
		}
		if !IsNotFoundError(fmt.Errorf("looking up: %w", err)) {
			t.Errorf("expected not-found to survive wrapping for %v", err)
		}
	}
}

func TestErasureReportComplete(t *testing.T) {
	if (ErasureReport{DocumentOK: true}).Complete() {
		t.Fatal("half-done erasure must not be complete")
	}
	if !(ErasureReport{DocumentOK: true, RelationalOK: true}).Complete() {
		t.Fatal("expected complete report")
	}
}

func TestActivityKindValid(t *testing.T) {
	if !ActivityView.Valid() || !ActivityAddToList.Valid() {
		t.Fatal("expected known kinds to be valid")
	}
	if ActivityKind("teleport").Valid() {
		t.Fatal("unknown kind must be invalid")
	}
}
