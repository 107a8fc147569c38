package kerrors

import (
	"errors"
	"testing"
)

func TestSentinelsMatchByKindOnly(t *testing.T) {
	wrapped := &AuthError{Kind: AuthExecFailed, ExitCode: 1, Stderr: "boom"}
	if !errors.Is(wrapped, ErrExecFailed) {
		t.Error("expected errors.Is to match on Kind regardless of ExitCode/Stderr")
	}
	if errors.Is(wrapped, ErrUnconfigured) {
		t.Error("expected a different Kind not to match")
	}

	nf := &NotFoundError{Kind: NotFoundUnknownResource, Subject: "widgets"}
	if !errors.Is(nf, ErrUnknownResource) {
		t.Error("expected errors.Is to match on Kind regardless of Subject")
	}
	if errors.Is(nf, ErrUnknownCluster) {
		t.Error("expected a different Kind not to match")
	}

	to := &TimeoutError{Kind: TimeoutCheckout}
	if !errors.Is(to, ErrCheckoutTimeout) {
		t.Error("expected errors.Is to match TimeoutCheckout")
	}
	if errors.Is(to, &TimeoutError{Kind: TimeoutWait}) {
		t.Error("expected a different Kind not to match")
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := &AuthError{Kind: AuthExpired, Err: errors.New("token expired")}
	wrapped := wrapErr(err)
	if !errors.Is(wrapped, ErrCredExpired) {
		t.Error("expected errors.Is to unwrap to the sentinel's Kind")
	}
}

func wrapErr(err error) error {
	return &DecodeError{Err: err}
}
