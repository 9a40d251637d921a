package auth

import (
	"context"
	"testing"
)

func TestPrincipalContextRoundTrip(t *testing.T) {
	p := &Principal{UserID: "user-1", Email: "a@x.com", Role: RoleViewer, SessionID: "sess-1"}
	ctx := WithPrincipal(context.Background(), p)

	got := PrincipalFromContext(ctx)
	if got == nil {
		t.Fatal("expected principal in context")
	}
	if got.UserID != "user-1" || got.Role != RoleViewer || got.SessionID != "sess-1" {
		t.Errorf("unexpected principal: %+v", got)
	}
}

func TestPrincipalFromContext_Empty(t *testing.T) {
	if p := PrincipalFromContext(context.Background()); p != nil {
		t.Errorf("expected nil principal, got %+v", p)
	}
}
