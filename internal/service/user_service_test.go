package service

import (
	"context"
	"strings"
	"testing"

	"github.com/ubuntu-network/api/internal/apperror"
)

func TestUserServiceFindByID(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserStore()
	created, _, _ := users.GetOrCreate(ctx, "+27821234567")
	svc := NewUserService(users, testLogger())

	got, err := svc.FindByID(ctx, created.ID)
	if err != nil || got.ID != created.ID {
		t.Fatalf("expected %s, got %+v, %v", created.ID, got, err)
	}

	if _, err := svc.FindByID(ctx, "nope"); apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestUserServiceUpdateProfile(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserStore()
	user, _, _ := users.GetOrCreate(ctx, "+27821234567")
	svc := NewUserService(users, testLogger())

	updated, err := svc.UpdateProfile(ctx, user, "  Sipho  ")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.DisplayName != "Sipho" {
		t.Fatalf("expected trimmed name, got %q", updated.DisplayName)
	}

	for _, name := range []string{"", "   ", strings.Repeat("a", 256)} {
		if _, err := svc.UpdateProfile(ctx, user, name); apperror.KindOf(err) != apperror.KindValidation {
			t.Fatalf("expected VALIDATION for %q, got %v", name, err)
		}
	}
}
