package rbac

import (
	"errors"
	"testing"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role       string
		permission string
		want       bool
	}{
		{RoleUser, PermissionReadNotification, true},
		{RoleUser, PermissionCreateNotification, false},
		{RoleService, PermissionCreateNotification, true},
		{RoleService, PermissionDeleteNotification, false},
		{RoleAdmin, PermissionCreateNotification, true},
		{"", PermissionUpdateNotification, true},
		{"superuser", PermissionCreateNotification, false},
	}
	for _, tt := range tests {
		if got := HasPermission(tt.role, tt.permission); got != tt.want {
			t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.role, tt.permission, got, tt.want)
		}
	}
}

func TestCheckPermission(t *testing.T) {
	err := CheckPermission("u1", "", PermissionCreateNotification)
	var denied *PermissionDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("CheckPermission() = %v, want *PermissionDeniedError", err)
	}
	if denied.Role != RoleUser || denied.UserID != "u1" {
		t.Fatalf("denied = %+v", denied)
	}
	if err := CheckPermission("svc", RoleService, PermissionCreateNotification); err != nil {
		t.Fatalf("CheckPermission() = %v, want nil", err)
	}
}

func TestCheckOwnership(t *testing.T) {
	if err := CheckOwnership("u1", "u1"); err != nil {
		t.Fatalf("CheckOwnership() = %v, want nil", err)
	}
	var own *OwnershipError
	if err := CheckOwnership("u1", "u2"); !errors.As(err, &own) {
		t.Fatalf("CheckOwnership() = %v, want *OwnershipError", err)
	}
}
