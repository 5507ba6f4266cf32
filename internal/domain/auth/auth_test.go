package auth

import (
	"context"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := "test-secret"
	token, err := GenerateToken(secret, Claims{
		EmployeeID: "emp-1",
		Name:       "Suzuki Akira",
		Role:       RoleEmployee,
		Department: "engineering",
	}, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.EmployeeID != "emp-1" || claims.Role != RoleEmployee || claims.Department != "engineering" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret-a", Claims{EmployeeID: "emp-1", Role: RoleEmployee}, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseToken("secret-b", token); err == nil {
		t.Fatal("expected signature rejection")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken("secret", Claims{EmployeeID: "emp-1"}, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseToken("secret", token); err == nil {
		t.Fatal("expected expiry rejection")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	if _, err := ParseToken("secret", "not.a.token"); err == nil {
		t.Fatal("expected parse failure")
	}
}

func TestRolePermissionBoundaries(t *testing.T) {
	perms := StaticPermissions{}
	ctx := context.Background()

	cases := []struct {
		role       string
		permission string
		want       bool
	}{
		{RoleEmployee, PermBookingRequest, true},
		{RoleEmployee, PermRemindersRead, true},
		{RoleEmployee, PermBookingAdmin, false},
		{RoleEmployee, PermSlotsManage, false},
		{RoleEmployee, PermReportsRead, false},
		{RoleCoordinator, PermBookingAdmin, true},
		{RoleCoordinator, PermSlotsManage, true},
		{RoleCoordinator, PermReportsRead, true},
		{RoleCoordinator, PermProfilesWrite, false},
		{RoleCoordinator, PermSystemAdmin, false},
		{RoleAdmin, PermProfilesWrite, true},
		{RoleAdmin, PermAuditRead, true},
		{RoleAdmin, PermSystemAdmin, true},
		{"intern", PermBookingRead, false},
	}
	for _, tc := range cases {
		got, err := perms.HasPermission(ctx, tc.role, tc.permission)
		if err != nil {
			t.Fatalf("%s/%s: %v", tc.role, tc.permission, err)
		}
		if got != tc.want {
			t.Fatalf("%s has %s = %v, want %v", tc.role, tc.permission, got, tc.want)
		}
	}
}
