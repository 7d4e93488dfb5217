package service

import (
	"context"
	"net/http"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository/memory"
)

func newAuthService(store *memory.Store) *AuthService {
	return NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            bcrypt.MinCost,
	}, AuthDependencies{UserRepo: store.Users()})
}

func TestRegisterAndLogin(t *testing.T) {
	store := memory.NewStore()
	svc := newAuthService(store)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Name: "Asha", Email: " Asha@Example.com ", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.User.Role != domain.RoleCustomer || reg.User.Email != "asha@example.com" {
		t.Fatalf("unexpected user %+v", reg.User)
	}
	claims, err := svc.TokenManager().ParseToken(reg.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != reg.User.ID || claims.Role != domain.RoleCustomer {
		t.Fatalf("unexpected claims %+v", claims)
	}

	_, err = svc.Register(ctx, RegisterInput{Name: "Dup", Email: "asha@example.com", Password: "secret1"})
	assertStatus(t, err, http.StatusConflict)
	_, err = svc.Register(ctx, RegisterInput{Name: "", Email: "bad", Password: "x"})
	assertStatus(t, err, http.StatusBadRequest)

	if _, err := svc.Login(ctx, "ASHA@example.com", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	_, err = svc.Login(ctx, "asha@example.com", "wrong-password")
	assertStatus(t, err, http.StatusUnauthorized)
	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestCreateStaffAllocatesEmployeeIDs(t *testing.T) {
	store := memory.NewStore()
	svc := newAuthService(store)
	ctx := context.Background()

	first, err := svc.CreateStaff(ctx, admin, CreateStaffInput{Name: "A", Email: "a@example.com", Password: "secret1", Role: domain.RoleHumanAgent})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}
	second, err := svc.CreateStaff(ctx, admin, CreateStaffInput{Name: "B", Email: "b@example.com", Password: "secret1", Role: domain.RoleHumanAgent})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}
	if *first.EmployeeID != "HA00001" || *second.EmployeeID != "HA00002" {
		t.Fatalf("unexpected employee ids %s %s", *first.EmployeeID, *second.EmployeeID)
	}

	third, err := svc.CreateStaff(ctx, admin, CreateStaffInput{Name: "E", Email: "e@example.com", Password: "secret1", Role: " Human_Agent "})
	if err != nil {
		t.Fatalf("create staff with mixed-case role: %v", err)
	}
	if third.Role != domain.RoleHumanAgent || *third.EmployeeID != "HA00003" {
		t.Fatalf("expected normalized human_agent HA00003, got %s %s", third.Role, *third.EmployeeID)
	}

	_, err = svc.CreateStaff(ctx, manager, CreateStaffInput{Name: "C", Email: "c@example.com", Password: "secret1", Role: domain.RoleHumanAgent})
	assertStatus(t, err, http.StatusForbidden)
	_, err = svc.CreateStaff(ctx, admin, CreateStaffInput{Name: "D", Email: "d@example.com", Password: "secret1", Role: domain.RoleCustomer})
	assertStatus(t, err, http.StatusBadRequest)

	agent := domain.Actor{UserID: first.ID, Role: domain.RoleHumanAgent}
	if err := svc.SetOnline(ctx, agent, true); err != nil {
		t.Fatalf("set online: %v", err)
	}
	me, err := svc.Me(ctx, agent)
	if err != nil || !me.IsOnline {
		t.Fatalf("expected online agent, got %+v %v", me, err)
	}
	assertStatus(t, svc.SetOnline(ctx, customer, true), http.StatusForbidden)
}

func TestListStaff(t *testing.T) {
	store := memory.NewStore()
	svc := newAuthService(store)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Name: "Cus", Email: "cus@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	for i, role := range []domain.Role{domain.RoleManager, domain.RoleHumanAgent, domain.RoleHumanAgent} {
		email := string(role) + string(rune('a'+i)) + "@example.com"
		if _, err := svc.CreateStaff(ctx, admin, CreateStaffInput{Name: "S", Email: email, Password: "secret1", Role: role}); err != nil {
			t.Fatalf("create staff: %v", err)
		}
	}

	all, err := svc.ListStaff(ctx, manager, nil)
	if err != nil {
		t.Fatalf("list staff: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 employees, got %d", len(all))
	}
	agents, err := svc.ListStaff(ctx, manager, []string{"Human_Agent"})
	if err != nil {
		t.Fatalf("list agents: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(agents))
	}

	_, err = svc.ListStaff(ctx, manager, []string{"customer"})
	assertStatus(t, err, http.StatusBadRequest)
	_, err = svc.ListStaff(ctx, customer, nil)
	assertStatus(t, err, http.StatusForbidden)
}
