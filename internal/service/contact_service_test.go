package service

import (
	"context"
	"testing"

	"github.com/yourorg/bizledger/internal/domain"
)

func newContactFixture() (*ContactService, *memContactRepo) {
	repo := newMemContactRepo()
	return NewContactService(repo, testLogger()), repo
}

func TestContactCreateAndGet(t *testing.T) {
	svc, _ := newContactFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, testScope, ContactInput{
		Name:  "Acme Retail",
		Email: "Buy@Acme.Test",
		Phone: "555-0100",
		Type:  "customer",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Email != "buy@acme.test" {
		t.Fatalf("email should be lowercased, got %q", created.Email)
	}

	got, err := svc.Get(ctx, testScope, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Acme Retail" || got.Type != domain.ContactCustomer {
		t.Fatalf("unexpected contact: %+v", got)
	}
}

func TestContactCreateValidation(t *testing.T) {
	svc, _ := newContactFixture()
	ctx := context.Background()

	valid := ContactInput{Name: "Acme", Email: "a@b.test", Phone: "555-0100", Type: "customer"}

	cases := []struct {
		name   string
		mutate func(*ContactInput)
	}{
		{"short name", func(in *ContactInput) { in.Name = "A" }},
		{"bad email", func(in *ContactInput) { in.Email = "not-an-email" }},
		{"short phone", func(in *ContactInput) { in.Phone = "123" }},
		{"unknown type", func(in *ContactInput) { in.Type = "partner" }},
		{"short address", func(in *ContactInput) { in.Address = "ab" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			if _, err := svc.Create(ctx, testScope, in); !domain.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	// Address is optional when empty.
	if _, err := svc.Create(ctx, testScope, valid); err != nil {
		t.Fatalf("create without address: %v", err)
	}
}

func TestContactUpdatePartial(t *testing.T) {
	svc, _ := newContactFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, testScope, ContactInput{
		Name: "Widget Supply Co", Email: "sales@widgets.test", Phone: "555-0200", Type: "vendor",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(ctx, testScope, created.ID, ContactInput{Phone: "555-0299"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Phone != "555-0299" {
		t.Fatalf("phone not updated: %q", updated.Phone)
	}
	if updated.Name != "Widget Supply Co" || updated.Type != domain.ContactVendor {
		t.Fatalf("untouched fields must survive, got %+v", updated)
	}

	if _, err := svc.Update(ctx, testScope, created.ID, ContactInput{Type: "partner"}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for bad type, got %v", err)
	}
}

func TestContactScopeIsolation(t *testing.T) {
	svc, _ := newContactFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, testScope, ContactInput{
		Name: "Acme", Email: "a@b.test", Phone: "555-0100", Type: "customer",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	other := domain.NewBusinessScope("biz-2")
	if _, err := svc.Get(ctx, other, created.ID); !domain.IsNotFound(err) {
		t.Fatalf("cross-tenant get must look absent, got %v", err)
	}
	if err := svc.Delete(ctx, other, created.ID); !domain.IsNotFound(err) {
		t.Fatalf("cross-tenant delete must look absent, got %v", err)
	}
	if _, err := svc.Get(ctx, testScope, created.ID); err != nil {
		t.Fatalf("contact must survive the foreign delete attempt: %v", err)
	}
}
