package service

import (
	"context"
	"testing"

	"github.com/yourorg/bizledger/internal/domain"
)

type txnFixture struct {
	svc          *TransactionService
	transactions *memTransactionRepo
	contacts     *memContactRepo
	products     *memProductRepo
}

func newTxnFixture(t *testing.T) *txnFixture {
	t.Helper()
	transactions := newMemTransactionRepo()
	contacts := newMemContactRepo()
	products := newMemProductRepo()
	svc := NewTransactionService(transactions, contacts, products,
		newTestLedger(products), testAuditor(), testLogger())

	ctx := context.Background()
	customer := &domain.Contact{ID: "c-1", Name: "Acme Retail", Email: "buy@acme.test", Type: domain.ContactCustomer}
	vendor := &domain.Contact{ID: "v-1", Name: "Widget Supply Co", Email: "sales@widgets.test", Type: domain.ContactVendor}
	if err := contacts.Create(ctx, testScope, customer); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	if err := contacts.Create(ctx, testScope, vendor); err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	products.addStocked("biz-1", "p-widget", "Widget", 4.50, 10)

	return &txnFixture{svc: svc, transactions: transactions, contacts: contacts, products: products}
}

func TestCreateSaleConsumesStock(t *testing.T) {
	f := newTxnFixture(t)

	txn, err := f.svc.Create(context.Background(), testScope, "u-1", TransactionInput{
		Type:           "sale",
		CounterpartyID: "c-1",
		Items:          []LineItemInput{{ProductID: "p-widget", Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if got := f.products.stock("biz-1", "p-widget"); got != 7 {
		t.Fatalf("expected stock 7 after selling 3 of 10, got %d", got)
	}
	if txn.TotalAmount != 3*4.50 {
		t.Fatalf("expected total %.2f from the product price, got %.2f", 3*4.50, txn.TotalAmount)
	}
	if txn.CustomerID != "c-1" || txn.VendorID != "" {
		t.Fatalf("sale should carry the customer only, got customer=%q vendor=%q", txn.CustomerID, txn.VendorID)
	}
	if _, err := f.transactions.GetByID(context.Background(), testScope, txn.ID); err != nil {
		t.Fatalf("committed transaction should be persisted: %v", err)
	}
}

func TestCreateSaleRejectedWhenStockShort(t *testing.T) {
	f := newTxnFixture(t)

	// 10 on hand, first sale takes 3.
	if _, err := f.svc.Create(context.Background(), testScope, "u-1", TransactionInput{
		Type:           "sale",
		CounterpartyID: "c-1",
		Items:          []LineItemInput{{ProductID: "p-widget", Quantity: 3}},
	}); err != nil {
		t.Fatalf("first sale: %v", err)
	}

	_, err := f.svc.Create(context.Background(), testScope, "u-1", TransactionInput{
		Type:           "sale",
		CounterpartyID: "c-1",
		Items:          []LineItemInput{{ProductID: "p-widget", Quantity: 8}},
	})
	if !domain.IsInsufficientStock(err) {
		t.Fatalf("expected insufficient stock selling 8 of 7, got %v", err)
	}
	if got := f.products.stock("biz-1", "p-widget"); got != 7 {
		t.Fatalf("rejected sale must not move stock, got %d", got)
	}
	txns, _ := f.transactions.List(context.Background(), testScope)
	if len(txns) != 1 {
		t.Fatalf("rejected sale must not be recorded, found %d transactions", len(txns))
	}
}

func TestCreatePurchaseAddsStock(t *testing.T) {
	f := newTxnFixture(t)
	f.products.addStocked("biz-1", "p-gadget", "Gadget", 12.00, 2)

	price := 9.75
	txn, err := f.svc.Create(context.Background(), testScope, "u-1", TransactionInput{
		Type:           "purchase",
		CounterpartyID: "v-1",
		Items:          []LineItemInput{{ProductID: "p-gadget", Quantity: 5, Price: &price}},
	})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	if got := f.products.stock("biz-1", "p-gadget"); got != 7 {
		t.Fatalf("expected stock 7 after purchasing 5 onto 2, got %d", got)
	}
	if txn.TotalAmount != 5*9.75 {
		t.Fatalf("expected total from the explicit line price, got %.2f", txn.TotalAmount)
	}
}

func TestCreateCompensatesWhenPersistFails(t *testing.T) {
	f := newTxnFixture(t)
	f.transactions.failCreate = true

	_, err := f.svc.Create(context.Background(), testScope, "u-1", TransactionInput{
		Type:           "sale",
		CounterpartyID: "c-1",
		Items:          []LineItemInput{{ProductID: "p-widget", Quantity: 4}},
	})
	if err == nil {
		t.Fatal("expected an error when the record cannot be persisted")
	}
	if got := f.products.stock("biz-1", "p-widget"); got != 10 {
		t.Fatalf("reservation must be released after persist failure, stock is %d", got)
	}
}

func TestCreateBatchAllOrNothing(t *testing.T) {
	f := newTxnFixture(t)
	f.products.addStocked("biz-1", "p-scarce", "Scarce Part", 1.00, 1)

	_, err := f.svc.Create(context.Background(), testScope, "u-1", TransactionInput{
		Type:           "sale",
		CounterpartyID: "c-1",
		Items: []LineItemInput{
			{ProductID: "p-widget", Quantity: 2},
			{ProductID: "p-scarce", Quantity: 5},
		},
	})
	if !domain.IsInsufficientStock(err) {
		t.Fatalf("expected insufficient stock on the second line, got %v", err)
	}
	if got := f.products.stock("biz-1", "p-widget"); got != 10 {
		t.Fatalf("first line must not apply when the batch fails, stock is %d", got)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newTxnFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   TransactionInput
	}{
		{"unknown type", TransactionInput{Type: "refund", CounterpartyID: "c-1",
			Items: []LineItemInput{{ProductID: "p-widget", Quantity: 1}}}},
		{"missing counterparty", TransactionInput{Type: "sale",
			Items: []LineItemInput{{ProductID: "p-widget", Quantity: 1}}}},
		{"no items", TransactionInput{Type: "sale", CounterpartyID: "c-1"}},
		{"zero quantity", TransactionInput{Type: "sale", CounterpartyID: "c-1",
			Items: []LineItemInput{{ProductID: "p-widget", Quantity: 0}}}},
		{"negative quantity", TransactionInput{Type: "sale", CounterpartyID: "c-1",
			Items: []LineItemInput{{ProductID: "p-widget", Quantity: -2}}}},
		{"duplicate product", TransactionInput{Type: "sale", CounterpartyID: "c-1",
			Items: []LineItemInput{
				{ProductID: "p-widget", Quantity: 1},
				{ProductID: "p-widget", Quantity: 2},
			}}},
		{"vendor on a sale", TransactionInput{Type: "sale", CounterpartyID: "v-1",
			Items: []LineItemInput{{ProductID: "p-widget", Quantity: 1}}}},
		{"customer on a purchase", TransactionInput{Type: "purchase", CounterpartyID: "c-1",
			Items: []LineItemInput{{ProductID: "p-widget", Quantity: 1}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.Create(ctx, testScope, "u-1", tc.in); !domain.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if got := f.products.stock("biz-1", "p-widget"); got != 10 {
		t.Fatalf("validation failures must not move stock, got %d", got)
	}
}

func TestCreateUnknownCounterpartyIsNotFound(t *testing.T) {
	f := newTxnFixture(t)

	_, err := f.svc.Create(context.Background(), testScope, "u-1", TransactionInput{
		Type:           "sale",
		CounterpartyID: "c-missing",
		Items:          []LineItemInput{{ProductID: "p-widget", Quantity: 1}},
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found for unknown counterparty, got %v", err)
	}
}

func TestCreateCrossTenantProductIsNotFound(t *testing.T) {
	f := newTxnFixture(t)
	f.products.addStocked("biz-2", "p-other", "Other Biz Widget", 1.00, 100)

	_, err := f.svc.Create(context.Background(), testScope, "u-1", TransactionInput{
		Type:           "sale",
		CounterpartyID: "c-1",
		Items:          []LineItemInput{{ProductID: "p-other", Quantity: 1}},
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("another tenant's product must look absent, got %v", err)
	}
	if got := f.products.stock("biz-2", "p-other"); got != 100 {
		t.Fatalf("other tenant's stock must not move, got %d", got)
	}
}

func TestUpdateFreezesLineItems(t *testing.T) {
	f := newTxnFixture(t)
	ctx := context.Background()

	txn, err := f.svc.Create(ctx, testScope, "u-1", TransactionInput{
		Type:           "sale",
		CounterpartyID: "c-1",
		Items:          []LineItemInput{{ProductID: "p-widget", Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	second := &domain.Contact{ID: "c-2", Name: "Beta Stores", Email: "po@beta.test", Type: domain.ContactCustomer}
	if err := f.contacts.Create(ctx, testScope, second); err != nil {
		t.Fatalf("seed contact: %v", err)
	}

	updated, err := f.svc.Update(ctx, testScope, txn.ID, UpdateInput{CounterpartyID: "c-2"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.CustomerID != "c-2" {
		t.Fatalf("expected counterparty change, got %q", updated.CustomerID)
	}
	if len(updated.Items) != 1 || updated.Items[0].Quantity != 3 {
		t.Fatalf("line items must survive updates unchanged, got %+v", updated.Items)
	}
	if got := f.products.stock("biz-1", "p-widget"); got != 7 {
		t.Fatalf("updates must never move stock, got %d", got)
	}

	// A vendor cannot replace the customer on a sale.
	if _, err := f.svc.Update(ctx, testScope, txn.ID, UpdateInput{CounterpartyID: "v-1"}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error swapping in a vendor, got %v", err)
	}
}

func TestDeleteKeepsStockEffect(t *testing.T) {
	f := newTxnFixture(t)
	ctx := context.Background()

	txn, err := f.svc.Create(ctx, testScope, "u-1", TransactionInput{
		Type:           "sale",
		CounterpartyID: "c-1",
		Items:          []LineItemInput{{ProductID: "p-widget", Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.svc.Delete(ctx, testScope, "u-1", txn.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, testScope, txn.ID); !domain.IsNotFound(err) {
		t.Fatalf("deleted transaction should be gone, got %v", err)
	}
	if got := f.products.stock("biz-1", "p-widget"); got != 6 {
		t.Fatalf("deleting the record must not restock, got %d", got)
	}
}

func TestGetDenormalizesDetails(t *testing.T) {
	f := newTxnFixture(t)
	ctx := context.Background()

	txn, err := f.svc.Create(ctx, testScope, "u-1", TransactionInput{
		Type:           "sale",
		CounterpartyID: "c-1",
		Items:          []LineItemInput{{ProductID: "p-widget", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	view, err := f.svc.Get(ctx, testScope, txn.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Counterparty == nil || view.Counterparty.Name != "Acme Retail" {
		t.Fatalf("expected denormalized customer, got %+v", view.Counterparty)
	}
	if p := view.Products["p-widget"]; p == nil || p.Name != "Widget" {
		t.Fatalf("expected denormalized product, got %+v", p)
	}

	// A deleted product degrades to a nil summary instead of failing the read.
	if err := f.products.Delete(ctx, testScope, "p-widget"); err != nil {
		t.Fatalf("delete product: %v", err)
	}
	view, err = f.svc.Get(ctx, testScope, txn.ID)
	if err != nil {
		t.Fatalf("get after product delete: %v", err)
	}
	if view.Products["p-widget"] != nil {
		t.Fatalf("deleted product should have no summary, got %+v", view.Products["p-widget"])
	}
}

func TestListIsScoped(t *testing.T) {
	f := newTxnFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, testScope, "u-1", TransactionInput{
		Type:           "sale",
		CounterpartyID: "c-1",
		Items:          []LineItemInput{{ProductID: "p-widget", Quantity: 1}},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	other := domain.NewBusinessScope("biz-2")
	views, err := f.svc.List(ctx, other)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("another tenant must see no transactions, got %d", len(views))
	}
}
