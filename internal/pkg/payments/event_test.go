package payments

import (
	"encoding/json"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestParseEvent(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.payment_succeeded","data":{"object":{"id":"in_1"}}}`)
	event, err := ParseEvent(payload)
	if err != nil {
		t.Fatalf("ParseEvent returned error: %v", err)
	}
	if event.ID != "evt_1" || event.Type != EventInvoicePaymentSucceeded {
		t.Fatalf("unexpected envelope: %+v", event)
	}

	untyped, err := ParseEvent([]byte(`{"id":"evt_2"}`))
	if err != nil {
		t.Fatalf("event without type must still parse: %v", err)
	}
	if untyped.ID != "evt_2" || untyped.Type != "" {
		t.Fatalf("unexpected untyped envelope: %+v", untyped)
	}
	if _, err := ParseEvent([]byte(`not json`)); err == nil {
		t.Fatalf("expected malformed payload to be rejected")
	}
}

func TestParseInvoice(t *testing.T) {
	raw := json.RawMessage(`{"id":"in_1","customer":"cus_1","amount_paid":2000}`)
	invoice, err := ParseInvoice(raw)
	if err != nil {
		t.Fatalf("ParseInvoice returned error: %v", err)
	}
	if invoice.ID != "in_1" || invoice.CustomerID != "cus_1" {
		t.Fatalf("unexpected invoice: %+v", invoice)
	}

	if _, err := ParseInvoice(json.RawMessage(`{}`)); err == nil {
		t.Fatalf("expected invoice without id to be rejected")
	}
	if _, err := ParseInvoice(nil); err == nil {
		t.Fatalf("expected empty object to be rejected")
	}
}

func TestLineEffectiveQuantity(t *testing.T) {
	tests := []struct {
		name string
		line InvoiceLine
		want int
	}{
		{name: "absent defaults to 1", line: InvoiceLine{}, want: 1},
		{name: "zero defaults to 1", line: InvoiceLine{Quantity: intPtr(0)}, want: 1},
		{name: "explicit value", line: InvoiceLine{Quantity: intPtr(3)}, want: 3},
	}
	for _, tt := range tests {
		if got := tt.line.EffectiveQuantity(); got != tt.want {
			t.Fatalf("%s: EffectiveQuantity() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestLineEffectiveUnitPrice(t *testing.T) {
	tests := []struct {
		name string
		line InvoiceLine
		want int64
	}{
		{name: "structured price wins", line: InvoiceLine{Amount: 900, Price: &LinePrice{UnitAmount: 500}}, want: 500},
		{name: "falls back to line amount", line: InvoiceLine{Amount: 900}, want: 900},
		{name: "zero unit amount falls through", line: InvoiceLine{Amount: 900, Price: &LinePrice{}}, want: 900},
		{name: "defaults to zero", line: InvoiceLine{}, want: 0},
	}
	for _, tt := range tests {
		if got := tt.line.EffectiveUnitPrice(); got != tt.want {
			t.Fatalf("%s: EffectiveUnitPrice() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestLineEffectiveMetadata(t *testing.T) {
	priceMD := map[string]string{"variant_sku": "X1"}
	lineMD := map[string]string{"sku": "Y2"}

	line := InvoiceLine{Metadata: lineMD, Price: &LinePrice{Metadata: priceMD}}
	if got := line.EffectiveMetadata()["variant_sku"]; got != "X1" {
		t.Fatalf("expected price metadata to win, got %q", got)
	}

	line = InvoiceLine{Metadata: lineMD, Price: &LinePrice{}}
	if got := line.EffectiveMetadata()["sku"]; got != "Y2" {
		t.Fatalf("expected line metadata fallback, got %q", got)
	}

	line = InvoiceLine{}
	if md := line.EffectiveMetadata(); md == nil {
		t.Fatalf("expected non-nil metadata default")
	}
}

func TestLineVariantSKU(t *testing.T) {
	tests := []struct {
		name string
		line InvoiceLine
		want string
	}{
		{name: "variant_sku key", line: InvoiceLine{Metadata: map[string]string{"variant_sku": "X1"}}, want: "X1"},
		{name: "sku key fallback", line: InvoiceLine{Metadata: map[string]string{"sku": "Y2"}}, want: "Y2"},
		{name: "variant_sku wins over sku", line: InvoiceLine{Metadata: map[string]string{"variant_sku": "X1", "sku": "Y2"}}, want: "X1"},
		{name: "no sku", line: InvoiceLine{Metadata: map[string]string{"color": "red"}}, want: ""},
	}
	for _, tt := range tests {
		if got := tt.line.VariantSKU(); got != tt.want {
			t.Fatalf("%s: VariantSKU() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestLineDisplayName(t *testing.T) {
	tests := []struct {
		name string
		line InvoiceLine
		want string
	}{
		{name: "description wins", line: InvoiceLine{Description: "Whey 1kg", Price: &LinePrice{Nickname: "monthly"}}, want: "Whey 1kg"},
		{name: "nickname fallback", line: InvoiceLine{Price: &LinePrice{Nickname: "monthly"}}, want: "monthly"},
		{name: "default", line: InvoiceLine{}, want: "Item"},
	}
	for _, tt := range tests {
		if got := tt.line.DisplayName(); got != tt.want {
			t.Fatalf("%s: DisplayName() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestInvoiceEffectiveTotalAndCurrency(t *testing.T) {
	inv := Invoice{AmountPaid: 2000, Total: 2500}
	if got := inv.EffectiveTotal(); got != 2000 {
		t.Fatalf("expected amount_paid to win, got %d", got)
	}
	inv = Invoice{Total: 2500}
	if got := inv.EffectiveTotal(); got != 2500 {
		t.Fatalf("expected total fallback, got %d", got)
	}
	inv = Invoice{}
	if got := inv.EffectiveTotal(); got != 0 {
		t.Fatalf("expected zero default, got %d", got)
	}

	if got := (&Invoice{Currency: "EUR"}).EffectiveCurrency(); got != "eur" {
		t.Fatalf("expected lowercased currency, got %q", got)
	}
	if got := (&Invoice{}).EffectiveCurrency(); got != "usd" {
		t.Fatalf("expected usd default, got %q", got)
	}
}
