package types

import (
	"encoding/json"
	"testing"
)

func TestCategoryForIsCyclic(t *testing.T) {
	if CategoryFor(1) != CategoryFor(6) {
		t.Errorf("ids 1 and 6 map to %q and %q", CategoryFor(1), CategoryFor(6))
	}
	tests := []struct {
		id   int64
		want string
	}{
		{1, "electronics"},
		{2, "fashion"},
		{5, "sports"},
		{6, "electronics"},
		{2000, "sports"},
		{0, "sports"},
		{-4, "electronics"},
	}
	for _, tt := range tests {
		if got := CategoryFor(tt.id); got != tt.want {
			t.Errorf("CategoryFor(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}
	for id := int64(1); id <= 50; id++ {
		if CategoryFor(id) != CategoryFor(id+int64(len(ProductCategories))) {
			t.Fatalf("period broken at %d", id)
		}
	}
}

func TestVariantFor(t *testing.T) {
	for id := int64(1); id <= 10; id++ {
		want := VariantControl
		if id%2 == 0 {
			want = VariantTest
		}
		if got := VariantFor(id); got != want {
			t.Errorf("VariantFor(%d) = %s, want %s", id, got, want)
		}
	}
}

func TestEventTypeText(t *testing.T) {
	for _, et := range EventTypes() {
		b, err := et.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back EventType
		if err := back.UnmarshalText(b); err != nil || back != et {
			t.Errorf("round trip of %s gave %s, %v", et, back, err)
		}
	}
	if _, err := ParseEventType("refund"); err == nil {
		t.Error("expected error for unknown event type")
	}
	if EventType(9).String() != "EventType(9)" {
		t.Errorf("got %q", EventType(9).String())
	}
	for i := 1; i < len(EventTypes()); i++ {
		if EventTypes()[i] <= EventTypes()[i-1] {
			t.Fatal("event types are not in funnel order")
		}
	}
}

func TestEventJSONUsesNames(t *testing.T) {
	e := Event{EventType: EventAddToCart, SessionID: Ptr("s1")}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	if m["event_type"] != "add_to_cart" {
		t.Errorf("event_type = %v", m["event_type"])
	}
	if m["product_id"] != nil {
		t.Errorf("product_id = %v, want null", m["product_id"])
	}
}

func TestEventCloneIsDeep(t *testing.T) {
	e := Event{SessionID: Ptr("s1"), ProductID: Ptr(int64(3)), Variant: Ptr(VariantTest)}
	c := e.Clone()
	*c.SessionID = "changed"
	*c.ProductID = 9
	if *e.SessionID != "s1" || *e.ProductID != 3 {
		t.Error("Clone shares pointers with the original")
	}
	if c.ABTestID != nil {
		t.Error("nil fields should stay nil")
	}
}

func TestParseEnum(t *testing.T) {
	d, err := ParseEnum(Devices(), "tablet")
	if err != nil || d != DeviceTablet {
		t.Errorf("ParseEnum(tablet) = %v, %v", d, err)
	}
	if _, err := ParseEnum(Countries(), "FR"); err == nil {
		t.Error("expected error for unknown country")
	}
}

func TestNetPriceAndCents(t *testing.T) {
	o := Order{Price: 10.50, DiscountAmount: 0.51}
	if o.NetPrice() != 9.99 {
		t.Errorf("NetPrice = %v", o.NetPrice())
	}
	if ToCents(19.99) != 1999 || FromCents(1999) != 19.99 {
		t.Error("cent conversion is lossy")
	}
}

func TestSchemasValidate(t *testing.T) {
	for _, s := range []Schema{UsersSchema(), SessionsSchema(), EventsSchema(), OrdersSchema()} {
		if err := s.Validate(); err != nil {
			t.Errorf("%s: %v", s.Table, err)
		}
	}

	bad := UsersSchema()
	bad.Indexes = append(bad.Indexes, IndexDef{Name: "idx_bad", Columns: []string{"nope"}})
	if bad.Validate() == nil {
		t.Error("expected error for index on unknown column")
	}
	dup := OrdersSchema()
	dup.Columns = append(dup.Columns, dup.Columns[0])
	if dup.Validate() == nil {
		t.Error("expected error for duplicate column")
	}
	if (Schema{Table: "x", Version: 1, Columns: []ColumnDef{{Name: "a", Type: "TEXT"}}}).Validate() == nil {
		t.Error("expected error for missing primary key")
	}
}
