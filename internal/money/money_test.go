package money

import (
	"encoding/json"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in      string
		want    Amount
		wantErr bool
	}{
		{"500", 50000, false},
		{"500.00", 50000, false},
		{"1315.5", 131550, false},
		{"0.05", 5, false},
		{".5", 50, false},
		{"-12.34", -1234, false},
		{"12.345", 0, true},
		{"", 0, true},
		{"abc", 0, true},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestString(t *testing.T) {
	cases := []struct {
		in   Amount
		want string
	}{
		{50000, "500.00"},
		{131500, "1315.00"},
		{5, "0.05"},
		{-1234, "-12.34"},
		{0, "0.00"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Errorf("Amount(%d).String() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPercentHalfUp(t *testing.T) {
	// 5% of 1300.00 = 65.00 exactly
	if got := FromPaise(130000).Percent(5); got != 6500 {
		t.Errorf("5%% of 1300.00 = %v, want 65.00", got)
	}
	// 15% of 0.03 = 0.0045 -> rounds half-up to 0.00 (0.45 paise)
	if got := FromPaise(3).Percent(15); got != 0 {
		t.Errorf("15%% of 0.03 = %v, want 0.00", got)
	}
	// 10% of 0.05 = 0.005 -> 0.01 after half-up on paise? 0.5 paise rounds to 1
	if got := FromPaise(5).Percent(10); got != 1 {
		t.Errorf("10%% of 0.05 = %v, want 0.01", got)
	}
	// 18% of 999.99
	if got := FromPaise(99999).Percent(18); got != 18000 {
		t.Errorf("18%% of 999.99 = %v, want 180.00", got)
	}
}

func TestFromRupees(t *testing.T) {
	if got := FromRupees(500); got != 50000 {
		t.Errorf("FromRupees(500) = %d", got)
	}
	if got := FromRupees(0.1 + 0.2); got != 30 {
		t.Errorf("FromRupees(0.1+0.2) = %d, want 30", got)
	}
	if got := FromRupees(-2.50); got != -250 {
		t.Errorf("FromRupees(-2.50) = %d, want -250", got)
	}
}

func TestClampZero(t *testing.T) {
	if got := FromPaise(-500).ClampZero(); got != 0 {
		t.Errorf("ClampZero(-500) = %d", got)
	}
	if got := FromPaise(500).ClampZero(); got != 500 {
		t.Errorf("ClampZero(500) = %d", got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		Total Amount `json:"total"`
	}
	b, err := json.Marshal(payload{Total: 131500})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"total":1315.00}` {
		t.Errorf("marshal = %s", b)
	}
	var p payload
	if err := json.Unmarshal([]byte(`{"total":1315.00}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Total != 131500 {
		t.Errorf("unmarshal total = %d", p.Total)
	}
	if err := json.Unmarshal([]byte(`{"total":"200.50"}`), &p); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if p.Total != 20050 {
		t.Errorf("unmarshal string total = %d", p.Total)
	}
}
