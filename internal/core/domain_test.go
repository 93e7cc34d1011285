package core

import (
	"testing"
	"time"
)

func TestSizeDigitsFor(t *testing.T) {
	cases := []struct {
		cls  SizeClass
		want string
	}{
		{SizeS, "26569"},
		{SizeM, "15458"},
		{SizeL, "04347"},
		{"", ""},
		{"XL", ""},
	}
	for i, tc := range cases {
		if got := SizeDigitsFor(tc.cls); got != tc.want {
			t.Fatalf("case %d: SizeDigitsFor(%q) = %q, want %q", i, tc.cls, got, tc.want)
		}
	}
}

func TestPeriodValid(t *testing.T) {
	cases := []struct {
		p  Period
		ok bool
	}{
		{"2024-01", true},
		{"2024-12", true},
		{"2024-13", false},
		{"2024-00", false},
		{"2024-1", false},
		{"202401", false},
		{"abcd-01", false},
		{"", false},
	}
	for i, tc := range cases {
		if got := tc.p.Valid(); got != tc.ok {
			t.Fatalf("case %d: (%q).Valid() = %v, want %v", i, tc.p, got, tc.ok)
		}
	}
}

func TestPeriodHelpers(t *testing.T) {
	ts := time.Date(2024, time.July, 15, 10, 0, 0, 0, time.UTC)
	if got := PeriodOf(ts); got != "2024-07" {
		t.Fatalf("PeriodOf = %q", got)
	}
	if got := StartOfYear(ts); got != "2024-01" {
		t.Fatalf("StartOfYear = %q", got)
	}
}

func TestDisplayPeriod(t *testing.T) {
	s := Sale{Month: "2024-03"}
	if got := s.DisplayPeriod(); got != "2024-03" {
		t.Fatalf("expected derived month, got %q", got)
	}
	s.ManualMonth = "2024-01"
	if got := s.DisplayPeriod(); got != "2024-01" {
		t.Fatalf("manual month should win, got %q", got)
	}
}

func TestSaleValidate(t *testing.T) {
	good := Sale{ChipType: ChipTypes[0], SizeCls: SizeM, PriceTotal: 3200, StoreID: 1}
	if err := good.Validate(true); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name          string
		sale          Sale
		storeRequired bool
		want          error
	}{
		{"unknown chip type", Sale{ChipType: "oval", PriceTotal: 1}, false, ErrInvalidChipType},
		{"empty chip type", Sale{PriceTotal: 1}, false, ErrInvalidChipType},
		{"bad size class", Sale{ChipType: ChipTypes[0], SizeCls: "XL"}, false, ErrInvalidSize},
		{"bad manual month", Sale{ChipType: ChipTypes[0], ManualMonth: "2024/01"}, false, ErrInvalidPeriod},
		{"negative price", Sale{ChipType: ChipTypes[0], PriceTotal: -1}, false, ErrNegativePrice},
		{"missing required store", Sale{ChipType: ChipTypes[0], PriceTotal: 1}, true, ErrStoreRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.sale.Validate(tc.storeRequired); err != tc.want {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}

	// Optional fields stay optional when the store switch is off.
	minimal := Sale{ChipType: ChipTypes[1]}
	if err := minimal.Validate(false); err != nil {
		t.Fatalf("minimal sale should validate, got %v", err)
	}
}

func TestStoreValidate(t *testing.T) {
	if err := (Store{Name: "Matoeru 金沢店"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Store{Name: "   "}).Validate(); err != ErrEmptyStoreName {
		t.Fatalf("expected ErrEmptyStoreName, got %v", err)
	}
}
