package core

import (
	"errors"
	"strings"
	"time"
)

const (
	SizeS SizeClass = "S"
	SizeM SizeClass = "M"
	SizeL SizeClass = "L"
)

type (
	// SizeClass is the coarse S/M/L sizing bucket of a chip.
	SizeClass string

	// Period is a "YYYY-MM" month token. Periods compare lexically,
	// so range filtering is plain string comparison.
	Period string

	Store struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// Sale is one recorded chip sale. StoreID zero means no store is
	// attached; StoreName is joined in by the storage layer for display.
	Sale struct {
		ID          int64     `json:"id"`
		CreatedAt   time.Time `json:"created_at"`
		Month       Period    `json:"month"`
		ManualMonth Period    `json:"manual_month,omitempty"`
		ChipType    string    `json:"chip_type"`
		ChipNumber  string    `json:"chip_number,omitempty"`
		SizeCls     SizeClass `json:"size_cls,omitempty"`
		SizeDigits  string    `json:"size_digits,omitempty"`
		PriceTotal  int64     `json:"price_total"`
		StoreID     int64     `json:"store_id,omitempty"`
		StoreName   string    `json:"store_name,omitempty"`
		Note        string    `json:"note,omitempty"`
	}
)

// ChipTypes is the fixed set of product style labels. The first entry
// is the form default.
var ChipTypes = []string{"ショートオーバル", "ベリーショート"}

// sizeDigits maps each size class to its 5-digit size code. The table
// only pre-fills the digits field; a manually entered value wins until
// the size class changes again.
var sizeDigits = map[SizeClass]string{
	SizeS: "26569",
	SizeM: "15458",
	SizeL: "04347",
}

var (
	ErrInvalidChipType = errors.New("invalid chip type")
	ErrInvalidSize     = errors.New("invalid size class")
	ErrInvalidPeriod   = errors.New("invalid period token")
	ErrNegativePrice   = errors.New("price must not be negative")
	ErrStoreRequired   = errors.New("store is required")
	ErrEmptyStoreName  = errors.New("empty store name")
)

// SizeDigitsFor returns the 5-digit code for a size class, or "" when
// the class is empty or unknown.
func SizeDigitsFor(c SizeClass) string {
	return sizeDigits[c]
}

func (c SizeClass) Valid() bool {
	switch c {
	case SizeS, SizeM, SizeL:
		return true
	}
	return false
}

// Valid reports whether p has the YYYY-MM shape.
func (p Period) Valid() bool {
	if len(p) != 7 || p[4] != '-' {
		return false
	}
	for i, r := range p {
		if i == 4 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	mm := string(p[5:])
	return mm >= "01" && mm <= "12"
}

// PeriodOf returns the period token for t.
func PeriodOf(t time.Time) Period {
	return Period(t.Format("2006-01"))
}

// StartOfYear returns the January period of t's year, the dashboard's
// default lower bound.
func StartOfYear(t time.Time) Period {
	return Period(t.Format("2006") + "-01")
}

// DisplayPeriod returns the period shown for a sale: the manual
// override when present, the server-derived month otherwise.
func (s Sale) DisplayPeriod() Period {
	if s.ManualMonth != "" {
		return s.ManualMonth
	}
	return s.Month
}

func validChipType(t string) bool {
	for _, ct := range ChipTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// Validate checks the writable fields of a sale. storeRequired mirrors
// the STORE_REQUIRED deployment switch.
func (s Sale) Validate(storeRequired bool) error {
	if strings.TrimSpace(s.ChipType) == "" || !validChipType(s.ChipType) {
		return ErrInvalidChipType
	}
	if s.SizeCls != "" && !s.SizeCls.Valid() {
		return ErrInvalidSize
	}
	if s.ManualMonth != "" && !s.ManualMonth.Valid() {
		return ErrInvalidPeriod
	}
	if s.PriceTotal < 0 {
		return ErrNegativePrice
	}
	if storeRequired && s.StoreID == 0 {
		return ErrStoreRequired
	}
	return nil
}

func (st Store) Validate() error {
	if strings.TrimSpace(st.Name) == "" {
		return ErrEmptyStoreName
	}
	return nil
}
