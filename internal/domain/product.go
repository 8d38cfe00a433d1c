package domain

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"
)

var skuPattern = regexp.MustCompile(`^PROD-(\d+)$`)

type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Stock    int             `json:"stock"`
	IsActive bool            `json:"is_active"`
	Sizes    []string        `json:"sizes"`
	Colors   []string        `json:"colors"`
}

func (p Product) SKU() string {
	return FormatSKU(p.ID)
}

// AllowsSize reports whether size may be ordered. An empty selection or an
// empty allowed set never restricts.
func (p Product) AllowsSize(size string) bool {
	return size == "" || len(p.Sizes) == 0 || slices.Contains(p.Sizes, size)
}

func (p Product) AllowsColor(color string) bool {
	return color == "" || len(p.Colors) == 0 || slices.Contains(p.Colors, color)
}

// StockLevel is the read model served by the stock endpoints.
type StockLevel struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Stock    int    `json:"stock"`
	IsActive bool   `json:"is_active"`
}

func FormatSKU(id int64) string {
	return fmt.Sprintf("PROD-%03d", id)
}

// ParseSKU extracts the numeric product id from a PROD-<digits> code.
func ParseSKU(sku string) (int64, error) {
	m := skuPattern.FindStringSubmatch(sku)
	if m == nil {
		return 0, NewError(KindValidation, sku, "Invalid SKU format: %s", sku)
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, NewError(KindValidation, sku, "Invalid SKU format: %s", sku)
	}
	return id, nil
}
