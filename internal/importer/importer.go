package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"quote-commerce/internal/domain"
	"quote-commerce/internal/service/product"
)

type ProductFinder interface {
	GetBySKU(ctx context.Context, organizationID, sku string) (*domain.Product, error)
}

type PriceListFinder interface {
	List(ctx context.Context, organizationID string, status domain.PriceListStatus) ([]domain.PriceList, error)
}

type PriceWriter interface {
	SetPrice(ctx context.Context, organizationID, productID string, in product.PriceInput) (*domain.ProductPrice, error)
}

var requiredHeaders = []string{"sku", "price_list", "amount"}

// CSVImporter loads product prices from rows of sku,price_list,amount,currency,tax_included.
// price_list matches a list by id or, case-insensitively, by name.
type CSVImporter struct {
	reader         *csv.Reader
	products       ProductFinder
	priceLists     PriceListFinder
	prices         PriceWriter
	organizationID string
	logger         *zap.Logger
}

func NewCSVImporter(r io.Reader, products ProductFinder, priceLists PriceListFinder, prices PriceWriter, organizationID string, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVImporter{
		reader:         csvr,
		products:       products,
		priceLists:     priceLists,
		prices:         prices,
		organizationID: organizationID,
		logger:         logger,
	}
}

type csvRow struct {
	Line        int
	SKU         string
	PriceList   string
	Amount      decimal.Decimal
	Currency    string
	TaxIncluded *bool
}

// Run upserts one price per row and returns how many were written. It stops at the first bad row.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, h := range requiredHeaders {
		if _, ok := index[h]; !ok {
			return 0, domain.InvalidInput("missing column %q", h)
		}
	}

	lists, err := i.priceLists.List(ctx, i.organizationID, "")
	if err != nil {
		return 0, fmt.Errorf("list price lists: %w", err)
	}

	imported := 0
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return imported, fmt.Errorf("read line %d: %w", line, err)
		}

		row, err := parseRow(record, index, line)
		if err != nil {
			return imported, err
		}
		if row == nil {
			continue
		}
		if err := i.save(ctx, lists, row); err != nil {
			return imported, err
		}
		imported++
	}

	i.logger.Info("prices imported", zap.String("organization_id", i.organizationID), zap.Int("count", imported))
	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, lists []domain.PriceList, row *csvRow) error {
	list, ok := matchList(lists, row.PriceList)
	if !ok {
		return fmt.Errorf("line %d: price list %q: %w", row.Line, row.PriceList, domain.ErrNotFound)
	}
	p, err := i.products.GetBySKU(ctx, i.organizationID, row.SKU)
	if err != nil {
		return fmt.Errorf("line %d: product %q: %w", row.Line, row.SKU, err)
	}
	_, err = i.prices.SetPrice(ctx, i.organizationID, p.ID, product.PriceInput{
		PriceListID: list.ID,
		Amount:      row.Amount,
		Currency:    row.Currency,
		TaxIncluded: row.TaxIncluded,
	})
	if err != nil {
		return fmt.Errorf("line %d: set price of %q: %w", row.Line, row.SKU, err)
	}
	return nil
}

func matchList(lists []domain.PriceList, ref string) (domain.PriceList, bool) {
	for _, l := range lists {
		if l.ID == ref {
			return l, true
		}
	}
	for _, l := range lists {
		if strings.EqualFold(l.Name, ref) {
			return l, true
		}
	}
	return domain.PriceList{}, false
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return idx
}

// parseRow returns nil for blank lines.
func parseRow(record []string, index map[string]int, line int) (*csvRow, error) {
	sku := pick(record, index, "sku")
	list := pick(record, index, "price_list")
	amountStr := pick(record, index, "amount")
	if sku == "" && list == "" && amountStr == "" {
		return nil, nil
	}
	if sku == "" || list == "" || amountStr == "" {
		return nil, domain.InvalidInput("line %d: sku, price_list and amount are required", line)
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, domain.InvalidInput("line %d: amount %q is not a number", line, amountStr)
	}

	row := &csvRow{
		Line:      line,
		SKU:       sku,
		PriceList: list,
		Amount:    amount,
		Currency:  pick(record, index, "currency"),
	}
	if raw := pick(record, index, "tax_included"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, domain.InvalidInput("line %d: tax_included %q is not a boolean", line, raw)
		}
		row.TaxIncluded = &v
	}
	return row, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
