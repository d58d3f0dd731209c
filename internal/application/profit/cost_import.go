package profit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/channelpilot/backend/internal/domain/profit"
	"github.com/channelpilot/backend/internal/domain/shared"
	csvimport "github.com/channelpilot/backend/internal/infrastructure/import"
)

const (
	costColumnSKU       = "sku"
	costColumnProduct   = "product_cost"
	costColumnPackaging = "packaging_cost"

	costImportMaxErrors = 100
)

// ImportReport summarizes a bulk SKU cost upload.
type ImportReport struct {
	TotalRows int                  `json:"total_rows"`
	Created   int                  `json:"created"`
	Updated   int                  `json:"updated"`
	Failed    int                  `json:"failed"`
	Errors    []csvimport.RowError `json:"errors,omitempty"`
	Truncated bool                 `json:"truncated,omitempty"`
}

// CostImporter loads SKU cost rows from a CSV upload. Expected columns are
// sku and product_cost, with packaging_cost optional and defaulting to zero.
type CostImporter struct {
	skuCosts profit.SkuCostRepository
	logger   *zap.Logger
}

// NewCostImporter creates a cost importer
func NewCostImporter(skuCosts profit.SkuCostRepository, logger *zap.Logger) *CostImporter {
	return &CostImporter{
		skuCosts: skuCosts,
		logger:   logger,
	}
}

// Import parses the CSV stream and upserts one cost row per SKU. Rows that
// fail validation are skipped and reported; valid rows are still applied.
func (ci *CostImporter) Import(ctx context.Context, r io.Reader) (*ImportReport, error) {
	reader, err := csvimport.NewReader(r)
	if err != nil {
		return nil, err
	}

	if missing := reader.MissingHeaders([]string{costColumnSKU, costColumnProduct}); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", csvimport.ErrMissingColumns, strings.Join(missing, ", "))
	}

	report := &ImportReport{}
	collected := csvimport.NewErrorCollection(costImportMaxErrors)
	seen := make(map[string]struct{})

	for {
		row, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.TotalRows++
			report.Failed++
			collected.Add(csvimport.RowError{
				Row:     reader.Line(),
				Code:    csvimport.ErrCodeMalformedRow,
				Message: err.Error(),
			})
			continue
		}
		if row.IsEmpty() {
			continue
		}
		report.TotalRows++

		cost, ok := ci.parseRow(row, seen, collected)
		if !ok {
			report.Failed++
			continue
		}

		created, err := ci.upsert(ctx, cost)
		if err != nil {
			report.Failed++
			collected.Add(csvimport.RowError{
				Row:     row.Line,
				Column:  costColumnSKU,
				Code:    csvimport.ErrCodePersistFailed,
				Message: "failed to save cost row",
				Value:   cost.SKU,
			})
			ci.logger.Error("sku cost import row failed",
				zap.String("sku", cost.SKU),
				zap.Int("row", row.Line),
				zap.Error(err),
			)
			continue
		}
		if created {
			report.Created++
		} else {
			report.Updated++
		}
	}

	report.Errors = collected.Errors()
	report.Truncated = collected.IsTruncated()

	ci.logger.Info("sku cost import finished",
		zap.Int("total", report.TotalRows),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (ci *CostImporter) parseRow(row *csvimport.Row, seen map[string]struct{}, collected *csvimport.ErrorCollection) (*profit.SkuCost, bool) {
	sku := row.Get(costColumnSKU)
	if sku == "" {
		collected.AddRequired(row.Line, costColumnSKU)
		return nil, false
	}
	if _, dup := seen[sku]; dup {
		collected.AddDuplicate(row.Line, costColumnSKU, sku)
		return nil, false
	}

	productCost, ok := ci.parseCost(row, costColumnProduct, true, collected)
	if !ok {
		return nil, false
	}
	packagingCost, ok := ci.parseCost(row, costColumnPackaging, false, collected)
	if !ok {
		return nil, false
	}

	seen[sku] = struct{}{}
	return &profit.SkuCost{
		SKU:           sku,
		ProductCost:   productCost,
		PackagingCost: packagingCost,
	}, true
}

func (ci *CostImporter) parseCost(row *csvimport.Row, column string, required bool, collected *csvimport.ErrorCollection) (decimal.Decimal, bool) {
	raw := row.Get(column)
	if raw == "" {
		if required {
			collected.AddRequired(row.Line, column)
			return decimal.Zero, false
		}
		return decimal.Zero, true
	}

	v, err := decimal.NewFromString(raw)
	if err != nil {
		collected.AddType(row.Line, column, "decimal", raw)
		return decimal.Zero, false
	}
	if v.IsNegative() {
		collected.AddRange(row.Line, column, "value must not be negative", raw)
		return decimal.Zero, false
	}
	return v, true
}

func (ci *CostImporter) upsert(ctx context.Context, cost *profit.SkuCost) (created bool, err error) {
	existing, err := ci.skuCosts.FindBySKU(ctx, cost.SKU)
	switch {
	case err == nil:
		existing.ProductCost = cost.ProductCost
		existing.PackagingCost = cost.PackagingCost
		return false, ci.skuCosts.Save(ctx, existing)
	case errors.Is(err, profit.ErrSkuCostNotFound):
		cost.BaseEntity = shared.NewBaseEntity()
		return true, ci.skuCosts.Save(ctx, cost)
	default:
		return false, err
	}
}
