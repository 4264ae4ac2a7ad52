package stockledger

import (
	"github.com/shopspring/decimal"

	"github.com/xraph/stockledger/alert"
	"github.com/xraph/stockledger/receipt"
	"github.com/xraph/stockledger/sale"
	"github.com/xraph/stockledger/types"
)

// SaleItemInput is one requested sale line. Numeric fields accept JSON
// numbers or numeric strings; absent values default to zero.
type SaleItemInput struct {
	ProductID       string       `json:"productId"`
	Qty             types.Number `json:"qty"`
	Price           types.Number `json:"price"`
	TaxRate         types.Number `json:"taxRate"`
	Type            string       `json:"type,omitempty"`
	DiscountAmount  types.Number `json:"discountAmount"`
	DiscountPercent types.Number `json:"discountPercent"`
}

// TotalsInput carries optional sale-level overrides.
type TotalsInput struct {
	Total           types.Number `json:"total"`
	DiscountAmount  types.Number `json:"discountAmount"`
	DiscountPercent types.Number `json:"discountPercent"`
	TaxTotal        types.Number `json:"taxTotal"`
}

// CommitSaleRequest is the input to CommitSale.
type CommitSaleRequest struct {
	StoreID   string          `json:"storeId"`
	SaleID    string          `json:"saleId,omitempty"`
	CashierID string          `json:"cashierId"`
	Items     []SaleItemInput `json:"items"`
	Totals    *TotalsInput    `json:"totals,omitempty"`
	Payment   map[string]any  `json:"payment,omitempty"`
	Customer  map[string]any  `json:"customer,omitempty"`
	Note      string          `json:"note,omitempty"`
}

// CommitSaleResult is the outcome of a committed sale.
type CommitSaleResult struct {
	SaleID string
	Sale   *sale.Sale
	Alerts []*alert.Alert
}

// ReceiveStockRequest is the input to ReceiveStock. StoreID is only
// consulted when the context carries no Scope.
type ReceiveStockRequest struct {
	StoreID   string       `json:"storeId,omitempty"`
	ProductID string       `json:"productId"`
	Qty       types.Number `json:"qty"`
	Supplier  string       `json:"supplier"`
	Reference string       `json:"reference"`
	UnitCost  types.Number `json:"unitCost"`
}

// ReceiveStockResult is the outcome of a committed receipt.
type ReceiveStockResult struct {
	ReceiptID  string
	Receipt    *receipt.Receipt
	StockCount decimal.Decimal
	Alert      *alert.Alert
}
