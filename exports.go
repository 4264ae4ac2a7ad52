package stockledger

import (
	"github.com/xraph/stockledger/alert"
	"github.com/xraph/stockledger/entry"
	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/receipt"
	"github.com/xraph/stockledger/sale"
	"github.com/xraph/stockledger/types"
)

// Re-export common types for convenience so users don't have to import the
// entity packages for everyday use.

// Product is re-exported from the product package.
type Product = product.Product

// Sale is re-exported from the sale package.
type Sale = sale.Sale

// SaleItem is re-exported from the sale package.
type SaleItem = sale.Item

// LedgerEntry is re-exported from the entry package.
type LedgerEntry = entry.Entry

// Receipt is re-exported from the receipt package.
type Receipt = receipt.Receipt

// Alert is re-exported from the alert package.
type Alert = alert.Alert

// Number is re-exported from the types package.
type Number = types.Number

// Re-export Number constructors
var (
	NewNumber       = types.NewNumber
	NumberFromInt   = types.NumberFromInt
	NumberFromFloat = types.NumberFromFloat
	ParseNumber     = types.ParseNumber
)

// ResolveThreshold is re-exported from the product package.
var ResolveThreshold = product.ResolveThreshold
