package dto

import (
	"time"

	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/documents/adjustment"
	"kardex/internal/domain/documents/purchase"
	"kardex/internal/domain/documents/sale"
	"kardex/internal/domain/documents/salesreturn"
	"kardex/internal/domain/documents/transfer"
)

// --- Purchase ---

// CreatePurchaseRequest represents a request to create a purchase.
type CreatePurchaseRequest struct {
	Number     string                `json:"number,omitempty"`
	Date       time.Time             `json:"date" binding:"required"`
	SupplierID string                `json:"supplierId" binding:"required"`
	StoreID    string                `json:"storeId" binding:"required"`
	Comment    string                `json:"comment,omitempty"`
	Lines      []PurchaseLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// PurchaseLineRequest represents a line in create/update request.
type PurchaseLineRequest struct {
	ProductID string         `json:"productId" binding:"required"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
	UnitPrice types.Money    `json:"unitPrice"`
}

// ToEntity converts request to domain entity.
func (r *CreatePurchaseRequest) ToEntity() *purchase.Purchase {
	supplierID, _ := id.Parse(r.SupplierID)
	storeID, _ := id.Parse(r.StoreID)

	doc := purchase.NewPurchase(supplierID, storeID)
	doc.Number = r.Number
	doc.Date = r.Date
	doc.Comment = r.Comment

	for _, line := range r.Lines {
		productID, _ := id.Parse(line.ProductID)
		doc.AddLine(productID, line.Quantity, line.UnitPrice)
	}
	return doc
}

// ApplyTo replaces the header fields and lines of an existing document.
func (r *CreatePurchaseRequest) ApplyTo(doc *purchase.Purchase) {
	supplierID, _ := id.Parse(r.SupplierID)
	storeID, _ := id.Parse(r.StoreID)

	doc.SupplierID = supplierID
	doc.StoreID = storeID
	doc.Date = r.Date
	doc.Comment = r.Comment
	if r.Number != "" {
		doc.Number = r.Number
	}

	doc.Lines = doc.Lines[:0]
	for _, line := range r.Lines {
		productID, _ := id.Parse(line.ProductID)
		doc.AddLine(productID, line.Quantity, line.UnitPrice)
	}
}

// --- Sale ---

// CreateSaleRequest represents a request to create a sale.
type CreateSaleRequest struct {
	Number     string            `json:"number,omitempty"`
	Date       time.Time         `json:"date" binding:"required"`
	CustomerID string            `json:"customerId" binding:"required"`
	StoreID    string            `json:"storeId" binding:"required"`
	Comment    string            `json:"comment,omitempty"`
	Lines      []SaleLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// SaleLineRequest represents a line in create/update request.
type SaleLineRequest struct {
	ProductID string         `json:"productId" binding:"required"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
	SalePrice types.Money    `json:"salePrice"`
}

// ToEntity converts request to domain entity.
func (r *CreateSaleRequest) ToEntity() *sale.Sale {
	customerID, _ := id.Parse(r.CustomerID)
	storeID, _ := id.Parse(r.StoreID)

	doc := sale.NewSale(customerID, storeID)
	doc.Number = r.Number
	doc.Date = r.Date
	doc.Comment = r.Comment

	for _, line := range r.Lines {
		productID, _ := id.Parse(line.ProductID)
		doc.AddLine(productID, line.Quantity, line.SalePrice)
	}
	return doc
}

// ApplyTo replaces the header fields and lines of an existing document.
func (r *CreateSaleRequest) ApplyTo(doc *sale.Sale) {
	customerID, _ := id.Parse(r.CustomerID)
	storeID, _ := id.Parse(r.StoreID)

	doc.CustomerID = customerID
	doc.StoreID = storeID
	doc.Date = r.Date
	doc.Comment = r.Comment
	if r.Number != "" {
		doc.Number = r.Number
	}

	doc.Lines = doc.Lines[:0]
	for _, line := range r.Lines {
		productID, _ := id.Parse(line.ProductID)
		doc.AddLine(productID, line.Quantity, line.SalePrice)
	}
}

// --- Sales return ---

// CreateSalesReturnRequest represents a request to create a sales return.
type CreateSalesReturnRequest struct {
	Number         string                   `json:"number,omitempty"`
	Date           time.Time                `json:"date" binding:"required"`
	CustomerID     string                   `json:"customerId" binding:"required"`
	StoreID        string                   `json:"storeId" binding:"required"`
	OriginalSaleID string                   `json:"originalSaleId,omitempty"`
	Comment        string                   `json:"comment,omitempty"`
	Lines          []SalesReturnLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// SalesReturnLineRequest represents a line in create/update request.
type SalesReturnLineRequest struct {
	ProductID string         `json:"productId" binding:"required"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
	UnitCost  types.Money    `json:"unitCost"`
}

// ToEntity converts request to domain entity.
func (r *CreateSalesReturnRequest) ToEntity() *salesreturn.Return {
	customerID, _ := id.Parse(r.CustomerID)
	storeID, _ := id.Parse(r.StoreID)

	doc := salesreturn.NewReturn(customerID, storeID)
	doc.Number = r.Number
	doc.Date = r.Date
	doc.Comment = r.Comment

	if r.OriginalSaleID != "" {
		if saleID, err := id.Parse(r.OriginalSaleID); err == nil {
			doc.OriginalSaleID = &saleID
		}
	}

	for _, line := range r.Lines {
		productID, _ := id.Parse(line.ProductID)
		doc.AddLine(productID, line.Quantity, line.UnitCost)
	}
	return doc
}

// ApplyTo replaces the header fields and lines of an existing document.
func (r *CreateSalesReturnRequest) ApplyTo(doc *salesreturn.Return) {
	customerID, _ := id.Parse(r.CustomerID)
	storeID, _ := id.Parse(r.StoreID)

	doc.CustomerID = customerID
	doc.StoreID = storeID
	doc.Date = r.Date
	doc.Comment = r.Comment
	if r.Number != "" {
		doc.Number = r.Number
	}

	doc.OriginalSaleID = nil
	if r.OriginalSaleID != "" {
		if saleID, err := id.Parse(r.OriginalSaleID); err == nil {
			doc.OriginalSaleID = &saleID
		}
	}

	doc.Lines = doc.Lines[:0]
	for _, line := range r.Lines {
		productID, _ := id.Parse(line.ProductID)
		doc.AddLine(productID, line.Quantity, line.UnitCost)
	}
}

// --- Adjustment ---

// CreateAdjustmentRequest represents a request to create an adjustment.
type CreateAdjustmentRequest struct {
	Number  string                  `json:"number,omitempty"`
	Date    time.Time               `json:"date" binding:"required"`
	StoreID string                  `json:"storeId" binding:"required"`
	Reason  string                  `json:"reason,omitempty"`
	Comment string                  `json:"comment,omitempty"`
	Lines   []AdjustmentLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// AdjustmentLineRequest represents a line in create/update request.
type AdjustmentLineRequest struct {
	ProductID     string         `json:"productId" binding:"required"`
	QuantityDelta types.Quantity `json:"quantityDelta" binding:"required"`
	UnitCost      types.Money    `json:"unitCost"`
}

// ToEntity converts request to domain entity.
func (r *CreateAdjustmentRequest) ToEntity() *adjustment.Adjustment {
	storeID, _ := id.Parse(r.StoreID)

	doc := adjustment.NewAdjustment(storeID)
	doc.Number = r.Number
	doc.Date = r.Date
	doc.Reason = r.Reason
	doc.Comment = r.Comment

	for _, line := range r.Lines {
		productID, _ := id.Parse(line.ProductID)
		doc.AddLine(productID, line.QuantityDelta, line.UnitCost)
	}
	return doc
}

// ApplyTo replaces the header fields and lines of an existing document.
func (r *CreateAdjustmentRequest) ApplyTo(doc *adjustment.Adjustment) {
	storeID, _ := id.Parse(r.StoreID)

	doc.StoreID = storeID
	doc.Date = r.Date
	doc.Reason = r.Reason
	doc.Comment = r.Comment
	if r.Number != "" {
		doc.Number = r.Number
	}

	doc.Lines = doc.Lines[:0]
	for _, line := range r.Lines {
		productID, _ := id.Parse(line.ProductID)
		doc.AddLine(productID, line.QuantityDelta, line.UnitCost)
	}
}

// --- Transfer ---

// CreateTransferRequest represents a request to create a transfer.
type CreateTransferRequest struct {
	Number        string                `json:"number,omitempty"`
	Date          time.Time             `json:"date" binding:"required"`
	SourceStoreID string                `json:"sourceStoreId" binding:"required"`
	DestStoreID   string                `json:"destStoreId" binding:"required"`
	Comment       string                `json:"comment,omitempty"`
	Lines         []TransferLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// TransferLineRequest represents a line in create/update request.
type TransferLineRequest struct {
	ProductID string         `json:"productId" binding:"required"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
}

// ToEntity converts request to domain entity.
func (r *CreateTransferRequest) ToEntity() *transfer.Transfer {
	sourceID, _ := id.Parse(r.SourceStoreID)
	destID, _ := id.Parse(r.DestStoreID)

	doc := transfer.NewTransfer(sourceID, destID)
	doc.Number = r.Number
	doc.Date = r.Date
	doc.Comment = r.Comment

	for _, line := range r.Lines {
		productID, _ := id.Parse(line.ProductID)
		doc.AddLine(productID, line.Quantity)
	}
	return doc
}

// ApplyTo replaces the header fields and lines of an existing document.
func (r *CreateTransferRequest) ApplyTo(doc *transfer.Transfer) {
	sourceID, _ := id.Parse(r.SourceStoreID)
	destID, _ := id.Parse(r.DestStoreID)

	doc.SourceStoreID = sourceID
	doc.DestStoreID = destID
	doc.Date = r.Date
	doc.Comment = r.Comment
	if r.Number != "" {
		doc.Number = r.Number
	}

	doc.Lines = doc.Lines[:0]
	for _, line := range r.Lines {
		productID, _ := id.Parse(line.ProductID)
		doc.AddLine(productID, line.Quantity)
	}
}
