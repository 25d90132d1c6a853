package handlers

import (
	"strings"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

type ValidationError struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

func validateProduct(p ProductRequest) []ValidationError {
	errs := []ValidationError{}
	if strings.TrimSpace(p.SKU) == "" {
		errs = append(errs, ValidationError{Field: "SKU", Description: "SKU is required"})
	}
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ValidationError{Field: "Name", Description: "Name is required"})
	}
	return errs
}

func validateLocation(l LocationRequest) []ValidationError {
	errs := []ValidationError{}
	if strings.TrimSpace(l.Code) == "" {
		errs = append(errs, ValidationError{Field: "Code", Description: "Code is required"})
	}
	if !models.LocationKind(l.Kind).Valid() {
		errs = append(errs, ValidationError{Field: "Kind", Description: "Kind must be one of unassigned, warehouse, shelf, hall"})
	}
	return errs
}

func validateMove(m MoveRequest) []ValidationError {
	errs := []ValidationError{}
	if m.ProductID <= 0 {
		errs = append(errs, ValidationError{Field: "ProductID", Description: "ProductID is required"})
	}
	if m.From == "" || m.To == "" {
		errs = append(errs, ValidationError{Field: "From/To", Description: "Source and destination are required"})
	} else if m.From == m.To {
		errs = append(errs, ValidationError{Field: "To", Description: "Destination must differ from source"})
	}
	if m.Quantity <= 0 {
		errs = append(errs, ValidationError{Field: "Quantity", Description: "Quantity must be greater than zero"})
	}
	return errs
}

func validateAdjustment(a AdjustmentRequest) []ValidationError {
	errs := []ValidationError{}
	if a.ProductID <= 0 {
		errs = append(errs, ValidationError{Field: "ProductID", Description: "ProductID is required"})
	}
	if a.Location == "" {
		errs = append(errs, ValidationError{Field: "Location", Description: "Location is required"})
	}
	if a.Delta == 0 {
		errs = append(errs, ValidationError{Field: "Delta", Description: "Delta cannot be zero"})
	}
	return errs
}

func validateRule(r RuleRequest) []ValidationError {
	errs := []ValidationError{}
	if r.UserID <= 0 {
		errs = append(errs, ValidationError{Field: "UserID", Description: "UserID is required"})
	}
	if !models.Condition(r.Condition).Valid() {
		errs = append(errs, ValidationError{Field: "Condition", Description: "Condition must be one of zero, low, restock"})
	}
	if !models.NotifyMode(r.Mode).Valid() {
		errs = append(errs, ValidationError{Field: "Mode", Description: "Mode must be one of off, daily, instant"})
	}
	if r.Floor < 0 {
		errs = append(errs, ValidationError{Field: "Floor", Description: "Floor cannot be negative"})
	}
	return errs
}
