// Package checkout validates customer details before an order may be placed.
package checkout

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultNotes = "no notes"

	phoneLength = 11
	phonePrefix = "01"
)

type Code string

const (
	CodeEmptyCart          Code = "EmptyCart"
	CodeMissingName        Code = "MissingName"
	CodeMissingPhone       Code = "MissingPhone"
	CodeMissingAddress     Code = "MissingAddress"
	CodeInvalidPhoneFormat Code = "InvalidPhoneFormat"
)

const (
	FieldName    = "name"
	FieldPhone   = "phone"
	FieldAddress = "address"
)

// ValidationError names the rule that failed and the form field the UI
// should focus. Field is empty when no single field is at fault.
type ValidationError struct {
	Code    Code
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Is matches any ValidationError with the same code.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

var (
	ErrEmptyCart          = &ValidationError{Code: CodeEmptyCart, Message: "cart is empty"}
	ErrMissingName        = &ValidationError{Code: CodeMissingName, Field: FieldName, Message: "please enter your full name"}
	ErrMissingPhone       = &ValidationError{Code: CodeMissingPhone, Field: FieldPhone, Message: "please enter your phone number"}
	ErrMissingAddress     = &ValidationError{Code: CodeMissingAddress, Field: FieldAddress, Message: "please enter your full address"}
	ErrInvalidPhoneFormat = &ValidationError{Code: CodeInvalidPhoneFormat, Field: FieldPhone, Message: "phone number must be 11 digits starting with 01"}
)

// Fields are the raw form values as typed by the customer.
type Fields struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

type CustomerInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

// Validate applies the checkout rules in order and stops at the first
// failure. lineItems is the number of distinct items in the cart.
func Validate(lineItems int, f Fields) (CustomerInfo, error) {
	c := CustomerInfo{
		Name:    strings.TrimSpace(f.Name),
		Phone:   strings.TrimSpace(f.Phone),
		Address: strings.TrimSpace(f.Address),
		Notes:   strings.TrimSpace(f.Notes),
	}

	switch {
	case lineItems <= 0:
		return CustomerInfo{}, ErrEmptyCart
	case c.Name == "":
		return CustomerInfo{}, ErrMissingName
	case c.Phone == "":
		return CustomerInfo{}, ErrMissingPhone
	case c.Address == "":
		return CustomerInfo{}, ErrMissingAddress
	case utf8.RuneCountInString(c.Phone) != phoneLength || !strings.HasPrefix(c.Phone, phonePrefix):
		return CustomerInfo{}, ErrInvalidPhoneFormat
	}

	if c.Notes == "" {
		c.Notes = DefaultNotes
	}
	return c, nil
}
