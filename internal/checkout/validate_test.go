package checkout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFields() Fields {
	return Fields{
		Name:    "Mona Adel",
		Phone:   "01123456789",
		Address: "12 Tahrir St, Cairo",
	}
}

func TestValidate_Order(t *testing.T) {
	tests := []struct {
		name      string
		lineItems int
		mutate    func(*Fields)
		want      *ValidationError
	}{
		{"empty cart wins over valid fields", 0, func(*Fields) {}, ErrEmptyCart},
		{"empty cart wins over missing fields", 0, func(f *Fields) { *f = Fields{} }, ErrEmptyCart},
		{"missing name", 1, func(f *Fields) { f.Name = "  " }, ErrMissingName},
		{"name before phone", 1, func(f *Fields) { f.Name, f.Phone = "", "" }, ErrMissingName},
		{"missing phone", 1, func(f *Fields) { f.Phone = "" }, ErrMissingPhone},
		{"missing address", 1, func(f *Fields) { f.Address = "\t" }, ErrMissingAddress},
		{"address before phone format", 2, func(f *Fields) { f.Address, f.Phone = "", "123" }, ErrMissingAddress},
		{"ten digits", 1, func(f *Fields) { f.Phone = "0123456789" }, ErrInvalidPhoneFormat},
		{"wrong prefix", 1, func(f *Fields) { f.Phone = "09123456789" }, ErrInvalidPhoneFormat},
		{"twelve digits", 1, func(f *Fields) { f.Phone = "011234567890" }, ErrInvalidPhoneFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFields()
			tt.mutate(&f)

			_, err := Validate(tt.lineItems, f)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.want.Field, ve.Field)
		})
	}
}

func TestValidate_Accepts(t *testing.T) {
	f := validFields()
	f.Phone = "  01123456789 "

	c, err := Validate(1, f)
	require.NoError(t, err)
	assert.Equal(t, "01123456789", c.Phone, "phone is trimmed before the length check")
	assert.Equal(t, DefaultNotes, c.Notes)

	f.Notes = " ring twice "
	c, err = Validate(3, f)
	require.NoError(t, err)
	assert.Equal(t, "ring twice", c.Notes)
}

func TestValidationError_IsByCode(t *testing.T) {
	err := &ValidationError{Code: CodeMissingPhone, Message: "custom"}
	assert.ErrorIs(t, err, ErrMissingPhone)
	assert.NotErrorIs(t, err, ErrMissingName)
}
