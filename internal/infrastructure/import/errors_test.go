package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowError_Error(t *testing.T) {
	withColumn := RowError{Row: 4, Column: "sku", Message: "field 'sku' is required"}
	assert.Equal(t, "row 4, column 'sku': field 'sku' is required", withColumn.Error())

	withoutColumn := RowError{Row: 7, Message: "malformed row"}
	assert.Equal(t, "row 7: malformed row", withoutColumn.Error())
}

func TestErrorCollection_Cap(t *testing.T) {
	ec := NewErrorCollection(2)

	ec.AddRequired(2, "sku")
	ec.AddType(3, "product_cost", "decimal", "abc")
	ec.AddDuplicate(4, "sku", "TSHIRT-M")

	assert.True(t, ec.HasErrors())
	assert.True(t, ec.IsTruncated())
	assert.Equal(t, 3, ec.TotalCount())
	assert.Len(t, ec.Errors(), 2)
	assert.Equal(t, ErrCodeRequiredField, ec.Errors()[0].Code)
	assert.Equal(t, ErrCodeInvalidType, ec.Errors()[1].Code)
}

func TestErrorCollection_Empty(t *testing.T) {
	ec := NewErrorCollection(10)

	assert.False(t, ec.HasErrors())
	assert.False(t, ec.IsTruncated())
	assert.Equal(t, "no errors", ec.String())
}

func TestErrorCollection_String(t *testing.T) {
	ec := NewErrorCollection(10)
	ec.AddRange(5, "product_cost", "value must not be negative", "-12")

	s := ec.String()
	assert.Contains(t, s, "1 error(s) found")
	assert.Contains(t, s, "row 5, column 'product_cost'")
}
