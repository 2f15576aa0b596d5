package contracts

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductDtoPriceIsJSONNumber(t *testing.T) {
	raw, err := json.Marshal(ProductDto{Name: "widget", UnitPrice: decimal.RequireFromString("9.99")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"widget","unitPrice":9.99}`, string(raw))

	raw, err = json.Marshal([]ProductDto{{Name: "gadget", UnitPrice: decimal.NewFromInt(5)}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"gadget","unitPrice":5}]`, string(raw))
}

func TestProductDtoDecodesNumberAndString(t *testing.T) {
	for _, body := range []string{
		`{"name":"widget","unitPrice":9.99}`,
		`{"name":"widget","unitPrice":"9.99"}`,
	} {
		var dto ProductDto
		require.NoError(t, json.Unmarshal([]byte(body), &dto), body)
		assert.Equal(t, "widget", dto.Name)
		assert.True(t, dto.UnitPrice.Equal(decimal.RequireFromString("9.99")), body)
	}
}
