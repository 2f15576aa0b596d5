package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseItemID(t *testing.T) {
	assert.Equal(t, "widget", ParseItemID([]byte(`"widget"`)))
	assert.Equal(t, "widget", ParseItemID([]byte(" widget\n")))
	assert.Equal(t, "blue gadget", ParseItemID([]byte(`"blue gadget"`)))
	assert.Equal(t, "", ParseItemID(nil))
}
