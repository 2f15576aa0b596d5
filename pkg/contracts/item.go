package contracts

import (
	"encoding/json"
	"strings"
)

// ParseItemID reads an item id body sent either as a JSON string or as raw text.
func ParseItemID(body []byte) string {
	var item string
	if err := json.Unmarshal(body, &item); err == nil {
		return strings.TrimSpace(item)
	}

	return strings.TrimSpace(string(body))
}
