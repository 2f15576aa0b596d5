package domain

import "github.com/sakashimaa/go-event-shop/pkg/contracts"

// MaxProcessedOrderIDs bounds the idempotency window kept with the aggregate.
const MaxProcessedOrderIDs = 1000

// CurrentOrders is the stored "currentOrders" aggregate: the OrderDto shape
// plus, when idempotent handling is on, the ids of orders already applied.
type CurrentOrders struct {
	Items             []string `json:"items"`
	ProcessedOrderIDs []string `json:"processedOrderIds,omitempty"`
}

func (c CurrentOrders) Processed(orderID string) bool {
	for _, id := range c.ProcessedOrderIDs {
		if id == orderID {
			return true
		}
	}
	return false
}

// MarkProcessed records orderID, forgetting the oldest ids past the window.
func (c *CurrentOrders) MarkProcessed(orderID string) {
	c.ProcessedOrderIDs = append(c.ProcessedOrderIDs, orderID)
	if over := len(c.ProcessedOrderIDs) - MaxProcessedOrderIDs; over > 0 {
		c.ProcessedOrderIDs = append([]string(nil), c.ProcessedOrderIDs[over:]...)
	}
}

func (c CurrentOrders) ToDto() contracts.OrderDto {
	items := c.Items
	if items == nil {
		items = []string{}
	}
	return contracts.OrderDto{Items: items}
}
