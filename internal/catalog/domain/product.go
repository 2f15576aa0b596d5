package domain

import (
	"github.com/sakashimaa/go-event-shop/pkg/contracts"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID    int64           `db:"id"`
	Name  string          `db:"name"`
	Price decimal.Decimal `db:"price"`
}

func (p Product) ToDto() contracts.ProductDto {
	return contracts.ProductDto{
		Name:      p.Name,
		UnitPrice: p.Price,
	}
}

func FromDto(dto contracts.ProductDto) *Product {
	return &Product{
		Name:  dto.Name,
		Price: dto.UnitPrice.Round(2),
	}
}
