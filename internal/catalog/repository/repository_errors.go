package repository

import (
	"fmt"

	"github.com/sakashimaa/go-event-shop/pkg/domain"
)

var ErrProductNotFound = fmt.Errorf("product %w", domain.ErrNotFound)

const uniqueViolation = "23505"
