package catalog

import "nutrilog/internal/domain/remote"

type listOutput struct {
	Body []remote.FoodItemResponse
}
