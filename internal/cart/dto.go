package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gamehub/gamehub-backend/pkg/db/models"
	"github.com/gamehub/gamehub-backend/pkg/pagination"
)

type ItemDTO struct {
	GameID  int64           `json:"game_id"`
	Title   string          `json:"title"`
	Price   decimal.Decimal `json:"price"`
	AddedAt time.Time       `json:"added_at"`
}

// View is a page of cart items plus totals over the whole cart.
type View struct {
	CartID     int64                    `json:"cart_id"`
	Items      pagination.Page[ItemDTO] `json:"items"`
	TotalPrice decimal.Decimal          `json:"total_price"`
}

// Ack carries the human-readable outcome of a cart mutation.
type Ack struct {
	Message string `json:"message"`
}

func itemFromModel(item models.CartItem) ItemDTO {
	dto := ItemDTO{GameID: item.GameID, AddedAt: item.CreatedAt}
	if item.Game != nil {
		dto.Title = item.Game.Title
		dto.Price = item.Game.Price
	}
	return dto
}
