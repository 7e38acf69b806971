package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/gamehub/gamehub-backend/pkg/auth"
	"github.com/gamehub/gamehub-backend/pkg/db"
	"github.com/gamehub/gamehub-backend/pkg/db/models"
	pkgerrors "github.com/gamehub/gamehub-backend/pkg/errors"
	"github.com/gamehub/gamehub-backend/pkg/pagination"
)

const (
	msgNotPlayer     = "Current user is not an active player"
	msgGameNotFound  = "Game not found"
	msgAlreadyInCart = "Game already in cart"
	msgNotInCart     = "Game not in cart"
	msgAdded         = "Game added to cart successfully"
	msgRemoved       = "Game removed from cart successfully"
	msgCleared       = "Cart cleared successfully"
	msgAlreadyEmpty  = "Cart is already empty"
)

// Service manages a player's cart.
type Service interface {
	AddToCart(ctx context.Context, actor auth.Actor, gameID int64) (Ack, error)
	RemoveFromCart(ctx context.Context, actor auth.Actor, gameID int64) (Ack, error)
	ClearCart(ctx context.Context, actor auth.Actor) (Ack, error)
	GetCart(ctx context.Context, actor auth.Actor, page pagination.Params) (View, error)
	IsInCart(ctx context.Context, actor auth.Actor, gameID int64) (bool, error)
}

type cartRepository interface {
	FindByPlayer(ctx context.Context, playerID int64) (*models.Cart, error)
	GetOrCreate(ctx context.Context, playerID int64) (*models.Cart, error)
	AddItem(ctx context.Context, item *models.CartItem) error
	HasItem(ctx context.Context, cartID, gameID int64) (bool, error)
	RemoveItem(ctx context.Context, cartID, gameID int64) (bool, error)
	ClearItems(ctx context.Context, cartID int64) (int64, error)
	ListAllItems(ctx context.Context, cartID int64) ([]models.CartItem, error)
	ListItems(ctx context.Context, cartID int64, page pagination.Params) ([]models.CartItem, int64, error)
}

type gameLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Game, error)
}

type service struct {
	carts cartRepository
	games gameLookup
}

// NewService builds the cart service.
func NewService(carts cartRepository, games gameLookup) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if games == nil {
		return nil, fmt.Errorf("game lookup is required")
	}
	return &service{carts: carts, games: games}, nil
}

func (s *service) AddToCart(ctx context.Context, actor auth.Actor, gameID int64) (Ack, error) {
	playerID, err := requirePlayer(actor)
	if err != nil {
		return Ack{}, err
	}
	if _, err := s.games.FindByID(ctx, gameID); err != nil {
		if db.IsNotFound(err) {
			return Ack{}, pkgerrors.New(pkgerrors.CodeNotFound, msgGameNotFound)
		}
		return Ack{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load game")
	}

	cart, err := s.carts.GetOrCreate(ctx, playerID)
	if err != nil {
		return Ack{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	exists, err := s.carts.HasItem(ctx, cart.ID, gameID)
	if err != nil {
		return Ack{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check cart item")
	}
	if exists {
		return Ack{}, pkgerrors.New(pkgerrors.CodeConflict, msgAlreadyInCart)
	}
	if err := s.carts.AddItem(ctx, &models.CartItem{CartID: cart.ID, GameID: gameID}); err != nil {
		if db.IsUniqueViolation(err, "") {
			return Ack{}, pkgerrors.New(pkgerrors.CodeConflict, msgAlreadyInCart)
		}
		return Ack{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
	}
	return Ack{Message: msgAdded}, nil
}

func (s *service) RemoveFromCart(ctx context.Context, actor auth.Actor, gameID int64) (Ack, error) {
	playerID, err := requirePlayer(actor)
	if err != nil {
		return Ack{}, err
	}
	cart, err := s.carts.FindByPlayer(ctx, playerID)
	if err != nil {
		if db.IsNotFound(err) {
			return Ack{}, pkgerrors.New(pkgerrors.CodeNotFound, msgNotInCart)
		}
		return Ack{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	removed, err := s.carts.RemoveItem(ctx, cart.ID, gameID)
	if err != nil {
		return Ack{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	if !removed {
		return Ack{}, pkgerrors.New(pkgerrors.CodeNotFound, msgNotInCart)
	}
	return Ack{Message: msgRemoved}, nil
}

func (s *service) ClearCart(ctx context.Context, actor auth.Actor) (Ack, error) {
	playerID, err := requirePlayer(actor)
	if err != nil {
		return Ack{}, err
	}
	cart, err := s.carts.FindByPlayer(ctx, playerID)
	if err != nil {
		if db.IsNotFound(err) {
			return Ack{Message: msgAlreadyEmpty}, nil
		}
		return Ack{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	n, err := s.carts.ClearItems(ctx, cart.ID)
	if err != nil {
		return Ack{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	if n == 0 {
		return Ack{Message: msgAlreadyEmpty}, nil
	}
	return Ack{Message: msgCleared}, nil
}

func (s *service) GetCart(ctx context.Context, actor auth.Actor, page pagination.Params) (View, error) {
	playerID, err := requirePlayer(actor)
	if err != nil {
		return View{}, err
	}
	page = page.Normalize()
	cart, err := s.carts.GetOrCreate(ctx, playerID)
	if err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	rows, total, err := s.carts.ListItems(ctx, cart.ID, page)
	if err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart items")
	}
	all, err := s.carts.ListAllItems(ctx, cart.ID)
	if err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum cart items")
	}

	items := make([]ItemDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, itemFromModel(row))
	}
	sum := decimal.Zero
	for _, row := range all {
		if row.Game != nil {
			sum = sum.Add(row.Game.Price)
		}
	}
	return View{
		CartID:     cart.ID,
		Items:      pagination.NewPage(items, page, total),
		TotalPrice: sum,
	}, nil
}

func (s *service) IsInCart(ctx context.Context, actor auth.Actor, gameID int64) (bool, error) {
	playerID, ok := actor.ActivePlayerID()
	if !ok {
		return false, nil
	}
	cart, err := s.carts.FindByPlayer(ctx, playerID)
	if err != nil {
		if db.IsNotFound(err) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	ok, err = s.carts.HasItem(ctx, cart.ID, gameID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check cart item")
	}
	return ok, nil
}

func requirePlayer(actor auth.Actor) (int64, error) {
	id, ok := actor.ActivePlayerID()
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeForbidden, msgNotPlayer)
	}
	return id, nil
}
