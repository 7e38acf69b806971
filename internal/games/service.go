package games

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gamehub/gamehub-backend/pkg/db"
	"github.com/gamehub/gamehub-backend/pkg/db/models"
	pkgerrors "github.com/gamehub/gamehub-backend/pkg/errors"
	"github.com/gamehub/gamehub-backend/pkg/pagination"
)

const gameNotFoundMessage = "Game not found"

// Service exposes catalog reads and admin writes.
type Service interface {
	GetGame(ctx context.Context, id int64) (GameDTO, error)
	ListGames(ctx context.Context, filter Filter, page pagination.Params) (pagination.Page[GameDTO], error)
	CreateGame(ctx context.Context, input CreateGameInput) (GameDTO, error)
	UpdateGamePrice(ctx context.Context, id int64, price decimal.Decimal) (GameDTO, error)
	UpdateGame(ctx context.Context, id int64, input UpdateGameInput) (GameDTO, error)
	DeleteGame(ctx context.Context, id int64) (DeleteResult, error)
}

type gameRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Game, error)
	List(ctx context.Context, filter Filter, page pagination.Params) ([]models.Game, int64, error)
	Create(ctx context.Context, game *models.Game) error
	UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) (int64, error)
	Update(ctx context.Context, id int64, fields map[string]any) error
	Usage(ctx context.Context, id int64) (Usage, error)
	Delete(ctx context.Context, id int64) error
	CategoryExists(ctx context.Context, id int64) (bool, error)
	DeveloperExists(ctx context.Context, id int64) (bool, error)
}

type service struct {
	repo gameRepository
}

func NewService(repo gameRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("game repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetGame(ctx context.Context, id int64) (GameDTO, error) {
	game, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return GameDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, gameNotFoundMessage)
		}
		return GameDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load game")
	}
	return FromModel(*game), nil
}

func (s *service) ListGames(ctx context.Context, filter Filter, page pagination.Params) (pagination.Page[GameDTO], error) {
	page = page.Normalize()
	rows, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return pagination.Page[GameDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list games")
	}
	items := make([]GameDTO, 0, len(rows))
	for _, g := range rows {
		items = append(items, FromModel(g))
	}
	return pagination.NewPage(items, page, total), nil
}

func (s *service) CreateGame(ctx context.Context, input CreateGameInput) (GameDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return GameDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if err := validatePrice(input.Price); err != nil {
		return GameDTO{}, err
	}
	if err := s.checkRefs(ctx, input.CategoryID, input.DeveloperID); err != nil {
		return GameDTO{}, err
	}

	game := &models.Game{
		Title:       title,
		Price:       input.Price.Round(2),
		ReleaseDate: input.ReleaseDate,
		Description: input.Description,
		ImagePath:   input.ImagePath,
		CategoryID:  input.CategoryID,
		DeveloperID: input.DeveloperID,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, game); err != nil {
		return GameDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create game")
	}
	return s.GetGame(ctx, game.ID)
}

// UpdateGamePrice only touches the catalog row; purchased line items keep their captured price.
func (s *service) UpdateGamePrice(ctx context.Context, id int64, price decimal.Decimal) (GameDTO, error) {
	if err := validatePrice(price); err != nil {
		return GameDTO{}, err
	}
	affected, err := s.repo.UpdatePrice(ctx, id, price.Round(2))
	if err != nil {
		return GameDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update game price")
	}
	if affected == 0 {
		return GameDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, gameNotFoundMessage)
	}
	return s.GetGame(ctx, id)
}

func (s *service) UpdateGame(ctx context.Context, id int64, input UpdateGameInput) (GameDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return GameDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if err := validatePrice(input.Price); err != nil {
		return GameDTO{}, err
	}
	current, err := s.GetGame(ctx, id)
	if err != nil {
		return GameDTO{}, err
	}
	if err := s.checkRefs(ctx, input.CategoryID, input.DeveloperID); err != nil {
		return GameDTO{}, err
	}

	active := current.IsActive
	if input.IsActive != nil {
		active = *input.IsActive
	}
	fields := map[string]any{
		"title":        title,
		"price":        input.Price.Round(2),
		"release_date": input.ReleaseDate,
		"description":  input.Description,
		"image_path":   input.ImagePath,
		"category_id":  input.CategoryID,
		"developer_id": input.DeveloperID,
		"is_active":    active,
	}
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return GameDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update game")
	}
	return s.GetGame(ctx, id)
}

// DeleteGame refuses while a registration is active or a checkout holds the
// game. Games that appear in past registrations are archived instead of removed.
func (s *service) DeleteGame(ctx context.Context, id int64) (DeleteResult, error) {
	if _, err := s.GetGame(ctx, id); err != nil {
		return DeleteResult{}, err
	}
	usage, err := s.repo.Usage(ctx, id)
	if err != nil {
		return DeleteResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check game usage")
	}
	if usage.ActiveRegistrations > 0 || usage.Claims > 0 {
		return DeleteResult{}, pkgerrors.New(pkgerrors.CodeStateConflict, "Game is associated with valid game registrations")
	}
	if usage.Details > 0 {
		if err := s.repo.Update(ctx, id, map[string]any{"is_active": false}); err != nil {
			return DeleteResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "archive game")
		}
		return DeleteResult{ID: id, Archived: true}, nil
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return DeleteResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete game")
	}
	return DeleteResult{ID: id}, nil
}

func (s *service) checkRefs(ctx context.Context, categoryID, developerID *int64) error {
	if categoryID != nil {
		if err := s.requireRef(ctx, s.repo.CategoryExists, *categoryID, "Category not found"); err != nil {
			return err
		}
	}
	if developerID != nil {
		if err := s.requireRef(ctx, s.repo.DeveloperExists, *developerID, "Developer not found"); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) requireRef(ctx context.Context, exists func(context.Context, int64) (bool, error), id int64, msg string) error {
	ok, err := exists(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check reference")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, msg)
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	return nil
}
