package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/gamehub/gamehub-backend/pkg/db"
	"github.com/gamehub/gamehub-backend/pkg/db/models"
	pkgerrors "github.com/gamehub/gamehub-backend/pkg/errors"
	"github.com/gamehub/gamehub-backend/pkg/pagination"
)

const (
	developerNotFoundMessage = "Developer not found"
	categoryNotFoundMessage  = "Category not found"
)

// Service manages the developers and categories games are filed under.
type Service interface {
	ListDevelopers(ctx context.Context, filter Filter, page pagination.Params) (pagination.Page[DeveloperDTO], error)
	GetDeveloper(ctx context.Context, id int64) (DeveloperDTO, error)
	CreateDeveloper(ctx context.Context, input DeveloperInput) (DeveloperDTO, error)
	UpdateDeveloper(ctx context.Context, id int64, input DeveloperInput) (DeveloperDTO, error)
	DeleteDeveloper(ctx context.Context, id int64) error

	ListCategories(ctx context.Context, filter Filter, page pagination.Params) (pagination.Page[CategoryDTO], error)
	GetCategory(ctx context.Context, id int64) (CategoryDTO, error)
	CreateCategory(ctx context.Context, input CategoryInput) (CategoryDTO, error)
	UpdateCategory(ctx context.Context, id int64, input CategoryInput) (CategoryDTO, error)
	DeleteCategory(ctx context.Context, id int64) error
}

type catalogRepository interface {
	FindDeveloper(ctx context.Context, id int64) (*models.Developer, error)
	ListDevelopers(ctx context.Context, filter Filter, page pagination.Params) ([]models.Developer, int64, error)
	CreateDeveloper(ctx context.Context, dev *models.Developer) error
	UpdateDeveloper(ctx context.Context, id int64, fields map[string]any) error
	DeleteDeveloper(ctx context.Context, id int64) error

	FindCategory(ctx context.Context, id int64) (*models.GameCategory, error)
	ListCategories(ctx context.Context, filter Filter, page pagination.Params) ([]models.GameCategory, int64, error)
	CreateCategory(ctx context.Context, cat *models.GameCategory) error
	UpdateCategory(ctx context.Context, id int64, fields map[string]any) error
	DeleteCategory(ctx context.Context, id int64) error

	CountGames(ctx context.Context, column string, id int64, onlyActive bool) (int64, error)
}

type service struct {
	repo catalogRepository
}

func NewService(repo catalogRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListDevelopers(ctx context.Context, filter Filter, page pagination.Params) (pagination.Page[DeveloperDTO], error) {
	page = page.Normalize()
	rows, total, err := s.repo.ListDevelopers(ctx, filter, page)
	if err != nil {
		return pagination.Page[DeveloperDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list developers")
	}
	items := make([]DeveloperDTO, 0, len(rows))
	for _, d := range rows {
		items = append(items, DeveloperFromModel(d))
	}
	return pagination.NewPage(items, page, total), nil
}

func (s *service) GetDeveloper(ctx context.Context, id int64) (DeveloperDTO, error) {
	dev, err := s.repo.FindDeveloper(ctx, id)
	if err != nil {
		return DeveloperDTO{}, lookupError(err, developerNotFoundMessage, "load developer")
	}
	return DeveloperFromModel(*dev), nil
}

func (s *service) CreateDeveloper(ctx context.Context, input DeveloperInput) (DeveloperDTO, error) {
	name, err := requireName(input.DeveloperName, "developer name is required")
	if err != nil {
		return DeveloperDTO{}, err
	}
	dev := &models.Developer{
		DeveloperName: name,
		Website:       trimmed(input.Website),
		IsActive:      input.IsActive == nil || *input.IsActive,
	}
	if err := s.repo.CreateDeveloper(ctx, dev); err != nil {
		return DeveloperDTO{}, writeError(err, "Developer name already exists", "create developer")
	}
	return s.GetDeveloper(ctx, dev.ID)
}

func (s *service) UpdateDeveloper(ctx context.Context, id int64, input DeveloperInput) (DeveloperDTO, error) {
	name, err := requireName(input.DeveloperName, "developer name is required")
	if err != nil {
		return DeveloperDTO{}, err
	}
	current, err := s.GetDeveloper(ctx, id)
	if err != nil {
		return DeveloperDTO{}, err
	}
	fields := map[string]any{
		"developer_name": name,
		"website":        trimmed(input.Website),
		"is_active":      keepActive(current.IsActive, input.IsActive),
	}
	if err := s.repo.UpdateDeveloper(ctx, id, fields); err != nil {
		return DeveloperDTO{}, writeError(err, "Developer name already exists", "update developer")
	}
	return s.GetDeveloper(ctx, id)
}

// DeleteDeveloper refuses while active games name the developer; inactive
// games lose the reference.
func (s *service) DeleteDeveloper(ctx context.Context, id int64) error {
	if _, err := s.GetDeveloper(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountGames(ctx, "developer_id", id, true)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count developer games")
	}
	if n > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "Developer is associated with active games")
	}
	if err := s.repo.DeleteDeveloper(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete developer")
	}
	return nil
}

func (s *service) ListCategories(ctx context.Context, filter Filter, page pagination.Params) (pagination.Page[CategoryDTO], error) {
	page = page.Normalize()
	rows, total, err := s.repo.ListCategories(ctx, filter, page)
	if err != nil {
		return pagination.Page[CategoryDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	items := make([]CategoryDTO, 0, len(rows))
	for _, c := range rows {
		items = append(items, CategoryFromModel(c))
	}
	return pagination.NewPage(items, page, total), nil
}

func (s *service) GetCategory(ctx context.Context, id int64) (CategoryDTO, error) {
	cat, err := s.repo.FindCategory(ctx, id)
	if err != nil {
		return CategoryDTO{}, lookupError(err, categoryNotFoundMessage, "load category")
	}
	return CategoryFromModel(*cat), nil
}

func (s *service) CreateCategory(ctx context.Context, input CategoryInput) (CategoryDTO, error) {
	name, err := requireName(input.CategoryName, "category name is required")
	if err != nil {
		return CategoryDTO{}, err
	}
	cat := &models.GameCategory{
		CategoryName: name,
		Description:  trimmed(input.Description),
		IsActive:     input.IsActive == nil || *input.IsActive,
	}
	if err := s.repo.CreateCategory(ctx, cat); err != nil {
		return CategoryDTO{}, writeError(err, "Category name already exists", "create category")
	}
	return s.GetCategory(ctx, cat.ID)
}

func (s *service) UpdateCategory(ctx context.Context, id int64, input CategoryInput) (CategoryDTO, error) {
	name, err := requireName(input.CategoryName, "category name is required")
	if err != nil {
		return CategoryDTO{}, err
	}
	current, err := s.GetCategory(ctx, id)
	if err != nil {
		return CategoryDTO{}, err
	}
	fields := map[string]any{
		"category_name": name,
		"description":   trimmed(input.Description),
		"is_active":     keepActive(current.IsActive, input.IsActive),
	}
	if err := s.repo.UpdateCategory(ctx, id, fields); err != nil {
		return CategoryDTO{}, writeError(err, "Category name already exists", "update category")
	}
	return s.GetCategory(ctx, id)
}

// DeleteCategory refuses while any game, active or not, is filed under it.
func (s *service) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountGames(ctx, "category_id", id, false)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count category games")
	}
	if n > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "Category is associated with games")
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete category")
	}
	return nil
}

func requireName(raw, msg string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, msg)
	}
	return name, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func keepActive(current bool, requested *bool) bool {
	if requested == nil {
		return current
	}
	return *requested
}

func lookupError(err error, notFound, step string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, step)
}

func writeError(err error, duplicate, step string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, duplicate)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, step)
}
