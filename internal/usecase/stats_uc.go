package usecase

import (
	"context"

	"telegram-forecast-store/internal/domain/ports/repository"
)

// StatsUseCase backs the admin sales report.
type StatsUseCase interface {
	SalesTotals(ctx context.Context) ([]repository.ProductSales, error)
	CountUsers(ctx context.Context) (int, error)
}

var _ StatsUseCase = (*statsUC)(nil)

type statsUC struct {
	orders repository.OrderRepository
	users  repository.UserRepository
}

func NewStatsUseCase(orders repository.OrderRepository, users repository.UserRepository) *statsUC {
	return &statsUC{orders: orders, users: users}
}

func (s *statsUC) SalesTotals(ctx context.Context) ([]repository.ProductSales, error) {
	return s.orders.SalesTotals(ctx, nil)
}

func (s *statsUC) CountUsers(ctx context.Context) (int, error) {
	return s.users.CountUsers(ctx, nil)
}
