package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/nurpe/rental-contracts/internal/dispatch"
	"github.com/nurpe/rental-contracts/internal/model"
)

type ContractStore interface {
	ContractNumbers(ctx context.Context, year int, prefix string) ([]string, error)
	ListByNumberYear(ctx context.Context, year int) ([]model.Contract, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	Create(ctx context.Context, c *model.Contract) error
	Update(ctx context.Context, c *model.Contract) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error
	UpdateFolderName(ctx context.Context, id uuid.UUID, folderName string) error
}

type ClientStore interface {
	FindByEmail(ctx context.Context, email string) (*model.Client, error)
	Create(ctx context.Context, client *model.Client) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
}

type VehicleStore interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Vehicle, error)
}

// SideEffects is the best-effort dispatch collaborator. None of its methods
// report failure to the caller.
type SideEffects interface {
	Activated(ctx context.Context, c model.Contract)
	Cancelled(ctx context.Context, c model.Contract, prior model.Status)
	Protocol(ctx context.Context, event dispatch.Event, c model.Contract)
	RenameCancelled(ctx context.Context, c model.Contract) (string, bool)
}

type RegisterExporter interface {
	Generate(register model.PoolRegister) ([]byte, error)
}
