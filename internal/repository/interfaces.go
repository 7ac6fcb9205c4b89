package repository

import (
	"context"

	"kitstock-api/internal/model"
)

// KitRepository defines kit data access methods. All listings are ordered by
// ascending kit id, which is creation order.
type KitRepository interface {
	// List returns every kit.
	List(ctx context.Context) ([]model.Kit, error)

	// ListAvailable returns at most limit available kits. It never mutates.
	ListAvailable(ctx context.Context, limit int) ([]model.Kit, error)

	// Counts returns inventory counts per status.
	Counts(ctx context.Context) (model.KitCounts, error)

	// GetByID returns model.ErrNotFound when the kit does not exist.
	GetByID(ctx context.Context, id string) (*model.Kit, error)

	// GetByIDs returns the kits that exist among ids.
	GetByIDs(ctx context.Context, ids []string) ([]model.Kit, error)

	// ListByOrder returns every kit stamped with orderID.
	ListByOrder(ctx context.Context, orderID string) ([]model.Kit, error)

	// InsertMany stores new kits.
	InsertMany(ctx context.Context, kits []model.Kit) error

	// ClaimAvailable flips exactly n available kits to sold with the given
	// stamp. It claims all n or none and returns
	// model.ErrInsufficientInventory when fewer than n are available.
	ClaimAvailable(ctx context.Context, n int, stamp model.SaleStamp) ([]model.Kit, error)

	// MergeSold rewrites the target aggregate and deletes the absorbed sold
	// kits of the same order.
	MergeSold(ctx context.Context, target *model.Kit, absorbedIDs []string) error

	// ReplaceSold deletes the sold kits named by soldIDs and inserts fresh in
	// their place. It fails with model.ErrNotSold if any id is no longer sold.
	ReplaceSold(ctx context.Context, soldIDs []string, fresh []model.Kit) error

	// DeleteAvailable deletes the available kits among ids and returns the
	// ids actually deleted. Sold kits are never touched.
	DeleteAvailable(ctx context.Context, ids []string) ([]string, error)
}

// CODRepository defines cash-on-delivery order data access methods.
type CODRepository interface {
	Create(ctx context.Context, order *model.CODOrder) error
	List(ctx context.Context) ([]model.CODOrder, error)
	GetByID(ctx context.Context, id string) (*model.CODOrder, error)

	// UpdateStatus moves the order from one status to another. It returns
	// model.ErrNotFound for an unknown id and model.ErrInvalidTransition when
	// the order is no longer in the from status.
	UpdateStatus(ctx context.Context, id string, from, to model.CODStatus) (*model.CODOrder, error)
}

// ReturnRepository defines return ticket data access methods.
type ReturnRepository interface {
	Create(ctx context.Context, ticket *model.ReturnTicket) error
	List(ctx context.Context) ([]model.ReturnTicket, error)
	GetByID(ctx context.Context, id string) (*model.ReturnTicket, error)

	// UpdateStatus behaves like CODRepository.UpdateStatus.
	UpdateStatus(ctx context.Context, id string, from, to model.ReturnStatus) (*model.ReturnTicket, error)
}

// UserRepository defines credential record access.
type UserRepository interface {
	// GetByUsername returns model.ErrNotFound for an unknown user.
	GetByUsername(ctx context.Context, username string) (*model.User, error)

	// Create returns model.ErrDuplicate when the username is taken.
	Create(ctx context.Context, user *model.User) error
}
