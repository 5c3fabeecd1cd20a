package student

import (
	"context"
)

// Repository defines the operations for persisting and retrieving Student entities.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Student, error)
	Update(ctx context.Context, student *Student) error // updates FirstName, LastName, Email, IsActive
	ListInactive(ctx context.Context) ([]*Student, error)
}
