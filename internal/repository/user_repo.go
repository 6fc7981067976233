package repository

import (
	"context"

	"serviceease/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	// AdministersWorkOrder reports whether the user is the admin of the
	// institution the work order belongs to, or the coordinator who
	// requested it. This is the approver reachability check.
	AdministersWorkOrder(ctx context.Context, userID, workOrderID uuid.UUID) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) AdministersWorkOrder(ctx context.Context, userID, workOrderID uuid.UUID) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.ServiceRequest{}).
		Joins("JOIN institutions i ON i.id = service_requests.institution_id").
		Where("service_requests.id = ?", workOrderID).
		Where("i.admin_id = ? OR service_requests.requested_by = ?", userID, userID).
		Count(&count).Error
	return count > 0, err
}
