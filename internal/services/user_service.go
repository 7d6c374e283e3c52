package services

import (
	"context"

	"askboyfriend_go_backend/internal/models"

	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (us *UserService) CreateOrUpdateUser(ctx context.Context, supabaseID, email, name string) (*models.User, error) {
	user := models.User{
		SupabaseID: supabaseID,
		Email:      email,
		Name:       name,
	}
	result := us.db.WithContext(ctx).Where(models.User{SupabaseID: supabaseID}).FirstOrCreate(&user)

	if result.Error != nil {
		return nil, result.Error
	}

	return &user, nil
}

func (us *UserService) GetUserBySupabaseID(ctx context.Context, supabaseID string) (*models.User, error) {
	var user models.User
	result := us.db.WithContext(ctx).Where("supabase_id = ?", supabaseID).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}
