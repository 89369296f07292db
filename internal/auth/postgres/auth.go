package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/keswickschool/budget-dashboard/internal/auth"
	directoryDatamodel "github.com/keswickschool/budget-dashboard/internal/core/datamodel/directory"
)

// CredentialRepository reads login records from the directory table the
// access resolver also consults.
type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) auth.CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) GetCredentials(ctx context.Context, email string) (*auth.Credentials, error) {
	var row directoryDatamodel.DirectoryUserRow
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &auth.Credentials{
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         row.Role,
		IsActive:     row.IsActive,
	}, nil
}
