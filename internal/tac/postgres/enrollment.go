package postgres

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	settingDatamodel "github.com/keswickschool/budget-dashboard/internal/core/datamodel/setting"
	"github.com/keswickschool/budget-dashboard/internal/tac"
)

// EnrollmentRepository stores the per-grade head counts as one settings
// row. Counts default to zero until the first explicit save.
type EnrollmentRepository struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) tac.EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func (r *EnrollmentRepository) GetEnrollment(ctx context.Context) (map[string]int, error) {
	var row settingDatamodel.SettingRow
	err := r.db.WithContext(ctx).Where("key = ?", settingDatamodel.KeyEnrollment).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return map[string]int{}, nil
		}
		return nil, err
	}

	counts := make(map[string]int)
	if err := json.Unmarshal([]byte(row.Value), &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *EnrollmentRepository) SaveEnrollment(ctx context.Context, counts map[string]int) error {
	payload, err := json.Marshal(counts)
	if err != nil {
		return err
	}

	row := settingDatamodel.SettingRow{
		Key:   settingDatamodel.KeyEnrollment,
		Value: string(payload),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":   string(payload),
			"version": gorm.Expr("settings.version + 1"),
		}),
	}).Create(&row).Error
}
