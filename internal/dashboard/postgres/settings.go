package postgres

import (
	"context"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	settingDatamodel "github.com/keswickschool/budget-dashboard/internal/core/datamodel/setting"
	"github.com/keswickschool/budget-dashboard/internal/dashboard"
)

// SettingsRepository reads and writes the demo-mode flag. The flag lives
// in the shared settings store and is read fresh on every dashboard
// request, so toggles apply from the next compose onward.
type SettingsRepository struct {
	db          *gorm.DB
	defaultMode bool
}

func NewSettingsRepository(db *gorm.DB, defaultMode bool) *SettingsRepository {
	return &SettingsRepository{db: db, defaultMode: defaultMode}
}

var _ dashboard.SettingsReader = (*SettingsRepository)(nil)

func (r *SettingsRepository) DemoMode(ctx context.Context) (bool, error) {
	var row settingDatamodel.SettingRow
	err := r.db.WithContext(ctx).Where("key = ?", settingDatamodel.KeyDemoMode).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return r.defaultMode, nil
		}
		return false, err
	}
	enabled, err := strconv.ParseBool(row.Value)
	if err != nil {
		return false, err
	}
	return enabled, nil
}

func (r *SettingsRepository) SetDemoMode(ctx context.Context, enabled bool) error {
	value := strconv.FormatBool(enabled)
	row := settingDatamodel.SettingRow{
		Key:   settingDatamodel.KeyDemoMode,
		Value: value,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":   value,
			"version": gorm.Expr("settings.version + 1"),
		}),
	}).Create(&row).Error
}
