package setting

import "time"

// SettingRow is one entry of the key-value settings store. Version is
// bumped on every write so readers can treat a value as a point-in-time
// snapshot.
type SettingRow struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Value     string    `gorm:"column:value;not null"`
	Version   int64     `gorm:"column:version;not null;default:1"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SettingRow) TableName() string {
	return "settings"
}

const (
	KeyEnrollment = "tac.enrollment"
	KeyDemoMode   = "dashboard.demo_mode"
)
