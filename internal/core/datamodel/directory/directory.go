package directory

import "time"

type DirectoryUserRow struct {
	ID           int64     `gorm:"primaryKey"`
	Email        string    `gorm:"column:email;uniqueIndex;not null"`
	Name         string    `gorm:"column:name"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Role         string    `gorm:"column:role;not null"`
	Divisions    string    `gorm:"column:divisions"`
	Departments  string    `gorm:"column:departments"`
	IsActive     bool      `gorm:"column:is_active;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (DirectoryUserRow) TableName() string {
	return "directory_users"
}

type AccessLogRow struct {
	ID         string    `gorm:"primaryKey;column:id"`
	Identity   string    `gorm:"column:identity;not null"`
	Role       string    `gorm:"column:role"`
	Outcome    string    `gorm:"column:outcome;not null"`
	ResolvedAt time.Time `gorm:"column:resolved_at"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (AccessLogRow) TableName() string {
	return "access_logs"
}
