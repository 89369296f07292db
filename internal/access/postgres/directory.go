package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/keswickschool/budget-dashboard/internal/access"
	directoryDatamodel "github.com/keswickschool/budget-dashboard/internal/core/datamodel/directory"
	"github.com/keswickschool/budget-dashboard/internal/core/events"
)

// DirectoryRepository implements access.DirectoryRepository using GORM.
type DirectoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// FindByEmail returns nil without error for unknown identities; the
// resolver turns that into a denied grant.
func (r *DirectoryRepository) FindByEmail(ctx context.Context, email string) (*access.DirectoryEntry, error) {
	var row directoryDatamodel.DirectoryUserRow
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &access.DirectoryEntry{
		Email:       row.Email,
		Name:        row.Name,
		Role:        access.Role(row.Role),
		Divisions:   splitCSV(row.Divisions),
		Departments: splitCSV(row.Departments),
		Active:      row.IsActive,
	}, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// AccessLogWriter persists access-resolution events as the audit trail.
// It subscribes to the event bus rather than sitting on the resolve path,
// so a failed write can never change a grant.
type AccessLogWriter struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewAccessLogWriter(db *gorm.DB, logger *slog.Logger) *AccessLogWriter {
	return &AccessLogWriter{db: db, logger: logger}
}

func (w *AccessLogWriter) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventAccessResolved, w.Handle)
}

func (w *AccessLogWriter) Handle(ctx context.Context, event events.Event) error {
	data, ok := event.Payload().(map[string]interface{})
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.EventType())
	}

	row := directoryDatamodel.AccessLogRow{
		ID:         event.EventID(),
		Identity:   stringField(data, "identity"),
		Role:       stringField(data, "role"),
		Outcome:    stringField(data, "outcome"),
		ResolvedAt: event.OccurredAt(),
	}
	if err := w.db.WithContext(ctx).Create(&row).Error; err != nil {
		w.logger.Warn("access log write failed", "identity", row.Identity, "error", err)
		return err
	}
	return nil
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
