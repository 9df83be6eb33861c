package audit

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Sink is where entries land. The gorm repository is the production sink;
// tests swap in an in-memory one.
type Sink interface {
	Append(ctx context.Context, e *Entry) error
}

// Filter narrows an audit query. Zero values mean "any".
type Filter struct {
	Module    string
	SubjectID string
	Action    string
	Risk      string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

type Repository interface {
	Sink
	Query(ctx context.Context, f Filter) ([]Entry, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Append(ctx context.Context, e *Entry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// Migrate creates the audit table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Entry{})
}

func (r *repository) Query(ctx context.Context, f Filter) ([]Entry, error) {
	q := r.db.WithContext(ctx).Model(&Entry{})
	if f.Module != "" {
		q = q.Where("module = ?", f.Module)
	}
	if f.SubjectID != "" {
		q = q.Where("subject_id = ?", f.SubjectID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.Risk != "" {
		q = q.Where("risk = ?", f.Risk)
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var entries []Entry
	err := q.Order("created_at DESC").Limit(limit).Offset(f.Offset).Find(&entries).Error
	return entries, err
}
