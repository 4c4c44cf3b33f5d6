package repository

import (
	"context"
	"time"

	"github.com/AzielCF/az-smartfilter/taxonomy/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type queryLogModel struct {
	ID               string `gorm:"primaryKey"`
	Shop             string `gorm:"index;not null"`
	Query            string `gorm:"type:text"`
	CollectionHandle string
	Filters          string `gorm:"type:text"`
	SearchQuery      string
	LatencyMs        int64
	CacheHit         bool
	CreatedAt        time.Time `gorm:"autoCreateTime;index"`
}

func (queryLogModel) TableName() string {
	return "query_logs"
}

// QueryLogGormRepository is an append-only analytics store.
type QueryLogGormRepository struct {
	db *gorm.DB
}

func NewQueryLogGormRepository(db *gorm.DB) *QueryLogGormRepository {
	return &QueryLogGormRepository{db: db}
}

func (r *QueryLogGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&queryLogModel{})
}

func (r *QueryLogGormRepository) LogQuery(ctx context.Context, entry domain.QueryLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	model := queryLogModel{
		ID:               entry.ID,
		Shop:             entry.Shop,
		Query:            entry.Query,
		CollectionHandle: entry.CollectionHandle,
		Filters:          entry.Filters,
		SearchQuery:      entry.SearchQuery,
		LatencyMs:        entry.LatencyMs,
		CacheHit:         entry.CacheHit,
		CreatedAt:        entry.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// ListRecent returns the newest entries for shop.
func (r *QueryLogGormRepository) ListRecent(ctx context.Context, shop string, limit int) ([]domain.QueryLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []queryLogModel
	err := r.db.WithContext(ctx).Where("shop = ?", shop).Order("created_at DESC").Limit(limit).Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.QueryLog, len(models))
	for i, m := range models {
		out[i] = domain.QueryLog{
			ID:               m.ID,
			Shop:             m.Shop,
			Query:            m.Query,
			CollectionHandle: m.CollectionHandle,
			Filters:          m.Filters,
			SearchQuery:      m.SearchQuery,
			LatencyMs:        m.LatencyMs,
			CacheHit:         m.CacheHit,
			CreatedAt:        m.CreatedAt,
		}
	}
	return out, nil
}
