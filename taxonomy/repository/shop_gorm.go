package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AzielCF/az-smartfilter/pkg/crypto"
	pkgError "github.com/AzielCF/az-smartfilter/pkg/error"
	"github.com/AzielCF/az-smartfilter/taxonomy/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// shopModel keeps gorm tags out of the domain struct.
type shopModel struct {
	Domain         string `gorm:"primaryKey"`
	AccessToken    string `gorm:"column:access_token"`
	Enabled        bool   `gorm:"not null"`
	ProductTypes   string `gorm:"column:product_types;type:text"`
	Vendors        string `gorm:"column:vendors;type:text"`
	Tags           string `gorm:"column:tags;type:text"`
	VariantOptions string `gorm:"column:variant_options;type:text"`
	PriceRange     string `gorm:"column:price_range;type:text"`
	SyncedAt       *time.Time
	QueryCount     int64     `gorm:"column:query_count;not null;default:0"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (shopModel) TableName() string {
	return "shops"
}

// ShopGormRepository implements domain.IShopRepository.
type ShopGormRepository struct {
	db *gorm.DB
}

func NewShopGormRepository(db *gorm.DB) *ShopGormRepository {
	return &ShopGormRepository{db: db}
}

func (r *ShopGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&shopModel{})
}

func (r *ShopGormRepository) FindByDomain(ctx context.Context, shopDomain string) (domain.Shop, error) {
	var model shopModel
	err := r.db.WithContext(ctx).First(&model, "domain = ?", shopDomain).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Shop{}, pkgError.NotFoundError("shop not found")
		}
		return domain.Shop{}, err
	}
	return fromShopModel(model)
}

func (r *ShopGormRepository) Create(ctx context.Context, shop domain.Shop) error {
	model, err := toShopModel(shop)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *ShopGormRepository) Update(ctx context.Context, shop domain.Shop) error {
	model, err := toShopModel(shop)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(&model).Error
}

// Upsert creates the shop or refreshes its credentials and enabled flag, leaving taxonomy alone.
func (r *ShopGormRepository) Upsert(ctx context.Context, shop domain.Shop) error {
	model, err := toShopModel(shop)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "domain"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "enabled", "updated_at"}),
	}).Create(&model).Error
}

func (r *ShopGormRepository) List(ctx context.Context) ([]domain.Shop, error) {
	var models []shopModel
	if err := r.db.WithContext(ctx).Order("domain ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Shop, len(models))
	for i, m := range models {
		shop, err := fromShopModel(m)
		if err != nil {
			return nil, err
		}
		result[i] = shop
	}
	return result, nil
}

// SaveTaxonomy writes all five taxonomy fields and the sync stamp in a single update.
func (r *ShopGormRepository) SaveTaxonomy(ctx context.Context, shopDomain string, rec domain.TaxonomyRecord) error {
	syncedAt := rec.SyncedAt
	res := r.db.WithContext(ctx).Model(&shopModel{}).Where("domain = ?", shopDomain).Updates(map[string]any{
		"product_types":   rec.ProductTypes,
		"vendors":         rec.Vendors,
		"tags":            rec.Tags,
		"variant_options": rec.VariantOptions,
		"price_range":     rec.PriceRange,
		"synced_at":       &syncedAt,
	})
	return notFoundIfUntouched(res)
}

func (r *ShopGormRepository) SetSyncedAt(ctx context.Context, shopDomain string, at *time.Time) error {
	res := r.db.WithContext(ctx).Model(&shopModel{}).Where("domain = ?", shopDomain).Update("synced_at", at)
	return notFoundIfUntouched(res)
}

func (r *ShopGormRepository) IncrementQueryCount(ctx context.Context, shopDomain string) error {
	res := r.db.WithContext(ctx).Model(&shopModel{}).Where("domain = ?", shopDomain).
		UpdateColumn("query_count", gorm.Expr("query_count + ?", 1))
	return notFoundIfUntouched(res)
}

func notFoundIfUntouched(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgError.NotFoundError("shop not found")
	}
	return nil
}

// toShopModel seals the access token when a secret is configured.
func toShopModel(s domain.Shop) (shopModel, error) {
	token, err := crypto.Seal(s.AccessToken)
	if err != nil {
		return shopModel{}, err
	}
	return shopModel{
		Domain:         s.Domain,
		AccessToken:    token,
		Enabled:        s.Enabled,
		ProductTypes:   s.ProductTypes,
		Vendors:        s.Vendors,
		Tags:           s.Tags,
		VariantOptions: s.VariantOptions,
		PriceRange:     s.PriceRange,
		SyncedAt:       s.SyncedAt,
		QueryCount:     s.QueryCount,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}, nil
}

func fromShopModel(m shopModel) (domain.Shop, error) {
	token, err := crypto.Open(m.AccessToken)
	if err != nil {
		return domain.Shop{}, err
	}
	return domain.Shop{
		Domain:         m.Domain,
		AccessToken:    token,
		Enabled:        m.Enabled,
		ProductTypes:   m.ProductTypes,
		Vendors:        m.Vendors,
		Tags:           m.Tags,
		VariantOptions: m.VariantOptions,
		PriceRange:     m.PriceRange,
		SyncedAt:       m.SyncedAt,
		QueryCount:     m.QueryCount,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}, nil
}
