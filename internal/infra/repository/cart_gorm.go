package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	repo "github.com/rs-labo46/ecshop/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

func (r *CartGormRepository) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return model.Cart{}, translate(err)
	}
	if cart.Items == nil {
		cart.Items = []model.CartItem{}
	}
	return cart, nil
}

// カートを取得し、無ければ作成（行ロック付き）
func (r *CartGormRepository) lockOrCreate(tx *gorm.DB, userID int64) (model.Cart, error) {
	var cart model.Cart

	findErr := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&cart).Error
	if findErr == nil {
		return cart, nil
	}
	if !errors.Is(findErr, gorm.ErrRecordNotFound) {
		return model.Cart{}, findErr
	}

	// 無ければ作る。同時作成はuser_idのユニーク制約で1つに絞る
	now := time.Now()
	newCart := model.Cart{UserID: userID, Total: decimal.Zero, CreatedAt: now, UpdatedAt: now}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&newCart).Error; err != nil {
		return model.Cart{}, err
	}

	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&cart).Error; err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

// 明細を読み直してtotalを保存
func (r *CartGormRepository) saveTotal(tx *gorm.DB, cart model.Cart) (model.Cart, error) {
	var items []model.CartItem
	if err := tx.Where("cart_id = ?", cart.ID).Order("id asc").Find(&items).Error; err != nil {
		return model.Cart{}, err
	}
	cart.Items = items
	cart.Recalculate()

	if err := tx.Model(&model.Cart{}).
		Where("id = ?", cart.ID).
		Updates(map[string]interface{}{"total": cart.Total, "updated_at": time.Now()}).Error; err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

// 同一商品は数量を置き換え（加算しない）。価格もこの時点のものにする。
func (r *CartGormRepository) UpsertItem(ctx context.Context, userID int64, productID int64, qty int64, price decimal.Decimal) (model.Cart, error) {
	if qty < 1 {
		return model.Cart{}, errors.New("invalid quantity")
	}

	var out model.Cart
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := r.lockOrCreate(tx, userID)
		if err != nil {
			return err
		}

		now := time.Now()
		item := model.CartItem{
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  qty,
			Price:     price,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "price", "updated_at"}),
		}).Create(&item).Error; err != nil {
			return err
		}

		out, err = r.saveTotal(tx, cart)
		return err
	})
	if err != nil {
		return model.Cart{}, translate(err)
	}
	return out, nil
}

func (r *CartGormRepository) RemoveItem(ctx context.Context, userID int64, productID int64) (model.Cart, error) {
	var out model.Cart
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart model.Cart
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// カートが無いなら何もしない
			out = model.EmptyCart(userID)
			return nil
		}
		if err != nil {
			return err
		}

		res := tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).Delete(&model.CartItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 無い商品の削除は変更なし
			if err := tx.Where("cart_id = ?", cart.ID).Order("id asc").Find(&cart.Items).Error; err != nil {
				return err
			}
			out = cart
			return nil
		}

		out, err = r.saveTotal(tx, cart)
		return err
	})
	if err != nil {
		return model.Cart{}, translate(err)
	}
	if out.Items == nil {
		out.Items = []model.CartItem{}
	}
	return out, nil
}

// カートごと削除（明細も）
func (r *CartGormRepository) DeleteByUserID(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart model.Cart
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&cart).Error
		if err != nil {
			return translate(err)
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&model.Cart{}, cart.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
}
