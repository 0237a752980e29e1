package model

import "time"

// 在庫の増減履歴
// 管理者の在庫設定と、注文確定時の減算の両方を残す。
type InventoryAdjustment struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int64     `gorm:"not null;index" json:"productId"`
	ActorUserID int64     `gorm:"not null;index" json:"actorUserId"`
	OrderID     *int64    `gorm:"index" json:"orderId,omitempty"`
	Delta       int64     `gorm:"not null" json:"delta"`
	Reason      string    `gorm:"type:varchar(255);not null" json:"reason"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
}
