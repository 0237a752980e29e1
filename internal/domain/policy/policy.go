package policy

import "github.com/rs-labo46/ecshop/internal/domain/model"

// 認証済みの呼び出し元
// user_idとroleはAuth Gate（JWT）で確定済みとして信頼する。
type Actor struct {
	UserID int64
	Role   model.Role
}

func NewActor(userID int64, role model.Role) Actor {
	return Actor{UserID: userID, Role: role}
}

func (a Actor) Authenticated() bool {
	return a.UserID > 0
}

func (a Actor) IsAdmin() bool {
	return a.Authenticated() && a.Role == model.RoleAdmin
}

// 注文を見られるのは持ち主か管理者だけ
func CanViewOrder(a Actor, o model.Order) bool {
	if !a.Authenticated() {
		return false
	}
	return a.IsAdmin() || o.UserID == a.UserID
}

// 注文確定は自分のカートに対してだけ（ログインしていればよい）
func CanPlaceOrder(a Actor) bool {
	return a.Authenticated()
}

// 全ユーザーの注文一覧
func CanListAllOrders(a Actor) bool {
	return a.IsAdmin()
}

func CanUpdateOrderStatus(a Actor) bool {
	return a.IsAdmin()
}

// 商品・カテゴリ・在庫の管理
func CanManageCatalog(a Actor) bool {
	return a.IsAdmin()
}

func CanViewStats(a Actor) bool {
	return a.IsAdmin()
}
