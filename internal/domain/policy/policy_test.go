package policy

import (
	"testing"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	"github.com/stretchr/testify/assert"
)

func TestCanViewOrder(t *testing.T) {
	order := model.Order{ID: 1, UserID: 10}

	assert.True(t, CanViewOrder(NewActor(10, model.RoleClient), order))
	assert.True(t, CanViewOrder(NewActor(99, model.RoleAdmin), order))
	assert.False(t, CanViewOrder(NewActor(11, model.RoleClient), order))
	assert.False(t, CanViewOrder(Actor{}, order))
}

func TestAdminOnlyCapabilities(t *testing.T) {
	admin := NewActor(1, model.RoleAdmin)
	client := NewActor(2, model.RoleClient)

	assert.True(t, CanListAllOrders(admin))
	assert.True(t, CanUpdateOrderStatus(admin))
	assert.True(t, CanManageCatalog(admin))
	assert.True(t, CanViewStats(admin))

	assert.False(t, CanListAllOrders(client))
	assert.False(t, CanUpdateOrderStatus(client))
	assert.False(t, CanManageCatalog(client))
	assert.False(t, CanViewStats(client))

	// user_idが無いadminロールは認めない
	assert.False(t, Actor{Role: model.RoleAdmin}.IsAdmin())
}

func TestCanPlaceOrder(t *testing.T) {
	assert.True(t, CanPlaceOrder(NewActor(3, model.RoleClient)))
	assert.True(t, CanPlaceOrder(NewActor(1, model.RoleAdmin)))
	assert.False(t, CanPlaceOrder(Actor{}))
}
