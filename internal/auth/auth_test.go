package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCan(t *testing.T) {
	assert.True(t, Can(RoleUser, PermWalletManage))
	assert.True(t, Can(RoleUser, PermPaymentUse))
	assert.False(t, Can(RoleUser, PermRatesUpdate))

	assert.True(t, Can(RoleAdmin, PermRatesUpdate))
	assert.True(t, Can(RoleAdmin, PermPaymentUse))

	assert.False(t, Can(Role("intern"), PermPaymentUse), "unknown roles hold nothing")
	assert.False(t, Can(Role(""), PermWalletManage))
}
