// Package payment 支付服务入口
package payment

import (
	"doula/pkg/payment/factory"
	"doula/pkg/payment/types"
)

// 对外暴露的类型别名，调用方无需直接依赖 types 子包
type (
	Provider     = types.Provider
	Request      = types.Request
	Result       = types.Result
	WebhookEvent = types.WebhookEvent
	Service      = types.Service
	Repository   = types.Repository
)

const (
	ProviderStripe = types.ProviderStripe
	ProviderPayPal = types.ProviderPayPal
)

var (
	ErrUnsupported  = types.ErrUnsupported
	ErrEventIgnored = types.ErrEventIgnored
)

// NewService 按提供商创建支付服务
func NewService(provider Provider, repo Repository, cfg interface{}) (Service, error) {
	return factory.NewPaymentService(provider, repo, cfg)
}
