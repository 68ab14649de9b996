package factory

import (
	"fmt"

	"doula/config"
	"doula/pkg/payment/paypal"
	"doula/pkg/payment/stripe"
	"doula/pkg/payment/types"
)

// NewPaymentService 创建支付服务
func NewPaymentService(provider types.Provider, repo types.Repository, cfg interface{}) (types.Service, error) {
	switch provider {
	case types.ProviderStripe:
		scfg, ok := cfg.(config.StripeConfig)
		if !ok {
			return nil, fmt.Errorf("invalid stripe config type")
		}
		return stripe.NewStripeService(scfg, repo)

	case types.ProviderPayPal:
		pcfg, ok := cfg.(config.PayPalConfig)
		if !ok {
			return nil, fmt.Errorf("invalid paypal config type")
		}
		return paypal.NewPayPalService(pcfg, repo)

	default:
		return nil, fmt.Errorf("unsupported payment provider: %s", provider)
	}
}
