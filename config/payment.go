package config

import "doula/pkg/config"

func init() {
	config.Add("payment", func() map[string]interface{} {
		return map[string]interface{}{

			// 支付引擎重试配置（仅针对瞬时持久化错误）
			"retry_times": config.Env("PAYMENT_RETRY_TIMES", 3),
			"retry_delay": config.Env("PAYMENT_RETRY_DELAY", 1),

			// Stripe 配置
			"stripe": map[string]interface{}{
				"secret_key":     config.Env("STRIPE_SECRET_KEY", ""),
				"webhook_secret": config.Env("STRIPE_WEBHOOK_SECRET", ""),
			},

			// PayPal 配置
			"paypal": map[string]interface{}{
				"client_id":     config.Env("PAYPAL_CLIENT_ID", ""),
				"client_secret": config.Env("PAYPAL_CLIENT_SECRET", ""),
				// sandbox 或 live
				"mode":       config.Env("PAYPAL_MODE", "sandbox"),
				"return_url": config.Env("PAYPAL_RETURN_URL", ""),
				"cancel_url": config.Env("PAYPAL_CANCEL_URL", ""),
			},
		}
	})
}

// StripeConfig Stripe 支付配置
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// PayPalConfig PayPal 支付配置
type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	Mode         string
	ReturnURL    string
	CancelURL    string
}

// LoadStripeConfig 从配置信息组装 Stripe 配置
func LoadStripeConfig() StripeConfig {
	return StripeConfig{
		SecretKey:     config.GetString("payment.stripe.secret_key"),
		WebhookSecret: config.GetString("payment.stripe.webhook_secret"),
	}
}

// LoadPayPalConfig 从配置信息组装 PayPal 配置
func LoadPayPalConfig() PayPalConfig {
	return PayPalConfig{
		ClientID:     config.GetString("payment.paypal.client_id"),
		ClientSecret: config.GetString("payment.paypal.client_secret"),
		Mode:         config.GetString("payment.paypal.mode", "sandbox"),
		ReturnURL:    config.GetString("payment.paypal.return_url"),
		CancelURL:    config.GetString("payment.paypal.cancel_url"),
	}
}
