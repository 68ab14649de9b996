package migrations

import (
	"doula/app/models/appointment"
	"doula/app/models/consent"
	"doula/app/models/enrollment"
	"doula/app/models/payment"
	"doula/app/models/service"
	"doula/app/models/training"
	"doula/app/models/user"
)

// RegisterTables 返回需要迁移的表的模型列表
func RegisterTables() []interface{} {
	return []interface{}{
		&user.User{},
		&service.Service{},
		&appointment.Appointment{},
		&training.Training{},
		&enrollment.Enrollment{},
		&consent.Consent{},
		&payment.Payment{},
		&payment.Audit{},
	}
}
