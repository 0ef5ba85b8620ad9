package backend

import (
	"gastos/internal/metrics"
	"gastos/internal/services"
)

// Services are the application services built over one backend.
type Services struct {
	Movements *services.MovementService
	Budget    *services.BudgetService
	Goals     *services.GoalService
	Auth      *services.AuthService
	Analytics *services.AnalyticsService
}

// Services wires the application services. m may be nil.
func (b *Backend) Services(creds services.Credentials, m *metrics.Metrics) *Services {
	var publisher services.Publisher
	if b.AMQP != nil {
		publisher = b.AMQP
	}
	return &Services{
		Movements: services.NewMovementService(b.Movements, publisher, m),
		Budget:    services.NewBudgetService(b.Settings, b.Movements),
		Goals:     services.NewGoalService(b.Goals),
		Auth:      services.NewAuthService(b.Sessions, creds),
		Analytics: services.NewAnalyticsService(b.Movements, b.Settings, b.Goals),
	}
}
