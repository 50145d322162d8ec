package domain

// Plan описывает тарифный план подписки: стоимость, период и уровень
// доступа. Таблица планов фиксирована в коде.
type Plan struct {
	ID       string
	Amount   float64
	Currency string
	Interval SubscriptionInterval
	Tier     SubscriptionTier
}

// plans таблица известных планов подписки.
var plans = map[string]Plan{
	"premium_monthly": {
		ID:       "premium_monthly",
		Amount:   9.99,
		Currency: "USD",
		Interval: SubscriptionIntervalMonth,
		Tier:     TierPremium,
	},
	"premium_yearly": {
		ID:       "premium_yearly",
		Amount:   99.99,
		Currency: "USD",
		Interval: SubscriptionIntervalYear,
		Tier:     TierPremium,
	},
	"enterprise_monthly": {
		ID:       "enterprise_monthly",
		Amount:   49.99,
		Currency: "USD",
		Interval: SubscriptionIntervalMonth,
		Tier:     TierEnterprise,
	},
	"enterprise_yearly": {
		ID:       "enterprise_yearly",
		Amount:   499.99,
		Currency: "USD",
		Interval: SubscriptionIntervalYear,
		Tier:     TierEnterprise,
	},
}

// PlanByID возвращает план по идентификатору.
func PlanByID(id string) (Plan, bool) {
	p, ok := plans[id]
	return p, ok
}
