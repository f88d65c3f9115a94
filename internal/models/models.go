package models

// AllModels returns every model, in dependency order, for AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&Tenant{},
		&TenantMember{},
		&TenantInvite{},
		&OAuthState{},
		&PricingPlan{},
		&Subscription{},
		&Payment{},
		&ChannelConnection{},
		&Conversation{},
		&Message{},
		&AgentSettings{},
		&TenantLocation{},
		&TenantEmployee{},
		&Appointment{},
		&Notification{},
		&WebhookEvent{},
	}
}
