package domain

// Models lists every persisted model in migration order
func Models() []any {
	return []any{
		&User{},
		&Wallet{},
		&WalletTransaction{},
		&Collection{},
		&Transaction{},
		&Expense{},
		&AuditLog{},
		&AutoPaySetting{},
	}
}
