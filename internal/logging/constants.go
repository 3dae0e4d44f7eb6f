package logging

// Standardized field names for structured logging.
const (
	FieldOwnerID       = "owner_id"
	FieldAccountID     = "account_id"
	FieldTransactionID = "transaction_id"
	FieldCategory      = "category"
	FieldCategoryID    = "category_id"
	FieldRuleID        = "rule_id"
	FieldKeyword       = "keyword"
	FieldFormat        = "format"
	FieldImportID      = "import_id"
	FieldRow           = "row"
	FieldReason        = "reason"
	FieldOperation     = "operation"
	FieldProvider      = "provider"
	FieldAttempt       = "attempt"
	FieldStatus        = "status"
	FieldDuration      = "duration_ms"
	FieldCount         = "count"
)
