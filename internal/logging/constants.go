package logging

// Field names used across the ledger so log output can be filtered consistently.
const (
	FieldUserID      = "user_id"
	FieldAccountID   = "account_id"
	FieldImportID    = "import_id"
	FieldFingerprint = "fingerprint"
	FieldMerchant    = "merchant"
	FieldCategory    = "category"
	FieldFrequency   = "frequency"
	FieldRow         = "row"
	FieldReason      = "reason"
	FieldOperation   = "operation"
	FieldStatus      = "status"
	FieldCount       = "count"
	FieldDuration    = "duration_ms"
	FieldAttempt     = "attempt"
	FieldPath        = "storage_path"
	FieldMonth       = "month"
)
