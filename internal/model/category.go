package model

// CategorySpec is one valid (type, category) pair sourced from a group's
// ledger configuration. The set of specs per group is closed between
// registry refreshes.
type CategorySpec struct {
	Type TransactionType
	Name string
}
