// Package tasks defines the event payloads that are sent to Kafka.
package tasks

// DecisionEvent represents an approval decision that has been committed.
// Downstream consumers (notification, reporting) subscribe to these events.
type DecisionEvent struct {
	ArtifactID   uint   `json:"artifact_id"`
	Decision     string `json:"decision"` // APPROVED / REJECTED
	CategoryKind string `json:"category_kind"`
	CategoryID   string `json:"category_id"`
	TargetTable  string `json:"target_table"`
	DecidedBy    uint   `json:"decided_by"`
	InsertedRows int    `json:"inserted_rows"`
	SkippedRows  int    `json:"skipped_rows"`
	Reason       string `json:"reason,omitempty"`
}
