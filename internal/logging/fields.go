package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType tags a log line with a stable machine-readable event name.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEntityID identifies the practice a player log line belongs to.
	FieldEntityID = "entity_id"
	// FieldKind identifies the assessment kind (phq9, gad7).
	FieldKind = "kind"
	// FieldRemoteAddr is the requesting client address.
	FieldRemoteAddr = "remote_addr"
)
