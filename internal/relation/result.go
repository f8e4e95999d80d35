package relation

// ReadResult is the outcome of parsing one databag slot. Exactly one
// of three states holds: a record was parsed, validation failed, or no
// record type was requested for the slot. Callers branch on the state
// explicitly instead of recovering from a thrown error.
type ReadResult struct {
	record  *Record
	invalid *ValidationError
}

// RecordResult wraps a successfully parsed record.
func RecordResult(r *Record) ReadResult {
	return ReadResult{record: r}
}

// InvalidResult wraps a validation failure.
func InvalidResult(e *ValidationError) ReadResult {
	return ReadResult{invalid: e}
}

// NoneResult marks a slot for which no parsing was requested, used
// when a handler only cares about the presence of a relation.
func NoneResult() ReadResult {
	return ReadResult{}
}

// OK reports whether a record was parsed.
func (r ReadResult) OK() bool {
	return r.record != nil
}

// Record returns the parsed record, or nil when parsing failed or was
// not requested.
func (r ReadResult) Record() *Record {
	return r.record
}

// Invalid returns the validation failure, or nil.
func (r ReadResult) Invalid() *ValidationError {
	return r.invalid
}

// None reports whether no record type was requested for this slot.
func (r ReadResult) None() bool {
	return r.record == nil && r.invalid == nil
}
