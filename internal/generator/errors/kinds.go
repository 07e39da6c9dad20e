package errors

import "fmt"

// TypeMismatch reports a field whose types cannot be reconciled across two
// revisions. Generation aborts before synthesis.
func TypeMismatch(message, field, typeA, revA, typeB, revB string) *GenError {
	return New(CodeTypeMismatch,
		"field %q has irreconcilable types: %s in revision %s vs %s in revision %s",
		field, typeA, revA, typeB, revB).
		WithMessageName(message).
		WithField(field).
		WithRevisions(revA, revB).
		WithDetail("type_a", typeA).
		WithDetail("type_b", typeB)
}

// AmbiguousIdentity reports a field that matched more than one counterpart
// during identity resolution.
func AmbiguousIdentity(message, field string, candidates []string, revA, revB string) *GenError {
	e := New(CodeAmbiguousIdentity,
		"field %q matches multiple candidates between revisions %s and %s",
		field, revA, revB).
		WithMessageName(message).
		WithField(field).
		WithRevisions(revA, revB)
	for i, c := range candidates {
		e.WithDetail(fmt.Sprintf("candidate_%d", i), c)
	}
	return e
}

// MalformedDescriptor reports a descriptor set that could not be decoded or
// that carries an invalid field definition.
func MalformedDescriptor(path, tag string, cause error) *GenError {
	return New(CodeMalformedDescriptor,
		"descriptor set %q for revision %s is malformed", path, tag).
		WithRevisions(tag).
		WithDetail("path", path).
		WithCause(cause)
}

// LockTimeout reports that the cache lock could not be acquired before the
// deadline.
func LockTimeout(dir string, timeoutMillis int64) *GenError {
	return New(CodeLockTimeout,
		"could not acquire cache lock in %s within %dms (another generation in progress?)",
		dir, timeoutMillis).
		WithDetail("cache_dir", dir)
}
