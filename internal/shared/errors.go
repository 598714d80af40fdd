package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrNoActor indicates a permission check without a resolved actor.
	ErrNoActor = errors.New("no actor resolved")
	// ErrForbidden indicates an authenticated actor lacks a permission.
	ErrForbidden = errors.New("forbidden")
	// ErrUnknownPermission indicates a permission outside the vocabulary.
	ErrUnknownPermission = errors.New("unknown permission")
	// ErrAuditWrite indicates an audit event could not be persisted.
	ErrAuditWrite = errors.New("audit write failed")
)
