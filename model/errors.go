package model

import "errors"

var (
	// ErrStoreRequired is returned when an adapter is built without a store.
	ErrStoreRequired = errors.New("store required")

	// ErrSchemaRequired is returned when an adapter is built without a schema.
	ErrSchemaRequired = errors.New("schema required")

	// ErrInstanceRequired is returned when a nil instance is passed to an adapter.
	ErrInstanceRequired = errors.New("instance required")

	// ErrNotPersisted is returned when an operation needs an _id the instance does not have yet.
	ErrNotPersisted = errors.New("instance has not been saved")
)
