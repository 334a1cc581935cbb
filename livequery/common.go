package livequery

import (
	"errors"
)

var (
	// ErrEmptyNamespace is returned when a query configuration is built without a target namespace.
	ErrEmptyNamespace = errors.New("namespace must not be empty")

	// ErrNegativeLimit is returned when a query configuration is built with a negative limit.
	ErrNegativeLimit = errors.New("limit must not be negative")

	// ErrEmptyLinkName is returned when a link tree contains a node without a name.
	ErrEmptyLinkName = errors.New("link name must not be empty")

	// ErrEmptyWhereField is returned when a where clause contains an empty field name.
	ErrEmptyWhereField = errors.New("where clause field name must not be empty")

	// ErrNilUpstream is returned when an Environment is constructed without an upstream client.
	ErrNilUpstream = errors.New("nil upstream client supplied")

	// ErrNilEnvironment is returned when a QueryKey is constructed without an Environment.
	ErrNilEnvironment = errors.New("nil environment supplied")

	// ErrZeroScope is returned when a zero-value scope id is supplied where a real scope is required.
	ErrZeroScope = errors.New("scope id must not be zero")

	// ErrCanonicalizingFailed is returned when a where clause or link tree cannot be
	// serialized into its canonical form.
	ErrCanonicalizingFailed = errors.New("canonicalizing query configuration failed")

	// ErrOpeningSubscriptionFailed is returned when the upstream client refuses to open a subscription.
	ErrOpeningSubscriptionFailed = errors.New("opening upstream subscription failed")

	// ErrLoadingOnceFailed is returned when a one-shot load fails upstream.
	ErrLoadingOnceFailed = errors.New("one-shot load failed")

	// ErrNilDatabaseConnection is returned when an engine is constructed without a database connection.
	ErrNilDatabaseConnection = errors.New("nil database connection supplied")

	// ErrEmptyEntityTableName is returned when an engine is configured with an empty entity table name.
	ErrEmptyEntityTableName = errors.New("entity table name must not be empty")

	// ErrEmptyLinkTableName is returned when an engine is configured with an empty link table name.
	ErrEmptyLinkTableName = errors.New("link table name must not be empty")

	// ErrInvalidPollInterval is returned when an engine is configured with a non-positive poll interval.
	ErrInvalidPollInterval = errors.New("poll interval must be positive")

	// ErrEmptyChangeChannel is returned when an engine is configured with an empty notification channel name.
	ErrEmptyChangeChannel = errors.New("change channel name must not be empty")

	// ErrBuildingQueryFailed is returned when a query configuration cannot be compiled to SQL.
	ErrBuildingQueryFailed = errors.New("building sql query failed")

	// ErrUnsupportedOperator is returned when a where clause uses an operator the engine does not support.
	ErrUnsupportedOperator = errors.New("unsupported where clause operator")

	// ErrQueryingEntitiesFailed is returned when the database query for entities fails.
	ErrQueryingEntitiesFailed = errors.New("querying entities failed")

	// ErrScanningDBRowFailed is returned when a database row cannot be scanned.
	ErrScanningDBRowFailed = errors.New("scanning database row failed")

	// ErrDecodingPayloadFailed is returned when a stored entity payload is not valid JSON.
	ErrDecodingPayloadFailed = errors.New("decoding entity payload failed")

	// ErrNotifyingChangeFailed is returned when emitting a change notification fails.
	ErrNotifyingChangeFailed = errors.New("notifying change channel failed")

	// ErrNilListener is returned when an engine is configured with a nil notification listener.
	ErrNilListener = errors.New("nil listener supplied")
)
