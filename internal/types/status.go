package types

// Status is a type for the status of a resource (e.g. sequence, payment) in the Database
// This is used to track the lifecycle of a row and to determine if it should be included in queries
// Any changes to this type should be reflected in the database schema
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)
