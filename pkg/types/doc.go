// Package types defines the Store, Board and SessionStore interfaces, the
// pipeline, automation and account entity types, and the standard errors for
// the funnel CRM core.
package types
