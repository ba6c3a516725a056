// Package services holds the shared error taxonomy and helpers used by the
// external engine clients and workflow stages.
package services
