// Package directory resolves CalNet identities and student groups.
//
// The Directory interface mirrors the university directory queries used by
// the registration flow. File is a YAML-backed implementation used for local
// runs and tests; production deployments point it at an export of the
// campus directory.
package directory

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a CalNet UID is not in the directory.
var ErrNotFound = errors.New("not found in directory")

// Person is one directory entry.
type Person struct {
	CalnetUID   string            `yaml:"calnet_uid"`
	Name        string            `yaml:"name"`
	Affiliation string            `yaml:"affiliation"`
	Attributes  map[string]string `yaml:"attributes"`
}

// Group is one student group.
type Group struct {
	OID         string   `yaml:"oid"`
	Name        string   `yaml:"name"`
	Signatories []string `yaml:"signatories"`
}

// Directory answers identity and group queries.
type Directory interface {
	// UserAttrs returns the directory attributes for calnetUID, or
	// ErrNotFound when the person cannot be read.
	UserAttrs(ctx context.Context, calnetUID string) (map[string]string, error)
	// NameByCalnetUID returns the display name for calnetUID.
	NameByCalnetUID(ctx context.Context, calnetUID string) (string, error)
	// GroupsBySignatory lists groups calnetUID is a signatory of, ordered by OID.
	GroupsBySignatory(ctx context.Context, calnetUID string) ([]Group, error)
}
