package directory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileContents struct {
	People []Person `yaml:"people"`
	Groups []Group  `yaml:"groups"`
}

// File is a Directory loaded from a YAML document.
type File struct {
	people map[string]Person
	groups map[string]Group
}

var _ Directory = (*File)(nil)

// LoadFile reads a directory document from path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a directory document. UIDs and OIDs must be unique and every
// group signatory must be a listed person.
func Parse(data []byte) (*File, error) {
	var contents fileContents
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&contents); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse directory: %w", err)
	}

	f := &File{
		people: make(map[string]Person, len(contents.People)),
		groups: make(map[string]Group, len(contents.Groups)),
	}
	for _, person := range contents.People {
		person.CalnetUID = strings.TrimSpace(person.CalnetUID)
		if person.CalnetUID == "" {
			return nil, fmt.Errorf("directory person %q: calnet_uid is required", person.Name)
		}
		if _, exists := f.people[person.CalnetUID]; exists {
			return nil, fmt.Errorf("directory person %s: duplicate calnet_uid", person.CalnetUID)
		}
		f.people[person.CalnetUID] = person
	}
	for _, group := range contents.Groups {
		group.OID = strings.TrimSpace(group.OID)
		if group.OID == "" {
			return nil, fmt.Errorf("directory group %q: oid is required", group.Name)
		}
		if _, exists := f.groups[group.OID]; exists {
			return nil, fmt.Errorf("directory group %s: duplicate oid", group.OID)
		}
		for _, uid := range group.Signatories {
			if _, ok := f.people[uid]; !ok {
				return nil, fmt.Errorf("directory group %s: unknown signatory %s", group.OID, uid)
			}
		}
		f.groups[group.OID] = group
	}
	return f, nil
}

// UserAttrs returns the person's attributes including name and affiliation.
func (f *File) UserAttrs(ctx context.Context, calnetUID string) (map[string]string, error) {
	person, err := f.person(ctx, calnetUID)
	if err != nil {
		return nil, err
	}
	attrs := map[string]string{
		"uid":         person.CalnetUID,
		"displayName": person.Name,
	}
	if person.Affiliation != "" {
		attrs["affiliation"] = person.Affiliation
	}
	for key, value := range person.Attributes {
		attrs[key] = value
	}
	return attrs, nil
}

// NameByCalnetUID returns the person's display name.
func (f *File) NameByCalnetUID(ctx context.Context, calnetUID string) (string, error) {
	person, err := f.person(ctx, calnetUID)
	if err != nil {
		return "", err
	}
	return person.Name, nil
}

// GroupsBySignatory lists groups calnetUID signs for, ordered by OID.
func (f *File) GroupsBySignatory(ctx context.Context, calnetUID string) ([]Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var groups []Group
	for _, group := range f.groups {
		if slices.Contains(group.Signatories, calnetUID) {
			groups = append(groups, group)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].OID < groups[j].OID })
	return groups, nil
}

func (f *File) person(ctx context.Context, calnetUID string) (Person, error) {
	if err := ctx.Err(); err != nil {
		return Person{}, err
	}
	person, ok := f.people[strings.TrimSpace(calnetUID)]
	if !ok {
		return Person{}, fmt.Errorf("calnet uid %s: %w", calnetUID, ErrNotFound)
	}
	return person, nil
}
