// Package item models the catalogue entity hierarchy: owners, cloud-of-things
// servers, resource servers, providers, resource groups, resources and
// instances. Construction performs structural validation only; referential
// checks (parent existence, uniqueness) belong to the service layer.
package item

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/metadex/internal/domain"
)

// Document field names shared with the index mapping. The parent-key fields
// are the keyword fields dependents use to reference another item's id.
const (
	FieldID             = "id"
	FieldType           = "type"
	FieldName           = "name"
	FieldDescription    = "description"
	FieldStatus         = "itemStatus"
	FieldCreatedAt      = "itemCreatedAt"
	FieldOwner          = "owner"
	FieldCOS            = "cos"
	FieldResourceServer = "resourceServer"
	FieldProvider       = "provider"
	FieldResourceGroup  = "resourceGroup"
	FieldInstance       = "instance"
	FieldSummary        = "_summary"
	FieldGeoSummary     = "_geosummary"
	FieldWordVector     = "_word_vector"

	FieldResourceServerURL = "resourceServerUrl"
	FieldOwnerUserID       = "ownerUserId"
)

// ParentKeyFields are the keyword fields a delete query must probe to detect
// dependents.
var ParentKeyFields = []string{FieldResourceGroup, FieldProvider, FieldResourceServer, FieldCOS}

// Status is the lifecycle state of an item.
type Status string

// Item statuses.
const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// IsValid reports whether the status is a known value.
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// Item is one catalogue entity. Modeled fields are typed; any caller-supplied
// field outside the schema is preserved in an extension map and merged back at
// serialization time, so domain logic never reasons about untyped data.
type Item struct {
	id          string
	types       []Type
	name        string
	description string
	status      Status
	createdAt   string

	owner          string
	cos            string
	resourceServer string
	provider       string
	resourceGroup  string
	instance       string

	resourceServerURL string
	ownerUserID       string

	summary    string
	geoSummary map[string]any
	wordVector []float32

	extra map[string]any
}

// FromJSON validates and constructs an Item from a caller-supplied document.
// Structural failures wrap domain.ErrInvalidSchema and never reach the
// backend. A missing id is tolerated here; the service rejects it before any
// I/O.
func FromJSON(doc map[string]any) (Item, error) {
	types, err := parseTypes(doc[FieldType])
	if err != nil {
		return Item{}, err
	}

	it := Item{
		id:                stringField(doc, FieldID),
		types:             types,
		name:              stringField(doc, FieldName),
		description:       stringField(doc, FieldDescription),
		status:            Status(stringField(doc, FieldStatus)),
		createdAt:         stringField(doc, FieldCreatedAt),
		owner:             stringField(doc, FieldOwner),
		cos:               stringField(doc, FieldCOS),
		resourceServer:    stringField(doc, FieldResourceServer),
		provider:          stringField(doc, FieldProvider),
		resourceGroup:     stringField(doc, FieldResourceGroup),
		instance:          stringField(doc, FieldInstance),
		resourceServerURL: stringField(doc, FieldResourceServerURL),
		ownerUserID:       stringField(doc, FieldOwnerUserID),
		summary:           stringField(doc, FieldSummary),
	}

	if gs, ok := doc[FieldGeoSummary].(map[string]any); ok {
		it.geoSummary = gs
	}
	it.wordVector = parseVector(doc[FieldWordVector])

	if it.status == "" {
		it.status = StatusActive
	}

	if err := it.validate(); err != nil {
		return Item{}, err
	}

	it.extra = collectExtensions(doc)
	return it, nil
}

// validate enforces the per-variant structural invariants.
func (it *Item) validate() error {
	if it.id != "" {
		if err := uuid.Validate(it.id); err != nil {
			return fmt.Errorf("item id %q is not a canonical UUID: %w", it.id, domain.ErrInvalidSchema)
		}
	}
	if it.name == "" {
		return fmt.Errorf("item name is required: %w", domain.ErrInvalidSchema)
	}
	if !nameRegex.MatchString(it.name) {
		return fmt.Errorf("item name %q has disallowed characters: %w", it.name, domain.ErrInvalidSchema)
	}
	if it.description == "" {
		return fmt.Errorf("item description is required: %w", domain.ErrInvalidSchema)
	}
	if !it.status.IsValid() {
		return fmt.Errorf("unknown item status %q: %w", it.status, domain.ErrInvalidSchema)
	}

	variant := it.PrimaryType()
	for _, parent := range requiredParents[variant] {
		ref := it.parentRef(parent)
		if ref == "" {
			return fmt.Errorf("%s requires a %s reference: %w", variant, parent, domain.ErrInvalidSchema)
		}
		if err := uuid.Validate(ref); err != nil {
			return fmt.Errorf("%s reference %q is not a canonical UUID: %w", parent, ref, domain.ErrInvalidSchema)
		}
	}

	switch variant {
	case TypeResourceServer:
		if it.resourceServerURL == "" {
			return fmt.Errorf("resource server requires %s: %w", FieldResourceServerURL, domain.ErrInvalidSchema)
		}
	case TypeProvider:
		if it.ownerUserID == "" {
			return fmt.Errorf("provider requires %s: %w", FieldOwnerUserID, domain.ErrInvalidSchema)
		}
	}
	return nil
}

func (it *Item) parentRef(field string) string {
	switch field {
	case FieldOwner:
		return it.owner
	case FieldCOS:
		return it.cos
	case FieldResourceServer:
		return it.resourceServer
	case FieldProvider:
		return it.provider
	case FieldResourceGroup:
		return it.resourceGroup
	}
	return ""
}

// ParentRef is one declared parent reference and the variant it must resolve
// to in the catalogue.
type ParentRef struct {
	Field string
	Type  Type
	ID    string
}

// ParentRefs returns every declared parent reference. Structural validation
// guarantees the required ones are present; optional ones appear only when
// the caller set them.
func (it *Item) ParentRefs() []ParentRef {
	fields := []string{FieldOwner, FieldCOS, FieldResourceServer, FieldProvider, FieldResourceGroup}
	refs := make([]ParentRef, 0, len(fields))
	for _, f := range fields {
		if id := it.parentRef(f); id != "" {
			refs = append(refs, ParentRef{Field: f, Type: parentTypeByField[f], ID: id})
		}
	}
	return refs
}

// ToJSON emits all modeled fields, then merges in extension fields not
// overwritten by a modeled field. ToJSON is the right inverse of FromJSON for
// all modeled fields.
func (it *Item) ToJSON() map[string]any {
	doc := make(map[string]any, len(it.extra)+8)

	typeStrs := make([]string, len(it.types))
	for i, t := range it.types {
		typeStrs[i] = string(t)
	}
	doc[FieldType] = typeStrs
	doc[FieldName] = it.name
	doc[FieldDescription] = it.description
	doc[FieldStatus] = string(it.status)

	putIfSet(doc, FieldID, it.id)
	putIfSet(doc, FieldCreatedAt, it.createdAt)
	putIfSet(doc, FieldOwner, it.owner)
	putIfSet(doc, FieldCOS, it.cos)
	putIfSet(doc, FieldResourceServer, it.resourceServer)
	putIfSet(doc, FieldProvider, it.provider)
	putIfSet(doc, FieldResourceGroup, it.resourceGroup)
	putIfSet(doc, FieldInstance, it.instance)
	putIfSet(doc, FieldResourceServerURL, it.resourceServerURL)
	putIfSet(doc, FieldOwnerUserID, it.ownerUserID)
	putIfSet(doc, FieldSummary, it.summary)

	if it.geoSummary != nil {
		doc[FieldGeoSummary] = it.geoSummary
	}
	if it.wordVector != nil {
		doc[FieldWordVector] = it.wordVector
	}

	for k, v := range it.extra {
		if _, taken := doc[k]; !taken {
			doc[k] = v
		}
	}
	return doc
}

// ID returns the item identifier.
func (it *Item) ID() string { return it.id }

// Types returns the ordered type discriminators.
func (it *Item) Types() []Type { return it.types }

// PrimaryType returns the first recognized variant discriminator.
func (it *Item) PrimaryType() Type {
	if len(it.types) == 0 {
		return ""
	}
	return it.types[0]
}

// Name returns the item name.
func (it *Item) Name() string { return it.name }

// Description returns the item description.
func (it *Item) Description() string { return it.description }

// Status returns the lifecycle status.
func (it *Item) Status() Status { return it.status }

// CreatedAt returns the creation timestamp string.
func (it *Item) CreatedAt() string { return it.createdAt }

// Owner returns the owner parent reference.
func (it *Item) Owner() string { return it.owner }

// COS returns the cloud-of-things server parent reference.
func (it *Item) COS() string { return it.cos }

// ResourceServer returns the resource server parent reference.
func (it *Item) ResourceServer() string { return it.resourceServer }

// Provider returns the provider parent reference.
func (it *Item) Provider() string { return it.provider }

// ResourceGroup returns the resource group parent reference.
func (it *Item) ResourceGroup() string { return it.resourceGroup }

// Instance returns the declared instance tag, possibly blank.
func (it *Item) Instance() string { return it.instance }

// Summary returns the derived summary text.
func (it *Item) Summary() string { return it.summary }

// GeoSummary returns the derived geocoding summary.
func (it *Item) GeoSummary() map[string]any { return it.geoSummary }

// WordVector returns the derived embedding vector.
func (it *Item) WordVector() []float32 { return it.wordVector }

// SetSummary sets the derived summary.
func (it *Item) SetSummary(s string) { it.summary = s }

// SetGeoSummary sets the derived geocoding summary.
func (it *Item) SetGeoSummary(gs map[string]any) { it.geoSummary = gs }

// SetWordVector sets the derived embedding vector.
func (it *Item) SetWordVector(v []float32) { it.wordVector = v }

// StampCreatedAt sets the creation timestamp if none was supplied.
func (it *Item) StampCreatedAt(now time.Time) {
	if it.createdAt == "" {
		it.createdAt = now.UTC().Format(time.RFC3339)
	}
}

func stringField(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}

func putIfSet(doc map[string]any, key, val string) {
	if val != "" {
		doc[key] = val
	}
}

// collectExtensions copies every field not claimed by the schema.
func collectExtensions(doc map[string]any) map[string]any {
	extra := make(map[string]any)
	for k, v := range doc {
		if _, known := modeledFields[k]; !known {
			extra[k] = v
		}
	}
	return extra
}

var modeledFields = map[string]struct{}{
	FieldID: {}, FieldType: {}, FieldName: {}, FieldDescription: {},
	FieldStatus: {}, FieldCreatedAt: {}, FieldOwner: {}, FieldCOS: {},
	FieldResourceServer: {}, FieldProvider: {}, FieldResourceGroup: {},
	FieldInstance: {}, FieldResourceServerURL: {}, FieldOwnerUserID: {},
	FieldSummary: {}, FieldGeoSummary: {}, FieldWordVector: {},
}

// parseVector accepts []float32, []float64 or []any of numbers (the shapes a
// JSON decoder can produce for the stored vector).
func parseVector(v any) []float32 {
	switch vec := v.(type) {
	case []float32:
		return vec
	case []float64:
		out := make([]float32, len(vec))
		for i, f := range vec {
			out[i] = float32(f)
		}
		return out
	case []any:
		out := make([]float32, 0, len(vec))
		for _, e := range vec {
			f, ok := e.(float64)
			if !ok {
				return nil
			}
			out = append(out, float32(f))
		}
		return out
	}
	return nil
}
