package item

import (
	"fmt"
	"regexp"

	"github.com/kailas-cloud/metadex/internal/domain"
)

// Type is a closed enumeration of the catalogue entity variants.
type Type string

// Entity variants, roots first.
const (
	TypeOwner          Type = "cat:Owner"
	TypeCOS            Type = "cat:COS"
	TypeResourceServer Type = "cat:ResourceServer"
	TypeProvider       Type = "cat:Provider"
	TypeResourceGroup  Type = "cat:ResourceGroup"
	TypeResource       Type = "cat:Resource"
	TypeInstance       Type = "cat:Instance"
)

// AllTypes lists every known variant.
var AllTypes = []Type{
	TypeOwner, TypeCOS, TypeResourceServer, TypeProvider,
	TypeResourceGroup, TypeResource, TypeInstance,
}

// requiredParents maps each variant to the parent-reference fields it must
// declare. Owner and Instance are roots.
var requiredParents = map[Type][]string{
	TypeOwner:          nil,
	TypeCOS:            {FieldOwner},
	TypeResourceServer: {FieldCOS},
	TypeProvider:       {FieldResourceServer},
	TypeResourceGroup:  {FieldProvider},
	TypeResource:       {FieldResourceServer, FieldProvider, FieldResourceGroup},
	TypeInstance:       nil,
}

// parentTypeByField maps each parent-key field to the variant it references.
var parentTypeByField = map[string]Type{
	FieldOwner:          TypeOwner,
	FieldCOS:            TypeCOS,
	FieldResourceServer: TypeResourceServer,
	FieldProvider:       TypeProvider,
	FieldResourceGroup:  TypeResourceGroup,
}

// nameRegex is the allowed character class for free-text name fields.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_()&,.\- ]*$`)

// ParseType maps a discriminator string to a variant. Total over the closed
// enumeration: anything else is a structural failure, not a panic.
func ParseType(s string) (Type, error) {
	t := Type(s)
	switch t {
	case TypeOwner, TypeCOS, TypeResourceServer, TypeProvider,
		TypeResourceGroup, TypeResource, TypeInstance:
		return t, nil
	}
	return "", fmt.Errorf("unknown item type %q: %w", s, domain.ErrInvalidSchema)
}

// parseTypes decodes the "type" field: an ordered set of discriminators,
// either a single string or a list.
func parseTypes(v any) ([]Type, error) {
	var raw []string
	switch tv := v.(type) {
	case string:
		raw = []string{tv}
	case []string:
		raw = tv
	case []any:
		for _, e := range tv {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("item type entries must be strings: %w", domain.ErrInvalidSchema)
			}
			raw = append(raw, s)
		}
	case nil:
		return nil, fmt.Errorf("item type is required: %w", domain.ErrInvalidSchema)
	default:
		return nil, fmt.Errorf("item type must be a string or list: %w", domain.ErrInvalidSchema)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("item type is required: %w", domain.ErrInvalidSchema)
	}

	seen := make(map[Type]struct{}, len(raw))
	types := make([]Type, 0, len(raw))
	for _, s := range raw {
		t, err := ParseType(s)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		types = append(types, t)
	}
	return types, nil
}
