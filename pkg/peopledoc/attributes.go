package peopledoc

import (
	"embed"
	"fmt"
	"reflect"

	"github.com/hashicorp-forge/peopledoc/pkg/schema"
)

//go:embed attributes/*.yaml
var attributes embed.FS

// Entity types, built once from the attribute tables in attributes/. Each
// type reserves the method names of its wrapper so that no declared field
// can be shadowed by a method.
var (
	EmployeeType              = mustType("employee", reflect.TypeOf((*Employee)(nil)))
	RegistrationReferenceType = mustType("registration_reference", nil)
	DocumentType              = mustType("document", reflect.TypeOf((*Document)(nil)))
	SignatureType             = mustType("signature", reflect.TypeOf((*Signature)(nil)))
)

func loadType(name string, wrapper reflect.Type) (*schema.Type, error) {
	data, err := attributes.ReadFile("attributes/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading %s attributes: %w", name, err)
	}

	s, err := schema.LoadYAML(data)
	if err != nil {
		return nil, fmt.Errorf("error loading %s attributes: %w", name, err)
	}

	return schema.Build(s, name, schema.WithMethodsOf(wrapper))
}

func mustType(name string, wrapper reflect.Type) *schema.Type {
	t, err := loadType(name, wrapper)
	if err != nil {
		panic(err)
	}
	return t
}
