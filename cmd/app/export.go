package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/directory"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/schema"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/translate"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/tools"
	"gopkg.in/yaml.v3"
)

const (
	formatYAML = "yaml"
	formatJSON = "json"
)

type exportDoc struct {
	Departments []schema.ProviderDepartment `json:"departments" yaml:"departments"`
	Users       []schema.ProviderUser       `json:"users" yaml:"users"`
}

// buildExport reads departments and users back from the directory. Entries
// without a DingTalk ID are left out.
func buildExport(r *directory.Reconciler, tr *translate.Translator) (exportDoc, error) {
	var doc exportDoc

	depts, err := r.ListDepartments()
	if err != nil {
		return doc, err
	}
	for _, d := range depts {
		p, err := toProvider[schema.ProviderDepartment](tr, d)
		if err != nil {
			tools.Log.WithError(err).WithField("ou", d.OU).Debug("Skipping department without DingTalk ID")
			continue
		}
		doc.Departments = append(doc.Departments, p)
	}

	users, err := r.ListUsers()
	if err != nil {
		return doc, err
	}
	for _, u := range users {
		p, err := toProvider[schema.ProviderUser](tr, u)
		if err != nil {
			tools.Log.WithError(err).WithField("cn", u.CN).Debug("Skipping user without DingTalk ID")
			continue
		}
		doc.Users = append(doc.Users, p)
	}
	return doc, nil
}

// toProvider translates a directory entity and asserts the provider shape.
func toProvider[T schema.Entity](tr *translate.Translator, e schema.Entity) (T, error) {
	var zero T
	out, err := tr.Translate(e)
	if err != nil {
		return zero, err
	}
	p, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %T translated to %T", schema.ErrUnsupportedKind, e, out)
	}
	return p, nil
}

func writeExport(w io.Writer, format string, doc exportDoc) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(doc)
	default:
		return fmt.Errorf("unknown export format %q: want yaml or json", format)
	}
}
