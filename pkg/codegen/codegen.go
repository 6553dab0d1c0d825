// SPDX-License-Identifier: Apache-2.0

// Package codegen renders a list of operations (a Migration) into a self-registering Go
// migration source file — the `generate` command's output. Grounded on
// the teacher's pkg/backfill/templates (text/template building SQL
// strings from a typed config); this package templates a whole .go file
// instead of a SQL fragment, since this module's migrations are compiled
// Go source rather than data files a runtime loader reads.
package codegen

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/momentum-cms/migrate/pkg/ops"
)

// Migration is the input to Render: a named, described set of operations
// destined for one generated migration file.
type Migration struct {
	// Name is the migration's file-derived identity (e.g.
	// "20260101120000_create_posts"), matching loader's filename pattern.
	Name        string
	Description string
	Operations  []ops.Operation
}

// typeName derives a valid, collision-free Go identifier from Name. The
// loader's filename pattern already restricts Name to [a-zA-Z0-9_], which
// would be a legal identifier on its own except that it starts with a
// digit (the timestamp prefix) — prefixing with "migration_" fixes that.
func (m Migration) typeName() string {
	return "migration_" + m.Name
}

// Render produces the full contents of a migration file for m.
func Render(m Migration) ([]byte, error) {
	opsLiteral, usesStrPtr := renderOperationSlice(m.Operations)

	data := struct {
		TypeName    string
		Name        string
		Description string
		OpsLiteral  string
		UsesStrPtr  bool
	}{
		TypeName:    m.typeName(),
		Name:        m.Name,
		Description: m.Description,
		OpsLiteral:  opsLiteral,
		UsesStrPtr:  usesStrPtr,
	}

	tmpl := template.Must(template.New("migration").Parse(migrationTemplate))
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("codegen: rendering %q: %w", m.Name, err)
	}
	return buf.Bytes(), nil
}

const migrationTemplate = `// SPDX-License-Identifier: Apache-2.0

package migrations

import (
	"context"

	"github.com/momentum-cms/migrate/pkg/loader"
	"github.com/momentum-cms/migrate/pkg/ops"
	"github.com/momentum-cms/migrate/pkg/sqlgen"
)

func init() {
	loader.Register("{{.Name}}", {{.TypeName}}{})
}

type {{.TypeName}} struct{}

var {{.TypeName}}Operations = {{.OpsLiteral}}
{{if .UsesStrPtr}}
func strPtr(s string) *string { return &s }
{{end}}
func ({{.TypeName}}) Meta() loader.Meta {
	return loader.Meta{
		Name:        "{{.Name}}",
		Description: "{{.Description}}",
		Operations:  {{.TypeName}}Operations,
	}
}

func ({{.TypeName}}) Up(ctx context.Context, mc *loader.MigrationContext) error {
	for _, stmt := range sqlgen.OperationsToUpSQL({{.TypeName}}Operations, mc.Dialect) {
		if err := mc.SQL(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func ({{.TypeName}}) Down(ctx context.Context, mc *loader.MigrationContext) error {
	for _, stmt := range sqlgen.OperationsToDownSQL({{.TypeName}}Operations, mc.Dialect) {
		if err := mc.SQL(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
`

// renderOperationSlice renders a []ops.Operation Go literal, reporting
// whether any element needed the generated strPtr helper.
func renderOperationSlice(operations []ops.Operation) (string, bool) {
	if len(operations) == 0 {
		return "[]ops.Operation{}", false
	}

	var sb strings.Builder
	sb.WriteString("[]ops.Operation{\n")
	usesStrPtr := false
	for _, op := range operations {
		lit, needsStrPtr := renderOperation(op)
		usesStrPtr = usesStrPtr || needsStrPtr
		sb.WriteString("\t\t")
		sb.WriteString(lit)
		sb.WriteString(",\n")
	}
	sb.WriteString("\t}")
	return sb.String(), usesStrPtr
}

// renderOperation renders a single operation as a Go composite literal.
// fmt's "%#v" verb can't be used here: it prints a *string field as a raw
// pointer address, not reconstructible Go source, so every field needing
// one goes through strPtrLiteral instead.
func renderOperation(op ops.Operation) (string, bool) {
	switch o := op.(type) {
	case ops.CreateTable:
		return renderCreateTable(o)
	case ops.DropTable:
		return fmt.Sprintf("ops.DropTable{TableName: %s}", quote(o.TableName)), false
	case ops.RenameTable:
		return fmt.Sprintf("ops.RenameTable{From: %s, To: %s}", quote(o.From), quote(o.To)), false
	case ops.AddColumn:
		lit, needs := strPtrLiteral(o.DefaultValue)
		return fmt.Sprintf("ops.AddColumn{TableName: %s, Column: %s, ColumnType: %s, Nullable: %t, DefaultValue: %s}",
			quote(o.TableName), quote(o.Column), quote(o.ColumnType), o.Nullable, lit), needs
	case ops.DropColumn:
		return fmt.Sprintf("ops.DropColumn{TableName: %s, Column: %s, PreviousType: %s, PreviousNullable: %t}",
			quote(o.TableName), quote(o.Column), quote(o.PreviousType), o.PreviousNullable), false
	case ops.RenameColumn:
		return fmt.Sprintf("ops.RenameColumn{TableName: %s, From: %s, To: %s}",
			quote(o.TableName), quote(o.From), quote(o.To)), false
	case ops.AlterColumnType:
		return fmt.Sprintf("ops.AlterColumnType{TableName: %s, Column: %s, FromType: %s, ToType: %s}",
			quote(o.TableName), quote(o.Column), quote(o.FromType), quote(o.ToType)), false
	case ops.AlterColumnNullable:
		return fmt.Sprintf("ops.AlterColumnNullable{TableName: %s, Column: %s, Nullable: %t}",
			quote(o.TableName), quote(o.Column), o.Nullable), false
	case ops.AlterColumnDefault:
		defLit, defNeeds := strPtrLiteral(o.DefaultValue)
		prevLit, prevNeeds := strPtrLiteral(o.PreviousDefault)
		return fmt.Sprintf("ops.AlterColumnDefault{TableName: %s, Column: %s, DefaultValue: %s, PreviousDefault: %s}",
			quote(o.TableName), quote(o.Column), defLit, prevLit), defNeeds || prevNeeds
	case ops.AddForeignKey:
		return fmt.Sprintf("ops.AddForeignKey{TableName: %s, ConstraintName: %s, Column: %s, ReferencedTable: %s, ReferencedColumn: %s, OnDelete: %s}",
			quote(o.TableName), quote(o.ConstraintName), quote(o.Column), quote(o.ReferencedTable), quote(o.ReferencedColumn), quote(o.OnDelete)), false
	case ops.DropForeignKey:
		return fmt.Sprintf("ops.DropForeignKey{TableName: %s, ConstraintName: %s}",
			quote(o.TableName), quote(o.ConstraintName)), false
	case ops.CreateIndex:
		return fmt.Sprintf("ops.CreateIndex{TableName: %s, IndexName: %s, Columns: %s, Unique: %t}",
			quote(o.TableName), quote(o.IndexName), stringSliceLiteral(o.Columns), o.Unique), false
	case ops.DropIndex:
		return fmt.Sprintf("ops.DropIndex{TableName: %s, IndexName: %s}",
			quote(o.TableName), quote(o.IndexName)), false
	case ops.RawSQL:
		return fmt.Sprintf("ops.RawSQL{UpSQL: %s, DownSQL: %s, Description: %s}",
			quote(o.UpSQL), quote(o.DownSQL), quote(o.Description)), false
	default:
		panic(fmt.Sprintf("codegen: unhandled operation kind %T", op))
	}
}

func renderCreateTable(o ops.CreateTable) (string, bool) {
	var sb strings.Builder
	sb.WriteString("ops.CreateTable{TableName: ")
	sb.WriteString(quote(o.TableName))
	sb.WriteString(", Columns: []ops.ColumnDef{\n")
	usesStrPtr := false
	for _, c := range o.Columns {
		lit, needs := strPtrLiteral(c.DefaultValue)
		usesStrPtr = usesStrPtr || needs
		sb.WriteString(fmt.Sprintf("\t\t\tops.ColumnDef{Name: %s, Type: %s, Nullable: %t, DefaultValue: %s, PrimaryKey: %t},\n",
			quote(c.Name), quote(c.Type), c.Nullable, lit, c.PrimaryKey))
	}
	sb.WriteString("\t\t}}")
	return sb.String(), usesStrPtr
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}

func stringSliceLiteral(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	return "[]string{" + strings.Join(quoted, ", ") + "}"
}

// strPtrLiteral renders a *string field as Go source. A generated
// migration file defines its own package-local strPtr helper (guarded by
// UsesStrPtr so a migration with no defaults at all doesn't carry an
// unused function).
func strPtrLiteral(v *string) (string, bool) {
	if v == nil {
		return "nil", false
	}
	return fmt.Sprintf("strPtr(%s)", quote(*v)), true
}
