// SPDX-License-Identifier: Apache-2.0

// Package ops defines the tagged variant of schema-change operations shared
// by the diff engine (pkg/diff), the SQL generator (pkg/sqlgen) and the
// danger detector (pkg/danger). Operations are plain data: building one
// never touches a database, and the same value is used both to emit SQL
// and to classify risk.
package ops

// ColumnDef describes a column as part of a createTable operation.
type ColumnDef struct {
	Name         string
	Type         string
	Nullable     bool
	DefaultValue *string
	PrimaryKey   bool
}

// Operation is implemented by every operation variant. Kind() lets
// consumers dispatch with a type switch without a type assertion on every
// branch; Table() names the primary table affected, used for
// logging/ordering diagnostics.
type Operation interface {
	Kind() Kind
	Table() string
}

// Kind enumerates the operation variants of spec.md §4.5.
type Kind string

const (
	KindCreateTable         Kind = "createTable"
	KindDropTable           Kind = "dropTable"
	KindRenameTable         Kind = "renameTable"
	KindAddColumn           Kind = "addColumn"
	KindDropColumn          Kind = "dropColumn"
	KindRenameColumn        Kind = "renameColumn"
	KindAlterColumnType     Kind = "alterColumnType"
	KindAlterColumnNullable Kind = "alterColumnNullable"
	KindAlterColumnDefault  Kind = "alterColumnDefault"
	KindAddForeignKey       Kind = "addForeignKey"
	KindDropForeignKey      Kind = "dropForeignKey"
	KindCreateIndex         Kind = "createIndex"
	KindDropIndex           Kind = "dropIndex"
	KindRawSQL              Kind = "rawSql"
)

type CreateTable struct {
	TableName string
	Columns   []ColumnDef
}

func (o CreateTable) Kind() Kind    { return KindCreateTable }
func (o CreateTable) Table() string { return o.TableName }

type DropTable struct {
	TableName string
}

func (o DropTable) Kind() Kind    { return KindDropTable }
func (o DropTable) Table() string { return o.TableName }

// RenameTable is generated only via explicit hints, never inferred by the
// diff engine (spec.md §4.5).
type RenameTable struct {
	From string
	To   string
}

func (o RenameTable) Kind() Kind    { return KindRenameTable }
func (o RenameTable) Table() string { return o.From }

type AddColumn struct {
	TableName    string
	Column       string
	ColumnType   string
	Nullable     bool
	DefaultValue *string
}

func (o AddColumn) Kind() Kind    { return KindAddColumn }
func (o AddColumn) Table() string { return o.TableName }

type DropColumn struct {
	TableName        string
	Column           string
	PreviousType     string
	PreviousNullable bool
}

func (o DropColumn) Kind() Kind    { return KindDropColumn }
func (o DropColumn) Table() string { return o.TableName }

type RenameColumn struct {
	TableName string
	From      string
	To        string
}

func (o RenameColumn) Kind() Kind    { return KindRenameColumn }
func (o RenameColumn) Table() string { return o.TableName }

type AlterColumnType struct {
	TableName string
	Column    string
	FromType  string
	ToType    string
}

func (o AlterColumnType) Kind() Kind    { return KindAlterColumnType }
func (o AlterColumnType) Table() string { return o.TableName }

type AlterColumnNullable struct {
	TableName string
	Column    string
	Nullable  bool
}

func (o AlterColumnNullable) Kind() Kind    { return KindAlterColumnNullable }
func (o AlterColumnNullable) Table() string { return o.TableName }

type AlterColumnDefault struct {
	TableName       string
	Column          string
	DefaultValue    *string
	PreviousDefault *string
}

func (o AlterColumnDefault) Kind() Kind    { return KindAlterColumnDefault }
func (o AlterColumnDefault) Table() string { return o.TableName }

type AddForeignKey struct {
	TableName        string
	ConstraintName   string
	Column           string
	ReferencedTable  string
	ReferencedColumn string
	OnDelete         string
}

func (o AddForeignKey) Kind() Kind    { return KindAddForeignKey }
func (o AddForeignKey) Table() string { return o.TableName }

type DropForeignKey struct {
	TableName      string
	ConstraintName string
}

func (o DropForeignKey) Kind() Kind    { return KindDropForeignKey }
func (o DropForeignKey) Table() string { return o.TableName }

type CreateIndex struct {
	TableName string
	IndexName string
	Columns   []string
	Unique    bool
}

func (o CreateIndex) Kind() Kind    { return KindCreateIndex }
func (o CreateIndex) Table() string { return o.TableName }

type DropIndex struct {
	TableName string
	IndexName string
}

func (o DropIndex) Kind() Kind    { return KindDropIndex }
func (o DropIndex) Table() string { return o.TableName }

type RawSQL struct {
	UpSQL       string
	DownSQL     string
	Description string
}

func (o RawSQL) Kind() Kind    { return KindRawSQL }
func (o RawSQL) Table() string { return "" }
