// Package migrate builds the SQL tables of the history store from the ent
// schemas in ent/schema and applies them with ent's migration engine.
package migrate

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	entschema "github.com/abhisek/heartrisk/ent/schema"
)

var (
	// PredictionEventsTable holds the schema information for the
	// "prediction_events" table.
	PredictionEventsTable = Table("prediction_events", "PredictionEvent", entschema.PredictionEvent{})
	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		PredictionEventsTable,
	}
)

// Schema is the part of an ent schema a table is built from.
type Schema interface {
	Mixin() []ent.Mixin
	Fields() []ent.Field
	Indexes() []ent.Index
}

// Table builds the table for s: an auto-increment "id" primary key, then
// the mixin fields and the schema's own fields in declaration order. Index
// names follow ent's <type>_<fields> convention.
func Table(name, typeName string, s Schema) *schema.Table {
	id := &schema.Column{Name: "id", Type: field.TypeInt, Increment: true}
	t := &schema.Table{
		Name:       name,
		Columns:    []*schema.Column{id},
		PrimaryKey: []*schema.Column{id},
	}

	var fields []ent.Field
	var indexes []ent.Index
	for _, m := range s.Mixin() {
		fields = append(fields, m.Fields()...)
		indexes = append(indexes, m.Indexes()...)
	}
	fields = append(fields, s.Fields()...)
	indexes = append(indexes, s.Indexes()...)

	byName := map[string]*schema.Column{}
	for _, f := range fields {
		c := column(f)
		t.Columns = append(t.Columns, c)
		byName[c.Name] = c
	}

	prefix := strings.ToLower(typeName)
	for _, ix := range indexes {
		d := ix.Descriptor()
		idx := &schema.Index{
			Name:   prefix + "_" + strings.Join(d.Fields, "_"),
			Unique: d.Unique,
		}
		for _, name := range d.Fields {
			c, ok := byName[name]
			if !ok {
				panic(fmt.Sprintf("migrate: index %s of %s names unknown field %q", idx.Name, typeName, name))
			}
			idx.Columns = append(idx.Columns, c)
		}
		t.Indexes = append(t.Indexes, idx)
	}
	return t
}

func column(f ent.Field) *schema.Column {
	d := f.Descriptor()
	c := &schema.Column{
		Name:     d.Name,
		Type:     d.Info.Type,
		Unique:   d.Unique,
		Nullable: d.Optional || d.Nillable,
		Comment:  d.Comment,
	}
	// Function defaults are applied by a generated client, not the database.
	switch v := d.Default.(type) {
	case bool, string, int, int64, float64:
		c.Default = v
	}
	return c
}

// Columns returns the column names of t in order.
func Columns(t *schema.Table) []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Create runs the migration for all tables on drv.
func Create(ctx context.Context, drv dialect.Driver, opts ...schema.MigrateOption) error {
	m, err := schema.NewMigrate(drv, opts...)
	if err != nil {
		return fmt.Errorf("ent/migrate: %w", err)
	}
	return m.Create(ctx, Tables...)
}
