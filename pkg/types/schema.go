package types

import "fmt"

// Schema defines the persisted shape of one output table.
type Schema struct {
	// Table is the table (and file stem) name
	Table string `json:"table"`

	// Version tracks schema evolution for downstream loaders
	Version int `json:"version"`

	// Columns defines the columns in file and table order
	Columns []ColumnDef `json:"columns"`

	// Indexes defines the indexes the warehouse creates after loading
	Indexes []IndexDef `json:"indexes"`
}

// ColumnDef defines a single column in the schema.
type ColumnDef struct {
	// Name is the column name
	Name string `json:"name"`

	// Type is the SQLite storage type: TEXT, INTEGER, REAL
	Type string `json:"type"`

	// Nullable indicates whether the column can contain NULL values
	Nullable bool `json:"nullable"`

	// PrimaryKey indicates whether this column is part of the primary key
	PrimaryKey bool `json:"primary_key"`
}

// IndexDef defines an index on the table.
type IndexDef struct {
	// Name is the index name
	Name string `json:"name"`

	// Columns lists the columns included in the index
	Columns []string `json:"columns"`

	// Unique indicates whether the index enforces uniqueness
	Unique bool `json:"unique"`
}

// ColumnNames returns the column names in order.
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// UsersSchema is the users_raw layout.
func UsersSchema() Schema {
	return Schema{
		Table:   "users_raw",
		Version: 1,
		Columns: []ColumnDef{
			{Name: "user_id", Type: "INTEGER", PrimaryKey: true},
			{Name: "signup_date", Type: "TEXT"},
			{Name: "device", Type: "TEXT"},
			{Name: "country", Type: "TEXT"},
			{Name: "is_bot", Type: "INTEGER"},
			{Name: "loyalty_tier", Type: "TEXT"},
			{Name: "ab_variant", Type: "TEXT"},
		},
		Indexes: []IndexDef{
			{Name: "idx_users_signup_date", Columns: []string{"signup_date"}},
		},
	}
}

// EventsSchema is the events_raw layout.
func EventsSchema() Schema {
	return Schema{
		Table:   "events_raw",
		Version: 1,
		Columns: []ColumnDef{
			{Name: "event_id", Type: "TEXT", PrimaryKey: true},
			{Name: "user_id", Type: "INTEGER"},
			{Name: "session_id", Type: "TEXT", Nullable: true},
			{Name: "event_type", Type: "TEXT"},
			{Name: "page", Type: "TEXT"},
			{Name: "product_id", Type: "INTEGER", Nullable: true},
			{Name: "product_category", Type: "TEXT", Nullable: true},
			{Name: "ts", Type: "TEXT"},
			{Name: "source", Type: "TEXT"},
			{Name: "device", Type: "TEXT"},
			{Name: "ab_test_id", Type: "TEXT", Nullable: true},
			{Name: "variant", Type: "TEXT", Nullable: true},
		},
		Indexes: []IndexDef{
			{Name: "idx_events_user_id", Columns: []string{"user_id"}},
			{Name: "idx_events_ts", Columns: []string{"ts"}},
			{Name: "idx_events_user_ts", Columns: []string{"user_id", "ts"}},
		},
	}
}

// SessionsSchema is the sessions_raw layout.
func SessionsSchema() Schema {
	return Schema{
		Table:   "sessions_raw",
		Version: 1,
		Columns: []ColumnDef{
			{Name: "session_id", Type: "TEXT", PrimaryKey: true},
			{Name: "user_id", Type: "INTEGER"},
			{Name: "start_time", Type: "TEXT"},
			{Name: "source", Type: "TEXT"},
		},
		Indexes: []IndexDef{
			{Name: "idx_sessions_user_id", Columns: []string{"user_id"}},
		},
	}
}

// OrdersSchema is the orders_raw layout as written by the generator.
// The warehouse adds product_category on load.
func OrdersSchema() Schema {
	return Schema{
		Table:   "orders_raw",
		Version: 1,
		Columns: []ColumnDef{
			{Name: "order_id", Type: "TEXT", PrimaryKey: true},
			{Name: "user_id", Type: "INTEGER"},
			{Name: "product_id", Type: "INTEGER"},
			{Name: "price", Type: "REAL"},
			{Name: "quantity", Type: "INTEGER"},
			{Name: "discount_amount", Type: "REAL"},
			{Name: "ts", Type: "TEXT"},
			{Name: "payment_status", Type: "TEXT"},
		},
		Indexes: []IndexDef{
			{Name: "idx_orders_user_id", Columns: []string{"user_id"}},
			{Name: "idx_orders_ts", Columns: []string{"ts"}},
		},
	}
}

// Layout strings shared by every persisted format.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

var sqliteTypes = map[string]bool{"TEXT": true, "INTEGER": true, "REAL": true, "BLOB": true}

// Validate checks the schema definition itself.
func (s Schema) Validate() error {
	if s.Table == "" {
		return fmt.Errorf("schema table name is required")
	}
	if s.Version < 1 {
		return fmt.Errorf("schema %s: version must be >= 1, got %d", s.Table, s.Version)
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("schema %s: must have at least one column", s.Table)
	}

	hasPrimaryKey := false
	columns := make(map[string]bool, len(s.Columns))
	for _, col := range s.Columns {
		if col.Name == "" {
			return fmt.Errorf("schema %s: column name cannot be empty", s.Table)
		}
		if columns[col.Name] {
			return fmt.Errorf("schema %s: duplicate column %s", s.Table, col.Name)
		}
		columns[col.Name] = true
		if col.PrimaryKey {
			if col.Nullable {
				return fmt.Errorf("schema %s: primary key %s cannot be nullable", s.Table, col.Name)
			}
			hasPrimaryKey = true
		}
		if !sqliteTypes[col.Type] {
			return fmt.Errorf("schema %s: invalid type %q for column %s", s.Table, col.Type, col.Name)
		}
	}
	if !hasPrimaryKey {
		return fmt.Errorf("schema %s: must have a primary key column", s.Table)
	}

	for _, idx := range s.Indexes {
		if idx.Name == "" || len(idx.Columns) == 0 {
			return fmt.Errorf("schema %s: index needs a name and at least one column", s.Table)
		}
		for _, c := range idx.Columns {
			if !columns[c] {
				return fmt.Errorf("schema %s: index %s references unknown column %s", s.Table, idx.Name, c)
			}
		}
	}
	return nil
}
