package sqlite

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations. Relation lists are
// stored as JSON arrays so a record keeps its document shape.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS todos (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	sort_order INTEGER,
	completed  INTEGER,
	tags       TEXT NOT NULL DEFAULT '[]',
	version    INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS tags (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL,
	todos   TEXT NOT NULL DEFAULT '[]',
	version INTEGER NOT NULL DEFAULT 1
);
`,
	},
}
