package cli

import (
	"bytes"
	"testing"
	"testing/fstest"

	"github.com/go-playground/assert/v2"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_indexes.sql":    {Data: []byte("CREATE INDEX a ON t (x);\n")},
		"0001_parody.sql":     {Data: []byte("  CREATE TABLE t (x int);  ")},
		"0003_blank.sql":      {Data: []byte("\n\n")},
		"README.md":           {Data: []byte("not sql")},
		"nested/0000_old.sql": {Data: []byte("DROP TABLE t;")},
	}
	got, err := loadMigrations(fsys)
	assert.Equal(t, nil, err)
	assert.Equal(t, []migration{
		{Name: "0001_parody.sql", SQL: "CREATE TABLE t (x int);"},
		{Name: "0002_indexes.sql", SQL: "CREATE INDEX a ON t (x);"},
	}, got)
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := loadMigrations(migrationSource(""))
	assert.Equal(t, nil, err)
	assert.NotEqual(t, 0, len(got))
	assert.Equal(t, "0001_parody.sql", got[0].Name)
}

func TestPendingMigrations(t *testing.T) {
	all := []migration{{Name: "0001_a.sql"}, {Name: "0002_b.sql"}, {Name: "0003_c.sql"}}
	tests := []struct {
		name    string
		applied map[string]bool
		want    []string
	}{
		{name: "fresh database", applied: map[string]bool{}, want: []string{"0001_a.sql", "0002_b.sql", "0003_c.sql"}},
		{name: "partly applied", applied: map[string]bool{"0001_a.sql": true}, want: []string{"0002_b.sql", "0003_c.sql"}},
		{name: "gap keeps order", applied: map[string]bool{"0002_b.sql": true}, want: []string{"0001_a.sql", "0003_c.sql"}},
		{name: "up to date", applied: map[string]bool{"0001_a.sql": true, "0002_b.sql": true, "0003_c.sql": true}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var names []string
			for _, m := range pendingMigrations(all, tt.applied) {
				names = append(names, m.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestPrintPendingAndStatus(t *testing.T) {
	all := []migration{{Name: "0001_a.sql"}, {Name: "0002_b.sql"}}
	applied := map[string]bool{"0001_a.sql": true}

	var dry bytes.Buffer
	printPending(&dry, pendingMigrations(all, applied))
	assert.Equal(t, "0002_b.sql\n", dry.String())

	var status bytes.Buffer
	printStatus(&status, all, applied)
	assert.Equal(t, "applied  0001_a.sql\npending  0002_b.sql\n", status.String())
}
