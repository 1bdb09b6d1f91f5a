// Package migrations embeds the SQL schema so the migrate command does not
// depend on the working directory.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Migration is one numbered schema step.
type Migration struct {
	Name string
	SQL  string
}

// Up returns the up migrations in apply order.
func Up() ([]Migration, error) { return load(".up.sql", false) }

// Down returns the down migrations in rollback order.
func Down() ([]Migration, error) { return load(".down.sql", true) }

func load(suffix string, reverse bool) ([]Migration, error) {
	names, err := fs.Glob(files, "*"+suffix)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}

	out := make([]Migration, 0, len(names))
	for _, n := range names {
		data, err := files.ReadFile(n)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Name: strings.TrimSuffix(n, suffix), SQL: string(data)})
	}
	return out, nil
}
