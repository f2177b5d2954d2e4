package sqlite3

import (
	"github.com/jakoblorz/adsql"
)

const selectAllTableNamesSQL = `SELECT name FROM sqlite_master
	WHERE type = 'table' AND substr(name, 1, 7) <> 'sqlite_'
	ORDER BY name`

const selectTableSQL = `SELECT * FROM %s LIMIT 1`

// Columns of an index come back in seqno order, joined by ';' like
// Advantage index expressions.
const selectIndexesSQL = `SELECT il.name,
       group_concat(ii.name, ';'),
       il."unique",
       il.origin = 'pk'
  FROM pragma_index_list(%[1]s) AS il
  JOIN pragma_index_info(il.name) AS ii
 GROUP BY il.name, il."unique", il.origin`

// Catalog answers Introspection from sqlite_master and the index
// pragmas instead of the Advantage system tables.
var Catalog = adsql.Catalog{
	TableNamesSQL: selectAllTableNamesSQL,
	DescribeSQL:   selectTableSQL,
	IndexesSQL:    selectIndexesSQL,
}
