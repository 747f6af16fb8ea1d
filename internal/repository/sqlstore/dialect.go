package sqlstore

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pgUniqueViolation = "23505"

// Dialect captures what differs between the SQL engines we support.
type Dialect struct {
	Name       string
	DriverName string

	idColumn      string
	floatType     string
	timestampType string
	lockClause    string
	singleConn    bool

	isUniqueViolation func(error) bool
}

// Postgres talks to PostgreSQL through the pgx database/sql driver.
var Postgres = Dialect{
	Name:          "postgres",
	DriverName:    "pgx",
	idColumn:      "BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY",
	floatType:     "DOUBLE PRECISION",
	timestampType: "TIMESTAMPTZ",
	lockClause:    " FOR UPDATE",
	isUniqueViolation: func(err error) bool {
		var pgErr *pgconn.PgError
		return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
	},
}

// SQLite uses the pure Go modernc driver. A single connection keeps
// ":memory:" databases shared and serialises writers.
var SQLite = Dialect{
	Name:          "sqlite",
	DriverName:    "sqlite",
	idColumn:      "INTEGER PRIMARY KEY AUTOINCREMENT",
	floatType:     "REAL",
	timestampType: "TIMESTAMP",
	singleConn:    true,
	isUniqueViolation: func(err error) bool {
		if err == nil {
			return false
		}
		var sqlErr *sqlite.Error
		if errors.As(err, &sqlErr) && sqlErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return true
		}
		// without extended result codes only the message tells UNIQUE apart
		return strings.Contains(err.Error(), "UNIQUE constraint failed")
	},
}

// SQLiteDSN turns a sqlite:// URL into a modernc data source name with a busy
// timeout so concurrent requests wait instead of failing.
func SQLiteDSN(url string) string {
	dsn := strings.TrimPrefix(url, "sqlite://")
	dsn = strings.TrimPrefix(dsn, "sqlite:")
	if dsn == "" {
		dsn = ":memory:"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}
