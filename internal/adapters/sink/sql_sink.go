package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ErrUnknownParameter is returned when a statement names a parameter
// the caller did not supply.
var ErrUnknownParameter = errors.New("unknown statement parameter")

// Placeholder styles of the supported drivers
const (
	PlaceholderQuestion = iota // ?, used by sqlite3 and mysql
	PlaceholderDollar          // $1, used by pgx
)

// SQLSink runs insert statements with ":name" parameters
type SQLSink struct {
	db     *sql.DB
	style  int
	logger *zap.Logger
}

// NewSQLSink opens a database handle for driver "sqlite3", "mysql" or "pgx".
// No connection is kept between inserts.
func NewSQLSink(driver, dsn string, logger *zap.Logger) (*SQLSink, error) {
	style := PlaceholderQuestion
	switch driver {
	case "sqlite3", "mysql":
	case "pgx":
		style = PlaceholderDollar
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	db.SetMaxIdleConns(0)

	return &SQLSink{db: db, style: style, logger: logger}, nil
}

// Insert executes statement with params bound by name
func (s *SQLSink) Insert(ctx context.Context, statement string, params map[string]string) error {
	query, args, err := BindNamed(statement, params, s.style)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil {
		s.logger.Debug("Executed database statement", zap.Int64("rows_affected", n))
	}
	return nil
}

// Close releases the database handle
func (s *SQLSink) Close() error {
	return s.db.Close()
}

// BindNamed rewrites ":name" placeholders to the driver's positional form
// and returns the matching arguments. Quoted text and "::" casts are left
// alone.
func BindNamed(statement string, params map[string]string, style int) (string, []any, error) {
	var (
		out   strings.Builder
		args  []any
		quote byte
	)
	for i := 0; i < len(statement); i++ {
		c := statement[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			out.WriteByte(c)
		case c == '\'' || c == '"' || c == '`':
			quote = c
			out.WriteByte(c)
		case c == ':' && i+1 < len(statement) && statement[i+1] == ':':
			out.WriteString("::")
			i++
		case c == ':' && i+1 < len(statement) && isNameStart(statement[i+1]):
			j := i + 1
			for j < len(statement) && isNameChar(statement[j]) {
				j++
			}
			name := statement[i+1 : j]
			value, ok := params[name]
			if !ok {
				return "", nil, fmt.Errorf("%w: %s", ErrUnknownParameter, name)
			}
			args = append(args, value)
			if style == PlaceholderDollar {
				out.WriteString("$" + strconv.Itoa(len(args)))
			} else {
				out.WriteByte('?')
			}
			i = j - 1
		default:
			out.WriteByte(c)
		}
	}
	return out.String(), args, nil
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}
