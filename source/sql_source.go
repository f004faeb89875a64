package source

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type SQLSourceOptions struct {
	Name string `cfg:"name" validate:"required"`

	Driver   string `cfg:"driver" def:"mysql" validate:"oneof=mysql sqlite3"`
	DSN      string `cfg:"dsn"`
	Host     string `cfg:"host" def:"localhost"`
	Port     string `cfg:"port" def:"3306"`
	Database string `cfg:"database"`
	Username string `cfg:"username"`
	Password string `cfg:"password"`

	// 查询语句，唯一的参数是配置名，返回一列配置文本
	Query string `cfg:"query" def:"SELECT content FROM config_files WHERE name = ?"`

	MaxConns int `cfg:"maxConns" def:"4"`
}

// SQLSource 通过 database/sql 读取配置文本
type SQLSource struct {
	name  string
	query string
	db    *sql.DB
}

func NewSQLSourceWithOptions(options *SQLSourceOptions) (*SQLSource, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if options.Name == "" {
		return nil, errors.New("name is required")
	}

	driver := options.Driver
	if driver == "" {
		driver = "mysql"
	}

	dsn := options.DSN
	if dsn == "" {
		switch driver {
		case "mysql":
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4",
				options.Username, options.Password, options.Host, options.Port, options.Database)
		case "sqlite3":
			dsn = options.Database
		default:
			return nil, errors.Errorf("unsupported driver: %s", driver)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sql.Open failed")
	}
	if options.MaxConns > 0 {
		db.SetMaxOpenConns(options.MaxConns)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "db.Ping failed")
	}

	query := options.Query
	if query == "" {
		query = "SELECT content FROM config_files WHERE name = ?"
	}

	return &SQLSource{name: options.Name, query: query, db: db}, nil
}

// NewSQLSource 使用已有的连接
func NewSQLSource(db *sql.DB, name string, query string) *SQLSource {
	return &SQLSource{name: name, query: query, db: db}
}

func (s *SQLSource) Name() string {
	return "sql/" + s.name
}

func (s *SQLSource) Open(ctx context.Context) (io.ReadCloser, error) {
	var content sql.NullString
	if err := s.db.QueryRowContext(ctx, s.query, s.name).Scan(&content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrNotFound, "name: %s", s.name)
		}
		return nil, errors.Wrap(err, "query config failed")
	}
	return io.NopCloser(strings.NewReader(content.String)), nil
}

func (s *SQLSource) Close() error {
	return s.db.Close()
}
