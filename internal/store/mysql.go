package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

const createLinksTable = `CREATE TABLE IF NOT EXISTS links (
  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
  url VARCHAR(2048) NOT NULL,
  description TEXT NOT NULL
)`

// MySQL is a Repository stored in the links table of a MySQL database.
type MySQL struct {
	db *sql.DB
}

var _ Repository = (*MySQL)(nil)

// OpenMySQL connects using a go-sql-driver/mysql DSN and creates the links
// table when it does not exist.
func OpenMySQL(ctx context.Context, dsn string) (*MySQL, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse mysql dsn")
	}
	cfg.ParseTime = true
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "mysql connector")
	}
	db := sql.OpenDB(connector)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping mysql at %s", cfg.Addr)
	}
	if _, err := db.ExecContext(ctx, createLinksTable); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create links table")
	}
	return &MySQL{db: db}, nil
}

func (m *MySQL) All(ctx context.Context, filter Filter) ([]*Link, error) {
	query, args := selectLinks(filter)
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query links")
	}
	defer rows.Close()

	out := []*Link{}
	for rows.Next() {
		var (
			id uint64
			l  Link
		)
		if err := rows.Scan(&id, &l.URL, &l.Description); err != nil {
			return nil, errors.Wrap(err, "scan link")
		}
		l.ID = strconv.FormatUint(id, 10)
		out = append(out, &l)
	}
	return out, errors.Wrap(rows.Err(), "iterate links")
}

// selectLinks builds the query for All. Substrings are matched with LIKE,
// with the LIKE wildcards in them escaped.
func selectLinks(filter Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.URLContains != "" {
		where = append(where, `url LIKE ?`)
		args = append(args, "%"+escapeLike(filter.URLContains)+"%")
	}
	if filter.DescriptionContains != "" {
		where = append(where, `description LIKE ?`)
		args = append(args, "%"+escapeLike(filter.DescriptionContains)+"%")
	}

	query := `SELECT id, url, description FROM links`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY id`
	if filter.First > 0 || filter.Skip > 0 {
		// MySQL has no OFFSET without LIMIT.
		limit := uint64(1<<63 - 1)
		if filter.First > 0 {
			limit = uint64(filter.First)
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, filter.Skip)
	}
	return query, args
}

func (m *MySQL) Get(ctx context.Context, id string) (*Link, error) {
	n, ok := parseID(id)
	if !ok {
		return nil, ErrNotFound
	}
	l := Link{ID: strconv.FormatUint(n, 10)}
	err := m.db.QueryRowContext(ctx, `SELECT url, description FROM links WHERE id = ?`, n).
		Scan(&l.URL, &l.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get link %s", id)
	}
	return &l, nil
}

func (m *MySQL) Create(ctx context.Context, url, description string) (*Link, error) {
	if err := validateURL(url); err != nil {
		return nil, err
	}
	res, err := m.db.ExecContext(ctx, `INSERT INTO links (url, description) VALUES (?, ?)`, url, description)
	if err != nil {
		return nil, errors.Wrap(err, "insert link")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "last insert id")
	}
	return &Link{ID: strconv.FormatInt(id, 10), URL: url, Description: description}, nil
}

func (m *MySQL) Close() error {
	return m.db.Close()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
