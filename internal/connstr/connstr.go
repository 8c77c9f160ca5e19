// SPDX-License-Identifier: Apache-2.0

package connstr

import (
	"fmt"
	"net/url"
	"strings"
)

// Components holds the parts of a Postgres connection URL needed to drive
// the libpq-based client tools (psql, pg_dump) and Flyway.
type Components struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// Parse takes a Postgres connection string in URL format and splits it into
// its components. Host defaults to localhost and port to 5432.
func Parse(connStr string) (*Components, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, fmt.Errorf("unsupported connection string scheme %q", u.Scheme)
	}

	c := &Components{
		Host:     u.Hostname(),
		Port:     u.Port(),
		Database: strings.TrimPrefix(u.Path, "/"),
		SSLMode:  u.Query().Get("sslmode"),
	}

	if u.User != nil {
		c.User = u.User.Username()
		c.Password, _ = u.User.Password()
	}

	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == "" {
		c.Port = "5432"
	}

	return c, nil
}

// Env returns the libpq environment variables describing the connection.
// psql and pg_dump pick these up without any connection flags, which keeps
// the password out of process argument lists.
func (c *Components) Env() []string {
	env := []string{
		"PGHOST=" + c.Host,
		"PGPORT=" + c.Port,
	}
	if c.User != "" {
		env = append(env, "PGUSER="+c.User)
	}
	if c.Password != "" {
		env = append(env, "PGPASSWORD="+c.Password)
	}
	if c.Database != "" {
		env = append(env, "PGDATABASE="+c.Database)
	}
	if c.SSLMode != "" {
		env = append(env, "PGSSLMODE="+c.SSLMode)
	}
	return env
}

// JDBCURL returns the connection in the JDBC format expected by Flyway's
// -url flag. Credentials are passed separately via -user and -password.
func (c *Components) JDBCURL() string {
	s := fmt.Sprintf("jdbc:postgresql://%s:%s/%s", c.Host, c.Port, c.Database)
	if c.SSLMode != "" {
		s += "?sslmode=" + c.SSLMode
	}
	return s
}

// AppendSearchPathOption takes a Postgres connection string in URL format and
// produces the same connection string with the search_path option set to the
// provided schema.
func AppendSearchPathOption(connStr, schema string) (string, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse connection string: %w", err)
	}

	if schema == "" {
		return connStr, nil
	}

	q := u.Query()
	q.Set("options", fmt.Sprintf("-c search_path=%s", schema))
	encodedQuery := q.Encode()

	// Replace '+' with '%20' to ensure proper encoding of spaces within the
	// `options` query parameter.
	encodedQuery = strings.ReplaceAll(encodedQuery, "+", "%20")

	u.RawQuery = encodedQuery

	return u.String(), nil
}
