package sqlspan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyOperation(t *testing.T) {
	cases := []struct {
		sql       string
		operation string
	}{
		{"SELECT users.id, users.name FROM users", "select"},
		{"select 1", "select"},
		{"  \n\tSELECT 1", "select"},
		{"INSERT INTO users (name) VALUES (?)", "insert"},
		{"UPDATE users SET name = ? WHERE id = ?", "update"},
		{"DELETE FROM users WHERE id = ?", "delete"},
		{createUsersSQL, "create_table"},
		{"create table users (id INTEGER)", "create_table"},
		{"DROP TABLE users", "drop_table"},
		{"CREATE INDEX ix_users_name ON users (name)", "statement"},
		{"DROP INDEX ix_users_name", "statement"},
		{"VACUUM", "statement"},
		{"", "statement"},
		{"   ", "statement"},
	}

	for _, c := range cases {
		assert.Equal(t, c.operation, NewStatement(c.sql).OperationName(), "sql: %q", c.sql)
	}
}

func TestStatementAccessors(t *testing.T) {
	s := NewStatement("SELECT 1")
	assert.Equal(t, "SELECT 1", s.SQL())
	assert.Equal(t, "select", s.OperationName())
}
