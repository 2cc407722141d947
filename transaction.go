package sqlspan

import (
	"database/sql/driver"
)

type tx struct {
	wrapped    driver.Tx
	connection *conn
}

func wrapTx(wrapped driver.Tx, c *conn) driver.Tx {
	if wrapped == nil {
		return nil
	}
	return tx{wrapped, c}
}

// Tx interface

func (t tx) Commit() error {
	err := t.wrapped.Commit()

	// The transaction is over either way: its parent span and traced
	// marker must not survive into whatever runs on this connection next.
	t.connection.tc.EndTransaction(t.connection)
	return err
}

func (t tx) Rollback() error {
	err := t.wrapped.Rollback()

	t.connection.tc.EndTransaction(t.connection)
	return err
}
