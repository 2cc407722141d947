package sqlspan

import "database/sql/driver"

// minimalDriver strips a driver down to the mandatory Driver/Conn/Stmt
// interfaces, forcing database/sql (and our wrapper) through the
// driver.ErrSkip fallback paths. Every method below is required by the
// respective interface contract.
func minimalDriver(d driver.Driver) driver.Driver {
	return minDriver{d}
}

type minDriver struct{ wrapped driver.Driver }

type minConn struct{ wrapped driver.Conn }

type minStmt struct{ wrapped driver.Stmt }

func (m minDriver) Open(name string) (driver.Conn, error) {
	c, err := m.wrapped.Open(name)
	if err != nil {
		return nil, err
	}
	return minConn{c}, nil
}

func (m minConn) Prepare(query string) (driver.Stmt, error) {
	s, err := m.wrapped.Prepare(query)
	if err != nil {
		return nil, err
	}
	return minStmt{s}, nil
}

func (m minConn) Close() error { return m.wrapped.Close() }

func (m minConn) Begin() (driver.Tx, error) { return m.wrapped.Begin() }

func (m minStmt) Close() error { return m.wrapped.Close() }

func (m minStmt) NumInput() int { return m.wrapped.NumInput() }

func (m minStmt) Exec(args []driver.Value) (driver.Result, error) {
	return m.wrapped.Exec(args)
}

func (m minStmt) Query(args []driver.Value) (driver.Rows, error) {
	return m.wrapped.Query(args)
}
