package sqlspan

import "database/sql/driver"

type tracingDriver struct {
	tc          *TracingContext
	openWrapped OpenFunc
}

// Driver interface

func (d *tracingDriver) Open(name string) (driver.Conn, error) {
	wrapped, err := d.openWrapped(name)
	if err != nil {
		return nil, err
	}

	// We implement driver.Pinger if and only if wrapped does.
	if _, ok := wrapped.(driver.Pinger); ok {
		return &pingerConn{conn{tc: d.tc, drv: d, wrapped: wrapped}}, nil
	}
	return &conn{tc: d.tc, drv: d, wrapped: wrapped}, nil
}
