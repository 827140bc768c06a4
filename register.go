package sensors

import (
	"context"
	"fmt"
)

var _ RegisterDevice = &RegisterDev{}

// RegisterDev binds an I2CBus to a device address and exposes register level access.
//
// Reads set the register pointer and then read the requested number of bytes. When the bus
// implements AddressableWriteReader both steps happen in one transaction, otherwise they are issued
// as a write followed by a read.
type RegisterDev struct {
	transport I2CBus
	address   byte
}

func NewRegisterDevice(bus I2CBus, address byte) *RegisterDev {
	return &RegisterDev{transport: bus, address: address}
}

func (d *RegisterDev) Address() byte {
	return d.address
}

func (d *RegisterDev) ReadRegister(ctx context.Context, register byte, buffer []byte) error {
	if wr, ok := d.transport.(AddressableWriteReader); ok {
		err := wr.WriteReadFromAddr(ctx, d.address, []byte{register}, buffer)
		if err != nil {
			return fmt.Errorf("could not read register 0x%02x: %w", register, err)
		}
		return nil
	}
	err := d.transport.WriteToAddr(ctx, d.address, []byte{register})
	if err != nil {
		return fmt.Errorf("could not set register pointer 0x%02x: %w", register, err)
	}
	err = d.transport.ReadFromAddr(ctx, d.address, buffer)
	if err != nil {
		return fmt.Errorf("could not read register 0x%02x: %w", register, err)
	}
	return nil
}

func (d *RegisterDev) WriteRegister(ctx context.Context, register byte, data ...byte) error {
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, register)
	buf = append(buf, data...)
	err := d.transport.WriteToAddr(ctx, d.address, buf)
	if err != nil {
		return fmt.Errorf("could not write register 0x%02x: %w", register, err)
	}
	return nil
}
