package sensors

import (
	"context"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// AddressableWriteReader is implemented by buses able to write a register pointer and read the
// response in a single transaction (repeated start).
type AddressableWriteReader interface {
	WriteReadFromAddr(ctx context.Context, address byte, w, r []byte) error
}

type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// RegisterReader reads len(buffer) bytes starting at the given register.
type RegisterReader interface {
	ReadRegister(ctx context.Context, register byte, buffer []byte) error
}

// RegisterWriter writes data starting at the given register.
type RegisterWriter interface {
	WriteRegister(ctx context.Context, register byte, data ...byte) error
}

// RegisterDevice is a single device with a register map sitting on a bus.
type RegisterDevice interface {
	RegisterReader
	RegisterWriter
}
