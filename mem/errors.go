package mem

import "errors"

// ErrUnalignedAddress is returned by ReadWord/WriteWord when passed an odd
// address. Word operations require alignment; byte operations accept any
// address.
var ErrUnalignedAddress = errors.New("unaligned word address")
