// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package crowdfund

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

const AddressLength = 20

// Address identifies a native account, a contributor or a contract.
type Address [AddressLength]byte

var ZeroAddress = Address{}

func ParseAddress(s string) (Address, error) {
	var a Address
	raw := strings.TrimSpace(s)
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		return a, NewError(KindInvalidArgument, "address must start with 0x")
	}
	raw = raw[2:]
	if len(raw) != 2*AddressLength {
		return a, NewError(KindInvalidArgument, "address must have 40 hex digits")
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return a, Wrap(KindInvalidArgument, err, "address is not hex")
	}
	copy(a[:], b)
	return a, nil
}

func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(errors.Wrapf(err, "bad address %q", s))
	}
	return a
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ContractAddress derives the address of a contract created by deployer
// when its account nonce equals nonce.
func ContractAddress(deployer Address, nonce uint64) Address {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)

	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(deployer[:])
	_, _ = h.Write(n[:])
	sum := h.Sum(nil)

	var a Address
	copy(a[:], sum[len(sum)-AddressLength:])
	return a
}
