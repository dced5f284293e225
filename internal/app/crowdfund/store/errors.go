// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package store

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	ErrExists   = errors.New("record already exists")
)
