// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package pg

import (
	"context"
	"fmt"
	"math/big"

	"github.com/go-pg/pg"
	"github.com/go-pg/pg/orm"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/insolar/crowdfund/internal/app/crowdfund"
	"github.com/insolar/crowdfund/internal/app/crowdfund/store"
	"github.com/insolar/crowdfund/internal/models"
)

// Store keeps the state in postgres. A unit of work is a serializable
// transaction; nested units are savepoints inside it.
type Store struct {
	db  *pg.DB
	log *logrus.Logger
}

func NewPgStore(db *pg.DB, log *logrus.Logger) *Store {
	return &Store{db: db, log: log}
}

func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, st store.State) error) error {
	if st, ok := store.StateFromContext(ctx); ok {
		if parent, ok := st.(*state); ok && parent.owner == s {
			return parent.savepoint(ctx, fn)
		}
	}

	return s.db.WithContext(ctx).RunInTransaction(func(tx *pg.Tx) error {
		if _, err := tx.Exec("SET TRANSACTION ISOLATION LEVEL SERIALIZABLE"); err != nil {
			return errors.Wrap(err, "failed to set isolation level")
		}
		st := &state{owner: s, db: tx}
		return fn(store.WithState(ctx, st), st)
	})
}

type state struct {
	owner *Store
	db    orm.DB
	depth int
}

func (s *state) savepoint(ctx context.Context, fn func(ctx context.Context, st store.State) error) error {
	name := fmt.Sprintf("unit_%d", s.depth+1)
	if _, err := s.db.Exec("SAVEPOINT " + name); err != nil {
		return errors.Wrapf(err, "failed to open savepoint %s", name)
	}
	child := &state{owner: s.owner, db: s.db, depth: s.depth + 1}
	if err := fn(store.WithState(ctx, child), child); err != nil {
		if _, rbErr := s.db.Exec("ROLLBACK TO SAVEPOINT " + name); rbErr != nil {
			s.owner.log.WithField("savepoint", name).Error(errors.Wrap(rbErr, "failed to roll back savepoint"))
		}
		return err
	}
	_, err := s.db.Exec("RELEASE SAVEPOINT " + name)
	return errors.Wrapf(err, "failed to release savepoint %s", name)
}

func (s *state) Balance(_ context.Context, addr crowdfund.Address) (*big.Int, error) {
	var balance string
	_, err := s.db.QueryOne(pg.Scan(&balance), `SELECT balance FROM accounts WHERE address = ?`, addr.String())
	if err == pg.ErrNoRows {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch balance")
	}
	return models.Numeric(balance)
}

func (s *state) SetBalance(_ context.Context, addr crowdfund.Address, amount *big.Int) error {
	_, err := s.db.Exec(`INSERT INTO accounts (address, balance, nonce) VALUES (?, ?, 0)
                         ON CONFLICT (address) DO UPDATE SET balance = EXCLUDED.balance`,
		addr.String(), amount.String())
	return errors.Wrap(err, "failed to update balance")
}

func (s *state) Nonce(_ context.Context, addr crowdfund.Address) (uint64, error) {
	var nonce uint64
	_, err := s.db.QueryOne(pg.Scan(&nonce), `SELECT nonce FROM accounts WHERE address = ?`, addr.String())
	if err == pg.ErrNoRows {
		return 0, nil
	}
	return nonce, errors.Wrap(err, "failed to fetch nonce")
}

func (s *state) SetNonce(_ context.Context, addr crowdfund.Address, nonce uint64) error {
	_, err := s.db.Exec(`INSERT INTO accounts (address, balance, nonce) VALUES (?, 0, ?)
                         ON CONFLICT (address) DO UPDATE SET nonce = EXCLUDED.nonce`,
		addr.String(), nonce)
	return errors.Wrap(err, "failed to update nonce")
}

func (s *state) Contract(_ context.Context, addr crowdfund.Address) (store.Contract, error) {
	row := models.Contract{}
	_, err := s.db.QueryOne(&row, `SELECT address, owner, price_feed, created_at FROM contracts WHERE address = ?`, addr.String())
	if err == pg.ErrNoRows {
		return store.Contract{}, store.ErrNotFound
	}
	if err != nil {
		return store.Contract{}, errors.Wrap(err, "failed to fetch contract")
	}
	return contractModel(row)
}

func (s *state) CreateContract(_ context.Context, c store.Contract) error {
	res, err := s.db.Exec(`INSERT INTO contracts (address, owner, price_feed, created_at) VALUES (?, ?, ?, ?)
                           ON CONFLICT DO NOTHING`,
		c.Address.String(), c.Owner.String(), c.PriceFeed.String(), c.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to insert contract")
	}
	if res.RowsAffected() == 0 {
		return store.ErrExists
	}
	return nil
}

func (s *state) AmountFunded(_ context.Context, contract, funder crowdfund.Address) (*big.Int, error) {
	var amount string
	_, err := s.db.QueryOne(pg.Scan(&amount), `SELECT amount FROM funded_amounts WHERE contract = ? AND funder = ?`,
		contract.String(), funder.String())
	if err == pg.ErrNoRows {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch funded amount")
	}
	return models.Numeric(amount)
}

func (s *state) SetAmountFunded(_ context.Context, contract, funder crowdfund.Address, amount *big.Int) error {
	_, err := s.db.Exec(`INSERT INTO funded_amounts (contract, funder, amount) VALUES (?, ?, ?)
                         ON CONFLICT (contract, funder) DO UPDATE SET amount = EXCLUDED.amount`,
		contract.String(), funder.String(), amount.String())
	return errors.Wrap(err, "failed to update funded amount")
}

func (s *state) FunderCount(_ context.Context, contract crowdfund.Address) (int, error) {
	var count int
	_, err := s.db.QueryOne(pg.Scan(&count), `SELECT count(*) FROM funders WHERE contract = ?`, contract.String())
	return count, errors.Wrap(err, "failed to count funders")
}

func (s *state) Funder(_ context.Context, contract crowdfund.Address, index int) (crowdfund.Address, error) {
	var funder string
	_, err := s.db.QueryOne(pg.Scan(&funder), `SELECT funder FROM funders WHERE contract = ? AND position = ?`,
		contract.String(), index)
	if err == pg.ErrNoRows {
		return crowdfund.ZeroAddress, store.ErrNotFound
	}
	if err != nil {
		return crowdfund.ZeroAddress, errors.Wrap(err, "failed to fetch funder")
	}
	return crowdfund.ParseAddress(funder)
}

func (s *state) Funders(_ context.Context, contract crowdfund.Address) ([]crowdfund.Address, error) {
	var rows []models.Funder
	_, err := s.db.Query(&rows, `SELECT contract, position, funder FROM funders WHERE contract = ? ORDER BY position`,
		contract.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch funders")
	}
	out := make([]crowdfund.Address, len(rows))
	for i, row := range rows {
		addr, err := crowdfund.ParseAddress(row.Funder)
		if err != nil {
			return nil, errors.Wrapf(err, "bad funder at position %d", row.Position)
		}
		out[i] = addr
	}
	return out, nil
}

func (s *state) AppendFunder(_ context.Context, contract, funder crowdfund.Address) error {
	_, err := s.db.Exec(`INSERT INTO funders (contract, position, funder)
                         SELECT ?0, COALESCE(MAX(position) + 1, 0), ?1 FROM funders WHERE contract = ?0`,
		contract.String(), funder.String())
	return errors.Wrap(err, "failed to append funder")
}

func (s *state) ClearFunders(_ context.Context, contract crowdfund.Address) error {
	_, err := s.db.Exec(`DELETE FROM funders WHERE contract = ?`, contract.String())
	return errors.Wrap(err, "failed to clear funders")
}

func contractModel(row models.Contract) (store.Contract, error) {
	addr, err := crowdfund.ParseAddress(row.Address)
	if err != nil {
		return store.Contract{}, errors.Wrap(err, "bad contract address")
	}
	owner, err := crowdfund.ParseAddress(row.Owner)
	if err != nil {
		return store.Contract{}, errors.Wrap(err, "bad owner address")
	}
	feed, err := crowdfund.ParseAddress(row.PriceFeed)
	if err != nil {
		return store.Contract{}, errors.Wrap(err, "bad price feed address")
	}
	return store.Contract{Address: addr, Owner: owner, PriceFeed: feed, CreatedAt: row.CreatedAt}, nil
}
