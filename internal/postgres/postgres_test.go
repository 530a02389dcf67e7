package postgres

import (
	"context"
	"testing"

	"github.com/facturo/facturo/internal/config"
	"github.com/facturo/facturo/internal/logger"
	"github.com/facturo/facturo/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type PostgresSuite struct {
	suite.Suite
	db  *DB
	ctx context.Context
}

func TestPostgres(t *testing.T) {
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupTest() {
	cfg := config.GetDefaultConfig()
	cfg.Postgres.Driver = types.DatabaseDriverSQLite
	cfg.Postgres.DSN = ":memory:"
	cfg.Postgres.AutoMigrate = true

	db, err := NewDB(cfg, logger.NewNoopLogger())
	s.Require().NoError(err)
	s.db = db
	s.ctx = context.Background()

	_, err = s.db.ExecContext(s.ctx, `CREATE TABLE scratch_rows (id INTEGER PRIMARY KEY, v TEXT)`)
	s.Require().NoError(err)
}

func (s *PostgresSuite) TearDownTest() {
	_ = s.db.Close()
}

func (s *PostgresSuite) count() int {
	var n int
	s.Require().NoError(s.db.GetContext(s.ctx, &n, `SELECT COUNT(*) FROM scratch_rows`))
	return n
}

func (s *PostgresSuite) TestWithTxCommits() {
	err := s.db.WithTx(s.ctx, func(ctx context.Context) error {
		_, err := s.db.GetQuerier(ctx).ExecContext(ctx, `INSERT INTO scratch_rows (id, v) VALUES (1, 'a')`)
		return err
	})
	s.NoError(err)
	s.Equal(1, s.count())
}

func (s *PostgresSuite) TestWithTxRollsBackOnError() {
	err := s.db.WithTx(s.ctx, func(ctx context.Context) error {
		if _, err := s.db.GetQuerier(ctx).ExecContext(ctx, `INSERT INTO scratch_rows (id, v) VALUES (1, 'a')`); err != nil {
			return err
		}
		return assert.AnError
	})
	s.ErrorIs(err, assert.AnError)
	s.Equal(0, s.count())
}

func (s *PostgresSuite) TestNestedTxUsesSavepoint() {
	err := s.db.WithTx(s.ctx, func(ctx context.Context) error {
		q := s.db.GetQuerier(ctx)
		if _, err := q.ExecContext(ctx, `INSERT INTO scratch_rows (id, v) VALUES (1, 'outer')`); err != nil {
			return err
		}
		inner := s.db.WithTx(ctx, func(ctx context.Context) error {
			if _, err := s.db.GetQuerier(ctx).ExecContext(ctx, `INSERT INTO scratch_rows (id, v) VALUES (2, 'inner')`); err != nil {
				return err
			}
			return assert.AnError
		})
		s.ErrorIs(inner, assert.AnError)
		return nil
	})
	s.NoError(err)
	s.Equal(1, s.count())
}

func (s *PostgresSuite) TestWithoutTxHidesAmbientTransaction() {
	ctx, _, err := s.db.BeginTx(s.ctx)
	s.Require().NoError(err)

	_, ok := GetTx(WithoutTx(ctx))
	s.False(ok)
	_, ok = GetTx(ctx)
	s.True(ok)

	s.NoError(s.db.RollbackTx(ctx))
}

func (s *PostgresSuite) TestUniqueViolationIsDetected() {
	_, err := s.db.ExecContext(s.ctx, `INSERT INTO scratch_rows (id, v) VALUES (1, 'a')`)
	s.Require().NoError(err)
	_, err = s.db.ExecContext(s.ctx, `INSERT INTO scratch_rows (id, v) VALUES (1, 'b')`)
	s.True(IsUniqueViolation(err))
	s.False(IsUniqueViolation(nil))
}

func TestSchemaIsIdempotent(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Postgres.DSN = ":memory:"
	db, err := NewDB(cfg, logger.NewNoopLogger())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.EnsureSchema(context.Background()))
}
