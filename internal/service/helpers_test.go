package service

import (
	"github.com/facturo/facturo/internal/testutil"
)

// newTestServiceParams wires the suite's in-memory stores into services
func newTestServiceParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	return NewServiceParams(
		s.GetLogger(),
		s.GetConfig(),
		s.GetDB(),
		s.GetStores().SequenceRepo,
		s.GetStores().DocumentRepo,
		s.GetStores().PaymentRepo,
		s.GetPublisher(),
		s.GetCache(),
	)
}
