package core

import (
	oracleCore "github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/stretchr/testify/mock"
)

type RatesHistoryDBMock struct {
	mock.Mock
}

var _ RatesHistoryDB = (*RatesHistoryDBMock)(nil)

// AddRate implements RatesHistoryDB.
func (m *RatesHistoryDBMock) AddRate(rate oracleCore.AggregatedRate) error {
	args := m.Called(rate)

	return args.Error(0)
}

// GetRatesForPair implements RatesHistoryDB.
func (m *RatesHistoryDBMock) GetRatesForPair(
	pair oracleCore.CurrencyPair, limit int,
) ([]oracleCore.AggregatedRate, error) {
	args := m.Called(pair, limit)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]oracleCore.AggregatedRate), args.Error(1)
}

// Close implements RatesHistoryDB.
func (m *RatesHistoryDBMock) Close() error {
	args := m.Called()

	return args.Error(0)
}
