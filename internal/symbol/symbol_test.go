package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEquity(t *testing.T) {
	got, err := Equity(" sbin ")
	require.NoError(t, err)
	assert.Equal(t, "SBIN", got)

	_, err = Equity("  ")
	assert.Error(t, err)
}

func TestFuture(t *testing.T) {
	got, err := Future("banknifty", 24, 4, 2024)
	require.NoError(t, err)
	assert.Equal(t, "BANKNIFTY24APR24FUT", got)

	got, err = Future("USDINR", 10, 5, 24)
	require.NoError(t, err)
	assert.Equal(t, "USDINR10MAY24FUT", got)
}

func TestFutureMonthlyOmitsDay(t *testing.T) {
	got, err := Future("NIFTY", 0, 6, 2024)
	require.NoError(t, err)
	assert.Equal(t, "NIFTYJUN24FUT", got)
}

func TestFutureValidation(t *testing.T) {
	_, err := Future("", 24, 4, 2024)
	assert.Error(t, err)

	_, err = Future("NIFTY", 32, 4, 2024)
	assert.Error(t, err)

	_, err = Future("NIFTY", 24, 13, 2024)
	assert.Error(t, err)

	_, err = Future("NIFTY", 24, 4, -5)
	assert.Error(t, err)
}

func TestOption(t *testing.T) {
	got, err := Option("nifty", 28, 3, 2024, 20800, "CE")
	require.NoError(t, err)
	assert.Equal(t, "NIFTY28MAR2420800CE", got)

	got, err = Option("VEDL", 25, 4, 24, 292.5, "call")
	require.NoError(t, err)
	assert.Equal(t, "VEDL25APR24292.5CE", got)

	got, err = Option("NIFTY", 28, 3, 2024, 20800, "p")
	require.NoError(t, err)
	assert.Equal(t, "NIFTY28MAR2420800PE", got)
}

func TestOptionValidation(t *testing.T) {
	var verr *ErrValidation

	_, err := Option("NIFTY", 28, 3, 2024, 0, "CE")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "strike", verr.Field)

	_, err = Option("NIFTY", 28, 3, 2024, 20800, "X")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "option type", verr.Field)

	_, err = Option("NIFTY", 0, 3, 2024, 20800, "CE")
	assert.Error(t, err)
}

func TestIndices(t *testing.T) {
	assert.Contains(t, Indices("NSE_INDEX"), "BANKNIFTY")
	assert.Contains(t, Indices("bse_index"), "SENSEX")
	assert.Nil(t, Indices("NSE"))
}
