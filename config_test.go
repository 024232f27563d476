package serial

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigureRejectsCustomBaudWithoutValue(t *testing.T) {
	adapter := newFakeAdapter()
	cfg := DefaultConfig()
	cfg.Baud = BaudCustom
	err := configure(adapter, 1, cfg)
	require.ErrorIs(t, err, ErrInvalidArg)
}

func TestConfigureAcceptsCustomBaudWithValue(t *testing.T) {
	adapter := newFakeAdapter()
	cfg := DefaultConfig()
	cfg.Baud = BaudCustom
	cfg.CustomBaud = 74880
	require.NoError(t, configure(adapter, 1, cfg))

	got := adapter.lastConfig[1]
	require.Equal(t, 74880, got.CustomBaud)
}

func TestDefaultConfigIs8N1(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, DataBits8, cfg.DataBits)
	require.Equal(t, StopBits1, cfg.StopBits)
	require.Equal(t, ParityNone, cfg.Parity)
	require.Equal(t, FlowNone, cfg.Flow)
}

func TestCurrentConfigurationDelegatesToAdapter(t *testing.T) {
	adapter := newFakeAdapter()
	require.Equal(t, []string{"fake"}, currentConfiguration(adapter, 1))
}
