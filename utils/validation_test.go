package utils

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddressForChain_EVM(t *testing.T) {
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{"valid", "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", false},
		{"missing prefix", "70997970C51812dc3A010C7d01b50e0d17dc79C8", true},
		{"bad hex", "0xZZZZ970C51812dc3A010C7d01b50e0d17dc79C8", true},
		{"too short", "0x7099", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddressForChain(tt.address, "evm")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAddressForChain_XRPL(t *testing.T) {
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{"valid", "rN7n7otQDd6FczFgLdSqtcsAUxDkw6fzRH", false},
		{"wrong prefix", "xN7n7otQDd6FczFgLdSqtcsAUxDkw6fzRH", true},
		{"base58 exclusions", "rN7n7otQDd6FczFgLdSqtcsAUxDkw60zRH", true},
		{"too short", "rN7n7otQ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddressForChain(tt.address, "xrpl")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAddressForChain_UnknownChain(t *testing.T) {
	assert.Error(t, ValidateAddressForChain("anything", "solana"))
}

func TestValidateTransactionReference(t *testing.T) {
	evmHash := "0x" + "ab12" + "cd34" + "ef56" + "ab12" + "cd34" + "ef56" + "ab12" + "cd34" + "ef56" + "ab12" + "cd34" + "ef56" + "ab12" + "cd34" + "ef56" + "ab12"
	require.Len(t, evmHash, 66)
	assert.NoError(t, ValidateTransactionReference(evmHash, "evm"))
	assert.Error(t, ValidateTransactionReference(evmHash[:40], "evm"))

	xrplHash := "E3FE6EA3D48F0C2B639448020EA4F03D4F4F8FFDB243A852A0F59177921B4879"
	assert.NoError(t, ValidateTransactionReference(xrplHash, "xrpl"))
	assert.Error(t, ValidateTransactionReference("not-hex", "xrpl"))
}

func TestParseMinorUnits(t *testing.T) {
	drops, err := ParseMinorUnits("1.5", DropDecimals)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_500_000), drops)

	_, err = ParseMinorUnits("-1", DropDecimals)
	assert.Error(t, err)

	_, err = ParseMinorUnits("abc", DropDecimals)
	assert.Error(t, err)
}

func TestFormatMinorUnits(t *testing.T) {
	assert.Equal(t, "0.01", FormatMinorUnits(big.NewInt(10_000), DropDecimals))
	assert.Equal(t, "1", FormatMinorUnits(new(big.Int).SetUint64(1_000_000_000_000_000_000), WeiDecimals))
	assert.Equal(t, "0", FormatMinorUnits(nil, WeiDecimals))
}
