package chain

import (
	"errors"
	"testing"

	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_BuildTransfer(t *testing.T) {
	payer := keypair.MustRandom().Address()
	recipient := keypair.MustRandom().Address()
	asset := testContractAddress(t)

	testCases := []struct {
		name            string
		payer           string
		recipient       string
		asset           string
		amountBaseUnits int64
		blockhash       string
		wantErrContains string
	}{
		{
			name:            "🎉 successfully builds a transfer",
			payer:           payer,
			recipient:       recipient,
			asset:           asset,
			amountBaseUnits: 2_000_000,
			blockhash:       "recent-blockhash",
		},
		{
			name:            "returns an error if the payer address is invalid",
			payer:           "not-an-address",
			recipient:       recipient,
			asset:           asset,
			amountBaseUnits: 2_000_000,
			blockhash:       "recent-blockhash",
			wantErrContains: "payer address",
		},
		{
			name:            "returns an error if the recipient address is invalid",
			payer:           payer,
			recipient:       "",
			asset:           asset,
			amountBaseUnits: 2_000_000,
			blockhash:       "recent-blockhash",
			wantErrContains: "recipient address",
		},
		{
			name:            "returns an error if the asset is not a contract address",
			payer:           payer,
			recipient:       recipient,
			asset:           payer,
			amountBaseUnits: 2_000_000,
			blockhash:       "recent-blockhash",
			wantErrContains: "is not a valid contract address",
		},
		{
			name:            "returns an error if the amount is zero",
			payer:           payer,
			recipient:       recipient,
			asset:           asset,
			amountBaseUnits: 0,
			blockhash:       "recent-blockhash",
			wantErrContains: "amount must be greater than zero",
		},
		{
			name:            "returns an error if the amount is negative",
			payer:           payer,
			recipient:       recipient,
			asset:           asset,
			amountBaseUnits: -5,
			blockhash:       "recent-blockhash",
			wantErrContains: "amount must be greater than zero",
		},
		{
			name:            "returns an error if the blockhash is empty",
			payer:           payer,
			recipient:       recipient,
			asset:           asset,
			amountBaseUnits: 2_000_000,
			blockhash:       "",
			wantErrContains: "blockhash cannot be empty",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			envelope, err := BuildTransfer(tc.payer, tc.recipient, tc.asset, tc.amountBaseUnits, tc.blockhash)

			if tc.wantErrContains != "" {
				require.Error(t, err)
				assert.ErrorContains(t, err, tc.wantErrContains)

				var constructionErr *ConstructionError
				assert.True(t, errors.As(err, &constructionErr))
				assert.Nil(t, envelope)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.payer, envelope.FeePayer)
			assert.Equal(t, tc.blockhash, envelope.Blockhash)
			require.Len(t, envelope.Instructions, 1)
			assert.Equal(t, TransferInstruction{
				Source:          tc.payer,
				Destination:     tc.recipient,
				Asset:           tc.asset,
				AmountBaseUnits: tc.amountBaseUnits,
			}, envelope.Instructions[0])
			assert.Empty(t, envelope.Signatures)
		})
	}
}
