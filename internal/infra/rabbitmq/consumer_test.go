package rabbitmq

import (
	"testing"

	"github.com/ledgerkit/walletcore/internal/settlement"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptFromHeaders(t *testing.T) {
	cases := []struct {
		name    string
		headers amqp.Table
		want    int
	}{
		{"no headers", nil, 0},
		{"missing key", amqp.Table{"other": int32(3)}, 0},
		{"int32", amqp.Table{attemptHeader: int32(2)}, 2},
		{"int64", amqp.Table{attemptHeader: int64(1)}, 1},
		{"int", amqp.Table{attemptHeader: 4}, 4},
		{"unexpected type", amqp.Table{attemptHeader: "2"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, attemptFromHeaders(tc.headers))
		})
	}
}

func TestDecodeJob(t *testing.T) {
	body := []byte(`{"kind":"transfer","source_wallet_id":"a","destination_wallet_id":"b","amount":"12.5","correlation_id":"corr"}`)

	job, err := DecodeJob[settlement.Job](body)
	require.NoError(t, err)
	assert.Equal(t, settlement.JobKindTransfer, job.Kind)
	assert.Equal(t, "a", job.SourceWalletID)
	assert.Equal(t, "12.5", job.Amount)
	assert.Equal(t, "corr", job.CorrelationID)

	_, err = DecodeJob[settlement.Job]([]byte("{not json"))
	assert.Error(t, err)
}
