package bus

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisBus_PublishGoesThroughClient(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")

	b := NewRedisBusFromClient(client)
	ctx := context.Background()
	require.NoError(t, b.Start(ctx))

	mock.ExpectPublish(TopicAlerts, []byte(`{"kind":"latency_metrics"}`)).SetVal(1)
	require.NoError(t, b.Publish(ctx, TopicAlerts, []byte(`{"kind":"latency_metrics"}`)))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisBus_PublishBeforeStartFails(t *testing.T) {
	client, _ := redismock.NewClientMock()
	b := NewRedisBusFromClient(client)
	err := b.Publish(context.Background(), TopicAlerts, []byte("x"))
	require.ErrorIs(t, err, ErrBusNotStarted)
}
