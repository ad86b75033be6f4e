package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"quoteflow/internal/model"
	"quoteflow/pkg/conn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, port)
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

func TestClickHouseSinkIntegration(t *testing.T) {
	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Ready for connections").WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
	}, "9000")

	ctx := context.Background()
	ch, err := conn.NewClickHouse(ctx, "clickhouse://default@"+addr+"/default")
	require.NoError(t, err)
	defer ch.Close()

	s, err := NewClickHouseSink(ctx, ch, "", true)
	require.NoError(t, err)

	at := time.Date(2025, 1, 29, 9, 30, 0, 500_000_000, time.UTC)
	require.NoError(t, s.Save(ctx, []model.Tick{sample("rb2505", at, 3500), sample("cu2505", at, 72000)}))

	var count uint64
	require.NoError(t, ch.QueryRow(ctx, "SELECT count() FROM ticks").Scan(&count))
	assert.Equal(t, uint64(2), count)
}

func TestRedisSinkIntegration(t *testing.T) {
	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}, "6379")

	ctx := context.Background()
	client, err := conn.NewRedis(ctx, "redis://"+addr+"/0")
	require.NoError(t, err)
	defer client.Close()

	s := NewRedisSink(client, "", time.Minute)
	at := time.Date(2025, 1, 29, 9, 30, 0, 0, time.UTC)
	require.NoError(t, s.Save(ctx, []model.Tick{
		sample("rb2505", at.Add(time.Second), 3501),
		sample("rb2505", at, 3500),
	}))

	fields, err := client.HGetAll(ctx, s.Key("rb2505")).Result()
	require.NoError(t, err)
	assert.Equal(t, "3501", fields["last_price"])
	assert.Equal(t, "SHFE", fields["exchange"])

	ttl, err := client.TTL(ctx, s.Key("rb2505")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestClickHouseSinkRejectsTableName(t *testing.T) {
	_, err := NewClickHouseSink(context.Background(), nil, "ticks; DROP TABLE x", false)
	assert.Error(t, err)
}
