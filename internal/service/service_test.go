package service_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rainfall-verification/internal/pipeline"
	"github.com/couchcryptid/rainfall-verification/internal/service"
)

type stubStage struct{}

func (stubStage) CheckReadiness(context.Context) error { return nil }
func (stubStage) Progress() pipeline.Progress          { return pipeline.Progress{Stage: "count"} }

func TestRun_WithoutHTTP(t *testing.T) {
	called := false
	err := service.Run(context.Background(), service.Options{}, stubStage{}, func(context.Context) error {
		called = true
		return nil
	}, slog.Default())
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRun_ReturnsStageError(t *testing.T) {
	boom := errors.New("boom")
	err := service.Run(context.Background(), service.Options{
		HTTPAddr:        "127.0.0.1:0",
		ShutdownTimeout: time.Second,
	}, stubStage{}, func(context.Context) error { return boom }, slog.Default())
	require.ErrorIs(t, err, boom)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := service.Run(ctx, service.Options{HTTPAddr: "127.0.0.1:0", ShutdownTimeout: time.Second}, stubStage{},
		func(ctx context.Context) error {
			cancel()
			<-ctx.Done()
			return nil
		}, slog.Default())
	require.NoError(t, err)
}
