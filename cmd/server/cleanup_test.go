package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewCleanup_ShutsDownServerBeforeClosingStore(t *testing.T) {
	ctx := context.WithValue(context.Background(), ctxKey("test"), "marker")
	var callOrder []string

	server := &fakeServer{calls: &callOrder}
	store := &fakeStore{calls: &callOrder}

	cleanup := newCleanup(ctx, server, store)

	cleanup()

	require.Equal(t, []string{"serverShutdown", "storeClose"}, callOrder)
	require.Equal(t, "marker", server.receivedCtx.Value(ctxKey("test")))
}

func TestNewCleanup_ClosesStoreWhenShutdownFails(t *testing.T) {
	var callOrder []string

	server := &fakeServer{calls: &callOrder, err: errors.New("deadline exceeded")}
	store := &fakeStore{calls: &callOrder}

	newCleanup(context.Background(), server, store)()

	require.Equal(t, []string{"serverShutdown", "storeClose"}, callOrder)
}

func TestNewCleanup_NilServer(t *testing.T) {
	var callOrder []string
	store := &fakeStore{calls: &callOrder}

	newCleanup(context.Background(), nil, store)()

	require.Equal(t, []string{"storeClose"}, callOrder)
}

func TestNewShutdownContext(t *testing.T) {
	ctx, cancel := newShutdownContext(time.Second)
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(time.Second), deadline, 100*time.Millisecond)
}

type ctxKey string

type fakeServer struct {
	calls       *[]string
	receivedCtx context.Context
	err         error
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	f.receivedCtx = ctx
	*f.calls = append(*f.calls, "serverShutdown")
	return f.err
}

type fakeStore struct {
	calls *[]string
}

func (s *fakeStore) Close() error {
	*s.calls = append(*s.calls, "storeClose")
	return nil
}
