package main

import (
	"errors"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForStop_Signal(t *testing.T) {
	quit := make(chan os.Signal, 1)
	quit <- os.Interrupt
	assert.NoError(t, waitForStop(quit, make(chan error)))
}

func TestWaitForStop_ServerClosed(t *testing.T) {
	serverErr := make(chan error, 1)
	serverErr <- http.ErrServerClosed
	assert.NoError(t, waitForStop(make(chan os.Signal), serverErr))
}

// Занятый порт должен приводить к возврату ошибки, а не к выходу из процесса,
// чтобы main успел закрыть хранилища.
func TestWaitForStop_ListenErrorReturned(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := &http.Server{Addr: ln.Addr().String(), ReadHeaderTimeout: time.Second}
	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.ListenAndServe() }()

	done := make(chan error, 1)
	go func() { done <- waitForStop(make(chan os.Signal), serverErr) }()

	select {
	case err := <-done:
		require.Error(t, err)
		var opErr *net.OpError
		assert.True(t, errors.As(err, &opErr), "%v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("waitForStop did not return after listen failure")
	}
}
