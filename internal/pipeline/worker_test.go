package pipeline

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkerHostDeliversResultAsynchronously(t *testing.T) {
	var mu sync.Mutex
	var got int
	done := make(chan struct{}, 1)

	h := NewWorkerHost(4, func(in int) (int, error) {
		return in * 2, nil
	}, func(out int) {
		mu.Lock()
		got = out
		mu.Unlock()
		done <- struct{}{}
	}, nil)
	defer h.Close()

	h.Submit(21)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker never produced a result")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 42, got)
}

func TestWorkerHostRoutesErrorsToOnError(t *testing.T) {
	errCh := make(chan error, 1)
	h := NewWorkerHost(4, func(in int) (int, error) {
		return 0, errors.New("boom")
	}, nil, func(err error) {
		errCh <- err
	})
	defer h.Close()

	h.Submit(1)
	select {
	case err := <-errCh:
		require.EqualError(t, err, "boom")
	case <-time.After(time.Second):
		t.Fatal("worker never reported the error")
	}
}

func TestWorkerHostDropsWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	h := NewWorkerHost(1, func(in int) (int, error) {
		<-block
		return in, nil
	}, nil, nil)
	defer func() {
		close(block)
		h.Close()
	}()

	h.Submit(1) // occupies the single worker goroutine
	h.Submit(2) // fills the depth-1 queue
	h.Submit(3) // must not block: dropped
}
