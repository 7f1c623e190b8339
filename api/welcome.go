package api

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"autoops-api/domain"
)

// Welcome emails are best-effort: registration must never block on or fail
// because of the mail queue. Jobs are handed to a bounded worker pool; when
// the pool is saturated the caller falls back to an inline enqueue.

var (
	welcomeOnce    sync.Once
	welcomeJobs    chan domain.WelcomeEmail
	welcomeTimeout time.Duration
	handoffTimeout time.Duration
	bg             = context.Background()
	globalStore    Storage
	globalLog      *log.Logger
	welcomeWG      sync.WaitGroup
)

func initWelcomeSender(store Storage, logger *log.Logger) {
	welcomeOnce.Do(func() {
		if store == nil {
			panic("storage is required")
		}
		if logger == nil {
			panic("logger is required")
		}
		globalStore = store
		globalLog = logger

		workerCount := envInt("WELCOME_WORKERS", 4)
		jobBuf := envInt("WELCOME_BUFFER", 256)
		welcomeTimeout = envDur("WELCOME_TIMEOUT", 30*time.Second)
		handoffTimeout = envDur("WELCOME_HANDOFF_TIMEOUT", 15*time.Millisecond)

		welcomeJobs = make(chan domain.WelcomeEmail, jobBuf)
		for i := 0; i < workerCount; i++ {
			welcomeWG.Add(1)
			go welcomeWorker(i, welcomeJobs)
		}
		globalLog.Infof("welcome sender started, workers: %d, buffer: %d, timeout: %v, handoff: %v", workerCount, jobBuf, welcomeTimeout, handoffTimeout)
	})
}

// shutdownWelcomeSender stops worker goroutines and clears shared state. It is intended for tests.
func shutdownWelcomeSender() {
	if welcomeJobs != nil {
		close(welcomeJobs)
		welcomeJobs = nil
	}

	welcomeWG.Wait()

	globalStore = nil
	globalLog = nil
	welcomeTimeout = 0
	handoffTimeout = 0
	welcomeOnce = sync.Once{}
	welcomeWG = sync.WaitGroup{}
}

func welcomeWorker(id int, jobCh <-chan domain.WelcomeEmail) {
	defer welcomeWG.Done()
	for msg := range jobCh {
		ctx, cancel := context.WithTimeout(bg, welcomeTimeout)
		err := globalStore.EnqueueWelcomeEmail(ctx, msg)
		cancel()

		if err != nil {
			globalLog.Errorf("welcome email enqueue failed, err: %v, email: %s, worker: %d", err, msg.Email, id)
		}
	}
}

// queueWelcomeEmail hands the message to the pool, falling back to an inline
// enqueue when the buffer is full. Failures are logged and swallowed.
func queueWelcomeEmail(store Storage, logger *log.Logger, msg domain.WelcomeEmail) {
	if tryQueueWelcome(msg) {
		return
	}

	if logger != nil {
		logger.Warn("welcome buffer saturated; enqueueing inline")
	}

	timeout := welcomeTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(bg, timeout)
	defer cancel()
	if err := store.EnqueueWelcomeEmail(ctx, msg); err != nil && logger != nil {
		logger.Errorf("welcome email inline enqueue failed: %v", err)
	}
}

func tryQueueWelcome(msg domain.WelcomeEmail) bool {
	if welcomeJobs == nil {
		return false
	}

	if ok, closed := trySendNonBlocking(welcomeJobs, msg); closed {
		return false
	} else if ok {
		return true
	}

	if handoffTimeout <= 0 {
		return false
	}

	timer := time.NewTimer(handoffTimeout)
	defer timer.Stop()

	ok, _ := sendWithTimer(welcomeJobs, msg, timer.C)
	return ok
}

func trySendNonBlocking(ch chan domain.WelcomeEmail, msg domain.WelcomeEmail) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- msg:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer(ch chan domain.WelcomeEmail, msg domain.WelcomeEmail, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- msg:
		return true, false
	case <-timer:
		return false, false
	}
}
