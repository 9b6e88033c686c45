package utils

import (
	"os"
	"os/signal"
	"syscall"
)

// HandleTerminationProcess выполняет cleanup при получении SIGINT или SIGTERM.
// done закрывается после завершения cleanup, чтобы main мог дождаться остановки.
func HandleTerminationProcess(cleanup func()) <-chan struct{} {
	done := make(chan struct{})

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		signal.Stop(c)
		cleanup()
		close(done)
	}()

	return done
}
