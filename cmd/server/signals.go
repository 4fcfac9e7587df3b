package main

import "os"

// shutdownSignals - сигналы, по которым сервер корректно завершается.
// SIGTERM добавляется в signals_unix.go.
var shutdownSignals = []os.Signal{os.Interrupt}
