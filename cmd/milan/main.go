package main

import (
	"github.com/jindalujjwal0720/milan/internal/command"
	"github.com/jindalujjwal0720/milan/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	command.Execute()
}
