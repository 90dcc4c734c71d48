package main

import (
	"metabias/cmd/metabias/commands"
	"metabias/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
