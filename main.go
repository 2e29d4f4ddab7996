package main

import "github.com/pthm-cable/reuron/cmd"

func main() {
	cmd.Execute()
}
