package main

import "github.com/quantbrew/algochat/cmd"

func main() {
	cmd.Execute()
}
