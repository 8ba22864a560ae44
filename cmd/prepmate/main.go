package main

import "github.com/prepmate/interview-client/internal/cli"

func main() {
	cli.Execute()
}
