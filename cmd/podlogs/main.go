package main

import "github.com/charliek/podlogs/internal/cli"

func main() {
	cli.Execute()
}
