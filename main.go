package main

import "github.com/jsphweid/scoredex/cmd"

func main() {
	cmd.Execute()
}
