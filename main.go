package main

import "golang-oscnode/cmd"

func main() {
	cmd.Execute()
}
