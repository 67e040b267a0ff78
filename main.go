package main

import "github.com/sramlab/pufrecon/cmd"

func main() {
	cmd.Execute()
}
